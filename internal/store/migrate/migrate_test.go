package migrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

var testMigrations = fstest.MapFS{
	"sql/0000_first_up.sql": &fstest.MapFile{Data: []byte(`
		-- first table
		CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);
	`)},
	"sql/0000_first_down.sql": &fstest.MapFile{Data: []byte(`
		DROP TABLE notes;
	`)},
	"sql/0001_second_up.sql": &fstest.MapFile{Data: []byte(`
		CREATE TABLE tags (id INTEGER PRIMARY KEY, label TEXT);
		CREATE INDEX idx_tags_label ON tags(label);
	`)},
	"sql/0001_second_down.sql": &fstest.MapFile{Data: []byte(`
		DROP TABLE tags;
	`)},
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", name, err)
	}
	return count > 0
}

func TestRun(t *testing.T) {
	t.Run("applies all pending migrations in order", func(t *testing.T) {
		db := setupTestDB(t)

		if err := Run(db, testMigrations, SQLite); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if !tableExists(t, db, "notes") || !tableExists(t, db, "tags") {
			t.Error("expected both migrations applied")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to count applied migrations: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 recorded migrations, got %d", count)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := setupTestDB(t)

		if err := Run(db, testMigrations, SQLite); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if err := Run(db, testMigrations, SQLite); err != nil {
			t.Fatalf("expected second run to be a no-op, got %v", err)
		}
	})

	t.Run("rejects incomplete migration pairs", func(t *testing.T) {
		db := setupTestDB(t)

		incomplete := fstest.MapFS{
			"sql/0000_orphan_up.sql": &fstest.MapFile{Data: []byte("CREATE TABLE orphan (id INTEGER);")},
		}
		if err := Run(db, incomplete, SQLite); err == nil {
			t.Error("expected error for migration without down script")
		}
	})
}

func TestRollback(t *testing.T) {
	t.Run("reverts only the most recent migration", func(t *testing.T) {
		db := setupTestDB(t)

		if err := Run(db, testMigrations, SQLite); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := Rollback(db, testMigrations, SQLite); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		if tableExists(t, db, "tags") {
			t.Error("expected most recent migration reverted")
		}
		if !tableExists(t, db, "notes") {
			t.Error("expected earlier migration untouched")
		}
	})

	t.Run("fails with nothing applied", func(t *testing.T) {
		db := setupTestDB(t)

		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}
		if err := Rollback(db, testMigrations, SQLite); err == nil {
			t.Error("expected error when no migrations are applied")
		}
	})
}
