package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads a valid config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[backend]
name = "sqlite"

[sqlite]
path = "recordkeeper.db"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Backend.Name != BackendSQLite {
			t.Errorf("expected backend sqlite, got %q", config.Backend.Name)
		}
		if config.SQLite.Path != "recordkeeper.db" {
			t.Errorf("expected sqlite path set, got %q", config.SQLite.Path)
		}
	})

	t.Run("missing file returns ErrConfiguration", func(t *testing.T) {
		_, err := LoadConfig("/no/such/config.toml")
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("malformed TOML returns ErrConfiguration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[backend\nname ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[backend]
name = "sqlite"

[sqlite]
path = "file.db"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		t.Setenv("RECORDKEEPER_BACKEND", "postgres")
		t.Setenv("RECORDKEEPER_POSTGRES_PASSWORD", "s3cret")

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Backend.Name != BackendPostgres {
			t.Errorf("expected env to override backend, got %q", config.Backend.Name)
		}
		if config.Postgres.Password != "s3cret" {
			t.Error("expected postgres password from environment")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Backend.Name == "" {
		t.Error("expected embedded default config to select a backend")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		config Config
		valid  bool
	}{
		{
			name:   "sqlite with path",
			config: Config{Backend: BackendConfig{Name: BackendSQLite}, SQLite: SQLiteConfig{Path: "db.sqlite"}},
			valid:  true,
		},
		{
			name:   "sqlite without path",
			config: Config{Backend: BackendConfig{Name: BackendSQLite}},
			valid:  false,
		},
		{
			name: "postgres with required settings",
			config: Config{
				Backend:  BackendConfig{Name: BackendPostgres},
				Postgres: PostgresConfig{Host: "localhost", Port: 5432, User: "rk", DBName: "rk"},
			},
			valid: true,
		},
		{
			name: "postgres missing host",
			config: Config{
				Backend:  BackendConfig{Name: BackendPostgres},
				Postgres: PostgresConfig{Port: 5432, User: "rk", DBName: "rk"},
			},
			valid: false,
		},
		{
			name: "postgres port out of range",
			config: Config{
				Backend:  BackendConfig{Name: BackendPostgres},
				Postgres: PostgresConfig{Host: "localhost", Port: 70000, User: "rk", DBName: "rk"},
			},
			valid: false,
		},
		{
			name: "mongo with uri and database",
			config: Config{
				Backend: BackendConfig{Name: BackendMongo},
				Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: "rk"},
			},
			valid: true,
		},
		{
			name:   "mongo missing uri",
			config: Config{Backend: BackendConfig{Name: BackendMongo}, Mongo: MongoConfig{Database: "rk"}},
			valid:  false,
		},
		{
			name:   "redis with addr",
			config: Config{Backend: BackendConfig{Name: BackendRedis}, Redis: RedisConfig{Addr: "localhost:6379"}},
			valid:  true,
		},
		{
			name:   "redis negative ttl",
			config: Config{Backend: BackendConfig{Name: BackendRedis}, Redis: RedisConfig{Addr: "localhost:6379", TTLSeconds: -1}},
			valid:  false,
		},
		{
			name:   "no backend selected",
			config: Config{},
			valid:  false,
		},
		{
			name:   "unknown backend",
			config: Config{Backend: BackendConfig{Name: "cassandra"}},
			valid:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.valid && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tc.valid {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, ErrConfiguration) {
					t.Errorf("expected ErrConfiguration, got %v", err)
				}
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	t.Run("without password", func(t *testing.T) {
		cfg := PostgresConfig{Host: "localhost", Port: 5432, User: "rk", DBName: "rk", SSLMode: "disable"}
		dsn := cfg.DSN()
		if strings.Contains(dsn, "password") {
			t.Errorf("expected no password in DSN, got %q", dsn)
		}
	})

	t.Run("with password", func(t *testing.T) {
		cfg := PostgresConfig{Host: "localhost", Port: 5432, User: "rk", Password: "s3cret", DBName: "rk", SSLMode: "disable"}
		if !strings.Contains(cfg.DSN(), "password=s3cret") {
			t.Error("expected password in DSN")
		}
	})
}

func TestCreateConfigFile(t *testing.T) {
	t.Run("writes starter config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("expected created config to validate, got %v", err)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if err := CreateConfigFile(path); err == nil {
			t.Error("expected error when config already exists")
		}
	})
}
