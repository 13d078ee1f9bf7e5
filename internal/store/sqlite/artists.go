package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// ArtistRepository implements models.Repository[*models.Artist] on SQLite.
// Followed artists are plain snapshots, refreshed last-write-wins like
// tracks.
type ArtistRepository struct {
	store *Store
}

const artistColumns = "id, name, genres, followers, created_at, updated_at"

// Get retrieves an artist by ID.
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	query := "SELECT " + artistColumns + " FROM artists WHERE id = ?"
	artist, err := scanArtist(r.store.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist %s: %w", id, err)
	}
	return artist, nil
}

// Upsert inserts or refreshes an artist record.
func (r *ArtistRepository) Upsert(ctx context.Context, artist *models.Artist) (*models.Artist, error) {
	if err := artist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *artist
	if stored.ID == "" {
		stored.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	stored.UpdatedAt = now
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	genres, err := encodeStrings(stored.Genres)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO artists (id, name, genres, followers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			genres = excluded.genres,
			followers = excluded.followers,
			updated_at = excluded.updated_at
	`
	_, err = r.store.db.ExecContext(ctx, query,
		stored.ID, stored.Name, genres, stored.Followers, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, mapExecErr(err, "upsert artist")
	}

	return r.Get(ctx, stored.ID)
}

// Delete removes an artist.
func (r *ArtistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM artists WHERE id = ?", id)
	if err != nil {
		return mapExecErr(err, "delete artist")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: artist %s", shared.ErrNotFound, id)
	}

	r.store.logger.Debug("deleted artist", "id", id)
	return nil
}

// Query returns artists matching the filter.
func (r *ArtistRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Artist, error) {
	page = page.Bounded()

	query := "SELECT " + artistColumns + " FROM artists WHERE 1=1"
	args := []any{}

	if len(filter.IDs) > 0 {
		query += " AND id IN (" + placeholders(len(filter.IDs)) + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Name != "" {
		query += " AND name = ?"
		args = append(args, filter.Name)
	}
	if filter.Genre != "" {
		query += " AND genres LIKE ?"
		args = append(args, containsPattern(filter.Genre))
	}

	query += " ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Offset)

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapExecErr(err, "query artists")
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

func scanArtist(row rowScanner) (*models.Artist, error) {
	var (
		artist models.Artist
		genres sql.NullString
	)

	err := row.Scan(&artist.ID, &artist.Name, &genres, &artist.Followers, &artist.CreatedAt, &artist.UpdatedAt)
	if err != nil {
		return nil, err
	}

	artist.Genres, err = decodeStrings(genres.String)
	if err != nil {
		return nil, err
	}
	return &artist, nil
}
