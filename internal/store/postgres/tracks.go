package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// TrackRepository implements models.Repository[*models.Track] on PostgreSQL.
type TrackRepository struct {
	store *Store
}

const trackColumns = "id, title, artists, album, duration_ms, isrc, metadata, fetched_at, created_at, updated_at"

// Get retrieves a track by ID.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = $1"
	track, err := scanTrack(r.store.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	return track, nil
}

// Upsert inserts or refreshes a track snapshot. A missing ID is assigned.
func (r *TrackRepository) Upsert(ctx context.Context, track *models.Track) (*models.Track, error) {
	if err := track.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *track
	if stored.ID == "" {
		stored.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	stored.UpdatedAt = now
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.FetchedAt.IsZero() {
		stored.FetchedAt = now
	}

	artists, err := encodeStrings(stored.Artists)
	if err != nil {
		return nil, err
	}

	var metadata any
	if len(stored.Metadata) > 0 {
		metadata = string(stored.Metadata)
	}

	query := `
		INSERT INTO tracks (id, title, artists, album, duration_ms, isrc, metadata, fetched_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			artists = excluded.artists,
			album = excluded.album,
			duration_ms = excluded.duration_ms,
			isrc = excluded.isrc,
			metadata = excluded.metadata,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at
	`
	_, err = r.store.db.ExecContext(ctx, query,
		stored.ID,
		stored.Title,
		artists,
		stored.Album,
		stored.Duration.Milliseconds(),
		stored.ISRC,
		metadata,
		stored.FetchedAt,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, mapExecErr(err, "upsert track")
	}

	return r.Get(ctx, stored.ID)
}

// Delete removes a track; playlist references cascade away with it.
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM tracks WHERE id = $1", id)
	if err != nil {
		return mapExecErr(err, "delete track")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}

	r.store.logger.Debug("deleted track", "id", id)
	return nil
}

// Query returns tracks matching the filter, ordered by creation time then ID.
func (r *TrackRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Track, error) {
	page = page.Bounded()

	query := "SELECT " + trackColumns + " FROM tracks WHERE TRUE"
	args := []any{}

	if len(filter.IDs) > 0 {
		query += " AND id IN (" + placeholders(len(args)+1, len(filter.IDs)) + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Title != "" {
		args = append(args, filter.Title)
		query += fmt.Sprintf(" AND title = $%d", len(args))
	}
	if filter.Artist != "" {
		args = append(args, filter.Artist)
		query += fmt.Sprintf(" AND artists ? $%d", len(args))
	}
	if filter.Album != "" {
		args = append(args, filter.Album)
		query += fmt.Sprintf(" AND album = $%d", len(args))
	}
	if filter.ISRC != "" {
		args = append(args, filter.ISRC)
		query += fmt.Sprintf(" AND isrc = $%d", len(args))
	}

	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapExecErr(err, "query tracks")
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		track      models.Track
		artists    []byte
		album      sql.NullString
		durationMS int64
		isrc       sql.NullString
		metadata   []byte
		fetchedAt  sql.NullTime
	)

	err := row.Scan(&track.ID, &track.Title, &artists, &album, &durationMS, &isrc, &metadata, &fetchedAt, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}

	track.Artists, err = decodeStrings(artists)
	if err != nil {
		return nil, err
	}
	track.Album = album.String
	track.Duration = time.Duration(durationMS) * time.Millisecond
	track.ISRC = isrc.String
	if len(metadata) > 0 {
		track.Metadata = json.RawMessage(metadata)
	}
	if fetchedAt.Valid {
		track.FetchedAt = fetchedAt.Time
	}

	return &track, nil
}
