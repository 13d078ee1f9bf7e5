package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// PlaylistRepository implements models.Repository[*models.Playlist] on
// PostgreSQL with the same revision and integrity semantics as the embedded
// backend.
type PlaylistRepository struct {
	store *Store
}

const playlistColumns = "id, name, description, owner_id, public, snapshot_id, revision, created_at, updated_at"

// Get retrieves a playlist and its ordered track list.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := "SELECT " + playlistColumns + " FROM playlists WHERE id = $1"
	playlist, err := scanPlaylist(r.store.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	playlist.TrackIDs, err = r.trackIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	return playlist, nil
}

// Upsert inserts or replaces a playlist atomically with a revision check and
// track reference verification. The revision row lock (FOR UPDATE) serializes
// concurrent upserts so exactly one of two racing writers commits.
func (r *PlaylistRepository) Upsert(ctx context.Context, playlist *models.Playlist) (*models.Playlist, error) {
	if err := playlist.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *playlist
	if stored.ID == "" {
		stored.ID = shared.GenerateID()
	}

	now := time.Now().UTC()
	stored.UpdatedAt = now

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrBackendUnavailable, err)
	}
	defer tx.Rollback()

	var current int64
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, "SELECT revision, created_at FROM playlists WHERE id = $1 FOR UPDATE", stored.ID).
		Scan(&current, &createdAt)
	switch {
	case err == sql.ErrNoRows:
		if stored.Revision != 0 {
			return nil, fmt.Errorf("%w: playlist %s revision %d against absent record", shared.ErrConflict, stored.ID, stored.Revision)
		}
		stored.Revision = 1
		stored.CreatedAt = now
	case err != nil:
		return nil, fmt.Errorf("failed to read playlist revision: %w", err)
	default:
		if stored.Revision != current {
			return nil, fmt.Errorf("%w: playlist %s revision %d, stored %d", shared.ErrConflict, stored.ID, stored.Revision, current)
		}
		stored.Revision = current + 1
		stored.CreatedAt = createdAt
	}

	if err := r.verifyTrackRefs(ctx, tx, stored.TrackIDs); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO playlists (id, name, description, owner_id, public, snapshot_id, revision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			owner_id = excluded.owner_id,
			public = excluded.public,
			snapshot_id = excluded.snapshot_id,
			revision = excluded.revision,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		stored.ID,
		stored.Name,
		stored.Description,
		stored.OwnerID,
		stored.Public,
		stored.SnapshotID,
		stored.Revision,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, mapExecErr(err, "upsert playlist")
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_tracks WHERE playlist_id = $1", stored.ID); err != nil {
		return nil, mapExecErr(err, "clear playlist tracks")
	}
	for position, trackID := range stored.TrackIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES ($1, $2, $3)",
			stored.ID, trackID, position)
		if err != nil {
			return nil, mapExecErr(err, "insert playlist track")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit playlist upsert: %v", shared.ErrBackendUnavailable, err)
	}

	return &stored, nil
}

// Delete removes a playlist and its track references.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = $1", id)
	if err != nil {
		return mapExecErr(err, "delete playlist")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}

	r.store.logger.Debug("deleted playlist", "id", id)
	return nil
}

// Query returns playlists matching the filter with their track lists.
func (r *PlaylistRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.Playlist, error) {
	page = page.Bounded()

	query := "SELECT " + playlistColumns + " FROM playlists WHERE TRUE"
	args := []any{}

	if len(filter.IDs) > 0 {
		query += " AND id IN (" + placeholders(len(args)+1, len(filter.IDs)) + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Name != "" {
		args = append(args, filter.Name)
		query += fmt.Sprintf(" AND name = $%d", len(args))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapExecErr(err, "query playlists")
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, playlist := range playlists {
		playlist.TrackIDs, err = r.trackIDs(ctx, playlist.ID)
		if err != nil {
			return nil, err
		}
	}

	return playlists, nil
}

// verifyTrackRefs confirms every referenced track exists in this backend.
func (r *PlaylistRepository) verifyTrackRefs(ctx context.Context, tx *sql.Tx, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	query := "SELECT COUNT(*) FROM tracks WHERE id IN (" + placeholders(1, len(trackIDs)) + ")"
	args := make([]any, len(trackIDs))
	for i, id := range trackIDs {
		args[i] = id
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("failed to verify track references: %w", err)
	}
	if count != len(trackIDs) {
		return fmt.Errorf("%w: playlist references %d unknown tracks", shared.ErrIntegrity, len(trackIDs)-count)
	}
	return nil
}

// trackIDs loads the ordered track references for a playlist.
func (r *PlaylistRepository) trackIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := r.store.db.QueryContext(ctx,
		"SELECT track_id FROM playlist_tracks WHERE playlist_id = $1 ORDER BY position ASC", playlistID)
	if err != nil {
		return nil, mapExecErr(err, "load playlist tracks")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var (
		playlist    models.Playlist
		description sql.NullString
		snapshotID  sql.NullString
	)

	err := row.Scan(&playlist.ID, &playlist.Name, &description, &playlist.OwnerID,
		&playlist.Public, &snapshotID, &playlist.Revision, &playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		return nil, err
	}

	playlist.Description = description.String
	playlist.SnapshotID = snapshotID.String
	return &playlist, nil
}
