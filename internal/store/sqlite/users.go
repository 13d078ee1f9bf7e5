package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// UserRepository implements models.Repository[*models.UserAccount] on
// SQLite. User accounts are revisioned like playlists.
type UserRepository struct {
	store *Store
}

const userColumns = "id, display_name, email, plan, profile_url, image_url, followers, explicit_filter_enabled, explicit_filter_locked, credential_ref, revision, created_at, updated_at"

// Get retrieves a user account by ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.UserAccount, error) {
	query := "SELECT " + userColumns + " FROM user_accounts WHERE id = ?"
	user, err := scanUser(r.store.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// Upsert inserts or replaces a user account with a revision check.
func (r *UserRepository) Upsert(ctx context.Context, user *models.UserAccount) (*models.UserAccount, error) {
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	stored := *user
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
	err = tx.QueryRowContext(ctx, "SELECT revision, created_at FROM user_accounts WHERE id = ?", stored.ID).
		Scan(&current, &createdAt)
	switch {
	case err == sql.ErrNoRows:
		if stored.Revision != 0 {
			return nil, fmt.Errorf("%w: user %s revision %d against absent record", shared.ErrConflict, stored.ID, stored.Revision)
		}
		stored.Revision = 1
		stored.CreatedAt = now
	case err != nil:
		return nil, fmt.Errorf("failed to read user revision: %w", err)
	default:
		if stored.Revision != current {
			return nil, fmt.Errorf("%w: user %s revision %d, stored %d", shared.ErrConflict, stored.ID, stored.Revision, current)
		}
		stored.Revision = current + 1
		stored.CreatedAt = createdAt
	}

	query := `
		INSERT INTO user_accounts (id, display_name, email, plan, profile_url, image_url, followers, explicit_filter_enabled, explicit_filter_locked, credential_ref, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			plan = excluded.plan,
			profile_url = excluded.profile_url,
			image_url = excluded.image_url,
			followers = excluded.followers,
			explicit_filter_enabled = excluded.explicit_filter_enabled,
			explicit_filter_locked = excluded.explicit_filter_locked,
			credential_ref = excluded.credential_ref,
			revision = excluded.revision,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		stored.ID,
		stored.DisplayName,
		stored.Email,
		stored.Plan,
		stored.ProfileURL,
		stored.ImageURL,
		stored.Followers,
		stored.ExplicitFilterEnabled,
		stored.ExplicitFilterLocked,
		stored.CredentialRef,
		stored.Revision,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, mapExecErr(err, "upsert user")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit user upsert: %v", shared.ErrBackendUnavailable, err)
	}

	return &stored, nil
}

// Delete removes a user account.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, "DELETE FROM user_accounts WHERE id = ?", id)
	if err != nil {
		return mapExecErr(err, "delete user")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}

	r.store.logger.Debug("deleted user", "id", id)
	return nil
}

// Query returns user accounts matching the filter.
func (r *UserRepository) Query(ctx context.Context, filter models.Filter, page models.Page) ([]*models.UserAccount, error) {
	page = page.Bounded()

	query := "SELECT " + userColumns + " FROM user_accounts WHERE 1=1"
	args := []any{}

	if len(filter.IDs) > 0 {
		query += " AND id IN (" + placeholders(len(filter.IDs)) + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Email != "" {
		query += " AND email = ?"
		args = append(args, filter.Email)
	}

	query += " ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Offset)

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapExecErr(err, "query users")
	}
	defer rows.Close()

	var users []*models.UserAccount
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

func scanUser(row rowScanner) (*models.UserAccount, error) {
	var (
		user          models.UserAccount
		email         sql.NullString
		plan          sql.NullString
		profileURL    sql.NullString
		imageURL      sql.NullString
		credentialRef sql.NullString
	)

	err := row.Scan(&user.ID, &user.DisplayName, &email, &plan, &profileURL, &imageURL,
		&user.Followers, &user.ExplicitFilterEnabled, &user.ExplicitFilterLocked,
		&credentialRef, &user.Revision, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.Email = email.String
	user.Plan = plan.String
	user.ProfileURL = profileURL.String
	user.ImageURL = imageURL.String
	user.CredentialRef = credentialRef.String
	return &user, nil
}
