package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

const credentialColumns = `id, user_id, platform, platform_account_id, username, email, display_name,
	access_token, refresh_token, token_expires_at, scopes, platform_metadata, is_active, is_verified,
	account_status, connected_at, last_used_at, last_refreshed_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCredential(row rowScanner) (*model.Credential, error) {
	c := &model.Credential{}
	var platform string
	err := row.Scan(&c.ID, &c.UserID, &platform, &c.PlatformAccountID, &c.Username, &c.Email, &c.DisplayName,
		&c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.Scopes, &c.Metadata, &c.IsActive, &c.IsVerified,
		&c.AccountStatus, &c.ConnectedAt, &c.LastUsedAt, &c.LastRefreshedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Platform = model.Platform(platform)
	return c, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// prepareCredential fills ids and timestamps before a write.
func prepareCredential(c *model.Credential, now time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ConnectedAt.IsZero() {
		c.ConnectedAt = now
	}
	if c.AccountStatus == "" {
		c.AccountStatus = model.AccountStatusActive
	}
	if c.Metadata == nil {
		c.Metadata = model.JSONMap{}
	}
	c.IsActive = true
	c.UpdatedAt = now
}

type CredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCredentialRepository(db *sql.DB) repository.ICredential {
	return &CredentialRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *CredentialRepository) Upsert(ctx context.Context, c *model.Credential) (*model.Credential, error) {
	prepareCredential(c, r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Serializes links per (user, platform) so only one row ends up active.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		c.UserID, string(c.Platform)); err != nil {
		return nil, fmt.Errorf("lock credentials: %w", err)
	}

	q := `INSERT INTO social_credentials (id, user_id, platform, platform_account_id, username, email, display_name,
			access_token, refresh_token, token_expires_at, scopes, platform_metadata, is_active, is_verified,
			account_status, link_key, connected_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,TRUE,$13,$14,$15,$16,$17)
		ON CONFLICT (user_id, platform, link_key) DO UPDATE SET
			platform_account_id=EXCLUDED.platform_account_id,
			username=EXCLUDED.username,
			email=COALESCE(EXCLUDED.email, social_credentials.email),
			display_name=EXCLUDED.display_name,
			access_token=EXCLUDED.access_token,
			refresh_token=COALESCE(EXCLUDED.refresh_token, social_credentials.refresh_token),
			token_expires_at=EXCLUDED.token_expires_at,
			scopes=EXCLUDED.scopes,
			platform_metadata=EXCLUDED.platform_metadata,
			is_active=TRUE,
			is_verified=EXCLUDED.is_verified,
			account_status=EXCLUDED.account_status,
			updated_at=EXCLUDED.updated_at
		RETURNING ` + credentialColumns
	row := tx.QueryRowContext(ctx, q,
		c.ID, c.UserID, string(c.Platform), c.PlatformAccountID, c.Username, c.Email, c.DisplayName,
		c.AccessToken, c.RefreshToken, c.ExpiresAt, c.Scopes, c.Metadata, c.IsVerified,
		c.AccountStatus, c.LinkKey(), c.ConnectedAt, c.UpdatedAt)
	stored, err := scanCredential(row)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", c.Platform).Error("upsert credential failed")
		return nil, fmt.Errorf("upsert credential: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE social_credentials SET is_active=FALSE, updated_at=$4 WHERE user_id=$1 AND platform=$2 AND id<>$3 AND is_active`,
		c.UserID, string(c.Platform), stored.ID, c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("deactivate previous credentials: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *CredentialRepository) Get(ctx context.Context, userID string, platform model.Platform) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM social_credentials
		WHERE user_id=$1 AND platform=$2 AND is_active ORDER BY updated_at DESC LIMIT 1`, userID, string(platform))
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, platform, "get_credential", "no credential")
	}
	return c, err
}

func (r *CredentialRepository) GetByID(ctx context.Context, userID, id string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM social_credentials WHERE id=$1 AND user_id=$2`, id, userID)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "", "get_credential", "account not found")
	}
	return c, err
}

func (r *CredentialRepository) List(ctx context.Context, userID string) ([]*model.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+credentialColumns+` FROM social_credentials
		WHERE user_id=$1 ORDER BY connected_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Credential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CredentialRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM social_credentials WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "delete_credential", "account not found")
}

func (r *CredentialRepository) UpdateTokens(ctx context.Context, id string, t model.TokenBundle) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx, `UPDATE social_credentials SET
			access_token=$2,
			refresh_token=COALESCE($3, refresh_token),
			token_expires_at=$4,
			scopes=COALESCE($5, scopes),
			last_refreshed_at=$6,
			updated_at=$6
		WHERE id=$1`,
		id, t.AccessToken, nullableString(t.RefreshToken), t.ExpiresAt, nullableString(t.Scopes), now)
	if err != nil {
		return err
	}
	return requireAffected(res, "update_tokens", "account not found")
}

func (r *CredentialRepository) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE social_credentials SET last_used_at=$2 WHERE id=$1`, id, r.now())
	return err
}

func requireAffected(res sql.Result, op, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NewError(model.ErrNotFound, "", op, msg)
	}
	return nil
}
