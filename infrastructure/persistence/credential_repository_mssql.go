package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

type CredentialRepositoryMSSQL struct {
	db  *sql.DB
	now func() time.Time
}

func NewCredentialRepositoryMSSQL(db *sql.DB) repository.ICredential {
	return &CredentialRepositoryMSSQL{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// isUniqueViolation reports SQL Server duplicate key errors (2601 index, 2627 constraint).
func isUniqueViolation(err error) bool {
	var e mssql.Error
	if errors.As(err, &e) {
		return e.Number == 2601 || e.Number == 2627
	}
	return false
}

func (r *CredentialRepositoryMSSQL) Upsert(ctx context.Context, c *model.Credential) (*model.Credential, error) {
	prepareCredential(c, r.now())
	stored, err := r.merge(ctx, c)
	if isUniqueViolation(err) {
		// A concurrent insert won the race; the row exists now, so update it.
		logger.GetLogger().WithField("platform", c.Platform).Warn("mssql: credential insert raced, retrying as update")
		stored, err = r.merge(ctx, c)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert credential (mssql): %w", err)
	}
	return stored, nil
}

func credentialLockResource(c *model.Credential) string {
	return "social_credentials:" + c.UserID + ":" + string(c.Platform)
}

func (r *CredentialRepositoryMSSQL) merge(ctx context.Context, c *model.Credential) (*model.Credential, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DECLARE @res INT;
EXEC @res = sp_getapplock @Resource=@p1, @LockMode='Exclusive', @LockOwner='Transaction', @LockTimeout=10000;
IF @res < 0 THROW 51000, 'credential lock not granted', 1;`,
		credentialLockResource(c)); err != nil {
		return nil, err
	}

	q := `MERGE dbo.[social_credentials] WITH (HOLDLOCK) AS target
USING (VALUES (@p2, @p3, @p15)) AS src(user_id, platform, link_key)
ON target.user_id = src.user_id AND target.platform = src.platform AND target.link_key = src.link_key
WHEN MATCHED THEN UPDATE SET
    platform_account_id=@p4,
    username=@p5,
    email=COALESCE(@p6, target.email),
    display_name=@p7,
    access_token=@p8,
    refresh_token=COALESCE(@p9, target.refresh_token),
    token_expires_at=@p10,
    scopes=@p11,
    platform_metadata=@p12,
    is_active=1,
    is_verified=@p13,
    account_status=@p14,
    updated_at=@p17
WHEN NOT MATCHED THEN
    INSERT (id, user_id, platform, platform_account_id, username, email, display_name, access_token, refresh_token,
        token_expires_at, scopes, platform_metadata, is_active, is_verified, account_status, link_key, connected_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,1,@p13,@p14,@p15,@p16,@p17)
OUTPUT inserted.id, inserted.user_id, inserted.platform, inserted.platform_account_id, inserted.username, inserted.email,
    inserted.display_name, inserted.access_token, inserted.refresh_token, inserted.token_expires_at, inserted.scopes,
    inserted.platform_metadata, inserted.is_active, inserted.is_verified, inserted.account_status, inserted.connected_at,
    inserted.last_used_at, inserted.last_refreshed_at, inserted.updated_at;`
	row := tx.QueryRowContext(ctx, q,
		c.ID, c.UserID, string(c.Platform), c.PlatformAccountID, c.Username, c.Email, c.DisplayName,
		c.AccessToken, c.RefreshToken, c.ExpiresAt, c.Scopes, c.Metadata, c.IsVerified, c.AccountStatus,
		c.LinkKey(), c.ConnectedAt, c.UpdatedAt)
	stored, err := scanCredential(row)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE dbo.[social_credentials] SET is_active=0, updated_at=@p4 WHERE user_id=@p1 AND platform=@p2 AND id<>@p3 AND is_active=1`,
		c.UserID, string(c.Platform), stored.ID, c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *CredentialRepositoryMSSQL) Get(ctx context.Context, userID string, platform model.Platform) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT TOP 1 `+credentialColumns+` FROM dbo.[social_credentials]
		WHERE user_id=@p1 AND platform=@p2 AND is_active=1 ORDER BY updated_at DESC`, userID, string(platform))
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, platform, "get_credential", "no credential")
	}
	return c, err
}

func (r *CredentialRepositoryMSSQL) GetByID(ctx context.Context, userID, id string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM dbo.[social_credentials] WHERE id=@p1 AND user_id=@p2`, id, userID)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "", "get_credential", "account not found")
	}
	return c, err
}

func (r *CredentialRepositoryMSSQL) List(ctx context.Context, userID string) ([]*model.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+credentialColumns+` FROM dbo.[social_credentials]
		WHERE user_id=@p1 ORDER BY connected_at DESC`, userID)
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

func (r *CredentialRepositoryMSSQL) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[social_credentials] WHERE id=@p1 AND user_id=@p2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "delete_credential", "account not found")
}

func (r *CredentialRepositoryMSSQL) UpdateTokens(ctx context.Context, id string, t model.TokenBundle) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[social_credentials] SET
    access_token=@p2,
    refresh_token=COALESCE(@p3, refresh_token),
    token_expires_at=@p4,
    scopes=COALESCE(@p5, scopes),
    last_refreshed_at=@p6,
    updated_at=@p6
WHERE id=@p1`, id, t.AccessToken, nullableString(t.RefreshToken), t.ExpiresAt, nullableString(t.Scopes), r.now())
	if err != nil {
		return err
	}
	return requireAffected(res, "update_tokens", "account not found")
}

func (r *CredentialRepositoryMSSQL) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[social_credentials] SET last_used_at=@p2 WHERE id=@p1`, id, r.now())
	return err
}
