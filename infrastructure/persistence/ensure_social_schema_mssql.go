package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureSocialSchemaMSSQL creates the social tables on SQL Server when missing.
// PostgreSQL uses the goose migrations instead.
func EnsureSocialSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	statements := []struct {
		name string
		ddl  string
	}{
		{"social_credentials", `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.social_credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[social_credentials] (
        id NVARCHAR(64) NOT NULL PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(32) NOT NULL,
        platform_account_id NVARCHAR(255) NULL,
        username NVARCHAR(255) NOT NULL,
        email NVARCHAR(255) NULL,
        display_name NVARCHAR(255) NOT NULL DEFAULT '',
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NULL,
        token_expires_at DATETIME2 NULL,
        scopes NVARCHAR(1024) NOT NULL DEFAULT '',
        platform_metadata NVARCHAR(MAX) NOT NULL DEFAULT '{}',
        is_active BIT NOT NULL DEFAULT 1,
        is_verified BIT NOT NULL DEFAULT 0,
        account_status NVARCHAR(32) NOT NULL DEFAULT 'active',
        link_key NVARCHAR(300) NOT NULL,
        connected_at DATETIME2 NOT NULL,
        last_used_at DATETIME2 NULL,
        last_refreshed_at DATETIME2 NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_social_credentials_link ON dbo.[social_credentials](user_id, platform, link_key);
END`},
		{"social_posts", `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.social_posts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[social_posts] (
        id NVARCHAR(64) NOT NULL PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        credential_id NVARCHAR(64) NOT NULL REFERENCES dbo.[social_credentials](id) ON DELETE CASCADE,
        video_id NVARCHAR(128) NOT NULL,
        video_ref NVARCHAR(128) NOT NULL DEFAULT '',
        platform NVARCHAR(32) NOT NULL,
        title NVARCHAR(255) NOT NULL,
        description NVARCHAR(MAX) NOT NULL DEFAULT '',
        tags NVARCHAR(MAX) NOT NULL DEFAULT '[]',
        platform_settings NVARCHAR(MAX) NOT NULL DEFAULT '{}',
        status NVARCHAR(32) NOT NULL,
        platform_post_id NVARCHAR(255) NULL,
        post_url NVARCHAR(1024) NULL,
        metrics NVARCHAR(MAX) NOT NULL DEFAULT '{}',
        error_message NVARCHAR(MAX) NULL,
        retry_count INT NOT NULL DEFAULT 0,
        max_retries INT NOT NULL DEFAULT 3,
        scheduled_for DATETIME2 NULL,
        posted_at DATETIME2 NULL,
        last_metrics_update DATETIME2 NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_social_posts_user_created ON dbo.[social_posts](user_id, created_at DESC);
    CREATE INDEX IX_social_posts_status_scheduled ON dbo.[social_posts](status, scheduled_for);
END`},
	}
	for _, s := range statements {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("create %s (mssql): %w", s.name, err)
		}
	}
	return nil
}
