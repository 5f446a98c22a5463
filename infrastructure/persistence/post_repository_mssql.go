package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

type PostRepositoryMSSQL struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostRepositoryMSSQL(db *sql.DB) repository.IPost {
	return &PostRepositoryMSSQL{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostRepositoryMSSQL) Create(ctx context.Context, p *model.Post) error {
	preparePost(p, r.now())
	_, err := r.db.ExecContext(ctx, `INSERT INTO dbo.[social_posts] (id, user_id, credential_id, video_id, video_ref, platform,
    title, description, tags, platform_settings, status, metrics, retry_count, max_retries, scheduled_for, created_at, updated_at)
VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13,@p14,@p15,@p16,@p17)`,
		p.ID, p.UserID, p.CredentialID, p.VideoID, p.VideoRef, string(p.Platform), p.Title, p.Description, p.Tags,
		p.PlatformSettings, string(p.Status), p.Metrics, p.RetryCount, p.MaxRetries, p.ScheduledFor, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostRepositoryMSSQL) Update(ctx context.Context, p *model.Post) error {
	p.UpdatedAt = r.now()
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[social_posts] SET status=@p2, platform_post_id=@p3, post_url=@p4, metrics=@p5,
    error_message=@p6, retry_count=@p7, posted_at=@p8, updated_at=@p9
WHERE id=@p1`,
		p.ID, string(p.Status), p.PlatformPostID, p.PostURL, p.Metrics, p.ErrorMessage, p.RetryCount, p.PostedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	return requireAffected(res, "update_post", "post not found")
}

func (r *PostRepositoryMSSQL) GetByID(ctx context.Context, userID, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM dbo.[social_posts] WHERE id=@p1 AND user_id=@p2`, id, userID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "", "get_post", "post not found")
	}
	return p, err
}

func (r *PostRepositoryMSSQL) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM dbo.[social_posts] WHERE user_id=@p1
ORDER BY created_at DESC OFFSET @p3 ROWS FETCH NEXT @p2 ROWS ONLY`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *PostRepositoryMSSQL) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT TOP (@p2) `+postColumns+` FROM dbo.[social_posts]
WHERE status='scheduled' AND scheduled_for <= @p1 ORDER BY scheduled_for ASC`, now, limit)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *PostRepositoryMSSQL) ClaimScheduled(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[social_posts] SET status='pending', updated_at=@p2 WHERE id=@p1 AND status='scheduled'`, id, r.now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostRepositoryMSSQL) UpdateMetrics(ctx context.Context, id string, metrics model.JSONMap, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[social_posts] SET metrics=@p2, last_metrics_update=@p3, updated_at=@p3 WHERE id=@p1`, id, metrics, at)
	return err
}
