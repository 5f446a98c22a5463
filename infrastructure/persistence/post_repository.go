package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

const postColumns = `id, user_id, credential_id, video_id, video_ref, platform, title, description, tags,
	platform_settings, status, platform_post_id, post_url, metrics, error_message, retry_count, max_retries,
	scheduled_for, posted_at, last_metrics_update, created_at, updated_at`

func scanPost(row rowScanner) (*model.Post, error) {
	p := &model.Post{}
	var platform, status string
	err := row.Scan(&p.ID, &p.UserID, &p.CredentialID, &p.VideoID, &p.VideoRef, &platform, &p.Title, &p.Description, &p.Tags,
		&p.PlatformSettings, &status, &p.PlatformPostID, &p.PostURL, &p.Metrics, &p.ErrorMessage, &p.RetryCount, &p.MaxRetries,
		&p.ScheduledFor, &p.PostedAt, &p.LastMetricsUpdate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Platform = model.Platform(platform)
	p.Status = model.PostStatus(status)
	return p, nil
}

func preparePost(p *model.Post, now time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

func scanPosts(rows *sql.Rows) ([]*model.Post, error) {
	defer rows.Close()
	out := []*model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type PostRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostRepository(db *sql.DB) repository.IPost {
	return &PostRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostRepository) Create(ctx context.Context, p *model.Post) error {
	preparePost(p, r.now())
	_, err := r.db.ExecContext(ctx, `INSERT INTO social_posts (id, user_id, credential_id, video_id, video_ref, platform,
			title, description, tags, platform_settings, status, metrics, retry_count, max_retries, scheduled_for,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.UserID, p.CredentialID, p.VideoID, p.VideoRef, string(p.Platform), p.Title, p.Description, p.Tags,
		p.PlatformSettings, string(p.Status), p.Metrics, p.RetryCount, p.MaxRetries, p.ScheduledFor, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostRepository) Update(ctx context.Context, p *model.Post) error {
	p.UpdatedAt = r.now()
	res, err := r.db.ExecContext(ctx, `UPDATE social_posts SET status=$2, platform_post_id=$3, post_url=$4, metrics=$5,
			error_message=$6, retry_count=$7, posted_at=$8, updated_at=$9
		WHERE id=$1`,
		p.ID, string(p.Status), p.PlatformPostID, p.PostURL, p.Metrics, p.ErrorMessage, p.RetryCount, p.PostedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	return requireAffected(res, "update_post", "post not found")
}

func (r *PostRepository) GetByID(ctx context.Context, userID, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM social_posts WHERE id=$1 AND user_id=$2`, id, userID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewError(model.ErrNotFound, "", "get_post", "post not found")
	}
	return p, err
}

func (r *PostRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM social_posts WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *PostRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM social_posts
		WHERE status='scheduled' AND scheduled_for <= $1 ORDER BY scheduled_for ASC LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (r *PostRepository) ClaimScheduled(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE social_posts SET status='pending', updated_at=$2 WHERE id=$1 AND status='scheduled'`, id, r.now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostRepository) UpdateMetrics(ctx context.Context, id string, metrics model.JSONMap, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE social_posts SET metrics=$2, last_metrics_update=$3, updated_at=$3 WHERE id=$1`, id, metrics, at)
	return err
}
