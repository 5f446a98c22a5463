package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

type IPost interface {
	Create(ctx context.Context, p *model.Post) error
	// Update persists status, result fields, metrics and error of the post.
	Update(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, userID, id string) (*model.Post, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Post, error)
	// ListDueScheduled returns SCHEDULED posts whose time has come, oldest first.
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error)
	// ClaimScheduled moves a SCHEDULED post to PENDING. It returns false when
	// another worker already claimed it.
	ClaimScheduled(ctx context.Context, id string) (bool, error)
	UpdateMetrics(ctx context.Context, id string, metrics model.JSONMap, at time.Time) error
}

// IPostAudit is an append-only log of publish attempts.
type IPostAudit interface {
	Record(ctx context.Context, entry model.PostAudit) error
}
