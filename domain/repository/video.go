package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IVideo resolves video references against the video catalog.
type IVideo interface {
	// GetByRef looks a video up by id or task id, scoped to its owner.
	GetByRef(ctx context.Context, userID, ref string) (*model.Video, error)
}

// IVideoStorage turns a stored file location into a readable local path.
type IVideoStorage interface {
	Resolve(ctx context.Context, location string) (string, error)
}
