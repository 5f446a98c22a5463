package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IStateStore keeps pending OAuth states. Consume is atomic: of two concurrent
// callers with the same token at most one gets the state.
type IStateStore interface {
	Save(ctx context.Context, token string, state model.OAuthState, ttl time.Duration) error
	// Consume removes and returns the state. It returns model.ErrInvalidState
	// when the token is unknown or already used.
	Consume(ctx context.Context, token string) (model.OAuthState, error)
}
