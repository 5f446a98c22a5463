package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IUser is the read side of the user store owned by the auth service.
type IUser interface {
	GetById(ctx context.Context, id string) (model.User, error)
	GetByUserName(ctx context.Context, userName string) (model.User, error)
}
