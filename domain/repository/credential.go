package repository

import (
	"context"

	"social-publisher/domain/model"
)

// ICredential stores linked social accounts.
type ICredential interface {
	// Upsert inserts the credential or updates the row with the same
	// (user, platform, account id), falling back to (user, platform, username)
	// when the account id is unknown. It returns the stored row.
	Upsert(ctx context.Context, c *model.Credential) (*model.Credential, error)
	// Get returns the active credential for (user, platform) or model.ErrNotFound.
	Get(ctx context.Context, userID string, platform model.Platform) (*model.Credential, error)
	GetByID(ctx context.Context, userID, id string) (*model.Credential, error)
	List(ctx context.Context, userID string) ([]*model.Credential, error)
	Delete(ctx context.Context, userID, id string) error
	UpdateTokens(ctx context.Context, id string, tokens model.TokenBundle) error
	Touch(ctx context.Context, id string) error
}
