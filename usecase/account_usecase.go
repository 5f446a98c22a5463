package usecase

import (
	"context"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/platform"
	"social-publisher/infrastructure/logger"
)

const minAccessTokenLength = 10

type IAccountUsecase interface {
	AddAccount(ctx context.Context, userID string, req dto.AddAccountRequest) (*model.Credential, error)
	ListAccounts(ctx context.Context, userID string) ([]*model.Credential, error)
	DeleteAccount(ctx context.Context, userID, id string) error
	Platforms() []dto.PlatformInfo
}

type accountUsecase struct {
	credentials repository.ICredential
	registry    *platform.Registry
	now         func() time.Time
}

func NewAccountUsecase(credentials repository.ICredential, registry *platform.Registry) IAccountUsecase {
	return &accountUsecase{credentials: credentials, registry: registry, now: time.Now}
}

// AddAccount links an account from tokens the caller already holds. Linking the
// same account again updates the stored row.
func (u *accountUsecase) AddAccount(ctx context.Context, userID string, req dto.AddAccountRequest) (*model.Credential, error) {
	p, ok := model.ParsePlatform(req.Platform)
	if !ok {
		return nil, model.ValidationError("unsupported platform: " + req.Platform)
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, model.ValidationError("username is required")
	}
	if len(req.AccessToken) < minAccessTokenLength {
		return nil, model.ValidationError("access token is too short")
	}

	now := u.now().UTC()
	tokens := model.TokenBundle{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken}
	if req.ExpiresIn > 0 {
		exp := now.Add(time.Duration(req.ExpiresIn) * time.Second)
		tokens.ExpiresAt = &exp
	}
	identity := model.Identity{
		AccountID:   strings.TrimSpace(req.PlatformAccountID),
		Username:    username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Metadata:    req.Metadata,
	}
	cred := model.NewCredential(userID, p, tokens, identity, now)

	stored, err := u.credentials.Upsert(ctx, cred)
	if err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", p).Error("Error while storing credential")
		return nil, err
	}
	logger.GetLogger().WithField("platform", p).WithField("credential_id", stored.ID).Info("Account linked manually")
	return stored, nil
}

func (u *accountUsecase) ListAccounts(ctx context.Context, userID string) ([]*model.Credential, error) {
	return u.credentials.List(ctx, userID)
}

func (u *accountUsecase) DeleteAccount(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return model.ValidationError("account id is required")
	}
	return u.credentials.Delete(ctx, userID, id)
}

// Platforms lists every supported platform with what it can do.
func (u *accountUsecase) Platforms() []dto.PlatformInfo {
	adapters := u.registry.All()
	out := make([]dto.PlatformInfo, 0, len(adapters))
	for _, a := range adapters {
		caps := a.Capabilities()
		out = append(out, dto.PlatformInfo{
			Name:            a.Platform(),
			DisplayName:     a.Platform().DisplayName(),
			Scopes:          caps.Scopes,
			SupportsPublish: caps.Publish,
			SupportsRefresh: caps.Refresh,
			SupportsMetrics: caps.Metrics,
			Configured:      a.Configured(),
		})
	}
	return out
}
