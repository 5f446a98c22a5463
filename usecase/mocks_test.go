package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/platform"
)

type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Upsert(ctx context.Context, c *model.Credential) (*model.Credential, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialRepository) Get(ctx context.Context, userID string, p model.Platform) (*model.Credential, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialRepository) GetByID(ctx context.Context, userID, id string) (*model.Credential, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialRepository) List(ctx context.Context, userID string) ([]*model.Credential, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Credential), args.Error(1)
}

func (m *MockCredentialRepository) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockCredentialRepository) UpdateTokens(ctx context.Context, id string, tokens model.TokenBundle) error {
	return m.Called(ctx, id, tokens).Error(0)
}

func (m *MockCredentialRepository) Touch(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, p *model.Post) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPostRepository) Update(ctx context.Context, p *model.Post) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, userID, id string) (*model.Post, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Post, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Post), args.Error(1)
}

func (m *MockPostRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*model.Post, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Post), args.Error(1)
}

func (m *MockPostRepository) ClaimScheduled(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepository) UpdateMetrics(ctx context.Context, id string, metrics model.JSONMap, at time.Time) error {
	return m.Called(ctx, id, metrics, at).Error(0)
}

type MockVideoRepository struct {
	mock.Mock
}

func (m *MockVideoRepository) GetByRef(ctx context.Context, userID, ref string) (*model.Video, error) {
	args := m.Called(ctx, userID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Video), args.Error(1)
}

type MockVideoStorage struct {
	mock.Mock
}

func (m *MockVideoStorage) Resolve(ctx context.Context, location string) (string, error) {
	args := m.Called(ctx, location)
	return args.String(0), args.Error(1)
}

type MockPostAudit struct {
	mock.Mock
}

func (m *MockPostAudit) Record(ctx context.Context, entry model.PostAudit) error {
	return m.Called(ctx, entry).Error(0)
}

// MockAdapter mocks everything except Platform, which the registry calls on construction.
type MockAdapter struct {
	mock.Mock
	platform   model.Platform
	configured bool
}

func newMockAdapter(p model.Platform) *MockAdapter {
	return &MockAdapter{platform: p, configured: true}
}

func (m *MockAdapter) Platform() model.Platform { return m.platform }

func (m *MockAdapter) Configured() bool { return m.configured }

func (m *MockAdapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{Publish: m.platform == model.PlatformYouTube, Refresh: true, Metrics: true, Scopes: []string{"scope-a"}}
}

func (m *MockAdapter) AuthURL(state string) string {
	return "https://auth.example.com/" + string(m.platform) + "?state=" + state
}

func (m *MockAdapter) ExchangeCode(ctx context.Context, code string) (model.TokenBundle, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(model.TokenBundle), args.Error(1)
}

func (m *MockAdapter) Refresh(ctx context.Context, refreshToken string) (model.TokenBundle, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(model.TokenBundle), args.Error(1)
}

func (m *MockAdapter) UserInfo(ctx context.Context, accessToken string) (model.Identity, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *MockAdapter) PublishVideo(ctx context.Context, accessToken string, req platform.PublishRequest) platform.PublishResult {
	return m.Called(ctx, accessToken, req).Get(0).(platform.PublishResult)
}

func (m *MockAdapter) Metrics(ctx context.Context, accessToken, postID string) model.JSONMap {
	args := m.Called(ctx, accessToken, postID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(model.JSONMap)
}

func (m *MockAdapter) FetchMetrics(ctx context.Context, accessToken, postID string) (model.JSONMap, error) {
	args := m.Called(ctx, accessToken, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.JSONMap), args.Error(1)
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
