package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"
)

type MockAccountUsecase struct {
	mock.Mock
}

func (m *MockAccountUsecase) AddAccount(ctx context.Context, userID string, req dto.AddAccountRequest) (*model.Credential, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockAccountUsecase) ListAccounts(ctx context.Context, userID string) ([]*model.Credential, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Credential), args.Error(1)
}

func (m *MockAccountUsecase) DeleteAccount(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockAccountUsecase) Platforms() []dto.PlatformInfo {
	return m.Called().Get(0).([]dto.PlatformInfo)
}

type MockOAuthUsecase struct {
	mock.Mock
}

func (m *MockOAuthUsecase) StartLink(ctx context.Context, userID string, p model.Platform) (dto.AuthURLResponse, error) {
	args := m.Called(ctx, userID, p)
	return args.Get(0).(dto.AuthURLResponse), args.Error(1)
}

func (m *MockOAuthUsecase) HandleCallback(ctx context.Context, p model.Platform, params usecase.CallbackParams) (*usecase.LinkResult, error) {
	args := m.Called(ctx, p, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.LinkResult), args.Error(1)
}

type MockPublishUsecase struct {
	mock.Mock
}

func (m *MockPublishUsecase) Publish(ctx context.Context, userID string, req dto.PublishRequest) ([]usecase.PostResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.PostResult), args.Error(1)
}

func (m *MockPublishUsecase) DispatchScheduled(ctx context.Context, batch int) (int, error) {
	args := m.Called(ctx, batch)
	return args.Int(0), args.Error(1)
}

func (m *MockPublishUsecase) GetMetrics(ctx context.Context, userID, postID string) (model.JSONMap, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.JSONMap), args.Error(1)
}

func (m *MockPublishUsecase) GetPost(ctx context.Context, userID, postID string) (*model.Post, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPublishUsecase) ListPosts(ctx context.Context, userID string, limit, offset int) ([]*model.Post, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Post), args.Error(1)
}

func (m *MockPublishUsecase) WithBroadcaster(fn func(*model.Post)) usecase.IPublishUsecase {
	return m
}
