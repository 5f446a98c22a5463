package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/platform"
)

type oauthFixture struct {
	creds *MockCredentialRepository
	yt    *MockAdapter
	tt    *MockAdapter
	store *cache.MemoryStateStore
	uc    *oauthUsecase
	now   time.Time
}

func newOAuthFixture() *oauthFixture {
	f := &oauthFixture{
		creds: new(MockCredentialRepository),
		yt:    newMockAdapter(model.PlatformYouTube),
		tt:    newMockAdapter(model.PlatformTikTok),
		store: cache.NewMemoryStateStore(),
		now:   fixedNow,
	}
	f.uc = NewOAuthUsecase(platform.NewRegistry(f.yt, f.tt), f.store, f.creds, 10*time.Minute, 5*time.Second).(*oauthUsecase)
	f.uc.now = func() time.Time { return f.now }
	return f
}

func stateFromURL(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func linkError(t *testing.T, err error) *LinkError {
	t.Helper()
	var le *LinkError
	require.True(t, errors.As(err, &le), "expected *LinkError, got %v", err)
	return le
}

func TestStartLink(t *testing.T) {
	f := newOAuthFixture()

	res, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformYouTube)

	require.NoError(t, err)
	assert.Equal(t, model.PlatformYouTube, res.Platform)
	assert.True(t, strings.HasPrefix(res.State, "user-1:youtube:"))
	assert.Equal(t, res.State, stateFromURL(t, res.AuthURL))
	assert.Equal(t, fixedNow.Add(10*time.Minute), res.ExpiresAt)
	assert.Equal(t, []string{"scope-a"}, res.Scopes)
	assert.Equal(t, 1, f.store.Len())
}

func TestStartLink_Unconfigured(t *testing.T) {
	f := newOAuthFixture()
	f.tt.configured = false

	_, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformTikTok)

	assert.ErrorIs(t, err, model.ErrNotSupported)
	assert.Equal(t, 0, f.store.Len())
}

func TestHandleCallback_LinksOnceAndRejectsReplay(t *testing.T) {
	f := newOAuthFixture()
	start, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformYouTube)
	require.NoError(t, err)

	tokens := model.TokenBundle{AccessToken: "access-1", RefreshToken: "refresh-1"}
	f.yt.On("ExchangeCode", mock.Anything, "code-1").Return(tokens, nil).Once()
	f.yt.On("UserInfo", mock.Anything, "access-1").
		Return(model.Identity{AccountID: "UC123", Username: "creator", DisplayName: "Creator"}, nil).Once()
	f.creds.On("Upsert", mock.Anything, mock.MatchedBy(func(c *model.Credential) bool {
		return c.UserID == "user-1" && c.LinkKey() == "id:UC123" && c.AccessToken == "access-1"
	})).Return(&model.Credential{ID: "cred-1", UserID: "user-1", Platform: model.PlatformYouTube, Username: "creator"}, nil).Once()

	res, err := f.uc.HandleCallback(context.Background(), model.PlatformYouTube, CallbackParams{Code: "code-1", State: start.State})
	require.NoError(t, err)
	assert.Equal(t, model.LinkStateLinked, res.State)
	assert.Equal(t, "cred-1", res.Credential.ID)

	_, err = f.uc.HandleCallback(context.Background(), model.PlatformYouTube, CallbackParams{Code: "code-1", State: start.State})
	le := linkError(t, err)
	assert.Equal(t, model.LinkStateInvalidState, le.State)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	f.yt.AssertExpectations(t)
	f.creds.AssertExpectations(t)
}

func TestHandleCallback_ConcurrentReplayHasOneWinner(t *testing.T) {
	f := newOAuthFixture()
	start, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformYouTube)
	require.NoError(t, err)

	f.yt.On("ExchangeCode", mock.Anything, "code-1").Return(model.TokenBundle{AccessToken: "access-1"}, nil)
	f.yt.On("UserInfo", mock.Anything, "access-1").Return(model.Identity{AccountID: "UC123", Username: "creator"}, nil)
	f.creds.On("Upsert", mock.Anything, mock.Anything).Return(&model.Credential{ID: "cred-1"}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	linked, invalid := 0, 0
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.HandleCallback(context.Background(), model.PlatformYouTube, CallbackParams{Code: "code-1", State: start.State})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				linked++
			} else if errors.Is(err, model.ErrInvalidState) {
				invalid++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, linked)
	assert.Equal(t, 1, invalid)
	f.creds.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestHandleCallback_Denied(t *testing.T) {
	f := newOAuthFixture()
	start, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformYouTube)
	require.NoError(t, err)

	_, err = f.uc.HandleCallback(context.Background(), model.PlatformYouTube, CallbackParams{
		State: start.State, Error: "access_denied", ErrorDescription: "user cancelled",
	})

	le := linkError(t, err)
	assert.Equal(t, model.LinkStateDenied, le.State)
	assert.Equal(t, StepAuthorize, le.Step)
	assert.ErrorIs(t, err, model.ErrDenied)
	assert.Contains(t, err.Error(), "access_denied: user cancelled")
	assert.Equal(t, 0, f.store.Len())
	f.yt.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestHandleCallback_RejectsBadState(t *testing.T) {
	f := newOAuthFixture()
	start, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformTikTok)
	require.NoError(t, err)

	tests := []struct {
		name  string
		route model.Platform
		state string
	}{
		{"empty", model.PlatformYouTube, ""},
		{"two parts", model.PlatformYouTube, "user-1:youtube"},
		{"bad nonce", model.PlatformYouTube, "user-1:youtube:not-a-uuid"},
		{"unknown token", model.PlatformYouTube, "user-1:youtube:6f1c1d3e-8a52-4c1b-9b1e-3f1f2b7d9a10"},
		{"other platform route", model.PlatformYouTube, start.State},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.HandleCallback(context.Background(), tt.route, CallbackParams{Code: "c", State: tt.state})

			le := linkError(t, err)
			assert.Equal(t, model.LinkStateInvalidState, le.State)
			assert.Equal(t, StepState, le.Step)
			assert.ErrorIs(t, err, model.ErrInvalidState)
		})
	}
	// the mismatched route must not burn the state
	assert.Equal(t, 1, f.store.Len())
	f.yt.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestHandleCallback_ExpiredState(t *testing.T) {
	f := newOAuthFixture()
	start, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformYouTube)
	require.NoError(t, err)
	f.now = fixedNow.Add(11 * time.Minute)

	_, err = f.uc.HandleCallback(context.Background(), model.PlatformYouTube, CallbackParams{Code: "c", State: start.State})

	le := linkError(t, err)
	assert.Equal(t, model.LinkStateExpired, le.State)
	assert.ErrorIs(t, err, model.ErrStateExpired)
	f.yt.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
}

func TestHandleCallback_ReportsFailingStep(t *testing.T) {
	exchangeErr := model.NewError(model.ErrAuthExchange, model.PlatformYouTube, "exchange_code", "HTTP 400: invalid_grant")
	infoErr := model.NewError(model.ErrUpstream, model.PlatformYouTube, "user_info", "HTTP 500")

	tests := []struct {
		name  string
		setup func(f *oauthFixture)
		step  string
		state model.LinkState
		kind  error
	}{
		{
			name: "exchange",
			setup: func(f *oauthFixture) {
				f.yt.On("ExchangeCode", mock.Anything, "code-1").Return(model.TokenBundle{}, exchangeErr)
			},
			step: StepExchange, state: model.LinkStateAwaitingCallback, kind: model.ErrAuthExchange,
		},
		{
			name: "user info",
			setup: func(f *oauthFixture) {
				f.yt.On("ExchangeCode", mock.Anything, "code-1").Return(model.TokenBundle{AccessToken: "a"}, nil)
				f.yt.On("UserInfo", mock.Anything, "a").Return(model.Identity{}, infoErr)
			},
			step: StepUserInfo, state: model.LinkStateExchanged, kind: model.ErrUpstream,
		},
		{
			name: "store",
			setup: func(f *oauthFixture) {
				f.yt.On("ExchangeCode", mock.Anything, "code-1").Return(model.TokenBundle{AccessToken: "a"}, nil)
				f.yt.On("UserInfo", mock.Anything, "a").Return(model.Identity{AccountID: "UC1", Username: "u"}, nil)
				f.creds.On("Upsert", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
			},
			step: StepStore, state: model.LinkStateExchanged,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOAuthFixture()
			start, err := f.uc.StartLink(context.Background(), "user-1", model.PlatformYouTube)
			require.NoError(t, err)
			tt.setup(f)

			_, err = f.uc.HandleCallback(context.Background(), model.PlatformYouTube, CallbackParams{Code: "code-1", State: start.State})

			le := linkError(t, err)
			assert.Equal(t, tt.step, le.Step)
			assert.Equal(t, tt.state, le.State)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			}
			if tt.step != StepStore {
				f.creds.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
			}
		})
	}
}
