package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"
)

func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doRequest(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ValidationError("bad"), http.StatusBadRequest},
		{model.NewError(model.ErrNotFound, "", "", "x"), http.StatusNotFound},
		{model.NewError(model.ErrInvalidState, "", "", "x"), http.StatusBadRequest},
		{model.NewError(model.ErrStateExpired, "", "", "x"), http.StatusBadRequest},
		{model.NewError(model.ErrDenied, "", "", "x"), http.StatusBadRequest},
		{model.NewError(model.ErrNotSupported, "", "", "x"), http.StatusBadRequest},
		{model.NewError(model.ErrAuthExchange, "", "", "x"), http.StatusBadGateway},
		{model.NewError(model.ErrUpstream, "", "", "x"), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestSocialPostHandler_Publish(t *testing.T) {
	uc := new(MockPublishUsecase)
	h := NewSocialPostHandler(uc)
	r := newRouter()
	r.POST("/social/post", withUser("user-1"), h.Publish)

	uc.On("Publish", mock.Anything, "user-1", mock.MatchedBy(func(req dto.PublishRequest) bool {
		return req.VideoID == "v1" && len(req.Platforms) == 2
	})).Return([]usecase.PostResult{
		{PostID: "p1", Platform: "youtube", Status: model.PostStatusPosted, PlatformPostID: "yt-1"},
		{Platform: "linkedin", Status: model.PostStatusFailed, Error: "no credential"},
	}, nil)

	w := doRequest(r, http.MethodPost, "/social/post", `{"video_id":"v1","platforms":["youtube","linkedin"],"title":"Launch"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		VideoID string               `json:"video_id"`
		Results []usecase.PostResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "v1", body.VideoID)
	require.Len(t, body.Results, 2)
	assert.Equal(t, model.PostStatusPosted, body.Results[0].Status)
	assert.Equal(t, "no credential", body.Results[1].Error)
}

func TestSocialPostHandler_PublishValidation(t *testing.T) {
	uc := new(MockPublishUsecase)
	h := NewSocialPostHandler(uc)
	r := newRouter()
	r.POST("/social/post", withUser("user-1"), h.Publish)

	uc.On("Publish", mock.Anything, "user-1", mock.Anything).
		Return(nil, model.ValidationError("duplicate platform: youtube"))

	w := doRequest(r, http.MethodPost, "/social/post", `{"video_id":"v1","platforms":["youtube","youtube"],"title":"t"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate platform")

	w = doRequest(r, http.MethodPost, "/social/post", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSocialPostHandler_RequiresUser(t *testing.T) {
	h := NewSocialPostHandler(new(MockPublishUsecase))
	r := newRouter()
	r.GET("/social/posts", h.ListPosts)

	w := doRequest(r, http.MethodGet, "/social/posts", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSocialPostHandler_MetricsAndPost(t *testing.T) {
	uc := new(MockPublishUsecase)
	h := NewSocialPostHandler(uc)
	r := newRouter()
	r.GET("/social/posts/:id", withUser("user-1"), h.GetPost)
	r.GET("/social/posts/:id/metrics", withUser("user-1"), h.GetMetrics)

	uc.On("GetMetrics", mock.Anything, "user-1", "p1").
		Return(model.JSONMap{"views": 5, "status": "posted", "platform": "youtube"}, nil)
	uc.On("GetPost", mock.Anything, "user-1", "missing").
		Return(nil, model.NewError(model.ErrNotFound, "", "get_post", "post not found"))

	w := doRequest(r, http.MethodGet, "/social/posts/p1/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var metrics map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Equal(t, float64(5), metrics["views"])
	assert.Equal(t, "posted", metrics["status"])

	w = doRequest(r, http.MethodGet, "/social/posts/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSocialPostHandler_ListPostsPaging(t *testing.T) {
	uc := new(MockPublishUsecase)
	h := NewSocialPostHandler(uc)
	r := newRouter()
	r.GET("/social/posts", withUser("user-1"), h.ListPosts)

	uc.On("ListPosts", mock.Anything, "user-1", 5, 10).Return(nil, nil)

	w := doRequest(r, http.MethodGet, "/social/posts?limit=5&offset=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts":[]}`, w.Body.String())
}

func TestSocialAccountHandler(t *testing.T) {
	uc := new(MockAccountUsecase)
	h := NewSocialAccountHandler(uc)
	r := newRouter()
	api := r.Group("/social", withUser("user-1"))
	api.POST("/accounts/add", h.AddAccount)
	api.GET("/accounts", h.ListAccounts)
	api.DELETE("/accounts/:id", h.DeleteAccount)
	r.GET("/social/platforms", h.Platforms)

	acct := "UC1"
	uc.On("AddAccount", mock.Anything, "user-1", mock.MatchedBy(func(req dto.AddAccountRequest) bool {
		return req.Platform == "youtube" && req.Username == "creator"
	})).Return(&model.Credential{ID: "cred-1", Platform: model.PlatformYouTube, Username: "creator", PlatformAccountID: &acct, AccessToken: "secret-token"}, nil)
	uc.On("ListAccounts", mock.Anything, "user-1").Return([]*model.Credential{{ID: "cred-1", Platform: model.PlatformYouTube}}, nil)
	uc.On("DeleteAccount", mock.Anything, "user-1", "cred-1").Return(nil)
	uc.On("DeleteAccount", mock.Anything, "user-1", "nope").Return(model.NewError(model.ErrNotFound, "", "delete", "account not found"))
	uc.On("Platforms").Return([]dto.PlatformInfo{{Name: model.PlatformYouTube, DisplayName: "YouTube", SupportsPublish: true}})

	w := doRequest(r, http.MethodPost, "/social/accounts/add", `{"platform":"youtube","username":"creator","access_token":"0123456789"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"platform_account_id":"UC1"`)
	assert.NotContains(t, w.Body.String(), "secret-token")

	w = doRequest(r, http.MethodPost, "/social/accounts/add", `{"platform":"youtube"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/social/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"cred-1"`)

	w = doRequest(r, http.MethodDelete, "/social/accounts/cred-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(r, http.MethodDelete, "/social/accounts/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/social/platforms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display_name":"YouTube"`)
}

func TestSocialAuthHandler_GetAuthURL(t *testing.T) {
	uc := new(MockOAuthUsecase)
	h := NewSocialAuthHandler(uc, "")
	r := newRouter()
	r.GET("/social/auth/:platform", withUser("user-1"), h.GetAuthURL)

	uc.On("StartLink", mock.Anything, "user-1", model.PlatformYouTube).
		Return(dto.AuthURLResponse{Platform: model.PlatformYouTube, AuthURL: "https://accounts.google.com/o/oauth2/auth?state=s", State: "s"}, nil)

	w := doRequest(r, http.MethodGet, "/social/auth/youtube", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auth_url":"https://accounts.google.com/o/oauth2/auth?state=s"`)

	w = doRequest(r, http.MethodGet, "/social/auth/myspace", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSocialAuthHandler_CallbackJSON(t *testing.T) {
	uc := new(MockOAuthUsecase)
	h := NewSocialAuthHandler(uc, "")
	r := newRouter()
	r.GET("/social/auth/:platform/callback", h.Callback)

	uc.On("HandleCallback", mock.Anything, model.PlatformYouTube, usecase.CallbackParams{Code: "c1", State: "good"}).
		Return(&usecase.LinkResult{State: model.LinkStateLinked, Platform: model.PlatformYouTube, Credential: &model.Credential{ID: "cred-1", Platform: model.PlatformYouTube}}, nil)
	uc.On("HandleCallback", mock.Anything, model.PlatformYouTube, usecase.CallbackParams{Code: "c1", State: "used"}).
		Return(nil, &usecase.LinkError{State: model.LinkStateInvalidState, Step: usecase.StepState, Err: model.NewError(model.ErrInvalidState, "", "", "unknown or already used state")})
	uc.On("HandleCallback", mock.Anything, model.PlatformYouTube, usecase.CallbackParams{Code: "c1", State: "exch"}).
		Return(nil, &usecase.LinkError{State: model.LinkStateAwaitingCallback, Step: usecase.StepExchange, Err: model.NewError(model.ErrAuthExchange, model.PlatformYouTube, "exchange_code", "HTTP 400")})

	w := doRequest(r, http.MethodGet, "/social/auth/youtube/callback?code=c1&state=good", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"linked"`)

	w = doRequest(r, http.MethodGet, "/social/auth/youtube/callback?code=c1&state=used", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"invalid_state"`)

	w = doRequest(r, http.MethodGet, "/social/auth/youtube/callback?code=c1&state=exch", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"step":"exchange"`)
}

func TestSocialAuthHandler_CallbackRedirect(t *testing.T) {
	uc := new(MockOAuthUsecase)
	h := NewSocialAuthHandler(uc, "https://app.example.com/settings/accounts?tab=social")
	r := newRouter()
	r.GET("/social/auth/:platform/callback", h.Callback)

	uc.On("HandleCallback", mock.Anything, model.PlatformYouTube, usecase.CallbackParams{Code: "c1", State: "good"}).
		Return(&usecase.LinkResult{State: model.LinkStateLinked, Platform: model.PlatformYouTube, Credential: &model.Credential{ID: "cred-1"}}, nil)
	uc.On("HandleCallback", mock.Anything, model.PlatformYouTube, usecase.CallbackParams{State: "s", Error: "access_denied"}).
		Return(nil, &usecase.LinkError{State: model.LinkStateDenied, Step: usecase.StepAuthorize, Err: model.NewError(model.ErrDenied, model.PlatformYouTube, "callback", "access_denied")})

	w := doRequest(r, http.MethodGet, "/social/auth/youtube/callback?code=c1&state=good", "")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", loc.Host)
	assert.Equal(t, "social", loc.Query().Get("tab"))
	assert.Equal(t, "linked", loc.Query().Get("oauth_status"))
	assert.Equal(t, "cred-1", loc.Query().Get("account"))

	w = doRequest(r, http.MethodGet, "/social/auth/youtube/callback?state=s&error=access_denied", "")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err = url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "denied", loc.Query().Get("oauth_status"))
	assert.Contains(t, loc.Query().Get("error"), "access_denied")
}

func TestHealthHandler(t *testing.T) {
	r := newRouter()
	ok := NewHealthHandler(map[string]Check{"db": func(context.Context) error { return nil }})
	bad := NewHealthHandler(map[string]Check{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	r.GET("/ok", ok.Healthz)
	r.GET("/bad", bad.Healthz)

	w := doRequest(r, http.MethodGet, "/ok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"db":"ok"}}`, w.Body.String())

	w = doRequest(r, http.MethodGet, "/bad", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
