package platform

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"social-publisher/domain/model"
)

const (
	tiktokAuthURL = "https://www.tiktok.com/auth/authorize/"
	tiktokAPIURL  = "https://open-api.tiktok.com"
)

type TikTokEndpoints struct {
	AuthURL string
	APIURL  string
}

// TikTokAdapter talks to the TikTok for Developers API, which names the client id
// client_key and wraps every payload in a data envelope.
type TikTokAdapter struct {
	baseAdapter
	authURL string
	apiURL  string
}

type tiktokAuthQuery struct {
	ClientKey    string `url:"client_key"`
	Scope        string `url:"scope"`
	ResponseType string `url:"response_type"`
	RedirectURI  string `url:"redirect_uri"`
	State        string `url:"state"`
}

type tiktokTokenRequest struct {
	ClientKey    string `json:"client_key"`
	ClientSecret string `json:"client_secret,omitempty"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	GrantType    string `json:"grant_type"`
}

type tiktokTokenResponse struct {
	Data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		OpenID       string `json:"open_id"`
		Scope        string `json:"scope"`
		ErrorCode    int    `json:"error_code"`
		Description  string `json:"description"`
	} `json:"data"`
}

func NewTikTokAdapter(client ClientConfig, endpoints TikTokEndpoints, opts Options) *TikTokAdapter {
	// TikTok does not speak standard OAuth2 on the token endpoint; only the
	// shared helpers of baseAdapter are used.
	return &TikTokAdapter{
		baseAdapter: newBaseAdapter(model.PlatformTikTok, client, oauth2.Endpoint{}, []string{"user.info.basic,video.upload"}, opts),
		authURL:     firstNonEmpty(endpoints.AuthURL, tiktokAuthURL),
		apiURL:      firstNonEmpty(endpoints.APIURL, tiktokAPIURL),
	}
}

func (a *TikTokAdapter) Capabilities() Capabilities {
	return Capabilities{Refresh: true, Scopes: a.scopes()}
}

func (a *TikTokAdapter) AuthURL(state string) string {
	return withQuery(a.authURL, tiktokAuthQuery{
		ClientKey:    a.client.ClientID,
		Scope:        a.scopes()[0],
		ResponseType: "code",
		RedirectURI:  a.client.RedirectURL,
		State:        state,
	})
}

func (a *TikTokAdapter) ExchangeCode(ctx context.Context, code string) (model.TokenBundle, error) {
	if code == "" {
		return model.TokenBundle{}, model.NewError(model.ErrAuthExchange, a.platform, "exchange_code", "empty authorization code")
	}
	req := tiktokTokenRequest{ClientKey: a.client.ClientID, ClientSecret: a.client.ClientSecret, Code: code, GrantType: "authorization_code"}
	return a.token(ctx, model.ErrAuthExchange, "exchange_code", "/oauth/access_token/", req)
}

func (a *TikTokAdapter) Refresh(ctx context.Context, refreshToken string) (model.TokenBundle, error) {
	if refreshToken == "" {
		return model.TokenBundle{}, model.NewError(model.ErrRefresh, a.platform, "refresh", "no refresh token")
	}
	req := tiktokTokenRequest{ClientKey: a.client.ClientID, RefreshToken: refreshToken, GrantType: "refresh_token"}
	return a.token(ctx, model.ErrRefresh, "refresh", "/oauth/refresh_token/", req)
}

func (a *TikTokAdapter) token(ctx context.Context, kind error, op, path string, body tiktokTokenRequest) (model.TokenBundle, error) {
	var resp tiktokTokenResponse
	if err := a.sendJSON(ctx, kind, op, a.apiURL+path, body, &resp); err != nil {
		return model.TokenBundle{}, err
	}
	if resp.Data.ErrorCode != 0 || resp.Data.AccessToken == "" {
		return model.TokenBundle{}, model.NewError(kind, a.platform, op, fmt.Sprintf("error_code %d: %s", resp.Data.ErrorCode, resp.Data.Description))
	}
	return model.TokenBundle{
		AccessToken:  resp.Data.AccessToken,
		RefreshToken: resp.Data.RefreshToken,
		ExpiresAt:    a.expiresIn(resp.Data.ExpiresIn),
		Scopes:       resp.Data.Scope,
	}, nil
}

func (a *TikTokAdapter) UserInfo(ctx context.Context, accessToken string) (model.Identity, error) {
	var resp struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				UnionID     string `json:"union_id"`
				AvatarURL   string `json:"avatar_url"`
				DisplayName string `json:"display_name"`
				Username    string `json:"username"`
			} `json:"user"`
		} `json:"data"`
	}
	q := struct {
		Fields string `url:"fields"`
	}{"open_id,union_id,avatar_url,display_name,username"}
	if err := a.getJSON(ctx, model.ErrUpstream, "user_info", withQuery(a.apiURL+"/user/info/", q), accessToken, &resp); err != nil {
		return model.Identity{}, err
	}
	u := resp.Data.User
	if u.OpenID == "" {
		return model.Identity{}, model.NewError(model.ErrUpstream, a.platform, "user_info", "response carries no user")
	}
	username := firstNonEmpty(u.Username, u.DisplayName, u.OpenID)
	return model.Identity{
		AccountID:   u.OpenID,
		Username:    username,
		DisplayName: firstNonEmpty(u.DisplayName, username),
		Metadata:    model.JSONMap{"union_id": u.UnionID, "avatar_url": u.AvatarURL},
	}, nil
}

func (a *TikTokAdapter) PublishVideo(ctx context.Context, accessToken string, req PublishRequest) PublishResult {
	return a.notSupported()
}

func (a *TikTokAdapter) Metrics(ctx context.Context, accessToken, postID string) model.JSONMap {
	return zeroMetrics("views", "likes", "comments", "shares")
}
