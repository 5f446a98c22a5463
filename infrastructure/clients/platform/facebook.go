package platform

import (
	"context"

	"golang.org/x/oauth2"

	"social-publisher/domain/model"
)

const (
	facebookAuthURL         = "https://www.facebook.com/v18.0/dialog/oauth"
	facebookGraphURL        = "https://graph.facebook.com/v18.0"
	facebookDefaultLifetime = 5184000
)

type FacebookEndpoints struct {
	AuthURL  string
	GraphURL string
}

// FacebookAdapter links a user's first managed Page. Long-lived user tokens are
// re-exchanged with fb_exchange_token, so the access token doubles as the refresh token.
type FacebookAdapter struct {
	baseAdapter
	graphURL string
}

type facebookToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func NewFacebookAdapter(client ClientConfig, endpoints FacebookEndpoints, opts Options) *FacebookAdapter {
	graphURL := firstNonEmpty(endpoints.GraphURL, facebookGraphURL)
	endpoint := oauth2.Endpoint{
		AuthURL:   firstNonEmpty(endpoints.AuthURL, facebookAuthURL),
		TokenURL:  graphURL + "/oauth/access_token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return &FacebookAdapter{
		baseAdapter: newBaseAdapter(model.PlatformFacebook, client, endpoint, []string{"pages_manage_posts,pages_read_engagement,publish_video"}, opts),
		graphURL:    graphURL,
	}
}

func (a *FacebookAdapter) Capabilities() Capabilities {
	return Capabilities{Refresh: true, Scopes: a.scopes()}
}

func (a *FacebookAdapter) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

func (a *FacebookAdapter) ExchangeCode(ctx context.Context, code string) (model.TokenBundle, error) {
	tok, err := a.exchangeToken(ctx, code)
	if err != nil {
		return model.TokenBundle{}, err
	}
	bundle := a.tokenBundle(tok)
	bundle.RefreshToken = tok.AccessToken
	return bundle, nil
}

func (a *FacebookAdapter) Refresh(ctx context.Context, refreshToken string) (model.TokenBundle, error) {
	if refreshToken == "" {
		return model.TokenBundle{}, model.NewError(model.ErrRefresh, a.platform, "refresh", "no refresh token")
	}
	q := struct {
		GrantType       string `url:"grant_type"`
		ClientID        string `url:"client_id"`
		ClientSecret    string `url:"client_secret"`
		FbExchangeToken string `url:"fb_exchange_token"`
	}{"fb_exchange_token", a.client.ClientID, a.client.ClientSecret, refreshToken}
	var tok facebookToken
	if err := a.getJSON(ctx, model.ErrRefresh, "refresh", withQuery(a.graphURL+"/oauth/access_token", q), "", &tok); err != nil {
		return model.TokenBundle{}, err
	}
	if tok.AccessToken == "" {
		return model.TokenBundle{}, model.NewError(model.ErrRefresh, a.platform, "refresh", "response carries no access token")
	}
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = facebookDefaultLifetime
	}
	return model.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.AccessToken,
		ExpiresAt:    a.expiresIn(expiresIn),
	}, nil
}

func (a *FacebookAdapter) UserInfo(ctx context.Context, accessToken string) (model.Identity, error) {
	var pages struct {
		Data []struct {
			ID       string   `json:"id"`
			Name     string   `json:"name"`
			Category string   `json:"category"`
			Tasks    []string `json:"tasks"`
		} `json:"data"`
	}
	q := struct {
		AccessToken string `url:"access_token"`
	}{accessToken}
	if err := a.getJSON(ctx, model.ErrUpstream, "user_info", withQuery(a.graphURL+"/me/accounts", q), "", &pages); err != nil {
		return model.Identity{}, err
	}
	if len(pages.Data) == 0 {
		return model.Identity{}, model.NewError(model.ErrUpstream, a.platform, "user_info", "no Facebook pages found")
	}
	page := pages.Data[0]
	if page.ID == "" {
		return model.Identity{}, model.NewError(model.ErrUpstream, a.platform, "user_info", "response carries no account id")
	}
	return model.Identity{
		AccountID:   page.ID,
		Username:    page.Name,
		DisplayName: page.Name,
		Metadata: model.JSONMap{
			"category":   page.Category,
			"tasks":      page.Tasks,
			"page_count": len(pages.Data),
		},
	}, nil
}

func (a *FacebookAdapter) PublishVideo(ctx context.Context, accessToken string, req PublishRequest) PublishResult {
	return a.notSupported()
}

func (a *FacebookAdapter) Metrics(ctx context.Context, accessToken, postID string) model.JSONMap {
	return zeroMetrics("reactions", "comments", "shares", "video_views")
}
