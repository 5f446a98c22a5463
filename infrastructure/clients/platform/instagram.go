package platform

import (
	"context"

	"golang.org/x/oauth2"

	"social-publisher/domain/model"
)

const (
	instagramAuthURL  = "https://api.instagram.com/oauth/authorize"
	instagramTokenURL = "https://api.instagram.com/oauth/access_token"
	instagramGraphURL = "https://graph.instagram.com"
)

type InstagramEndpoints struct {
	AuthURL  string
	TokenURL string
	GraphURL string
}

// InstagramAdapter links accounts through Instagram Basic Display. Long-lived
// tokens refresh themselves, so the long-lived access token doubles as the refresh token.
type InstagramAdapter struct {
	baseAdapter
	graphURL string
}

type instagramTokenQuery struct {
	GrantType    string `url:"grant_type"`
	ClientSecret string `url:"client_secret,omitempty"`
	AccessToken  string `url:"access_token"`
}

type instagramToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func NewInstagramAdapter(client ClientConfig, endpoints InstagramEndpoints, opts Options) *InstagramAdapter {
	endpoint := oauth2.Endpoint{
		AuthURL:   firstNonEmpty(endpoints.AuthURL, instagramAuthURL),
		TokenURL:  firstNonEmpty(endpoints.TokenURL, instagramTokenURL),
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return &InstagramAdapter{
		baseAdapter: newBaseAdapter(model.PlatformInstagram, client, endpoint, []string{"user_profile,user_media"}, opts),
		graphURL:    firstNonEmpty(endpoints.GraphURL, instagramGraphURL),
	}
}

func (a *InstagramAdapter) Capabilities() Capabilities {
	return Capabilities{Refresh: true, Scopes: a.scopes()}
}

func (a *InstagramAdapter) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

// ExchangeCode trades the code for a short-lived token, then upgrades it to a long-lived one.
func (a *InstagramAdapter) ExchangeCode(ctx context.Context, code string) (model.TokenBundle, error) {
	short, err := a.exchangeToken(ctx, code)
	if err != nil {
		return model.TokenBundle{}, err
	}
	var long instagramToken
	q := instagramTokenQuery{GrantType: "ig_exchange_token", ClientSecret: a.client.ClientSecret, AccessToken: short.AccessToken}
	if err := a.getJSON(ctx, model.ErrAuthExchange, "exchange_code", withQuery(a.graphURL+"/access_token", q), "", &long); err != nil {
		return model.TokenBundle{}, err
	}
	if long.AccessToken == "" {
		return model.TokenBundle{}, model.NewError(model.ErrAuthExchange, a.platform, "exchange_code", "response carries no access token")
	}
	return model.TokenBundle{
		AccessToken:  long.AccessToken,
		RefreshToken: long.AccessToken,
		ExpiresAt:    a.expiresIn(long.ExpiresIn),
	}, nil
}

func (a *InstagramAdapter) Refresh(ctx context.Context, refreshToken string) (model.TokenBundle, error) {
	if refreshToken == "" {
		return model.TokenBundle{}, model.NewError(model.ErrRefresh, a.platform, "refresh", "no refresh token")
	}
	var tok instagramToken
	q := instagramTokenQuery{GrantType: "ig_refresh_token", AccessToken: refreshToken}
	if err := a.getJSON(ctx, model.ErrRefresh, "refresh", withQuery(a.graphURL+"/refresh_access_token", q), "", &tok); err != nil {
		return model.TokenBundle{}, err
	}
	if tok.AccessToken == "" {
		return model.TokenBundle{}, model.NewError(model.ErrRefresh, a.platform, "refresh", "response carries no access token")
	}
	return model.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.AccessToken,
		ExpiresAt:    a.expiresIn(tok.ExpiresIn),
	}, nil
}

func (a *InstagramAdapter) UserInfo(ctx context.Context, accessToken string) (model.Identity, error) {
	var me struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		AccountType string `json:"account_type"`
		MediaCount  int64  `json:"media_count"`
	}
	q := struct {
		Fields      string `url:"fields"`
		AccessToken string `url:"access_token"`
	}{Fields: "id,username,account_type,media_count", AccessToken: accessToken}
	if err := a.getJSON(ctx, model.ErrUpstream, "user_info", withQuery(a.graphURL+"/me", q), "", &me); err != nil {
		return model.Identity{}, err
	}
	if me.ID == "" {
		return model.Identity{}, model.NewError(model.ErrUpstream, a.platform, "user_info", "response carries no account id")
	}
	return model.Identity{
		AccountID:   me.ID,
		Username:    me.Username,
		DisplayName: me.Username,
		Metadata: model.JSONMap{
			"account_type": me.AccountType,
			"media_count":  me.MediaCount,
		},
	}, nil
}

func (a *InstagramAdapter) PublishVideo(ctx context.Context, accessToken string, req PublishRequest) PublishResult {
	return a.notSupported()
}

func (a *InstagramAdapter) Metrics(ctx context.Context, accessToken, postID string) model.JSONMap {
	return zeroMetrics("likes", "comments", "reaches", "impressions")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
