package platform

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"social-publisher/domain/model"
)

const (
	linkedInAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	linkedInTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedInAPIURL   = "https://api.linkedin.com/v2"
)

type LinkedInEndpoints struct {
	AuthURL  string
	TokenURL string
	APIURL   string
}

// LinkedInAdapter cannot refresh tokens; an expired credential needs a new link.
type LinkedInAdapter struct {
	baseAdapter
	apiURL string
}

func NewLinkedInAdapter(client ClientConfig, endpoints LinkedInEndpoints, opts Options) *LinkedInAdapter {
	endpoint := oauth2.Endpoint{
		AuthURL:   firstNonEmpty(endpoints.AuthURL, linkedInAuthURL),
		TokenURL:  firstNonEmpty(endpoints.TokenURL, linkedInTokenURL),
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return &LinkedInAdapter{
		baseAdapter: newBaseAdapter(model.PlatformLinkedIn, client, endpoint, []string{"w_member_social", "r_basicprofile"}, opts),
		apiURL:      firstNonEmpty(endpoints.APIURL, linkedInAPIURL),
	}
}

func (a *LinkedInAdapter) Capabilities() Capabilities {
	return Capabilities{Scopes: a.scopes()}
}

func (a *LinkedInAdapter) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state)
}

func (a *LinkedInAdapter) ExchangeCode(ctx context.Context, code string) (model.TokenBundle, error) {
	tok, err := a.exchangeToken(ctx, code)
	if err != nil {
		return model.TokenBundle{}, err
	}
	return a.tokenBundle(tok), nil
}

// Refresh always fails: LinkedIn tokens are re-obtained through a new authorization.
func (a *LinkedInAdapter) Refresh(ctx context.Context, refreshToken string) (model.TokenBundle, error) {
	return model.TokenBundle{}, model.NewError(model.ErrReauthRequired, a.platform, "refresh", "linkedin tokens cannot be refreshed; link the account again")
}

func (a *LinkedInAdapter) UserInfo(ctx context.Context, accessToken string) (model.Identity, error) {
	var me struct {
		ID        string `json:"id"`
		FirstName string `json:"localizedFirstName"`
		LastName  string `json:"localizedLastName"`
	}
	if err := a.getJSON(ctx, model.ErrUpstream, "user_info", a.apiURL+"/me", accessToken, &me); err != nil {
		return model.Identity{}, err
	}
	if me.ID == "" {
		return model.Identity{}, model.NewError(model.ErrUpstream, a.platform, "user_info", "response carries no account id")
	}
	name := strings.TrimSpace(me.FirstName + " " + me.LastName)
	return model.Identity{
		AccountID:   me.ID,
		Username:    name,
		DisplayName: name,
		Metadata:    model.JSONMap{"first_name": me.FirstName, "last_name": me.LastName},
	}, nil
}

func (a *LinkedInAdapter) PublishVideo(ctx context.Context, accessToken string, req PublishRequest) PublishResult {
	return a.notSupported()
}

func (a *LinkedInAdapter) Metrics(ctx context.Context, accessToken, postID string) model.JSONMap {
	return zeroMetrics("likes", "comments", "shares", "views")
}
