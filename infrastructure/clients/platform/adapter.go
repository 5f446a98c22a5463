package platform

import (
	"context"
	"net/http"
	"time"

	"social-publisher/domain/model"
)

// ClientConfig is the OAuth client registered with a provider.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

func (c ClientConfig) Configured() bool { return c.ClientID != "" && c.ClientSecret != "" }

// PublishRequest describes one video upload to one platform.
type PublishRequest struct {
	FilePath    string
	Title       string
	Description string
	Tags        []string
	Settings    map[string]interface{}
}

// PublishResult is the outcome of PublishVideo. Failures are reported here, never as a Go error.
type PublishResult struct {
	Success bool
	PostID  string
	PostURL string
	Metrics model.JSONMap
	Retries int
	Error   string
	Err     error
}

func failedResult(err error, retries int) PublishResult {
	return PublishResult{Success: false, Error: err.Error(), Err: err, Retries: retries}
}

type Capabilities struct {
	Publish bool
	Refresh bool
	Metrics bool
	Scopes  []string
}

// Adapter is the uniform surface over one social platform.
type Adapter interface {
	Platform() model.Platform
	Capabilities() Capabilities
	Configured() bool
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (model.TokenBundle, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenBundle, error)
	UserInfo(ctx context.Context, accessToken string) (model.Identity, error)
	PublishVideo(ctx context.Context, accessToken string, req PublishRequest) PublishResult
	Metrics(ctx context.Context, accessToken, postID string) model.JSONMap
	// FetchMetrics reads live counters and reports provider failures instead of zeroing them.
	FetchMetrics(ctx context.Context, accessToken, postID string) (model.JSONMap, error)
}

// Registry selects the adapter for a platform.
type Registry struct {
	adapters map[model.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Get(p model.Platform) (Adapter, error) {
	if a, ok := r.adapters[p]; ok {
		return a, nil
	}
	return nil, model.NewError(model.ErrNotSupported, p, "", "platform not supported: "+string(p))
}

// All returns the registered adapters in display order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, p := range model.AllPlatforms {
		if a, ok := r.adapters[p]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Options are shared by every adapter constructor.
type Options struct {
	HTTPClient *http.Client
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// NewDefaultRegistry wires every supported platform.
func NewDefaultRegistry(clients map[model.Platform]ClientConfig, upload UploadConfig, opts Options) *Registry {
	return NewRegistry(
		NewYouTubeAdapter(clients[model.PlatformYouTube], upload, YouTubeEndpoints{}, opts),
		NewInstagramAdapter(clients[model.PlatformInstagram], InstagramEndpoints{}, opts),
		NewFacebookAdapter(clients[model.PlatformFacebook], FacebookEndpoints{}, opts),
		NewLinkedInAdapter(clients[model.PlatformLinkedIn], LinkedInEndpoints{}, opts),
		NewTikTokAdapter(clients[model.PlatformTikTok], TikTokEndpoints{}, opts),
	)
}
