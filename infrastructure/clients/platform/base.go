package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httputil"
)

const maxResponseBody = 4 << 20

// baseAdapter holds what every provider shares: the OAuth client, HTTP clients
// and the helpers that map provider responses onto the error kinds.
type baseAdapter struct {
	platform model.Platform
	client   ClientConfig
	oauth    *oauth2.Config
	http     *http.Client
	api      *httputil.RetryClient
	now      func() time.Time
}

func newBaseAdapter(p model.Platform, client ClientConfig, endpoint oauth2.Endpoint, defaultScopes []string, opts Options) baseAdapter {
	opts = opts.withDefaults()
	scopes := client.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	return baseAdapter{
		platform: p,
		client:   client,
		oauth: &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			RedirectURL:  client.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		http: opts.HTTPClient,
		api:  httputil.NewRetryClient(opts.HTTPClient, httputil.DefaultRetryConfig()),
		now:  opts.Now,
	}
}

func (b *baseAdapter) Platform() model.Platform { return b.platform }

func (b *baseAdapter) Configured() bool { return b.client.Configured() }

func (b *baseAdapter) scopes() []string { return b.oauth.Scopes }

// oauthContext makes the oauth2 package use our HTTP client.
func (b *baseAdapter) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.http)
}

func (b *baseAdapter) exchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, model.NewError(model.ErrAuthExchange, b.platform, "exchange_code", "empty authorization code")
	}
	tok, err := b.oauth.Exchange(b.oauthContext(ctx), code)
	if err != nil {
		return nil, b.oauthError(model.ErrAuthExchange, "exchange_code", err)
	}
	return tok, nil
}

// oauthError keeps the provider's raw response body when the token endpoint answered.
func (b *baseAdapter) oauthError(kind error, op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		msg := strings.TrimSpace(string(re.Body))
		if re.Response != nil {
			msg = fmt.Sprintf("HTTP %d: %s", re.Response.StatusCode, msg)
		}
		if kind == model.ErrRefresh && re.ErrorCode == "invalid_grant" {
			kind = model.ErrReauthRequired
		}
		return model.NewError(kind, b.platform, op, msg)
	}
	return model.WrapError(kind, b.platform, op, err)
}

func (b *baseAdapter) tokenBundle(tok *oauth2.Token) model.TokenBundle {
	bundle := model.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		bundle.ExpiresAt = &exp
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		bundle.Scopes = scope
	}
	return bundle
}

func (b *baseAdapter) expiresIn(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := b.now().UTC().Add(time.Duration(seconds) * time.Second)
	return &t
}

func (b *baseAdapter) notSupported() PublishResult {
	err := model.NewError(model.ErrNotSupported, b.platform, "publish_video", "video publishing not supported")
	return failedResult(err, 0)
}

func (b *baseAdapter) FetchMetrics(ctx context.Context, accessToken, postID string) (model.JSONMap, error) {
	return nil, model.NewError(model.ErrNotSupported, b.platform, "metrics", "metrics not supported")
}

// withQuery encodes a tagged struct with go-querystring and appends it to base.
func withQuery(base string, params interface{}) string {
	v, err := query.Values(params)
	if err != nil || len(v) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + v.Encode()
}

// getJSON performs an idempotent GET with retries and decodes a 2xx JSON body into out.
func (b *baseAdapter) getJSON(ctx context.Context, kind error, op, rawURL, bearer string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.WrapError(kind, b.platform, op, err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := b.api.Do(req)
	if err != nil {
		return model.WrapError(kind, b.platform, op, err)
	}
	return b.decode(resp, kind, op, out)
}

// sendJSON posts a JSON body once. Token endpoints are not retried.
func (b *baseAdapter) sendJSON(ctx context.Context, kind error, op, rawURL string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return model.WrapError(kind, b.platform, op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return model.WrapError(kind, b.platform, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := b.http.Do(req)
	if err != nil {
		return model.WrapError(kind, b.platform, op, err)
	}
	return b.decode(resp, kind, op, out)
}

func (b *baseAdapter) decode(resp *http.Response, kind error, op string, out interface{}) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return model.WrapError(kind, b.platform, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.NewError(kind, b.platform, op, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return model.WrapError(kind, b.platform, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func zeroMetrics(keys ...string) model.JSONMap {
	m := make(model.JSONMap, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}
