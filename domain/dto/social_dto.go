package dto

import (
	"time"

	"social-publisher/domain/model"
)

type Res struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}

// AddAccountRequest links an account with tokens obtained outside the OAuth flow.
type AddAccountRequest struct {
	Platform          string                 `json:"platform" binding:"required"`
	Username          string                 `json:"username" binding:"required"`
	AccessToken       string                 `json:"access_token" binding:"required"`
	RefreshToken      string                 `json:"refresh_token"`
	PlatformAccountID string                 `json:"platform_account_id"`
	DisplayName       string                 `json:"display_name"`
	Email             string                 `json:"email"`
	ExpiresIn         int64                  `json:"expires_in"`
	Metadata          map[string]interface{} `json:"platform_metadata"`
}

type AccountResponse struct {
	ID                string                 `json:"id"`
	Platform          model.Platform         `json:"platform"`
	PlatformAccountID string                 `json:"platform_account_id,omitempty"`
	Username          string                 `json:"username"`
	DisplayName       string                 `json:"display_name"`
	IsActive          bool                   `json:"is_active"`
	IsVerified        bool                   `json:"is_verified"`
	AccountStatus     string                 `json:"account_status"`
	TokenExpiresAt    *time.Time             `json:"token_expires_at,omitempty"`
	ConnectedAt       time.Time              `json:"connected_at"`
	LastUsedAt        *time.Time             `json:"last_used_at,omitempty"`
	Metadata          map[string]interface{} `json:"platform_metadata"`
}

func NewAccountResponse(c *model.Credential) AccountResponse {
	r := AccountResponse{
		ID:             c.ID,
		Platform:       c.Platform,
		Username:       c.Username,
		DisplayName:    c.DisplayName,
		IsActive:       c.IsActive,
		IsVerified:     c.IsVerified,
		AccountStatus:  c.AccountStatus,
		TokenExpiresAt: c.ExpiresAt,
		ConnectedAt:    c.ConnectedAt,
		LastUsedAt:     c.LastUsedAt,
		Metadata:       c.Metadata,
	}
	if c.PlatformAccountID != nil {
		r.PlatformAccountID = *c.PlatformAccountID
	}
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}
	return r
}

// PublishRequest is the body of POST /social/post.
type PublishRequest struct {
	VideoID          string                            `json:"video_id"`
	Platforms        []string                          `json:"platforms"`
	Title            string                            `json:"title"`
	Description      string                            `json:"description"`
	Tags             []string                          `json:"tags"`
	PlatformSettings map[string]map[string]interface{} `json:"platform_settings"`
	ScheduledFor     *time.Time                        `json:"scheduled_for"`
}

type AuthURLResponse struct {
	Platform  model.Platform `json:"platform"`
	AuthURL   string         `json:"auth_url"`
	State     string         `json:"state"`
	Scopes    []string       `json:"scopes"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type PlatformInfo struct {
	Name            model.Platform `json:"name"`
	DisplayName     string         `json:"display_name"`
	Scopes          []string       `json:"scopes"`
	SupportsPublish bool           `json:"supports_publish"`
	SupportsRefresh bool           `json:"supports_refresh"`
	SupportsMetrics bool           `json:"supports_metrics"`
	Configured      bool           `json:"configured"`
}
