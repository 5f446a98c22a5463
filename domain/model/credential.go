package model

import (
	"time"
)

// Credential is a user's linked account on one platform.
type Credential struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Platform          Platform   `json:"platform"`
	PlatformAccountID *string    `json:"platform_account_id,omitempty"`
	Username          string     `json:"username"`
	Email             *string    `json:"email,omitempty"`
	DisplayName       string     `json:"display_name"`
	AccessToken       string     `json:"-"`
	RefreshToken      *string    `json:"-"`
	ExpiresAt         *time.Time `json:"token_expires_at,omitempty"`
	Scopes            string     `json:"scopes"`
	Metadata          JSONMap    `json:"platform_metadata"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	AccountStatus     string     `json:"account_status"`
	ConnectedAt       time.Time  `json:"connected_at"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
	LastRefreshedAt   *time.Time `json:"last_refreshed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

const AccountStatusActive = "active"

// expirySkew treats tokens about to lapse as already expired.
const expirySkew = time.Minute

func (c *Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(expirySkew).Before(*c.ExpiresAt)
}

func (c *Credential) HasRefreshToken() bool {
	return c.RefreshToken != nil && *c.RefreshToken != ""
}

// LinkKey is the identity used to match a re-link against an existing row:
// the platform account id when known, otherwise the username.
func (c *Credential) LinkKey() string {
	if c.PlatformAccountID != nil && *c.PlatformAccountID != "" {
		return "id:" + *c.PlatformAccountID
	}
	return "user:" + c.Username
}

// ApplyTokens copies a token bundle onto the credential. An empty refresh token
// keeps the stored one; Google omits it on refresh.
func (c *Credential) ApplyTokens(t TokenBundle) {
	c.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		rt := t.RefreshToken
		c.RefreshToken = &rt
	}
	c.ExpiresAt = t.ExpiresAt
	if t.Scopes != "" {
		c.Scopes = t.Scopes
	}
}

// TokenBundle is what a provider returns from a code exchange or refresh.
type TokenBundle struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       string     `json:"scopes,omitempty"`
}

// Identity is the account profile fetched right after linking.
type Identity struct {
	AccountID   string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email,omitempty"`
	Verified    bool    `json:"verified"`
	Metadata    JSONMap `json:"metadata,omitempty"`
}

// NewCredential builds a credential row from a fresh link.
func NewCredential(userID string, platform Platform, tokens TokenBundle, identity Identity, now time.Time) *Credential {
	c := &Credential{
		UserID:        userID,
		Platform:      platform,
		Username:      identity.Username,
		DisplayName:   identity.DisplayName,
		Metadata:      identity.Metadata,
		IsActive:      true,
		IsVerified:    identity.Verified,
		AccountStatus: AccountStatusActive,
		ConnectedAt:   now,
		UpdatedAt:     now,
	}
	if identity.AccountID != "" {
		id := identity.AccountID
		c.PlatformAccountID = &id
	}
	if identity.Email != "" {
		e := identity.Email
		c.Email = &e
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Username
	}
	if c.Metadata == nil {
		c.Metadata = JSONMap{}
	}
	c.ApplyTokens(tokens)
	return c
}
