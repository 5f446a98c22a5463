package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LinkState is the lifecycle of one account-linking attempt.
type LinkState string

const (
	LinkStateRequested        LinkState = "REQUESTED"
	LinkStateAwaitingCallback LinkState = "AWAITING_CALLBACK"
	LinkStateExchanged        LinkState = "EXCHANGED"
	LinkStateLinked           LinkState = "LINKED"
	LinkStateExpired          LinkState = "EXPIRED"
	LinkStateInvalidState     LinkState = "INVALID_STATE"
	LinkStateDenied           LinkState = "DENIED"
)

// OAuthState binds an authorization request to the user and platform that started it.
type OAuthState struct {
	UserID    string    `json:"user_id"`
	Platform  Platform  `json:"platform"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewOAuthState(userID string, platform Platform, ttl time.Duration, now time.Time) OAuthState {
	return OAuthState{
		UserID:    userID,
		Platform:  platform,
		Nonce:     uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}
}

// Token is the opaque value sent to the provider as the state parameter.
func (s OAuthState) Token() string {
	return s.UserID + ":" + string(s.Platform) + ":" + s.Nonce
}

func (s OAuthState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Matches reports whether two states bind the same user, platform and nonce.
func (s OAuthState) Matches(other OAuthState) bool {
	return s.UserID == other.UserID && s.Platform == other.Platform && s.Nonce == other.Nonce
}

// ParseOAuthState splits a state token into exactly {user, platform, nonce}.
func ParseOAuthState(token string) (OAuthState, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return OAuthState{}, NewError(ErrInvalidState, "", "parse_state", "state must have three parts")
	}
	userID, rawPlatform, nonce := parts[0], parts[1], parts[2]
	if userID == "" {
		return OAuthState{}, NewError(ErrInvalidState, "", "parse_state", "empty user")
	}
	platform, ok := ParsePlatform(rawPlatform)
	if !ok || string(platform) != rawPlatform {
		return OAuthState{}, NewError(ErrInvalidState, "", "parse_state", "unknown platform "+rawPlatform)
	}
	if _, err := uuid.Parse(nonce); err != nil {
		return OAuthState{}, NewError(ErrInvalidState, "", "parse_state", "malformed nonce")
	}
	return OAuthState{UserID: userID, Platform: platform, Nonce: nonce}, nil
}
