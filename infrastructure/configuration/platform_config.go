package configuration

import (
	"fmt"
	"os"
	"strings"
)

// PlatformOAuthConfig is the resolved OAuth client for one platform.
type PlatformOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

func (c PlatformOAuthConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// GetPlatformOAuthConfig returns the OAuth client for platform from the JSON config,
// with <PLATFORM>_CLIENT_ID, <PLATFORM>_CLIENT_SECRET and <PLATFORM>_REDIRECT_URI
// environment variables taking precedence.
func GetPlatformOAuthConfig(platform string) PlatformOAuthConfig {
	var client OAuthClient
	switch platform {
	case "youtube":
		client = C.OAuth.YouTube
	case "instagram":
		client = C.OAuth.Instagram
	case "facebook":
		client = C.OAuth.Facebook
	case "linkedin":
		client = C.OAuth.LinkedIn
	case "tiktok":
		client = C.OAuth.TikTok
	}

	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10001
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/social/auth/%s/callback", scheme, port, platform)

	prefix := strings.ToUpper(platform)
	return PlatformOAuthConfig{
		ClientID:     getConfigValue(client.ClientID, prefix+"_CLIENT_ID", ""),
		ClientSecret: getConfigValue(client.ClientSecret, prefix+"_CLIENT_SECRET", ""),
		RedirectURL:  getConfigValue(client.RedirectURI, prefix+"_REDIRECT_URI", defaultRedirect),
		Scopes:       client.Scopes,
	}
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	// Ignore placeholder values such as YOUR_CLIENT_ID
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
