package model

import "strings"

type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
)

// AllPlatforms is the display order used by the capability listing.
var AllPlatforms = []Platform{
	PlatformYouTube,
	PlatformInstagram,
	PlatformFacebook,
	PlatformLinkedIn,
	PlatformTikTok,
}

// ParsePlatform normalizes a platform name. The second return is false for unknown names.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPlatforms {
		if p == known {
			return p, true
		}
	}
	return p, false
}

func (p Platform) String() string { return string(p) }

func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformInstagram:
		return "Instagram"
	case PlatformFacebook:
		return "Facebook"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformTikTok:
		return "TikTok"
	}
	return string(p)
}
