package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

const (
	youtubeUploadURL     = "https://www.googleapis.com/upload/youtube/v3/videos"
	youtubeWatchURL      = "https://www.youtube.com/watch?v="
	youtubeCategoryID    = "22"
	youtubePrivacy       = "private"
	youtubeLanguage      = "en"
	youtubeMaxTitle      = 100
	youtubeMaxDesc       = 5000
	youtubeMaxTags       = 50
	youtubeChannelType   = "personal"
	youtubeNoChannelText = "no channel found for authenticated user"
)

var youtubeScopes = []string{
	youtube.YoutubeScope,
	youtube.YoutubeUploadScope,
	youtube.YoutubeForceSslScope,
}

var youtubePrivacyValues = map[string]struct{}{"private": {}, "public": {}, "unlisted": {}}

// YouTubeEndpoints overrides Google endpoints; empty fields use the real ones.
type YouTubeEndpoints struct {
	AuthURL    string
	TokenURL   string
	APIBaseURL string
	UploadURL  string
}

type YouTubeAdapter struct {
	baseAdapter
	apiBaseURL string
	uploader   *resumableUploader
	upload     UploadConfig
}

func NewYouTubeAdapter(client ClientConfig, upload UploadConfig, endpoints YouTubeEndpoints, opts Options) *YouTubeAdapter {
	endpoint := google.Endpoint
	if endpoints.AuthURL != "" {
		endpoint.AuthURL = endpoints.AuthURL
	}
	if endpoints.TokenURL != "" {
		endpoint.TokenURL = endpoints.TokenURL
	}
	base := newBaseAdapter(model.PlatformYouTube, client, endpoint, youtubeScopes, opts)
	uploadURL := endpoints.UploadURL
	if uploadURL == "" {
		uploadURL = youtubeUploadURL
	}
	upload = upload.withDefaults()
	return &YouTubeAdapter{
		baseAdapter: base,
		apiBaseURL:  endpoints.APIBaseURL,
		upload:      upload,
		uploader:    newResumableUploader(base.http, uploadURL, upload),
	}
}

func (a *YouTubeAdapter) Capabilities() Capabilities {
	return Capabilities{Publish: true, Refresh: true, Metrics: true, Scopes: a.scopes()}
}

func (a *YouTubeAdapter) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (a *YouTubeAdapter) ExchangeCode(ctx context.Context, code string) (model.TokenBundle, error) {
	tok, err := a.exchangeToken(ctx, code)
	if err != nil {
		return model.TokenBundle{}, err
	}
	return a.tokenBundle(tok), nil
}

func (a *YouTubeAdapter) Refresh(ctx context.Context, refreshToken string) (model.TokenBundle, error) {
	if refreshToken == "" {
		return model.TokenBundle{}, model.NewError(model.ErrRefresh, a.platform, "refresh", "no refresh token")
	}
	tok, err := a.oauth.TokenSource(a.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return model.TokenBundle{}, a.oauthError(model.ErrRefresh, "refresh", err)
	}
	return a.tokenBundle(tok), nil
}

func (a *YouTubeAdapter) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(a.oauthContext(ctx), ts))}
	if a.apiBaseURL != "" {
		opts = append(opts, option.WithEndpoint(a.apiBaseURL))
	}
	return youtube.NewService(ctx, opts...)
}

func (a *YouTubeAdapter) UserInfo(ctx context.Context, accessToken string) (model.Identity, error) {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return model.Identity{}, model.WrapError(model.ErrUpstream, a.platform, "user_info", err)
	}
	resp, err := svc.Channels.List([]string{"snippet", "statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return model.Identity{}, a.apiError("user_info", err)
	}
	if len(resp.Items) == 0 {
		return model.Identity{}, model.NewError(model.ErrUpstream, a.platform, "user_info", youtubeNoChannelText)
	}
	ch := resp.Items[0]
	identity := model.Identity{AccountID: ch.Id, Metadata: model.JSONMap{"channel_type": youtubeChannelType}}
	if ch.Snippet != nil {
		identity.Username = ch.Snippet.Title
		identity.DisplayName = ch.Snippet.Title
		identity.Verified = ch.Snippet.CustomUrl != ""
		if ch.Snippet.CustomUrl != "" {
			identity.Metadata["custom_url"] = ch.Snippet.CustomUrl
		}
	}
	if ch.Statistics != nil {
		identity.Metadata["subscriber_count"] = ch.Statistics.SubscriberCount
		identity.Metadata["video_count"] = ch.Statistics.VideoCount
		identity.Metadata["view_count"] = ch.Statistics.ViewCount
	}
	return identity, nil
}

func (a *YouTubeAdapter) apiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := strings.TrimSpace(gerr.Body)
		if msg == "" {
			msg = gerr.Message
		}
		return model.NewError(model.ErrUpstream, a.platform, op, fmt.Sprintf("HTTP %d: %s", gerr.Code, msg))
	}
	return model.WrapError(model.ErrUpstream, a.platform, op, err)
}

// PublishVideo uploads the file with the resumable protocol. It fails without
// any network call when the file is missing, empty or over the size limit.
func (a *YouTubeAdapter) PublishVideo(ctx context.Context, accessToken string, req PublishRequest) PublishResult {
	info, err := os.Stat(req.FilePath)
	switch {
	case err != nil:
		return failedResult(model.NewError(model.ErrValidation, a.platform, "publish_video", "video file not found: "+req.FilePath), 0)
	case info.IsDir():
		return failedResult(model.NewError(model.ErrValidation, a.platform, "publish_video", "video path is a directory: "+req.FilePath), 0)
	case info.Size() == 0:
		return failedResult(model.NewError(model.ErrValidation, a.platform, "publish_video", "video file is empty"), 0)
	case info.Size() > a.upload.MaxFileSize:
		return failedResult(model.NewError(model.ErrValidation, a.platform, "publish_video",
			fmt.Sprintf("video file is %d bytes, limit is %d", info.Size(), a.upload.MaxFileSize)), 0)
	}

	meta := buildVideoMetadata(req)
	log := logger.GetLogger().WithField("platform", a.platform).WithField("file", req.FilePath)
	log.WithField("size", info.Size()).Info("starting resumable upload")

	videoID, retries, err := a.uploader.Upload(ctx, accessToken, req.FilePath, info.Size(), meta)
	if err != nil {
		log.WithField("error", err).WithField("retries", retries).Error("resumable upload failed")
		return failedResult(err, retries)
	}
	log.WithField("video_id", videoID).WithField("retries", retries).Info("resumable upload finished")
	return PublishResult{
		Success: true,
		PostID:  videoID,
		PostURL: youtubeWatchURL + videoID,
		Retries: retries,
		Metrics: model.JSONMap{
			"views":          0,
			"likes":          0,
			"comments":       0,
			"upload_status":  "uploaded",
			"privacy_status": meta.Status.PrivacyStatus,
		},
	}
}

// Metrics is best effort: any failure yields zeroed counters.
func (a *YouTubeAdapter) Metrics(ctx context.Context, accessToken, postID string) model.JSONMap {
	out, err := a.FetchMetrics(ctx, accessToken, postID)
	if err != nil {
		logger.GetLogger().WithField("post_id", postID).WithField("error", err).Warn("youtube metrics lookup failed")
		return zeroMetrics("views", "likes", "comments")
	}
	return out
}

func (a *YouTubeAdapter) FetchMetrics(ctx context.Context, accessToken, postID string) (model.JSONMap, error) {
	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, model.WrapError(model.ErrUpstream, a.platform, "metrics", err)
	}
	resp, err := svc.Videos.List([]string{"statistics", "status"}).Id(postID).Context(ctx).Do()
	if err != nil {
		return nil, model.WrapError(model.ErrUpstream, a.platform, "metrics", err)
	}
	if len(resp.Items) == 0 {
		return nil, model.NewError(model.ErrNotFound, a.platform, "metrics", "video "+postID+" not found")
	}
	out := zeroMetrics("views", "likes", "comments")
	v := resp.Items[0]
	if v.Statistics != nil {
		out["views"] = v.Statistics.ViewCount
		out["likes"] = v.Statistics.LikeCount
		out["comments"] = v.Statistics.CommentCount
	}
	if v.Status != nil {
		out["upload_status"] = v.Status.UploadStatus
		out["privacy_status"] = v.Status.PrivacyStatus
	}
	return out, nil
}

type videoSnippet struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags,omitempty"`
	CategoryID      string   `json:"categoryId"`
	DefaultLanguage string   `json:"defaultLanguage,omitempty"`
}

type videoStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids *bool  `json:"selfDeclaredMadeForKids,omitempty"`
	Embeddable              *bool  `json:"embeddable,omitempty"`
	PublicStatsViewable     *bool  `json:"publicStatsViewable,omitempty"`
}

type videoMetadata struct {
	Snippet videoSnippet `json:"snippet"`
	Status  videoStatus  `json:"status"`
}

func buildVideoMetadata(req PublishRequest) videoMetadata {
	meta := videoMetadata{
		Snippet: videoSnippet{
			Title:           truncateRunes(req.Title, youtubeMaxTitle),
			Description:     truncateRunes(req.Description, youtubeMaxDesc),
			Tags:            normalizeTags(req.Tags, youtubeMaxTags),
			CategoryID:      youtubeCategoryID,
			DefaultLanguage: youtubeLanguage,
		},
		Status: videoStatus{PrivacyStatus: youtubePrivacy},
	}
	s := req.Settings
	if v := settingString(s, "category_id"); v != "" {
		meta.Snippet.CategoryID = v
	}
	if v := strings.ToLower(settingString(s, "privacy_status")); v != "" {
		if _, ok := youtubePrivacyValues[v]; ok {
			meta.Status.PrivacyStatus = v
		}
	}
	if v := settingString(s, "default_language"); v != "" {
		meta.Snippet.DefaultLanguage = v
	}
	meta.Status.SelfDeclaredMadeForKids = settingBool(s, "made_for_kids")
	meta.Status.Embeddable = settingBool(s, "embeddable")
	meta.Status.PublicStatsViewable = settingBool(s, "public_stats_viewable")
	return meta
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// normalizeTags strips a leading '#', drops empty tags and keeps at most limit.
func normalizeTags(tags []string, limit int) []string {
	out := make([]string, 0, min(len(tags), limit))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

func settingString(s map[string]interface{}, key string) string {
	switch v := s[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func settingBool(s map[string]interface{}, key string) *bool {
	switch v := s[key].(type) {
	case bool:
		return &v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return &b
		}
	}
	return nil
}
