package model

import "time"

type PostStatus string

const (
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPending   PostStatus = "pending"
	PostStatusUploading PostStatus = "uploading"
	PostStatusPosted    PostStatus = "posted"
	PostStatusFailed    PostStatus = "failed"
)

func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPosted || s == PostStatusFailed
}

// Post is one publish attempt of a video to one platform account.
type Post struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	CredentialID      string     `json:"account_id"`
	VideoID           string     `json:"video_id"`
	VideoRef          string     `json:"video_ref"`
	Platform          Platform   `json:"platform"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Tags              StringList `json:"tags"`
	PlatformSettings  JSONMap    `json:"platform_settings"`
	Status            PostStatus `json:"status"`
	PlatformPostID    *string    `json:"platform_post_id,omitempty"`
	PostURL           *string    `json:"post_url,omitempty"`
	Metrics           JSONMap    `json:"metrics"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	RetryCount        int        `json:"retry_count"`
	MaxRetries        int        `json:"max_retries"`
	ScheduledFor      *time.Time `json:"scheduled_for,omitempty"`
	PostedAt          *time.Time `json:"posted_at,omitempty"`
	LastMetricsUpdate *time.Time `json:"last_metrics_update,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// MarkPosted moves the post into POSTED.
func (p *Post) MarkPosted(platformPostID, url string, metrics JSONMap, now time.Time) {
	p.Status = PostStatusPosted
	if platformPostID != "" {
		p.PlatformPostID = &platformPostID
	}
	if url != "" {
		p.PostURL = &url
	}
	if metrics != nil {
		p.Metrics = metrics
	}
	p.ErrorMessage = nil
	p.PostedAt = &now
	p.UpdatedAt = now
}

// MarkFailed moves the post into FAILED with the given reason.
func (p *Post) MarkFailed(reason string, now time.Time) {
	p.Status = PostStatusFailed
	p.ErrorMessage = &reason
	p.UpdatedAt = now
}

// PostAudit is one entry of the append-only publish attempt log.
type PostAudit struct {
	PostID     string     `json:"post_id" bson:"post_id"`
	UserID     string     `json:"user_id" bson:"user_id"`
	Platform   Platform   `json:"platform" bson:"platform"`
	Status     PostStatus `json:"status" bson:"status"`
	Error      string     `json:"error,omitempty" bson:"error,omitempty"`
	Retries    int        `json:"retries" bson:"retries"`
	OccurredAt time.Time  `json:"occurred_at" bson:"occurred_at"`
}

func NewPostAudit(p *Post, now time.Time) PostAudit {
	a := PostAudit{
		PostID:     p.ID,
		UserID:     p.UserID,
		Platform:   p.Platform,
		Status:     p.Status,
		Retries:    p.RetryCount,
		OccurredAt: now,
	}
	if p.ErrorMessage != nil {
		a.Error = *p.ErrorMessage
	}
	return a
}

// PostEvent is the status change notification fanned out to SSE subscribers and message brokers.
type PostEvent struct {
	Type           string     `json:"type"`
	PostID         string     `json:"post_id"`
	UserID         string     `json:"user_id"`
	VideoID        string     `json:"video_id"`
	Platform       Platform   `json:"platform"`
	Status         PostStatus `json:"status"`
	PlatformPostID *string    `json:"platform_post_id,omitempty"`
	PostURL        *string    `json:"post_url,omitempty"`
	Error          *string    `json:"error,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

const PostEventType = "post_status"

func NewPostEvent(p *Post, now time.Time) PostEvent {
	return PostEvent{
		Type:           PostEventType,
		PostID:         p.ID,
		UserID:         p.UserID,
		VideoID:        p.VideoID,
		Platform:       p.Platform,
		Status:         p.Status,
		PlatformPostID: p.PlatformPostID,
		PostURL:        p.PostURL,
		Error:          p.ErrorMessage,
		OccurredAt:     now,
	}
}
