package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/platform"
	"social-publisher/infrastructure/logger"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxTags              = 50

	refreshTimeout = 30 * time.Second

	msgNoCredential  = "no credential"
	msgVideoNotFound = "video not found"
)

// PostResult is the outcome for one requested platform.
type PostResult struct {
	PostID         string           `json:"post_id,omitempty"`
	Platform       string           `json:"platform"`
	Status         model.PostStatus `json:"status"`
	PlatformPostID string           `json:"platform_post_id,omitempty"`
	PostURL        string           `json:"post_url,omitempty"`
	Error          string           `json:"error,omitempty"`
	ScheduledFor   *time.Time       `json:"scheduled_for,omitempty"`
}

type IPublishUsecase interface {
	Publish(ctx context.Context, userID string, req dto.PublishRequest) ([]PostResult, error)
	DispatchScheduled(ctx context.Context, batch int) (int, error)
	GetMetrics(ctx context.Context, userID, postID string) (model.JSONMap, error)
	GetPost(ctx context.Context, userID, postID string) (*model.Post, error)
	ListPosts(ctx context.Context, userID string, limit, offset int) ([]*model.Post, error)
	WithBroadcaster(fn func(*model.Post)) IPublishUsecase
}

type publishUsecase struct {
	posts       repository.IPost
	credentials repository.ICredential
	videos      repository.IVideo
	storage     repository.IVideoStorage
	audit       repository.IPostAudit
	registry    *platform.Registry
	timeout     time.Duration
	maxRetries  int
	broadcaster func(*model.Post)
	refreshes   *singleflight.Group
	now         func() time.Time
}

func NewPublishUsecase(
	posts repository.IPost,
	credentials repository.ICredential,
	videos repository.IVideo,
	storage repository.IVideoStorage,
	audit repository.IPostAudit,
	registry *platform.Registry,
	timeout time.Duration,
	maxRetries int,
) IPublishUsecase {
	return &publishUsecase{
		posts:       posts,
		credentials: credentials,
		videos:      videos,
		storage:     storage,
		audit:       audit,
		registry:    registry,
		timeout:     timeout,
		maxRetries:  maxRetries,
		refreshes:   &singleflight.Group{},
		now:         time.Now,
	}
}

// WithBroadcaster returns a copy that reports every post status change to fn.
func (u *publishUsecase) WithBroadcaster(fn func(*model.Post)) IPublishUsecase {
	cp := *u
	cp.broadcaster = fn
	return &cp
}

func validatePublish(req dto.PublishRequest) error {
	if strings.TrimSpace(req.VideoID) == "" {
		return model.ValidationError("video_id is required")
	}
	if len(req.Platforms) == 0 {
		return model.ValidationError("at least one platform is required")
	}
	seen := make(map[string]struct{}, len(req.Platforms))
	for _, p := range req.Platforms {
		key := strings.ToLower(strings.TrimSpace(p))
		if _, dup := seen[key]; dup {
			return model.ValidationError("duplicate platform: " + key)
		}
		seen[key] = struct{}{}
	}
	if strings.TrimSpace(req.Title) == "" {
		return model.ValidationError("title is required")
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		return model.ValidationError("title must be at most 200 characters")
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return model.ValidationError("description must be at most 5000 characters")
	}
	if len(req.Tags) > maxTags {
		return model.ValidationError("at most 50 tags are allowed")
	}
	return nil
}

// Publish uploads the video to every requested platform concurrently. A platform
// failing is reported in its own result and never affects the others.
func (u *publishUsecase) Publish(ctx context.Context, userID string, req dto.PublishRequest) ([]PostResult, error) {
	if err := validatePublish(req); err != nil {
		return nil, err
	}

	results := make([]PostResult, len(req.Platforms))
	video, err := u.videos.GetByRef(ctx, userID, req.VideoID)
	if err != nil {
		msg := msgVideoNotFound
		if !errors.Is(err, model.ErrNotFound) {
			logger.GetLogger().WithField("error", err).Error("Error while loading video")
			msg = err.Error()
		}
		for i, raw := range req.Platforms {
			results[i] = PostResult{Platform: strings.ToLower(strings.TrimSpace(raw)), Status: model.PostStatusFailed, Error: msg}
		}
		return results, nil
	}

	scheduled := req.ScheduledFor != nil && req.ScheduledFor.After(u.now())

	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range req.Platforms {
		i, raw := i, raw
		g.Go(func() error {
			results[i] = u.publishOne(gctx, userID, raw, req, video, scheduled)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (u *publishUsecase) publishOne(ctx context.Context, userID, raw string, req dto.PublishRequest, video *model.Video, scheduled bool) PostResult {
	p, ok := model.ParsePlatform(raw)
	res := PostResult{Platform: string(p), Status: model.PostStatusFailed}
	if !ok {
		res.Error = "platform not supported: " + string(p)
		return res
	}
	adapter, err := u.registry.Get(p)
	if err != nil {
		res.Error = "platform not supported: " + string(p)
		return res
	}

	cred, err := u.credentials.Get(ctx, userID, p)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logger.GetLogger().WithField("error", err).WithField("platform", p).Error("Error while loading credential")
			res.Error = err.Error()
			return res
		}
		res.Error = msgNoCredential
		return res
	}

	now := u.now().UTC()
	post := &model.Post{
		UserID:           userID,
		CredentialID:     cred.ID,
		VideoID:          video.ID,
		VideoRef:         req.VideoID,
		Platform:         p,
		Title:            req.Title,
		Description:      req.Description,
		Tags:             model.StringList(req.Tags),
		PlatformSettings: model.JSONMap(req.PlatformSettings[string(p)]),
		Status:           model.PostStatusUploading,
		MaxRetries:       u.maxRetries,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if scheduled {
		post.Status = model.PostStatusScheduled
		at := req.ScheduledFor.UTC()
		post.ScheduledFor = &at
	}
	if err := u.posts.Create(ctx, post); err != nil {
		logger.GetLogger().WithField("error", err).WithField("platform", p).Error("Error while creating post")
		res.Error = err.Error()
		return res
	}
	u.broadcast(post)

	if scheduled {
		return resultOf(post)
	}
	u.upload(ctx, post, cred, adapter, video)
	return resultOf(post)
}

// upload runs one post from UPLOADING to a terminal state and persists it.
func (u *publishUsecase) upload(ctx context.Context, post *model.Post, cred *model.Credential, adapter platform.Adapter, video *model.Video) {
	lg := logger.GetLogger().WithField("post_id", post.ID).WithField("platform", post.Platform)
	// Terminal writes must land even when the upload ran out of time.
	store := context.WithoutCancel(ctx)

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	path, err := u.storage.Resolve(ctx, video.FilePath)
	if err != nil {
		lg.WithField("error", err).Error("Error while resolving video file")
		u.finish(store, post, platform.PublishResult{Error: err.Error()})
		return
	}

	token, err := u.accessToken(ctx, adapter, cred)
	if err != nil {
		lg.WithField("error", err).Warn("Credential expired")
		u.finish(store, post, platform.PublishResult{Error: err.Error()})
		return
	}

	result := adapter.PublishVideo(ctx, token, platform.PublishRequest{
		FilePath:    path,
		Title:       post.Title,
		Description: post.Description,
		Tags:        post.Tags,
		Settings:    post.PlatformSettings,
	})
	if !result.Success {
		lg.WithField("error", result.Error).Warn("Publish failed")
	}
	u.finish(store, post, result)
	if err := u.credentials.Touch(store, cred.ID); err != nil {
		lg.WithField("error", err).Warn("Error while touching credential")
	}
}

func (u *publishUsecase) finish(ctx context.Context, post *model.Post, result platform.PublishResult) {
	now := u.now().UTC()
	post.RetryCount = result.Retries
	if result.Success {
		post.MarkPosted(result.PostID, result.PostURL, result.Metrics, now)
	} else {
		post.MarkFailed(result.Error, now)
	}
	if err := u.posts.Update(ctx, post); err != nil {
		logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Error("Error while updating post")
	}
	u.broadcast(post)
	if err := u.audit.Record(ctx, model.NewPostAudit(post, now)); err != nil {
		logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Warn("Error while recording post audit")
	}
}

// accessToken returns a usable token, refreshing it first when expired.
// Concurrent refreshes of the same credential share one provider call.
func (u *publishUsecase) accessToken(ctx context.Context, adapter platform.Adapter, cred *model.Credential) (string, error) {
	if !cred.IsExpired(u.now()) {
		return cred.AccessToken, nil
	}
	if !cred.HasRefreshToken() {
		return "", model.NewError(model.ErrAuthExpired, cred.Platform, "refresh", "access token expired and no refresh token")
	}
	refreshToken := *cred.RefreshToken
	// Shared by every waiter on this credential; detached from the first caller.
	v, err, _ := u.refreshes.Do(cred.ID, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		tokens, err := adapter.Refresh(rctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if err := u.credentials.UpdateTokens(rctx, cred.ID, tokens); err != nil {
			logger.GetLogger().WithField("error", err).WithField("credential_id", cred.ID).Error("Error while saving refreshed tokens")
		}
		return tokens, nil
	})
	if err != nil {
		return "", model.WrapError(model.ErrAuthExpired, cred.Platform, "refresh", err)
	}
	cred.ApplyTokens(v.(model.TokenBundle))
	return cred.AccessToken, nil
}

func (u *publishUsecase) broadcast(post *model.Post) {
	if u.broadcaster == nil {
		return
	}
	cp := *post
	u.broadcaster(&cp)
}

// DispatchScheduled claims due scheduled posts and uploads them. Posts claimed
// by another instance are skipped.
func (u *publishUsecase) DispatchScheduled(ctx context.Context, batch int) (int, error) {
	due, err := u.posts.ListDueScheduled(ctx, u.now().UTC(), batch)
	if err != nil {
		return 0, err
	}

	var claimed []*model.Post
	for _, post := range due {
		ok, err := u.posts.ClaimScheduled(ctx, post.ID)
		if err != nil {
			logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Error("Error while claiming scheduled post")
			continue
		}
		if !ok {
			continue
		}
		post.Status = model.PostStatusPending
		u.broadcast(post)
		claimed = append(claimed, post)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, post := range claimed {
		post := post
		g.Go(func() error {
			u.runScheduled(gctx, post)
			return nil
		})
	}
	_ = g.Wait()
	return len(claimed), nil
}

func (u *publishUsecase) runScheduled(ctx context.Context, post *model.Post) {
	store := context.WithoutCancel(ctx)
	adapter, err := u.registry.Get(post.Platform)
	if err != nil {
		u.finish(store, post, platform.PublishResult{Error: "platform not supported: " + string(post.Platform)})
		return
	}
	cred, err := u.credentials.GetByID(ctx, post.UserID, post.CredentialID)
	if err != nil {
		u.finish(store, post, platform.PublishResult{Error: msgNoCredential})
		return
	}
	video, err := u.videos.GetByRef(ctx, post.UserID, post.VideoRef)
	if err != nil {
		u.finish(store, post, platform.PublishResult{Error: msgVideoNotFound})
		return
	}

	post.Status = model.PostStatusUploading
	post.UpdatedAt = u.now().UTC()
	if err := u.posts.Update(store, post); err != nil {
		logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Error("Error while updating post")
	}
	u.broadcast(post)
	u.upload(ctx, post, cred, adapter, video)
}

// GetMetrics returns fresh metrics for a posted video, falling back to the
// stored ones when the platform cannot be reached.
func (u *publishUsecase) GetMetrics(ctx context.Context, userID, postID string) (model.JSONMap, error) {
	post, err := u.posts.GetByID(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	metrics := model.JSONMap{}
	for k, v := range post.Metrics {
		metrics[k] = v
	}

	if post.Status == model.PostStatusPosted && post.PlatformPostID != nil {
		fresh, err := u.fetchMetrics(ctx, post)
		switch {
		case errors.Is(err, model.ErrNotSupported):
			// stub platforms keep their stored snapshot
		case err != nil:
			logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Warn("Using stored metrics")
		case len(fresh) > 0:
			metrics = fresh
			if err := u.posts.UpdateMetrics(ctx, post.ID, fresh, u.now().UTC()); err != nil {
				logger.GetLogger().WithField("error", err).WithField("post_id", post.ID).Warn("Error while saving metrics")
			}
		}
	}

	metrics["status"] = post.Status
	metrics["platform"] = post.Platform
	return metrics, nil
}

func (u *publishUsecase) fetchMetrics(ctx context.Context, post *model.Post) (model.JSONMap, error) {
	adapter, err := u.registry.Get(post.Platform)
	if err != nil {
		return nil, err
	}
	cred, err := u.credentials.GetByID(ctx, post.UserID, post.CredentialID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	token, err := u.accessToken(ctx, adapter, cred)
	if err != nil {
		return nil, err
	}
	return adapter.FetchMetrics(ctx, token, *post.PlatformPostID)
}

func (u *publishUsecase) GetPost(ctx context.Context, userID, postID string) (*model.Post, error) {
	return u.posts.GetByID(ctx, userID, postID)
}

func (u *publishUsecase) ListPosts(ctx context.Context, userID string, limit, offset int) ([]*model.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return u.posts.ListByUser(ctx, userID, limit, offset)
}

func resultOf(p *model.Post) PostResult {
	r := PostResult{
		PostID:       p.ID,
		Platform:     string(p.Platform),
		Status:       p.Status,
		ScheduledFor: p.ScheduledFor,
	}
	if p.PlatformPostID != nil {
		r.PlatformPostID = *p.PlatformPostID
	}
	if p.PostURL != nil {
		r.PostURL = *p.PostURL
	}
	if p.ErrorMessage != nil {
		r.Error = *p.ErrorMessage
	}
	return r
}
