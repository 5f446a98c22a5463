package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httputil"
	"social-publisher/infrastructure/logger"
)

const (
	uploadChunkQuantum = 256 * 1024
	defaultChunkSize   = 8 * 1024 * 1024
	defaultMaxFileSize = int64(128 << 30)
	statusResumeUpload = 308
	defaultUploadMime  = "video/*"
	maxUploadBodyBytes = 1 << 20
)

// UploadConfig tunes the resumable upload.
type UploadConfig struct {
	ChunkSize       int64
	MaxRetries      int
	MaxFileSize     int64
	RetriableStatus []int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	RequestTimeout  time.Duration
}

func (c UploadConfig) withDefaults() UploadConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	// The protocol requires every non-final chunk to be a multiple of 256 KiB.
	if c.ChunkSize%uploadChunkQuantum != 0 {
		c.ChunkSize = (c.ChunkSize/uploadChunkQuantum + 1) * uploadChunkQuantum
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if len(c.RetriableStatus) == 0 {
		c.RetriableStatus = []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Minute
	}
	return c
}

func (c UploadConfig) retryConfig() httputil.RetryConfig {
	return httputil.RetryConfig{
		MaxRetries:      c.MaxRetries,
		InitialDelay:    c.InitialDelay,
		MaxDelay:        c.MaxDelay,
		Multiplier:      2,
		RetriableStatus: c.RetriableStatus,
	}
}

type resumableUploader struct {
	client    *http.Client
	uploadURL string
	config    UploadConfig
}

func newResumableUploader(client *http.Client, uploadURL string, config UploadConfig) *resumableUploader {
	return &resumableUploader{client: client, uploadURL: uploadURL, config: config.withDefaults()}
}

// Upload runs the whole protocol and returns the new video id and the number of retries spent.
func (u *resumableUploader) Upload(ctx context.Context, accessToken, path string, size int64, meta videoMetadata) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, model.NewError(model.ErrValidation, model.PlatformYouTube, "publish_video", "open video file: "+err.Error())
	}
	defer f.Close()

	sessionURL, retries, err := u.initiate(ctx, accessToken, path, size, meta)
	if err != nil {
		return "", retries, err
	}

	buf := make([]byte, u.config.ChunkSize)
	var offset int64
	var lastErr string
	attempts := 0
	backoff := httputil.NewBackoff(u.config.retryConfig())
	retryCfg := u.config.retryConfig()
	log := logger.GetLogger().WithField("platform", model.PlatformYouTube)

	for offset < size {
		n, readErr := f.ReadAt(buf[:min(u.config.ChunkSize, size-offset)], offset)
		if readErr != nil && readErr != io.EOF {
			return "", retries, model.WrapError(model.ErrUpload, model.PlatformYouTube, "read_chunk", readErr)
		}

		status, header, body, sendErr := u.sendChunk(ctx, accessToken, sessionURL, buf[:n], offset, size)
		retry := false
		switch {
		case sendErr != nil:
			if ctx.Err() != nil || !httputil.IsRetriableError(sendErr) {
				return "", retries, model.WrapError(model.ErrUpload, model.PlatformYouTube, "upload_chunk", sendErr)
			}
			lastErr = sendErr.Error()
			retry = true
		case status == http.StatusOK || status == http.StatusCreated:
			var video struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(body, &video); err != nil || video.ID == "" {
				return "", retries, model.NewError(model.ErrUpload, model.PlatformYouTube, "upload_chunk", "upload finished without a video id: "+string(body))
			}
			return video.ID, retries, nil
		case status == statusResumeUpload:
			next, ok := parseRangeHeader(header.Get("Range"))
			if !ok {
				lastErr = "resume response without Range header"
				retry = true
				break
			}
			log.WithField("acknowledged", next).WithField("size", size).Debug("chunk acknowledged")
			offset = next
			attempts = 0
			backoff = httputil.NewBackoff(retryCfg)
		case retryCfg.IsRetriableStatus(status):
			lastErr = fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
			retry = true
		default:
			return "", retries, model.NewError(model.ErrUpload, model.PlatformYouTube, "upload_chunk",
				fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
		}

		if retry {
			attempts++
			if attempts > u.config.MaxRetries {
				return "", retries, model.NewError(model.ErrUpload, model.PlatformYouTube, "upload_chunk",
					fmt.Sprintf("giving up after %d retries at byte %d: %s", u.config.MaxRetries, offset, lastErr))
			}
			retries++
			log.WithField("offset", offset).WithField("attempt", attempts).WithField("error", lastErr).Warn("retrying chunk")
			if err := backoff.Sleep(ctx); err != nil {
				return "", retries, model.WrapError(model.ErrUpload, model.PlatformYouTube, "upload_chunk", err)
			}
		}
	}
	return "", retries, model.NewError(model.ErrUpload, model.PlatformYouTube, "upload_chunk", "all bytes acknowledged but no video id returned")
}

// initiate opens an upload session and returns its URL from the Location header.
func (u *resumableUploader) initiate(ctx context.Context, accessToken, path string, size int64, meta videoMetadata) (string, int, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", 0, model.WrapError(model.ErrUpload, model.PlatformYouTube, "initiate_upload", err)
	}
	target := u.uploadURL + "?uploadType=resumable&part=snippet,status"
	retryCfg := u.config.retryConfig()
	backoff := httputil.NewBackoff(retryCfg)
	retries := 0

	for {
		reqCtx, cancel := context.WithTimeout(ctx, u.config.RequestTimeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			cancel()
			return "", retries, model.WrapError(model.ErrUpload, model.PlatformYouTube, "initiate_upload", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
		req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
		req.Header.Set("X-Upload-Content-Type", videoMimeType(path))

		resp, err := u.client.Do(req)
		var lastErr string
		if err != nil {
			cancel()
			if ctx.Err() != nil || !httputil.IsRetriableError(err) {
				return "", retries, model.WrapError(model.ErrUpload, model.PlatformYouTube, "initiate_upload", err)
			}
			lastErr = err.Error()
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxUploadBodyBytes))
			resp.Body.Close()
			cancel()
			if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
				location := resp.Header.Get("Location")
				if location == "" {
					return "", retries, model.NewError(model.ErrUpload, model.PlatformYouTube, "initiate_upload", "no upload session URL returned")
				}
				return location, retries, nil
			}
			lastErr = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if !retryCfg.IsRetriableStatus(resp.StatusCode) {
				return "", retries, model.NewError(model.ErrUpload, model.PlatformYouTube, "initiate_upload", lastErr)
			}
		}
		if retries >= u.config.MaxRetries {
			return "", retries, model.NewError(model.ErrUpload, model.PlatformYouTube, "initiate_upload",
				fmt.Sprintf("giving up after %d retries: %s", retries, lastErr))
		}
		retries++
		if err := backoff.Sleep(ctx); err != nil {
			return "", retries, model.WrapError(model.ErrUpload, model.PlatformYouTube, "initiate_upload", err)
		}
	}
}

func (u *resumableUploader) sendChunk(ctx context.Context, accessToken, sessionURL string, chunk []byte, offset, size int64) (int, http.Header, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, u.config.RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, sessionURL, bytes.NewReader(chunk))
	if err != nil {
		return 0, nil, nil, err
	}
	end := offset + int64(len(chunk)) - 1
	req.ContentLength = int64(len(chunk))
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, size))

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBodyBytes))
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

// parseRangeHeader turns "bytes=0-1048575" into the next offset to send.
func parseRangeHeader(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "bytes=") {
		return 0, false
	}
	parts := strings.SplitN(strings.TrimPrefix(v, "bytes="), "-", 2)
	if len(parts) != 2 {
		return 0, false
	}
	last, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || last < 0 {
		return 0, false
	}
	return last + 1, true
}

var videoMimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
}

func videoMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoMimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "video/") {
		return t
	}
	return defaultUploadMime
}
