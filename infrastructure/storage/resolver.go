package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// S3API is the part of the S3 client the resolver needs.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ObjectOpener opens a bucket object for reading.
type ObjectOpener func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// Resolver maps a catalog file location to a local path the uploader can read.
// Remote objects are downloaded once into the cache directory.
type Resolver struct {
	uploadDir string
	cacheDir  string
	s3        S3API
	gcs       ObjectOpener
}

type Option func(*Resolver)

func WithS3(client S3API) Option {
	return func(r *Resolver) { r.s3 = client }
}

func WithGCS(open ObjectOpener) Option {
	return func(r *Resolver) { r.gcs = open }
}

func NewResolver(uploadDir, cacheDir string, opts ...Option) *Resolver {
	r := &Resolver{uploadDir: uploadDir, cacheDir: cacheDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.IVideoStorage = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", model.ValidationError("video has no file location")
	}
	scheme, rest, hasScheme := strings.Cut(location, "://")
	if !hasScheme {
		return r.local(location), nil
	}
	switch scheme {
	case "file":
		return r.local(rest), nil
	case "s3":
		if r.s3 == nil {
			return "", model.NewError(model.ErrNotSupported, "", "resolve_video", "s3 storage not configured")
		}
		return r.cached(ctx, "s3", rest, r.openS3)
	case "gs":
		if r.gcs == nil {
			return "", model.NewError(model.ErrNotSupported, "", "resolve_video", "gcs storage not configured")
		}
		return r.cached(ctx, "gs", rest, r.gcs)
	}
	return "", model.ValidationError(fmt.Sprintf("unsupported video location scheme %q", scheme))
}

func (r *Resolver) local(path string) string {
	if filepath.IsAbs(path) || r.uploadDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(r.uploadDir, filepath.Clean("/"+path))
}

func (r *Resolver) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := r.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (r *Resolver) cached(ctx context.Context, scheme, rest string, open ObjectOpener) (string, error) {
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", model.ValidationError(fmt.Sprintf("malformed %s location %q", scheme, rest))
	}
	localPath := filepath.Join(r.cacheDir, scheme, bucket, filepath.Clean("/"+object))
	if info, err := os.Stat(localPath); err == nil && !info.IsDir() {
		return localPath, nil
	}
	if err := r.download(ctx, open, bucket, object, localPath); err != nil {
		return "", model.WrapError(model.ErrUpstream, "", "resolve_video", fmt.Errorf("fetch %s://%s: %w", scheme, rest, err))
	}
	logger.GetLogger().WithField("location", scheme+"://"+rest).WithField("path", localPath).Info("Video fetched into cache")
	return localPath, nil
}

func (r *Resolver) download(ctx context.Context, open ObjectOpener, bucket, object, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	body, err := open(ctx, bucket, object)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to download file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), localPath)
}
