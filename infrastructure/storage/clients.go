package storage

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"social-publisher/infrastructure/configuration"
)

// NewS3Client builds an S3 client; a custom endpoint (MinIO) switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg configuration.S3) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// GCSOpener wraps a Cloud Storage client as an ObjectOpener.
type GCSOpener struct {
	client *gcs.Client
}

func NewGCSOpener(ctx context.Context) (*GCSOpener, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSOpener{client: client}, nil
}

func (o *GCSOpener) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return o.client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (o *GCSOpener) Close() error {
	return o.client.Close()
}
