package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

type fakeS3 struct {
	calls int32
	body  string
	err   error
	key   string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	atomic.AddInt32(&f.calls, 1)
	f.key = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestResolver_LocalPaths(t *testing.T) {
	r := NewResolver("/srv/uploads", t.TempDir())

	tests := []struct {
		location string
		want     string
	}{
		{"/data/v1.mp4", "/data/v1.mp4"},
		{"user-1/v1.mp4", "/srv/uploads/user-1/v1.mp4"},
		{"file:///data/v2.mp4", "/data/v2.mp4"},
		{"../../etc/passwd", "/srv/uploads/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.location)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_S3DownloadsOnce(t *testing.T) {
	cache := t.TempDir()
	client := &fakeS3{body: "video-bytes"}
	r := NewResolver("", cache, WithS3(client))

	path, err := r.Resolve(context.Background(), "s3://renders/user-1/v1.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "s3", "renders", "user-1", "v1.mp4"), path)
	assert.Equal(t, "renders/user-1/v1.mp4", client.key)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	again, err := r.Resolve(context.Background(), "s3://renders/user-1/v1.mp4")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.calls))
}

func TestResolver_S3FailureLeavesNoFile(t *testing.T) {
	cache := t.TempDir()
	r := NewResolver("", cache, WithS3(&fakeS3{err: errors.New("NoSuchKey")}))

	_, err := r.Resolve(context.Background(), "s3://renders/missing.mp4")

	require.ErrorIs(t, err, model.ErrUpstream)
	assert.Contains(t, err.Error(), "NoSuchKey")
	_, statErr := os.Stat(filepath.Join(cache, "s3", "renders", "missing.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolver_GCS(t *testing.T) {
	var gotBucket, gotObject string
	open := func(_ context.Context, bucket, object string) (io.ReadCloser, error) {
		gotBucket, gotObject = bucket, object
		return io.NopCloser(strings.NewReader("gcs-bytes")), nil
	}
	r := NewResolver("", t.TempDir(), WithGCS(open))

	path, err := r.Resolve(context.Background(), "gs://clips/final/v9.mov")

	require.NoError(t, err)
	assert.Equal(t, "clips", gotBucket)
	assert.Equal(t, "final/v9.mov", gotObject)
	assert.Equal(t, "v9.mov", filepath.Base(path))
}

func TestResolver_Rejections(t *testing.T) {
	r := NewResolver("", t.TempDir())

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = r.Resolve(context.Background(), "https://cdn.example.com/v.mp4")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = r.Resolve(context.Background(), "s3://bucket/key.mp4")
	assert.ErrorIs(t, err, model.ErrNotSupported)

	withS3 := NewResolver("", t.TempDir(), WithS3(&fakeS3{}))
	_, err = withS3.Resolve(context.Background(), "s3://bucket-only")
	assert.ErrorIs(t, err, model.ErrValidation)
}
