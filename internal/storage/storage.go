// Package storage uploads pipeline outputs to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/Boptone/boptone-ai-sub008/internal/telemetry"
)

// PutResult describes a stored object.
type PutResult struct {
	Key  string
	URL  string
	Size int64
}

// ObjectStore is the durable storage surface the pipeline requires. Writes
// are at-least-once: repeated puts for the same key overwrite predictably.
type ObjectStore interface {
	PutFile(ctx context.Context, key, localPath, contentType string) (PutResult, error)
	FetchFile(ctx context.Context, key, localPath string) error
}

// MinioOptions configure the object storage connection.
type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	Bucket        string
	PublicBaseURL string
	PutRetries    int
	PutBackoff    time.Duration
}

// MinioStore stores objects in a single bucket on an S3-compatible backend.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	baseURL    string
	putRetries int
	putBackoff time.Duration
}

// NewMinioStore connects to object storage and ensures the media bucket
// exists.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		telemetry.Logger.Info("Created media bucket", zap.String("bucket", opts.Bucket))
	}

	retries := opts.PutRetries
	if retries < 1 {
		retries = 1
	}

	return &MinioStore{
		client:     client,
		bucket:     opts.Bucket,
		baseURL:    strings.TrimRight(opts.PublicBaseURL, "/"),
		putRetries: retries,
		putBackoff: opts.PutBackoff,
	}, nil
}

// PutFile uploads a local file under the given key, retrying transient
// failures with backoff.
func (m *MinioStore) PutFile(ctx context.Context, key, localPath, contentType string) (PutResult, error) {
	var lastErr error
	for attempt := 1; attempt <= m.putRetries; attempt++ {
		info, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err == nil {
			return PutResult{Key: key, URL: m.objectURL(key), Size: info.Size}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		telemetry.Logger.Warn("Object upload failed, retrying",
			zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-time.After(m.putBackoff):
		case <-ctx.Done():
			return PutResult{}, ctx.Err()
		}
	}
	return PutResult{}, fmt.Errorf("put object %q: %w", key, lastErr)
}

// FetchFile downloads an object to a local path.
func (m *MinioStore) FetchFile(ctx context.Context, key, localPath string) error {
	if err := m.client.FGetObject(ctx, m.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("fetch object %q: %w", key, err)
	}
	return nil
}

func (m *MinioStore) objectURL(key string) string {
	return m.baseURL + "/" + m.bucket + "/" + key
}
