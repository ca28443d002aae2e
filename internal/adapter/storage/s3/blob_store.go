package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// BlobStore writes image bytes to an S3-compatible bucket.
type BlobStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *logger.Logger
}

// NewMinioClient builds a client for endpoint (host:port, no scheme).
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}
	return client, nil
}

// NewBlobStore returns a store writing to bucket. Public URLs are
// <endpoint>/<bucket>/<key>.
func NewBlobStore(client *minio.Client, bucket string, log *logger.Logger) *BlobStore {
	return &BlobStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(client.EndpointURL().String(), "/") + "/" + bucket,
		logger:  log.Named("BlobStore"),
	}
}

// EnsureBucket creates the bucket unless it already exists.
func (s *BlobStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		s.logger.Info("Bucket already exists", zap.String("bucket", s.bucket))
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to make bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("Bucket created", zap.String("bucket", s.bucket))
	return nil
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("bucket", s.bucket), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("BlobStore.Put %s: %w", key, err)
	}
	s.logger.Debug("Object uploaded",
		zap.String("key", key), zap.Int64("size", info.Size), zap.String("etag", info.ETag))
	return s.baseURL + "/" + key, nil
}
