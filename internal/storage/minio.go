// Package storage archives generated documents in an S3 compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Archive stores documents by key.
type Archive interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type MinIOArchive struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

// NewMinIOArchive connects and creates the bucket when missing.
func NewMinIOArchive(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, log *zap.Logger) (*MinIOArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("bucket created", zap.String("bucket", bucket))
	}
	return &MinIOArchive{client: client, bucket: bucket, log: log}, nil
}

func (m *MinIOArchive) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	m.log.Debug("document archived", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// URL returns a presigned download link valid for ttl.
func (m *MinIOArchive) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return u.String(), nil
}

// ProposalKey is the object key of a proposal PDF. It changes with the
// proposal status so an answered proposal gets its own copy.
func ProposalKey(partnerID, proposalID uint, status string) string {
	return fmt.Sprintf("partners/%d/proposals/%d-%s.pdf", partnerID, proposalID, status)
}
