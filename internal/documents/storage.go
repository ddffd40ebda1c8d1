package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"fleetops/fleet-portal/fleet-portal-backend/pkg/storage"
)

// StorageProvider binds an object store to the report bucket and key prefix.
type StorageProvider struct {
	s3     storage.S3Client
	bucket string
	prefix string
}

func NewStorageProvider(s3 storage.S3Client, bucket, prefix string) *StorageProvider {
	return &StorageProvider{s3: s3, bucket: bucket, prefix: prefix}
}

func (p *StorageProvider) Bucket() string {
	return p.bucket
}

// GenerateKey lays reports out as <prefix>/<kind>/<subject>/v<version>.pdf.
func (p *StorageProvider) GenerateKey(kind Kind, subjectID string, version int) string {
	return path.Join(p.prefix, string(kind), subjectID, fmt.Sprintf("v%d.pdf", version))
}

func (p *StorageProvider) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return p.s3.Upload(ctx, p.bucket, key, bytes.NewReader(data), contentType)
}

func (p *StorageProvider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return p.s3.Download(ctx, p.bucket, key)
}

func (p *StorageProvider) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return p.s3.GetPresignedURL(ctx, p.bucket, key, ttl)
}
