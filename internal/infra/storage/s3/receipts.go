package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"staybook/internal/app/policies"
)

var ErrNotConfigured = errors.New("s3: receipt storage is not configured")

const refScheme = "s3://"

// ReceiptStore keeps payment receipts in a private S3-compatible bucket.
type ReceiptStore struct {
	bucket         string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewReceiptStore configures a MinIO client for endpoint.
func NewReceiptStore(endpoint string, useSSL bool, accessKey, secretKey, bucket string, logger *slog.Logger) (*ReceiptStore, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return &ReceiptStore{bucket: bucket, client: minioClient, logger: logger}, nil
}

// Upload stores the receipt and returns an s3://bucket/key reference.
func (s *ReceiptStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if body == nil {
		return "", errors.New("s3: body is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := int64(-1)
	if sized, ok := body.(interface{ Len() int }); ok {
		size = int64(sized.Len())
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	ref := ObjectRef(s.bucket, key)
	if s.logger != nil {
		s.logger.Info("receipt stored", "ref", ref, "size", info.Size)
	}
	return ref, nil
}

// Remove deletes the object behind a reference produced by Upload.
func (s *ReceiptStore) Remove(ctx context.Context, ref string) error {
	bucket, key, err := ParseObjectRef(ref)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3: remove object: %w", err)
	}
	return nil
}

// PresignedURL returns a short-lived download link for a reference produced by Upload.
func (s *ReceiptStore) PresignedURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	bucket, key, err := ParseObjectRef(ref)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	return u.String(), nil
}

func (s *ReceiptStore) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

// NoopStore fails fast when S3 is unavailable.
type NoopStore struct{}

func (NoopStore) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

func ObjectRef(bucket, key string) string {
	return refScheme + bucket + "/" + strings.TrimLeft(key, "/")
}

func ParseObjectRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, refScheme)
	if !ok {
		return "", "", fmt.Errorf("s3: invalid object reference %q", ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3: invalid object reference %q", ref)
	}
	return bucket, key, nil
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var (
	_ policies.ReceiptStorage = (*ReceiptStore)(nil)
	_ policies.ReceiptStorage = NoopStore{}
	_ policies.ReceiptRemover = (*ReceiptStore)(nil)
)
