package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/Shiyikai2002/student-trading-platform/internal/app/config"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Storage stores uploaded images in a MinIO/S3 bucket and hands back their
// public URLs.
type S3Storage struct {
	client *minio.Client
	bucket string
	log    logger.Logger
}

func NewS3Storage(ctx context.Context, cfg config.S3Config, log logger.Logger) (*S3Storage, error) {
	log.Infof("initializing s3 storage endpoint=%s bucket=%s ssl=%t", cfg.Endpoint, cfg.Bucket, cfg.UseSSL)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errExists := client.BucketExists(ctx, cfg.Bucket)
		if errExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", cfg.Bucket, err, errExists)
		}
		log.Debugf("bucket %s already exists", cfg.Bucket)
	}

	return &S3Storage{client: client, bucket: cfg.Bucket, log: log}, nil
}

// Upload writes data under folder/<uuid><ext> and returns the object URL.
func (s *S3Storage) Upload(ctx context.Context, folder, originalFileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalFileName))
	objectKey := path.Join(folder, uuid.New().String()+ext)

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  http.DetectContentType(data),
		UserMetadata: map[string]string{"original-filename": filepath.Base(originalFileName)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}

	fileURL := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, info.Key)
	s.log.Debugf("uploaded %s (%d bytes)", fileURL, info.Size)
	return fileURL, nil
}
