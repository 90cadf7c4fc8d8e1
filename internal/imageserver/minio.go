package imageserver

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reface/internal/config"
	"reface/internal/services"
)

// MinioStore persists images in an object storage bucket.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	useSSL        bool
	endpoint      string
}

// NewMinioStore connects to the configured MinIO endpoint. Bucket existence is
// checked lazily on first Put so daemon startup does not depend on object
// storage being reachable.
func NewMinioStore(cfg config.ImageStore) (*MinioStore, error) {
	if cfg.MinIO.Endpoint == "" || cfg.MinIO.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "imageserver", "minio",
			"minio backend requires endpoint and bucket", nil)
	}
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "imageserver", "minio", "connect to minio", err)
	}
	return &MinioStore{
		client:        client,
		bucket:        cfg.MinIO.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		useSSL:        cfg.MinIO.UseSSL,
		endpoint:      cfg.MinIO.Endpoint,
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, projectID, filename string, data []byte) (string, error) {
	projectID = sanitizeName(projectID)
	filename = sanitizeName(filename)
	if filename == "" {
		return "", services.Wrap(services.ErrValidation, "imageserver", "put", "filename is required", nil)
	}

	key := filename
	if projectID != "" {
		key = projectID + "/" + filename
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "imageserver", "put", "check bucket", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", services.Wrap(services.ErrPersistence, "imageserver", "put", "create bucket", err)
		}
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "imageserver", "put", "store object", err)
	}

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + s.bucket + "/" + key, nil
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key), nil
}
