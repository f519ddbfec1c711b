package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore puts files into a MinIO bucket
type MinioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	scheme   string
}

// NewMinioStore creates the client. The bucket must already exist.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	if endpoint == "" {
		return nil, errors.New("MINIO_ENDPOINT is not set")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return &MinioStore{client: client, bucket: bucket, endpoint: endpoint, scheme: scheme}, nil
}

// Save uploads r
func (m *MinioStore) Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (*Object, error) {
	key, err := ObjectName(name)
	if err != nil {
		return nil, err
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("minio put object: %w", err)
	}
	return &Object{
		Key:  key,
		URL:  fmt.Sprintf("%s://%s/%s/%s", m.scheme, m.endpoint, m.bucket, key),
		Size: info.Size,
	}, nil
}

// Delete removes the object
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}
