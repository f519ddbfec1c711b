// Package storage persists uploaded files. The disk store is the default;
// Cloudinary, S3 and MinIO are selected with STORAGE_BACKEND.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/chakshi/chakshi-api/config"
)

// Object describes a stored file. Key is what Delete takes.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// FileStore saves and removes uploaded files
type FileStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (*Object, error)
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectName derives a collision free object name from an uploaded file name
func ObjectName(original string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "file"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return id + "-" + base, nil
}

// New builds the file store named by conf.StorageBackend
func New(ctx context.Context, conf *config.Config) (FileStore, error) {
	switch strings.ToLower(conf.StorageBackend) {
	case "", "disk":
		return NewDiskStore(conf.UploadDir, "/uploads/"), nil
	case "cloudinary":
		return NewCloudinaryStore(conf.CloudinaryURL, conf.CloudinaryDir)
	case "s3":
		return NewS3Store(ctx, conf.S3Bucket, conf.S3PublicURL)
	case "minio":
		return NewMinioStore(conf.MinioEndpoint, conf.MinioAccessKey, conf.MinioSecretKey, conf.MinioBucket, conf.MinioUseSSL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", conf.StorageBackend)
	}
}
