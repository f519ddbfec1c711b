package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads files to a Cloudinary folder. Keys are
// "<resourceType>/<publicID>" since Destroy needs both.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore connects using a cloudinary:// URL
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	if cloudinaryURL == "" {
		return nil, errors.New("CLOUDINARY_URL is not set")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

// Save uploads r with resource type auto
func (c *CloudinaryStore) Save(ctx context.Context, name, _ string, r io.Reader, size int64) (*Object, error) {
	key, err := ObjectName(name)
	if err != nil {
		return nil, err
	}
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     key,
		Folder:       c.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return &Object{Key: res.ResourceType + "/" + res.PublicID, URL: res.SecureURL, Size: size}, nil
}

// Delete destroys the asset
func (c *CloudinaryStore) Delete(ctx context.Context, key string) error {
	resourceType, publicID, ok := strings.Cut(key, "/")
	if !ok {
		return fmt.Errorf("invalid key %q", key)
	}
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: resourceType})
	return err
}
