package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore writes files under a local directory served at urlPrefix
type DiskStore struct {
	dir       string
	urlPrefix string
}

// NewDiskStore returns a store rooted at dir
func NewDiskStore(dir, urlPrefix string) *DiskStore {
	return &DiskStore{dir: dir, urlPrefix: urlPrefix}
}

// Dir is the directory files are written to
func (d *DiskStore) Dir() string {
	return d.dir
}

// Save copies r into a new file named after name
func (d *DiskStore) Save(ctx context.Context, name, _ string, r io.Reader, _ int64) (*Object, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	key, err := ObjectName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(d.dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &Object{Key: key, URL: d.urlPrefix + key, Size: n}, nil
}

// Delete removes the file. A missing file is not an error.
func (d *DiskStore) Delete(_ context.Context, key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid key %q", key)
	}
	err := os.Remove(filepath.Join(d.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
