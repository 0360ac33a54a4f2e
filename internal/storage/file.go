package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var _ Uploader = (*FileUploader)(nil)

// FileUploader writes objects below a local directory. It serves setups
// without object storage and tests.
type FileUploader struct {
	dir     string
	baseURL string
}

// NewFileUploader stores objects in dir. URLs are file:// URLs unless
// baseURL is set, in which case they are baseURL + "/" + key.
func NewFileUploader(dir, baseURL string) (*FileUploader, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &FileUploader{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (f *FileUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(f.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(target, f.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the storage directory", key)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	// write then rename so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	if f.baseURL != "" {
		return f.baseURL + "/" + key, nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String(), nil
}
