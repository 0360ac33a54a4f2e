// Package storage uploads exported rasters and background images and hands
// back a stable URL for them.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ivlev/tactiboard/internal/config"
)

var ErrEmptyKey = errors.New("storage key is required")

// Uploader stores data under key and returns a URL for it. Uploading the
// same key twice overwrites the object.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New returns the uploader selected by cfg.Backend, or nil for "none".
func New(cfg config.StorageConfig, logger *zap.Logger) (Uploader, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "file":
		u, err := NewFileUploader(cfg.Dir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return u, nil
	case "s3":
		u, err := NewS3Uploader(&cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// RasterKey is the object key of a scene raster. It only depends on the
// scene id and the image bytes, so retrying an upload hits the same key.
func RasterKey(prefix, sceneID string, data []byte) string {
	return join(prefix, "scenes", safe(sceneID), digest(data)+".png")
}

// BackgroundKey is the object key of an uploaded background image.
func BackgroundKey(prefix, name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		ext = ".png"
	}
	return join(prefix, "backgrounds", digest(data)+ext)
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// safe keeps ids from escaping their key prefix.
func safe(id string) string {
	if id == "" {
		return "unsaved"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(id)
}
