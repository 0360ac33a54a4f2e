// Package raster turns a rendered vector surface into pixels.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/source"
)

var ErrUnknownVariant = errors.New("unknown rasterizer variant")

// Rasterizer paints a surface onto a width x height image. The returned
// image comes from system.GetImage and may be handed back with
// system.PutImage once encoded.
type Rasterizer interface {
	Rasterize(ctx context.Context, s renderer.VectorSurface, width, height int) (*image.RGBA, error)
}

// Variants lists the names accepted by New.
var Variants = []string{"canvas", "svg"}

// New creates a rasterizer based on the specified variant. Image elements
// are resolved through images; nil uses a default resolver.
func New(variant string, images *source.Resolver) (Rasterizer, error) {
	if images == nil {
		images = source.NewResolver(nil)
	}
	switch variant {
	case "canvas", "":
		return NewCanvasRasterizer(images), nil
	case "svg":
		return NewSVGRasterizer(images), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, variant)
	}
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", width, height)
	}
	return nil
}
