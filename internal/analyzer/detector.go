// Package analyzer finds the drawn part of a drill sheet so that page
// margins are not stretched over the scene when a PDF page becomes the
// background.
package analyzer

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Detector reports the region of img that carries content.
type Detector interface {
	Bounds(img image.Image) (image.Rectangle, bool)
}

// Variants lists the names accepted by NewDetector.
var Variants = []string{"contrast", "none"}

// NewDetector creates a detector based on the specified variant.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	case "none":
		return noDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}

type noDetector struct{}

func (noDetector) Bounds(image.Image) (image.Rectangle, bool) { return image.Rectangle{}, false }

// Trim crops img to the content found by d. Images without a clear content
// region are returned as they are.
func Trim(img image.Image, d Detector) image.Image {
	rect, ok := d.Bounds(img)
	if !ok {
		return img
	}
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(rect)
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(out, image.Point{}, img, rect, draw.Src, nil)
	return out
}
