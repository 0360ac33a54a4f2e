// Package renderer maps a scene document to a drawable vector surface.
//
// The surface is a flat list of primitive elements in paint order, laid out
// in a fixed 100x60 view box. It can be painted directly by a rasterizer or
// serialized to a standalone SVG document.
package renderer

import (
	"errors"

	"github.com/ivlev/tactiboard/internal/geometry"
)

var ErrInvalidSurface = errors.New("invalid surface")

// VectorSurface is what the export pipeline hands to a rasterizer.
type VectorSurface interface {
	ViewBox() (width, height float64)
	Elements() []Element
	Serialize() ([]byte, error)
}

// Style is the paint of a shape. Empty colors mean "none". Dash holds the
// on/off lengths of a dashed stroke.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64
	Dash        []float64
}

// Element is one primitive of the surface.
type Element interface {
	element()
}

// RectElement is positioned by its top-left corner.
type RectElement struct {
	X, Y, W, H float64
	Style      Style
}

type CircleElement struct {
	CX, CY, R float64
	Style     Style
}

type LineElement struct {
	X1, Y1, X2, Y2 float64
	Style          Style
}

type PolygonElement struct {
	Points []geometry.Point
	Style  Style
}

// TextElement is centered on (X,Y).
type TextElement struct {
	X, Y float64
	Text string
	Size float64
	Fill string
	Bold bool
}

// ImageElement stretches Href over its box.
type ImageElement struct {
	X, Y, W, H float64
	Href       string
}

func (RectElement) element()    {}
func (CircleElement) element()  {}
func (LineElement) element()    {}
func (PolygonElement) element() {}
func (TextElement) element()    {}
func (ImageElement) element()   {}

// Surface is the rendered form of a document.
type Surface struct {
	width    float64
	height   float64
	elements []Element
}

func newSurface() *Surface {
	return &Surface{width: geometry.ViewWidth, height: geometry.ViewHeight}
}

func (s *Surface) ViewBox() (float64, float64) {
	return s.width, s.height
}

func (s *Surface) Elements() []Element {
	return s.elements
}

func (s *Surface) add(e ...Element) {
	s.elements = append(s.elements, e...)
}
