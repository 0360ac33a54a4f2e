package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/source"
	"github.com/ivlev/tactiboard/internal/system"
)

// SVGRasterizer decodes the serialized SVG of a surface with oksvg. oksvg
// draws shapes only, so images are painted underneath first and text is
// laid over the result.
type SVGRasterizer struct {
	images *source.Resolver
}

func NewSVGRasterizer(images *source.Resolver) *SVGRasterizer {
	return &SVGRasterizer{images: images}
}

var (
	otOnce    sync.Once
	otRegular *opentype.Font
	otBold    *opentype.Font
	otErr     error
)

func loadOpenType() error {
	otOnce.Do(func() {
		otRegular, otErr = opentype.Parse(goregular.TTF)
		if otErr != nil {
			return
		}
		otBold, otErr = opentype.Parse(gobold.TTF)
	})
	return otErr
}

func (r *SVGRasterizer) Rasterize(ctx context.Context, s renderer.VectorSurface, width, height int) (*image.RGBA, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if err := loadOpenType(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	data, err := s.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("decode svg: %w", err)
	}

	vw, vh := s.ViewBox()
	sx, sy := float64(width)/vw, float64(height)/vh
	img := system.GetImage(image.Rect(0, 0, width, height))

	for i, e := range s.Elements() {
		v, ok := e.(renderer.ImageElement)
		if !ok {
			continue
		}
		src, err := r.images.Load(ctx, v.Href)
		if err != nil {
			system.PutImage(img)
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		dst := image.Rect(int(v.X*sx+0.5), int(v.Y*sy+0.5), int((v.X+v.W)*sx+0.5), int((v.Y+v.H)*sy+0.5))
		draw.ApproxBiLinear.Scale(img, dst, src, src.Bounds(), draw.Over, nil)
	}
	if err := ctx.Err(); err != nil {
		system.PutImage(img)
		return nil, err
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)

	if err := drawText(img, s.Elements(), sx, sy); err != nil {
		system.PutImage(img)
		return nil, err
	}
	return img, nil
}

func drawText(img *image.RGBA, elements []renderer.Element, sx, sy float64) error {
	faces := map[faceKey]font.Face{}
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for _, e := range elements {
		v, ok := e.(renderer.TextElement)
		if !ok || v.Text == "" {
			continue
		}
		c, ok := parseColor(v.Fill, 1)
		if !ok {
			continue
		}

		key := faceKey{size: v.Size * sy, bold: v.Bold}
		face, ok := faces[key]
		if !ok {
			f := otRegular
			if v.Bold {
				f = otBold
			}
			var err error
			face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: key.size, DPI: 72, Hinting: font.HintingFull})
			if err != nil {
				return fmt.Errorf("font face: %w", err)
			}
			faces[key] = face
		}

		d := font.Drawer{Dst: img, Src: image.NewUniform(c), Face: face}
		m := face.Metrics()
		advance := d.MeasureString(v.Text)
		// center on (X,Y): half the advance left, half the cap box down
		d.Dot = fixed.Point26_6{
			X: fixed.Int26_6(v.X*sx*64) - advance/2,
			Y: fixed.Int26_6(v.Y*sy*64) + (m.Ascent-m.Descent)/2,
		}
		d.DrawString(v.Text)
	}
	return nil
}
