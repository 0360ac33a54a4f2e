package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/source"
	"github.com/ivlev/tactiboard/internal/system"
)

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsErr = truetype.Parse(goregular.TTF)
		if fontsErr != nil {
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

// CanvasRasterizer paints surface elements straight onto a gg context.
type CanvasRasterizer struct {
	images *source.Resolver
}

func NewCanvasRasterizer(images *source.Resolver) *CanvasRasterizer {
	return &CanvasRasterizer{images: images}
}

type faceKey struct {
	size float64
	bold bool
}

func (r *CanvasRasterizer) Rasterize(ctx context.Context, s renderer.VectorSurface, width, height int) (*image.RGBA, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	vw, vh := s.ViewBox()
	sx, sy := float64(width)/vw, float64(height)/vh
	img := system.GetImage(image.Rect(0, 0, width, height))
	dc := gg.NewContextForRGBA(img)

	faces := map[faceKey]font.Face{}
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for i, e := range s.Elements() {
		if err := ctx.Err(); err != nil {
			system.PutImage(img)
			return nil, err
		}

		switch v := e.(type) {
		case renderer.RectElement:
			dc.DrawRectangle(v.X*sx, v.Y*sy, v.W*sx, v.H*sy)
			paint(dc, v.Style, sx)
		case renderer.CircleElement:
			dc.DrawEllipse(v.CX*sx, v.CY*sy, v.R*sx, v.R*sy)
			paint(dc, v.Style, sx)
		case renderer.LineElement:
			dc.SetLineCap(gg.LineCapRound)
			dc.DrawLine(v.X1*sx, v.Y1*sy, v.X2*sx, v.Y2*sy)
			paint(dc, v.Style, sx)
			dc.SetLineCap(gg.LineCapButt)
		case renderer.PolygonElement:
			for j, p := range v.Points {
				if j == 0 {
					dc.MoveTo(p.X*sx, p.Y*sy)
				} else {
					dc.LineTo(p.X*sx, p.Y*sy)
				}
			}
			dc.ClosePath()
			paint(dc, v.Style, sx)
		case renderer.TextElement:
			c, ok := renderer.ParseColor(v.Fill, 1)
			if !ok || v.Text == "" {
				continue
			}
			key := faceKey{size: v.Size * sy, bold: v.Bold}
			face, ok := faces[key]
			if !ok {
				f := regularFont
				if v.Bold {
					f = boldFont
				}
				face = truetype.NewFace(f, &truetype.Options{Size: key.size, DPI: 72, Hinting: font.HintingFull})
				faces[key] = face
			}
			dc.SetFontFace(face)
			dc.SetColor(c)
			dc.DrawStringAnchored(v.Text, v.X*sx, v.Y*sy, 0.5, 0.35)
		case renderer.ImageElement:
			src, err := r.images.Load(ctx, v.Href)
			if err != nil {
				system.PutImage(img)
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			dst := image.Rect(int(v.X*sx+0.5), int(v.Y*sy+0.5), int((v.X+v.W)*sx+0.5), int((v.Y+v.H)*sy+0.5))
			draw.ApproxBiLinear.Scale(img, dst, src, src.Bounds(), draw.Over, nil)
		default:
			system.PutImage(img)
			return nil, fmt.Errorf("element %d: %w: %T", i, renderer.ErrInvalidSurface, e)
		}
	}
	return img, nil
}

// paint fills and strokes the current path with st and clears it.
func paint(dc *gg.Context, st renderer.Style, scale float64) {
	fill, hasFill := renderer.ParseColor(st.Fill, st.Opacity)
	stroke, hasStroke := renderer.ParseColor(st.Stroke, st.Opacity)

	if hasFill {
		dc.SetColor(fill)
		if hasStroke {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if hasStroke {
		dc.SetColor(stroke)
		dc.SetLineWidth(st.StrokeWidth * scale)
		if len(st.Dash) > 0 {
			dash := make([]float64, len(st.Dash))
			for i, d := range st.Dash {
				dash[i] = d * scale
			}
			dc.SetDash(dash...)
		}
		dc.Stroke()
		dc.SetDash()
	}
	dc.ClearPath()
}
