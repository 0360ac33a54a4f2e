package renderer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// svgo only takes integer coordinates, so the surface is written in tenths
// of a view box unit inside a scale(0.1) group.
const svgScale = 10

func su(v float64) int {
	return int(math.Round(v * svgScale))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (st Style) css() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fill:%s;stroke:%s", paint(st.Fill), paint(st.Stroke))
	if st.Stroke != "" {
		fmt.Fprintf(&b, ";stroke-width:%s", num(st.StrokeWidth*svgScale))
	}
	if len(st.Dash) > 0 {
		parts := make([]string, len(st.Dash))
		for i, d := range st.Dash {
			parts[i] = num(d * svgScale)
		}
		fmt.Fprintf(&b, ";stroke-dasharray:%s", strings.Join(parts, ","))
	}
	if st.Opacity < 1 {
		fmt.Fprintf(&b, ";opacity:%s", num(st.Opacity))
	}
	return b.String()
}

// escapeAttr makes s safe inside a double-quoted attribute; svgo writes
// hrefs verbatim.
func escapeAttr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Serialize writes the surface as a standalone SVG document with its
// namespaces declared.
func (s *Surface) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	w, h := int(s.width), int(s.height)
	canvas.Startview(w, h, 0, 0, w, h)
	canvas.Gtransform(fmt.Sprintf("scale(%s)", num(1.0/svgScale)))

	for i, e := range s.elements {
		if err := writeElement(canvas, e); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}

	canvas.Gend()
	canvas.End()
	return buf.Bytes(), nil
}

func writeElement(canvas *svg.SVG, e Element) error {
	switch v := e.(type) {
	case RectElement:
		if !finite(v.X, v.Y, v.W, v.H) {
			return ErrInvalidSurface
		}
		canvas.Rect(su(v.X), su(v.Y), su(v.W), su(v.H), v.Style.css())
	case CircleElement:
		if !finite(v.CX, v.CY, v.R) {
			return ErrInvalidSurface
		}
		canvas.Circle(su(v.CX), su(v.CY), su(v.R), v.Style.css())
	case LineElement:
		if !finite(v.X1, v.Y1, v.X2, v.Y2) {
			return ErrInvalidSurface
		}
		canvas.Line(su(v.X1), su(v.Y1), su(v.X2), su(v.Y2), v.Style.css()+";stroke-linecap:round")
	case PolygonElement:
		xs := make([]int, len(v.Points))
		ys := make([]int, len(v.Points))
		for i, p := range v.Points {
			if !finite(p.X, p.Y) {
				return ErrInvalidSurface
			}
			xs[i], ys[i] = su(p.X), su(p.Y)
		}
		canvas.Polygon(xs, ys, v.Style.css())
	case TextElement:
		if !finite(v.X, v.Y, v.Size) {
			return ErrInvalidSurface
		}
		weight := "normal"
		if v.Bold {
			weight = "bold"
		}
		canvas.Text(su(v.X), su(v.Y), v.Text, fmt.Sprintf(
			"text-anchor:middle;dominant-baseline:central;font-family:sans-serif;font-weight:%s;font-size:%spx;fill:%s",
			weight, num(v.Size*svgScale), paint(v.Fill)))
	case ImageElement:
		if !finite(v.X, v.Y, v.W, v.H) {
			return ErrInvalidSurface
		}
		if v.Href == "" {
			return fmt.Errorf("%w: image without href", ErrInvalidSurface)
		}
		canvas.Image(su(v.X), su(v.Y), su(v.W), su(v.H), escapeAttr(v.Href), `preserveAspectRatio="none"`)
	default:
		return fmt.Errorf("%w: unknown element %T", ErrInvalidSurface, e)
	}
	return nil
}
