package renderer

import (
	"fmt"

	"github.com/ivlev/tactiboard/internal/geometry"
	"github.com/ivlev/tactiboard/internal/scene"
)

// Palette.
const (
	GrassColor     = "#2e7d32"
	LineColor      = "#ffffff"
	TeamAColor     = "#1e88e5"
	TeamBColor     = "#e53935"
	BallColor      = "#ffffff"
	BallStroke     = "#212121"
	ConeColor      = "#ff9800"
	GoalColor      = "#f5f5f5"
	GoalStroke     = "#9e9e9e"
	ShapeStroke    = "#ffffff"
	ArrowColor     = "#ffffff"
	TextColor      = "#ffffff"
	HighlightColor = "#ffeb3b"
)

// Sizes in view box units.
const (
	PlayerRadius          = 2.2
	BallRadius            = 1.2
	ConeHalfWidth         = 1.4
	ConeHalfHeight        = 1.6
	GoalWidth             = 2.4
	GoalHeight            = 8.0
	LabelFontSize         = 1.8
	TextFontSize          = 3.0
	DefaultArrowThickness = 0.6
	ShapeStrokeWidth      = 0.4
	HighlightWidth        = 0.6
)

var arrowDash = []float64{2, 1.5}

type Options struct {
	// Selected is drawn with the highlight stroke.
	Selected string
	// ArrowHeadLength defaults to geometry.DefaultArrowHeadLength.
	ArrowHeadLength float64
}

// Render draws doc: the background first, then every object in slice order.
func Render(doc scene.Document, opts Options) *Surface {
	if opts.ArrowHeadLength <= 0 {
		opts.ArrowHeadLength = geometry.DefaultArrowHeadLength
	}

	s := newSurface()
	drawBackground(s, doc.Background)
	for _, o := range doc.Objects {
		drawObject(s, o, o.ObjectID() != "" && o.ObjectID() == opts.Selected, opts)
	}
	return s
}

func vb(x, y float64) (float64, float64) {
	return geometry.ToViewBox(x, y, geometry.ViewWidth, geometry.ViewHeight)
}

func highlight(st Style, selected bool) Style {
	if selected {
		st.Stroke = HighlightColor
		st.StrokeWidth = HighlightWidth
	}
	return st
}

func orDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func drawObject(s *Surface, o scene.Object, selected bool, opts Options) {
	switch v := o.(type) {
	case scene.Player:
		x, y := vb(v.X, v.Y)
		fill := TeamAColor
		if v.Team == scene.TeamB {
			fill = TeamBColor
		}
		s.add(
			CircleElement{CX: x, CY: y, R: PlayerRadius, Style: highlight(Style{Fill: fill, Stroke: LineColor, StrokeWidth: 0.3, Opacity: 1}, selected)},
			TextElement{X: x, Y: y, Text: v.Label, Size: LabelFontSize, Fill: TextColor, Bold: true},
		)
	case scene.Ball:
		x, y := vb(v.X, v.Y)
		s.add(CircleElement{CX: x, CY: y, R: BallRadius, Style: highlight(Style{Fill: BallColor, Stroke: BallStroke, StrokeWidth: 0.25, Opacity: 1}, selected)})
	case scene.Cone:
		x, y := vb(v.X, v.Y)
		s.add(PolygonElement{
			Points: []geometry.Point{
				{X: x, Y: y - ConeHalfHeight},
				{X: x + ConeHalfWidth, Y: y + ConeHalfHeight*0.75},
				{X: x - ConeHalfWidth, Y: y + ConeHalfHeight*0.75},
			},
			Style: highlight(Style{Fill: ConeColor, Stroke: ConeColor, StrokeWidth: 0.2, Opacity: 1}, selected),
		})
	case scene.Goal:
		x, y := vb(v.X, v.Y)
		s.add(RectElement{
			X: x - GoalWidth/2, Y: y - GoalHeight/2, W: GoalWidth, H: GoalHeight,
			Style: highlight(Style{Fill: GoalColor, Stroke: GoalStroke, StrokeWidth: 0.3, Opacity: 1}, selected),
		})
	case scene.Rect:
		x, y := vb(v.X, v.Y)
		w, h := v.Width*geometry.ViewWidth, v.Height*geometry.ViewHeight
		st := Style{
			Fill:        fillColor(orDefault(v.Fill, "")),
			Stroke:      fillColor(orDefault(v.Stroke, ShapeStroke)),
			StrokeWidth: ShapeStrokeWidth,
			Opacity:     geometry.Clamp01(orDefault(v.Opacity, 1)),
		}
		s.add(RectElement{X: x - w/2, Y: y - h/2, W: w, H: h, Style: highlight(st, selected)})
	case scene.Circle:
		x, y := vb(v.X, v.Y)
		st := Style{
			Fill:        fillColor(orDefault(v.Fill, "")),
			Stroke:      fillColor(orDefault(v.Stroke, ShapeStroke)),
			StrokeWidth: ShapeStrokeWidth,
			Opacity:     geometry.Clamp01(orDefault(v.Opacity, 1)),
		}
		// radius is relative to the view width
		s.add(CircleElement{CX: x, CY: y, R: v.R * geometry.ViewWidth, Style: highlight(st, selected)})
	case scene.Arrow:
		drawArrow(s, v, selected, opts.ArrowHeadLength)
	case scene.Text:
		x, y := vb(v.X, v.Y)
		fill := TextColor
		if selected {
			fill = HighlightColor
		}
		s.add(TextElement{X: x, Y: y, Text: v.Text, Size: TextFontSize, Fill: fill})
	default:
		panic(fmt.Sprintf("renderer: unhandled object type %T", o))
	}
}

func drawArrow(s *Surface, a scene.Arrow, selected bool, headLength float64) {
	x1, y1 := vb(a.X1, a.Y1)
	x2, y2 := vb(a.X2, a.Y2)
	width := orDefault(a.Thickness, DefaultArrowThickness)
	if width <= 0 {
		width = DefaultArrowThickness
	}

	if selected {
		s.add(LineElement{X1: x1, Y1: y1, X2: x2, Y2: y2, Style: Style{Stroke: HighlightColor, StrokeWidth: width + 2*HighlightWidth, Opacity: 1}})
	}

	line := Style{Stroke: ArrowColor, StrokeWidth: width, Opacity: 1}
	if orDefault(a.Dashed, false) {
		line.Dash = arrowDash
	}
	head := geometry.ArrowHead(x1, y1, x2, y2, headLength)
	s.add(
		LineElement{X1: x1, Y1: y1, X2: x2, Y2: y2, Style: line},
		PolygonElement{Points: head[:], Style: Style{Fill: ArrowColor, Stroke: ArrowColor, StrokeWidth: 0.1, Opacity: 1}},
	)
}

// fillColor maps the stored "none"/"transparent" spellings to an empty
// color.
func fillColor(c string) string {
	switch c {
	case "none", "transparent":
		return ""
	}
	return c
}
