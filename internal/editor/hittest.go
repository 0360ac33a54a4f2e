package editor

import (
	"math"

	"github.com/ivlev/tactiboard/internal/geometry"
	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/scene"
)

// extra view box units around thin shapes so they stay easy to grab
const hitSlop = 0.8

// HitTest returns the id of the topmost object under the normalized point
// (x,y). Hit areas follow the rendered shapes.
func HitTest(doc scene.Document, x, y float64) (string, bool) {
	px, py := geometry.ToViewBox(x, y, geometry.ViewWidth, geometry.ViewHeight)
	p := geometry.Point{X: px, Y: py}

	for i := len(doc.Objects) - 1; i >= 0; i-- {
		if hits(doc.Objects[i], p) {
			return doc.Objects[i].ObjectID(), true
		}
	}
	return "", false
}

func view(x, y float64) geometry.Point {
	vx, vy := geometry.ToViewBox(x, y, geometry.ViewWidth, geometry.ViewHeight)
	return geometry.Point{X: vx, Y: vy}
}

func within(p, c geometry.Point, halfW, halfH float64) bool {
	return math.Abs(p.X-c.X) <= halfW && math.Abs(p.Y-c.Y) <= halfH
}

func hits(o scene.Object, p geometry.Point) bool {
	switch v := o.(type) {
	case scene.Player:
		return geometry.Distance(p, view(v.X, v.Y)) <= renderer.PlayerRadius
	case scene.Ball:
		return geometry.Distance(p, view(v.X, v.Y)) <= renderer.BallRadius+hitSlop
	case scene.Cone:
		return within(p, view(v.X, v.Y), renderer.ConeHalfWidth+hitSlop/2, renderer.ConeHalfHeight+hitSlop/2)
	case scene.Goal:
		return within(p, view(v.X, v.Y), renderer.GoalWidth/2, renderer.GoalHeight/2)
	case scene.Rect:
		return within(p, view(v.X, v.Y), v.Width*geometry.ViewWidth/2, v.Height*geometry.ViewHeight/2)
	case scene.Circle:
		return geometry.Distance(p, view(v.X, v.Y)) <= v.R*geometry.ViewWidth
	case scene.Arrow:
		w := renderer.DefaultArrowThickness
		if v.Thickness != nil {
			w = *v.Thickness
		}
		return geometry.DistanceToSegment(p, view(v.X1, v.Y1), view(v.X2, v.Y2)) <= w/2+hitSlop
	case scene.Text:
		halfW := float64(len([]rune(v.Text))) * renderer.TextFontSize * 0.3
		return within(p, view(v.X, v.Y), math.Max(halfW, 1), renderer.TextFontSize*0.6)
	default:
		panic("editor: unhandled object type")
	}
}
