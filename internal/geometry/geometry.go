// Package geometry maps normalized scene coordinates onto the fixed drawing
// surface and holds the small amount of math the editor needs.
package geometry

import "math"

const (
	// ViewWidth and ViewHeight describe the fixed vector coordinate space
	// every scene is drawn into.
	ViewWidth  = 100.0
	ViewHeight = 60.0

	DefaultSnapStep        = 0.02
	DefaultArrowHeadLength = 4.0

	// ArrowHeadSpread is the half-angle between the shaft and each side of
	// the arrow head.
	ArrowHeadSpread = math.Pi / 7
)

// Point is a 2D coordinate, either normalized or in view box units
// depending on where it came from.
type Point struct {
	X, Y float64
}

// ToViewBox scales a normalized position onto a view box of the given size.
func ToViewBox(normX, normY, viewW, viewH float64) (float64, float64) {
	return normX * viewW, normY * viewH
}

// FromViewBox is the inverse of ToViewBox. The result is not clamped.
func FromViewBox(px, py, viewW, viewH float64) (float64, float64) {
	if viewW == 0 || viewH == 0 {
		return 0, 0
	}
	return px / viewW, py / viewH
}

// Clamp01 limits v to [0,1]. NaN collapses to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Snap rounds v to the nearest multiple of step and clamps the result to
// [0,1]. A non-positive step falls back to DefaultSnapStep.
func Snap(v, step float64) float64 {
	if step <= 0 {
		step = DefaultSnapStep
	}
	snapped := math.Round(v/step) * step
	// Trim representation noise such as 0.34000000000000002 so that
	// snapping an already snapped value is a fixed point.
	snapped = math.Round(snapped*1e9) / 1e9
	return Clamp01(snapped)
}

// ArrowHead returns the triangle for an arrow ending at (x2,y2): the tip
// followed by the two side points, each length units back from the tip at
// ArrowHeadSpread either side of the shaft. A non-positive length uses
// DefaultArrowHeadLength.
func ArrowHead(x1, y1, x2, y2, length float64) [3]Point {
	if length <= 0 {
		length = DefaultArrowHeadLength
	}
	angle := math.Atan2(y2-y1, x2-x1)
	return [3]Point{
		{X: x2, Y: y2},
		{
			X: x2 - length*math.Cos(angle-ArrowHeadSpread),
			Y: y2 - length*math.Sin(angle-ArrowHeadSpread),
		},
		{
			X: x2 - length*math.Cos(angle+ArrowHeadSpread),
			Y: y2 - length*math.Sin(angle+ArrowHeadSpread),
		},
	}
}

// Centroid returns the arithmetic mean of pts.
func Centroid(pts ...Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return Point{X: c.X / n, Y: c.Y / n}
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// DistanceToSegment returns the shortest distance from p to the segment ab.
func DistanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Distance(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// ClampShift limits a translation (dx,dy) so that every point stays inside
// [0,1] after being moved. Used to translate multi-point shapes without
// distorting them. A non-finite component does not move.
func ClampShift(dx, dy float64, pts ...Point) (float64, float64) {
	if math.IsNaN(dx) || math.IsInf(dx, 0) {
		dx = 0
	}
	if math.IsNaN(dy) || math.IsInf(dy, 0) {
		dy = 0
	}
	if len(pts) == 0 {
		return dx, dy
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	dx = math.Max(-minX, math.Min(1-maxX, dx))
	dy = math.Max(-minY, math.Min(1-maxY, dy))
	return dx, dy
}
