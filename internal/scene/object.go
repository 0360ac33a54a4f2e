package scene

import (
	"fmt"

	"github.com/ivlev/tactiboard/internal/geometry"
)

// Kind identifies an object variant. It is also the "type" discriminator in
// the JSON form of a document.
type Kind string

const (
	KindPlayer Kind = "player"
	KindCone   Kind = "cone"
	KindGoal   Kind = "goal"
	KindBall   Kind = "ball"
	KindRect   Kind = "rect"
	KindCircle Kind = "circle"
	KindArrow  Kind = "arrow"
	KindText   Kind = "text"
)

// Kinds lists every object variant in a stable order.
var Kinds = []Kind{KindPlayer, KindCone, KindGoal, KindBall, KindRect, KindCircle, KindArrow, KindText}

// Team is the side a player belongs to.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Object is one drawable item of a scene. The set of implementations is
// closed: Player, Cone, Goal, Ball, Rect, Circle, Arrow and Text.
type Object interface {
	ObjectID() string
	Kind() Kind
	object()
}

type Player struct {
	ID    string  `json:"id"`
	Team  Team    `json:"team"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

type Cone struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type Goal struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type Ball struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Rect is a shape annotation positioned by its center.
type Rect struct {
	ID      string   `json:"id"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Stroke  *string  `json:"stroke,omitempty"`
	Fill    *string  `json:"fill,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
}

// Circle is a shape annotation positioned by its center. R is relative to
// the scene width.
type Circle struct {
	ID      string   `json:"id"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	R       float64  `json:"r"`
	Stroke  *string  `json:"stroke,omitempty"`
	Fill    *string  `json:"fill,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
}

// Arrow has two independent endpoints; the head is drawn at (X2,Y2).
type Arrow struct {
	ID        string   `json:"id"`
	X1        float64  `json:"x1"`
	Y1        float64  `json:"y1"`
	X2        float64  `json:"x2"`
	Y2        float64  `json:"y2"`
	Dashed    *bool    `json:"dashed,omitempty"`
	Thickness *float64 `json:"thickness,omitempty"`
}

type Text struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

func (o Player) ObjectID() string { return o.ID }
func (o Cone) ObjectID() string   { return o.ID }
func (o Goal) ObjectID() string   { return o.ID }
func (o Ball) ObjectID() string   { return o.ID }
func (o Rect) ObjectID() string   { return o.ID }
func (o Circle) ObjectID() string { return o.ID }
func (o Arrow) ObjectID() string  { return o.ID }
func (o Text) ObjectID() string   { return o.ID }

func (Player) Kind() Kind { return KindPlayer }
func (Cone) Kind() Kind   { return KindCone }
func (Goal) Kind() Kind   { return KindGoal }
func (Ball) Kind() Kind   { return KindBall }
func (Rect) Kind() Kind   { return KindRect }
func (Circle) Kind() Kind { return KindCircle }
func (Arrow) Kind() Kind  { return KindArrow }
func (Text) Kind() Kind   { return KindText }

func (Player) object() {}
func (Cone) object()   {}
func (Goal) object()   {}
func (Ball) object()   {}
func (Rect) object()   {}
func (Circle) object() {}
func (Arrow) object()  {}
func (Text) object()   {}

func unhandled(o Object) string {
	return fmt.Sprintf("scene: unhandled object type %T", o)
}

// Anchor returns the position a drag moves: the center for positioned
// objects and the segment midpoint for arrows.
func Anchor(o Object) (x, y float64) {
	switch v := o.(type) {
	case Player:
		return v.X, v.Y
	case Cone:
		return v.X, v.Y
	case Goal:
		return v.X, v.Y
	case Ball:
		return v.X, v.Y
	case Rect:
		return v.X, v.Y
	case Circle:
		return v.X, v.Y
	case Arrow:
		return (v.X1 + v.X2) / 2, (v.Y1 + v.Y2) / 2
	case Text:
		return v.X, v.Y
	default:
		panic(unhandled(o))
	}
}

// Points returns every positional coordinate of o. Arrows yield both
// endpoints, everything else its anchor.
func Points(o Object) []geometry.Point {
	if a, ok := o.(Arrow); ok {
		return []geometry.Point{{X: a.X1, Y: a.Y1}, {X: a.X2, Y: a.Y2}}
	}
	x, y := Anchor(o)
	return []geometry.Point{{X: x, Y: y}}
}

// MapCoords returns a copy of o with f applied to every positional
// coordinate. Sizes (width, height, r) are left alone.
func MapCoords(o Object, f func(float64) float64) Object {
	switch v := o.(type) {
	case Player:
		v.X, v.Y = f(v.X), f(v.Y)
		return v
	case Cone:
		v.X, v.Y = f(v.X), f(v.Y)
		return v
	case Goal:
		v.X, v.Y = f(v.X), f(v.Y)
		return v
	case Ball:
		v.X, v.Y = f(v.X), f(v.Y)
		return v
	case Rect:
		v.X, v.Y = f(v.X), f(v.Y)
		return Clone(v)
	case Circle:
		v.X, v.Y = f(v.X), f(v.Y)
		return Clone(v)
	case Arrow:
		v.X1, v.Y1, v.X2, v.Y2 = f(v.X1), f(v.Y1), f(v.X2), f(v.Y2)
		return Clone(v)
	case Text:
		v.X, v.Y = f(v.X), f(v.Y)
		return v
	default:
		panic(unhandled(o))
	}
}

// Translate shifts every positional coordinate of o by (dx,dy) without
// clamping.
func Translate(o Object, dx, dy float64) Object {
	switch v := o.(type) {
	case Arrow:
		v.X1 += dx
		v.X2 += dx
		v.Y1 += dy
		v.Y2 += dy
		return Clone(v)
	default:
		x, y := Anchor(o)
		return MoveTo(o, x+dx, y+dy)
	}
}

// MoveTo places the anchor of o at (x,y). Arrows keep their vector.
func MoveTo(o Object, x, y float64) Object {
	switch v := o.(type) {
	case Player:
		v.X, v.Y = x, y
		return v
	case Cone:
		v.X, v.Y = x, y
		return v
	case Goal:
		v.X, v.Y = x, y
		return v
	case Ball:
		v.X, v.Y = x, y
		return v
	case Rect:
		v.X, v.Y = x, y
		return Clone(v)
	case Circle:
		v.X, v.Y = x, y
		return Clone(v)
	case Arrow:
		mx, my := Anchor(v)
		return Translate(v, x-mx, y-my)
	case Text:
		v.X, v.Y = x, y
		return v
	default:
		panic(unhandled(o))
	}
}

// Clamp returns o with every positional coordinate limited to [0,1].
func Clamp(o Object) Object {
	return MapCoords(o, geometry.Clamp01)
}

// WithID returns a copy of o carrying id.
func WithID(o Object, id string) Object {
	switch v := Clone(o).(type) {
	case Player:
		v.ID = id
		return v
	case Cone:
		v.ID = id
		return v
	case Goal:
		v.ID = id
		return v
	case Ball:
		v.ID = id
		return v
	case Rect:
		v.ID = id
		return v
	case Circle:
		v.ID = id
		return v
	case Arrow:
		v.ID = id
		return v
	case Text:
		v.ID = id
		return v
	default:
		panic(unhandled(o))
	}
}

// Clone deep-copies o, including optional style fields.
func Clone(o Object) Object {
	switch v := o.(type) {
	case Player, Cone, Goal, Ball, Text:
		return v
	case Rect:
		v.Stroke = cloneString(v.Stroke)
		v.Fill = cloneString(v.Fill)
		v.Opacity = cloneFloat(v.Opacity)
		return v
	case Circle:
		v.Stroke = cloneString(v.Stroke)
		v.Fill = cloneString(v.Fill)
		v.Opacity = cloneFloat(v.Opacity)
		return v
	case Arrow:
		if v.Dashed != nil {
			d := *v.Dashed
			v.Dashed = &d
		}
		v.Thickness = cloneFloat(v.Thickness)
		return v
	default:
		panic(unhandled(o))
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// Helpers for filling optional style fields.
func String(s string) *string  { return &s }
func Float(f float64) *float64 { return &f }
func Bool(b bool) *bool        { return &b }
