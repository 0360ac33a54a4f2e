// Package editor holds the interaction state machine of the diagram editor
// and the draft session that wraps it.
//
// The controller is a set of pure transitions: Apply takes a State and a
// Command and returns the next State without touching the input.
package editor

import (
	"fmt"

	"github.com/ivlev/tactiboard/internal/factory"
	"github.com/ivlev/tactiboard/internal/geometry"
	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/scene"
)

type Mode int

const (
	Idle Mode = iota
	Selected
	Dragging
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Grab is a held pointer on an object. Offset is anchor minus pointer at
// press time.
type Grab struct {
	ID      string
	OffsetX float64
	OffsetY float64
}

type State struct {
	Doc      scene.Document
	Mode     Mode
	Selected string
	Grab     *Grab
}

func NewState(doc scene.Document) State {
	return State{Doc: doc}
}

// Result describes what a transition did.
type Result struct {
	// Changed is set when the document differs from the input state.
	Changed bool
	// NeedsConfirmation is set when a destructive command was refused
	// because it was not confirmed.
	NeedsConfirmation bool
	// Err reports an invalid argument such as an unknown preset. Missing
	// object ids are never errors.
	Err error
}

type Settings struct {
	SnapStep        float64
	DuplicateOffset float64
}

func DefaultSettings() Settings {
	return Settings{
		SnapStep:        geometry.DefaultSnapStep,
		DuplicateOffset: 0.02,
	}
}

type Controller struct {
	Settings Settings
	Factory  *factory.Factory
	Presets  *factory.Catalog
}

// NewController wires a controller. A nil factory uses UUID ids and a nil
// catalog the built-in presets.
func NewController(settings Settings, f *factory.Factory, presets *factory.Catalog) *Controller {
	if f == nil {
		f = factory.New(nil)
	}
	if presets == nil {
		presets = factory.NewCatalog()
	}
	return &Controller{Settings: settings, Factory: f, Presets: presets}
}

// Apply returns the state after cmd. Undo and Redo need history and are
// handled by Session; here they do nothing.
func (c *Controller) Apply(s State, cmd Command) (State, Result) {
	switch cmd := cmd.(type) {
	case PointerDown:
		return c.pointerDown(s, cmd)
	case PointerMove:
		return c.pointerMove(s, cmd.X, cmd.Y)
	case PointerUp:
		return c.pointerUp(s, cmd)
	case Delete:
		return c.delete(s)
	case Duplicate:
		return c.duplicate(s)
	case BringToFront:
		return c.reorder(s, true)
	case SendToBack:
		return c.reorder(s, false)
	case Escape:
		return clearSelection(s), Result{}
	case AddObject:
		return c.addObject(s, cmd)
	case ApplyPreset:
		return c.applyPreset(s, cmd)
	case SetBackground:
		return c.setBackground(s, cmd.Background)
	case SetLabel:
		return c.setLabel(s, cmd.Text)
	case SetStyle:
		return c.setStyle(s, cmd)
	case Undo, Redo:
		return s, Result{}
	default:
		panic(fmt.Sprintf("editor: unhandled command %T", cmd))
	}
}

func clearSelection(s State) State {
	s.Mode = Idle
	s.Selected = ""
	s.Grab = nil
	return s
}

// withObjects returns s carrying a new document built from objects. The
// cached raster no longer matches and is dropped.
func withObjects(s State, objects []scene.Object) State {
	doc := s.Doc
	doc.Objects = objects
	doc.InvalidateRaster()
	s.Doc = doc
	return s
}

func copyObjects(objects []scene.Object, extra int) []scene.Object {
	out := make([]scene.Object, len(objects), len(objects)+extra)
	copy(out, objects)
	return out
}

func (c *Controller) pointerDown(s State, cmd PointerDown) (State, Result) {
	// only one drag at a time
	if s.Mode == Dragging {
		return s, Result{}
	}

	target := cmd.Target
	if target == "" && cmd.Resolve {
		target, _ = HitTest(s.Doc, cmd.X, cmd.Y)
	}
	if target == "" {
		return clearSelection(s), Result{}
	}

	o, ok := s.Doc.Find(target)
	if !ok {
		return s, Result{}
	}
	ax, ay := scene.Anchor(o)
	s.Mode = Selected
	s.Selected = target
	s.Grab = &Grab{
		ID:      target,
		OffsetX: ax - geometry.Clamp01(cmd.X),
		OffsetY: ay - geometry.Clamp01(cmd.Y),
	}
	return s, Result{}
}

func (c *Controller) pointerMove(s State, x, y float64) (State, Result) {
	if s.Grab == nil {
		return s, Result{}
	}
	idx := s.Doc.Index(s.Grab.ID)
	if idx < 0 {
		// the object went away under the pointer
		return clearSelection(s), Result{}
	}

	o := s.Doc.Objects[idx]
	ax, ay := scene.Anchor(o)
	dx, dy := x+s.Grab.OffsetX-ax, y+s.Grab.OffsetY-ay
	dx, dy = geometry.ClampShift(dx, dy, scene.Points(o)...)

	s.Mode = Dragging
	if dx == 0 && dy == 0 {
		return s, Result{}
	}

	objects := copyObjects(s.Doc.Objects, 0)
	objects[idx] = scene.Translate(o, dx, dy)
	return withObjects(s, objects), Result{Changed: true}
}

func (c *Controller) pointerUp(s State, cmd PointerUp) (State, Result) {
	if s.Grab == nil {
		return s, Result{}
	}
	if s.Mode != Dragging {
		// a click: keep the selection
		s.Grab = nil
		return s, Result{}
	}

	id := s.Grab.ID
	s, res := c.pointerMove(s, cmd.X, cmd.Y)
	s.Grab = nil
	idx := s.Doc.Index(id)
	if idx < 0 {
		return clearSelection(s), res
	}
	s.Mode = Selected

	o := s.Doc.Objects[idx]
	step := c.Settings.SnapStep
	snapped := scene.MapCoords(o, func(v float64) float64 { return geometry.Snap(v, step) })
	if samePoints(scene.Points(o), scene.Points(snapped)) {
		return s, res
	}

	objects := copyObjects(s.Doc.Objects, 0)
	objects[idx] = snapped
	return withObjects(s, objects), Result{Changed: true}
}

func samePoints(a, b []geometry.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Controller) delete(s State) (State, Result) {
	if s.Selected == "" {
		return s, Result{}
	}
	idx := s.Doc.Index(s.Selected)
	if idx < 0 {
		return clearSelection(s), Result{}
	}

	objects := make([]scene.Object, 0, len(s.Doc.Objects)-1)
	objects = append(objects, s.Doc.Objects[:idx]...)
	objects = append(objects, s.Doc.Objects[idx+1:]...)
	return clearSelection(withObjects(s, objects)), Result{Changed: true}
}

func (c *Controller) duplicate(s State) (State, Result) {
	if s.Mode != Selected {
		return s, Result{}
	}
	idx := s.Doc.Index(s.Selected)
	if idx < 0 {
		return clearSelection(s), Result{}
	}

	o := s.Doc.Objects[idx]
	off := c.Settings.DuplicateOffset
	dx, dy := geometry.ClampShift(off, off, scene.Points(o)...)
	clone := scene.Translate(scene.WithID(o, scene.UniqueID(c.Factory.IDs, s.Doc)), dx, dy)

	objects := make([]scene.Object, 0, len(s.Doc.Objects)+1)
	objects = append(objects, s.Doc.Objects[:idx+1]...)
	objects = append(objects, clone)
	objects = append(objects, s.Doc.Objects[idx+1:]...)

	s = withObjects(s, objects)
	s.Selected = clone.ObjectID()
	s.Grab = nil
	return s, Result{Changed: true}
}

func (c *Controller) reorder(s State, front bool) (State, Result) {
	if s.Mode != Selected {
		return s, Result{}
	}
	idx := s.Doc.Index(s.Selected)
	if idx < 0 {
		return clearSelection(s), Result{}
	}
	last := len(s.Doc.Objects) - 1
	if (front && idx == last) || (!front && idx == 0) {
		return s, Result{}
	}

	o := s.Doc.Objects[idx]
	objects := make([]scene.Object, 0, len(s.Doc.Objects))
	if !front {
		objects = append(objects, o)
	}
	objects = append(objects, s.Doc.Objects[:idx]...)
	objects = append(objects, s.Doc.Objects[idx+1:]...)
	if front {
		objects = append(objects, o)
	}
	return withObjects(s, objects), Result{Changed: true}
}

func (c *Controller) addObject(s State, cmd AddObject) (State, Result) {
	if s.Mode == Dragging {
		return s, Result{}
	}
	o, err := c.Factory.Create(s.Doc, cmd.Kind, cmd.Team)
	if err != nil {
		return s, Result{Err: err}
	}

	objects := copyObjects(s.Doc.Objects, 1)
	s = withObjects(s, append(objects, o))
	s.Mode = Selected
	s.Selected = o.ObjectID()
	s.Grab = nil
	return s, Result{Changed: true}
}

func (c *Controller) applyPreset(s State, cmd ApplyPreset) (State, Result) {
	if s.Mode == Dragging {
		return s, Result{}
	}
	if _, ok := c.Presets.Get(cmd.Name); !ok {
		return s, Result{Err: fmt.Errorf("%w: %s", factory.ErrUnknownPreset, cmd.Name)}
	}
	if len(s.Doc.Objects) > 0 && !cmd.Confirm {
		return s, Result{NeedsConfirmation: true}
	}

	objects, err := c.Presets.Generate(cmd.Name, c.Factory.IDs)
	if err != nil {
		return s, Result{Err: err}
	}
	return clearSelection(withObjects(s, objects)), Result{Changed: true}
}

func (c *Controller) setBackground(s State, bg scene.Background) (State, Result) {
	switch bg.Kind {
	case scene.BackgroundTemplate:
		switch bg.Key {
		case scene.FullPitch, scene.HalfPitch, scene.FreeSpace:
		default:
			return s, Result{Err: fmt.Errorf("%w: template %q", scene.ErrUnknownBackground, bg.Key)}
		}
	case scene.BackgroundImage:
		if bg.URL == "" {
			return s, Result{Err: fmt.Errorf("%w: image without url", scene.ErrUnknownBackground)}
		}
	default:
		return s, Result{Err: fmt.Errorf("%w: %q", scene.ErrUnknownBackground, bg.Kind)}
	}
	if bg == s.Doc.Background {
		return s, Result{}
	}

	doc := s.Doc
	doc.Background = bg
	doc.InvalidateRaster()
	s.Doc = doc
	return s, Result{Changed: true}
}

func (c *Controller) setLabel(s State, text string) (State, Result) {
	idx := s.Doc.Index(s.Selected)
	if s.Selected == "" || idx < 0 {
		return s, Result{}
	}

	var updated scene.Object
	switch v := s.Doc.Objects[idx].(type) {
	case scene.Player:
		if v.Label == text {
			return s, Result{}
		}
		v.Label = text
		updated = v
	case scene.Text:
		if v.Text == text {
			return s, Result{}
		}
		v.Text = text
		updated = v
	default:
		return s, Result{}
	}

	objects := copyObjects(s.Doc.Objects, 0)
	objects[idx] = updated
	return withObjects(s, objects), Result{Changed: true}
}

func (c *Controller) setStyle(s State, cmd SetStyle) (State, Result) {
	idx := s.Doc.Index(s.Selected)
	if s.Selected == "" || idx < 0 {
		return s, Result{}
	}

	opacity := cmd.Opacity
	if opacity != nil {
		opacity = scene.Float(geometry.Clamp01(*opacity))
	}
	// unreadable colors are dropped, the rest of the command still applies
	stroke, fill := validPaint(cmd.Stroke), validPaint(cmd.Fill)

	var updated scene.Object
	switch v := scene.Clone(s.Doc.Objects[idx]).(type) {
	case scene.Rect:
		if stroke == nil && fill == nil && opacity == nil {
			return s, Result{}
		}
		v.Stroke = pick(stroke, v.Stroke)
		v.Fill = pick(fill, v.Fill)
		v.Opacity = pick(opacity, v.Opacity)
		updated = v
	case scene.Circle:
		if stroke == nil && fill == nil && opacity == nil {
			return s, Result{}
		}
		v.Stroke = pick(stroke, v.Stroke)
		v.Fill = pick(fill, v.Fill)
		v.Opacity = pick(opacity, v.Opacity)
		updated = v
	case scene.Arrow:
		thickness := cmd.Thickness
		if thickness != nil && *thickness <= 0 {
			thickness = nil
		}
		if cmd.Dashed == nil && thickness == nil {
			return s, Result{}
		}
		v.Dashed = pick(cmd.Dashed, v.Dashed)
		v.Thickness = pick(thickness, v.Thickness)
		updated = v
	default:
		return s, Result{}
	}

	objects := copyObjects(s.Doc.Objects, 0)
	objects[idx] = updated
	return withObjects(s, objects), Result{Changed: true}
}

func validPaint(c *string) *string {
	if c == nil || !renderer.ValidPaint(*c) {
		return nil
	}
	return c
}

func pick[T any](set, current *T) *T {
	if set == nil {
		return current
	}
	v := *set
	return &v
}
