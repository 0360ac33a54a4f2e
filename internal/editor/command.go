package editor

import "github.com/ivlev/tactiboard/internal/scene"

// Command is an input to the controller. The set is closed; see the
// concrete types below.
type Command interface {
	command()
}

// PointerDown presses on Target. An empty Target is a press on empty canvas
// unless Resolve is set, in which case the target is found by hit testing
// at (X,Y).
type PointerDown struct {
	Target  string  `yaml:"target,omitempty"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Resolve bool    `yaml:"resolve,omitempty"`
}

type PointerMove struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type PointerUp struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Delete removes the selected object.
type Delete struct{}

// Duplicate clones the selected object next to the original.
type Duplicate struct{}

type BringToFront struct{}

type SendToBack struct{}

// Escape clears the selection.
type Escape struct{}

// AddObject creates a new object at the scene center and selects it.
type AddObject struct {
	Kind scene.Kind `yaml:"kind"`
	Team scene.Team `yaml:"team,omitempty"`
}

// ApplyPreset replaces every object with the named preset. On a non-empty
// scene it only applies with Confirm set.
type ApplyPreset struct {
	Name    string `yaml:"name"`
	Confirm bool   `yaml:"confirm,omitempty"`
}

type SetBackground struct {
	Background scene.Background `yaml:"background"`
}

// SetLabel changes the label of the selected player or the content of the
// selected text.
type SetLabel struct {
	Text string `yaml:"text"`
}

// SetStyle changes the optional style fields of the selected object. Nil
// fields are left as they are.
type SetStyle struct {
	Stroke    *string  `yaml:"stroke,omitempty"`
	Fill      *string  `yaml:"fill,omitempty"`
	Opacity   *float64 `yaml:"opacity,omitempty"`
	Dashed    *bool    `yaml:"dashed,omitempty"`
	Thickness *float64 `yaml:"thickness,omitempty"`
}

type Undo struct{}

type Redo struct{}

func (PointerDown) command()   {}
func (PointerMove) command()   {}
func (PointerUp) command()     {}
func (Delete) command()        {}
func (Duplicate) command()     {}
func (BringToFront) command()  {}
func (SendToBack) command()    {}
func (Escape) command()        {}
func (AddObject) command()     {}
func (ApplyPreset) command()   {}
func (SetBackground) command() {}
func (SetLabel) command()      {}
func (SetStyle) command()      {}
func (Undo) command()          {}
func (Redo) command()          {}

// IsShortcut reports whether cmd is bound to a keyboard shortcut. Shortcuts
// are ignored while an export is in flight.
func IsShortcut(cmd Command) bool {
	switch cmd.(type) {
	case Delete, Duplicate, Escape, Undo, Redo:
		return true
	}
	return false
}
