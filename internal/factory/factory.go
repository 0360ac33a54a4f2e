// Package factory creates scene objects with sensible defaults and builds
// whole scenes from named formation presets.
package factory

import (
	"errors"
	"fmt"

	"github.com/ivlev/tactiboard/internal/scene"
)

var ErrUnknownTeam = errors.New("unknown team")

// Defaults controls the size of newly created shapes.
type Defaults struct {
	RectWidth   float64
	RectHeight  float64
	CircleR     float64
	ArrowLength float64
	Text        string
}

// DefaultShapes returns the sizes used when nothing else is configured.
func DefaultShapes() Defaults {
	return Defaults{
		RectWidth:   0.2,
		RectHeight:  0.2,
		CircleR:     0.08,
		ArrowLength: 0.2,
		Text:        "Text",
	}
}

// Factory creates objects centered on the scene with fresh ids.
type Factory struct {
	IDs      scene.IDGenerator
	Defaults Defaults
}

// New returns a Factory drawing ids from ids. A nil generator uses UUIDs.
func New(ids scene.IDGenerator) *Factory {
	if ids == nil {
		ids = scene.UUIDGenerator{}
	}
	return &Factory{IDs: ids, Defaults: DefaultShapes()}
}

// Create builds a new object of kind at the scene center. Player labels are
// derived from the players already in doc, so they stay consistent after
// deletions. An empty team means team A.
func (f *Factory) Create(doc scene.Document, kind scene.Kind, team scene.Team) (scene.Object, error) {
	const cx, cy = 0.5, 0.5
	id := scene.UniqueID(f.IDs, doc)

	switch kind {
	case scene.KindPlayer:
		if team == "" {
			team = scene.TeamA
		}
		if team != scene.TeamA && team != scene.TeamB {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
		}
		return scene.Player{
			ID:    id,
			Team:  team,
			X:     cx,
			Y:     cy,
			Label: PlayerLabel(team, doc.CountPlayers(team)+1),
		}, nil
	case scene.KindCone:
		return scene.Cone{ID: id, X: cx, Y: cy}, nil
	case scene.KindGoal:
		return scene.Goal{ID: id, X: cx, Y: cy}, nil
	case scene.KindBall:
		return scene.Ball{ID: id, X: cx, Y: cy}, nil
	case scene.KindRect:
		return scene.Rect{ID: id, X: cx, Y: cy, Width: f.Defaults.RectWidth, Height: f.Defaults.RectHeight}, nil
	case scene.KindCircle:
		return scene.Circle{ID: id, X: cx, Y: cy, R: f.Defaults.CircleR}, nil
	case scene.KindArrow:
		half := f.Defaults.ArrowLength / 2
		return scene.Arrow{ID: id, X1: cx - half, Y1: cy, X2: cx + half, Y2: cy}, nil
	case scene.KindText:
		return scene.Text{ID: id, X: cx, Y: cy, Text: f.Defaults.Text}, nil
	default:
		return nil, fmt.Errorf("%w: %q", scene.ErrUnknownKind, kind)
	}
}

// PlayerLabel formats the default label of the n-th player of team.
func PlayerLabel(team scene.Team, n int) string {
	return fmt.Sprintf("%s%d", team, n)
}
