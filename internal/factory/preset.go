package factory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ivlev/tactiboard/internal/geometry"
	"github.com/ivlev/tactiboard/internal/scene"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named, deterministic scene layout.
type Preset struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Placements  []Placement `yaml:"placements"`
}

// Placement describes one object of a preset. For arrows X,Y is the tail
// and X2,Y2 the head.
type Placement struct {
	Kind   scene.Kind `yaml:"kind"`
	Team   scene.Team `yaml:"team,omitempty"`
	X      float64    `yaml:"x"`
	Y      float64    `yaml:"y"`
	X2     float64    `yaml:"x2,omitempty"`
	Y2     float64    `yaml:"y2,omitempty"`
	Width  float64    `yaml:"width,omitempty"`
	Height float64    `yaml:"height,omitempty"`
	R      float64    `yaml:"r,omitempty"`
	Label  string     `yaml:"label,omitempty"`
}

// Generate turns the preset into objects with ids from ids. Positions are
// clamped to the scene; unlabeled players are numbered per team in
// placement order.
func (p Preset) Generate(ids scene.IDGenerator) ([]scene.Object, error) {
	if ids == nil {
		ids = scene.UUIDGenerator{}
	}
	objects := make([]scene.Object, 0, len(p.Placements))
	perTeam := map[scene.Team]int{}
	c := geometry.Clamp01

	for i, pl := range p.Placements {
		id := ids.NewID()
		var o scene.Object
		switch pl.Kind {
		case scene.KindPlayer:
			team := pl.Team
			if team == "" {
				team = scene.TeamA
			}
			perTeam[team]++
			label := pl.Label
			if label == "" {
				label = PlayerLabel(team, perTeam[team])
			}
			o = scene.Player{ID: id, Team: team, X: c(pl.X), Y: c(pl.Y), Label: label}
		case scene.KindCone:
			o = scene.Cone{ID: id, X: c(pl.X), Y: c(pl.Y)}
		case scene.KindGoal:
			o = scene.Goal{ID: id, X: c(pl.X), Y: c(pl.Y)}
		case scene.KindBall:
			o = scene.Ball{ID: id, X: c(pl.X), Y: c(pl.Y)}
		case scene.KindRect:
			o = scene.Rect{ID: id, X: c(pl.X), Y: c(pl.Y), Width: pl.Width, Height: pl.Height}
		case scene.KindCircle:
			o = scene.Circle{ID: id, X: c(pl.X), Y: c(pl.Y), R: pl.R}
		case scene.KindArrow:
			o = scene.Arrow{ID: id, X1: c(pl.X), Y1: c(pl.Y), X2: c(pl.X2), Y2: c(pl.Y2)}
		case scene.KindText:
			o = scene.Text{ID: id, X: c(pl.X), Y: c(pl.Y), Text: pl.Label}
		default:
			return nil, fmt.Errorf("preset %s placement %d: %w: %q", p.Name, i, scene.ErrUnknownKind, pl.Kind)
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// line is one row of a formation, seen from the left-hand team.
type line struct {
	x  float64
	ys []float64
}

func lineup(team scene.Team, lines ...line) []Placement {
	var out []Placement
	for _, l := range lines {
		for _, y := range l.ys {
			out = append(out, Placement{Kind: scene.KindPlayer, Team: team, X: l.x, Y: y})
		}
	}
	return out
}

// mirror reflects placements across the halfway line and hands them to team.
func mirror(in []Placement, team scene.Team) []Placement {
	out := make([]Placement, len(in))
	for i, p := range in {
		p.X = 1 - p.X
		if p.Kind == scene.KindArrow {
			p.X2 = 1 - p.X2
		}
		if p.Kind == scene.KindPlayer {
			p.Team = team
		}
		out[i] = p
	}
	return out
}

func centerBall() Placement {
	return Placement{Kind: scene.KindBall, X: 0.5, Y: 0.5}
}

func elevenASide() Preset {
	home := lineup(scene.TeamA,
		line{x: 0.05, ys: []float64{0.5}},
		line{x: 0.18, ys: []float64{0.15, 0.38, 0.62, 0.85}},
		line{x: 0.32, ys: []float64{0.15, 0.38, 0.62, 0.85}},
		line{x: 0.44, ys: []float64{0.38, 0.62}},
	)
	placements := append(home, mirror(home, scene.TeamB)...)
	return Preset{
		Name:        "11v11",
		Description: "Full match, 4-4-2 against 4-4-2",
		Placements:  append(placements, centerBall()),
	}
}

func sevenASide() Preset {
	home := lineup(scene.TeamA,
		line{x: 0.06, ys: []float64{0.5}},
		line{x: 0.2, ys: []float64{0.25, 0.5, 0.75}},
		line{x: 0.33, ys: []float64{0.35, 0.65}},
		line{x: 0.44, ys: []float64{0.5}},
	)
	placements := append(home, mirror(home, scene.TeamB)...)
	return Preset{
		Name:        "7v7",
		Description: "Small-sided game, 3-2-1 against 3-2-1",
		Placements:  append(placements, centerBall()),
	}
}

func rondo4v2() Preset {
	// The square spans 24x24 view box units so it reads as a square on the
	// 100x60 surface.
	outer := []Placement{
		{Kind: scene.KindPlayer, Team: scene.TeamA, X: 0.38, Y: 0.3},
		{Kind: scene.KindPlayer, Team: scene.TeamA, X: 0.62, Y: 0.3},
		{Kind: scene.KindPlayer, Team: scene.TeamA, X: 0.62, Y: 0.7},
		{Kind: scene.KindPlayer, Team: scene.TeamA, X: 0.38, Y: 0.7},
	}
	inner := []Placement{
		{Kind: scene.KindPlayer, Team: scene.TeamB, X: 0.46, Y: 0.5},
		{Kind: scene.KindPlayer, Team: scene.TeamB, X: 0.54, Y: 0.5},
	}
	placements := append(outer, inner...)
	return Preset{
		Name:        "rondo4v2",
		Description: "Possession rondo, four outside and two pressing inside",
		Placements:  append(placements, Placement{Kind: scene.KindBall, X: 0.42, Y: 0.32}),
	}
}

// Builtins returns the presets shipped with the editor.
func Builtins() []Preset {
	return []Preset{elevenASide(), sevenASide(), rondo4v2()}
}

// Catalog is a registry of presets by name.
type Catalog struct {
	mu      sync.RWMutex
	presets map[string]Preset
}

// NewCatalog returns a catalog holding the built-in presets.
func NewCatalog() *Catalog {
	c := &Catalog{presets: make(map[string]Preset)}
	for _, p := range Builtins() {
		c.presets[p.Name] = p
	}
	return c
}

// Register adds or replaces a preset.
func (c *Catalog) Register(p Preset) error {
	if p.Name == "" {
		return errors.New("preset name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presets[p.Name] = p
	return nil
}

func (c *Catalog) Get(name string) (Preset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.presets[name]
	return p, ok
}

// Names returns the registered preset names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate builds the objects of the named preset.
func (c *Catalog) Generate(name string, ids scene.IDGenerator) ([]scene.Object, error) {
	p, ok := c.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return p.Generate(ids)
}

var defaultCatalog = NewCatalog()

// GeneratePreset builds a built-in preset.
func GeneratePreset(name string, ids scene.IDGenerator) ([]scene.Object, error) {
	return defaultCatalog.Generate(name, ids)
}
