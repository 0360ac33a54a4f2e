package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/tactiboard/internal/scene"
)

// WritePreset writes a preset to a YAML file
func WritePreset(p *Preset, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadPreset reads a preset from a YAML file
func ReadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &p, nil
}

// LoadDir registers every *.yaml / *.yml preset found in dir and returns how
// many were loaded. A missing directory is not an error.
func (c *Catalog) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read presets directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		p, err := ReadPreset(f)
		if err != nil {
			return 0, err
		}
		if err := c.Register(*p); err != nil {
			return 0, fmt.Errorf("%s: %w", f, err)
		}
	}
	return len(files), nil
}

// FromDocument captures the objects of doc as a reusable preset. Player
// labels are kept as written.
func FromDocument(name, description string, doc scene.Document) Preset {
	p := Preset{Name: name, Description: description}
	for _, o := range doc.Objects {
		var pl Placement
		switch v := o.(type) {
		case scene.Player:
			pl = Placement{Kind: scene.KindPlayer, Team: v.Team, X: v.X, Y: v.Y, Label: v.Label}
		case scene.Cone:
			pl = Placement{Kind: scene.KindCone, X: v.X, Y: v.Y}
		case scene.Goal:
			pl = Placement{Kind: scene.KindGoal, X: v.X, Y: v.Y}
		case scene.Ball:
			pl = Placement{Kind: scene.KindBall, X: v.X, Y: v.Y}
		case scene.Rect:
			pl = Placement{Kind: scene.KindRect, X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}
		case scene.Circle:
			pl = Placement{Kind: scene.KindCircle, X: v.X, Y: v.Y, R: v.R}
		case scene.Arrow:
			pl = Placement{Kind: scene.KindArrow, X: v.X1, Y: v.Y1, X2: v.X2, Y2: v.Y2}
		case scene.Text:
			pl = Placement{Kind: scene.KindText, X: v.X, Y: v.Y, Label: v.Text}
		default:
			panic(fmt.Sprintf("factory: unhandled object type %T", o))
		}
		p.Placements = append(p.Placements, pl)
	}
	return p
}
