// Package scene holds the authoritative description of a tactical diagram:
// a background plus a z-ordered list of objects in normalized coordinates.
package scene

import "github.com/ivlev/tactiboard/internal/geometry"

// SchemaVersion is written into every new document.
const SchemaVersion = 1

type BackgroundKind string

const (
	BackgroundTemplate BackgroundKind = "template"
	BackgroundImage    BackgroundKind = "image"
)

// TemplateKey names one of the built-in pitch drawings.
type TemplateKey string

const (
	FullPitch TemplateKey = "full_pitch"
	HalfPitch TemplateKey = "half_pitch"
	FreeSpace TemplateKey = "free_space"
)

// Background is either a named template or a user supplied image.
type Background struct {
	Kind BackgroundKind `json:"kind"`
	Key  TemplateKey    `json:"key,omitempty"`
	URL  string         `json:"url,omitempty"`
}

func TemplateBackground(key TemplateKey) Background {
	return Background{Kind: BackgroundTemplate, Key: key}
}

func ImageBackground(url string) Background {
	return Background{Kind: BackgroundImage, URL: url}
}

// Document is a complete scene. Objects are stored in paint order: later
// entries are drawn on top. RenderedImage (a data URI) and RenderedImageURL
// are derived from the rest of the document and cleared on every change.
type Document struct {
	Version          int
	Background       Background
	Objects          []Object
	RenderedImage    string
	RenderedImageURL string
}

// New returns an empty full-pitch document.
func New() Document {
	return Document{
		Version:    SchemaVersion,
		Background: TemplateBackground(FullPitch),
		Objects:    []Object{},
	}
}

// Clone deep-copies the document.
func (d Document) Clone() Document {
	c := d
	c.Objects = make([]Object, len(d.Objects))
	for i, o := range d.Objects {
		c.Objects[i] = Clone(o)
	}
	return c
}

// Index returns the position of id in Objects, or -1.
func (d Document) Index(id string) int {
	if id == "" {
		return -1
	}
	for i, o := range d.Objects {
		if o.ObjectID() == id {
			return i
		}
	}
	return -1
}

// Find returns the object with the given id.
func (d Document) Find(id string) (Object, bool) {
	i := d.Index(id)
	if i < 0 {
		return nil, false
	}
	return d.Objects[i], true
}

// CountPlayers returns how many players of team are on the scene.
func (d Document) CountPlayers(team Team) int {
	n := 0
	for _, o := range d.Objects {
		if p, ok := o.(Player); ok && p.Team == team {
			n++
		}
	}
	return n
}

// CountKind returns how many objects of kind are on the scene.
func (d Document) CountKind(kind Kind) int {
	n := 0
	for _, o := range d.Objects {
		if o.Kind() == kind {
			n++
		}
	}
	return n
}

// HasRaster reports whether a derived raster is attached.
func (d Document) HasRaster() bool {
	return d.RenderedImage != "" || d.RenderedImageURL != ""
}

// InvalidateRaster drops the cached raster artifacts.
func (d *Document) InvalidateRaster() {
	d.RenderedImage = ""
	d.RenderedImageURL = ""
}

// Normalized returns a copy with every coordinate clamped to [0,1] and a
// missing background or version filled in. Out-of-range input is repaired,
// never rejected.
func (d Document) Normalized() Document {
	c := d.Clone()
	if c.Version == 0 {
		c.Version = SchemaVersion
	}
	if c.Background.Kind == "" {
		c.Background = TemplateBackground(FullPitch)
	}
	for i, o := range c.Objects {
		c.Objects[i] = MapCoords(o, geometry.Clamp01)
	}
	return c
}
