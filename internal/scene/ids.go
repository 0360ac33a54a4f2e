package scene

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator hands out object identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator produces prefix1, prefix2, ... and is meant for tests and
// scripted sessions where ids must be reproducible. Not safe for concurrent use.
type SequenceGenerator struct {
	Prefix string
	next   int
}

func NewSequence(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

func (g *SequenceGenerator) NewID() string {
	g.next++
	return fmt.Sprintf("%s%d", g.Prefix, g.next)
}

// UniqueID draws ids from gen until one is not used by doc.
func UniqueID(gen IDGenerator, doc Document) string {
	for {
		id := gen.NewID()
		if id != "" && doc.Index(id) < 0 {
			return id
		}
	}
}

// EnsureUniqueIDs reassigns empty or duplicated ids in place. The first
// occurrence of a duplicated id keeps it. Returns the number of objects that
// got a new id.
func EnsureUniqueIDs(doc *Document, gen IDGenerator) int {
	seen := make(map[string]bool, len(doc.Objects))
	changed := 0
	for i, o := range doc.Objects {
		id := o.ObjectID()
		if id != "" && !seen[id] {
			seen[id] = true
			continue
		}
		for {
			id = gen.NewID()
			if id != "" && !seen[id] && doc.Index(id) < 0 {
				break
			}
		}
		doc.Objects[i] = WithID(o, id)
		seen[id] = true
		changed++
	}
	return changed
}
