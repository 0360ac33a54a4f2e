package renderer

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor understands #rgb, #rrggbb and SVG color names. ok is false for
// an empty or "none" paint and for anything it cannot read.
func ParseColor(s string, opacity float64) (color.NRGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "none" || s == "transparent" {
		return color.NRGBA{}, false
	}

	var c color.NRGBA
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return color.NRGBA{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, false
		}
		c = color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
	} else {
		named, ok := colornames.Map[s]
		if !ok {
			return color.NRGBA{}, false
		}
		c = color.NRGBA{R: named.R, G: named.G, B: named.B, A: 0xff}
	}

	if opacity < 1 {
		if opacity < 0 {
			opacity = 0
		}
		c.A = uint8(opacity*255 + 0.5)
	}
	return c, true
}

// ValidPaint reports whether s is a color ParseColor reads or an explicit
// absence of paint.
func ValidPaint(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "none", "transparent":
		return true
	}
	_, ok := ParseColor(s, 1)
	return ok
}

// paint renders a style color for SVG output. Unreadable colors become none.
func paint(s string) string {
	c, ok := ParseColor(s, 1)
	if !ok {
		return "none"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
