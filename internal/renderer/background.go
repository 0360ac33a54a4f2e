package renderer

import "github.com/ivlev/tactiboard/internal/scene"

// Pitch markings in view box units.
const (
	pitchMargin        = 2.0
	pitchLineWidth     = 0.4
	centerCircleRadius = 7.0
	penaltyAreaDepth   = 14.0
	penaltyAreaWidth   = 32.0
	goalAreaDepth      = 5.0
	goalAreaWidth      = 16.0
)

func drawBackground(s *Surface, bg scene.Background) {
	w, h := s.ViewBox()
	if bg.Kind == scene.BackgroundImage {
		// images only ever sit at the bottom of the surface
		s.add(ImageElement{W: w, H: h, Href: bg.URL})
		return
	}

	s.add(RectElement{W: w, H: h, Style: Style{Fill: GrassColor, Opacity: 1}})

	line := Style{Stroke: LineColor, StrokeWidth: pitchLineWidth, Opacity: 1}
	outline := RectElement{X: pitchMargin, Y: pitchMargin, W: w - 2*pitchMargin, H: h - 2*pitchMargin, Style: line}

	switch bg.Key {
	case scene.FreeSpace:
	case scene.HalfPitch:
		s.add(outline)
		s.add(boxes(w, h, false, line)...)
	default:
		s.add(outline,
			LineElement{X1: w / 2, Y1: pitchMargin, X2: w / 2, Y2: h - pitchMargin, Style: line},
			CircleElement{CX: w / 2, CY: h / 2, R: centerCircleRadius, Style: line},
			CircleElement{CX: w / 2, CY: h / 2, R: 0.4, Style: Style{Fill: LineColor, Opacity: 1}},
		)
		s.add(boxes(w, h, true, line)...)
	}
}

// boxes returns the penalty and goal areas of the right-hand goal, and of
// the left-hand one too when both is set.
func boxes(w, h float64, both bool, line Style) []Element {
	right := func(depth, width float64) Element {
		return RectElement{X: w - pitchMargin - depth, Y: (h - width) / 2, W: depth, H: width, Style: line}
	}
	left := func(depth, width float64) Element {
		return RectElement{X: pitchMargin, Y: (h - width) / 2, W: depth, H: width, Style: line}
	}

	out := []Element{right(penaltyAreaDepth, penaltyAreaWidth), right(goalAreaDepth, goalAreaWidth)}
	if both {
		out = append(out, left(penaltyAreaDepth, penaltyAreaWidth), left(goalAreaDepth, goalAreaWidth))
	}
	return out
}
