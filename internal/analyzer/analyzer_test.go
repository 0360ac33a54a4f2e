package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sheet is a white page with a dark pitch outline drawn at pitch.
func sheet(w, h int, pitch image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	ink := image.NewUniform(color.Black)
	const stroke = 4
	for _, r := range []image.Rectangle{
		image.Rect(pitch.Min.X, pitch.Min.Y, pitch.Max.X, pitch.Min.Y+stroke),
		image.Rect(pitch.Min.X, pitch.Max.Y-stroke, pitch.Max.X, pitch.Max.Y),
		image.Rect(pitch.Min.X, pitch.Min.Y, pitch.Min.X+stroke, pitch.Max.Y),
		image.Rect(pitch.Max.X-stroke, pitch.Min.Y, pitch.Max.X, pitch.Max.Y),
	} {
		draw.Draw(img, r, ink, image.Point{}, draw.Src)
	}
	return img
}

func near(t *testing.T, want, got image.Rectangle, tol int) {
	t.Helper()
	d := []int{
		want.Min.X - got.Min.X, want.Min.Y - got.Min.Y,
		got.Max.X - want.Max.X, got.Max.Y - want.Max.Y,
	}
	for _, v := range d {
		assert.True(t, v >= 0 && v <= tol, "want %v within %dpx of %v", got, tol, want)
	}
}

func TestContrastDetectorFindsDrawing(t *testing.T) {
	pitch := image.Rect(50, 40, 150, 160)
	rect, ok := NewContrastDetector().Bounds(sheet(200, 200, pitch))
	require.True(t, ok)
	near(t, pitch, rect, 12)
}

func TestContrastDetectorOnLargePage(t *testing.T) {
	pitch := image.Rect(150, 200, 850, 1200)
	img := sheet(1000, 1400, pitch)
	rect, ok := NewContrastDetector().Bounds(img)
	require.True(t, ok)
	near(t, pitch, rect, 40)

	trimmed := Trim(img, NewContrastDetector())
	assert.Equal(t, rect, trimmed.Bounds())
}

func TestNothingToTrim(t *testing.T) {
	d := NewContrastDetector()

	blank := sheet(120, 80, image.Rectangle{})
	_, ok := d.Bounds(blank)
	assert.False(t, ok)

	edgeToEdge := sheet(120, 80, image.Rect(0, 0, 120, 80))
	_, ok = d.Bounds(edgeToEdge)
	assert.False(t, ok, "content fills the page")
	assert.Same(t, edgeToEdge, Trim(edgeToEdge, d))
}

func TestDetectorRegistry(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{"contrast", false},
		{"", false},
		{"none", false},
		{"ocr", true},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			d, err := NewDetector(tt.variant)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, d)
		})
	}

	d, _ := NewDetector("none")
	img := sheet(100, 100, image.Rect(30, 30, 60, 60))
	assert.Same(t, img, Trim(img, d))
}
