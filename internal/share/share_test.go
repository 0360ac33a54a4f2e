package share

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/tactiboard/internal/scene"
)

func TestQRCode(t *testing.T) {
	data, err := QRCode("https://cdn.example.com/club/scenes/drill/0123456789abcdef.png", 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	_, err = QRCode("", 200)
	assert.ErrorIs(t, err, ErrNoRemoteRaster)
}

func TestWriteQRCode(t *testing.T) {
	doc := scene.New()
	doc.RenderedImage = "data:image/png;base64,AAAA"

	path := filepath.Join(t.TempDir(), "qr.png")
	_, err := WriteQRCode(doc, 0, path)
	assert.ErrorIs(t, err, ErrNoRemoteRaster, "degraded export has nothing to share")
	assert.NoFileExists(t, path)

	doc.RenderedImageURL = "https://cdn.example.com/x.png"
	url, err := WriteQRCode(doc, 0, path)
	require.NoError(t, err)
	assert.Equal(t, doc.RenderedImageURL, url)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, cfg.Width)
}
