package source

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDataURIRoundTrip(t *testing.T) {
	uri, err := EncodeDataURI(testImage(4, 3))
	require.NoError(t, err)
	assert.Contains(t, uri, "data:image/png;base64,")

	data, mime, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	src, err := Open(data)
	require.NoError(t, err)
	w, h, err := src.PageSize(0)
	require.NoError(t, err)
	assert.Equal(t, 4.0, w)
	assert.Equal(t, 3.0, h)
}

func TestDecodeDataURIPlain(t *testing.T) {
	data, mime, err := DecodeDataURI("data:text/plain,hello%20pitch")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mime)
	assert.Equal(t, "hello pitch", string(data))

	_, _, err = DecodeDataURI("data:image/png;base64")
	assert.ErrorIs(t, err, ErrUnsupportedHref)
}

func TestResolverSources(t *testing.T) {
	payload := pngBytes(t, testImage(8, 6))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pitch.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "pitch.png")
	require.NoError(t, os.WriteFile(path, payload, 0644))

	r := NewResolver(zaptest.NewLogger(t))
	r.Client = srv.Client()

	for _, href := range []string{
		srv.URL + "/pitch.png",
		path,
		"file://" + path,
		DataURI("image/png", payload),
	} {
		img, err := r.Load(context.Background(), href)
		require.NoError(t, err, href)
		assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds(), href)
	}

	_, err := r.Load(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
}

func TestResolverRejects(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Fetch(context.Background(), "ftp://example.com/pitch.png")
	assert.ErrorIs(t, err, ErrUnsupportedHref)
	_, err = r.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnsupportedHref)

	_, err = r.Load(context.Background(), DataURI("image/png", []byte("not an image")))
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	r := NewResolver(nil)
	inline := DataURI("image/png", pngBytes(t, testImage(2, 2)))

	out, err := r.Embed(context.Background(), inline)
	require.NoError(t, err)
	assert.Equal(t, inline, out)

	path := filepath.Join(t.TempDir(), "bg.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, testImage(5, 5)), 0644))
	out, err = r.Embed(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "data:image/png;base64,")
}

func TestFit(t *testing.T) {
	img := testImage(320, 80)
	fitted := Fit(img, 160)
	assert.Equal(t, image.Rect(0, 0, 160, 40), fitted.Bounds())

	small := testImage(10, 10)
	assert.Same(t, small, Fit(small, 160))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, isPDF(pngBytes(t, testImage(1, 1))))
}
