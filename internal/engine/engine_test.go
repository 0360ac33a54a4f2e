package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/ivlev/tactiboard/internal/raster"
	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/scene"
	"github.com/ivlev/tactiboard/internal/source"
	"github.com/ivlev/tactiboard/internal/system"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRasterizer returns a blank image and remembers the surfaces it saw.
// The first failures calls fail.
type fakeRasterizer struct {
	mu       sync.Mutex
	calls    int
	failures int
	surfaces []renderer.VectorSurface
	block    chan struct{}
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, s renderer.VectorSurface, w, h int) (*image.RGBA, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.surfaces = append(f.surfaces, s)
	if f.calls <= f.failures {
		return nil, errors.New("decode failed")
	}
	return system.GetImage(image.Rect(0, 0, w, h)), nil
}

type fakeUploader struct {
	mu    sync.Mutex
	fail  bool
	keys  []string
	bytes map[string]int
}

func (f *fakeUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	if f.fail {
		return "", errors.New("connection reset")
	}
	if f.bytes == nil {
		f.bytes = map[string]int{}
	}
	f.bytes[key] = len(data)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeUploader) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func sampleDoc() scene.Document {
	doc := scene.New()
	doc.Objects = []scene.Object{
		scene.Player{ID: "p1", Team: scene.TeamA, X: 0.3, Y: 0.5, Label: "A1"},
		scene.Arrow{ID: "a1", X1: 0.3, Y1: 0.5, X2: 0.6, Y2: 0.4},
	}
	return doc
}

func TestExportWithoutUploader(t *testing.T) {
	doc := sampleDoc()
	doc.RenderedImageURL = "https://cdn.example.com/stale.png"

	p := NewPipeline(&fakeRasterizer{}, WithLogger(zaptest.NewLogger(t)))
	assert.Equal(t, StageIdle, p.Status().Stage)

	out, st := p.Export(context.Background(), "drill-1", doc)
	assert.Equal(t, Status{Stage: StageDone}, st)
	assert.True(t, strings.HasPrefix(out.RenderedImage, "data:image/png;base64,"))
	assert.Empty(t, out.RenderedImageURL, "stale remote reference must be dropped")
	if diff := cmp.Diff(doc.Objects, out.Objects); diff != "" {
		t.Errorf("objects changed (-want +got):\n%s", diff)
	}

	img, err := png.Decode(bytes.NewReader(p.Raster()))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 480), img.Bounds())
}

func TestUploadFailureIsWarning(t *testing.T) {
	up := &fakeUploader{fail: true}
	r := &fakeRasterizer{}
	p := NewPipeline(r, WithUploader(up), WithLogger(zaptest.NewLogger(t)),
		WithSettings(Settings{Width: 100, Height: 60, KeyPrefix: "club"}))

	out, st := p.Export(context.Background(), "drill-2", sampleDoc())
	assert.Equal(t, StageError, st.Stage)
	assert.Equal(t, StageUploading, st.Failed)
	assert.NoError(t, st.Err)
	assert.ErrorIs(t, st.Warning, ErrUpload)
	assert.True(t, st.Degraded())
	assert.NotEmpty(t, out.RenderedImage, "inline raster is the fallback")
	assert.Empty(t, out.RenderedImageURL)

	up.setFail(false)
	out, st, err := p.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Status{Stage: StageDone}, st)
	assert.NotEmpty(t, out.RenderedImage)
	assert.True(t, strings.HasPrefix(out.RenderedImageURL, "https://cdn.example.com/club/scenes/drill-2/"))

	// the retry resumed at the upload and reused the key
	assert.Equal(t, 1, r.calls)
	require.Len(t, up.keys, 2)
	assert.Equal(t, up.keys[0], up.keys[1])
}

func TestExportFailureKeepsScene(t *testing.T) {
	doc := sampleDoc()
	doc.RenderedImage = "data:image/png;base64,b2xk"

	r := &fakeRasterizer{failures: 1}
	up := &fakeUploader{}
	p := NewPipeline(r, WithUploader(up), WithLogger(zaptest.NewLogger(t)))

	out, st := p.Export(context.Background(), "drill-3", doc)
	assert.Equal(t, StageError, st.Stage)
	assert.Equal(t, StageExporting, st.Failed)
	assert.ErrorIs(t, st.Err, ErrExport)
	assert.Nil(t, st.Warning)
	if diff := cmp.Diff(doc, out); diff != "" {
		t.Errorf("scene changed on export failure (-want +got):\n%s", diff)
	}
	assert.Empty(t, up.keys)

	out, st, err := p.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StageDone, st.Stage)
	assert.NotEqual(t, doc.RenderedImage, out.RenderedImage)
	assert.NotEmpty(t, out.RenderedImageURL)
}

func TestRetryWithoutFailure(t *testing.T) {
	p := NewPipeline(&fakeRasterizer{})
	_, _, err := p.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)

	p.Export(context.Background(), "x", sampleDoc())
	_, _, err = p.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)

	p.Reset()
	assert.Equal(t, StageIdle, p.Status().Stage)
	assert.Nil(t, p.Raster())
}

func TestBrokenBackgroundIsExportError(t *testing.T) {
	doc := sampleDoc()
	doc.Background = scene.ImageBackground("ftp://example.com/pitch.png")

	p := NewPipeline(&fakeRasterizer{})
	_, st := p.Export(context.Background(), "x", doc)
	assert.ErrorIs(t, st.Err, ErrExport)
	assert.ErrorIs(t, st.Err, source.ErrUnsupportedHref)
}

func TestImageBackgroundIsEmbedded(t *testing.T) {
	bgPath := filepath.Join(t.TempDir(), "pitch.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	require.NoError(t, os.WriteFile(bgPath, buf.Bytes(), 0644))

	doc := sampleDoc()
	doc.Background = scene.ImageBackground(bgPath)

	r := &fakeRasterizer{}
	p := NewPipeline(r)
	out, st := p.Export(context.Background(), "x", doc)
	require.Equal(t, StageDone, st.Stage)
	assert.Equal(t, bgPath, out.Background.URL, "document keeps its own reference")

	require.Len(t, r.surfaces, 1)
	img, ok := r.surfaces[0].Elements()[0].(renderer.ImageElement)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(img.Href, "data:image/png;base64,"))
}

func TestSecondExportWhileBusy(t *testing.T) {
	r := &fakeRasterizer{block: make(chan struct{})}
	p := NewPipeline(r)

	done := make(chan Status)
	go func() {
		_, st := p.Export(context.Background(), "slow", sampleDoc())
		done <- st
	}()

	require.Eventually(t, func() bool { return p.Status().Busy() }, timeout, tick)
	doc := sampleDoc()
	out, st := p.Export(context.Background(), "other", doc)
	assert.ErrorIs(t, st.Err, ErrBusy)
	assert.Equal(t, doc, out)
	p.Reset()
	assert.True(t, p.Status().Busy(), "reset must not interrupt a running stage")

	close(r.block)
	assert.Equal(t, StageDone, (<-done).Stage)
}

func TestExportWithCanvasRasterizer(t *testing.T) {
	r, err := raster.New("canvas", nil)
	require.NoError(t, err)

	p := NewPipeline(r, WithSettings(Settings{Width: 400, Height: 240}))
	out, st := p.Export(context.Background(), "real", sampleDoc())
	require.Equal(t, StageDone, st.Stage, st.String())

	data, mime, err := source.DecodeDataURI(out.RenderedImage)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 240), img.Bounds())
}

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
