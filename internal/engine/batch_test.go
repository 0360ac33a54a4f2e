package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ivlev/tactiboard/internal/scene"
)

func writeScenes(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	for _, name := range []string{"a", "b"} {
		path := filepath.Join(dir, name+".json")
		require.NoError(t, scene.WriteFile(sampleDoc(), path))
		files = append(files, path)
	}
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0644))
	return append(files, broken)
}

func TestBatchRun(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	files := writeScenes(t, in)

	var progress bytes.Buffer
	b := &Batch{
		Rasterizer: &fakeRasterizer{},
		Uploader:   &fakeUploader{},
		Settings:   Settings{Width: 80, Height: 48},
		Workers:    2,
		OutDir:     out,
		Logger:     zaptest.NewLogger(t),
		Progress:   &progress,
	}
	results, err := b.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, res := range results[:2] {
		require.NoError(t, res.Err, res.Path)
		assert.Equal(t, StageDone, res.Status.Stage)
		assert.FileExists(t, res.Output)
		assert.Positive(t, res.Bytes)

		doc, err := scene.ReadFile(strings.TrimSuffix(res.Output, ".png") + ".json")
		require.NoError(t, err)
		assert.True(t, doc.HasRaster())
		assert.NotEmpty(t, doc.RenderedImageURL)
	}
	assert.Error(t, results[2].Err)
	assert.Equal(t, 3, strings.Count(progress.String(), "[>] Ready:"))

	r := NewReport("test", "fake", time.Second, results)
	ok, degraded, failed := r.Counts()
	assert.Equal(t, []int{2, 0, 1}, []int{ok, degraded, failed})

	var buf bytes.Buffer
	r.Print(&buf)
	assert.Contains(t, buf.String(), "[PERFORMANCE REPORT]")
	assert.Contains(t, buf.String(), "Scenes: 3 (ok 2, degraded 0, failed 1)")

	logPath := filepath.Join(t.TempDir(), "benchmarks.log")
	require.NoError(t, r.AppendLog(logPath, in))
	require.NoError(t, r.AppendLog(logPath, in))
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "Build: test"))
}

// lineWriter records lines and fails the test on overlapping writes.
type lineWriter struct {
	t       *testing.T
	writing atomic.Bool
	lines   []string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	if !w.writing.CompareAndSwap(false, true) {
		w.t.Error("concurrent progress write")
		return len(p), nil
	}
	defer w.writing.Store(false)
	time.Sleep(time.Millisecond)
	w.lines = append(w.lines, strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestBatchProgressIsSerialized(t *testing.T) {
	in := t.TempDir()
	var files []string
	for i := range 8 {
		path := filepath.Join(in, fmt.Sprintf("s%d.json", i))
		require.NoError(t, scene.WriteFile(sampleDoc(), path))
		files = append(files, path)
	}

	progress := &lineWriter{t: t}
	b := &Batch{
		Rasterizer: &fakeRasterizer{},
		Settings:   Settings{Width: 40, Height: 24},
		Workers:    4,
		OutDir:     t.TempDir(),
		Progress:   progress,
	}
	_, err := b.Run(context.Background(), files)
	require.NoError(t, err)

	want := make([]string, len(files))
	for i := range want {
		want[i] = fmt.Sprintf("[>] Ready: %d/%d", i+1, len(files))
	}
	assert.Equal(t, want, progress.lines)
}

func TestBatchDegradedUpload(t *testing.T) {
	in := t.TempDir()
	files := writeScenes(t, in)[:1]

	b := &Batch{
		Rasterizer: &fakeRasterizer{},
		Uploader:   &fakeUploader{fail: true},
		Settings:   Settings{Width: 80, Height: 48},
	}
	results, err := b.Run(context.Background(), files)
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.True(t, results[0].Status.Degraded())
	assert.FileExists(t, filepath.Join(in, "a.png"))

	ok, degraded, failed := NewReport("", "", 0, results).Counts()
	assert.Equal(t, []int{0, 1, 0}, []int{ok, degraded, failed})
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Batch{Rasterizer: &fakeRasterizer{}}
	_, err := b.Run(ctx, writeScenes(t, t.TempDir()))
	assert.ErrorIs(t, err, context.Canceled)
}
