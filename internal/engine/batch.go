package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/tactiboard/internal/raster"
	"github.com/ivlev/tactiboard/internal/scene"
	"github.com/ivlev/tactiboard/internal/source"
	"github.com/ivlev/tactiboard/internal/storage"
)

// BatchResult is the outcome for one scene file.
type BatchResult struct {
	Path     string
	Output   string
	Status   Status
	Bytes    int
	Duration time.Duration
	Err      error
}

// Batch exports many scene files, each through its own pipeline.
type Batch struct {
	Rasterizer raster.Rasterizer
	Uploader   storage.Uploader
	Resolver   *source.Resolver
	Settings   Settings
	Workers    int
	// OutDir receives <name>.png and the updated <name>.json. Empty means
	// next to the input.
	OutDir string
	Logger *zap.Logger
	// Progress receives the human progress lines, one write at a time; nil
	// discards them.
	Progress io.Writer
}

func sceneID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Run exports files concurrently. A failing scene is recorded in its result
// and does not stop the others; only cancellation of ctx aborts the batch.
func (b *Batch) Run(ctx context.Context, files []string) ([]BatchResult, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	progress := b.Progress
	if progress == nil {
		progress = io.Discard
	}
	workers := b.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]BatchResult, len(files))
	var (
		ready int
		mu    sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.exportFile(gctx, path, logger)
			mu.Lock()
			ready++
			fmt.Fprintf(progress, "[>] Ready: %d/%d\n", ready, len(files))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (b *Batch) exportFile(ctx context.Context, path string, logger *zap.Logger) BatchResult {
	start := time.Now()
	res := BatchResult{Path: path}
	fail := func(err error) BatchResult {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	doc, err := scene.ReadFile(path)
	if err != nil {
		return fail(err)
	}

	p := NewPipeline(b.Rasterizer,
		WithUploader(b.Uploader),
		WithResolver(b.Resolver),
		WithSettings(b.Settings),
		WithLogger(logger.With(zap.String("file", filepath.Base(path)))),
	)
	out, st := p.Export(ctx, sceneID(path), doc)
	res.Status = st
	if st.Err != nil {
		return fail(st.Err)
	}

	dir := b.OutDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(err)
	}
	base := filepath.Join(dir, sceneID(path))
	data := p.Raster()
	if err := os.WriteFile(base+".png", data, 0644); err != nil {
		return fail(err)
	}
	if err := scene.WriteFile(out, base+".json"); err != nil {
		return fail(err)
	}

	res.Output = base + ".png"
	res.Bytes = len(data)
	res.Duration = time.Since(start)
	return res
}
