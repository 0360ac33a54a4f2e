// Package engine runs the export pipeline: render the scene, rasterize it
// to a fixed-size PNG and upload it.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/tactiboard/internal/geometry"
	"github.com/ivlev/tactiboard/internal/raster"
	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/scene"
	"github.com/ivlev/tactiboard/internal/source"
	"github.com/ivlev/tactiboard/internal/storage"
	"github.com/ivlev/tactiboard/internal/system"
)

type Stage string

const (
	StageIdle      Stage = "idle"
	StageExporting Stage = "exporting"
	StageUploading Stage = "uploading"
	StageDone      Stage = "done"
	StageError     Stage = "error"
)

var (
	ErrExport         = errors.New("export failed")
	ErrUpload         = errors.New("upload failed")
	ErrNothingToRetry = errors.New("nothing to retry")
	ErrBusy           = errors.New("export already in flight")
)

// Status is what callers observe of the pipeline. In the error stage
// Failed names the stage that failed. An export failure sets Err and
// leaves the scene as it was; an upload failure sets Warning and the
// document still carries its inline raster.
type Status struct {
	Stage   Stage
	Failed  Stage
	Err     error
	Warning error
}

// Busy reports whether a stage is in flight.
func (s Status) Busy() bool {
	return s.Stage == StageExporting || s.Stage == StageUploading
}

// Degraded reports a finished export whose upload failed.
func (s Status) Degraded() bool {
	return s.Warning != nil
}

func (s Status) String() string {
	switch {
	case s.Err != nil:
		return fmt.Sprintf("%s (%s): %v", s.Stage, s.Failed, s.Err)
	case s.Warning != nil:
		return fmt.Sprintf("%s (%s): warning: %v", s.Stage, s.Failed, s.Warning)
	}
	return string(s.Stage)
}

type Settings struct {
	Width           int
	Height          int
	ArrowHeadLength float64
	// KeyPrefix is prepended to upload keys.
	KeyPrefix string
}

func DefaultSettings() Settings {
	return Settings{Width: 800, Height: 480, ArrowHeadLength: geometry.DefaultArrowHeadLength}
}

// job is kept between runs so that a retry can resume where it failed.
type job struct {
	sceneID string
	input   scene.Document
	result  scene.Document
	png     []byte
}

// Pipeline exports one scene at a time. It is safe to read Status from
// other goroutines while Export runs.
type Pipeline struct {
	rasterizer raster.Rasterizer
	uploader   storage.Uploader
	images     *source.Resolver
	settings   Settings
	logger     *zap.Logger

	mu     sync.Mutex
	status Status
	last   *job
}

type Option func(*Pipeline)

// WithUploader sets the raster upload target. Without one the pipeline
// stops after exporting.
func WithUploader(u storage.Uploader) Option {
	return func(p *Pipeline) {
		p.uploader = u
	}
}

func WithResolver(r *source.Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.images = r
		}
	}
}

func WithSettings(s Settings) Option {
	return func(p *Pipeline) {
		p.settings = s
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPipeline(r raster.Rasterizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		rasterizer: r,
		settings:   DefaultSettings(),
		logger:     zap.NewNop(),
		status:     Status{Stage: StageIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.images == nil {
		p.images = source.NewResolver(p.logger)
	}
	if p.settings.Width <= 0 || p.settings.Height <= 0 {
		p.settings.Width, p.settings.Height = 800, 480
	}
	return p
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Raster returns the PNG produced by the last successful export stage.
func (p *Pipeline) Raster() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	return p.last.png
}

func (p *Pipeline) set(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// begin moves the pipeline into stage unless a stage is already in flight.
func (p *Pipeline) begin(stage Stage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.Busy() {
		return false
	}
	p.status = Status{Stage: stage}
	return true
}

// Reset returns a settled pipeline to idle and forgets the last job.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.Busy() {
		return
	}
	p.status = Status{Stage: StageIdle}
	p.last = nil
}

// Export runs every stage for doc. On an export failure the returned
// document is doc itself; otherwise it carries the inline raster and, when
// the upload went through, the remote reference.
func (p *Pipeline) Export(ctx context.Context, sceneID string, doc scene.Document) (scene.Document, Status) {
	if !p.begin(StageExporting) {
		return doc, Status{Stage: StageError, Failed: StageExporting, Err: ErrBusy}
	}
	j := &job{sceneID: sceneID, input: doc.Clone()}
	p.mu.Lock()
	p.last = j
	p.mu.Unlock()
	return p.run(ctx, j, StageExporting)
}

// Retry resumes the last job from the stage that failed.
func (p *Pipeline) Retry(ctx context.Context) (scene.Document, Status, error) {
	p.mu.Lock()
	st, j := p.status, p.last
	if st.Stage != StageError || j == nil {
		p.mu.Unlock()
		return scene.Document{}, st, ErrNothingToRetry
	}
	from := st.Failed
	p.status = Status{Stage: from}
	p.mu.Unlock()

	p.logger.Info("retrying export", zap.String("scene_id", j.sceneID), zap.String("from", string(from)))
	doc, st := p.run(ctx, j, from)
	return doc, st, nil
}

func (p *Pipeline) run(ctx context.Context, j *job, from Stage) (scene.Document, Status) {
	log := p.logger.With(zap.String("scene_id", j.sceneID))

	if from == StageExporting {
		p.set(Status{Stage: StageExporting})
		start := time.Now()
		out, data, err := p.export(ctx, j.input)
		if err != nil {
			st := Status{Stage: StageError, Failed: StageExporting, Err: fmt.Errorf("%w: %w", ErrExport, err)}
			p.set(st)
			log.Error("export failed", zap.Error(err))
			return j.input.Clone(), st
		}
		p.mu.Lock()
		j.result, j.png = out, data
		p.mu.Unlock()
		log.Info("stage finished",
			zap.String("stage", string(StageExporting)),
			zap.Int("bytes", len(data)),
			zap.Duration("took", time.Since(start)))
	}

	if p.uploader == nil {
		st := Status{Stage: StageDone}
		p.set(st)
		return j.result.Clone(), st
	}

	p.set(Status{Stage: StageUploading})
	start := time.Now()
	key := storage.RasterKey(p.settings.KeyPrefix, j.sceneID, j.png)
	ref, err := p.uploader.Upload(ctx, key, j.png, "image/png")
	if err != nil {
		st := Status{Stage: StageError, Failed: StageUploading, Warning: fmt.Errorf("%w: %w", ErrUpload, err)}
		p.set(st)
		log.Warn("upload failed, keeping inline raster", zap.String("key", key), zap.Error(err))
		return j.result.Clone(), st
	}

	p.mu.Lock()
	j.result.RenderedImageURL = ref
	p.mu.Unlock()
	log.Info("stage finished",
		zap.String("stage", string(StageUploading)),
		zap.String("url", ref),
		zap.Duration("took", time.Since(start)))

	st := Status{Stage: StageDone}
	p.set(st)
	return j.result.Clone(), st
}

// export renders doc and returns it with a fresh inline raster plus the
// PNG bytes. Image backgrounds are embedded so the surface needs nothing
// from outside.
func (p *Pipeline) export(ctx context.Context, doc scene.Document) (scene.Document, []byte, error) {
	view := doc.Normalized()
	if view.Background.Kind == scene.BackgroundImage {
		href, err := p.images.Embed(ctx, view.Background.URL)
		if err != nil {
			return doc, nil, fmt.Errorf("background: %w", err)
		}
		view.Background.URL = href
	}

	surface := renderer.Render(view, renderer.Options{ArrowHeadLength: p.settings.ArrowHeadLength})
	svg, err := surface.Serialize()
	if err != nil {
		return doc, nil, fmt.Errorf("serialize: %w", err)
	}
	p.logger.Debug("surface serialized", zap.Int("svg_bytes", len(svg)), zap.Int("elements", len(surface.Elements())))

	img, err := p.rasterizer.Rasterize(ctx, surface, p.settings.Width, p.settings.Height)
	if err != nil {
		return doc, nil, fmt.Errorf("rasterize: %w", err)
	}
	defer system.PutImage(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return doc, nil, fmt.Errorf("encode png: %w", err)
	}

	out := doc.Clone()
	out.RenderedImage = source.DataURI("image/png", buf.Bytes())
	out.RenderedImageURL = ""
	return out, buf.Bytes(), nil
}
