package editor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivlev/tactiboard/internal/engine"
	"github.com/ivlev/tactiboard/internal/scene"
	"github.com/ivlev/tactiboard/internal/storage"
)

var (
	ErrExportInFlight = errors.New("export in flight")
	ErrSessionClosed  = errors.New("session closed")
	ErrNoUploader     = errors.New("no background uploader configured")
)

// Exporter is the part of the export pipeline a session drives.
// *engine.Pipeline implements it.
type Exporter interface {
	Export(ctx context.Context, sceneID string, doc scene.Document) (scene.Document, engine.Status)
	Retry(ctx context.Context) (scene.Document, engine.Status, error)
	Status() engine.Status
}

// Persister stores a saved document.
type Persister interface {
	Persist(ctx context.Context, sceneID string, doc scene.Document) error
}

type PersisterFunc func(ctx context.Context, sceneID string, doc scene.Document) error

func (f PersisterFunc) Persist(ctx context.Context, sceneID string, doc scene.Document) error {
	return f(ctx, sceneID, doc)
}

// Session is one open editor on a scene. Every edit goes to a draft; the
// persisted document only changes through Save.
type Session struct {
	sceneID    string
	controller *Controller
	exporter   Exporter
	persister  Persister
	uploader   storage.Uploader
	keyPrefix  string
	logger     *zap.Logger
	history    *History

	persisted    scene.Document
	hasPersisted bool
	state        State
	// set once the running drag has been recorded in history
	dragRecorded bool
	closed       bool
	// rev counts draft changes; savedRev is the revision handed to the
	// exporter by the last Save.
	rev      int
	savedRev int
}

type SessionOption func(*Session)

func WithPersister(p Persister) SessionOption {
	return func(s *Session) {
		s.persister = p
	}
}

// WithBackgroundUploader enables UploadBackground. Keys are placed under
// prefix.
func WithBackgroundUploader(u storage.Uploader, prefix string) SessionOption {
	return func(s *Session) {
		s.uploader = u
		s.keyPrefix = prefix
	}
}

func WithHistorySize(n int) SessionOption {
	return func(s *Session) {
		s.history = NewHistory(n)
	}
}

func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open starts a session on persisted, or on an empty scene when persisted
// is nil.
func Open(sceneID string, persisted *scene.Document, c *Controller, exp Exporter, opts ...SessionOption) *Session {
	s := &Session{
		sceneID:    sceneID,
		controller: c,
		exporter:   exp,
		logger:     zap.NewNop(),
		history:    NewHistory(DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.controller == nil {
		s.controller = NewController(DefaultSettings(), nil, nil)
	}

	draft := scene.New()
	if persisted != nil {
		s.persisted = persisted.Clone()
		s.hasPersisted = true
		draft = persisted.Clone()
	}
	s.state = NewState(draft)
	s.logger.Debug("session opened", zap.String("scene_id", sceneID), zap.Int("objects", len(draft.Objects)))
	return s
}

func (s *Session) SceneID() string { return s.sceneID }

// State returns the current interaction state. The caller must not modify
// the objects of the returned document.
func (s *Session) State() State { return s.state }

func (s *Session) Draft() scene.Document { return s.state.Doc.Clone() }

// Persisted returns the last saved document, if any.
func (s *Session) Persisted() (scene.Document, bool) {
	return s.persisted.Clone(), s.hasPersisted
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

func (s *Session) exporting() bool {
	return s.exporter != nil && s.exporter.Status().Busy()
}

// Dispatch applies cmd to the draft. Shortcut commands are dropped while an
// export is in flight. Every change is recorded for undo; a drag is
// recorded once.
func (s *Session) Dispatch(cmd Command) (Result, error) {
	if s.closed {
		return Result{}, ErrSessionClosed
	}
	if IsShortcut(cmd) && s.exporting() {
		s.logger.Debug("shortcut ignored during export", zap.String("command", fmt.Sprintf("%T", cmd)))
		return Result{}, nil
	}

	switch cmd.(type) {
	case Undo:
		return s.step(s.history.Undo), nil
	case Redo:
		return s.step(s.history.Redo), nil
	}

	prev := s.state
	next, res := s.controller.Apply(prev, cmd)
	if res.Changed {
		s.rev++
		switch {
		case prev.Grab == nil:
			s.history.Record(prev.Doc)
		case !s.dragRecorded:
			s.history.Record(prev.Doc)
			s.dragRecorded = true
		}
	}
	if next.Grab == nil {
		s.dragRecorded = false
	}
	s.state = next
	return res, nil
}

func (s *Session) step(move func(scene.Document) (scene.Document, bool)) Result {
	if s.state.Mode == Dragging {
		return Result{}
	}
	doc, ok := move(s.state.Doc)
	if !ok {
		return Result{}
	}
	next := NewState(doc)
	if s.state.Selected != "" && doc.Index(s.state.Selected) >= 0 {
		next.Mode = Selected
		next.Selected = s.state.Selected
	}
	s.state = next
	s.rev++
	return Result{Changed: true}
}

// UploadBackground stores an image through the background uploader and
// makes it the scene background.
func (s *Session) UploadBackground(ctx context.Context, name string, data []byte) (Result, error) {
	if s.closed {
		return Result{}, ErrSessionClosed
	}
	if s.uploader == nil {
		return Result{}, ErrNoUploader
	}
	key := storage.BackgroundKey(s.keyPrefix, name, data)
	url, err := s.uploader.Upload(ctx, key, data, http.DetectContentType(data))
	if err != nil {
		return Result{}, fmt.Errorf("upload background: %w", err)
	}
	s.logger.Info("background uploaded", zap.String("key", key), zap.String("url", url))
	return s.Dispatch(SetBackground{Background: scene.ImageBackground(url)})
}

// Save exports the draft and hands the result to the persister. An export
// error leaves both documents as they were and can be retried with
// RetrySave. A failed upload still saves, with the inline raster only.
func (s *Session) Save(ctx context.Context) (scene.Document, engine.Status, error) {
	if s.closed {
		return scene.Document{}, engine.Status{}, ErrSessionClosed
	}
	s.savedRev = s.rev
	out, st := s.exporter.Export(ctx, s.sceneID, s.state.Doc)
	return s.finish(ctx, out, st)
}

// RetrySave resumes a failed save from the stage that failed. When the
// draft was edited after that save, the draft is exported again instead.
func (s *Session) RetrySave(ctx context.Context) (scene.Document, engine.Status, error) {
	if s.closed {
		return scene.Document{}, engine.Status{}, ErrSessionClosed
	}
	if s.rev != s.savedRev && s.exporter.Status().Stage == engine.StageError {
		s.logger.Info("draft edited since the failed save, exporting it again", zap.String("scene_id", s.sceneID))
		return s.Save(ctx)
	}
	out, st, err := s.exporter.Retry(ctx)
	if err != nil {
		return s.state.Doc.Clone(), st, err
	}
	return s.finish(ctx, out, st)
}

func (s *Session) finish(ctx context.Context, out scene.Document, st engine.Status) (scene.Document, engine.Status, error) {
	if st.Err != nil {
		return s.state.Doc.Clone(), st, st.Err
	}
	if st.Warning != nil {
		s.logger.Warn("saving without remote raster", zap.String("scene_id", s.sceneID), zap.Error(st.Warning))
	}

	if s.persister != nil {
		if err := s.persister.Persist(ctx, s.sceneID, out); err != nil {
			return s.state.Doc.Clone(), st, fmt.Errorf("persist: %w", err)
		}
	}
	s.state.Doc = out.Clone()
	s.persisted = out.Clone()
	s.hasPersisted = true
	s.logger.Info("scene saved", zap.String("scene_id", s.sceneID), zap.String("status", st.String()))
	return out, st, nil
}

// Cancel discards the draft and closes the session. It returns the
// persisted document, which is untouched.
func (s *Session) Cancel() (scene.Document, bool, error) {
	if err := s.Close(); err != nil {
		return scene.Document{}, false, err
	}
	return s.persisted.Clone(), s.hasPersisted, nil
}

// Close ends the session. It refuses while an export stage is in flight.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	if s.exporting() {
		return ErrExportInFlight
	}
	s.closed = true
	s.history.Clear()
	s.logger.Debug("session closed", zap.String("scene_id", s.sceneID))
	return nil
}
