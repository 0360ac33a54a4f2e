package editor

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ivlev/tactiboard/internal/engine"
	"github.com/ivlev/tactiboard/internal/renderer"
	"github.com/ivlev/tactiboard/internal/scene"
	"github.com/ivlev/tactiboard/internal/system"
)

type fakeExporter struct {
	busy    bool
	fail    error
	warn    error
	exports int
	last    engine.Status
	input   scene.Document
}

func (f *fakeExporter) run(doc scene.Document) (scene.Document, engine.Status) {
	if f.fail != nil {
		f.last = engine.Status{Stage: engine.StageError, Failed: engine.StageExporting, Err: f.fail}
		return doc, f.last
	}
	out := doc.Clone()
	out.RenderedImage = "data:image/png;base64,AAAA"
	if f.warn != nil {
		f.last = engine.Status{Stage: engine.StageError, Failed: engine.StageUploading, Warning: f.warn}
		return out, f.last
	}
	out.RenderedImageURL = "https://cdn.example.com/scene.png"
	f.last = engine.Status{Stage: engine.StageDone}
	return out, f.last
}

func (f *fakeExporter) Export(ctx context.Context, sceneID string, doc scene.Document) (scene.Document, engine.Status) {
	f.exports++
	f.input = doc.Clone()
	return f.run(doc)
}

func (f *fakeExporter) Retry(ctx context.Context) (scene.Document, engine.Status, error) {
	if f.last.Stage != engine.StageError {
		return scene.Document{}, f.last, engine.ErrNothingToRetry
	}
	out, st := f.run(f.input)
	return out, st, nil
}

func (f *fakeExporter) Status() engine.Status {
	if f.busy {
		return engine.Status{Stage: engine.StageExporting}
	}
	return f.last
}

type memPersister struct {
	saved map[string]scene.Document
	err   error
}

func (m *memPersister) Persist(ctx context.Context, sceneID string, doc scene.Document) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = map[string]scene.Document{}
	}
	m.saved[sceneID] = doc.Clone()
	return nil
}

type recordingUploader struct {
	keys  []string
	types []string
}

func (r *recordingUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	r.keys = append(r.keys, key)
	r.types = append(r.types, contentType)
	return "https://cdn.example.com/" + key, nil
}

func persistedDoc() scene.Document {
	return docWith(
		scene.Player{ID: "p1", Team: scene.TeamA, X: 0.3, Y: 0.3, Label: "A1"},
		scene.Cone{ID: "c1", X: 0.6, Y: 0.6},
	)
}

func openSession(t *testing.T, persisted *scene.Document, exp Exporter, opts ...SessionOption) *Session {
	t.Helper()
	opts = append(opts, WithSessionLogger(zaptest.NewLogger(t)))
	return Open("drill-7", persisted, newController(), exp, opts...)
}

func TestCancelKeepsPersisted(t *testing.T) {
	orig := persistedDoc()
	want := orig.Clone()
	s := openSession(t, &orig, &fakeExporter{})

	_, err := s.Dispatch(PointerDown{Target: "p1", X: 0.3, Y: 0.3})
	require.NoError(t, err)
	_, err = s.Dispatch(PointerMove{X: 0.7, Y: 0.1})
	require.NoError(t, err)
	_, err = s.Dispatch(PointerUp{X: 0.7, Y: 0.1})
	require.NoError(t, err)
	_, err = s.Dispatch(ApplyPreset{Name: "11v11", Confirm: true})
	require.NoError(t, err)
	assert.Len(t, s.Draft().Objects, 23)

	got, ok, err := s.Cancel()
	require.NoError(t, err)
	assert.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("persisted document changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, orig); diff != "" {
		t.Errorf("caller's document changed (-want +got):\n%s", diff)
	}

	_, err = s.Dispatch(Escape{})
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, _, err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestOpenEmpty(t *testing.T) {
	s := openSession(t, nil, &fakeExporter{})
	_, ok := s.Persisted()
	assert.False(t, ok)
	assert.Empty(t, s.Draft().Objects)
	assert.Equal(t, scene.TemplateBackground(scene.FullPitch), s.Draft().Background)
	assert.Equal(t, "drill-7", s.SceneID())
}

func TestUndoRedo(t *testing.T) {
	s := openSession(t, nil, &fakeExporter{})
	count := func() int { return len(s.Draft().Objects) }

	for _, kind := range []scene.Kind{scene.KindCone, scene.KindBall} {
		res, err := s.Dispatch(AddObject{Kind: kind})
		require.NoError(t, err)
		require.True(t, res.Changed)
	}
	assert.Equal(t, 2, count())

	res, _ := s.Dispatch(Undo{})
	assert.True(t, res.Changed)
	assert.Equal(t, 1, count())
	s.Dispatch(Undo{})
	assert.Equal(t, 0, count())
	res, _ = s.Dispatch(Undo{})
	assert.False(t, res.Changed)
	assert.False(t, s.CanUndo())

	s.Dispatch(Redo{})
	assert.Equal(t, 1, count())
	assert.True(t, s.CanRedo())

	s.Dispatch(AddObject{Kind: scene.KindGoal})
	assert.False(t, s.CanRedo(), "a new edit drops the redo stack")
	assert.Equal(t, []scene.Kind{scene.KindCone, scene.KindGoal},
		[]scene.Kind{s.Draft().Objects[0].Kind(), s.Draft().Objects[1].Kind()})
}

func TestDragIsOneUndoStep(t *testing.T) {
	orig := persistedDoc()
	s := openSession(t, &orig, &fakeExporter{})

	for _, cmd := range []Command{
		PointerDown{Target: "c1", X: 0.6, Y: 0.6},
		PointerMove{X: 0.65, Y: 0.6},
		PointerMove{X: 0.7, Y: 0.65},
		PointerMove{X: 0.74, Y: 0.7},
		PointerUp{X: 0.74, Y: 0.7},
	} {
		_, err := s.Dispatch(cmd)
		require.NoError(t, err)
	}
	moved := s.Draft().Objects[1].(scene.Cone)
	assert.InDelta(t, 0.74, moved.X, eps)

	res, _ := s.Dispatch(Undo{})
	assert.True(t, res.Changed)
	if diff := cmp.Diff(orig, s.Draft()); diff != "" {
		t.Errorf("undo did not restore the scene (-want +got):\n%s", diff)
	}
	assert.False(t, s.CanUndo())
	assert.Equal(t, "c1", s.State().Selected)
}

func TestShortcutsDisabledDuringExport(t *testing.T) {
	orig := persistedDoc()
	exp := &fakeExporter{}
	s := openSession(t, &orig, exp)

	_, err := s.Dispatch(PointerDown{Target: "p1", X: 0.3, Y: 0.3})
	require.NoError(t, err)

	exp.busy = true
	for _, cmd := range []Command{Delete{}, Duplicate{}, Escape{}, Undo{}} {
		res, err := s.Dispatch(cmd)
		require.NoError(t, err)
		assert.False(t, res.Changed, "%T", cmd)
	}
	assert.Len(t, s.Draft().Objects, 2)
	assert.Equal(t, "p1", s.State().Selected)
	assert.ErrorIs(t, s.Close(), ErrExportInFlight)
	_, _, err = s.Cancel()
	assert.ErrorIs(t, err, ErrExportInFlight)

	exp.busy = false
	res, err := s.Dispatch(Delete{})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSave(t *testing.T) {
	orig := persistedDoc()
	store := &memPersister{}
	s := openSession(t, &orig, &fakeExporter{}, WithPersister(store))

	s.Dispatch(AddObject{Kind: scene.KindText})
	out, st, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StageDone, st.Stage)
	assert.Len(t, out.Objects, 3)
	assert.NotEmpty(t, out.RenderedImageURL)

	persisted, ok := s.Persisted()
	require.True(t, ok)
	if diff := cmp.Diff(out, persisted); diff != "" {
		t.Errorf("(-saved +persisted):\n%s", diff)
	}
	if diff := cmp.Diff(out, store.saved["drill-7"]); diff != "" {
		t.Errorf("(-saved +stored):\n%s", diff)
	}
	assert.True(t, s.Draft().HasRaster())

	s.Dispatch(AddObject{Kind: scene.KindCone})
	assert.False(t, s.Draft().HasRaster(), "an edit after save drops the raster")
}

func TestSaveExportFailure(t *testing.T) {
	orig := persistedDoc()
	store := &memPersister{}
	exp := &fakeExporter{fail: errors.New("decode failed")}
	s := openSession(t, &orig, exp, WithPersister(store))
	s.Dispatch(AddObject{Kind: scene.KindBall})
	draft := s.Draft()

	_, st, err := s.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, engine.StageExporting, st.Failed)
	assert.Empty(t, store.saved)
	persisted, _ := s.Persisted()
	if diff := cmp.Diff(orig, persisted); diff != "" {
		t.Errorf("persisted changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(draft, s.Draft()); diff != "" {
		t.Errorf("draft changed (-want +got):\n%s", diff)
	}

	exp.fail = nil
	out, st, err := s.RetrySave(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StageDone, st.Stage)
	assert.Len(t, out.Objects, 3)
	assert.Contains(t, store.saved, "drill-7")
}

// flakyRasterizer fails its first failures calls.
type flakyRasterizer struct {
	failures int
	calls    int
}

func (r *flakyRasterizer) Rasterize(ctx context.Context, s renderer.VectorSurface, width, height int) (*image.RGBA, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, errors.New("out of memory")
	}
	return system.GetImage(image.Rect(0, 0, width, height)), nil
}

func TestRetrySaveKeepsLaterEdits(t *testing.T) {
	store := &memPersister{}
	p := engine.NewPipeline(&flakyRasterizer{failures: 1}, engine.WithSettings(engine.Settings{Width: 80, Height: 48}))
	s := openSession(t, nil, p, WithPersister(store))

	s.Dispatch(AddObject{Kind: scene.KindBall})
	_, st, err := s.Save(context.Background())
	require.ErrorIs(t, err, engine.ErrExport)
	assert.Equal(t, engine.StageExporting, st.Failed)

	s.Dispatch(AddObject{Kind: scene.KindCone})
	s.Dispatch(AddObject{Kind: scene.KindCone})
	require.Len(t, s.Draft().Objects, 3)

	out, st, err := s.RetrySave(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StageDone, st.Stage)
	assert.Len(t, out.Objects, 3)
	assert.Len(t, s.Draft().Objects, 3)
	assert.Len(t, store.saved["drill-7"].Objects, 3)
	assert.True(t, s.Draft().HasRaster())
}

func TestRetrySaveWithoutEditsResumes(t *testing.T) {
	exp := &fakeExporter{warn: errors.New("timeout")}
	s := openSession(t, nil, exp, WithPersister(&memPersister{}))
	s.Dispatch(AddObject{Kind: scene.KindBall})

	_, st, err := s.Save(context.Background())
	require.NoError(t, err)
	require.True(t, st.Degraded())

	exp.warn = nil
	out, st, err := s.RetrySave(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StageDone, st.Stage)
	assert.NotEmpty(t, out.RenderedImageURL)
	assert.Equal(t, 1, exp.exports, "retry resumes the failed job")
}

func TestRetryDegradedSaveKeepsLaterEdits(t *testing.T) {
	exp := &fakeExporter{warn: errors.New("timeout")}
	store := &memPersister{}
	s := openSession(t, nil, exp, WithPersister(store))
	s.Dispatch(AddObject{Kind: scene.KindBall})

	_, _, err := s.Save(context.Background())
	require.NoError(t, err)

	s.Dispatch(AddObject{Kind: scene.KindText})
	exp.warn = nil
	out, st, err := s.RetrySave(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.StageDone, st.Stage)
	assert.Len(t, out.Objects, 2)
	assert.Len(t, s.Draft().Objects, 2)
	assert.Len(t, store.saved["drill-7"].Objects, 2)
	assert.Equal(t, 2, exp.exports)
}

func TestSaveWithFailedUpload(t *testing.T) {
	store := &memPersister{}
	s := openSession(t, nil, &fakeExporter{warn: errors.New("timeout")}, WithPersister(store))
	s.Dispatch(ApplyPreset{Name: "rondo4v2"})

	out, st, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Degraded())
	assert.NotEmpty(t, out.RenderedImage)
	assert.Empty(t, out.RenderedImageURL)
	assert.Contains(t, store.saved, "drill-7")
}

func TestSavePersistError(t *testing.T) {
	s := openSession(t, nil, &fakeExporter{}, WithPersister(&memPersister{err: errors.New("disk full")}))
	_, _, err := s.Save(context.Background())
	assert.ErrorContains(t, err, "disk full")
	_, ok := s.Persisted()
	assert.False(t, ok)
}

func TestUploadBackground(t *testing.T) {
	s := openSession(t, nil, &fakeExporter{})
	_, err := s.UploadBackground(context.Background(), "pitch.png", []byte("x"))
	assert.ErrorIs(t, err, ErrNoUploader)

	up := &recordingUploader{}
	s = openSession(t, nil, &fakeExporter{}, WithBackgroundUploader(up, "club"))
	png := []byte("\x89PNG\r\n\x1a\n0000")
	res, err := s.UploadBackground(context.Background(), "Pitch.PNG", png)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	require.Len(t, up.keys, 1)
	assert.True(t, strings.HasPrefix(up.keys[0], "club/backgrounds/"))
	assert.True(t, strings.HasSuffix(up.keys[0], ".png"))
	assert.Equal(t, "image/png", up.types[0])
	assert.Equal(t, scene.ImageBackground("https://cdn.example.com/"+up.keys[0]), s.Draft().Background)
}

func TestParseScript(t *testing.T) {
	script := `
- preset: {name: rondo4v2, confirm: true}
- add: {kind: player, team: B}
- down: {x: 0.5, y: 0.5, resolve: true}
- move: {x: 0.6, y: 0.5}
- up: {x: 0.6, y: 0.5}
- style: {opacity: 0.5, dashed: true}
- background: {background: {kind: template, key: half_pitch}}
- duplicate
- delete: {}
- undo
`
	cmds, err := ParseScript([]byte(script))
	require.NoError(t, err)

	want := []Command{
		ApplyPreset{Name: "rondo4v2", Confirm: true},
		AddObject{Kind: scene.KindPlayer, Team: scene.TeamB},
		PointerDown{X: 0.5, Y: 0.5, Resolve: true},
		PointerMove{X: 0.6, Y: 0.5},
		PointerUp{X: 0.6, Y: 0.5},
		SetStyle{Opacity: scene.Float(0.5), Dashed: scene.Bool(true)},
		SetBackground{Background: scene.TemplateBackground(scene.HalfPitch)},
		Duplicate{},
		Delete{},
		Undo{},
	}
	if diff := cmp.Diff(want, cmds); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseScriptErrors(t *testing.T) {
	tests := map[string]string{
		"not a list":      "preset: 7v7",
		"unknown command": "- teleport: {x: 1}",
		"two keys":        "- {down: {x: 1}, up: {x: 1}}",
		"bad argument":    "- move: {x: far}",
	}
	for name, script := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScript([]byte(script))
			assert.Error(t, err)
		})
	}
	assert.Contains(t, ScriptCommands(), "preset")
}

func TestRunScript(t *testing.T) {
	cmds, err := ParseScript([]byte(`
- add: {kind: cone}
- down: {x: 0.5, y: 0.5, resolve: true}
- move: {x: 0.6, y: 0.5}
- up: {x: 0.6, y: 0.5}
- duplicate
- preset: {name: 7v7}
`))
	require.NoError(t, err)

	s := openSession(t, nil, &fakeExporter{})
	results, err := s.Run(cmds)
	require.NoError(t, err)
	require.Len(t, results, len(cmds))
	assert.True(t, results[len(results)-1].NeedsConfirmation)

	doc := s.Draft()
	require.Len(t, doc.Objects, 2)
	first := doc.Objects[0].(scene.Cone)
	second := doc.Objects[1].(scene.Cone)
	assert.InDelta(t, 0.6, first.X, eps)
	assert.InDelta(t, 0.62, second.X, eps)
	assert.InDelta(t, 0.52, second.Y, eps)

	s.Close()
	_, err = s.Run(cmds)
	assert.ErrorIs(t, err, ErrSessionClosed)
}
