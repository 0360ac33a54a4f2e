package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ivlev/tactiboard/internal/analyzer"
	"github.com/ivlev/tactiboard/internal/config"
	"github.com/ivlev/tactiboard/internal/editor"
	"github.com/ivlev/tactiboard/internal/engine"
	"github.com/ivlev/tactiboard/internal/factory"
	"github.com/ivlev/tactiboard/internal/logger"
	"github.com/ivlev/tactiboard/internal/raster"
	"github.com/ivlev/tactiboard/internal/scene"
	"github.com/ivlev/tactiboard/internal/source"
	"github.com/ivlev/tactiboard/internal/storage"
	"github.com/ivlev/tactiboard/internal/system"
)

// app is what every command needs once flags are parsed.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	presets  *factory.Catalog
	resolver *source.Resolver
}

var cli *app

func setup() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	cfg.BuildVersion = buildVersion

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	system.InitResourceLimits(log)

	presets := factory.NewCatalog()
	if cfg.Presets.Dir != "" {
		n, err := presets.LoadDir(cfg.Presets.Dir)
		if err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
		if n > 0 {
			fmt.Printf("[*] Loaded %d custom presets from %s\n", n, cfg.Presets.Dir)
		}
	}

	trim, err := analyzer.NewDetector(cfg.Export.BackgroundDetector)
	if err != nil {
		return err
	}
	resolver := source.NewResolver(log)
	resolver.DPI = cfg.Export.DPI
	resolver.Trim = trim

	cli = &app{cfg: cfg, log: log, presets: presets, resolver: resolver}
	return nil
}

func (a *app) controller() *editor.Controller {
	settings := editor.Settings{
		SnapStep:        a.cfg.Editor.SnapStep,
		DuplicateOffset: a.cfg.Editor.DuplicateOffset,
	}
	return editor.NewController(settings, factory.New(nil), a.presets)
}

func (a *app) exportSettings() engine.Settings {
	return engine.Settings{
		Width:           a.cfg.Export.Width,
		Height:          a.cfg.Export.Height,
		ArrowHeadLength: a.cfg.Editor.ArrowHeadLength,
		KeyPrefix:       a.cfg.Storage.Prefix,
	}
}

func (a *app) rasterizer() (raster.Rasterizer, error) {
	return raster.New(a.cfg.Export.Rasterizer, a.resolver)
}

// uploader returns the configured upload target; nil when storage is off.
func (a *app) uploader() (storage.Uploader, error) {
	return storage.New(a.cfg.Storage, a.log)
}

func (a *app) pipeline() (*engine.Pipeline, error) {
	r, err := a.rasterizer()
	if err != nil {
		return nil, err
	}
	u, err := a.uploader()
	if err != nil {
		return nil, err
	}
	return engine.NewPipeline(r,
		engine.WithUploader(u),
		engine.WithResolver(a.resolver),
		engine.WithSettings(a.exportSettings()),
		engine.WithLogger(a.log),
	), nil
}

func sceneID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// readScene loads a scene file. A missing file yields nil so that editing
// can start from an empty scene.
func readScene(path string) (*scene.Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	doc, err := scene.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func printStatus(st engine.Status) {
	switch {
	case st.Err != nil:
		fmt.Printf("[!] Export failed: %v\n", st.Err)
	case st.Warning != nil:
		fmt.Printf("[!] Upload failed, the scene keeps its inline raster: %v\n", st.Warning)
	default:
		fmt.Printf("[*] Export %s\n", st.Stage)
	}
}

func printMemory() {
	m := system.ReadMemoryStats()
	fmt.Printf("[*] Memory: heap %.1f MiB | RSS %.1f MiB | host used %.1f%%\n",
		system.MiB(m.HeapAlloc), system.MiB(m.ProcessRSS), m.HostUsedPct)
}
