// Package config loads the editor and export settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/ivlev/tactiboard/internal/geometry"
)

type Config struct {
	Editor  EditorConfig
	Export  ExportConfig
	Storage StorageConfig
	Presets PresetsConfig
	Log     LogConfig

	BuildVersion string
}

// EditorConfig holds the empirical constants of the interaction model.
type EditorConfig struct {
	SnapStep        float64
	DuplicateOffset float64
	ArrowHeadLength float64
	HistorySize     int
}

type ExportConfig struct {
	Width      int
	Height     int
	Rasterizer string // canvas | svg
	Workers    int
	ShowStats  bool
	DPI        int // for PDF backgrounds
	// BackgroundDetector crops PDF backgrounds to their drawing: contrast | none
	BackgroundDetector string
}

// StorageConfig selects where rasters and background images are uploaded.
type StorageConfig struct {
	Backend       string // none | file | s3
	Dir           string // file backend
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	UseSSL        bool
	PublicBaseURL string
	Prefix        string
}

type PresetsConfig struct {
	Dir string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
	Output string // stdout | stderr | file path
}

// Load reads configuration from a YAML file and TACTIBOARD_* environment
// variables. With an empty path, tactiboard.yaml is looked up in the working
// directory and in $HOME/.config/tactiboard; a missing file is fine.
// Priority: environment, file, built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tactiboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "tactiboard"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TACTIBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Editor: EditorConfig{
			SnapStep:        v.GetFloat64("editor.snap_step"),
			DuplicateOffset: v.GetFloat64("editor.duplicate_offset"),
			ArrowHeadLength: v.GetFloat64("editor.arrow_head_length"),
			HistorySize:     v.GetInt("editor.history_size"),
		},
		Export: ExportConfig{
			Width:      v.GetInt("export.width"),
			Height:     v.GetInt("export.height"),
			Rasterizer: v.GetString("export.rasterizer"),
			Workers:    v.GetInt("export.workers"),
			ShowStats:  v.GetBool("export.show_stats"),
			DPI:        v.GetInt("export.dpi"),

			BackgroundDetector: v.GetString("export.background_detector"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storage.backend"),
			Dir:           v.GetString("storage.dir"),
			Bucket:        v.GetString("storage.bucket"),
			Region:        v.GetString("storage.region"),
			Endpoint:      v.GetString("storage.endpoint"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
			UseSSL:        v.GetBool("storage.use_ssl"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			Prefix:        v.GetString("storage.prefix"),
		},
		Presets: PresetsConfig{
			Dir: v.GetString("presets.dir"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Editor.SnapStep == 0 {
		cfg.Editor.SnapStep = geometry.DefaultSnapStep
	}
	if cfg.Editor.DuplicateOffset == 0 {
		cfg.Editor.DuplicateOffset = 0.02
	}
	if cfg.Editor.ArrowHeadLength == 0 {
		cfg.Editor.ArrowHeadLength = geometry.DefaultArrowHeadLength
	}
	if cfg.Editor.HistorySize == 0 {
		cfg.Editor.HistorySize = 50
	}
	if cfg.Export.Width == 0 {
		cfg.Export.Width = 800
	}
	if cfg.Export.Height == 0 {
		cfg.Export.Height = 480
	}
	if cfg.Export.Rasterizer == "" {
		cfg.Export.Rasterizer = "canvas"
	}
	if cfg.Export.Workers == 0 {
		cfg.Export.Workers = runtime.NumCPU()
	}
	if cfg.Export.DPI == 0 {
		cfg.Export.DPI = 150
	}
	if cfg.Export.BackgroundDetector == "" {
		cfg.Export.BackgroundDetector = "contrast"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "none"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "uploads"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
}

func (c *Config) validate() error {
	if c.Editor.SnapStep < 0 || c.Editor.SnapStep > 0.5 {
		return fmt.Errorf("editor.snap_step must be in (0, 0.5], got %v", c.Editor.SnapStep)
	}
	if c.Editor.DuplicateOffset < 0 || c.Editor.DuplicateOffset > 0.5 {
		return fmt.Errorf("editor.duplicate_offset must be in [0, 0.5], got %v", c.Editor.DuplicateOffset)
	}
	if c.Editor.HistorySize < 0 {
		return fmt.Errorf("editor.history_size cannot be negative")
	}
	if c.Export.Width < 0 || c.Export.Height < 0 {
		return fmt.Errorf("export size must be positive, got %dx%d", c.Export.Width, c.Export.Height)
	}
	if c.Export.Workers < 0 {
		return fmt.Errorf("export.workers cannot be negative")
	}

	switch c.Storage.Backend {
	case "none", "file":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}
