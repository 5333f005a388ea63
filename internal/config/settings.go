package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// SettingsFileName is looked up next to the source and in its parents.
const SettingsFileName = "dvi.yaml"

// EnvPrefix starts every environment override, as in DVI_WIDTH.
const EnvPrefix = "DVI_"

// Settings are the host options shared by the CLI, the preview window and
// the render service.
type Settings struct {
	Canvas  Canvas  `yaml:"canvas"`
	Output  string  `yaml:"output,omitempty"`
	Store   Store   `yaml:"store"`
	Serve   Serve   `yaml:"serve"`
	Watch   Watch   `yaml:"watch"`
	Preview Preview `yaml:"preview"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
}

type Canvas struct {
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
	Background string `yaml:"background,omitempty"`
}

// Store selects the database where render traces are kept.
type Store struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

type Serve struct {
	Addr string `yaml:"addr,omitempty"`
}

type Watch struct {
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

type Preview struct {
	Scale int `yaml:"scale,omitempty"`
	TPS   int `yaml:"tps,omitempty"`
}

// DefaultSettings returns the built-in values.
func DefaultSettings() *Settings {
	return &Settings{
		Canvas:   Canvas{Width: DefaultWidth, Height: DefaultHeight, Background: DefaultBackground},
		Store:    Store{Driver: DefaultDriver, DSN: DefaultDSN},
		Serve:    Serve{Addr: DefaultGRPCAddr},
		Watch:    Watch{Debounce: DefaultDebounce},
		Preview:  Preview{Scale: DefaultScale, TPS: DefaultTPS},
		LogLevel: DefaultLogLevel,
	}
}

// DefaultDebounce groups bursts of writes from editors saving a file.
const DefaultDebounce = 150 * time.Millisecond

// LoadSettings reads path over the defaults. An empty path yields the
// defaults alone.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if err := s.Parse(data, path); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse overlays a YAML document on s. Keys the document omits keep their
// current value.
func (s *Settings) Parse(data []byte, path string) error {
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return s.validate(path)
}

// FindSettings walks from dir up to the root looking for dvi.yaml. It
// returns "" when there is none.
func FindSettings(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(abs, SettingsFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil
		}
		abs = parent
	}
}

// ApplyEnv overrides s with DVI_* variables that are set. The environment
// is re-read on every call, so values set after startup are seen.
func (s *Settings) ApplyEnv() error {
	env.Load()
	key := func(name string) string { return EnvPrefix + name }

	if env.Has(key("WIDTH")) {
		s.Canvas.Width = env.Int(key("WIDTH"), s.Canvas.Width)
	}
	if env.Has(key("HEIGHT")) {
		s.Canvas.Height = env.Int(key("HEIGHT"), s.Canvas.Height)
	}
	s.Canvas.Background = env.Str(key("BACKGROUND"), s.Canvas.Background)
	s.Output = env.Str(key("OUTPUT"), s.Output)
	s.Store.Driver = env.Str(key("STORE_DRIVER"), s.Store.Driver)
	s.Store.DSN = env.Str(key("STORE_DSN"), s.Store.DSN)
	s.Serve.Addr = env.Str(key("ADDR"), s.Serve.Addr)
	s.LogLevel = env.Str(key("LOG_LEVEL"), s.LogLevel)
	if env.Has(key("SCALE")) {
		s.Preview.Scale = env.Int(key("SCALE"), s.Preview.Scale)
	}
	if env.Has(key("TPS")) {
		s.Preview.TPS = env.Int(key("TPS"), s.Preview.TPS)
	}
	if env.Has(key("DEBOUNCE")) {
		d, err := time.ParseDuration(env.Str(key("DEBOUNCE")))
		if err != nil {
			return fmt.Errorf("%sDEBOUNCE: %w", EnvPrefix, err)
		}
		s.Watch.Debounce = d
	}
	return s.validate("environment")
}

var (
	ErrBadCanvas = errors.New("canvas width and height must be positive")
	ErrBadDriver = errors.New("unknown trace store driver")
	ErrBadLevel  = errors.New("unknown log level")
)

// Drivers are the trace store back ends.
var Drivers = []string{"sqlite", "postgres", "mysql"}

// LogLevels are the accepted log_level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

func (s *Settings) validate(origin string) error {
	if s.Canvas.Width <= 0 || s.Canvas.Height <= 0 {
		return fmt.Errorf("%s: %w (%dx%d)", origin, ErrBadCanvas, s.Canvas.Width, s.Canvas.Height)
	}
	if !contains(Drivers, s.Store.Driver) {
		return fmt.Errorf("%s: %w %q", origin, ErrBadDriver, s.Store.Driver)
	}
	if !contains(LogLevels, s.LogLevel) {
		return fmt.Errorf("%s: %w %q", origin, ErrBadLevel, s.LogLevel)
	}
	if s.Watch.Debounce < 0 {
		s.Watch.Debounce = 0
	}
	if s.Preview.Scale <= 0 {
		s.Preview.Scale = DefaultScale
	}
	if s.Preview.TPS <= 0 {
		s.Preview.TPS = DefaultTPS
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
