package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	s, err := LoadSettings("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Canvas.Width != DefaultWidth || s.Store.Driver != DefaultDriver || s.Watch.Debounce != DefaultDebounce {
		t.Errorf("unexpected defaults %+v", s)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	s := DefaultSettings()
	src := `
canvas:
  width: 64
store:
  driver: postgres
  dsn: postgres://localhost/dvi
watch:
  debounce: 40ms
`
	if err := s.Parse([]byte(src), "dvi.yaml"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Canvas.Width != 64 || s.Canvas.Height != DefaultHeight {
		t.Errorf("canvas: %+v", s.Canvas)
	}
	if s.Store.Driver != "postgres" || s.Store.DSN != "postgres://localhost/dvi" {
		t.Errorf("store: %+v", s.Store)
	}
	if s.Watch.Debounce != 40*time.Millisecond {
		t.Errorf("debounce: %v", s.Watch.Debounce)
	}
	if s.Serve.Addr != DefaultGRPCAddr {
		t.Errorf("unset keys must keep their defaults, addr = %q", s.Serve.Addr)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"canvas: {width: 0}", ErrBadCanvas},
		{"store: {driver: oracle}", ErrBadDriver},
		{"log_level: loud", ErrBadLevel},
	}
	for _, tt := range tests {
		err := DefaultSettings().Parse([]byte(tt.src), "dvi.yaml")
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.src, tt.want, err)
		}
	}
	if err := DefaultSettings().Parse([]byte("canvas: ["), "dvi.yaml"); err == nil {
		t.Errorf("malformed YAML must fail")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DVI_WIDTH", "32")
	t.Setenv("DVI_STORE_DRIVER", "mysql")
	t.Setenv("DVI_DEBOUNCE", "1s")
	t.Setenv("DVI_LOG_LEVEL", "debug")

	s := DefaultSettings()
	if err := s.Parse([]byte("canvas: {width: 100, height: 50}"), "dvi.yaml"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := s.ApplyEnv(); err != nil {
		t.Fatalf("env: %v", err)
	}
	if s.Canvas.Width != 32 || s.Canvas.Height != 50 {
		t.Errorf("environment must win over the file: %+v", s.Canvas)
	}
	if s.Store.Driver != "mysql" || s.Watch.Debounce != time.Second || s.LogLevel != "debug" {
		t.Errorf("unexpected settings %+v", s)
	}

	t.Setenv("DVI_DEBOUNCE", "soon")
	if err := DefaultSettings().ApplyEnv(); err == nil {
		t.Errorf("a bad duration must fail")
	}
}

func TestApplyEnvSeesLaterChanges(t *testing.T) {
	t.Setenv("DVI_WIDTH", "10")
	s := DefaultSettings()
	if err := s.ApplyEnv(); err != nil || s.Canvas.Width != 10 {
		t.Fatalf("first apply: %v, width %d", err, s.Canvas.Width)
	}

	if err := os.Setenv("DVI_WIDTH", "20"); err != nil {
		t.Fatal(err)
	}
	s = DefaultSettings()
	if err := s.ApplyEnv(); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if s.Canvas.Width != 20 {
		t.Errorf("expected the updated width 20, got %d", s.Canvas.Width)
	}
}

func TestFindSettings(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, SettingsFileName)
	if err := os.WriteFile(want, []byte("canvas: {width: 8}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindSettings(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	s, err := LoadSettings(got)
	if err != nil || s.Canvas.Width != 8 {
		t.Errorf("load %s: %+v, %v", got, s, err)
	}
}
