package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/tsawler/pdfstore/store"
)

// TestDefault tests that the defaults are valid
func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults are invalid: %v", err)
	}
	if cfg.MaxNodes != store.DefaultMaxNodes {
		t.Errorf("expected MaxNodes %d, got %d", store.DefaultMaxNodes, cfg.MaxNodes)
	}
	if level, _ := cfg.Level(); level != slog.LevelInfo {
		t.Errorf("expected info level, got %v", level)
	}
}

// TestParse tests decoding on top of the defaults
func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
max_objects: 5000
compress: true
pdf_version: "1.5"
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", level)
	}
	if cfg.MaxObjects != 5000 || !cfg.Compress {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxDepth != 100 {
		t.Errorf("unset field lost its default: MaxDepth = %d", cfg.MaxDepth)
	}
	if major, minor, _ := cfg.Version(); major != 1 || minor != 5 {
		t.Errorf("expected version 1.5, got %d.%d", major, minor)
	}
}

// TestParseEmpty tests that an empty document yields the defaults
func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

// TestParseErrors tests rejected configurations
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "max_nodez: 3"},
		{"bad level", "log_level: loud"},
		{"negative limit", "max_nodes: -1"},
		{"zero depth", "max_depth: 0"},
		{"bad version", "pdf_version: seven"},
		{"not yaml", "log_level: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// TestLoad tests reading from a file
func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfstore.yaml")
	if err := os.WriteFile(path, []byte("keep_unreachable: true\nscan_streams: true\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.KeepUnreachable || !cfg.ScanStreams {
		t.Errorf("unexpected config %+v", cfg)
	}
	if len(cfg.RenumberOptions()) != 1 {
		t.Error("expected a KeepUnreachable option")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// TestOptions tests that settings reach the packages they configure
func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Default()
	cfg.MaxObjects = 2

	s := store.New(cfg.StoreOptions(logger)...)
	for i := 0; i < 3; i++ {
		s.CreateObject("")
	}
	if _, err := s.CollectGarbage(nil); err == nil {
		t.Error("store ignored max_objects")
	}

	if n := len(cfg.ReaderOptions(logger)); n != 2 {
		t.Errorf("expected 2 reader options, got %d", n)
	}
	cfg.Compress = true
	if n := len(cfg.WriterOptions(logger)); n != 3 {
		t.Errorf("expected 3 writer options, got %d", n)
	}
	if cfg.RenumberOptions() != nil {
		t.Error("expected no renumber options by default")
	}
}
