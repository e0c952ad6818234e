// Package config holds the settings of the pdfstore command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdfstore/reader"
	"github.com/tsawler/pdfstore/store"
	"github.com/tsawler/pdfstore/writer"
)

// Config is read from a YAML file; flags override individual fields.
type Config struct {
	LogLevel        string `yaml:"log_level"`
	MaxNodes        int    `yaml:"max_nodes"`
	MaxObjects      int    `yaml:"max_objects"`
	MaxDepth        int    `yaml:"max_depth"`
	Compress        bool   `yaml:"compress"`
	KeepUnreachable bool   `yaml:"keep_unreachable"`
	ScanStreams     bool   `yaml:"scan_streams"`
	PDFVersion      string `yaml:"pdf_version"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		LogLevel:   "info",
		MaxNodes:   store.DefaultMaxNodes,
		MaxDepth:   100,
		PDFVersion: "1.7",
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges and formats.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxNodes < 0 || c.MaxObjects < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if _, _, err := c.Version(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Version parses PDFVersion as major.minor.
func (c Config) Version() (major, minor int, err error) {
	ma, mi, ok := strings.Cut(c.PDFVersion, ".")
	if ok {
		major, err = strconv.Atoi(ma)
		if err == nil {
			minor, err = strconv.Atoi(mi)
		}
	}
	if !ok || err != nil || major < 1 {
		return 0, 0, fmt.Errorf("pdf_version %q is not of the form 1.x", c.PDFVersion)
	}
	return major, minor, nil
}

// StoreOptions returns the store settings.
func (c Config) StoreOptions(logger *slog.Logger) []store.Option {
	return []store.Option{
		store.WithMaxNodes(c.MaxNodes),
		store.WithMaxObjects(c.MaxObjects),
		store.WithLogger(logger),
	}
}

// ReaderOptions returns the loader settings, including the store's.
func (c Config) ReaderOptions(logger *slog.Logger) []reader.Option {
	opts := []reader.Option{
		reader.WithLogger(logger),
		reader.WithStoreOptions(c.StoreOptions(logger)...),
	}
	if c.ScanStreams {
		opts = append(opts, reader.WithScanStreams())
	}
	return opts
}

// WriterOptions returns the serializer settings.
func (c Config) WriterOptions(logger *slog.Logger) []writer.Option {
	major, minor, _ := c.Version()
	opts := []writer.Option{
		writer.WithLogger(logger),
		writer.WithVersion(major, minor),
	}
	if c.Compress {
		opts = append(opts, writer.WithCompression())
	}
	return opts
}

// RenumberOptions returns the compaction settings.
func (c Config) RenumberOptions() []store.RenumberOption {
	if c.KeepUnreachable {
		return []store.RenumberOption{store.KeepUnreachable()}
	}
	return nil
}
