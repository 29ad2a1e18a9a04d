// Package config loads dseedconv settings from YAML.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/codec"
	"github.com/daramkun/dseed/pulse"
)

// Config is the complete converter configuration.
type Config struct {
	Log      LogConfig   `yaml:"log"`
	Decoders []string    `yaml:"decoders"` // registry subset and order; empty means all
	ICO      ICOConfig   `yaml:"ico"`
	Audio    AudioConfig `yaml:"audio"`
	Workers  int         `yaml:"workers"` // 0 means one per CPU
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ICOConfig maps onto codec.ICOOptions.
type ICOConfig struct {
	Cursor   bool `yaml:"cursor"`
	Compress bool `yaml:"compress"`
}

// AudioConfig controls the WAV conversion path.
type AudioConfig struct {
	SampleRate    int    `yaml:"sample_rate"` // 0 keeps the source rate
	Interpolation string `yaml:"interpolation"`
	Downmix       bool   `yaml:"downmix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Audio: AudioConfig{Interpolation: "nearest"},
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, dseed.ErrIO)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %v: %w", err, dseed.ErrInvalidArgs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills empty fields with defaults and rejects unknown values.
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log.format %q: %w", c.Log.Format, dseed.ErrInvalidArgs)
	}
	if _, err := codec.Select(c.Decoders); err != nil {
		return fmt.Errorf("config: decoders: %w", err)
	}
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("config: audio.sample_rate %d: %w", c.Audio.SampleRate, dseed.ErrInvalidArgs)
	}
	if _, err := pulse.ParseInterpolation(c.Audio.Interpolation); err != nil {
		return fmt.Errorf("config: audio.interpolation: %w", err)
	}
	if c.Audio.Interpolation == "" {
		c.Audio.Interpolation = "nearest"
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers %d: %w", c.Workers, dseed.ErrInvalidArgs)
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", l.Level, dseed.ErrInvalidArgs)
	}
	return lv, nil
}

// Logger builds a logger writing to w. verbose forces debug level.
func (l LogConfig) Logger(w io.Writer, verbose bool) *slog.Logger {
	lv, err := l.level()
	if err != nil || verbose {
		lv = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lv}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Registry returns the bitmap decoder registry named by Decoders.
func (c *Config) Registry() (*codec.Registry, error) { return codec.Select(c.Decoders) }

// ICOOptions returns the icon encoder options.
func (c *Config) ICOOptions() codec.ICOOptions {
	return codec.ICOOptions{Cursor: c.ICO.Cursor, Compress: c.ICO.Compress}
}

// Interpolation returns the parsed resampling kernel.
func (c *Config) Interpolation() pulse.Interpolation {
	i, _ := pulse.ParseInterpolation(c.Audio.Interpolation)
	return i
}
