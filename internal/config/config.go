// Package config holds the settings of the cars driver: a TOML file
// overridden by command line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/rmcsoft/offscreen"
)

// Display backends.
const (
	DisplaySDL    = "sdl"
	DisplayKMSDRM = "kmsdrm"
	DisplayNull   = "null"
)

// Config holds all driver settings.
type Config struct {
	// Window
	Name    string `toml:"name"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Display string `toml:"display"`

	// KMS/DRM output
	Card        int    `toml:"card"`
	PixelFormat string `toml:"pixel_format"`

	// Scenario
	Variant  int     `toml:"variant"`
	Steps    int     `toml:"steps"`
	Interval float64 `toml:"interval"` // seconds

	// Snapshots
	AutoSave       bool   `toml:"auto_save"`
	SnapshotDir    string `toml:"snapshot_dir"`
	SnapshotFormat string `toml:"snapshot_format"`

	// Colours as hex strings, e.g. "#000000"
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`

	LogLevel string `toml:"log_level"`
}

// Flags are command line values that take priority over the config file.
// A nil field was not given, so an explicit zero still overrides the file.
type Flags struct {
	Width       *int
	Height      *int
	Display     *string
	Variant     *int
	Steps       *int
	Interval    *float64
	AutoSave    bool
	SnapshotDir *string
	LogLevel    *string
}

// Default returns the settings of the original two car demo.
func Default() Config {
	return Config{
		Name:           "DisplayCarObject",
		Width:          600,
		Height:         500,
		Display:        DisplaySDL,
		PixelFormat:    "rgb16",
		Variant:        2,
		Steps:          300,
		Interval:       0.1,
		SnapshotDir:    "screenshots",
		SnapshotFormat: "png",
		Foreground:     "#000000",
		Background:     "#ffffff",
		LogLevel:       "info",
	}
}

// Load reads a TOML config file on top of the defaults.
// Fields not set in the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve applies command line flags.
func (c *Config) Resolve(flags Flags) {
	override(&c.Width, flags.Width)
	override(&c.Height, flags.Height)
	override(&c.Display, flags.Display)
	override(&c.Variant, flags.Variant)
	override(&c.Steps, flags.Steps)
	override(&c.Interval, flags.Interval)
	if flags.AutoSave {
		c.AutoSave = true
	}
	override(&c.SnapshotDir, flags.SnapshotDir)
	override(&c.LogLevel, flags.LogLevel)
}

func override[T any](dst *T, flag *T) {
	if flag != nil {
		*dst = *flag
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: invalid window size %dx%d", c.Width, c.Height)
	}
	if c.Steps < 0 {
		return fmt.Errorf("config: invalid steps %d", c.Steps)
	}
	if c.Interval < 0 {
		return fmt.Errorf("config: invalid interval %v", c.Interval)
	}

	switch c.Display {
	case DisplaySDL, DisplayKMSDRM, DisplayNull:
	default:
		return fmt.Errorf("config: unknown display %q", c.Display)
	}

	if _, err := c.PixFormat(); err != nil {
		return err
	}
	if _, err := c.Format(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, hex := range []string{c.Foreground, c.Background} {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("config: invalid colour %q: %w", hex, err)
		}
	}
	return nil
}

// IntervalDuration returns the pause between steps.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// PixFormat returns the KMS/DRM pixel format.
func (c *Config) PixFormat() (offscreen.PixelFormat, error) {
	switch strings.ToLower(c.PixelFormat) {
	case "rgb16":
		return offscreen.RGB16, nil
	case "rgb32":
		return offscreen.RGB32, nil
	default:
		return 0, fmt.Errorf("config: unknown pixel format %q", c.PixelFormat)
	}
}

// Format returns the snapshot format.
func (c *Config) Format() (offscreen.SnapshotFormat, error) {
	return offscreen.ParseSnapshotFormat(c.SnapshotFormat)
}

// Level returns the log level.
func (c *Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// ForegroundRGB returns the drawing colour channels.
func (c *Config) ForegroundRGB() (int, int, int) {
	return hexRGB(c.Foreground)
}

// BackgroundRGB returns the background colour channels.
func (c *Config) BackgroundRGB() (int, int, int) {
	return hexRGB(c.Background)
}

// hexRGB parses a validated hex colour; invalid input yields black.
func hexRGB(hex string) (int, int, int) {
	col, err := colorful.Hex(hex)
	if err != nil {
		return 0, 0, 0
	}
	r, g, b := col.RGB255()
	return int(r), int(g), int(b)
}
