package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/rmcsoft/offscreen"
	"github.com/rmcsoft/offscreen/cars"
	"github.com/rmcsoft/offscreen/internal/config"
	"github.com/rmcsoft/offscreen/kmsdrm"
	"github.com/rmcsoft/offscreen/sdlengine"
)

// Options left unset stay nil so that explicit zeros override the config file.
type options struct {
	Config      string   `short:"c" long:"config"       description:"TOML config file"`
	Width       *int     `short:"W" long:"width"        description:"Initial window width"`
	Height      *int     `short:"H" long:"height"       description:"Initial window height"`
	Display     *string  `short:"d" long:"display"      description:"Display backend" choice:"sdl" choice:"kmsdrm" choice:"null"`
	Variant     *int     `short:"n" long:"variant"      description:"Scenario variant, shifts start positions and speeds"`
	Steps       *int     `short:"s" long:"steps"        description:"Number of simulated steps"`
	Interval    *float64 `short:"i" long:"interval"     description:"Pause between steps in seconds"`
	AutoSave    bool     `short:"a" long:"auto-save"    description:"Store every frame as a numbered snapshot"`
	SnapshotDir *string  `short:"o" long:"snapshot-dir" description:"Existing directory for snapshots"`
	LogLevel    *string  `short:"l" long:"log-level"    description:"Log level"`
}

func init() {
	// SDL has to run on the main OS thread
	runtime.LockOSThread()
}

func parseCmd() options {
	var opts options
	var cmdParser = flags.NewParser(&opts, flags.Default)

	if _, err := cmdParser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			os.Exit(1)
		}
	}

	return opts
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return cfg, err
		}
	}

	cfg.Resolve(config.Flags{
		Width:       opts.Width,
		Height:      opts.Height,
		Display:     opts.Display,
		Variant:     opts.Variant,
		Steps:       opts.Steps,
		Interval:    opts.Interval,
		AutoSave:    opts.AutoSave,
		SnapshotDir: opts.SnapshotDir,
		LogLevel:    opts.LogLevel,
	})
	return cfg, cfg.Validate()
}

func makeAnimator(cfg config.Config, paintEngine offscreen.PaintEngine) *offscreen.Animator {
	var animatorOpts []offscreen.Option
	if cfg.AutoSave {
		format, _ := cfg.Format()
		animatorOpts = append(animatorOpts,
			offscreen.WithAutoSave(filepath.Clean(cfg.SnapshotDir)),
			offscreen.WithSnapshotFormat(format))
	}

	animator := offscreen.NewAnimator(cfg.Name, cfg.Width, cfg.Height, paintEngine, animatorOpts...)

	canvas := animator.Canvas()
	canvas.SetColor(cfg.ForegroundRGB())
	canvas.SetBackground(cfg.BackgroundRGB())
	canvas.Clear()
	return animator
}

func makeCrossing(cfg config.Config) *cars.Crossing {
	crossing := cars.NewCrossing(cfg.Variant)
	crossing.Steps = cfg.Steps
	crossing.Interval = cfg.IntervalDuration()
	return crossing
}

// runWindow shows the animation in an SDL window. The scenario starts when
// the window is first exposed; closing the window ends the program. Resizes
// keep working after the scenario has finished.
func runWindow(ctx context.Context, cfg config.Config) error {
	paintEngine := sdlengine.NewPaintEngine(cfg.Name, cfg.Width, cfg.Height)
	animator := makeAnimator(cfg, paintEngine)
	crossing := makeCrossing(cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := paintEngine.Run(ctx, sdlengine.Handlers{
		Shown: func() {
			if err := animator.Start(ctx, crossing.Run); err != nil {
				logrus.WithError(err).Warn("Couldn't start the animator")
			}
		},
		Resized: animator.Resize,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runHeadless runs the animation to completion on a display without events.
func runHeadless(ctx context.Context, cfg config.Config, paintEngine offscreen.PaintEngine) error {
	animator := makeAnimator(cfg, paintEngine)
	if err := animator.Start(ctx, makeCrossing(cfg).Run); err != nil {
		return err
	}
	return animator.Wait()
}

func run(ctx context.Context, cfg config.Config) error {
	switch cfg.Display {
	case config.DisplaySDL:
		return runWindow(ctx, cfg)
	case config.DisplayKMSDRM:
		pixFormat, _ := cfg.PixFormat()
		paintEngine, err := kmsdrm.NewPaintEngine(cfg.Card, pixFormat)
		if err != nil {
			return err
		}
		defer paintEngine.Close()
		return runHeadless(ctx, cfg, paintEngine)
	default:
		return runHeadless(ctx, cfg, offscreen.NewNullPaintEngine())
	}
}

func main() {
	opts := parseCmd()

	cfg, err := loadConfig(opts)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	level, _ := cfg.Level()
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.WithError(err).Error("cars stopped")
		stop()
		os.Exit(1)
	}
}
