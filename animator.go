// Package offscreen is a small animation framework: scenarios draw into an
// off-screen pixel buffer that may be larger than the visible viewport, and an
// Animator runs the scenario on one goroutine, presenting a frame on every Pace.
package offscreen

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of an Animator.
type State int

const (
	// NotStarted until Start is called
	NotStarted State = iota
	// Running while the scenario goroutine is alive
	Running
	// Finished once the scenario goroutine has ended, however it ended. Terminal.
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	defaultWidth  = 400
	defaultHeight = 400
)

var (
	// ErrAlreadyStarted is returned by Start on an animator that was started before.
	ErrAlreadyStarted = errors.New("Animator is already started")
	// ErrInterrupted is returned by Wait when a Pace wait was interrupted.
	ErrInterrupted = errors.New("Animator was interrupted")
	// ErrExited is returned by Wait when the scenario ended its goroutine
	// with runtime.Goexit instead of returning.
	ErrExited = errors.New("Scenario exited without returning")
)

// Scenario draws and advances the animation. It runs once, on the
// animator's own goroutine, and should call Pace after every step.
type Scenario func(animator *Animator)

// Option configures an Animator.
type Option func(*animatorOptions)

type animatorOptions struct {
	autoSave       bool
	snapshotDir    string
	snapshotFormat SnapshotFormat
}

// WithAutoSave makes every Pace store a snapshot in dir. The directory has to
// exist; failed writes are logged and the animation goes on.
func WithAutoSave(dir string) Option {
	return func(o *animatorOptions) {
		o.autoSave = true
		o.snapshotDir = dir
	}
}

// WithSnapshotFormat selects the format of automatic snapshots.
func WithSnapshotFormat(format SnapshotFormat) Option {
	return func(o *animatorOptions) {
		o.snapshotFormat = format
	}
}

// Animator runs a Scenario on a single background goroutine and gives it a
// RenderSurface to draw on. An Animator can be started only once.
type Animator struct {
	name    string
	surface *RenderSurface
	opts    animatorOptions

	mutex       sync.Mutex
	state       State
	startCount  int
	snapshotSeq int
	ctx         context.Context
	done        chan struct{}
	err         error
}

// NewAnimator creates an animator with a width x height viewport presented by
// paintEngine. A nil paintEngine means a NullPaintEngine. Non-positive sizes
// fall back to 400x400. The name tags log entries and snapshot files.
func NewAnimator(name string, width, height int, paintEngine PaintEngine, options ...Option) *Animator {
	opts := animatorOptions{snapshotFormat: PNG}
	for _, option := range options {
		option(&opts)
	}

	if width <= 0 || height <= 0 {
		width, height = defaultWidth, defaultHeight
	}

	return &Animator{
		name:    name,
		surface: NewRenderSurface(width, height, paintEngine),
		opts:    opts,
		state:   NotStarted,
		ctx:     context.Background(),
		done:    make(chan struct{}),
	}
}

// Name returns the animator name.
func (animator *Animator) Name() string {
	return animator.name
}

// Surface returns the render surface.
func (animator *Animator) Surface() *RenderSurface {
	return animator.surface
}

// Canvas returns the pixel buffer scenarios draw on.
func (animator *Animator) Canvas() *PixelBuffer {
	return animator.surface.Buffer()
}

// SetAutoSave turns automatic snapshots on or off.
func (animator *Animator) SetAutoSave(autoSave bool) {
	animator.mutex.Lock()
	animator.opts.autoSave = autoSave
	animator.mutex.Unlock()
}

// State returns the lifecycle state.
func (animator *Animator) State() State {
	animator.mutex.Lock()
	defer animator.mutex.Unlock()
	return animator.state
}

// Starts returns how many scenario goroutines were launched; never more than one.
func (animator *Animator) Starts() int {
	animator.mutex.Lock()
	defer animator.mutex.Unlock()
	return animator.startCount
}

// Start launches the scenario goroutine. Cancelling ctx interrupts the
// scenario at its next Pace. Only the first call has an effect; later calls
// return ErrAlreadyStarted.
func (animator *Animator) Start(ctx context.Context, scenario Scenario) error {
	animator.mutex.Lock()
	defer animator.mutex.Unlock()

	if animator.state != NotStarted {
		return ErrAlreadyStarted
	}

	if ctx == nil {
		ctx = context.Background()
	}
	animator.ctx = ctx
	animator.state = Running
	animator.startCount++

	log().WithField("animator", animator.name).Info("Animator started")
	go animator.run(scenario)
	return nil
}

// Done is closed when the animator reaches Finished.
func (animator *Animator) Done() <-chan struct{} {
	return animator.done
}

// Wait blocks until the scenario is over. It returns ErrInterrupted if a Pace
// wait was interrupted and ErrExited if the scenario called runtime.Goexit.
func (animator *Animator) Wait() error {
	<-animator.done

	animator.mutex.Lock()
	defer animator.mutex.Unlock()
	return animator.err
}

func (animator *Animator) run(scenario Scenario) {
	returned := false
	defer func() {
		var panicked any
		if !returned {
			panicked = recover()
		}

		// Finished is set before the last refresh, so a Resize that still saw
		// Running has its request picked up by that refresh.
		animator.mutex.Lock()
		switch {
		case returned, animator.err != nil:
		case panicked != nil:
			animator.err = fmt.Errorf("Scenario panicked: %v", panicked)
		default:
			animator.err = ErrExited
		}
		err := animator.err
		animator.state = Finished
		animator.mutex.Unlock()

		entry := log().WithField("animator", animator.name)
		switch {
		case returned:
			// the last frame must always be visible
			animator.refresh()
			entry.Info("Animator finished")
		case panicked != nil:
			entry.WithError(err).WithField("stack", string(debug.Stack())).Error("Scenario panicked")
		case errors.Is(err, ErrInterrupted):
			animator.surface.applyPendingViewport()
			entry.WithError(err).Error("Scenario aborted")
		default:
			animator.surface.applyPendingViewport()
			entry.WithError(err).Warn("Scenario exited its goroutine without returning")
		}
		close(animator.done)

		if panicked != nil {
			panic(panicked)
		}
	}()

	scenario(animator)
	returned = true
}

// Resize requests a new viewport size. It is meant for the display event
// loop. While the scenario runs the request is applied by its next Pace;
// before the start and after the end the surface is refreshed right away.
func (animator *Animator) Resize(width, height int) {
	animator.surface.RequestViewport(width, height)

	animator.mutex.Lock()
	running := animator.state == Running
	animator.mutex.Unlock()

	if !running {
		animator.refresh()
	}
}

// Pace shows the current frame, waits d and, if auto-save is on, stores the
// frame as the next numbered snapshot. If the wait is interrupted the
// scenario goroutine is terminated; Pace must only be called from the scenario.
func (animator *Animator) Pace(d time.Duration) {
	animator.refresh()

	if err := animator.ctx.Err(); err != nil {
		animator.abort(err)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-animator.ctx.Done():
		animator.abort(animator.ctx.Err())
	}

	animator.mutex.Lock()
	autoSave := animator.opts.autoSave
	animator.mutex.Unlock()

	if autoSave {
		animator.captureFrame()
	}
}

// Sleep is Pace with the duration in seconds.
func (animator *Animator) Sleep(sec float64) {
	animator.Pace(time.Duration(sec * float64(time.Second)))
}

// SaveSnapshot writes the viewport to fileName. The format follows the file
// extension (.png or .webp) and the directory must exist.
func (animator *Animator) SaveSnapshot(fileName string) error {
	return writeSnapshot(fileName, animator.surface.Snapshot())
}

func (animator *Animator) refresh() {
	if err := animator.surface.Refresh(); err != nil {
		log().WithField("animator", animator.name).WithError(err).Warn("Display refresh failed")
	}
}

func (animator *Animator) captureFrame() {
	animator.mutex.Lock()
	animator.snapshotSeq++
	seq := animator.snapshotSeq
	dir := animator.opts.snapshotDir
	format := animator.opts.snapshotFormat
	animator.mutex.Unlock()

	fileName := filepath.Join(dir, snapshotFileName(animator.name, seq, format))
	if err := animator.SaveSnapshot(fileName); err != nil {
		log().WithFields(logrus.Fields{
			"animator": animator.name,
			"file":     fileName,
			"seq":      seq,
		}).WithError(err).Warnf("Couldn't save a snapshot, the '%s' directory is required", dir)
	}
}

// abort records the interruption and ends the calling goroutine.
func (animator *Animator) abort(cause error) {
	animator.mutex.Lock()
	animator.err = fmt.Errorf("%w: %w", ErrInterrupted, cause)
	animator.mutex.Unlock()
	runtime.Goexit()
}
