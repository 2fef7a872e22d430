package offscreen

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFinished(t *testing.T, animator *Animator) error {
	t.Helper()
	select {
	case <-animator.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("animator did not finish")
	}
	return animator.Wait()
}

func TestAnimatorStartsOnce(t *testing.T) {
	animator := NewAnimator("once", 100, 100, nil)
	assert.Equal(t, NotStarted, animator.State())

	var calls int32
	release := make(chan struct{})
	scenario := func(*Animator) {
		atomic.AddInt32(&calls, 1)
		<-release
	}

	require.NoError(t, animator.Start(context.Background(), scenario))
	assert.Equal(t, Running, animator.State())
	assert.ErrorIs(t, animator.Start(context.Background(), scenario), ErrAlreadyStarted)

	close(release)
	require.NoError(t, waitFinished(t, animator))
	assert.Equal(t, Finished, animator.State())

	assert.ErrorIs(t, animator.Start(context.Background(), scenario), ErrAlreadyStarted)
	assert.Equal(t, 1, animator.Starts())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPaceRefreshesEveryCall(t *testing.T) {
	paintEngine := NewNullPaintEngine()
	animator := NewAnimator("pace", 100, 100, paintEngine)

	var framesSeen []int
	scenario := func(a *Animator) {
		for i := 0; i < 5; i++ {
			before := paintEngine.Frames()
			a.Pace(time.Millisecond)
			framesSeen = append(framesSeen, paintEngine.Frames()-before)
		}
	}

	require.NoError(t, animator.Start(context.Background(), scenario))
	require.NoError(t, waitFinished(t, animator))

	assert.Equal(t, []int{1, 1, 1, 1, 1}, framesSeen)
	assert.Equal(t, 6, paintEngine.Frames())
}

func TestFinalRefreshWithoutPace(t *testing.T) {
	paintEngine := NewNullPaintEngine()
	animator := NewAnimator("final", 50, 40, paintEngine)

	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		a.Canvas().SetColor(255, 0, 0)
		a.Canvas().FillRect(0, 0, 10, 10)
	}))
	require.NoError(t, waitFinished(t, animator))

	require.Equal(t, 1, paintEngine.Frames())
	frame := paintEngine.LastFrame()
	assert.Equal(t, 50, frame.Bounds().Dx())
	assert.Equal(t, 40, frame.Bounds().Dy())
	r, g, b, _ := frame.At(5, 5).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0}, []uint32{r, g, b})
}

func TestPaceWaits(t *testing.T) {
	animator := NewAnimator("wait", 10, 10, nil)
	start := time.Now()
	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		a.Pace(20 * time.Millisecond)
		a.Sleep(0.02)
	}))
	require.NoError(t, waitFinished(t, animator))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAutoSaveWritesNumberedSnapshots(t *testing.T) {
	dir := t.TempDir()
	animator := NewAnimator("DisplayCarObject", 60, 30, nil, WithAutoSave(dir))

	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		for i := 0; i < 3; i++ {
			a.Canvas().Clear()
			a.Surface().SetViewport(60+i*10, 30)
			a.Pace(0)
		}
	}))
	require.NoError(t, waitFinished(t, animator))

	for i, width := range []int{60, 70, 80} {
		name := filepath.Join(dir, snapshotFileName("DisplayCarObject", i+1, PNG))
		img, err := DecodeImage(name)
		require.NoError(t, err)
		assert.Equal(t, width, img.Bounds().Dx())
		assert.Equal(t, 30, img.Bounds().Dy())
	}
	assert.FileExists(t, filepath.Join(dir, "DisplayCarObject_0003.png"))
}

func TestAutoSaveWebP(t *testing.T) {
	dir := t.TempDir()
	animator := NewAnimator("webp", 16, 16, nil, WithAutoSave(dir), WithSnapshotFormat(WebP))

	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		a.Pace(0)
	}))
	require.NoError(t, waitFinished(t, animator))

	img, err := DecodeImage(filepath.Join(dir, "webp_0001.webp"))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
}

func TestSnapshotSequenceIsPerAnimator(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"first", "second"} {
		animator := NewAnimator("same", 8, 8, nil, WithAutoSave(filepath.Join(dir, name)))
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0755))
		require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
			a.Pace(0)
		}))
		require.NoError(t, waitFinished(t, animator))
		assert.FileExists(t, filepath.Join(dir, name, "same_0001.png"))
	}
}

func TestAutoSaveMissingDirectoryIsWarning(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	SetLogger(logger)
	defer SetLogger(nil)

	missing := filepath.Join(t.TempDir(), "screenshots")
	animator := NewAnimator("missing", 10, 10, nil, WithAutoSave(missing))

	var steps int32
	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		for i := 0; i < 3; i++ {
			a.Pace(0)
			atomic.AddInt32(&steps, 1)
		}
	}))
	require.NoError(t, waitFinished(t, animator))

	assert.Equal(t, int32(3), atomic.LoadInt32(&steps))
	warnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
			assert.Equal(t, "missing", entry.Data["animator"])
		}
	}
	assert.Equal(t, 3, warnings)
	assert.NoDirExists(t, missing)
}

func TestInterruptedPaceAbortsScenario(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	SetLogger(logger)
	defer SetLogger(nil)

	paintEngine := NewNullPaintEngine()
	animator := NewAnimator("interrupted", 10, 10, paintEngine)
	ctx, cancel := context.WithCancel(context.Background())

	var steps int32
	require.NoError(t, animator.Start(ctx, func(a *Animator) {
		for {
			a.Pace(time.Millisecond)
			if atomic.AddInt32(&steps, 1) == 3 {
				cancel()
			}
		}
	}))

	err := waitFinished(t, animator)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Finished, animator.State())
	assert.Equal(t, int32(3), atomic.LoadInt32(&steps))

	// no final refresh after an abort
	assert.Equal(t, 4, paintEngine.Frames())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestScenarioGoexitIsReported(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	SetLogger(logger)
	defer SetLogger(nil)

	paintEngine := NewNullPaintEngine()
	animator := NewAnimator("goexit", 10, 10, paintEngine)

	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		a.Pace(0)
		runtime.Goexit()
	}))

	err := waitFinished(t, animator)
	assert.ErrorIs(t, err, ErrExited)
	assert.NotErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, Finished, animator.State())
	assert.Equal(t, 1, paintEngine.Frames())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "goexit", hook.LastEntry().Data["animator"])
}

func TestResizeAfterFinishRefreshes(t *testing.T) {
	paintEngine := NewNullPaintEngine()
	animator := NewAnimator("late-resize", 100, 80, paintEngine)

	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		a.Pace(0)
	}))
	require.NoError(t, waitFinished(t, animator))
	frames := paintEngine.Frames()

	animator.Resize(300, 200)

	w, h := animator.Surface().Viewport()
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
	assert.Equal(t, frames+1, paintEngine.Frames())
	assert.Equal(t, image.Rect(0, 0, 300, 200), paintEngine.LastFrame().Bounds())
}

func TestResizeWhileRunningIsAppliedByPace(t *testing.T) {
	paintEngine := NewNullPaintEngine()
	animator := NewAnimator("resize", 100, 80, paintEngine)

	resized := make(chan struct{})
	var viewport image.Point
	require.NoError(t, animator.Start(context.Background(), func(a *Animator) {
		a.Pace(0)
		<-resized
		a.Pace(0)
		viewport.X, viewport.Y = a.Surface().Viewport()
	}))

	// the scenario blocks between its two Paces, so Resize only queues
	require.Eventually(t, func() bool { return paintEngine.Frames() == 1 }, 5*time.Second, time.Millisecond)
	animator.Resize(120, 90)
	w, h := animator.Surface().Viewport()
	assert.Equal(t, 100, w)
	assert.Equal(t, 80, h)
	assert.Equal(t, 1, paintEngine.Frames())

	close(resized)
	require.NoError(t, waitFinished(t, animator))
	assert.Equal(t, image.Pt(120, 90), viewport)
}

func TestSaveSnapshotUnknownExtension(t *testing.T) {
	animator := NewAnimator("ext", 10, 10, nil)
	err := animator.SaveSnapshot(filepath.Join(t.TempDir(), "frame.gif"))
	assert.ErrorIs(t, err, ErrUnknownSnapshotFormat)
}

func TestDefaultSize(t *testing.T) {
	animator := NewAnimator("default", 0, 0, nil)
	w, h := animator.Surface().Viewport()
	assert.Equal(t, 400, w)
	assert.Equal(t, 400, h)
}
