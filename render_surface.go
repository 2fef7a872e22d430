package offscreen

import (
	"image"
	"sync"

	"github.com/sirupsen/logrus"
)

// RenderSurface couples a PixelBuffer with the size of the visible viewport
// and the display the viewport is presented on.
//
// The viewport never exceeds the buffer capacity. Exports and display
// refreshes only ever cover the viewport.
type RenderSurface struct {
	buffer      *PixelBuffer
	paintEngine PaintEngine

	mutex    sync.Mutex
	viewport image.Point

	// frames are presented one at a time
	paintMutex sync.Mutex

	// single slot mailbox, the newest request wins
	pendingViewport chan image.Point
}

// NewRenderSurface creates a surface with a width x height viewport.
func NewRenderSurface(width, height int, paintEngine PaintEngine) *RenderSurface {
	if paintEngine == nil {
		paintEngine = NewNullPaintEngine()
	}

	surface := &RenderSurface{
		buffer:          NewPixelBuffer(),
		paintEngine:     paintEngine,
		pendingViewport: make(chan image.Point, 1),
	}
	surface.SetViewport(width, height)
	return surface
}

// Buffer returns the drawing buffer.
func (s *RenderSurface) Buffer() *PixelBuffer {
	return s.buffer
}

// Viewport returns the current viewport size.
func (s *RenderSurface) Viewport() (int, int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.viewport.X, s.viewport.Y
}

// SetViewport changes the viewport size and grows the buffer if needed.
// Nothing is cleared or repainted, so content survives a shrink followed by a grow.
func (s *RenderSurface) SetViewport(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// grow first so the viewport never exceeds the capacity
	if s.buffer.ResizeCapacityAtLeast(width, height) {
		cw, ch := s.buffer.Capacity()
		log().WithFields(logrus.Fields{
			"width":  cw,
			"height": ch,
		}).Debug("Pixel buffer enlarged")
	}
	s.viewport = image.Pt(width, height)
}

// RequestViewport queues a viewport change. It may be called from any
// goroutine, typically the display event loop. Requests that arrive before
// the next refresh replace each other; only the newest is applied.
func (s *RenderSurface) RequestViewport(width, height int) {
	size := image.Pt(width, height)
	for {
		select {
		case s.pendingViewport <- size:
			return
		default:
		}

		select {
		case <-s.pendingViewport:
		default:
		}
	}
}

// applyPendingViewport applies the newest queued viewport request, if any.
func (s *RenderSurface) applyPendingViewport() {
	select {
	case size := <-s.pendingViewport:
		s.SetViewport(size.X, size.Y)
	default:
	}
}

// Snapshot returns a copy of the viewport region of the buffer.
func (s *RenderSurface) Snapshot() *image.RGBA {
	s.applyPendingViewport()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.buffer.copyRect(image.Rectangle{Max: s.viewport})
}

// Refresh presents the viewport region of the buffer on the display.
// Concurrent calls present their frames one after the other.
func (s *RenderSurface) Refresh() error {
	s.paintMutex.Lock()
	defer s.paintMutex.Unlock()

	frame := s.Snapshot()

	if err := s.paintEngine.Begin(); err != nil {
		return err
	}
	if err := s.paintEngine.DrawImage(image.Point{}, frame); err != nil {
		s.paintEngine.End()
		return err
	}
	return s.paintEngine.End()
}
