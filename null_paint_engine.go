package offscreen

import (
	"errors"
	"image"
	"sync"
)

// NullPaintEngine is a headless PaintEngine. It shows nothing but remembers
// the last presented frame and counts presented frames.
type NullPaintEngine struct {
	mutex     sync.Mutex
	isActive  bool
	frames    int
	lastFrame image.Image
	drawn     image.Image
}

// NewNullPaintEngine returns null paint engine
func NewNullPaintEngine() *NullPaintEngine {
	return &NullPaintEngine{}
}

// Begin starts a frame.
func (p *NullPaintEngine) Begin() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.isActive {
		return errors.New("NullPaintEngine is already active")
	}
	p.isActive = true
	p.drawn = nil
	return nil
}

// DrawImage records img as the frame content.
func (p *NullPaintEngine) DrawImage(top image.Point, img image.Image) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isActive {
		return errors.New("NullPaintEngine is not active")
	}
	p.drawn = img
	return nil
}

// End finishes the frame.
func (p *NullPaintEngine) End() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isActive {
		return errors.New("NullPaintEngine is not active")
	}
	p.isActive = false
	p.lastFrame = p.drawn
	p.frames++
	return nil
}

// Frames returns the number of presented frames.
func (p *NullPaintEngine) Frames() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.frames
}

// LastFrame returns the image of the last presented frame.
func (p *NullPaintEngine) LastFrame() image.Image {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastFrame
}
