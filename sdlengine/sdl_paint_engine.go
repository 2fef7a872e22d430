// Package sdlengine presents offscreen frames in a resizable SDL window.
package sdlengine

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/image/draw"
)

// frameDelay is the event loop period in milliseconds.
const frameDelay = 10

// Handlers receive window notifications. They are called on the event loop
// goroutine and must not block.
type Handlers struct {
	// Shown is called once, when the window is exposed for the first time.
	Shown func()
	// Resized is called with the new drawable size of the window.
	Resized func(width, height int)
}

// PaintEngine is an offscreen.PaintEngine backed by an SDL window.
//
// Begin, DrawImage and End may be called from any goroutine; they only
// compose a frame in memory. All SDL calls happen in Run.
type PaintEngine struct {
	title  string
	width  int
	height int

	mutex    sync.Mutex
	isActive bool
	pending  *image.RGBA
	ready    *image.RGBA
}

// NewPaintEngine creates an engine for a window of the given size.
func NewPaintEngine(title string, width int, height int) *PaintEngine {
	return &PaintEngine{
		title:  title,
		width:  width,
		height: height,
	}
}

// Begin starts composing a frame.
func (p *PaintEngine) Begin() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.isActive {
		return errors.New("SDLPaintEngine is already active")
	}
	p.isActive = true
	p.pending = nil
	return nil
}

// DrawImage draws img into the frame being composed.
func (p *PaintEngine) DrawImage(top image.Point, img image.Image) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isActive {
		return errors.New("SDLPaintEngine is not active")
	}

	r := img.Bounds().Sub(img.Bounds().Min).Add(top)
	if p.pending == nil {
		p.pending = image.NewRGBA(image.Rectangle{Max: r.Max})
	} else if !r.In(p.pending.Bounds()) {
		grown := image.NewRGBA(p.pending.Bounds().Union(image.Rectangle{Max: r.Max}))
		draw.Copy(grown, image.Point{}, p.pending, p.pending.Bounds(), draw.Src, nil)
		p.pending = grown
	}
	draw.Draw(p.pending, r, img, img.Bounds().Min, draw.Src)
	return nil
}

// End hands the composed frame over to the event loop.
func (p *PaintEngine) End() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isActive {
		return errors.New("SDLPaintEngine is not active")
	}
	p.isActive = false
	if p.pending != nil {
		p.ready = p.pending
		p.pending = nil
	}
	return nil
}

func (p *PaintEngine) takeFrame() *image.RGBA {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	frame := p.ready
	p.ready = nil
	return frame
}

// Run opens the window and processes events until the window is closed or
// ctx is done. It must be called from the main OS thread.
func (p *PaintEngine) Run(ctx context.Context, handlers Handlers) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return err
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(p.title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(p.width), int32(p.height), sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return err
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	presenter := &presenter{renderer: renderer}
	defer presenter.destroy()

	shown := false
	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				return nil
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_EXPOSED:
					if !shown {
						shown = true
						if handlers.Shown != nil {
							handlers.Shown()
						}
					}
					presenter.dirty = true
				case sdl.WINDOWEVENT_SIZE_CHANGED:
					if handlers.Resized != nil {
						handlers.Resized(int(e.Data1), int(e.Data2))
					}
					presenter.dirty = true
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if frame := p.takeFrame(); frame != nil {
			if err := presenter.upload(frame); err != nil {
				return err
			}
		}
		if presenter.dirty {
			if err := presenter.present(); err != nil {
				return err
			}
		}
		sdl.Delay(frameDelay)
	}
}

// presenter keeps the last frame as a streaming texture.
type presenter struct {
	renderer *sdl.Renderer
	texture  *sdl.Texture
	size     image.Point
	dirty    bool
}

func (pr *presenter) upload(frame *image.RGBA) error {
	size := frame.Bounds().Size()
	if pr.texture == nil || size != pr.size {
		pr.destroy()
		if size.X == 0 || size.Y == 0 {
			return nil
		}
		texture, err := pr.renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
			int32(size.X), int32(size.Y))
		if err != nil {
			return err
		}
		pr.texture = texture
		pr.size = size
	}

	texturePixels, textureBytePerLine, err := pr.texture.Lock(nil)
	if err != nil {
		return err
	}

	rowSize := size.X * 4
	for rowNum := 0; rowNum < size.Y; rowNum++ {
		frameOffset := rowNum * frame.Stride
		textureOffset := rowNum * textureBytePerLine
		copy(texturePixels[textureOffset:textureOffset+rowSize], frame.Pix[frameOffset:frameOffset+rowSize])
	}
	pr.texture.Unlock()

	pr.dirty = true
	return nil
}

func (pr *presenter) present() error {
	if err := pr.renderer.SetDrawColor(0, 0, 0, 0xff); err != nil {
		return err
	}
	if err := pr.renderer.Clear(); err != nil {
		return err
	}

	if pr.texture != nil {
		sdlRect := sdl.Rect{
			X: 0,
			Y: 0,
			W: int32(pr.size.X),
			H: int32(pr.size.Y),
		}
		if err := pr.renderer.Copy(pr.texture, nil, &sdlRect); err != nil {
			return err
		}
	}

	pr.renderer.Present()
	pr.dirty = false
	return nil
}

func (pr *presenter) destroy() {
	if pr.texture != nil {
		pr.texture.Destroy()
		pr.texture = nil
	}
}
