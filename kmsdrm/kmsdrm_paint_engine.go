// Package kmsdrm presents offscreen frames directly on a Linux console
// through KMS/DRM dumb buffers.
package kmsdrm

import (
	"errors"
	"fmt"
	"image"
	"os"
	"syscall"

	drm "github.com/rmcsoft/godrm"
	"github.com/rmcsoft/godrm/mode"
	"golang.org/x/image/draw"

	"github.com/rmcsoft/offscreen"
)

const framebufferCount = 2

type framebuffer struct {
	handle      uint32
	id          uint32
	buf         []byte
	bytePerLine int
}

// PaintEngine is an offscreen.PaintEngine drawing into double buffered KMS
// framebuffers. Frames are composed in memory and converted to the display
// pixel format in End.
type PaintEngine struct {
	card    *os.File
	modeset mode.Modeset

	pixFormat offscreen.PixelFormat

	framebuffers        []*framebuffer
	frontFrameBufferNum int

	isActive bool
	frame    *image.RGBA
}

// NewPaintEngine opens /dev/dri/card<cardNum> and sets up framebuffers for
// its first connected output.
func NewPaintEngine(cardNum int, pixFormat offscreen.PixelFormat) (*PaintEngine, error) {
	if pixFormat != offscreen.RGB16 && pixFormat != offscreen.RGB32 {
		return nil, offscreen.ErrUnsupportedPixelFormat
	}

	card, err := drm.OpenCard(cardNum)
	if err != nil {
		return nil, err
	}

	if !drm.HasDumbBuffer(card) {
		card.Close()
		return nil, fmt.Errorf("drm device %v does not support dumb buffers", cardNum)
	}

	paintEngine := &PaintEngine{
		card:      card,
		pixFormat: pixFormat,
	}

	simpleMSet, err := mode.NewSimpleModeset(card)
	if err != nil {
		paintEngine.Close()
		return nil, err
	}

	if len(simpleMSet.Modesets) == 0 {
		paintEngine.Close()
		return nil, errors.New("Modesets is empty")
	}

	paintEngine.modeset = simpleMSet.Modesets[0]
	for i := 0; i < framebufferCount; i++ {
		fb, err := paintEngine.createFramebuffer()
		if err != nil {
			paintEngine.Close()
			return nil, err
		}
		paintEngine.framebuffers = append(paintEngine.framebuffers, fb)
	}

	paintEngine.frame = image.NewRGBA(image.Rect(0, 0, paintEngine.GetWidth(), paintEngine.GetHeight()))
	return paintEngine, nil
}

// GetWidth returns the display width.
func (p *PaintEngine) GetWidth() int {
	return int(p.modeset.Width)
}

// GetHeight returns the display height.
func (p *PaintEngine) GetHeight() int {
	return int(p.modeset.Height)
}

// Begin starts a frame. The frame starts black.
func (p *PaintEngine) Begin() error {
	if p.isActive {
		return errors.New("KMSDRMPaintEngine is already active")
	}

	p.isActive = true
	draw.Draw(p.frame, p.frame.Bounds(), image.Black, image.Point{}, draw.Src)
	return nil
}

// DrawImage draws img at top, clipped to the display.
func (p *PaintEngine) DrawImage(top image.Point, img image.Image) error {
	if !p.isActive {
		return errors.New("KMSDRMPaintEngine is not active")
	}

	bounds := img.Bounds()
	r := image.Rectangle{Min: top, Max: top.Add(bounds.Size())}
	draw.Draw(p.frame, r, img, bounds.Min, draw.Src)
	return nil
}

// End converts the frame into the back framebuffer and shows it.
func (p *PaintEngine) End() error {
	if !p.isActive {
		return errors.New("KMSDRMPaintEngine is not active")
	}
	p.isActive = false

	frontFrameBuffer := p.framebuffers[p.frontFrameBufferNum]
	err := offscreen.EncodePixels(frontFrameBuffer.buf, frontFrameBuffer.bytePerLine, p.frame, p.pixFormat)
	if err != nil {
		return err
	}

	err = mode.SetCrtc(p.card, p.modeset.Crtc, frontFrameBuffer.id,
		0, 0, &p.modeset.Conn, 1, &p.modeset.Mode)

	p.frontFrameBufferNum = (p.frontFrameBufferNum + 1) % len(p.framebuffers)
	return err
}

// Close releases the framebuffers and the card.
func (p *PaintEngine) Close() error {
	for _, fb := range p.framebuffers {
		p.destroyFramebuffer(fb)
	}
	p.framebuffers = nil

	if p.card == nil {
		return nil
	}
	err := p.card.Close()
	p.card = nil
	return err
}

// createFramebuffer allocates a dumb buffer of the mode size and maps it.
// Whatever was set up before a failing step is released again.
func (p *PaintEngine) createFramebuffer() (*framebuffer, error) {
	fb := &framebuffer{}
	fail := func(err error) (*framebuffer, error) {
		p.destroyFramebuffer(fb)
		return nil, err
	}

	width := p.modeset.Width
	height := p.modeset.Height
	bpp := offscreen.GetPixelSize(p.pixFormat) * 8
	depth := offscreen.GetPixelDepth(p.pixFormat)

	fbInfo, err := mode.CreateFB(p.card, uint16(width), uint16(height), uint32(bpp))
	if err != nil {
		return fail(err)
	}
	fb.handle = fbInfo.Handle
	fb.bytePerLine = int(fbInfo.Pitch)

	id, err := mode.AddFB(p.card, uint16(width), uint16(height),
		uint8(depth), uint8(bpp), fbInfo.Pitch, fb.handle)
	if err != nil {
		return fail(err)
	}
	fb.id = id

	offset, err := mode.MapDumb(p.card, fb.handle)
	if err != nil {
		return fail(err)
	}

	buf, err := syscall.Mmap(int(p.card.Fd()), int64(offset), int(fbInfo.Size),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return fail(err)
	}
	fb.buf = buf

	return fb, nil
}

func (p *PaintEngine) destroyFramebuffer(fb *framebuffer) {
	if fb != nil && p.card != nil {
		if fb.buf != nil {
			syscall.Munmap(fb.buf)
			fb.buf = nil
		}

		if fb.id != 0 {
			mode.RmFB(p.card, fb.id)
			fb.id = 0
		}

		if fb.handle != 0 {
			mode.DestroyDumb(p.card, fb.handle)
			fb.handle = 0
		}
	}
}
