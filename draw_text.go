package offscreen

import (
	"image"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	monoFontOnce sync.Once
	monoFont     *opentype.Font
	monoFontErr  error
)

func loadMonoFont() (*opentype.Font, error) {
	monoFontOnce.Do(func() {
		monoFont, monoFontErr = opentype.Parse(gomono.TTF)
	})
	return monoFont, monoFontErr
}

// faceLocked returns the cached monospaced face for size points.
// buf.mutex must be held.
func (buf *PixelBuffer) faceLocked(size int) (font.Face, error) {
	if face, ok := buf.faces[size]; ok {
		return face, nil
	}

	f, err := loadMonoFont()
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}

	if buf.faces == nil {
		buf.faces = make(map[int]font.Face)
	}
	buf.faces[size] = face
	return face, nil
}

// DrawText draws s in a monospaced font of the given point size.
// (x, y) is the left end of the baseline.
func (buf *PixelBuffer) DrawText(s string, x, y, size int) {
	if s == "" || size <= 0 {
		return
	}

	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	face, err := buf.faceLocked(size)
	if err != nil {
		log().WithError(err).WithField("size", size).Warn("Couldn't load a font face")
		return
	}

	drawer := font.Drawer{
		Dst:  buf.img,
		Src:  image.NewUniform(buf.fgColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(s)
}
