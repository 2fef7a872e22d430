package offscreen

import (
	"encoding/binary"
	"errors"
	"image"
)

// PixelFormat is an enumeration of display pixel formats
type PixelFormat int

const (
	// RGB32 is 32-bit RGB format (0xffRRGGBB)
	RGB32 PixelFormat = iota
	// RGB16 is 16-bit RGB format (5-6-5)
	RGB16
)

// ErrUnsupportedPixelFormat is returned for pixel formats a display can't handle.
var ErrUnsupportedPixelFormat = errors.New("Unsupported pixel format")

// GetPixelSize returns the number of bytes per pixel.
func GetPixelSize(pixFormat PixelFormat) int {
	switch pixFormat {
	case RGB16:
		return 2
	default:
		return 4
	}
}

// GetPixelDepth returns the number of significant bits per pixel.
func GetPixelDepth(pixFormat PixelFormat) int {
	switch pixFormat {
	case RGB16:
		return 16
	default:
		return 24
	}
}

// EncodePixels converts src into dst laid out in pixFormat with the given
// row stride. Rows and columns that don't fit into dst are dropped.
func EncodePixels(dst []byte, bytePerLine int, src *image.RGBA, pixFormat PixelFormat) error {
	if pixFormat != RGB16 && pixFormat != RGB32 {
		return ErrUnsupportedPixelFormat
	}

	pixSize := GetPixelSize(pixFormat)
	bounds := src.Bounds()
	width := bounds.Dx()
	if maxWidth := bytePerLine / pixSize; width > maxWidth {
		width = maxWidth
	}

	for y := 0; y < bounds.Dy(); y++ {
		dstOffset := y * bytePerLine
		if dstOffset+width*pixSize > len(dst) {
			break
		}
		srcOffset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := 0; x < width; x++ {
			s := src.Pix[srcOffset+x*4 : srcOffset+x*4+4]
			d := dst[dstOffset+x*pixSize:]
			if pixFormat == RGB16 {
				pix := uint16(s[0]>>3)<<11 | uint16(s[1]>>2)<<5 | uint16(s[2]>>3)
				binary.LittleEndian.PutUint16(d, pix)
			} else {
				binary.LittleEndian.PutUint32(d, 0xff000000|uint32(s[0])<<16|uint32(s[1])<<8|uint32(s[2]))
			}
		}
	}
	return nil
}
