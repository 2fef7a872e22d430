package offscreen

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{0xff, 0, 0, 0xff})
	src.SetRGBA(1, 0, color.RGBA{0x12, 0x34, 0x56, 0xff})

	dst32 := make([]byte, 8)
	require.NoError(t, EncodePixels(dst32, 8, src, RGB32))
	assert.Equal(t, []byte{0, 0, 0xff, 0xff, 0x56, 0x34, 0x12, 0xff}, dst32)

	dst16 := make([]byte, 4)
	require.NoError(t, EncodePixels(dst16, 4, src, RGB16))
	assert.Equal(t, []byte{0x00, 0xf8, 0xaa, 0x11}, dst16)
}

func TestEncodePixelsClipsToDestination(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	dst := make([]byte, 2*2*2)
	assert.NotPanics(t, func() {
		require.NoError(t, EncodePixels(dst, 4, src, RGB16))
	})
}

func TestEncodePixelsUnsupportedFormat(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	assert.ErrorIs(t, EncodePixels(make([]byte, 4), 4, src, PixelFormat(7)), ErrUnsupportedPixelFormat)
}

func TestPixelSizes(t *testing.T) {
	assert.Equal(t, 2, GetPixelSize(RGB16))
	assert.Equal(t, 4, GetPixelSize(RGB32))
	assert.Equal(t, 16, GetPixelDepth(RGB16))
	assert.Equal(t, 24, GetPixelDepth(RGB32))
}
