package offscreen

import (
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"

	_ "github.com/ftrvxmtrx/tga" // register TGA decoder
	_ "golang.org/x/image/bmp"   // register BMP decoder
	_ "golang.org/x/image/webp"  // register WebP decoder
)

// DecodeImage reads an image file in any registered format.
func DecodeImage(fileName string) (image.Image, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fileName, err)
	}
	return img, nil
}

// LoadImage reads an image file for use with DrawImage. On failure it logs a
// diagnostic and returns nil, which the drawing methods ignore.
func LoadImage(fileName string) image.Image {
	img, err := DecodeImage(fileName)
	if err != nil {
		log().WithError(err).WithField("file", fileName).Warn("Couldn't read an image")
		return nil
	}
	return img
}
