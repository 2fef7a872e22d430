package offscreen

import (
	"image"
)

// PaintEngine is the interface definition for a display target.
// A frame is presented by Begin, one or more DrawImage calls and End.
type PaintEngine interface {
	Begin() error
	DrawImage(top image.Point, img image.Image) error
	End() error
}
