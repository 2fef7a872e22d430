package offscreen

import (
	"image"
	"image/color"
	"math"
	"math/bits"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/vector"
)

// capacityMargin is added to a dimension each time the buffer has to grow,
// so a burst of small window resizes doesn't reallocate on every event.
const capacityMargin = 100

// ellipseTolerance is the largest distance in pixels between an ellipse and
// the polygon it is filled as.
const (
	ellipseTolerance   = 0.1
	minEllipseVertices = 16
	maxEllipseVertices = 1 << 18
)

// PixelBuffer is an off-screen RGBA drawing buffer whose capacity can be larger
// than what is currently visible. Capacity only grows.
//
// All methods are safe to call concurrently; drawing and capacity growth are
// serialised by a single mutex.
type PixelBuffer struct {
	mutex sync.Mutex

	img     *image.RGBA
	width   int
	height  int
	fgColor color.RGBA
	bgColor color.RGBA

	faces         map[int]font.Face
	reallocations int
}

// NewPixelBuffer creates an empty buffer drawing black on white.
func NewPixelBuffer() *PixelBuffer {
	return &PixelBuffer{
		img:     image.NewRGBA(image.Rectangle{}),
		fgColor: color.RGBA{0, 0, 0, 0xff},
		bgColor: color.RGBA{0xff, 0xff, 0xff, 0xff},
	}
}

// Capacity returns the allocated width and height.
func (buf *PixelBuffer) Capacity() (int, int) {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	return buf.width, buf.height
}

// Reallocations returns how many times the buffer has been reallocated.
func (buf *PixelBuffer) Reallocations() int {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	return buf.reallocations
}

// At returns the colour stored at (x, y), or transparent black outside capacity.
func (buf *PixelBuffer) At(x, y int) color.RGBA {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	return buf.img.RGBAAt(x, y)
}

// ResizeCapacityAtLeast grows the buffer so it holds at least width x height
// pixels. A dimension that is too small becomes the requested size plus a
// fixed margin. Existing content is kept at the origin and newly exposed
// pixels get the background colour. It reports whether a reallocation happened.
func (buf *PixelBuffer) ResizeCapacityAtLeast(width, height int) bool {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	if buf.width >= width && buf.height >= height {
		return false
	}

	newWidth, newHeight := buf.width, buf.height
	if newWidth < width {
		newWidth = width + capacityMargin
	}
	if newHeight < height {
		newHeight = height + capacityMargin
	}

	img := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(buf.bgColor), image.Point{}, draw.Src)
	draw.Copy(img, image.Point{}, buf.img, buf.img.Bounds(), draw.Src, nil)

	buf.img = img
	buf.width = newWidth
	buf.height = newHeight
	buf.reallocations++
	return true
}

// Clear fills the whole capacity, not only the visible part, with the
// background colour. Pixels outside the viewport must not survive a clear,
// otherwise they reappear when the viewport grows again.
func (buf *PixelBuffer) Clear() {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	draw.Draw(buf.img, buf.img.Bounds(), image.NewUniform(buf.bgColor), image.Point{}, draw.Src)
}

// SetColor sets the drawing colour. Each channel is clamped to 0..255.
func (buf *PixelBuffer) SetColor(red, green, blue int) {
	buf.mutex.Lock()
	buf.fgColor = clampRGB(red, green, blue)
	buf.mutex.Unlock()
}

// SetBackground sets the colour used by Clear. Each channel is clamped to 0..255.
func (buf *PixelBuffer) SetBackground(red, green, blue int) {
	buf.mutex.Lock()
	buf.bgColor = clampRGB(red, green, blue)
	buf.mutex.Unlock()
}

// Color returns the current drawing colour.
func (buf *PixelBuffer) Color() color.RGBA {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	return buf.fgColor
}

// Background returns the current background colour.
func (buf *PixelBuffer) Background() color.RGBA {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	return buf.bgColor
}

// FillRect fills the rectangle with the top-left corner at (x, y).
// Nothing is drawn for a non-positive width or height.
func (buf *PixelBuffer) FillRect(x, y, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}

	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	draw.Draw(buf.img, image.Rect(x, y, x+w, y+h), image.NewUniform(buf.fgColor), image.Point{}, draw.Src)
}

// FillRectF is FillRect for floating point arguments. Values are truncated
// toward zero, not rounded.
func (buf *PixelBuffer) FillRectF(x, y, w, h float64) {
	buf.FillRect(int(x), int(y), int(w), int(h))
}

// FillEllipse fills the ellipse inscribed in the rectangle at (x, y) with size w x h.
// Only the part of the ellipse inside the buffer is rasterized.
func (buf *PixelBuffer) FillEllipse(x, y, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}

	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	clip := image.Rect(x, y, x+w, y+h).Intersect(buf.img.Bounds())
	if clip.Empty() {
		return
	}

	rx, ry := float64(w)/2, float64(h)/2
	cx, cy := float64(x-clip.Min.X)+rx, float64(y-clip.Min.Y)+ry
	poly := clipPolygon(ellipsePolygon(cx, cy, rx, ry), -1, -1, float64(clip.Dx()+1), float64(clip.Dy()+1))
	if len(poly) < 3 {
		return
	}

	z := vector.NewRasterizer(clip.Dx(), clip.Dy())
	z.MoveTo(float32(poly[0].x), float32(poly[0].y))
	for _, p := range poly[1:] {
		z.LineTo(float32(p.x), float32(p.y))
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, clip.Dx(), clip.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	draw.DrawMask(buf.img, clip, image.NewUniform(buf.fgColor), image.Point{}, mask, image.Point{}, draw.Over)
}

// FillEllipseF is FillEllipse for floating point arguments, truncated toward zero.
func (buf *PixelBuffer) FillEllipseF(x, y, w, h float64) {
	buf.FillEllipse(int(x), int(y), int(w), int(h))
}

// DrawLine draws a one pixel wide line including both end points.
// Only the steps that fall inside the buffer are walked, so the cost is bounded
// by the buffer size whatever the end points are.
func (buf *PixelBuffer) DrawLine(x1, y1, x2, y2 int) {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	bounds := buf.img.Bounds()
	if abs(x2-x1) >= abs(y2-y1) {
		buf.walkLine(x1, y1, x2-x1, y2-y1, bounds.Dx(), bounds.Dy(), false)
	} else {
		buf.walkLine(y1, x1, y2-y1, x2-x1, bounds.Dy(), bounds.Dx(), true)
	}
}

// walkLine plots a line along its major axis u, with the minor axis v at step i
// being v0 + round(i*dv/du). Steps whose u is outside [0, uSize) are skipped
// without being visited. Must be called with the mutex held.
func (buf *PixelBuffer) walkLine(u0, v0, du, dv, uSize, vSize int, transposed bool) {
	su, sv := 1, 1
	if du < 0 {
		su = -1
	}
	if dv < 0 {
		sv = -1
	}
	adu, adv := uint64(abs(du)), uint64(abs(dv))

	first, last := 0, abs(du)
	if su > 0 {
		first = max(first, -u0)
		last = min(last, uSize-1-u0)
	} else {
		first = max(first, u0-(uSize-1))
		last = min(last, u0)
	}

	for i := first; i <= last; i++ {
		v := v0
		if adu > 0 {
			hi, lo := bits.Mul64(uint64(i), adv)
			q, r := bits.Div64(hi, lo, adu)
			if r >= adu-r {
				q++
			}
			v += sv * int(q)
		}
		if v < 0 || v >= vSize {
			continue
		}

		u := u0 + su*i
		if transposed {
			buf.img.SetRGBA(v, u, buf.fgColor)
		} else {
			buf.img.SetRGBA(u, v, buf.fgColor)
		}
	}
}

// DrawLineF is DrawLine for floating point arguments, truncated toward zero.
func (buf *PixelBuffer) DrawLineF(x1, y1, x2, y2 float64) {
	buf.DrawLine(int(x1), int(y1), int(x2), int(y2))
}

// DrawImage draws img with its top-left corner at (x, y). A nil image is ignored.
func (buf *PixelBuffer) DrawImage(img image.Image, x, y int) {
	if img == nil {
		return
	}

	bounds := img.Bounds()
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	draw.Draw(buf.img, image.Rect(x, y, x+bounds.Dx(), y+bounds.Dy()), img, bounds.Min, draw.Over)
}

// DrawImageScaled draws img scaled into the w x h rectangle at (x, y).
// A nil image is ignored.
func (buf *PixelBuffer) DrawImageScaled(img image.Image, x, y, w, h int) {
	if img == nil || w <= 0 || h <= 0 {
		return
	}

	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	draw.NearestNeighbor.Scale(buf.img, image.Rect(x, y, x+w, y+h), img, img.Bounds(), draw.Over, nil)
}

// copyRect returns a copy of r clipped to the buffer, translated to the origin.
func (buf *PixelBuffer) copyRect(r image.Rectangle) *image.RGBA {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	r = r.Intersect(buf.img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, buf.img, r, draw.Src, nil)
	return dst
}

type vertex struct {
	x, y float64
}

func ellipsePolygon(cx, cy, rx, ry float64) []vertex {
	step := math.Sqrt(8 * ellipseTolerance / math.Max(rx, ry))
	n := int(math.Ceil(2 * math.Pi / step))
	n = min(max(n, minEllipseVertices), maxEllipseVertices)

	poly := make([]vertex, n)
	for i := range poly {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / float64(n))
		poly[i] = vertex{cx + rx*cos, cy + ry*sin}
	}
	return poly
}

// clipPolygon clips a closed polygon to the box (Sutherland-Hodgman).
func clipPolygon(poly []vertex, minX, minY, maxX, maxY float64) []vertex {
	edges := []struct {
		inside func(v vertex) bool
		cross  func(a, b vertex) vertex
	}{
		{
			func(v vertex) bool { return v.x >= minX },
			func(a, b vertex) vertex { return vertex{minX, a.y + (b.y-a.y)*(minX-a.x)/(b.x-a.x)} },
		},
		{
			func(v vertex) bool { return v.x <= maxX },
			func(a, b vertex) vertex { return vertex{maxX, a.y + (b.y-a.y)*(maxX-a.x)/(b.x-a.x)} },
		},
		{
			func(v vertex) bool { return v.y >= minY },
			func(a, b vertex) vertex { return vertex{a.x + (b.x-a.x)*(minY-a.y)/(b.y-a.y), minY} },
		},
		{
			func(v vertex) bool { return v.y <= maxY },
			func(a, b vertex) vertex { return vertex{a.x + (b.x-a.x)*(maxY-a.y)/(b.y-a.y), maxY} },
		},
	}

	for _, e := range edges {
		if len(poly) == 0 {
			break
		}
		in := poly
		poly = make([]vertex, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				poly = append(poly, cur)
			case e.inside(cur):
				poly = append(poly, e.cross(prev, cur), cur)
			case e.inside(prev):
				poly = append(poly, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return poly
}

func clampRGB(red, green, blue int) color.RGBA {
	return color.RGBA{clampChannel(red), clampChannel(green), clampChannel(blue), 0xff}
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return uint8(v)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
