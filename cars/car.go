// Package cars contains a small moving object simulation drawn with offscreen:
// two cars drive toward a dividing line and stop once they cross it.
package cars

// Canvas is the part of offscreen.PixelBuffer a car draws itself with.
type Canvas interface {
	FillRect(x, y, w, h int)
	FillEllipse(x, y, w, h int)
}

// Car is a rectangular sprite with an integer position and velocity.
// (X, Y) is the centre, W and H the size of the body.
type Car struct {
	X, Y   int
	W, H   int
	VX, VY int
}

// NewCar creates a car at (x, y) of size w x h moving by (vx, vy) per step.
func NewCar(x, y, w, h, vx, vy int) *Car {
	return &Car{X: x, Y: y, W: w, H: h, VX: vx, VY: vy}
}

// Move advances the position by the velocity. There is no clamping; a car may
// leave the viewport.
func (c *Car) Move() {
	c.X += c.VX
	c.Y += c.VY
}

// Stop zeroes the velocity.
func (c *Car) Stop() {
	c.VX = 0
	c.VY = 0
}

// IsMoving reports whether the velocity is non-zero.
func (c *Car) IsMoving() bool {
	return c.VX != 0 || c.VY != 0
}

// Draw paints a cabin, a body and two wheels around the car position.
func (c *Car) Draw(canvas Canvas) {
	ux := c.W / 8
	uy := c.H / 6

	canvas.FillRect(c.X-ux*2, c.Y-uy*3, ux*4, uy*2)
	canvas.FillRect(c.X-ux*4, c.Y-uy, ux*8, uy*2)
	canvas.FillEllipse(c.X-ux*2-uy, c.Y+uy, uy*2, uy*2)
	canvas.FillEllipse(c.X+ux*2-uy, c.Y+uy, uy*2, uy*2)
}
