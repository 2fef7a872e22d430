package cars

import (
	"time"

	"github.com/rmcsoft/offscreen"
)

const (
	// DefaultSteps is the number of simulated steps
	DefaultSteps = 300
	// DefaultInterval is the pause between steps
	DefaultInterval = 100 * time.Millisecond
	// DividerX is the x coordinate of the dividing line
	DividerX = 300

	carWidth      = 32
	carHeight     = 24
	dividerTop    = 0
	dividerBottom = 500
)

// Crossing is the two car scenario. The first car starts bottom left and
// drives up right, the second starts top right and drives down left; each
// stops as soon as it is past the divider.
type Crossing struct {
	Steps    int
	Interval time.Duration
	DividerX int

	Cars []*Car

	// OnStep, if set, is called after the cars of a step have moved.
	OnStep func(step int, cars []*Car)
}

// NewCrossing creates the scenario for variant n. The variant shifts the
// start positions by 10*n and the speeds by n.
func NewCrossing(n int) *Crossing {
	return &Crossing{
		Steps:    DefaultSteps,
		Interval: DefaultInterval,
		DividerX: DividerX,
		Cars: []*Car{
			NewCar(50+10*n, 350+10*n, carWidth, carHeight, n+5, -n-5),
			NewCar(450-10*n, 250-10*n, carWidth, carHeight, -n-5, n+5),
		},
	}
}

// Run is an offscreen.Scenario.
func (c *Crossing) Run(animator *offscreen.Animator) {
	canvas := animator.Canvas()

	for step := 0; step < c.Steps; step++ {
		canvas.Clear()
		canvas.DrawLine(c.DividerX, dividerTop, c.DividerX, dividerBottom)
		for _, car := range c.Cars {
			car.Draw(canvas)
		}

		for _, car := range c.Cars {
			car.Move()
		}
		c.stopCrossed()

		if c.OnStep != nil {
			c.OnStep(step, c.Cars)
		}
		animator.Pace(c.Interval)
	}
}

// stopCrossed stops every car that has passed the divider in its direction
// of travel.
func (c *Crossing) stopCrossed() {
	for _, car := range c.Cars {
		if (car.VX > 0 && car.X > c.DividerX) || (car.VX < 0 && car.X < c.DividerX) {
			car.Stop()
		}
	}
}
