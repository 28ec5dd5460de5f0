// Package stealth - cursor movement along curved, variable-speed paths
package stealth

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"instagram-automation/internal/config"
)

// Point is a page coordinate.
type Point struct {
	X, Y float64
}

// MouseController moves the cursor the way a hand does: along an arc,
// accelerating out of the start and braking into the target. It keeps
// the last position so consecutive moves chain into one continuous
// track instead of teleporting between targets.
type MouseController struct {
	config *config.StealthConfig
	logger zerolog.Logger
	pos    Point
}

// NewMouseController creates a mouse controller
func NewMouseController(cfg *config.StealthConfig, logger zerolog.Logger) *MouseController {
	return &MouseController{
		config: cfg,
		logger: logger.With().Str("module", "mouse").Logger(),
	}
}

// MoveTo walks the cursor from its tracked position to the target
// along a randomized cubic curve.
func (m *MouseController) MoveTo(page *rod.Page, targetX, targetY float64) error {
	target := Point{X: targetX, Y: targetY}
	path := curvedPath(m.pos, target)
	mouse := page.Mouse

	for i, p := range path {
		mouse.MustMoveTo(p.X, p.Y)

		// Pace follows a sine bell over the path: slow leaving the
		// start, fast through the middle, slow again at the target.
		progress := float64(i) / float64(len(path))
		pace := m.config.MouseSpeedMin + math.Sin(math.Pi*progress)*(m.config.MouseSpeedMax-m.config.MouseSpeedMin)
		if pace <= 0 {
			pace = 0.5
		}

		step := time.Duration(float64(5+rand.Intn(10))/pace) * time.Millisecond
		time.Sleep(step)
	}

	if m.config.EnableOvershoot && rand.Float64() < 0.3 {
		m.overshoot(mouse, target)
	}

	m.pos = target
	return nil
}

// MoveToElement aims at an element, landing slightly off its exact
// center the way a real pointer does.
func (m *MouseController) MoveToElement(page *rod.Page, element *rod.Element) error {
	// Feed posts and dialog rows are often below the fold.
	if err := element.ScrollIntoView(); err != nil {
		m.logger.Debug().Err(err).Msg("ScrollIntoView failed, trying pointer math anyway")
	}

	shape, err := element.Shape()
	if err != nil {
		return err
	}
	if len(shape.Quads) == 0 {
		return nil
	}

	center := quadCenter(shape.Quads[0])
	center.X += (rand.Float64() - 0.5) * 10
	center.Y += (rand.Float64() - 0.5) * 10

	return m.MoveTo(page, center.X, center.Y)
}

// Click presses and releases at the current position with realistic
// hold and settle times.
func (m *MouseController) Click(page *rod.Page) error {
	mouse := page.Mouse

	time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)

	if err := mouse.Down(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	if err := mouse.Up(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}

	time.Sleep(time.Duration(100+rand.Intn(200)) * time.Millisecond)
	return nil
}

// ClickElement moves to an element and clicks it.
func (m *MouseController) ClickElement(page *rod.Page, element *rod.Element) error {
	if err := m.MoveToElement(page, element); err != nil {
		return err
	}
	return m.Click(page)
}

// overshoot slides a little past the target and drifts back, which is
// what fast pointer motion does on a real desk.
func (m *MouseController) overshoot(mouse *rod.Mouse, target Point) {
	dist := 5 + rand.Float64()*10
	angle := rand.Float64() * 2 * math.Pi

	mouse.MustMoveTo(target.X+math.Cos(angle)*dist, target.Y+math.Sin(angle)*dist)
	time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)

	mouse.MustMoveTo(target.X, target.Y)
	time.Sleep(time.Duration(20+rand.Intn(30)) * time.Millisecond)
}

// curvedPath samples a cubic curve from start to end. The control
// points sit off the straight line, so the track bows to one side, and
// interior samples carry a pixel or two of jitter.
func curvedPath(start, end Point) []Point {
	dist := math.Hypot(end.X-start.X, end.Y-start.Y)

	samples := int(dist / 10)
	if samples < 20 {
		samples = 20
	}

	c1, c2 := controlPoints(start, end, dist)

	path := make([]Point, samples)
	for i := range path {
		t := float64(i) / float64(samples-1)
		path[i] = Point{
			X: cubicAt(t, start.X, c1.X, c2.X, end.X),
			Y: cubicAt(t, start.Y, c1.Y, c2.Y, end.Y),
		}
		if i > 0 && i < samples-1 {
			path[i].X += (rand.Float64() - 0.5) * 2
			path[i].Y += (rand.Float64() - 0.5) * 2
		}
	}

	return path
}

func controlPoints(start, end Point, dist float64) (Point, Point) {
	// How far the arc bows, as a fraction of the travel distance.
	bow := dist * (0.1 + rand.Float64()*0.3)
	if rand.Float64() < 0.5 {
		bow = -bow
	}

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		length = 1
	}

	// Unit normal to the travel direction.
	nx := -dy / length
	ny := dx / length

	c1 := Point{
		X: start.X + dx*0.25 + nx*bow*(0.5+rand.Float64()*0.5),
		Y: start.Y + dy*0.25 + ny*bow*(0.5+rand.Float64()*0.5),
	}
	c2 := Point{
		X: start.X + dx*0.75 + nx*bow*(0.5+rand.Float64()*0.5),
		Y: start.Y + dy*0.75 + ny*bow*(0.5+rand.Float64()*0.5),
	}

	return c1, c2
}

func cubicAt(t, p0, p1, p2, p3 float64) float64 {
	mt := 1 - t
	return mt*mt*mt*p0 + 3*mt*mt*t*p1 + 3*mt*t*t*p2 + t*t*t*p3
}

// quadCenter averages the four corners of a DOM quad.
func quadCenter(q proto.DOMQuad) Point {
	return Point{
		X: (q[0] + q[2] + q[4] + q[6]) / 4,
		Y: (q[1] + q[3] + q[5] + q[7]) / 4,
	}
}
