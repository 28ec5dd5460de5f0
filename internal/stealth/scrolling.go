// Package stealth - scrolling with momentum instead of jumps
package stealth

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"

	"instagram-automation/internal/config"
)

// ScrollController scrolls in eased increments so the page travels the
// way it does under a flicked wheel, not in a single jump.
type ScrollController struct {
	config *config.StealthConfig
	logger zerolog.Logger
}

// NewScrollController creates a scroll controller
func NewScrollController(cfg *config.StealthConfig, logger zerolog.Logger) *ScrollController {
	return &ScrollController{
		config: cfg,
		logger: logger.With().Str("module", "scroll").Logger(),
	}
}

// ScrollTo eases the viewport to an absolute Y position.
func (s *ScrollController) ScrollTo(page *rod.Page, targetY int) error {
	currentY, err := s.scrollPosition(page)
	if err != nil {
		return err
	}
	if abs(targetY-currentY) < 10 {
		return nil
	}

	for _, step := range scrollPlan(currentY, targetY) {
		if _, err := page.Eval(`(y) => window.scrollTo(0, y)`, step.position); err != nil {
			return err
		}
		time.Sleep(step.pause)
	}

	// Momentum sometimes carries past the target before settling.
	if s.config.EnableScrollBack && rand.Float64() < 0.2 {
		s.settle(page, targetY)
	}

	return nil
}

// ScrollDown advances the page by one randomized reading stride.
func (s *ScrollController) ScrollDown(page *rod.Page) error {
	currentY, err := s.scrollPosition(page)
	if err != nil {
		return err
	}
	return s.ScrollTo(page, currentY+s.stride())
}

// ScrollUp backs the page up by one randomized stride, clamped at the top.
func (s *ScrollController) ScrollUp(page *rod.Page) error {
	currentY, err := s.scrollPosition(page)
	if err != nil {
		return err
	}

	targetY := currentY - s.stride()
	if targetY < 0 {
		targetY = 0
	}
	return s.ScrollTo(page, targetY)
}

// ScrollRandom scrolls in a random direction, biased downward the way
// feed browsing is.
func (s *ScrollController) ScrollRandom(page *rod.Page) error {
	if rand.Float64() < 0.7 {
		return s.ScrollDown(page)
	}
	return s.ScrollUp(page)
}

// ScrollContainer walks an overflow container (the followers dialog
// list) downward in small randomized increments, which is what
// triggers its lazy loading.
func (s *ScrollController) ScrollContainer(container *rod.Element, totalPx int) error {
	remaining := totalPx
	for remaining > 0 {
		step := 80 + rand.Intn(120)
		if step > remaining {
			step = remaining
		}

		if _, err := container.Eval(`(y) => this.scrollBy(0, y)`, step); err != nil {
			return err
		}

		remaining -= step
		time.Sleep(time.Duration(30+rand.Intn(70)) * time.Millisecond)
	}

	return nil
}

// stride is one wheel-flick's worth of travel, drawn from the
// configured range.
func (s *ScrollController) stride() int {
	span := s.config.ScrollSpeedMax - s.config.ScrollSpeedMin
	if span <= 0 {
		return s.config.ScrollSpeedMin
	}
	return s.config.ScrollSpeedMin + rand.Intn(span)
}

// settle overshoots the target slightly and corrects back.
func (s *ScrollController) settle(page *rod.Page, targetY int) {
	past := 20 + rand.Intn(30)
	if rand.Float64() < 0.5 {
		past = -past
	}

	page.Eval(`(y) => window.scrollTo(0, y)`, targetY+past)
	time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)

	page.Eval(`(y) => window.scrollTo(0, y)`, targetY)
	time.Sleep(time.Duration(50+rand.Intn(50)) * time.Millisecond)
}

func (s *ScrollController) scrollPosition(page *rod.Page) (int, error) {
	result, err := page.Eval(`() => window.pageYOffset || document.documentElement.scrollTop`)
	if err != nil {
		return 0, err
	}
	return int(result.Value.Num()), nil
}

// scrollStep is one increment of an eased scroll.
type scrollStep struct {
	position int
	pause    time.Duration
}

// scrollPlan divides the travel into steps that decelerate into the
// target: an ease-out cubic on position, with pauses stretched at the
// ends where the wheel slows.
func scrollPlan(fromY, toY int) []scrollStep {
	travel := toY - fromY

	count := abs(travel) / 50
	if count < 5 {
		count = 5
	}
	if count > 30 {
		count = 30
	}

	steps := make([]scrollStep, count)
	for i := range steps {
		t := float64(i+1) / float64(count)
		eased := 1 - math.Pow(1-t, 3)

		tempo := 0.5 + math.Sin(math.Pi*t)*0.5
		pause := float64(20+rand.Intn(30)) / tempo

		steps[i] = scrollStep{
			position: fromY + int(float64(travel)*eased),
			pause:    time.Duration(pause) * time.Millisecond,
		}
	}

	return steps
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
