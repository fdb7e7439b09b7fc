package activation

import (
	"math"
	"sync"

	"github.com/charmbracelet/harmonica"
)

// Spring animates the viewport offset with harmonica spring physics.
// The UI calls Step once per frame and feeds the result back to Tracker.Scroll.
type Spring struct {
	mu     sync.Mutex
	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

// NewSpring creates a Spring stepping at fps frames per second.
func NewSpring(fps int) *Spring {
	return &Spring{spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8)}
}

// AnimateTo sets the target offset.
func (s *Spring) AnimateTo(offset float64) {
	s.mu.Lock()
	s.target = offset
	s.mu.Unlock()
}

// Jump moves to offset with no animation.
func (s *Spring) Jump(offset float64) {
	s.mu.Lock()
	s.pos, s.vel, s.target = offset, 0, offset
	s.mu.Unlock()
}

// Step advances one frame and returns the new offset and whether the spring
// is still moving. A spring within 0.01 of its target snaps to it.
func (s *Spring) Step() (offset float64, moving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos, s.vel = s.spring.Update(s.pos, s.vel, s.target)
	if math.Abs(s.pos-s.target) < 0.01 && math.Abs(s.vel) < 0.01 {
		s.pos, s.vel = s.target, 0
		return s.pos, false
	}
	return s.pos, true
}

// Offset returns the current position.
func (s *Spring) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Moving reports whether the spring has not settled.
func (s *Spring) Moving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return math.Abs(s.pos-s.target) > 0.01
}
