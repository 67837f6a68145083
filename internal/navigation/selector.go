package navigation

import (
	"sync"
	"time"

	"github.com/stwalsh4118/livetv/internal/logger"
)

// SelectorState is the observable state of the event selector overlay
type SelectorState struct {
	Visible bool `json:"visible"`
	Index   int  `json:"index"`
}

// Selector is the event picker overlay. It hides itself after a period without
// highlight changes and recenters on the active event whenever it is shown.
type Selector struct {
	inactivity time.Duration

	mu      sync.Mutex
	visible bool
	index   int
	active  int
	timer   *time.Timer
	// gen invalidates timers that fire after being replaced
	gen    uint64
	closed bool
}

// NewSelector creates a hidden selector
func NewSelector(inactivity time.Duration) *Selector {
	return &Selector{inactivity: inactivity, active: -1}
}

// Open shows the selector highlighting the active event
func (s *Selector) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.visible {
		return
	}
	s.visible = true
	if s.active >= 0 {
		s.index = s.active
	}
	s.restartTimerLocked()
}

// Hide closes the selector
func (s *Selector) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hideLocked()
}

func (s *Selector) hideLocked() {
	s.visible = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Move shifts the highlight by step, wrapping around a lineup of size events
func (s *Selector) Move(step, size int) {
	if size <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible {
		return
	}
	s.index = ((s.index+step)%size + size) % size
	s.restartTimerLocked()
}

// Highlight moves the highlight to index
func (s *Selector) Highlight(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible || index == s.index {
		return
	}
	s.index = index
	s.restartTimerLocked()
}

// SetActive records the active event's index and recenters a visible selector on it
func (s *Selector) SetActive(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = index
	if s.visible && index >= 0 && index != s.index {
		s.index = index
		s.restartTimerLocked()
	}
}

// State returns the current state
func (s *Selector) State() SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SelectorState{Visible: s.visible, Index: s.index}
}

// Stop hides the selector and cancels its timer for good
func (s *Selector) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.hideLocked()
}

func (s *Selector) restartTimerLocked() {
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.inactivity, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || !s.visible {
			return
		}
		logger.Log.Debug().Dur("inactivity", s.inactivity).Msg("Selector hidden after inactivity")
		s.hideLocked()
	})
}
