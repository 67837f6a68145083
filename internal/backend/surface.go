package backend

import (
	"sync"

	"github.com/stwalsh4118/livetv/internal/logger"
)

// Surface guards the single media element. Exactly one backend may hold it at a time.
type Surface struct {
	el MediaElement

	mu    sync.Mutex
	owner string
}

// NewSurface wraps the media element
func NewSurface(el MediaElement) *Surface {
	return &Surface{el: el}
}

// Acquire binds the element to owner; it fails with ErrSurfaceBusy while another owner holds it
func (s *Surface) Acquire(owner string) (MediaElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner != "" && s.owner != owner {
		logger.Log.Warn().
			Str("owner", s.owner).
			Str("requested_by", owner).
			Msg("Video surface acquire refused, still bound")
		return nil, ErrSurfaceBusy
	}
	s.owner = owner
	return s.el, nil
}

// Release unbinds owner; releasing a surface held by someone else is ignored
func (s *Surface) Release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == owner {
		s.owner = ""
	}
}

// Owner returns the current holder, empty when free
func (s *Surface) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Element returns the wrapped element for read-only inspection
func (s *Surface) Element() MediaElement {
	return s.el
}
