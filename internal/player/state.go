// Package player owns the current event of a channel lineup and keeps
// playback continuous across event switches, seeks and backend failures.
package player

// State is the controller's playback state
type State string

// Controller states
const (
	StateIdle    State = "idle"    // No event selected
	StateLoading State = "loading" // Tearing down the previous session and loading the next
	StatePlaying State = "playing"
	StatePaused  State = "paused" // Loaded and ready, not advancing
	StateError   State = "error"  // The error slot holds a message
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid checks if the state is a known value
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateLoading, StatePlaying, StatePaused, StateError:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a transition from s to next is valid
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateIdle:
		// Catalog failures surface before anything was selected
		return next == StateLoading || next == StateError
	case StateLoading:
		return next == StateLoading || next == StatePaused || next == StatePlaying || next == StateError
	case StatePlaying:
		return next == StatePaused || next == StateLoading || next == StateError
	case StatePaused:
		return next == StatePlaying || next == StateLoading || next == StateError
	case StateError:
		// Dismissal restores the backend's state, or idle without a session
		return next == StateLoading || next == StatePlaying || next == StatePaused || next == StateIdle
	default:
		return false
	}
}
