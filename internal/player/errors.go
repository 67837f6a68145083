package player

import (
	"errors"
	"fmt"
)

// Selection and lifecycle errors
var (
	ErrEventUpcoming   = errors.New("event has not started yet")
	ErrNotSelectable   = errors.New("event cannot be selected from the schedule")
	ErrEventNotFound   = errors.New("event not found in lineup")
	ErrNoAdjacentEvent = errors.New("no adjacent event")
	ErrNoCatalog       = errors.New("no lineup loaded")
	ErrNoSession       = errors.New("no active playback session")
	ErrClosed          = errors.New("controller closed")
	ErrReadyTimeout    = errors.New("stream did not become ready in time")
	ErrSuperseded      = errors.New("superseded by a newer selection")
)

// User-visible messages
const (
	msgPlayFailed        = "Failed to play video. Please try again."
	msgCatalogLoad       = "Failed to load program data: %s"
	msgFallbackFailed    = "Failed to load any stream: %s"
	msgNetworkFailed     = "Failed to load stream: Network error %d"
	msgPlayback          = "Playback error: %s"
	msgReadyTimeout      = "Playback error: stream did not become ready"
	msgEngineUnavailable = "Playback error: adaptive streaming engine unavailable"
)

// ErrorType classifies a player error
type ErrorType int

const (
	// ErrorTypeCatalogLoad indicates the lineup could not be fetched
	ErrorTypeCatalogLoad ErrorType = iota
	// ErrorTypeBackendUnavailable indicates the adaptive engine could not be loaded
	ErrorTypeBackendUnavailable
	// ErrorTypeLoad indicates both the resolved stream and the fallback failed to load
	ErrorTypeLoad
	// ErrorTypeNetworkPlayback indicates a network failure the fallback reload could not recover
	ErrorTypeNetworkPlayback
	// ErrorTypePlayRejected indicates the media element refused to play
	ErrorTypePlayRejected
	// ErrorTypeReadyTimeout indicates the readiness poll was exhausted
	ErrorTypeReadyTimeout
	// ErrorTypePlayback indicates any other runtime failure reported by the backend
	ErrorTypePlayback
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeCatalogLoad:
		return "catalog_load"
	case ErrorTypeBackendUnavailable:
		return "backend_unavailable"
	case ErrorTypeLoad:
		return "load"
	case ErrorTypeNetworkPlayback:
		return "network_playback"
	case ErrorTypePlayRejected:
		return "play_rejected"
	case ErrorTypeReadyTimeout:
		return "ready_timeout"
	case ErrorTypePlayback:
		return "playback"
	default:
		return "unknown"
	}
}

// ErrorSeverity represents how a player error affects the session
type ErrorSeverity int

const (
	// SeverityWarning is logged only
	SeverityWarning ErrorSeverity = iota
	// SeverityError is shown in the error slot
	SeverityError
	// SeverityFatal ends the session
	SeverityFatal
)

// String returns the string representation of ErrorSeverity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PlayerError is a classified failure. Message is what the user sees.
type PlayerError struct {
	Type        ErrorType
	Severity    ErrorSeverity
	Message     string
	Cause       error
	Recoverable bool
}

// NewPlayerError creates a PlayerError with the type's severity and recoverability
func NewPlayerError(errorType ErrorType, message string, cause error) *PlayerError {
	severity, recoverable := classifyErrorTypeAttributes(errorType)
	return &PlayerError{
		Type:        errorType,
		Severity:    severity,
		Message:     message,
		Cause:       cause,
		Recoverable: recoverable,
	}
}

// Error implements the error interface
func (e *PlayerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PlayerError) Unwrap() error {
	return e.Cause
}

// classifyErrorTypeAttributes returns severity and recoverability for an error type
func classifyErrorTypeAttributes(errorType ErrorType) (ErrorSeverity, bool) {
	switch errorType {
	case ErrorTypeCatalogLoad:
		return SeverityError, false // Banner only, no retry
	case ErrorTypeBackendUnavailable:
		return SeverityFatal, false
	case ErrorTypeLoad:
		return SeverityError, false // The fallback was already tried
	case ErrorTypeNetworkPlayback:
		return SeverityError, true // One same-instance fallback reload
	case ErrorTypePlayRejected:
		return SeverityWarning, true
	case ErrorTypeReadyTimeout:
		return SeverityError, true
	default:
		return SeverityError, false
	}
}

// AsPlayerError extracts a *PlayerError from err
func AsPlayerError(err error) (*PlayerError, bool) {
	var pe *PlayerError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsUpcoming checks if err is a refusal to select an upcoming event
func IsUpcoming(err error) bool {
	return errors.Is(err, ErrEventUpcoming)
}

// IsNotFound checks if err reports an unknown event
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}

// IsRefused checks if err is a navigation or selection refusal that leaves state unchanged
func IsRefused(err error) bool {
	return errors.Is(err, ErrEventUpcoming) ||
		errors.Is(err, ErrNotSelectable) ||
		errors.Is(err, ErrNoAdjacentEvent)
}
