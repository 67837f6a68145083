package backend

import (
	"errors"
	"fmt"
)

// Backend errors
var (
	ErrBackendUnavailable = errors.New("adaptive engine unavailable")
	ErrSurfaceBusy        = errors.New("video surface is bound to another backend")
	ErrDestroyed          = errors.New("backend destroyed")
	ErrPlayRejected       = errors.New("play request rejected")
	ErrNoSource           = errors.New("no source attached")
)

// Media element error codes
const (
	CodeMediaAborted        = 1
	CodeMediaNetwork        = 2
	CodeMediaDecode         = 3
	CodeMediaSrcUnsupported = 4
)

// Adaptive engine error codes
const (
	CodeManifestInvalid     = 4000
	CodeManifestEmpty       = 4001
	CodeManifestUnsupported = 4002
	CodeNetworkBadStatus    = 7000
	CodeNetworkFailed       = 7001
	CodeNetworkTimeout      = 7002
)

// Network error codes of the adaptive engine occupy [NetworkCodeMin, NetworkCodeMax]
const (
	NetworkCodeMin = 7000
	NetworkCodeMax = 7999
)

// LoadError is a typed load or runtime failure reported by a backend
type LoadError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("load error %d", e.Code)
	}
	return fmt.Sprintf("load error %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a LoadError
func NewLoadError(code int, message string, err error) *LoadError {
	return &LoadError{Code: code, Message: message, Err: err}
}

// IsNetworkCode checks if code falls in the adaptive engine's network range
func IsNetworkCode(code int) bool {
	return code >= NetworkCodeMin && code <= NetworkCodeMax
}

// AsLoadError extracts a *LoadError from err
func AsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
