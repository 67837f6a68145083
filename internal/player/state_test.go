package player

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stwalsh4118/livetv/internal/backend"
)

func TestStateIsValid(t *testing.T) {
	for _, s := range []State{StateIdle, StateLoading, StatePlaying, StatePaused, StateError} {
		if !s.IsValid() {
			t.Errorf("State(%q).IsValid() = false, want true", s)
		}
	}
	if State("buffering").IsValid() {
		t.Error("unknown state should not be valid")
	}
}

func TestStateCanTransitionTo(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateIdle, StateLoading, true},
		{StateIdle, StateError, true},
		{StateIdle, StatePlaying, false},
		{StateLoading, StatePaused, true},
		{StateLoading, StatePlaying, true},
		{StateLoading, StateLoading, true},
		{StateLoading, StateIdle, false},
		{StatePlaying, StatePaused, true},
		{StatePlaying, StateLoading, true},
		{StatePlaying, StateIdle, false},
		{StatePaused, StatePlaying, true},
		{StatePaused, StateError, true},
		{StateError, StateIdle, true},
		{StateError, StatePlaying, true},
		{StateError, StateLoading, true},
		{State("unknown"), StateIdle, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlayerErrorClassification(t *testing.T) {
	tests := []struct {
		errorType   ErrorType
		name        string
		severity    ErrorSeverity
		recoverable bool
	}{
		{ErrorTypeCatalogLoad, "catalog_load", SeverityError, false},
		{ErrorTypeBackendUnavailable, "backend_unavailable", SeverityFatal, false},
		{ErrorTypeLoad, "load", SeverityError, false},
		{ErrorTypeNetworkPlayback, "network_playback", SeverityError, true},
		{ErrorTypePlayRejected, "play_rejected", SeverityWarning, true},
		{ErrorTypeReadyTimeout, "ready_timeout", SeverityError, true},
		{ErrorTypePlayback, "playback", SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPlayerError(tt.errorType, "message", nil)
			if err.Type.String() != tt.name {
				t.Errorf("Type.String() = %s, want %s", err.Type.String(), tt.name)
			}
			if err.Severity != tt.severity {
				t.Errorf("Severity = %s, want %s", err.Severity, tt.severity)
			}
			if err.Recoverable != tt.recoverable {
				t.Errorf("Recoverable = %v, want %v", err.Recoverable, tt.recoverable)
			}
		})
	}
}

func TestPlayerErrorUnwrap(t *testing.T) {
	cause := backend.NewLoadError(backend.CodeNetworkTimeout, "manifest request timed out", nil)
	err := fmt.Errorf("select: %w", NewPlayerError(ErrorTypeLoad, "Failed to load any stream: x", cause))

	perr, ok := AsPlayerError(err)
	if !ok {
		t.Fatal("AsPlayerError() should find the wrapped error")
	}
	if perr.Cause != cause {
		t.Errorf("Cause = %v, want %v", perr.Cause, cause)
	}
	if le, ok := backend.AsLoadError(err); !ok || le.Code != backend.CodeNetworkTimeout {
		t.Errorf("AsLoadError() = %v, %v", le, ok)
	}
	if _, ok := AsPlayerError(errors.New("plain")); ok {
		t.Error("AsPlayerError() should not match a plain error")
	}
}

func TestRefusalHelpers(t *testing.T) {
	if !IsRefused(fmt.Errorf("%w: Match", ErrEventUpcoming)) {
		t.Error("upcoming refusal should be refused")
	}
	if !IsRefused(ErrNoAdjacentEvent) {
		t.Error("missing neighbour should be refused")
	}
	if IsRefused(ErrClosed) {
		t.Error("closed controller is not a refusal")
	}
}
