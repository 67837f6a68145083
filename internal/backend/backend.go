package backend

import (
	"context"
)

// ReadyState mirrors the media element readiness levels
type ReadyState int

// Readiness levels
const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// String returns a readable name for the level
func (r ReadyState) String() string {
	switch r {
	case HaveNothing:
		return "have_nothing"
	case HaveMetadata:
		return "have_metadata"
	case HaveCurrentData:
		return "have_current_data"
	case HaveFutureData:
		return "have_future_data"
	case HaveEnoughData:
		return "have_enough_data"
	default:
		return "unknown"
	}
}

// Range is a seekable time window in seconds
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t lies within the range, bounds included
func (r Range) Contains(t float64) bool {
	return t >= r.Start && t <= r.End
}

// Empty reports whether the range covers no time
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Backend is a playback engine bound to the video surface
type Backend interface {
	Kind() Kind
	// Load starts playback of url and returns once the first data is available.
	// Failures are *LoadError.
	Load(ctx context.Context, url string) error
	Play(ctx context.Context) error
	Pause() error
	Paused() bool
	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64
	Seekable() Range
	ReadyState() ReadyState
	SetVolume(v float64)
	SetMuted(muted bool)
	Subscribe(l Listener) Disposer
	// Destroy releases the engine and the surface. A second call returns nil.
	Destroy(ctx context.Context) error
}

// MediaInfo describes a stream whose manifest was already parsed by an engine
type MediaInfo struct {
	Duration float64 // seconds, 0 when unknown
	Live     bool
	// Window is the live DVR depth in seconds
	Window float64
	// Delay is how far behind the live edge playback starts, in seconds
	Delay float64
}

// MediaElement is the underlying player surface that backends drive
type MediaElement interface {
	// SetSrc assigns a progressive source; readiness is reported through events
	SetSrc(url string)
	// Attach binds a stream resolved by an engine
	Attach(url string, info MediaInfo)
	// Detach removes any source and resets playback state
	Detach()
	Src() string
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64
	Seekable() Range
	ReadyState() ReadyState
	SetVolume(v float64)
	SetMuted(muted bool)
	Subscribe(l Listener) Disposer
}
