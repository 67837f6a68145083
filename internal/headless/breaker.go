package headless

import (
	"errors"
	"net/url"
	"sync"
	"time"
)

const (
	defaultBreakerThreshold = 3
	defaultBreakerReset     = 30 * time.Second
)

// ErrHostUnavailable is the cause of fetches short-circuited by an open breaker
var ErrHostUnavailable = errors.New("stream host unavailable")

// BreakerState represents the state of a host breaker
type BreakerState int

const (
	// BreakerClosed lets requests through
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects requests until the reset timeout elapses
	BreakerOpen
	// BreakerHalfOpen lets requests through to test whether the host recovered
	BreakerHalfOpen
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type hostState struct {
	state       BreakerState
	failures    int
	lastFailure time.Time
}

// hostBreakers tracks consecutive transport failures per stream host
type hostBreakers struct {
	threshold int
	reset     time.Duration
	now       func() time.Time

	mu    sync.Mutex
	hosts map[string]*hostState
}

func newHostBreakers(threshold int, reset time.Duration) *hostBreakers {
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	if reset <= 0 {
		reset = defaultBreakerReset
	}
	return &hostBreakers{
		threshold: threshold,
		reset:     reset,
		now:       time.Now,
		hosts:     make(map[string]*hostState),
	}
}

// allow reports whether a request to host may proceed
func (b *hostBreakers) allow(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(host) != BreakerOpen
}

// success closes the breaker of host
func (b *hostBreakers) success(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.hosts, host)
}

// failure records a transport failure; the breaker opens at the threshold
// and a failed half-open attempt reopens it
func (b *hostBreakers) failure(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.hosts[host]
	if h == nil {
		h = &hostState{}
		b.hosts[host] = h
	}
	h.failures++
	h.lastFailure = b.now()
	if h.state == BreakerHalfOpen || h.failures >= b.threshold {
		h.state = BreakerOpen
	}
}

// state returns the breaker state of host
func (b *hostBreakers) state(host string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(host)
}

func (b *hostBreakers) stateLocked(host string) BreakerState {
	h := b.hosts[host]
	if h == nil {
		return BreakerClosed
	}
	if h.state == BreakerOpen && b.now().Sub(h.lastFailure) >= b.reset {
		h.state = BreakerHalfOpen
		h.failures = 0
	}
	return h.state
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
