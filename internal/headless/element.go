// Package headless provides a server-side media element and adaptive engine.
// The element advances a simulated playhead in real time; the engine fetches
// and parses real HLS and DASH manifests over HTTP.
package headless

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/stwalsh4118/livetv/internal/backend"
	"github.com/stwalsh4118/livetv/internal/logger"
)

const (
	defaultTickInterval = 250 * time.Millisecond
	defaultBufferDelay  = 300 * time.Millisecond
	defaultVolume       = 1.0
)

var errElementClosed = backend.NewLoadError(backend.CodeMediaAborted, "media element closed", nil)

// Prober resolves a progressive source into stream info.
// Failures should be *backend.LoadError.
type Prober interface {
	Probe(ctx context.Context, url string) (backend.MediaInfo, error)
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, url string) (backend.MediaInfo, error)

// Probe calls f(ctx, url)
func (f ProberFunc) Probe(ctx context.Context, url string) (backend.MediaInfo, error) {
	return f(ctx, url)
}

// Element is a simulated media element
type Element struct {
	prober      Prober
	tick        time.Duration
	bufferDelay time.Duration
	playPolicy  func() error

	emitter backend.Emitter
	wg      sync.WaitGroup

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	src     string
	info    backend.MediaInfo
	ready   backend.ReadyState
	paused  bool
	ended   bool
	current float64
	edge    float64
	volume  float64
	muted   bool
	closed  bool
}

// ElementOption configures an Element
type ElementOption func(*Element)

// WithProber sets the progressive source prober
func WithProber(p Prober) ElementOption {
	return func(e *Element) {
		e.prober = p
	}
}

// WithTickInterval sets how often the playhead advances and timeupdate fires
func WithTickInterval(d time.Duration) ElementOption {
	return func(e *Element) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithBufferDelay sets how long after first data the element reports enough data
func WithBufferDelay(d time.Duration) ElementOption {
	return func(e *Element) {
		if d >= 0 {
			e.bufferDelay = d
		}
	}
}

// WithPlayPolicy installs a check run on every play request; a non-nil error rejects it
func WithPlayPolicy(fn func() error) ElementOption {
	return func(e *Element) {
		e.playPolicy = fn
	}
}

// NewElement creates an idle element
func NewElement(opts ...ElementOption) *Element {
	e := &Element{
		prober:      NewHTTPProber(nil, 0),
		tick:        defaultTickInterval,
		bufferDelay: defaultBufferDelay,
		paused:      true,
		volume:      defaultVolume,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSrc assigns a progressive source and probes it in the background
func (e *Element) SetSrc(url string) {
	ctx, gen, ok := e.begin(url, backend.MediaInfo{})
	if !ok {
		e.emitter.Emit(backend.Event{Type: backend.EventError, Err: errElementClosed})
		return
	}
	go func() {
		defer e.wg.Done()

		info, err := e.prober.Probe(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			le, ok := backend.AsLoadError(err)
			if !ok {
				le = backend.NewLoadError(backend.CodeMediaNetwork, err.Error(), err)
			}
			e.fail(gen, le)
			return
		}
		e.run(ctx, gen, info)
	}()
}

// Attach binds a stream whose manifest the engine already resolved
func (e *Element) Attach(url string, info backend.MediaInfo) {
	ctx, gen, ok := e.begin(url, info)
	if !ok {
		e.emitter.Emit(backend.Event{Type: backend.EventError, Err: errElementClosed})
		return
	}
	go func() {
		defer e.wg.Done()
		e.run(ctx, gen, info)
	}()
}

// begin resets playback state for a new source and returns the source's context.
// On success the caller must start exactly one goroutine that calls e.wg.Done.
func (e *Element) begin(url string, info backend.MediaInfo) (context.Context, uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, 0, false
	}
	e.resetLocked()
	e.src = url
	e.info = info

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	// Registered under the lock so Close never waits on a goroutine it cannot see
	e.wg.Add(1)
	return ctx, e.gen, true
}

// resetLocked invalidates the current source; callers hold e.mu
func (e *Element) resetLocked() {
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.src = ""
	e.info = backend.MediaInfo{}
	e.ready = backend.HaveNothing
	e.paused = true
	e.ended = false
	e.current = 0
	e.edge = 0
}

func (e *Element) fail(gen uint64, le *backend.LoadError) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	src := e.src
	e.mu.Unlock()

	logger.Log.Debug().
		Str("url", src).
		Int("code", le.Code).
		Msg("Media element source failed")
	e.emitter.Emit(backend.Event{Type: backend.EventError, Err: le})
}

// run drives readiness and the playhead for one source generation
func (e *Element) run(ctx context.Context, gen uint64, info backend.MediaInfo) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.info = info
	if info.Live {
		e.edge = info.Window
		e.current = math.Max(0, e.edge-info.Delay)
	}
	e.ready = backend.HaveMetadata
	snap := e.eventLocked(backend.EventDurationChange)
	e.mu.Unlock()
	e.emitter.Emit(snap)

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.ready = backend.HaveCurrentData
	snap = e.eventLocked(backend.EventLoadedData)
	e.mu.Unlock()
	e.emitter.Emit(snap)

	if e.bufferDelay > 0 {
		timer := time.NewTimer(e.bufferDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.ready = backend.HaveEnoughData
	e.mu.Unlock()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if !e.advance(gen, dt) {
				return
			}
		}
	}
}

// advance moves the playhead by dt seconds and emits the resulting events
func (e *Element) advance(gen uint64, dt float64) bool {
	var events []backend.Event

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return false
	}
	if e.info.Live {
		e.edge += dt
	}
	if !e.paused {
		e.current += dt
		if e.info.Live && e.current > e.edge {
			e.current = e.edge
		}
		if !e.info.Live && e.info.Duration > 0 && e.current >= e.info.Duration {
			e.current = e.info.Duration
			e.paused = true
			e.ended = true
			events = append(events,
				e.eventLocked(backend.EventTimeUpdate),
				e.eventLocked(backend.EventPause),
				e.eventLocked(backend.EventEnded))
		} else {
			events = append(events, e.eventLocked(backend.EventTimeUpdate))
		}
	}
	e.mu.Unlock()

	for _, ev := range events {
		e.emitter.Emit(ev)
	}
	return true
}

func (e *Element) eventLocked(t backend.EventType) backend.Event {
	return backend.Event{Type: t, Time: e.current, Duration: e.info.Duration}
}

// Detach removes the source and resets playback state
func (e *Element) Detach() {
	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
}

// Close detaches and waits for background work to stop
func (e *Element) Close() {
	e.mu.Lock()
	e.closed = true
	e.resetLocked()
	e.mu.Unlock()

	e.wg.Wait()
	e.emitter.Reset()
}

// Src returns the current source URL
func (e *Element) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// Play starts the playhead. It fails when no source is attached or the play policy refuses.
func (e *Element) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.playPolicy != nil {
		if err := e.playPolicy(); err != nil {
			return fmt.Errorf("%w: %w", backend.ErrPlayRejected, err)
		}
	}

	e.mu.Lock()
	if e.src == "" {
		e.mu.Unlock()
		return fmt.Errorf("%w: %w", backend.ErrPlayRejected, backend.ErrNoSource)
	}
	if !e.paused {
		e.mu.Unlock()
		return nil
	}
	if e.ended {
		e.current = 0
		e.ended = false
	}
	e.paused = false
	ev := e.eventLocked(backend.EventPlay)
	e.mu.Unlock()

	e.emitter.Emit(ev)
	return nil
}

// Pause stops the playhead
func (e *Element) Pause() {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = true
	ev := e.eventLocked(backend.EventPause)
	e.mu.Unlock()

	e.emitter.Emit(ev)
}

// Paused reports whether the playhead is stopped
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// CurrentTime returns the playhead position in seconds
func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// SetCurrentTime seeks, clamping into the seekable range
func (e *Element) SetCurrentTime(t float64) {
	e.mu.Lock()
	if e.src == "" {
		e.mu.Unlock()
		return
	}
	r := e.seekableLocked()
	if t < r.Start {
		t = r.Start
	}
	if !r.Empty() && t > r.End {
		t = r.End
	}
	e.current = t
	e.ended = false
	ev := e.eventLocked(backend.EventTimeUpdate)
	e.mu.Unlock()

	e.emitter.Emit(ev)
}

// Duration returns the media duration, 0 when unknown or live
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info.Duration
}

// Seekable returns the seekable window
func (e *Element) Seekable() backend.Range {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seekableLocked()
}

func (e *Element) seekableLocked() backend.Range {
	if e.info.Live {
		return backend.Range{Start: math.Max(0, e.edge-e.info.Window), End: e.edge}
	}
	return backend.Range{Start: 0, End: e.info.Duration}
}

// ReadyState returns the readiness level
func (e *Element) ReadyState() backend.ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// SetVolume sets the volume, clamped to [0, 1]
func (e *Element) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = math.Min(1, math.Max(0, v))
}

// Volume returns the current volume
func (e *Element) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetMuted mutes or unmutes
func (e *Element) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
}

// Muted reports whether the element is muted
func (e *Element) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// Subscribe registers a listener for element events
func (e *Element) Subscribe(l backend.Listener) backend.Disposer {
	return e.emitter.Subscribe(l)
}
