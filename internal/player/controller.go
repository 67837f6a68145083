package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stwalsh4118/livetv/internal/backend"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/config"
	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/metrics"
	"github.com/stwalsh4118/livetv/internal/models"
	"github.com/stwalsh4118/livetv/internal/resolver"
)

const teardownTimeout = 5 * time.Second

// BackendFactory builds backends bound to the video surface
type BackendFactory interface {
	New(ctx context.Context, kind backend.Kind) (backend.Backend, error)
}

// ErrorInfo is the content of the user-visible error slot
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Snapshot is the observable state of the controller
type Snapshot struct {
	State       State         `json:"state"`
	Switching   bool          `json:"switching"`
	Event       *models.Event `json:"event,omitempty"`
	EventIndex  int           `json:"event_index"`
	SessionID   string        `json:"session_id,omitempty"`
	URL         string        `json:"url,omitempty"`
	Kind        string        `json:"kind,omitempty"`
	NoSource    bool          `json:"no_source"`
	Live        bool          `json:"live"`
	Paused      bool          `json:"paused"`
	CurrentTime float64       `json:"current_time"`
	Duration    float64       `json:"duration"`
	Seekable    backend.Range `json:"seekable"`
	Volume      float64       `json:"volume"`
	Muted       bool          `json:"muted"`
	Error       *ErrorInfo    `json:"error,omitempty"`
}

// switchOptions describe why and how an event switch happens
type switchOptions struct {
	reason string
	// fromGen drops the switch when another transition already replaced that session
	fromGen uint64
	// forceStart seeks the new event to 0 once loaded
	forceStart bool
	// guard holds the switching flag for the guard window after the switch
	guard bool
}

// Controller owns the current event and its playback session.
// Transitions are serialized; backend callbacks are filtered by session generation.
type Controller struct {
	cfg      config.PlayerConfig
	factory  BackendFactory
	resolver *resolver.Resolver
	metrics  *metrics.Metrics

	sem    chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	closed         bool
	catalog        *catalog.Catalog
	session        *Session
	gen            uint64
	state          State
	switching      bool
	waiting        int
	errSlot        *PlayerError
	displayTime    float64
	duration       float64
	seekable       backend.Range
	volume         float64
	muted          bool
	reconciling    bool
	pendingSeek    float64
	lastTimeUpdate time.Time
	guardTimer     *time.Timer
	seekTimer      *time.Timer
	settleTimer    *time.Timer

	watchMu    sync.Mutex
	nextWatch  int
	onActivate map[int]func(index int)
}

// Option configures a Controller
type Option func(*Controller)

// WithMetrics records transitions into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithCatalog installs an initial lineup
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *Controller) {
		c.catalog = cat
	}
}

// NewController creates an idle controller
func NewController(cfg config.PlayerConfig, factory BackendFactory, res *resolver.Resolver, opts ...Option) *Controller {
	if res == nil {
		res = resolver.New(cfg.FallbackURL)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:        cfg,
		factory:    factory,
		resolver:   res,
		sem:        make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		state:      StateIdle,
		volume:     1,
		onActivate: make(map[int]func(int)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	return c
}

// LoadCatalog fetches the lineup from p, installs it and selects the initial event
// when nothing is playing yet. Failures fill the error slot without retry.
func (c *Controller) LoadCatalog(ctx context.Context, p catalog.Provider) error {
	cat, err := catalog.Load(ctx, p)
	if err != nil {
		perr := NewPlayerError(ErrorTypeCatalogLoad, fmt.Sprintf(msgCatalogLoad, err.Error()), err)
		c.mu.Lock()
		c.setErrorLocked(perr)
		c.mu.Unlock()
		logger.Log.Error().Err(err).Msg("Failed to load program data")
		return perr
	}

	c.SetCatalog(cat)

	c.mu.Lock()
	hasSession := c.session != nil
	c.mu.Unlock()
	if hasSession {
		return nil
	}

	initial := cat.InitialEvent()
	if initial == nil {
		logger.Log.Info().Msg("Lineup has no live or past events to play")
		return nil
	}
	return c.switchTo(ctx, *initial, switchOptions{reason: metrics.ReasonSelect})
}

// SetCatalog replaces the lineup. The playing event keeps playing even when it left the lineup.
func (c *Controller) SetCatalog(cat *catalog.Catalog) {
	c.mu.Lock()
	c.catalog = cat
	index := -1
	var current string
	if c.session != nil {
		current = c.session.Event.ID
		index = cat.IndexOf(current)
	}
	c.mu.Unlock()

	logger.Log.Info().
		Int("events", cat.Len()).
		Str("event_id", current).
		Msg("Lineup updated")
	if current != "" && index < 0 {
		logger.Log.Warn().Str("event_id", current).Msg("Playing event is no longer in the lineup")
	}
	c.notifyActivate(index)
}

// Catalog returns the current lineup, nil before one was loaded
func (c *Controller) Catalog() *catalog.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// SelectEvent switches playback to event. Upcoming events are refused without a state change.
func (c *Controller) SelectEvent(ctx context.Context, event models.Event) error {
	if event.IsUpcoming() {
		return fmt.Errorf("%w: %s", ErrEventUpcoming, event.Title)
	}
	return c.switchTo(ctx, event, switchOptions{reason: metrics.ReasonSelect})
}

// SelectFromSchedule switches to the lineup event id; only live and ended events are accepted
func (c *Controller) SelectFromSchedule(ctx context.Context, id string) error {
	c.mu.Lock()
	cat := c.catalog
	c.mu.Unlock()
	if cat == nil {
		return ErrNoCatalog
	}

	event := cat.Get(id)
	if event == nil {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if event.IsUpcoming() {
		return fmt.Errorf("%w: %s", ErrEventUpcoming, event.Title)
	}
	if !event.IsSelectable() {
		return fmt.Errorf("%w: %s", ErrNotSelectable, event.Title)
	}
	return c.switchTo(ctx, *event, switchOptions{reason: metrics.ReasonSchedule})
}

// SelectNext switches to the adjacent next event
func (c *Controller) SelectNext(ctx context.Context) error {
	return c.selectAdjacent(ctx, 1)
}

// SelectPrevious switches to the adjacent previous event
func (c *Controller) SelectPrevious(ctx context.Context) error {
	return c.selectAdjacent(ctx, -1)
}

func (c *Controller) selectAdjacent(ctx context.Context, step int) error {
	c.mu.Lock()
	cat := c.catalog
	s := c.session
	c.mu.Unlock()
	if cat == nil {
		return ErrNoCatalog
	}
	if s == nil {
		return ErrNoSession
	}

	var target *models.Event
	if step > 0 {
		target = cat.Next(s.Event.ID)
	} else {
		target = cat.Previous(s.Event.ID)
	}
	if target == nil {
		return ErrNoAdjacentEvent
	}
	if target.IsUpcoming() {
		return fmt.Errorf("%w: %s", ErrEventUpcoming, target.Title)
	}
	return c.switchTo(ctx, *target, switchOptions{reason: metrics.ReasonNavigate})
}

// switchTo runs one event transition: teardown, resolve, build, load with fallback and auto-play
func (c *Controller) switchTo(ctx context.Context, event models.Event, opts switchOptions) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if opts.fromGen != 0 && opts.fromGen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	// Best-effort cancellation of whatever the current transition is waiting on
	if c.session != nil {
		c.session.cancel()
	}
	c.waiting++
	c.mu.Unlock()

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		c.mu.Lock()
		c.waiting--
		c.mu.Unlock()
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	c.mu.Lock()
	c.waiting--
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if opts.fromGen != 0 && opts.fromGen != c.gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.gen++
	gen := c.gen
	prev := c.session
	s := newSession(c.ctx, event, gen)
	c.session = s
	c.switching = true
	c.stopTimersLocked()
	c.reconciling = false
	c.displayTime = 0
	c.duration = 0
	c.seekable = backend.Range{}
	c.lastTimeUpdate = time.Time{}
	c.setStateLocked(StateLoading)
	index := -1
	if c.catalog != nil {
		index = c.catalog.IndexOf(event.ID)
	}
	volume, muted := c.volume, c.muted
	c.mu.Unlock()

	c.metrics.IncSwitch(opts.reason)
	c.notifyActivate(index)

	logger.Log.Info().
		Str("session_id", s.ID).
		Str("event_id", event.ID).
		Str("status", event.Status.String()).
		Str("reason", opts.reason).
		Msg("Switching event")

	if prev != nil {
		tctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		prev.teardown(tctx)
		cancel()
	}

	err := c.load(s, volume, muted)
	if err != nil {
		superseded := s.ctx.Err() != nil
		c.mu.Lock()
		// A cancelled load that no queued selection replaces still has to leave the loading state
		if gen == c.gen && !c.closed && (!superseded || c.waiting == 0) {
			perr, ok := AsPlayerError(err)
			if !ok {
				perr = NewPlayerError(ErrorTypeLoad, fmt.Sprintf(msgPlayback, err.Error()), err)
			}
			c.setErrorLocked(perr)
			c.switching = false
		}
		c.mu.Unlock()
		if superseded {
			return ErrSuperseded
		}
		return err
	}

	if opts.forceStart {
		if b := s.Backend(); b != nil {
			b.SetCurrentTime(0)
		}
	}
	c.commitLoaded(s, opts.forceStart)

	if c.cfg.AutoPlay {
		c.autoPlay(s)
	}

	c.mu.Lock()
	if gen == c.gen {
		if opts.guard && c.cfg.SwitchGuardWindow > 0 {
			c.guardTimer = time.AfterFunc(c.cfg.SwitchGuardWindow, func() {
				c.mu.Lock()
				defer c.mu.Unlock()
				if gen == c.gen {
					c.switching = false
				}
			})
		} else {
			c.switching = false
		}
	}
	c.mu.Unlock()
	return nil
}

// load resolves the session's event, builds a backend and loads it, retrying once with the fallback
func (c *Controller) load(s *Session, volume float64, muted bool) error {
	resolved := c.resolver.Resolve(&s.Event)
	s.Resolved = resolved
	if resolved.NoSource {
		logger.Log.Warn().
			Str("event_id", s.Event.ID).
			Str("url", resolved.URL).
			Msg("Event has no streaming URLs, using fallback stream")
	}

	start := time.Now()
	kind := backend.DetectKind(resolved.URL)
	b, err := c.build(s, kind, volume, muted)
	if err != nil {
		return err
	}

	err = b.Load(s.ctx, resolved.URL)
	if err == nil {
		s.setURL(resolved.URL)
		c.metrics.ObserveLoad(kind.String(), time.Since(start))
		logger.Log.Info().
			Str("session_id", s.ID).
			Str("event_id", s.Event.ID).
			Str("kind", kind.String()).
			Str("url", resolved.URL).
			Msg("Stream loaded")
		return nil
	}
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}

	logger.Log.Warn().
		Err(err).
		Str("session_id", s.ID).
		Str("event_id", s.Event.ID).
		Str("url", resolved.URL).
		Msg("Stream failed to load, trying fallback")

	fallback := c.resolver.Fallback()
	if c.resolver.IsFallback(resolved.URL) {
		c.metrics.IncFallback(metrics.OutcomeFailed)
		return NewPlayerError(ErrorTypeLoad, fmt.Sprintf(msgFallbackFailed, loadMessage(err)), err)
	}

	fallbackKind := backend.DetectKind(fallback)
	if fallbackKind != kind {
		tctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		if derr := s.unbind(tctx); derr != nil {
			logger.Log.Warn().Err(derr).Str("session_id", s.ID).Msg("Failed to destroy backend before fallback")
		}
		cancel()
		if b, err = c.build(s, fallbackKind, volume, muted); err != nil {
			c.metrics.IncFallback(metrics.OutcomeFailed)
			return err
		}
	}

	if ferr := b.Load(s.ctx, fallback); ferr != nil {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		c.metrics.IncFallback(metrics.OutcomeFailed)
		logger.Log.Error().
			Err(ferr).
			Str("session_id", s.ID).
			Str("url", fallback).
			Msg("Fallback stream failed to load")
		return NewPlayerError(ErrorTypeLoad, fmt.Sprintf(msgFallbackFailed, loadMessage(ferr)), ferr)
	}

	s.setURL(fallback)
	c.metrics.IncFallback(metrics.OutcomeRecovered)
	c.metrics.ObserveLoad(fallbackKind.String(), time.Since(start))
	logger.Log.Info().
		Str("session_id", s.ID).
		Str("kind", fallbackKind.String()).
		Str("url", fallback).
		Msg("Fallback stream loaded")
	return nil
}

// build creates a backend of kind and subscribes the controller to it
func (c *Controller) build(s *Session, kind backend.Kind, volume float64, muted bool) (backend.Backend, error) {
	b, err := c.factory.New(s.ctx, kind)
	if err != nil {
		if s.ctx.Err() != nil {
			return nil, s.ctx.Err()
		}
		if errors.Is(err, backend.ErrBackendUnavailable) {
			return nil, NewPlayerError(ErrorTypeBackendUnavailable, msgEngineUnavailable, err)
		}
		return nil, NewPlayerError(ErrorTypeLoad, fmt.Sprintf(msgFallbackFailed, err.Error()), err)
	}

	b.SetVolume(volume)
	b.SetMuted(muted)

	gen := s.gen
	dispose := b.Subscribe(func(ev backend.Event) {
		c.handleBackendEvent(gen, ev)
	})
	s.bind(b, dispose)
	return b, nil
}

// commitLoaded clears the error slot and publishes the loaded stream's timing
func (c *Controller) commitLoaded(s *Session, forceStart bool) {
	b := s.Backend()
	if b == nil {
		return
	}
	current, duration, seekable := b.CurrentTime(), b.Duration(), b.Seekable()
	if forceStart {
		current = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s.gen != c.gen {
		return
	}
	c.errSlot = nil
	c.displayTime = current
	c.duration = duration
	c.seekable = seekable
	c.setStateLocked(StatePaused)
}

// autoPlay starts playback after a load: live immediately, ended once the backend reports enough data
func (c *Controller) autoPlay(s *Session) {
	b := s.Backend()
	if b == nil {
		return
	}

	if s.Live() {
		if err := b.Play(s.ctx); err != nil && s.ctx.Err() == nil {
			c.metrics.IncPlayRejected()
			logger.Log.Warn().
				Err(err).
				Str("session_id", s.ID).
				Msg("Auto-play rejected")
		}
		return
	}

	if err := c.waitReady(s.ctx, b); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		perr := NewPlayerError(ErrorTypeReadyTimeout, msgReadyTimeout, err)
		c.mu.Lock()
		if s.gen == c.gen {
			c.setErrorLocked(perr)
		}
		c.mu.Unlock()
		logger.Log.Warn().
			Str("session_id", s.ID).
			Int("attempts", c.cfg.ReadyPollAttempts).
			Msg("Stream did not become ready for auto-play")
		return
	}

	if err := b.Play(s.ctx); err != nil && s.ctx.Err() == nil {
		c.metrics.IncPlayRejected()
		logger.Log.Debug().Err(err).Str("session_id", s.ID).Msg("Auto-play rejected after readiness poll")
	}
}

// waitReady polls the backend's ready state at a fixed interval for a bounded number of attempts
func (c *Controller) waitReady(ctx context.Context, b backend.Backend) error {
	attempts := c.cfg.ReadyPollAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := c.cfg.ReadyPollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		if b.ReadyState() >= backend.HaveEnoughData {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if b.ReadyState() >= backend.HaveEnoughData {
		return nil
	}
	return ErrReadyTimeout
}

// handleBackendEvent runs on backend goroutines. It must not call back into the backend
// synchronously; ended and error are handed to their own goroutine.
func (c *Controller) handleBackendEvent(gen uint64, ev backend.Event) {
	var seekable backend.Range
	if ev.Type == backend.EventTimeUpdate {
		if b := c.backendFor(gen); b != nil {
			seekable = b.Seekable()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen || c.session == nil {
		return
	}

	switch ev.Type {
	case backend.EventPlay:
		if c.state != StateError && c.state != StateLoading {
			c.setStateLocked(StatePlaying)
		}

	case backend.EventPause:
		if c.state != StateError && c.state != StateLoading {
			c.setStateLocked(StatePaused)
		}

	case backend.EventDurationChange:
		c.duration = ev.Duration

	case backend.EventTimeUpdate:
		if ev.Duration > 0 {
			c.duration = ev.Duration
		}
		if c.session.Live() {
			c.seekable = seekable
		}
		if c.reconciling {
			return
		}
		now := time.Now()
		if !c.lastTimeUpdate.IsZero() && now.Sub(c.lastTimeUpdate) < c.cfg.TimeUpdateThrottle {
			return
		}
		c.lastTimeUpdate = now
		c.displayTime = ev.Time

	case backend.EventEnded:
		if c.state == StateLoading {
			return
		}
		c.goLocked(func() {
			if err := c.onEnded(c.ctx, gen); err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrClosed) {
				logger.Log.Warn().Err(err).Msg("Automatic switch after ended failed")
			}
		})

	case backend.EventError:
		// Load failures are handled by the transition that issued the load
		if c.state == StateLoading {
			return
		}
		le := ev.Err
		c.goLocked(func() {
			c.onBackendError(gen, le)
		})
	}
}

// goLocked runs fn on a tracked goroutine; callers hold c.mu and checked c.closed
func (c *Controller) goLocked(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *Controller) backendFor(gen uint64) backend.Backend {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil || s.gen != gen {
		return nil
	}
	return s.Backend()
}

// OnEnded advances to the adjacent next event when the current one is not live
// and no switch is in progress
func (c *Controller) OnEnded(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return c.onEnded(ctx, gen)
}

func (c *Controller) onEnded(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if c.switching || c.session == nil || gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	current := c.session.Event
	cat := c.catalog
	c.mu.Unlock()

	if current.IsLive() || cat == nil {
		return nil
	}

	next := cat.NextPlayable(current.ID)
	if next == nil {
		logger.Log.Info().Str("event_id", current.ID).Msg("Playback reached the end of the lineup")
		return nil
	}

	logger.Log.Info().
		Str("event_id", current.ID).
		Str("next_event_id", next.ID).
		Msg("Event ended, advancing to next")
	return c.switchTo(ctx, *next, switchOptions{reason: metrics.ReasonEnded, fromGen: gen, guard: true})
}

// SeekRequest moves playback to t seconds after the seek debounce; only the last
// target is applied. Near the edges of a non-live event the debounced seek switches
// to the adjacent event instead. Seeks during a switch are ignored.
func (c *Controller) SeekRequest(ctx context.Context, t float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if s == nil || s.Backend() == nil {
		return ErrNoSession
	}
	if c.switching {
		logger.Log.Debug().Float64("target", t).Msg("Seek during event switch ignored")
		return nil
	}
	c.scheduleSeekLocked(c.gen, t)
	return nil
}

// scheduleSeekLocked shows t immediately and debounces the backend seek; the last target wins
func (c *Controller) scheduleSeekLocked(gen uint64, t float64) {
	c.displayTime = t
	c.pendingSeek = t
	c.reconciling = true
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	if c.seekTimer != nil {
		c.seekTimer.Stop()
	}
	c.seekTimer = time.AfterFunc(c.cfg.SeekDebounce, func() {
		c.applySeek(gen)
	})
}

// applySeek runs when the debounce fires, against the duration, seekable range and
// lineup as they are at that moment
func (c *Controller) applySeek(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.session == nil || c.switching {
		c.mu.Unlock()
		return
	}
	t := c.pendingSeek
	s := c.session

	apply := true
	if s.Live() {
		if seekable := c.seekable; !seekable.Contains(t) {
			apply = false
			logger.Log.Debug().
				Float64("target", t).
				Float64("start", seekable.Start).
				Float64("end", seekable.End).
				Msg("Live seek outside seekable range ignored")
		}
	} else if target, forceStart := c.edgeTargetLocked(s.Event.ID, t); target != nil {
		c.reconciling = false
		event := *target
		c.goLocked(func() {
			logger.Log.Info().
				Str("event_id", s.Event.ID).
				Str("target_event_id", event.ID).
				Float64("seek", t).
				Msg("Seek reached event edge, switching")
			err := c.switchTo(c.ctx, event, switchOptions{
				reason:     metrics.ReasonSeekEdge,
				fromGen:    gen,
				forceStart: forceStart,
				guard:      true,
			})
			if err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrClosed) {
				logger.Log.Warn().Err(err).Msg("Edge switch after seek failed")
			}
		})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if b := s.Backend(); apply && b != nil {
		b.SetCurrentTime(t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return
	}
	c.settleTimer = time.AfterFunc(c.cfg.ReconcileSettle, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen == c.gen {
			c.reconciling = false
		}
	})
}

// edgeTargetLocked returns the adjacent event a seek to t lands on, if any.
// forceStart is set when moving forward.
func (c *Controller) edgeTargetLocked(id string, t float64) (*models.Event, bool) {
	if c.catalog == nil {
		return nil, false
	}
	threshold := c.cfg.EdgeThreshold
	switch {
	case t <= threshold:
		if prev := c.catalog.PreviousPlayable(id); prev != nil {
			return prev, false
		}
	case c.duration > 0 && t >= c.duration-threshold:
		if next := c.catalog.NextPlayable(id); next != nil {
			return next, true
		}
	}
	return nil, false
}

// OnBackendError handles a runtime error reported by the current backend
func (c *Controller) OnBackendError(le *backend.LoadError) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.onBackendError(gen, le)
}

func (c *Controller) onBackendError(gen uint64, le *backend.LoadError) {
	c.mu.Lock()
	s := c.session
	if c.closed || s == nil || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	b := s.Backend()
	if le == nil {
		le = backend.NewLoadError(backend.CodeMediaAborted, "unknown playback error", nil)
	}

	if b != nil && b.Kind() == backend.KindAdaptive && c.isNetworkCode(le.Code) {
		c.recoverNetwork(s, b, le)
		return
	}

	logger.Log.Error().
		Str("session_id", s.ID).
		Int("code", le.Code).
		Str("message", le.Message).
		Msg("Playback error")
	c.mu.Lock()
	if gen == c.gen {
		c.setErrorLocked(NewPlayerError(ErrorTypePlayback, fmt.Sprintf(msgPlayback, loadMessage(le)), le))
	}
	c.mu.Unlock()
}

// recoverNetwork reloads the fallback stream on the same adaptive instance, once per session
func (c *Controller) recoverNetwork(s *Session, b backend.Backend, le *backend.LoadError) {
	fail := func(cause error) {
		c.mu.Lock()
		if s.gen == c.gen {
			c.setErrorLocked(NewPlayerError(ErrorTypeNetworkPlayback, fmt.Sprintf(msgNetworkFailed, le.Code), cause))
		}
		c.mu.Unlock()
	}

	if !s.claimNetworkFallback() {
		logger.Log.Error().
			Str("session_id", s.ID).
			Int("code", le.Code).
			Msg("Network error after fallback reload, giving up")
		fail(le)
		return
	}

	select {
	case c.sem <- struct{}{}:
	case <-s.ctx.Done():
		return
	}
	defer func() { <-c.sem }()

	fallback := c.resolver.Fallback()
	logger.Log.Warn().
		Str("session_id", s.ID).
		Int("code", le.Code).
		Str("url", fallback).
		Msg("Network error, reloading fallback stream")

	if err := b.Load(s.ctx, fallback); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		c.metrics.IncFallback(metrics.OutcomeFailed)
		fail(err)
		return
	}
	s.setURL(fallback)
	c.metrics.IncFallback(metrics.OutcomeRecovered)

	c.commitLoaded(s, false)
	if err := b.Play(s.ctx); err != nil && s.ctx.Err() == nil {
		c.metrics.IncPlayRejected()
		logger.Log.Warn().Err(err).Str("session_id", s.ID).Msg("Play after fallback reload rejected")
	}
}

func (c *Controller) isNetworkCode(code int) bool {
	return code >= c.cfg.NetworkErrorCodeMin && code <= c.cfg.NetworkErrorCodeMax
}

// DismissError clears the error slot. The state falls back to the backend's state, or idle.
// Nothing is retried.
func (c *Controller) DismissError() {
	c.mu.Lock()
	s := c.session
	c.errSlot = nil
	c.mu.Unlock()

	next := StateIdle
	if s != nil {
		if b := s.Backend(); b != nil {
			next = StatePaused
			if !b.Paused() {
				next = StatePlaying
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errSlot != nil || c.state != StateError {
		return
	}
	c.setStateLocked(next)
}

// Play resumes playback. A refusal fills the error slot.
func (c *Controller) Play(ctx context.Context) error {
	s, b := c.current()
	if b == nil {
		return ErrNoSession
	}
	if err := b.Play(ctx); err != nil {
		c.metrics.IncPlayRejected()
		perr := NewPlayerError(ErrorTypePlayRejected, msgPlayFailed, err)
		c.mu.Lock()
		if s.gen == c.gen {
			c.setErrorLocked(perr)
		}
		c.mu.Unlock()
		logger.Log.Warn().Err(err).Str("session_id", s.ID).Msg("Play request failed")
		return perr
	}
	return nil
}

// Pause pauses playback
func (c *Controller) Pause() error {
	_, b := c.current()
	if b == nil {
		return ErrNoSession
	}
	return b.Pause()
}

// Toggle plays when paused and pauses when playing
func (c *Controller) Toggle(ctx context.Context) error {
	_, b := c.current()
	if b == nil {
		return ErrNoSession
	}
	if b.Paused() {
		return c.Play(ctx)
	}
	return c.Pause()
}

// SetVolume sets the volume, clamped to [0, 1]; it carries over to later sessions
func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()

	if _, b := c.current(); b != nil {
		b.SetVolume(v)
	}
}

// SetMuted mutes or unmutes; it carries over to later sessions
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()

	if _, b := c.current(); b != nil {
		b.SetMuted(muted)
	}
}

func (c *Controller) current() (*Session, backend.Backend) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	return s, s.Backend()
}

// Snapshot returns the observable state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:       c.state,
		Switching:   c.switching,
		EventIndex:  -1,
		Paused:      c.state != StatePlaying,
		CurrentTime: c.displayTime,
		Duration:    c.duration,
		Seekable:    c.seekable,
		Volume:      c.volume,
		Muted:       c.muted,
	}
	if c.errSlot != nil {
		snap.Error = &ErrorInfo{Type: c.errSlot.Type.String(), Message: c.errSlot.Message}
	}
	if s := c.session; s != nil {
		event := s.Event
		snap.Event = &event
		snap.SessionID = s.ID
		snap.URL = s.URL()
		snap.NoSource = s.Resolved.NoSource
		snap.Live = s.Live()
		if b := s.Backend(); b != nil {
			snap.Kind = b.Kind().String()
		}
		if c.catalog != nil {
			snap.EventIndex = c.catalog.IndexOf(event.ID)
		}
	}
	return snap
}

// ActiveIndex returns the lineup position of the current event, -1 when none
func (c *Controller) ActiveIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.catalog == nil {
		return -1
	}
	return c.catalog.IndexOf(c.session.Event.ID)
}

// OnActiveChange registers fn to be called with the new lineup index whenever the
// current event or the lineup changes
func (c *Controller) OnActiveChange(fn func(index int)) func() {
	c.watchMu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.onActivate[id] = fn
	c.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.watchMu.Lock()
			delete(c.onActivate, id)
			c.watchMu.Unlock()
		})
	}
}

func (c *Controller) notifyActivate(index int) {
	c.watchMu.Lock()
	fns := make([]func(int), 0, len(c.onActivate))
	for _, fn := range c.onActivate {
		fns = append(fns, fn)
	}
	c.watchMu.Unlock()

	for _, fn := range fns {
		fn(index)
	}
}

// Close cancels timers and in-flight work, destroys the backend and waits for callbacks to finish
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopTimersLocked()
	c.cancel()
	c.mu.Unlock()

	// Wait for the in-flight transition, which observes the cancelled context
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s != nil {
		s.teardown(ctx)
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Info().Msg("Playback controller closed")
	return nil
}

func (c *Controller) stopTimersLocked() {
	for _, t := range []*time.Timer{c.guardTimer, c.seekTimer, c.settleTimer} {
		if t != nil {
			t.Stop()
		}
	}
	c.guardTimer, c.seekTimer, c.settleTimer = nil, nil, nil
}

// setStateLocked applies a valid transition; callers hold c.mu
func (c *Controller) setStateLocked(next State) {
	if c.state == next {
		return
	}
	if !c.state.CanTransitionTo(next) {
		logger.Log.Debug().
			Str("from", c.state.String()).
			Str("to", next.String()).
			Msg("Ignoring invalid state transition")
		return
	}
	c.state = next
	c.metrics.SetState(next.String())
}

// setErrorLocked fills the single error slot; the last error wins
func (c *Controller) setErrorLocked(perr *PlayerError) {
	c.errSlot = perr
	c.metrics.IncError(perr.Type.String())
	c.setStateLocked(StateError)
}

// loadMessage extracts the human message of a load failure
func loadMessage(err error) string {
	if le, ok := backend.AsLoadError(err); ok && le.Message != "" {
		return le.Message
	}
	return err.Error()
}
