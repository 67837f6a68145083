package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/stwalsh4118/livetv/internal/backend"
	"github.com/stwalsh4118/livetv/internal/logger"
)

const (
	engineName          = "headless-adaptive"
	engineVersion       = "1.0.0"
	maxManifestBytes    = 4 << 20
	maxVariantRedirects = 3
)

// Module is the headless adaptive engine implementation
type Module struct {
	client   *http.Client
	breakers *hostBreakers
}

// ModuleOption configures a Module
type ModuleOption func(*Module)

// WithBreaker sets how many consecutive transport failures open a host's breaker
// and how long it stays open
func WithBreaker(threshold int, reset time.Duration) ModuleOption {
	return func(m *Module) {
		m.breakers = newHostBreakers(threshold, reset)
	}
}

// NewModule creates an engine module fetching manifests with client
func NewModule(client *http.Client, opts ...ModuleOption) *Module {
	if client == nil {
		client = &http.Client{Timeout: defaultProbeTimeout}
	}
	m := &Module{client: client, breakers: newHostBreakers(0, 0)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the engine name
func (m *Module) Name() string { return engineName }

// Version returns the engine version
func (m *Module) Version() string { return engineVersion }

// Supported always holds for the headless element
func (m *Module) Supported() bool { return true }

// NewEngine creates an engine instance bound to el
func (m *Module) NewEngine(el backend.MediaElement, cfg backend.EngineConfig) (backend.Engine, error) {
	if el == nil {
		return nil, fmt.Errorf("media element cannot be nil")
	}
	return &Engine{client: m.client, breakers: m.breakers, el: el, cfg: cfg}, nil
}

// Engine fetches manifests, attaches the stream to the element and refreshes live manifests
type Engine struct {
	client   *http.Client
	breakers *hostBreakers
	el       backend.MediaElement
	cfg      backend.EngineConfig
	errors   backend.Emitter

	mu        sync.Mutex
	destroyed bool
	stopLive  context.CancelFunc
	wg        sync.WaitGroup
}

// Load fetches and parses url, then attaches the stream to the element
func (e *Engine) Load(ctx context.Context, url string) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return backend.ErrDestroyed
	}
	e.mu.Unlock()

	e.stopRefresh()

	m, resolved, err := e.resolve(ctx, url)
	if err != nil {
		return err
	}
	if m.info.Live {
		m.info.Delay = e.cfg.PresentationDelay.Seconds()
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return backend.ErrDestroyed
	}
	if e.stopLive != nil {
		e.stopLive()
		e.stopLive = nil
	}
	if m.info.Live && m.refresh > 0 {
		liveCtx, cancel := context.WithCancel(context.Background())
		e.stopLive = cancel
		e.wg.Add(1)
		go e.refreshLoop(liveCtx, resolved, m.refresh)
	}
	e.mu.Unlock()

	logger.Log.Debug().
		Str("url", url).
		Bool("live", m.info.Live).
		Float64("duration", m.info.Duration).
		Float64("window", m.info.Window).
		Msg("Manifest loaded")

	e.el.Attach(url, m.info)
	return nil
}

// resolve fetches url and follows HLS master playlists to a media playlist
func (e *Engine) resolve(ctx context.Context, url string) (*manifest, string, error) {
	current := url
	for i := 0; i <= maxVariantRedirects; i++ {
		body, err := e.fetch(ctx, current)
		if err != nil {
			return nil, "", err
		}

		var m *manifest
		if isDASH(current, body) {
			m, err = parseMPD(body)
		} else {
			m, err = parseHLS(current, body)
		}
		if err != nil {
			return nil, "", err
		}
		if m.variant == "" {
			return m, current, nil
		}
		current = m.variant
	}
	return nil, "", backend.NewLoadError(backend.CodeManifestUnsupported, "too many nested playlists", nil)
}

// fetch downloads a manifest, mapping transport failures to network error codes
func (e *Engine) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backend.NewLoadError(backend.CodeManifestInvalid, "invalid manifest url", err)
	}

	host := req.URL.Host
	if !e.breakers.allow(host) {
		logger.Log.Debug().Str("host", host).Msg("Manifest host breaker open")
		return nil, backend.NewLoadError(backend.CodeNetworkFailed,
			fmt.Sprintf("manifest host %s unavailable", host), ErrHostUnavailable)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		e.breakers.failure(host)
		if isTimeout(err) {
			return nil, backend.NewLoadError(backend.CodeNetworkTimeout, "manifest request timed out", err)
		}
		return nil, backend.NewLoadError(backend.CodeNetworkFailed, "manifest request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	e.breakers.success(host)

	if resp.StatusCode != http.StatusOK {
		return nil, backend.NewLoadError(backend.CodeNetworkBadStatus,
			fmt.Sprintf("manifest returned HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, backend.NewLoadError(backend.CodeNetworkFailed, "failed to read manifest", err)
	}
	return body, nil
}

// refreshLoop re-fetches a live manifest and reports failures as runtime errors
func (e *Engine) refreshLoop(ctx context.Context, url string, every time.Duration) {
	defer e.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetchCtx, cancel := context.WithTimeout(ctx, every)
			_, err := e.fetch(fetchCtx, url)
			cancel()
			if err == nil || ctx.Err() != nil {
				continue
			}
			le, ok := backend.AsLoadError(err)
			if !ok {
				le = backend.NewLoadError(backend.CodeNetworkFailed, err.Error(), err)
			}
			e.errors.Emit(backend.Event{Type: backend.EventError, Err: le})
		}
	}
}

func (e *Engine) stopRefresh() {
	e.mu.Lock()
	stop := e.stopLive
	e.stopLive = nil
	e.mu.Unlock()

	if stop != nil {
		stop()
		e.wg.Wait()
	}
}

// OnError subscribes to runtime failures
func (e *Engine) OnError(fn func(*backend.LoadError)) backend.Disposer {
	return e.errors.Subscribe(func(ev backend.Event) {
		if ev.Err != nil {
			fn(ev.Err)
		}
	})
}

// Destroy stops live refresh; the caller detaches the element
func (e *Engine) Destroy(ctx context.Context) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return nil
	}
	e.destroyed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.stopRefresh()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.errors.Reset()
	return nil
}
