package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stwalsh4118/livetv/internal/logger"
)

// EngineConfig carries the adaptive engine's streaming settings
type EngineConfig struct {
	BufferingGoal     time.Duration
	RebufferingGoal   time.Duration
	PresentationDelay time.Duration
}

// Engine is one adaptive streaming engine instance bound to a media element
type Engine interface {
	// Load fetches and parses the manifest at url and attaches the stream to the element
	Load(ctx context.Context, url string) error
	// OnError subscribes to runtime engine failures
	OnError(fn func(*LoadError)) Disposer
	Destroy(ctx context.Context) error
}

// EngineModule is a loaded adaptive engine implementation
type EngineModule interface {
	Name() string
	Version() string
	// Supported reports whether the engine can run on this element
	Supported() bool
	NewEngine(el MediaElement, cfg EngineConfig) (Engine, error)
}

// Adaptive plays HLS and DASH manifests through an Engine
type Adaptive struct {
	*elementBackend
	engine Engine

	errMu      sync.Mutex
	errDispose Disposer
}

// NewAdaptive binds an adaptive backend to engine and its element
func NewAdaptive(id string, surface *Surface, el MediaElement, engine Engine) *Adaptive {
	a := &Adaptive{
		elementBackend: newElementBackend(KindAdaptive, id, surface, el),
		engine:         engine,
	}
	a.errDispose = engine.OnError(func(le *LoadError) {
		if a.isDestroyed() {
			return
		}
		logger.Log.Warn().
			Str("backend_id", a.id).
			Int("code", le.Code).
			Str("message", le.Message).
			Msg("Adaptive engine runtime error")
		a.emitter.Emit(Event{
			Type:     EventError,
			Time:     a.el.CurrentTime(),
			Duration: a.el.Duration(),
			Err:      le,
		})
	})
	return a
}

// Load hands url to the engine and waits for the element's first data.
// The same instance may be loaded again, which replaces the stream.
func (a *Adaptive) Load(ctx context.Context, url string) error {
	return a.awaitLoaded(ctx, url, func() error {
		if err := a.engine.Load(ctx, url); err != nil {
			if _, ok := AsLoadError(err); ok {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return NewLoadError(CodeManifestInvalid, err.Error(), err)
		}
		return nil
	})
}

// Destroy stops the engine, detaches the element and releases the surface
func (a *Adaptive) Destroy(ctx context.Context) error {
	if !a.teardown() {
		return nil
	}

	a.errMu.Lock()
	dispose := a.errDispose
	a.errDispose = nil
	a.errMu.Unlock()
	if dispose != nil {
		dispose()
	}

	err := a.engine.Destroy(ctx)
	a.releaseSurface()

	logger.Log.Debug().
		Str("backend_id", a.id).
		Err(err).
		Msg("Adaptive backend destroyed")

	if err != nil {
		return fmt.Errorf("failed to destroy engine: %w", err)
	}
	return nil
}
