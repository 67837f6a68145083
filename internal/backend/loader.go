package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stwalsh4118/livetv/internal/logger"
	"golang.org/x/sync/singleflight"
)

const (
	engineLoadKey             = "engine"
	defaultEngineFetchTimeout = 15 * time.Second
)

// ModuleSource is one place the adaptive engine module can be loaded from
type ModuleSource interface {
	Name() string
	Fetch(ctx context.Context) (EngineModule, error)
}

// EngineLoader loads the adaptive engine module once, trying each source in order.
// Concurrent callers share one attempt; the outcome, success or unavailability, is cached.
type EngineLoader struct {
	sources      []ModuleSource
	fetchTimeout time.Duration
	group        singleflight.Group

	mu     sync.RWMutex
	loaded bool
	module EngineModule
	err    error
}

// NewEngineLoader creates a loader trying sources in order (typically local asset, then CDN)
func NewEngineLoader(fetchTimeout time.Duration, sources ...ModuleSource) *EngineLoader {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultEngineFetchTimeout
	}
	return &EngineLoader{sources: sources, fetchTimeout: fetchTimeout}
}

// Load returns the engine module, loading it on first use.
// ctx only bounds the caller's wait; an in-flight fetch is not cancelled by it.
func (l *EngineLoader) Load(ctx context.Context) (EngineModule, error) {
	if module, err, ok := l.cached(); ok {
		return module, err
	}

	ch := l.group.DoChan(engineLoadKey, func() (interface{}, error) {
		if module, err, ok := l.cached(); ok {
			return module, err
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.fetchTimeout)
		defer cancel()

		module, err := l.fetch(fetchCtx)

		l.mu.Lock()
		l.loaded = true
		l.module = module
		l.err = err
		l.mu.Unlock()

		return module, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(EngineModule), nil
	}
}

// Loaded reports whether a load attempt has completed, and its error
func (l *EngineLoader) Loaded() (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded, l.err
}

func (l *EngineLoader) cached() (EngineModule, error, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.module, l.err, l.loaded
}

func (l *EngineLoader) fetch(ctx context.Context) (EngineModule, error) {
	var errs []error
	for _, src := range l.sources {
		start := time.Now()
		module, err := src.Fetch(ctx)
		if err != nil {
			logger.Log.Warn().
				Err(err).
				Str("source", src.Name()).
				Msg("Adaptive engine source failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		if !module.Supported() {
			logger.Log.Warn().
				Str("source", src.Name()).
				Str("engine", module.Name()).
				Msg("Adaptive engine not supported on this surface")
			errs = append(errs, fmt.Errorf("%s: engine %s not supported", src.Name(), module.Name()))
			continue
		}

		logger.Log.Info().
			Str("source", src.Name()).
			Str("engine", module.Name()).
			Str("version", module.Version()).
			Dur("elapsed", time.Since(start)).
			Msg("Adaptive engine loaded")
		return module, nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no engine sources configured"))
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, errors.Join(errs...))
}
