package backend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/livetv/internal/logger"
)

// Factory builds backends bound to the shared surface
type Factory struct {
	surface *Surface
	loader  *EngineLoader
	cfg     EngineConfig
}

// NewFactory creates a backend factory
func NewFactory(surface *Surface, loader *EngineLoader, cfg EngineConfig) *Factory {
	return &Factory{surface: surface, loader: loader, cfg: cfg}
}

// New builds a backend of kind. The surface must be free; the adaptive engine is loaded lazily.
func (f *Factory) New(ctx context.Context, kind Kind) (Backend, error) {
	id := uuid.NewString()
	el, err := f.surface.Acquire(id)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindProgressive:
		return NewProgressive(id, f.surface, el), nil

	case KindAdaptive:
		if f.loader == nil {
			f.surface.Release(id)
			return nil, ErrBackendUnavailable
		}
		module, err := f.loader.Load(ctx)
		if err != nil {
			f.surface.Release(id)
			return nil, err
		}
		engine, err := module.NewEngine(el, f.cfg)
		if err != nil {
			f.surface.Release(id)
			return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}

		logger.Log.Debug().
			Str("backend_id", id).
			Str("engine", module.Name()).
			Dur("buffering_goal", f.cfg.BufferingGoal).
			Dur("rebuffering_goal", f.cfg.RebufferingGoal).
			Dur("presentation_delay", f.cfg.PresentationDelay).
			Msg("Adaptive engine instance created")
		return NewAdaptive(id, f.surface, el, engine), nil

	default:
		f.surface.Release(id)
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
}

// Surface returns the shared surface
func (f *Factory) Surface() *Surface {
	return f.surface
}
