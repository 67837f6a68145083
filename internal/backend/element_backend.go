package backend

import (
	"context"
	"sync"

	"github.com/stwalsh4118/livetv/internal/logger"
)

// elementBackend carries what both variants share: the surface binding,
// event forwarding from the element and idempotent teardown.
type elementBackend struct {
	kind    Kind
	id      string
	surface *Surface
	el      MediaElement
	emitter Emitter

	mu        sync.Mutex
	destroyed bool
	forward   Disposer
}

func newElementBackend(kind Kind, id string, surface *Surface, el MediaElement) *elementBackend {
	b := &elementBackend{kind: kind, id: id, surface: surface, el: el}
	b.forward = el.Subscribe(b.emitter.Emit)
	return b
}

func (b *elementBackend) Kind() Kind { return b.kind }

// ID returns the surface owner token of this backend
func (b *elementBackend) ID() string { return b.id }

func (b *elementBackend) isDestroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// awaitLoaded runs start and waits for the element's first data or error
func (b *elementBackend) awaitLoaded(ctx context.Context, url string, start func() error) error {
	if b.isDestroyed() {
		return ErrDestroyed
	}

	result := make(chan Event, 1)
	dispose := b.el.Subscribe(func(ev Event) {
		if ev.Type != EventLoadedData && ev.Type != EventError {
			return
		}
		select {
		case result <- ev:
		default:
		}
	})
	defer dispose()

	if err := start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-result:
		if ev.Type == EventError {
			if ev.Err == nil {
				return NewLoadError(CodeMediaAborted, "media load failed", nil)
			}
			return ev.Err
		}
		logger.Log.Debug().
			Str("backend_id", b.id).
			Str("kind", b.kind.String()).
			Str("url", url).
			Msg("Backend loaded first data")
		return nil
	}
}

func (b *elementBackend) Play(ctx context.Context) error {
	if b.isDestroyed() {
		return ErrDestroyed
	}
	return b.el.Play(ctx)
}

func (b *elementBackend) Pause() error {
	if b.isDestroyed() {
		return ErrDestroyed
	}
	b.el.Pause()
	return nil
}

func (b *elementBackend) Paused() bool           { return b.el.Paused() }
func (b *elementBackend) CurrentTime() float64   { return b.el.CurrentTime() }
func (b *elementBackend) Duration() float64      { return b.el.Duration() }
func (b *elementBackend) Seekable() Range        { return b.el.Seekable() }
func (b *elementBackend) ReadyState() ReadyState { return b.el.ReadyState() }
func (b *elementBackend) SetVolume(v float64)    { b.el.SetVolume(v) }
func (b *elementBackend) SetMuted(muted bool)    { b.el.SetMuted(muted) }
func (b *elementBackend) Subscribe(l Listener) Disposer {
	return b.emitter.Subscribe(l)
}

func (b *elementBackend) SetCurrentTime(t float64) {
	if b.isDestroyed() {
		return
	}
	b.el.SetCurrentTime(t)
}

// teardown marks the backend destroyed and returns false when it already was
func (b *elementBackend) teardown() bool {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return false
	}
	b.destroyed = true
	forward := b.forward
	b.mu.Unlock()

	forward()
	b.emitter.Reset()
	return true
}

// releaseSurface detaches the element and frees the surface
func (b *elementBackend) releaseSurface() {
	b.el.Pause()
	b.el.Detach()
	b.surface.Release(b.id)
}
