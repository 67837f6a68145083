package backend

import (
	"context"

	"github.com/stwalsh4118/livetv/internal/logger"
)

// Progressive plays plain media files directly on the element
type Progressive struct {
	*elementBackend
}

// NewProgressive binds a progressive backend to an element already acquired from surface
func NewProgressive(id string, surface *Surface, el MediaElement) *Progressive {
	return &Progressive{elementBackend: newElementBackend(KindProgressive, id, surface, el)}
}

// Load assigns url to the element and waits for its first data
func (p *Progressive) Load(ctx context.Context, url string) error {
	return p.awaitLoaded(ctx, url, func() error {
		p.el.SetSrc(url)
		return nil
	})
}

// Destroy detaches the element and releases the surface
func (p *Progressive) Destroy(ctx context.Context) error {
	if !p.teardown() {
		return nil
	}
	p.releaseSurface()

	logger.Log.Debug().
		Str("backend_id", p.id).
		Msg("Progressive backend destroyed")
	return nil
}
