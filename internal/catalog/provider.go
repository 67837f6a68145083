package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/livetv/internal/models"
)

// Catalog errors
var (
	ErrNoChannel      = errors.New("lineup contains no channel")
	ErrInvalidLineup  = errors.New("invalid lineup")
	ErrProviderClosed = errors.New("catalog provider closed")
)

// Provider supplies the channel lineup
type Provider interface {
	FetchChannelPrograms(ctx context.Context) (*models.Channel, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context) (*models.Channel, error)

// FetchChannelPrograms calls f(ctx)
func (f ProviderFunc) FetchChannelPrograms(ctx context.Context) (*models.Channel, error) {
	return f(ctx)
}

// Load fetches the lineup from p and wraps it in a Catalog
func Load(ctx context.Context, p Provider) (*Catalog, error) {
	channel, err := p.FetchChannelPrograms(ctx)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, ErrNoChannel
	}
	if err := validate(channel); err != nil {
		return nil, err
	}
	return New(channel), nil
}

func validate(channel *models.Channel) error {
	seen := make(map[string]struct{}, len(channel.Events))
	for i, e := range channel.Events {
		if e.ID == "" {
			return fmt.Errorf("%w: event %d has no id", ErrInvalidLineup, i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate event id %s", ErrInvalidLineup, e.ID)
		}
		seen[e.ID] = struct{}{}
		if !e.Status.IsValid() {
			return fmt.Errorf("%w: event %s has status %q", ErrInvalidLineup, e.ID, e.Status)
		}
	}
	return nil
}
