// Package navigation maps remote-control keys onto event selection
package navigation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/config"
	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/player"
	"golang.org/x/time/rate"
)

// Navigation errors
var (
	ErrUnknownKey  = errors.New("unknown key")
	ErrRateLimited = errors.New("key repeat rate exceeded")
	ErrNoSelection = errors.New("nothing highlighted")
)

// Key is a remote-control key
type Key string

// Keys understood by the navigator
const (
	KeyUp     Key = "up"
	KeyDown   Key = "down"
	KeyLeft   Key = "left"
	KeyRight  Key = "right"
	KeyEnter  Key = "enter"
	KeyEscape Key = "escape"
)

// ParseKey accepts both short names and DOM key names such as "ArrowUp"
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "arrowup":
		return KeyUp, nil
	case "down", "arrowdown":
		return KeyDown, nil
	case "left", "arrowleft":
		return KeyLeft, nil
	case "right", "arrowright":
		return KeyRight, nil
	case "enter", "ok", "select":
		return KeyEnter, nil
	case "escape", "esc", "back":
		return KeyEscape, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
}

// Player is the part of the playback controller the navigator drives
type Player interface {
	Catalog() *catalog.Catalog
	ActiveIndex() int
	SelectNext(ctx context.Context) error
	SelectPrevious(ctx context.Context) error
	SelectFromSchedule(ctx context.Context, id string) error
	OnActiveChange(fn func(index int)) func()
}

// Navigator routes keys to the selector overlay or to adjacent-event switching
type Navigator struct {
	player   Player
	selector *Selector
	limiter  *rate.Limiter
	dispose  func()
}

// NewNavigator creates a navigator bound to p
func NewNavigator(p Player, cfg config.NavigationConfig) *Navigator {
	n := &Navigator{
		player:   p,
		selector: NewSelector(cfg.SelectorInactivity),
		limiter:  rate.NewLimiter(rate.Limit(cfg.KeyRate), cfg.KeyBurst),
	}
	n.selector.SetActive(p.ActiveIndex())
	n.dispose = p.OnActiveChange(n.selector.SetActive)
	return n
}

// Selector returns the selector overlay
func (n *Navigator) Selector() *Selector {
	return n.selector
}

// SelectorState returns the selector overlay state
func (n *Navigator) SelectorState() SelectorState {
	return n.selector.State()
}

// HandleKey applies one key press. Refused switches (upcoming or missing
// neighbours) are returned as errors and leave the state unchanged.
func (n *Navigator) HandleKey(ctx context.Context, key Key) error {
	if !n.limiter.Allow() {
		return ErrRateLimited
	}

	cat := n.player.Catalog()
	size := 0
	if cat != nil {
		size = cat.Len()
	}
	visible := n.selector.State().Visible

	logger.Log.Debug().
		Str("key", string(key)).
		Bool("selector_visible", visible).
		Msg("Key pressed")

	switch key {
	case KeyUp:
		n.selector.Open()
		return nil

	case KeyDown, KeyEscape:
		if visible {
			n.selector.Hide()
		}
		return nil

	case KeyLeft:
		if visible {
			n.selector.Move(-1, size)
			return nil
		}
		return n.player.SelectPrevious(ctx)

	case KeyRight:
		if visible {
			n.selector.Move(1, size)
			return nil
		}
		return n.player.SelectNext(ctx)

	case KeyEnter:
		if !visible {
			return nil
		}
		return n.confirm(ctx, cat, n.selector.State().Index)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Pick handles a pointer selection of index: the first pick highlights,
// picking the highlighted event confirms it
func (n *Navigator) Pick(ctx context.Context, index int) error {
	cat := n.player.Catalog()
	if cat == nil || cat.At(index) == nil {
		return ErrNoSelection
	}
	state := n.selector.State()
	if !state.Visible {
		return ErrNoSelection
	}
	if state.Index != index {
		n.selector.Highlight(index)
		return nil
	}
	return n.confirm(ctx, cat, index)
}

// confirm selects the highlighted event and hides the selector; upcoming events are refused
func (n *Navigator) confirm(ctx context.Context, cat *catalog.Catalog, index int) error {
	if cat == nil {
		return ErrNoSelection
	}
	event := cat.At(index)
	if event == nil {
		return ErrNoSelection
	}
	if event.IsUpcoming() {
		return fmt.Errorf("%w: %s", player.ErrEventUpcoming, event.Title)
	}
	if err := n.player.SelectFromSchedule(ctx, event.ID); err != nil {
		return err
	}
	n.selector.Hide()
	return nil
}

// Close cancels the selector timer and stops following the player
func (n *Navigator) Close() {
	n.dispose()
	n.selector.Stop()
}
