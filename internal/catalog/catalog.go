// Package catalog holds a channel's ordered event lineup and the providers that load it.
package catalog

import (
	"sort"

	"github.com/stwalsh4118/livetv/internal/models"
)

// Filter selects a subset of the lineup for the schedule view
type Filter string

// Schedule filters
const (
	FilterAll      Filter = "all"
	FilterLive     Filter = "live"
	FilterUpcoming Filter = "upcoming"
	FilterEnded    Filter = "ended"
)

// IsValid checks if the filter is one of the known values
func (f Filter) IsValid() bool {
	switch f {
	case FilterAll, FilterLive, FilterUpcoming, FilterEnded:
		return true
	default:
		return false
	}
}

// Catalog is an immutable, ordered view of one channel's lineup.
// A reload produces a new Catalog; existing values never change.
type Catalog struct {
	channel models.Channel
	events  []models.Event
	index   map[string]int
}

// New builds a catalog from a loaded channel. The channel's events are copied.
func New(channel *models.Channel) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	if channel == nil {
		return c
	}

	c.channel = *channel
	c.channel.Events = nil
	c.events = make([]models.Event, len(channel.Events))
	copy(c.events, channel.Events)
	for i := range c.events {
		if _, dup := c.index[c.events[i].ID]; !dup {
			c.index[c.events[i].ID] = i
		}
	}
	return c
}

// Channel returns the channel metadata without events
func (c *Catalog) Channel() models.Channel {
	return c.channel
}

// Len returns the number of events
func (c *Catalog) Len() int {
	return len(c.events)
}

// Events returns a copy of the lineup in order
func (c *Catalog) Events() []models.Event {
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

// At returns the event at position i, or nil when out of range
func (c *Catalog) At(i int) *models.Event {
	if i < 0 || i >= len(c.events) {
		return nil
	}
	e := c.events[i]
	return &e
}

// IndexOf returns the position of the event with the given id, or -1
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Get returns the event with the given id, or nil
func (c *Catalog) Get(id string) *models.Event {
	return c.At(c.IndexOf(id))
}

// Next returns the event immediately after id, or nil at the end or when id is unknown
func (c *Catalog) Next(id string) *models.Event {
	i := c.IndexOf(id)
	if i < 0 {
		return nil
	}
	return c.At(i + 1)
}

// Previous returns the event immediately before id, or nil at the start or when id is unknown
func (c *Catalog) Previous(id string) *models.Event {
	i := c.IndexOf(id)
	if i < 0 {
		return nil
	}
	return c.At(i - 1)
}

// NextPlayable returns the adjacent next event when it is not upcoming.
// Only the immediate neighbour is considered.
func (c *Catalog) NextPlayable(id string) *models.Event {
	next := c.Next(id)
	if next == nil || next.IsUpcoming() {
		return nil
	}
	return next
}

// PreviousPlayable returns the adjacent previous event when it is not upcoming
func (c *Catalog) PreviousPlayable(id string) *models.Event {
	prev := c.Previous(id)
	if prev == nil || prev.IsUpcoming() {
		return nil
	}
	return prev
}

// FindLiveEvent returns the first live event, or nil
func (c *Catalog) FindLiveEvent() *models.Event {
	for i := range c.events {
		if c.events[i].IsLive() {
			e := c.events[i]
			return &e
		}
	}
	return nil
}

// PastEvents returns ended events, newest start first
func (c *Catalog) PastEvents() []models.Event {
	out := c.byStatus(models.StatusEnded)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TSStart > out[j].TSStart })
	return out
}

// UpcomingEvents returns upcoming events, soonest start first
func (c *Catalog) UpcomingEvents() []models.Event {
	out := c.byStatus(models.StatusUpcoming)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TSStart < out[j].TSStart })
	return out
}

// InitialEvent picks the event to play when the lineup first loads:
// the live event, otherwise the most recent ended event.
func (c *Catalog) InitialEvent() *models.Event {
	if live := c.FindLiveEvent(); live != nil {
		return live
	}
	past := c.PastEvents()
	if len(past) == 0 {
		return nil
	}
	return &past[0]
}

// Filter returns the lineup restricted to f, preserving order
func (c *Catalog) Filter(f Filter) []models.Event {
	if f == FilterAll || f == "" {
		return c.Events()
	}
	return c.byStatus(models.EventStatus(f))
}

func (c *Catalog) byStatus(status models.EventStatus) []models.Event {
	out := make([]models.Event, 0, len(c.events))
	for _, e := range c.events {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}
