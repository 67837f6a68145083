package backend

import (
	"sync"
)

// EventType names a playback notification
type EventType string

// Playback notifications
const (
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventTimeUpdate     EventType = "timeupdate"
	EventDurationChange EventType = "durationchange"
	EventEnded          EventType = "ended"
	EventError          EventType = "error"
	EventLoadedData     EventType = "loadeddata"
)

// Event is a notification from a backend or media element
type Event struct {
	Type EventType
	// Time is the playhead position in seconds at emission
	Time float64
	// Duration is the media duration in seconds at emission, 0 when unknown
	Duration float64
	// Err is set for EventError
	Err *LoadError
}

// Listener receives events
type Listener func(Event)

// Disposer removes a subscription; calling it more than once is a no-op
type Disposer func()

// Emitter fans events out to subscribers in subscription order. Listeners run on the
// emitting goroutine, outside the lock.
type Emitter struct {
	mu        sync.RWMutex
	nextID    int
	listeners []subscription
}

type subscription struct {
	id int
	l  Listener
}

// Subscribe registers l and returns its disposer
func (e *Emitter) Subscribe(l Listener) Disposer {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, subscription{id: id, l: l})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			for i, sub := range e.listeners {
				if sub.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers ev to every current listener
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	ls := make([]Listener, len(e.listeners))
	for i, sub := range e.listeners {
		ls[i] = sub.l
	}
	e.mu.RUnlock()

	for _, l := range ls {
		l(ev)
	}
}

// Reset drops all listeners
func (e *Emitter) Reset() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}

// Len returns the number of active listeners
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
