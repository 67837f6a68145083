package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stwalsh4118/livetv/internal/backend"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/config"
	"github.com/stwalsh4118/livetv/internal/models"
)

const testFallbackURL = "https://fallback.example/stream.mpd"

// fakeFactory builds fakeBackends and records overlap on the surface
type fakeFactory struct {
	mu       sync.Mutex
	built    []*fakeBackend
	alive    int
	overlaps int
	err      error
	loadErr  map[string]error
	playErr  error
	ready    backend.ReadyState
	duration float64
	seekable backend.Range
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		loadErr:  make(map[string]error),
		ready:    backend.HaveEnoughData,
		duration: 100,
		seekable: backend.Range{Start: 0, End: 100},
	}
}

func (f *fakeFactory) New(ctx context.Context, kind backend.Kind) (backend.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.alive > 0 {
		f.overlaps++
	}
	f.alive++
	b := &fakeBackend{factory: f, kind: kind, paused: true, volume: 1}
	f.built = append(f.built, b)
	return b, nil
}

func (f *fakeFactory) setLoadErr(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr[url] = err
}

func (f *fakeFactory) setPlayErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

func (f *fakeFactory) setReady(r backend.ReadyState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = r
}

func (f *fakeFactory) backends() []*fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeBackend, len(f.built))
	copy(out, f.built)
	return out
}

func (f *fakeFactory) last() *fakeBackend {
	bs := f.backends()
	if len(bs) == 0 {
		return nil
	}
	return bs[len(bs)-1]
}

func (f *fakeFactory) overlapCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlaps
}

// fakeBackend is a Backend whose events the test emits
type fakeBackend struct {
	factory *fakeFactory
	kind    backend.Kind
	emitter backend.Emitter

	mu        sync.Mutex
	loads     []string
	seeks     []float64
	ready     backend.ReadyState
	paused    bool
	current   float64
	duration  float64
	seekable  backend.Range
	volume    float64
	muted     bool
	destroyed bool
}

func (b *fakeBackend) Kind() backend.Kind { return b.kind }

func (b *fakeBackend) Load(ctx context.Context, url string) error {
	b.factory.mu.Lock()
	err := b.factory.loadErr[url]
	ready, duration, seekable := b.factory.ready, b.factory.duration, b.factory.seekable
	b.factory.mu.Unlock()

	b.mu.Lock()
	b.loads = append(b.loads, url)
	b.mu.Unlock()

	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.ready = ready
	b.duration = duration
	b.seekable = seekable
	b.current = 0
	b.mu.Unlock()
	return nil
}

func (b *fakeBackend) Play(ctx context.Context) error {
	b.factory.mu.Lock()
	err := b.factory.playErr
	b.factory.mu.Unlock()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.paused = false
	b.mu.Unlock()
	b.emit(backend.Event{Type: backend.EventPlay})
	return nil
}

func (b *fakeBackend) Pause() error {
	b.mu.Lock()
	b.paused = true
	b.mu.Unlock()
	b.emit(backend.Event{Type: backend.EventPause})
	return nil
}

func (b *fakeBackend) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

func (b *fakeBackend) CurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *fakeBackend) SetCurrentTime(t float64) {
	b.mu.Lock()
	b.seeks = append(b.seeks, t)
	b.current = t
	b.mu.Unlock()
}

func (b *fakeBackend) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

func (b *fakeBackend) Seekable() backend.Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seekable
}

func (b *fakeBackend) ReadyState() backend.ReadyState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

func (b *fakeBackend) setReady(r backend.ReadyState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = r
}

func (b *fakeBackend) SetVolume(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = v
}

func (b *fakeBackend) SetMuted(muted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = muted
}

func (b *fakeBackend) Subscribe(l backend.Listener) backend.Disposer {
	return b.emitter.Subscribe(l)
}

func (b *fakeBackend) Destroy(ctx context.Context) error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}
	b.destroyed = true
	b.mu.Unlock()

	b.emitter.Reset()
	b.factory.mu.Lock()
	b.factory.alive--
	b.factory.mu.Unlock()
	return nil
}

func (b *fakeBackend) emit(ev backend.Event) {
	b.emitter.Emit(ev)
}

func (b *fakeBackend) loadedURLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.loads...)
}

func (b *fakeBackend) seekTargets() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]float64(nil), b.seeks...)
}

func (b *fakeBackend) isDestroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func testPlayerConfig() config.PlayerConfig {
	cfg := config.DefaultPlayerConfig()
	cfg.FallbackURL = testFallbackURL
	cfg.SwitchGuardWindow = 200 * time.Millisecond
	cfg.ReadyPollInterval = 2 * time.Millisecond
	cfg.ReadyPollAttempts = 10
	cfg.TimeUpdateThrottle = 0
	cfg.SeekDebounce = 10 * time.Millisecond
	cfg.ReconcileSettle = 20 * time.Millisecond
	return cfg
}

func testEvent(id string, status models.EventStatus, url string) models.Event {
	e := models.Event{
		ID:       id,
		Title:    "Event " + id,
		Status:   status,
		Duration: 7200000,
	}
	if url != "" {
		e.StreamingURLs = []models.StreamingURL{{URL: url, Format: models.FormatMP4}}
	}
	return e
}

// testLineup is ended, ended, live, upcoming
func testLineup() []models.Event {
	return []models.Event{
		testEvent("e1", models.StatusEnded, "https://cdn.example/e1.mp4"),
		testEvent("e2", models.StatusEnded, "https://cdn.example/e2.mp4"),
		testEvent("e3", models.StatusLive, "https://cdn.example/live/e3.m3u8"),
		testEvent("e4", models.StatusUpcoming, "https://cdn.example/e4.mp4"),
	}
}

func testCatalog(events ...models.Event) *catalog.Catalog {
	if len(events) == 0 {
		events = testLineup()
	}
	return catalog.New(&models.Channel{ID: 1, Title: "Test", Events: events})
}

var errTestLoad = backend.NewLoadError(backend.CodeMediaSrcUnsupported, "source not supported", nil)

var errTestPlay = errors.New("autoplay denied")
