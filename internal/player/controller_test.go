package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/livetv/internal/backend"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/models"
	"go.uber.org/goleak"
)

func newTestController(t *testing.T, f *fakeFactory, cat *catalog.Catalog) *Controller {
	t.Helper()
	c := NewController(testPlayerConfig(), f, nil, WithCatalog(cat))
	t.Cleanup(func() {
		_ = c.Close(context.Background())
	})
	return c
}

func eventOf(t *testing.T, cat *catalog.Catalog, id string) models.Event {
	t.Helper()
	e := cat.Get(id)
	require.NotNil(t, e, "event %s", id)
	return *e
}

func TestSelectLiveEventAutoPlays(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))

	snap := c.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.False(t, snap.Switching)
	assert.True(t, snap.Live)
	assert.Equal(t, 2, snap.EventIndex)
	assert.Equal(t, "https://cdn.example/live/e3.m3u8", snap.URL)
	assert.Equal(t, backend.KindAdaptive.String(), snap.Kind)
	assert.Nil(t, snap.Error)
}

func TestSelectUpcomingEventIsRefused(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	err := c.SelectEvent(context.Background(), eventOf(t, cat, "e4"))
	assert.True(t, IsUpcoming(err))
	assert.Equal(t, StateIdle, c.Snapshot().State)
	assert.Empty(t, f.backends())

	err = c.SelectFromSchedule(context.Background(), "e4")
	assert.True(t, IsUpcoming(err))

	err = c.SelectFromSchedule(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestSelectEndedEventWaitsForReadiness(t *testing.T) {
	f := newFakeFactory()
	f.setReady(backend.HaveCurrentData)
	cfg := testPlayerConfig()
	cfg.ReadyPollAttempts = 5000
	cat := testCatalog()
	c := NewController(cfg, f, nil, WithCatalog(cat))
	defer func() { _ = c.Close(context.Background()) }()

	event := eventOf(t, cat, "e1")
	done := make(chan error, 1)
	go func() {
		done <- c.SelectEvent(context.Background(), event)
	}()

	require.Eventually(t, func() bool { return f.last() != nil && len(f.last().loadedURLs()) == 1 },
		time.Second, time.Millisecond)
	f.last().setReady(backend.HaveEnoughData)

	require.NoError(t, <-done)
	assert.Equal(t, StatePlaying, c.Snapshot().State)
}

func TestSelectEndedEventReadyTimeout(t *testing.T) {
	f := newFakeFactory()
	f.setReady(backend.HaveMetadata)
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	require.NotNil(t, snap.Error)
	assert.Equal(t, ErrorTypeReadyTimeout.String(), snap.Error.Type)
	assert.False(t, snap.Switching)
}

func TestLiveAutoPlayRejectionIsSoft(t *testing.T) {
	f := newFakeFactory()
	f.setPlayErr(errTestPlay)
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))

	snap := c.Snapshot()
	assert.Equal(t, StatePaused, snap.State)
	assert.Nil(t, snap.Error)
}

func TestLoadFallbackSameKindReusesBackend(t *testing.T) {
	f := newFakeFactory()
	f.setLoadErr("https://cdn.example/live/e3.m3u8", backend.NewLoadError(backend.CodeManifestInvalid, "bad manifest", nil))
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))

	require.Len(t, f.backends(), 1)
	assert.Equal(t, []string{"https://cdn.example/live/e3.m3u8", testFallbackURL}, f.last().loadedURLs())
	snap := c.Snapshot()
	assert.Equal(t, testFallbackURL, snap.URL)
	assert.Equal(t, StatePlaying, snap.State)
}

func TestLoadFallbackDifferentKindRebuildsBackend(t *testing.T) {
	f := newFakeFactory()
	f.setLoadErr("https://cdn.example/e1.mp4", errTestLoad)
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))

	bs := f.backends()
	require.Len(t, bs, 2)
	assert.Equal(t, backend.KindProgressive, bs[0].kind)
	assert.True(t, bs[0].isDestroyed())
	assert.Equal(t, backend.KindAdaptive, bs[1].kind)
	assert.Equal(t, []string{testFallbackURL}, bs[1].loadedURLs())
	assert.Zero(t, f.overlapCount())
	assert.Equal(t, testFallbackURL, c.Snapshot().URL)
}

func TestLoadFallbackFailureEntersError(t *testing.T) {
	f := newFakeFactory()
	f.setLoadErr("https://cdn.example/e1.mp4", errTestLoad)
	f.setLoadErr(testFallbackURL, backend.NewLoadError(backend.CodeNetworkBadStatus, "manifest returned HTTP 404", nil))
	cat := testCatalog()
	c := newTestController(t, f, cat)

	err := c.SelectEvent(context.Background(), eventOf(t, cat, "e1"))
	perr, ok := AsPlayerError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeLoad, perr.Type)

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "Failed to load any stream: manifest returned HTTP 404", snap.Error.Message)
	assert.False(t, snap.Switching)
}

func TestEventWithoutSourcePlaysFallback(t *testing.T) {
	f := newFakeFactory()
	events := testLineup()
	events[2].StreamingURLs = nil
	cat := testCatalog(events...)
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))

	snap := c.Snapshot()
	assert.True(t, snap.NoSource)
	assert.Equal(t, testFallbackURL, snap.URL)
}

func TestBackendUnavailable(t *testing.T) {
	f := newFakeFactory()
	f.err = backend.ErrBackendUnavailable
	cat := testCatalog()
	c := newTestController(t, f, cat)

	err := c.SelectEvent(context.Background(), eventOf(t, cat, "e3"))
	perr, ok := AsPlayerError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeBackendUnavailable, perr.Type)
	assert.Equal(t, SeverityFatal, perr.Severity)
	assert.ErrorIs(t, err, backend.ErrBackendUnavailable)
	assert.Equal(t, StateError, c.Snapshot().State)
}

func TestPreviousBackendDestroyedBeforeNextIsBuilt(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))
	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))

	bs := f.backends()
	require.Len(t, bs, 3)
	assert.True(t, bs[0].isDestroyed())
	assert.True(t, bs[1].isDestroyed())
	assert.False(t, bs[2].isDestroyed())
	assert.Zero(t, f.overlapCount())
}

func TestConcurrentSelectionsSerialize(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	ids := []string{"e1", "e2", "e3", "e1", "e3"}
	errs := make(chan error, len(ids))
	for _, id := range ids {
		id := id
		go func() {
			errs <- c.SelectFromSchedule(context.Background(), id)
		}()
	}
	for range ids {
		err := <-errs
		if err != nil {
			assert.ErrorIs(t, err, ErrSuperseded)
		}
	}

	assert.Zero(t, f.overlapCount())
	alive := 0
	for _, b := range f.backends() {
		if !b.isDestroyed() {
			alive++
		}
	}
	assert.Equal(t, 1, alive)
	assert.False(t, c.Snapshot().Switching)
}

func TestEndedAdvancesToNextEvent(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))
	first := f.last()
	first.emit(backend.Event{Type: backend.EventEnded, Time: 100, Duration: 100})

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Event != nil && snap.Event.ID == "e2" && snap.State == StatePlaying
	}, time.Second, time.Millisecond)
	assert.True(t, first.isDestroyed())

	// The guard window holds the switching flag, so a late ended event is ignored
	assert.True(t, c.Snapshot().Switching)
	require.NoError(t, c.OnEnded(context.Background()))
	assert.Equal(t, "e2", c.Snapshot().Event.ID)

	require.Eventually(t, func() bool { return !c.Snapshot().Switching }, time.Second, time.Millisecond)
}

func TestEndedIgnoredForLiveEvent(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	require.NoError(t, c.OnEnded(context.Background()))

	assert.Equal(t, "e3", c.Snapshot().Event.ID)
	assert.Len(t, f.backends(), 1)
}

func TestEndedStopsBeforeUpcomingEvent(t *testing.T) {
	f := newFakeFactory()
	events := []models.Event{
		testEvent("a", models.StatusEnded, "https://cdn.example/a.mp4"),
		testEvent("b", models.StatusUpcoming, "https://cdn.example/b.mp4"),
		testEvent("c", models.StatusEnded, "https://cdn.example/c.mp4"),
	}
	cat := testCatalog(events...)
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "a")))
	require.NoError(t, c.OnEnded(context.Background()))

	assert.Equal(t, "a", c.Snapshot().Event.ID)
	assert.Len(t, f.backends(), 1)
}

func TestSeekIsDebounced(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e2")))
	b := f.last()

	for _, target := range []float64{10, 20, 50} {
		require.NoError(t, c.SeekRequest(context.Background(), target))
		assert.Equal(t, target, c.Snapshot().CurrentTime)
	}

	require.Eventually(t, func() bool { return len(b.seekTargets()) > 0 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []float64{50}, b.seekTargets())
}

func TestSeekReconcilingSuppressesTimeUpdates(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e2")))
	b := f.last()

	require.NoError(t, c.SeekRequest(context.Background(), 40))
	b.emit(backend.Event{Type: backend.EventTimeUpdate, Time: 12, Duration: 100})
	assert.Equal(t, 40.0, c.Snapshot().CurrentTime)

	require.Eventually(t, func() bool {
		b.emit(backend.Event{Type: backend.EventTimeUpdate, Time: 41, Duration: 100})
		return c.Snapshot().CurrentTime == 41
	}, time.Second, 5*time.Millisecond)
}

func TestSeekNearStartSwitchesToPrevious(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e2")))
	first := f.last()
	require.NoError(t, c.SeekRequest(context.Background(), 1.5))
	assert.Equal(t, "e2", c.Snapshot().Event.ID, "edge switch waits for the debounce")

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Event.ID == "e1" && snap.State == StatePlaying
	}, time.Second, time.Millisecond)

	assert.True(t, c.Snapshot().Switching, "automatic switches hold the guard window")
	assert.Empty(t, first.seekTargets())
	assert.Empty(t, f.last().seekTargets())
}

func TestSeekNearEndSwitchesToNextAtStart(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))
	require.NoError(t, c.SeekRequest(context.Background(), 99))

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Event.ID == "e2" && snap.State == StatePlaying
	}, time.Second, time.Millisecond)

	assert.Equal(t, 0.0, c.Snapshot().CurrentTime)
	assert.Equal(t, []float64{0}, f.last().seekTargets())
}

func TestRapidSeekAwayFromEdgeStaysOnEvent(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e2")))
	b := f.last()

	require.NoError(t, c.SeekRequest(context.Background(), 1.5))
	require.NoError(t, c.SeekRequest(context.Background(), 50))
	assert.Equal(t, 50.0, c.Snapshot().CurrentTime)

	require.Eventually(t, func() bool { return len(b.seekTargets()) > 0 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, "e2", snap.Event.ID)
	assert.Equal(t, []float64{50}, b.seekTargets())
	assert.Len(t, f.backends(), 1)
}

func TestRapidSeekEndingAtEdgeSwitches(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))
	first := f.last()

	require.NoError(t, c.SeekRequest(context.Background(), 50))
	require.NoError(t, c.SeekRequest(context.Background(), 99))

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Event.ID == "e2" && snap.State == StatePlaying
	}, time.Second, time.Millisecond)

	assert.Empty(t, first.seekTargets())
	assert.True(t, first.isDestroyed())
	assert.Len(t, f.backends(), 2)
}

func TestSeekAtFirstEventStartSeeksNormally(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))
	b := f.last()
	require.NoError(t, c.SeekRequest(context.Background(), 1))

	assert.Equal(t, "e1", c.Snapshot().Event.ID)
	require.Eventually(t, func() bool { return len(b.seekTargets()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []float64{1}, b.seekTargets())
}

func TestSeekDuringSwitchIsIgnored(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))
	require.NoError(t, c.SeekRequest(context.Background(), 99))
	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.Event.ID == "e2" && snap.State == StatePlaying
	}, time.Second, time.Millisecond)
	require.True(t, c.Snapshot().Switching)

	b := f.last()
	require.NoError(t, c.SeekRequest(context.Background(), 30))
	assert.Equal(t, 0.0, c.Snapshot().CurrentTime)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []float64{0}, b.seekTargets())
}

func TestLiveSeekOutsideRangeIsSkipped(t *testing.T) {
	f := newFakeFactory()
	f.seekable = backend.Range{Start: 100, End: 160}
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	b := f.last()

	require.NoError(t, c.SeekRequest(context.Background(), 500))
	assert.Equal(t, 500.0, c.Snapshot().CurrentTime)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, b.seekTargets())

	require.NoError(t, c.SeekRequest(context.Background(), 130))
	require.Eventually(t, func() bool { return len(b.seekTargets()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []float64{130}, b.seekTargets())
	assert.Equal(t, "e3", c.Snapshot().Event.ID)
}

func TestLiveSeekLastTargetWins(t *testing.T) {
	f := newFakeFactory()
	f.seekable = backend.Range{Start: 100, End: 160}
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	b := f.last()

	require.NoError(t, c.SeekRequest(context.Background(), 120))
	require.NoError(t, c.SeekRequest(context.Background(), 500))
	assert.Equal(t, 500.0, c.Snapshot().CurrentTime)

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, b.seekTargets())
}

func TestNetworkErrorReloadsFallbackOnce(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	b := f.last()

	b.emit(backend.Event{Type: backend.EventError, Err: backend.NewLoadError(backend.CodeNetworkFailed, "segment request failed", nil)})
	require.Eventually(t, func() bool { return len(b.loadedURLs()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, testFallbackURL, b.loadedURLs()[1])
	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.URL == testFallbackURL && snap.State == StatePlaying
	}, time.Second, time.Millisecond)
	assert.Len(t, f.backends(), 1, "fallback reload reuses the instance")

	b.emit(backend.Event{Type: backend.EventError, Err: backend.NewLoadError(backend.CodeNetworkFailed, "segment request failed", nil)})
	require.Eventually(t, func() bool { return c.Snapshot().Error != nil }, time.Second, time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, "Failed to load stream: Network error 7001", snap.Error.Message)
	assert.Len(t, b.loadedURLs(), 2)
}

func TestNonNetworkErrorEntersError(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	f.last().emit(backend.Event{Type: backend.EventError, Err: backend.NewLoadError(backend.CodeMediaDecode, "decode failed", nil)})

	require.Eventually(t, func() bool { return c.Snapshot().Error != nil }, time.Second, time.Millisecond)
	snap := c.Snapshot()
	assert.Equal(t, "Playback error: decode failed", snap.Error.Message)
	assert.Equal(t, StateError, snap.State)
}

func TestDismissErrorRestoresBackendState(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	c.OnBackendError(backend.NewLoadError(backend.CodeMediaDecode, "decode failed", nil))
	require.Equal(t, StateError, c.Snapshot().State)

	c.DismissError()
	snap := c.Snapshot()
	assert.Nil(t, snap.Error)
	assert.Equal(t, StatePlaying, snap.State)
	assert.Len(t, f.backends(), 1, "dismissal does not retry")
}

func TestDismissErrorWithoutSessionIsIdle(t *testing.T) {
	c := newTestController(t, newFakeFactory(), nil)

	err := c.LoadCatalog(context.Background(), catalog.ProviderFunc(func(ctx context.Context) (*models.Channel, error) {
		return nil, errors.New("upstream unavailable")
	}))
	perr, ok := AsPlayerError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeCatalogLoad, perr.Type)

	snap := c.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, "Failed to load program data: upstream unavailable", snap.Error.Message)

	c.DismissError()
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

func TestLoadCatalogSelectsInitialEvent(t *testing.T) {
	f := newFakeFactory()
	c := newTestController(t, f, nil)

	err := c.LoadCatalog(context.Background(), catalog.ProviderFunc(func(ctx context.Context) (*models.Channel, error) {
		return &models.Channel{ID: 1, Events: testLineup()}, nil
	}))
	require.NoError(t, err)

	snap := c.Snapshot()
	require.NotNil(t, snap.Event)
	assert.Equal(t, "e3", snap.Event.ID, "the live event plays first")
	assert.Equal(t, 4, c.Catalog().Len())
}

func TestManualPlayFailureFillsErrorSlot(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.Snapshot().State)

	f.setPlayErr(errTestPlay)
	err := c.Toggle(context.Background())
	require.Error(t, err)

	snap := c.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, "Failed to play video. Please try again.", snap.Error.Message)

	f.setPlayErr(nil)
	c.DismissError()
	require.NoError(t, c.Toggle(context.Background()))
	assert.Equal(t, StatePlaying, c.Snapshot().State)
}

func TestVolumeCarriesAcrossSessions(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	c.SetVolume(1.7)
	c.SetMuted(true)
	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))

	b := f.last()
	b.mu.Lock()
	assert.Equal(t, 1.0, b.volume)
	assert.True(t, b.muted)
	b.mu.Unlock()

	c.SetVolume(0.25)
	snap := c.Snapshot()
	assert.Equal(t, 0.25, snap.Volume)
	assert.True(t, snap.Muted)
}

func TestNoSessionOperations(t *testing.T) {
	c := newTestController(t, newFakeFactory(), testCatalog())

	assert.ErrorIs(t, c.Play(context.Background()), ErrNoSession)
	assert.ErrorIs(t, c.Pause(), ErrNoSession)
	assert.ErrorIs(t, c.SeekRequest(context.Background(), 10), ErrNoSession)
	assert.ErrorIs(t, c.SelectNext(context.Background()), ErrNoSession)
	assert.Equal(t, -1, c.ActiveIndex())
}

func TestAdjacentNavigation(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	var indexes []int
	dispose := c.OnActiveChange(func(i int) { indexes = append(indexes, i) })
	defer dispose()

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e2")))
	require.NoError(t, c.SelectNext(context.Background()))
	assert.Equal(t, "e3", c.Snapshot().Event.ID)

	err := c.SelectNext(context.Background())
	assert.True(t, IsUpcoming(err))
	assert.Equal(t, "e3", c.Snapshot().Event.ID)

	require.NoError(t, c.SelectPrevious(context.Background()))
	require.NoError(t, c.SelectPrevious(context.Background()))
	assert.ErrorIs(t, c.SelectPrevious(context.Background()), ErrNoAdjacentEvent)
	assert.Equal(t, 0, c.ActiveIndex())
	assert.Equal(t, []int{1, 2, 1, 0}, indexes)
}

func TestStaleBackendCallbacksAreIgnored(t *testing.T) {
	f := newFakeFactory()
	cat := testCatalog()
	c := newTestController(t, f, cat)

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e3")))
	staleGen := c.gen
	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e2")))

	c.handleBackendEvent(staleGen, backend.Event{Type: backend.EventError, Err: backend.NewLoadError(backend.CodeMediaDecode, "late", nil)})
	c.handleBackendEvent(staleGen, backend.Event{Type: backend.EventEnded})
	time.Sleep(10 * time.Millisecond)

	snap := c.Snapshot()
	assert.Nil(t, snap.Error)
	assert.Equal(t, "e2", snap.Event.ID)
}

func TestSetCatalogKeepsPlayingEvent(t *testing.T) {
	f := newFakeFactory()
	c := newTestController(t, f, testCatalog())

	require.NoError(t, c.SelectFromSchedule(context.Background(), "e3"))
	c.SetCatalog(testCatalog(testEvent("x", models.StatusEnded, "https://cdn.example/x.mp4")))

	snap := c.Snapshot()
	assert.Equal(t, "e3", snap.Event.ID)
	assert.Equal(t, -1, snap.EventIndex)
	assert.Equal(t, StatePlaying, snap.State)
}

func TestCloseReleasesEverything(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFakeFactory()
	cat := testCatalog()
	c := NewController(testPlayerConfig(), f, nil, WithCatalog(cat))

	require.NoError(t, c.SelectEvent(context.Background(), eventOf(t, cat, "e1")))
	require.NoError(t, c.SeekRequest(context.Background(), 50))
	require.NoError(t, c.SeekRequest(context.Background(), 99))

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))

	for _, b := range f.backends() {
		assert.True(t, b.isDestroyed())
	}
	assert.ErrorIs(t, c.SelectFromSchedule(context.Background(), "e2"), ErrClosed)
}

func TestCloseCancelsInFlightReadinessPoll(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFakeFactory()
	f.setReady(backend.HaveMetadata)
	cfg := testPlayerConfig()
	cfg.ReadyPollAttempts = 100000
	cat := testCatalog()
	c := NewController(cfg, f, nil, WithCatalog(cat))

	event := eventOf(t, cat, "e1")
	done := make(chan error, 1)
	go func() {
		done <- c.SelectEvent(context.Background(), event)
	}()
	require.Eventually(t, func() bool { return f.last() != nil }, time.Second, time.Millisecond)

	require.NoError(t, c.Close(context.Background()))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("selection did not return after Close")
	}
	assert.True(t, f.last().isDestroyed())
}
