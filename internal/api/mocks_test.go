package api

import (
	"context"
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/models"
	"github.com/stwalsh4118/livetv/internal/navigation"
	"github.com/stwalsh4118/livetv/internal/player"
)

// mockPlayer is a mock implementation of playerController
type mockPlayer struct {
	mu       sync.Mutex
	cat      *catalog.Catalog
	active   int
	snapshot player.Snapshot
	err      error

	selected  []string
	nexts     int
	previous  int
	seeks     []float64
	plays     int
	pauses    int
	toggles   int
	volume    float64
	muted     bool
	dismissed int
}

func newMockPlayer() *mockPlayer {
	events := []models.Event{
		{ID: "e1", Title: "Morning Movie", Status: models.StatusEnded, TSStart: 1704067200000, TSEnd: 1704074400000, Duration: 7200000},
		{ID: "e2", Title: "Afternoon Movie", Status: models.StatusLive, TSStart: 1704074400000, TSEnd: 1704078300000, Duration: 3900000},
		{ID: "e3", Title: "Evening Movie", Status: models.StatusUpcoming, TSStart: 1704078300000, TSEnd: 1704081000000, Duration: 2700000},
	}
	return &mockPlayer{
		cat:    catalog.New(&models.Channel{ID: 7, Title: "Movies", Events: events}),
		active: 1,
		snapshot: player.Snapshot{
			State:      player.StatePlaying,
			EventIndex: 1,
			Volume:     1,
		},
	}
}

func (m *mockPlayer) Snapshot() player.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *mockPlayer) Catalog() *catalog.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cat
}

func (m *mockPlayer) ActiveIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *mockPlayer) SelectFromSchedule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.selected = append(m.selected, id)
	return nil
}

func (m *mockPlayer) SelectNext(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nexts++
	return m.err
}

func (m *mockPlayer) SelectPrevious(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previous++
	return m.err
}

func (m *mockPlayer) SeekRequest(ctx context.Context, t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, t)
	return m.err
}

func (m *mockPlayer) Play(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	return m.err
}

func (m *mockPlayer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	return m.err
}

func (m *mockPlayer) Toggle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles++
	return m.err
}

func (m *mockPlayer) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
	m.snapshot.Volume = v
}

func (m *mockPlayer) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	m.snapshot.Muted = muted
}

func (m *mockPlayer) DismissError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissed++
	m.snapshot.Error = nil
}

// mockNavigator is a mock implementation of keyNavigator
type mockNavigator struct {
	mu    sync.Mutex
	keys  []navigation.Key
	picks []int
	state navigation.SelectorState
	err   error
}

func (m *mockNavigator) HandleKey(ctx context.Context, key navigation.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	if key == navigation.KeyUp {
		m.state.Visible = true
	}
	return nil
}

func (m *mockNavigator) Pick(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.picks = append(m.picks, index)
	m.state.Index = index
	return nil
}

func (m *mockNavigator) SelectorState() navigation.SelectorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// mockHealth is a mock database health checker
type mockHealth struct {
	err error
}

func (m *mockHealth) Health(ctx context.Context) error {
	return m.err
}

var errMockDown = errors.New("database is locked")

// setupTestRouter creates a test Gin router with all API routes
func setupTestRouter(p *mockPlayer, n *mockNavigator, h healthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api")
	SetupHealthRoutes(apiGroup, h, p)
	SetupChannelRoutes(apiGroup, p)
	SetupPlayerRoutes(apiGroup, p)
	SetupNavigationRoutes(apiGroup, n)
	return router
}
