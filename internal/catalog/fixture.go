package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/models"
)

//go:embed fixtures/lineup.json
var embeddedLineup []byte

const (
	// Lineup slots start at 2024-01-01T00:00:00Z, two hours apart
	fixtureBaseTimeMs     int64 = 1704067200000
	fixtureSlotMs         int64 = 2 * 60 * 60 * 1000
	fixtureDefaultMins          = 120
	fixtureFormat               = models.FormatMP4
	fixtureAssetType            = "SVOD"
	fixtureOwnership            = "starz"
	fixtureGenreSeparator       = ", "
)

// rawLineup is the EPG response envelope of the lineup feed
type rawLineup struct {
	Status  bool         `json:"status"`
	Runtime string       `json:"runtime"`
	Total   int          `json:"total"`
	Data    []rawChannel `json:"data"`
}

type rawChannel struct {
	ID           int64                 `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Slug         string                `json:"slug"`
	Type         string                `json:"type"`
	Images       []models.ChannelImage `json:"images"`
	Genres       []string              `json:"genres"`
	Subscription []string              `json:"subscription"`
	Events       [][]rawEvent          `json:"events"`
}

type rawEvent struct {
	ID          string `json:"id"`
	VideoURI    string `json:"videoUri"`
	Title       string `json:"title"`
	Plot        string `json:"plot"`
	Image16x9   string `json:"image_16_9"`
	Image2x3    string `json:"image_2_3"`
	RuntimeMins int    `json:"runtimeMins"`
	Genres      string `json:"genres"`
	Status      string `json:"status"`
}

// FixtureProvider serves a lineup from a JSON document, either a file or the embedded default
type FixtureProvider struct {
	path  string
	delay time.Duration
}

// FixtureOption configures a FixtureProvider
type FixtureOption func(*FixtureProvider)

// WithFixtureDelay simulates feed latency before each fetch
func WithFixtureDelay(d time.Duration) FixtureOption {
	return func(p *FixtureProvider) {
		p.delay = d
	}
}

// NewFixtureProvider creates a provider reading path, or the embedded lineup when path is empty
func NewFixtureProvider(path string, opts ...FixtureOption) *FixtureProvider {
	p := &FixtureProvider{path: path}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns the fixture file path, empty for the embedded lineup
func (p *FixtureProvider) Path() string {
	return p.path
}

// FetchChannelPrograms reads and converts the lineup
func (p *FixtureProvider) FetchChannelPrograms(ctx context.Context) (*models.Channel, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	data := embeddedLineup
	if p.path != "" {
		b, err := os.ReadFile(p.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read lineup %s: %w", p.path, err)
		}
		data = b
	}

	channel, err := ParseLineup(data)
	if err != nil {
		return nil, err
	}

	logger.Log.Debug().
		Str("path", p.path).
		Int64("channel_id", channel.ID).
		Int("events", len(channel.Events)).
		Msg("Loaded fixture lineup")

	return channel, nil
}

// ParseLineup decodes an EPG response and converts its first channel
func ParseLineup(data []byte) (*models.Channel, error) {
	var doc rawLineup
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLineup, err)
	}
	if len(doc.Data) == 0 {
		return nil, ErrNoChannel
	}

	raw := doc.Data[0]
	channel := &models.Channel{
		ID:           raw.ID,
		Title:        raw.Title,
		Description:  raw.Description,
		Slug:         raw.Slug,
		Type:         raw.Type,
		Images:       raw.Images,
		Genres:       raw.Genres,
		Subscription: raw.Subscription,
	}

	// The feed nests the lineup one level deep; only the first group is used
	if len(raw.Events) > 0 {
		channel.Events = make([]models.Event, 0, len(raw.Events[0]))
		for i, re := range raw.Events[0] {
			channel.Events = append(channel.Events, convertEvent(re, i, raw.ID))
		}
	}

	return channel, nil
}

func convertEvent(raw rawEvent, index int, channelID int64) models.Event {
	start := fixtureBaseTimeMs + int64(index)*fixtureSlotMs
	mins := raw.RuntimeMins
	if mins <= 0 {
		mins = fixtureDefaultMins
	}
	duration := int64(mins) * 60 * 1000

	status := models.EventStatus(raw.Status)
	if status == "" {
		status = models.StatusEnded
	}

	description := raw.Plot
	if description == "" {
		description = raw.Title
	}

	var genres []string
	if raw.Genres != "" {
		genres = strings.Split(raw.Genres, fixtureGenreSeparator)
	}

	var urls []models.StreamingURL
	if raw.VideoURI != "" {
		urls = []models.StreamingURL{{
			URL:        raw.VideoURI,
			PID:        raw.ID,
			Format:     fixtureFormat,
			AssetTypes: []string{fixtureAssetType},
		}}
	}

	return models.Event{
		ID:          raw.ID,
		ChannelID:   channelID,
		Position:    index,
		GUID:        raw.ID,
		Title:       raw.Title,
		Description: description,
		Slug:        raw.ID,
		Status:      status,
		TSStart:     start,
		TSEnd:       start + duration,
		Duration:    duration,
		Images: []models.EventImage{
			{URL: raw.Image16x9, Type: models.ImageType16x9},
			{URL: raw.Image2x3, Type: models.ImageType2x3},
		},
		StreamingURLs:    urls,
		Genres:           genres,
		ContentOwnership: []string{fixtureOwnership},
	}
}
