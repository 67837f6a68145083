package catalog

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/livetv/internal/db"
	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/models"
)

// DBProvider serves the lineup stored in the sqlite catalog
type DBProvider struct {
	repos     *db.Repositories
	channelID int64
}

// NewDBProvider creates a provider for channelID, or the first stored channel when channelID is 0
func NewDBProvider(repos *db.Repositories, channelID int64) *DBProvider {
	return &DBProvider{repos: repos, channelID: channelID}
}

// FetchChannelPrograms loads the channel and its ordered events
func (p *DBProvider) FetchChannelPrograms(ctx context.Context) (*models.Channel, error) {
	var (
		channel *models.Channel
		err     error
	)
	if p.channelID == 0 {
		channel, err = p.repos.Channels.First(ctx)
	} else {
		channel, err = p.repos.Channels.GetWithEvents(ctx, p.channelID)
	}
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNoChannel
		}
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	return channel, nil
}

// Seed copies the lineup from src into the database, replacing any stored events
func Seed(ctx context.Context, database *db.DB, src Provider) (*models.Channel, error) {
	channel, err := src.FetchChannelPrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed lineup: %w", err)
	}
	if channel == nil {
		return nil, ErrNoChannel
	}
	if err := validate(channel); err != nil {
		return nil, err
	}

	if err := database.SaveLineup(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to save lineup: %w", err)
	}

	logger.Log.Info().
		Int64("channel_id", channel.ID).
		Int("events", len(channel.Events)).
		Msg("Seeded catalog database")

	return channel, nil
}
