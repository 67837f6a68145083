package db

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/livetv/internal/models"
	"gorm.io/gorm"
)

// EventRepository handles database operations for lineup events
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetByID retrieves an event by its id
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&event)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &event, nil
}

// ListByChannel retrieves a channel's lineup in position order
func (r *EventRepository) ListByChannel(ctx context.Context, channelID int64) ([]models.Event, error) {
	var events []models.Event
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("position ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list events: %w", MapGormError(result.Error))
	}
	return events, nil
}

// ListByStatus retrieves a channel's events with the given status in position order
func (r *EventRepository) ListByStatus(ctx context.Context, channelID int64, status models.EventStatus) ([]models.Event, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	var events []models.Event
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND status = ?", channelID, status).
		Order("position ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list events by status: %w", MapGormError(result.Error))
	}
	return events, nil
}

// ReplaceForChannel swaps a channel's whole lineup for events, assigning positions by slice order
func (r *EventRepository) ReplaceForChannel(ctx context.Context, channelID int64, events []models.Event) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return replaceEvents(tx, channelID, events)
	})
}

func replaceEvents(tx *gorm.DB, channelID int64, events []models.Event) error {
	if err := tx.Where("channel_id = ?", channelID).Delete(&models.Event{}).Error; err != nil {
		return fmt.Errorf("failed to clear events: %w", MapGormError(err))
	}
	if len(events) == 0 {
		return nil
	}

	rows := make([]models.Event, len(events))
	for i, e := range events {
		e.ChannelID = channelID
		e.Position = i
		rows[i] = e
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert events: %w", MapGormError(err))
	}
	return nil
}

// SaveLineup upserts the channel and replaces its events in one transaction
func (db *DB) SaveLineup(ctx context.Context, channel *models.Channel) error {
	events := channel.Events
	return db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := upsertChannel(tx, channel); err != nil {
			return err
		}
		return replaceEvents(tx, channel.ID, events)
	})
}
