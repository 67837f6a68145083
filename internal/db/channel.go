// Package db provides the sqlite catalog store and its repositories.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/livetv/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChannelRepository handles database operations for channels
type ChannelRepository struct {
	db *DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Upsert inserts a channel or updates its metadata when the id already exists.
// Events are not touched; use EventRepository.ReplaceForChannel for the lineup.
func (r *ChannelRepository) Upsert(ctx context.Context, channel *models.Channel) error {
	return upsertChannel(r.db.WithContext(ctx), channel)
}

func upsertChannel(tx *gorm.DB, channel *models.Channel) error {
	channel.UpdatedAt = time.Now().UTC()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = channel.UpdatedAt
	}

	result := tx.Omit("Events").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "slug", "type", "images", "genres", "subscription", "updated_at"}),
		}).
		Create(channel)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert channel: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a channel by id without its events
func (r *ChannelRepository) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	var channel models.Channel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&channel)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &channel, nil
}

// GetWithEvents retrieves a channel and its lineup ordered by position
func (r *ChannelRepository) GetWithEvents(ctx context.Context, id int64) (*models.Channel, error) {
	var channel models.Channel
	result := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&channel)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &channel, nil
}

// First retrieves the lowest-id channel with its lineup
func (r *ChannelRepository) First(ctx context.Context) (*models.Channel, error) {
	var channel models.Channel
	result := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("id ASC").
		First(&channel)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &channel, nil
}

// List retrieves all channels without events, ordered by id
func (r *ChannelRepository) List(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	result := r.db.WithContext(ctx).Order("id ASC").Find(&channels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list channels: %w", MapGormError(result.Error))
	}
	return channels, nil
}

// Delete deletes a channel by id (cascade delete to events)
func (r *ChannelRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Channel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete channel: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
