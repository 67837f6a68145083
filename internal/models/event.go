package models

import (
	"fmt"
	"time"
)

// StreamingURL is one playable source candidate of an event
type StreamingURL struct {
	URL        string   `json:"url"`
	PID        string   `json:"pid"`
	Format     string   `json:"format"`
	AssetTypes []string `json:"asset_types"`
}

// EventImage is an artwork reference attached to an event
type EventImage struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Event represents one program slot in a channel lineup
type Event struct {
	ID               string         `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID        int64          `json:"channel_id" gorm:"type:integer;not null;index;column:channel_id"`
	Position         int            `json:"position" gorm:"type:integer;not null;column:position"`
	GUID             string         `json:"guid" gorm:"type:text;column:guid"`
	Title            string         `json:"title" gorm:"type:text;not null;column:title"`
	Description      string         `json:"description" gorm:"type:text;column:description"`
	Slug             string         `json:"slug" gorm:"type:text;column:slug"`
	Status           EventStatus    `json:"status" gorm:"type:text;not null;column:status"`
	TSStart          int64          `json:"ts_start" gorm:"type:integer;not null;column:ts_start"` // unix ms
	TSEnd            int64          `json:"ts_end" gorm:"type:integer;not null;column:ts_end"`     // unix ms
	Duration         int64          `json:"duration" gorm:"type:integer;not null;column:duration"` // ms
	StreamingURLs    []StreamingURL `json:"streaming_urls" gorm:"type:text;serializer:json;column:streaming_urls"`
	Images           []EventImage   `json:"images" gorm:"type:text;serializer:json;column:images"`
	Genres           []string       `json:"genres" gorm:"type:text;serializer:json;column:genres"`
	ContentOwnership []string       `json:"content_ownership" gorm:"type:text;serializer:json;column:content_ownership"`
}

// IsLive reports whether the event is currently broadcasting
func (e *Event) IsLive() bool {
	return e.Status == StatusLive
}

// IsUpcoming reports whether the event has not started yet
func (e *Event) IsUpcoming() bool {
	return e.Status == StatusUpcoming
}

// IsSelectable reports whether the event may be chosen for playback
func (e *Event) IsSelectable() bool {
	return e.Status == StatusLive || e.Status == StatusEnded
}

// StartTime returns the scheduled start as a UTC time
func (e *Event) StartTime() time.Time {
	return time.UnixMilli(e.TSStart).UTC()
}

// EndTime returns the scheduled end as a UTC time
func (e *Event) EndTime() time.Time {
	return time.UnixMilli(e.TSEnd).UTC()
}

// DurationString returns the duration as "1h 5m" or "45m"
func (e *Event) DurationString() string {
	total := e.Duration / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// ScheduleString returns the air slot as "Jan 1 • 12:00 AM - 02:17 AM"
func (e *Event) ScheduleString() string {
	start := e.StartTime()
	return fmt.Sprintf("%s • %s - %s",
		start.Format("Jan 2"),
		start.Format("03:04 PM"),
		e.EndTime().Format("03:04 PM"))
}
