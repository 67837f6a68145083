package models

import (
	"time"
)

// ChannelImage is a logo or poster reference attached to a channel
type ChannelImage struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Channel represents a linear channel and its event lineup
type Channel struct {
	ID           int64          `json:"id" gorm:"type:integer;primaryKey;autoIncrement:false;column:id"`
	Title        string         `json:"title" gorm:"type:text;not null;column:title"`
	Description  string         `json:"description" gorm:"type:text;column:description"`
	Slug         string         `json:"slug" gorm:"type:text;column:slug"`
	Type         string         `json:"type" gorm:"type:text;column:type"`
	Images       []ChannelImage `json:"images" gorm:"type:text;serializer:json;column:images"`
	Genres       []string       `json:"genres" gorm:"type:text;serializer:json;column:genres"`
	Subscription []string       `json:"subscription" gorm:"type:text;serializer:json;column:subscription"`
	Events       []Event        `json:"events" gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// FindLiveEvent returns the first live event of the lineup, or nil
func (c *Channel) FindLiveEvent() *Event {
	for i := range c.Events {
		if c.Events[i].IsLive() {
			return &c.Events[i]
		}
	}
	return nil
}
