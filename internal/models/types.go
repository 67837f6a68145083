package models

// EventStatus is the broadcast status of an event, fixed for the lifetime of a lineup
type EventStatus string

// Event statuses
const (
	StatusLive     EventStatus = "live"
	StatusEnded    EventStatus = "ended"
	StatusUpcoming EventStatus = "upcoming"
)

// String returns the string representation of the status
func (s EventStatus) String() string {
	return string(s)
}

// IsValid checks if the status is one of the known values
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusLive, StatusEnded, StatusUpcoming:
		return true
	default:
		return false
	}
}

// Streaming URL formats understood by the resolver
const (
	FormatDASH = "MPEG-DASH"
	FormatHLS  = "M3U"
	FormatMP4  = "MP4"
)

// Image types produced by the fixture lineup
const (
	ImageType16x9 = "16_9"
	ImageType2x3  = "2_3"
)
