// Package resolver picks the stream URL to play for an event.
package resolver

import (
	"github.com/stwalsh4118/livetv/internal/models"
)

// DefaultFallbackURL is a public DASH stream used when an event has no source or its source fails
const DefaultFallbackURL = "https://dash.akamaized.net/akamai/bbb_30fps/bbb_30fps.mpd"

// Resolved is the outcome of resolving an event
type Resolved struct {
	URL        string
	Format     string
	Identifier string
	// NoSource is set when the event had no candidates and URL is the fallback
	NoSource bool
}

// Resolver chooses a stream URL among an event's candidates
type Resolver struct {
	fallbackURL string
}

// New creates a resolver; an empty fallbackURL selects DefaultFallbackURL
func New(fallbackURL string) *Resolver {
	if fallbackURL == "" {
		fallbackURL = DefaultFallbackURL
	}
	return &Resolver{fallbackURL: fallbackURL}
}

// Fallback returns the fixed well-known stream URL
func (r *Resolver) Fallback() string {
	return r.fallbackURL
}

// IsFallback reports whether url is the fallback stream
func (r *Resolver) IsFallback(url string) bool {
	return url == r.fallbackURL
}

// Resolve picks the first DASH candidate, else the first HLS candidate, else the first candidate.
// It never fails: an event without candidates resolves to the fallback.
func (r *Resolver) Resolve(event *models.Event) Resolved {
	if event == nil || len(event.StreamingURLs) == 0 {
		return Resolved{URL: r.fallbackURL, Format: models.FormatDASH, NoSource: true}
	}

	pick := Best(event.StreamingURLs)
	return Resolved{
		URL:        pick.URL,
		Format:     pick.Format,
		Identifier: pick.PID,
	}
}

// Best returns the preferred candidate; candidates must be non-empty
func Best(candidates []models.StreamingURL) models.StreamingURL {
	for _, c := range candidates {
		if c.Format == models.FormatDASH {
			return c
		}
	}
	for _, c := range candidates {
		if c.Format == models.FormatHLS {
			return c
		}
	}
	return candidates[0]
}
