// Package backend abstracts the playback engines that drive the single video surface.
package backend

import (
	"regexp"
	"strings"
)

// Kind identifies a playback backend variant
type Kind string

// Backend kinds
const (
	KindProgressive Kind = "progressive"
	KindAdaptive    Kind = "adaptive"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

const progressiveHost = "commondatastorage.googleapis.com"

var (
	progressiveExt = regexp.MustCompile(`(?i)\.(mp4|webm|ogg|mov)$`)
	manifestExt    = regexp.MustCompile(`(?i)\.(m3u8|mpd)$`)
)

// IsManifest reports whether url points at an HLS or DASH manifest
func IsManifest(url string) bool {
	return manifestExt.MatchString(url) || strings.Contains(url, ".m3u8")
}

// IsProgressive reports whether url is a plain media file the element can play directly
func IsProgressive(url string) bool {
	if IsManifest(url) {
		return false
	}
	return progressiveExt.MatchString(url) || strings.Contains(url, progressiveHost)
}

// DetectKind sniffs the backend variant for url; anything not progressive goes through the adaptive engine
func DetectKind(url string) Kind {
	if IsProgressive(url) {
		return KindProgressive
	}
	return KindAdaptive
}
