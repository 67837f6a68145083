package resolver

import (
	"testing"

	"github.com/stwalsh4118/livetv/internal/models"
)

func TestResolve(t *testing.T) {
	mp4 := models.StreamingURL{URL: "https://cdn/a.mp4", Format: models.FormatMP4, PID: "mp4"}
	hls1 := models.StreamingURL{URL: "https://cdn/a.m3u8", Format: models.FormatHLS, PID: "hls1"}
	hls2 := models.StreamingURL{URL: "https://cdn/b.m3u8", Format: models.FormatHLS, PID: "hls2"}
	dash := models.StreamingURL{URL: "https://cdn/a.mpd", Format: models.FormatDASH, PID: "dash"}

	tests := []struct {
		name       string
		candidates []models.StreamingURL
		wantURL    string
		wantID     string
		noSource   bool
	}{
		{"no candidates uses fallback", nil, DefaultFallbackURL, "", true},
		{"dash preferred over earlier hls", []models.StreamingURL{mp4, hls1, dash}, dash.URL, "dash", false},
		{"first hls when no dash", []models.StreamingURL{mp4, hls1, hls2}, hls1.URL, "hls1", false},
		{"first element otherwise", []models.StreamingURL{mp4, {URL: "x", Format: "WEBM"}}, mp4.URL, "mp4", false},
		{"single candidate", []models.StreamingURL{hls2}, hls2.URL, "hls2", false},
	}

	r := New("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(&models.Event{StreamingURLs: tt.candidates})
			if got.URL != tt.wantURL {
				t.Errorf("URL = %s, want %s", got.URL, tt.wantURL)
			}
			if got.Identifier != tt.wantID {
				t.Errorf("Identifier = %s, want %s", got.Identifier, tt.wantID)
			}
			if got.NoSource != tt.noSource {
				t.Errorf("NoSource = %v, want %v", got.NoSource, tt.noSource)
			}
		})
	}
}

func TestResolveNilEvent(t *testing.T) {
	got := New("").Resolve(nil)
	if !got.NoSource || got.URL != DefaultFallbackURL {
		t.Errorf("Resolve(nil) = %+v, want fallback", got)
	}
}

func TestCustomFallback(t *testing.T) {
	r := New("https://example.com/alt.mpd")
	if r.Fallback() != "https://example.com/alt.mpd" {
		t.Errorf("Fallback() = %s", r.Fallback())
	}
	if !r.IsFallback("https://example.com/alt.mpd") {
		t.Error("IsFallback() should match configured fallback")
	}
	if r.IsFallback(DefaultFallbackURL) {
		t.Error("IsFallback() should not match the default when overridden")
	}
	if got := r.Resolve(&models.Event{}); got.URL != "https://example.com/alt.mpd" {
		t.Errorf("Resolve() = %s, want custom fallback", got.URL)
	}
}
