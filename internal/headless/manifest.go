package headless

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Eyevinn/hls-m3u8/m3u8"
	"github.com/stwalsh4118/livetv/internal/backend"
)

const (
	minRefreshInterval     = 2 * time.Second
	defaultMPDRefresh      = 5 * time.Second
	defaultDVRWindowSecond = 30.0
)

// manifest is the parsed form of an HLS or DASH document
type manifest struct {
	info backend.MediaInfo
	// refresh is how often a live manifest should be re-fetched
	refresh time.Duration
	// variant is set when an HLS master playlist points at a media playlist to fetch next
	variant string
}

func isDASH(rawURL string, body []byte) bool {
	if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".mpd") {
		return true
	}
	return bytes.Contains(body, []byte("<MPD"))
}

// parseHLS decodes an HLS playlist. A master playlist yields the first variant's absolute URL.
func parseHLS(base string, body []byte) (*manifest, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("#EXTM3U")) {
		return nil, backend.NewLoadError(backend.CodeManifestInvalid, "missing #EXTM3U header", nil)
	}
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, backend.NewLoadError(backend.CodeManifestInvalid, "invalid HLS playlist", err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		for _, v := range master.Variants {
			if v == nil || v.URI == "" {
				continue
			}
			ref, err := resolveRef(base, v.URI)
			if err != nil {
				return nil, backend.NewLoadError(backend.CodeManifestInvalid, "invalid variant uri", err)
			}
			return &manifest{variant: ref}, nil
		}
		return nil, backend.NewLoadError(backend.CodeManifestEmpty, "master playlist has no variants", nil)

	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		var total float64
		var count int
		for _, seg := range media.Segments {
			if seg == nil {
				continue
			}
			total += seg.Duration
			count++
		}
		if count == 0 {
			return nil, backend.NewLoadError(backend.CodeManifestEmpty, "media playlist has no segments", nil)
		}

		if media.Closed {
			return &manifest{info: backend.MediaInfo{Duration: total}}, nil
		}

		refresh := time.Duration(float64(media.TargetDuration) * float64(time.Second))
		if refresh < minRefreshInterval {
			refresh = minRefreshInterval
		}
		return &manifest{
			info:    backend.MediaInfo{Live: true, Window: total},
			refresh: refresh,
		}, nil

	default:
		return nil, backend.NewLoadError(backend.CodeManifestUnsupported, "unknown playlist type", nil)
	}
}

// mpdDocument holds the MPD attributes the engine needs
type mpdDocument struct {
	XMLName                   xml.Name `xml:"MPD"`
	Type                      string   `xml:"type,attr"`
	MediaPresentationDuration string   `xml:"mediaPresentationDuration,attr"`
	TimeShiftBufferDepth      string   `xml:"timeShiftBufferDepth,attr"`
	MinimumUpdatePeriod       string   `xml:"minimumUpdatePeriod,attr"`
	Periods                   []struct {
		Duration string `xml:"duration,attr"`
	} `xml:"Period"`
}

// parseMPD reads presentation type, duration and DVR depth from a DASH manifest
func parseMPD(body []byte) (*manifest, error) {
	var doc mpdDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, backend.NewLoadError(backend.CodeManifestInvalid, "invalid DASH manifest", err)
	}
	if len(doc.Periods) == 0 {
		return nil, backend.NewLoadError(backend.CodeManifestEmpty, "DASH manifest has no periods", nil)
	}

	if strings.EqualFold(doc.Type, "dynamic") {
		window := defaultDVRWindowSecond
		if d, err := parseISODuration(doc.TimeShiftBufferDepth); err == nil && d > 0 {
			window = d.Seconds()
		}
		refresh := defaultMPDRefresh
		if d, err := parseISODuration(doc.MinimumUpdatePeriod); err == nil && d > 0 {
			refresh = d
		}
		if refresh < minRefreshInterval {
			refresh = minRefreshInterval
		}
		return &manifest{
			info:    backend.MediaInfo{Live: true, Window: window},
			refresh: refresh,
		}, nil
	}

	duration, err := parseISODuration(doc.MediaPresentationDuration)
	if err != nil || duration <= 0 {
		// Fall back to the sum of period durations
		var total time.Duration
		for _, p := range doc.Periods {
			if d, err := parseISODuration(p.Duration); err == nil {
				total += d
			}
		}
		duration = total
	}

	return &manifest{info: backend.MediaInfo{Duration: duration.Seconds()}}, nil
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseISODuration parses xs:duration values such as PT1H2M3.5S or P1DT2H
func parseISODuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "P" || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	// Years and months use the fixed lengths DASH tooling assumes
	units := []float64{365 * 24 * 3600, 30 * 24 * 3600, 24 * 3600, 3600, 60, 1}
	var seconds float64
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		seconds += v * unit
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
