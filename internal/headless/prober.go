package headless

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/stwalsh4118/livetv/internal/backend"
)

const (
	defaultProbeTimeout = 10 * time.Second
	// Used when the server does not advertise a duration
	defaultProgressiveDuration = 600.0
	contentDurationHeader      = "X-Content-Duration"
)

// HTTPProber checks a progressive URL with a HEAD request
type HTTPProber struct {
	client          *http.Client
	defaultDuration float64
}

// NewHTTPProber creates a prober; nil client and zero duration select defaults
func NewHTTPProber(client *http.Client, defaultDuration float64) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: defaultProbeTimeout}
	}
	if defaultDuration <= 0 {
		defaultDuration = defaultProgressiveDuration
	}
	return &HTTPProber{client: client, defaultDuration: defaultDuration}
}

// Probe issues HEAD url and reads the advertised duration
func (p *HTTPProber) Probe(ctx context.Context, url string) (backend.MediaInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return backend.MediaInfo{}, backend.NewLoadError(backend.CodeMediaSrcUnsupported, "invalid source url", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backend.MediaInfo{}, ctx.Err()
		}
		return backend.MediaInfo{}, backend.NewLoadError(backend.CodeMediaNetwork, "source unreachable", err)
	}
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnsupportedMediaType:
		return backend.MediaInfo{}, backend.NewLoadError(backend.CodeMediaSrcUnsupported,
			fmt.Sprintf("source returned HTTP %d", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return backend.MediaInfo{}, backend.NewLoadError(backend.CodeMediaNetwork,
			fmt.Sprintf("source returned HTTP %d", resp.StatusCode), nil)
	}

	duration := p.defaultDuration
	if v := resp.Header.Get(contentDurationHeader); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil && d > 0 {
			duration = d
		}
	}

	return backend.MediaInfo{Duration: duration}, nil
}

// isTimeout reports whether err is a transport or context timeout
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
