package headless

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/stwalsh4118/livetv/internal/backend"
)

// LocalSource loads the engine when its asset is present on disk
type LocalSource struct {
	path   string
	module *Module
}

// NewLocalSource creates a source backed by the asset at path
func NewLocalSource(path string, module *Module) *LocalSource {
	return &LocalSource{path: path, module: module}
}

// Name identifies the source in logs
func (s *LocalSource) Name() string { return "local:" + s.path }

// Fetch returns the module when the asset exists
func (s *LocalSource) Fetch(ctx context.Context) (backend.EngineModule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("engine asset unavailable: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("engine asset %s is empty", s.path)
	}
	return s.module, nil
}

// RemoteSource loads the engine when its CDN script answers
type RemoteSource struct {
	url    string
	client *http.Client
	module *Module
}

// NewRemoteSource creates a source backed by the script at url
func NewRemoteSource(url string, client *http.Client, module *Module) *RemoteSource {
	if client == nil {
		client = &http.Client{Timeout: defaultProbeTimeout}
	}
	return &RemoteSource{url: url, client: client, module: module}
}

// Name identifies the source in logs
func (s *RemoteSource) Name() string { return "cdn:" + s.url }

// Fetch checks the script URL with a HEAD request
func (s *RemoteSource) Fetch(ctx context.Context) (backend.EngineModule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid engine url: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine script unreachable: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine script returned HTTP %d", resp.StatusCode)
	}
	return s.module, nil
}
