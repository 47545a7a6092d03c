package health

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const (
	DefaultPath    = "/system_stats"
	defaultTimeout = 10 * time.Second
)

// Probe treats a 200 from the health path as ready. Anything else,
// transport errors included, is not ready.
type Probe struct {
	path       string
	httpClient *http.Client
}

var _ ports.ReadinessProbe = (*Probe)(nil)

func NewProbe(path string, timeout time.Duration) *Probe {
	if path == "" {
		path = DefaultPath
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Probe{path: path, httpClient: &http.Client{Timeout: timeout}}
}

func (p *Probe) IsReady(ctx context.Context, baseURL string) bool {
	if baseURL == "" {
		return false
	}

	url := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(p.path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode == http.StatusOK
}
