package connectivity

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultProbeURL answers with 204 and no body.
	DefaultProbeURL      = "https://clients3.google.com/generate_204"
	DefaultProbeInterval = 10 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

// Prober polls a URL and feeds the outcome into a Monitor. It is the
// reachability source for hosts that do not push network events.
type Prober struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
	Client   *http.Client
	Logger   zerolog.Logger
}

// Check performs one probe. Any HTTP response counts as reachable. The
// error is non-nil only when ctx ended before the probe could tell, in
// which case the result says nothing about the network.
func (p *Prober) Check(ctx context.Context) (bool, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	url := p.URL
	if url == "" {
		url = DefaultProbeURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
	if err != nil {
		p.Logger.Warn().Err(err).Str("url", url).Msg("invalid probe request")
		return false, nil
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		p.Logger.Debug().Err(err).Str("url", url).Msg("connectivity probe failed")
		return false, nil
	}
	resp.Body.Close()
	return true, nil
}

// Run probes immediately and then every Interval until ctx is done.
// Stopping is not reported to m as a loss of connectivity.
func (p *Prober) Run(ctx context.Context, m *Monitor) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		reachable, err := p.Check(ctx)
		if err != nil {
			return
		}
		m.Update(reachable)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
