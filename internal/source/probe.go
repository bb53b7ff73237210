package source

import (
	"net/http"
	"time"
)

// ProbeResult is the outcome of one bounded reachability check. It feeds
// the viewer page's initial display only; the ingest loop does its own
// retrying.
type ProbeResult struct {
	SourceID  int    `json:"id"`
	URL       string `json:"url"`
	Reachable bool   `json:"status"`
	Err       string `json:"error,omitempty"`
}

// Prober issues a single bounded-timeout GET per source URL.
type Prober struct {
	client    *http.Client
	userAgent string
}

// NewProber creates a prober with the given per-probe timeout.
func NewProber(timeout time.Duration, userAgent string) *Prober {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Prober{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Check probes a single URL.
func (p *Prober) Check(id int, url string) ProbeResult {
	result := ProbeResult{SourceID: id, URL: url}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	// Drop the body immediately; the probe only cares about the status line.
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		result.Reachable = true
	} else {
		result.Err = resp.Status
	}
	return result
}

// CheckAll probes every URL sequentially in id order.
func (p *Prober) CheckAll(urls []string) []ProbeResult {
	results := make([]ProbeResult, len(urls))
	for i, url := range urls {
		results[i] = p.Check(i+1, url)
	}
	return results
}
