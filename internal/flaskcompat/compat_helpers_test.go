// Package flaskcompat holds black-box checks against a running server,
// pinning the HTTP contract inherited from the Flask predecessor. The tests
// skip themselves unless a server is reachable; point COMPAT_BASE_URL at a
// running instance to exercise them.
package flaskcompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

const (
	defaultBaseURL        = "http://localhost:8080"
	defaultRequestTimeout = 2 * time.Second
)

type compatClient struct {
	baseURL string
	client  *http.Client
}

func newCompatClient(t *testing.T) *compatClient {
	t.Helper()
	baseURL := os.Getenv("COMPAT_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &http.Client{Timeout: defaultRequestTimeout}

	if !isReachable(client, baseURL+"/api/status") {
		t.Skipf("server not reachable at %s (set COMPAT_BASE_URL to run)", baseURL)
	}

	return &compatClient{
		baseURL: baseURL,
		client:  client,
	}
}

func isReachable(client *http.Client, url string) bool {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func (c *compatClient) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	_ = resp.Body.Close()
	return resp, body
}

// getStream opens path without the overall client timeout, for endpoints
// whose response body never ends.
func (c *compatClient) getStream(t *testing.T, ctx context.Context, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func readSSEEvent(url string, timeout time.Duration) (string, http.Header, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 256)
	for {
		n, readErr := resp.Body.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			if idx := bytes.Index(buf, []byte("\n\n")); idx >= 0 {
				return string(buf[:idx]), resp.Header, nil
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return "", nil, fmt.Errorf("sse stream closed before event")
			}
			return "", nil, fmt.Errorf("read sse: %w", readErr)
		}
	}
}

func parseSSEData(t *testing.T, event string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(event, "\n") {
		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				t.Fatalf("empty sse data line")
			}
			return decodeJSONMap(t, []byte(payload))
		}
	}
	t.Fatalf("no data line in sse event: %q", event)
	return nil
}

func decodeJSONMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode json: %v\nbody=%s", err, string(body))
	}
	return payload
}

func requireString(t *testing.T, value any, field string) string {
	t.Helper()
	str, ok := value.(string)
	if !ok {
		t.Fatalf("expected %s to be string, got %T", field, value)
	}
	return str
}

func requireNumber(t *testing.T, value any, field string) float64 {
	t.Helper()
	num, ok := value.(float64)
	if !ok {
		t.Fatalf("expected %s to be number, got %T", field, value)
	}
	return num
}

func requireBool(t *testing.T, value any, field string) bool {
	t.Helper()
	b, ok := value.(bool)
	if !ok {
		t.Fatalf("expected %s to be bool, got %T", field, value)
	}
	return b
}

func requireMap(t *testing.T, value any, field string) map[string]any {
	t.Helper()
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected %s to be object, got %T", field, value)
	}
	return m
}

func requireSlice(t *testing.T, value any, field string) []any {
	t.Helper()
	s, ok := value.([]any)
	if !ok {
		t.Fatalf("expected %s to be array, got %T", field, value)
	}
	return s
}

func assertSourceStatus(t *testing.T, payload map[string]any, field string) {
	t.Helper()
	requireNumber(t, payload["id"], field+".id")
	requireString(t, payload["url"], field+".url")
	requireBool(t, payload["online"], field+".online")
	requireNumber(t, payload["consecutive_failures"], field+".consecutive_failures")
	requireNumber(t, payload["frames_delivered"], field+".frames_delivered")
}

func assertStatusPayload(t *testing.T, payload map[string]any) {
	t.Helper()
	sources := requireSlice(t, payload["sources"], "sources")
	if len(sources) == 0 {
		t.Fatalf("status has no sources")
	}
	for i, raw := range sources {
		item := requireMap(t, raw, fmt.Sprintf("sources[%d]", i))
		assertSourceStatus(t, item, fmt.Sprintf("sources[%d]", i))
	}

	mixer := requireMap(t, payload["mixer"], "mixer")
	active := requireString(t, mixer["active_source"], "mixer.active_source")
	if active != "A" && active != "B" {
		t.Fatalf("mixer.active_source = %q, want A or B", active)
	}
	requireBool(t, mixer["transitioning"], "mixer.transitioning")
	requireNumber(t, mixer["frames_mixed"], "mixer.frames_mixed")

	requireNumber(t, payload["target_fps"], "target_fps")
	requireNumber(t, payload["timestamp"], "timestamp")
}
