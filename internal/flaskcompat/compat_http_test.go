package flaskcompat

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestFlaskCompatIndex(t *testing.T) {
	client := newCompatClient(t)
	resp, body := client.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("GET / content-type = %q", resp.Header.Get("Content-Type"))
	}
	html := string(body)
	mustContain := []string{
		"/stream/1",
		"/stream/mixed",
		"/check_streams",
	}
	for _, needle := range mustContain {
		if !strings.Contains(html, needle) {
			t.Fatalf("GET / missing %q", needle)
		}
	}
}

func TestFlaskCompatUnknownPath(t *testing.T) {
	client := newCompatClient(t)
	resp, body := client.get(t, "/definitely/not/here")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET unknown path status = %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, body)
	if requireString(t, payload["error"], "error") != "Page not found" {
		t.Fatalf("unexpected error payload: %v", payload["error"])
	}
}

func TestFlaskCompatCheckStreams(t *testing.T) {
	client := newCompatClient(t)
	resp, body := client.get(t, "/check_streams")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /check_streams status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		t.Fatalf("/check_streams content-type = %q", resp.Header.Get("Content-Type"))
	}

	var results []any
	if err := json.Unmarshal(body, &results); err != nil {
		t.Fatalf("decode /check_streams: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("/check_streams returned no sources")
	}
	for i, raw := range results {
		item, ok := raw.(map[string]any)
		if !ok {
			t.Fatalf("results[%d] is %T, want object", i, raw)
		}
		requireNumber(t, item["id"], "results.id")
		requireString(t, item["url"], "results.url")
		if _, ok := item["status"].(bool); !ok {
			t.Fatalf("results[%d].status is %T, want bool", i, item["status"])
		}
	}
}

func TestFlaskCompatStatus(t *testing.T) {
	client := newCompatClient(t)
	resp, body := client.get(t, "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/status status = %d", resp.StatusCode)
	}
	assertStatusPayload(t, decodeJSONMap(t, body))
}

func TestFlaskCompatStatusStream(t *testing.T) {
	client := newCompatClient(t)
	event, header, err := readSSEEvent(client.baseURL+"/api/status/stream", 5*time.Second)
	if err != nil {
		t.Fatalf("read sse: %v", err)
	}
	if !strings.Contains(header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("sse content-type = %q", header.Get("Content-Type"))
	}
	assertStatusPayload(t, parseSSEData(t, event))
}

func TestFlaskCompatMetrics(t *testing.T) {
	client := newCompatClient(t)
	resp, body := client.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "relay_frames_mixed_total") {
		t.Fatalf("/metrics missing relay counters")
	}
}
