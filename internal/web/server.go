package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/config"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/metrics"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/mixer"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/source"
)

// Server exposes the viewer page, the MJPEG publishers, and the status APIs.
type Server struct {
	cfg      config.Config
	registry *source.Registry
	mixer    *mixer.Mixer
	prober   *source.Prober
	metrics  *metrics.Metrics

	probeMu     sync.Mutex
	probeResult []source.ProbeResult
}

// NewServer wires the HTTP layer to an existing registry and mixer. The
// startup probe results seed the viewer page's initial display.
func NewServer(cfg config.Config, registry *source.Registry, mx *mixer.Mixer, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		mixer:    mx,
		prober:   source.NewProber(cfg.ProbeTimeout(), cfg.Sources.UserAgent),
		metrics:  m,
	}
	s.RefreshProbes()
	return s
}

// RefreshProbes re-runs the startup reachability probe against every
// configured source. Called once at construction and again when the config
// watcher fires.
func (s *Server) RefreshProbes() {
	results := s.prober.CheckAll(s.registry.URLs())
	s.probeMu.Lock()
	s.probeResult = results
	s.probeMu.Unlock()
}

func (s *Server) probes() []source.ProbeResult {
	s.probeMu.Lock()
	defer s.probeMu.Unlock()
	out := make([]source.ProbeResult, len(s.probeResult))
	copy(out, s.probeResult)
	return out
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/check_streams", s.handleCheckStreams)
	mux.HandleFunc("/stream/", s.handleStream)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONWithStatus(w, map[string]any{"error": "Page not found"}, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(renderIndex(s.probes())))
}

// handleCheckStreams re-checks every source live, mirroring the polling
// endpoint the viewer page uses to update its status badges.
func (s *Server) handleCheckStreams(w http.ResponseWriter, r *http.Request) {
	s.RefreshProbes()
	writeJSON(w, s.probes())
}

// handleStream serves /stream/{id} where id is a 1-based source number or
// "mixed" for the compositor output.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/stream/")

	var buf *source.FrameBuffer
	if name == "mixed" {
		buf = s.mixer.Output()
	} else {
		id, err := strconv.Atoi(name)
		if err != nil {
			writeJSONWithStatus(w, map[string]any{"error": "invalid stream id"}, http.StatusBadRequest)
			return
		}
		var ok bool
		buf, ok = s.registry.Buffer(id)
		if !ok {
			writeJSONWithStatus(w, map[string]any{"error": fmt.Sprintf("unknown stream %d", id)}, http.StatusNotFound)
			return
		}
	}

	streamMJPEG(w, r, buf, s.metrics)
}

func (s *Server) statusPayload() map[string]any {
	return map[string]any{
		"sources":    s.registry.StatusSnapshot(),
		"mixer":      s.mixer.State(),
		"target_fps": s.cfg.Mixer.TargetFPS,
		"timestamp":  float64(time.Now().Unix()),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statusPayload())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		if err := writeSSE(w, s.statusPayload()); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func writeSSE(w http.ResponseWriter, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
