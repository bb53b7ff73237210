package web

import (
	"net/http"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/logger"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/metrics"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/source"
)

// pollInterval is how long a publisher sleeps when its buffer is empty.
const pollInterval = 33 * time.Millisecond

var (
	partHeader = []byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")
	partFooter = []byte("\r\n")
)

// streamMJPEG drains buf to one HTTP client as a multipart MJPEG response.
// It polls the buffer, writing a part per frame, until the client
// disconnects; the publisher has no termination signal of its own.
func streamMJPEG(w http.ResponseWriter, r *http.Request, buf *source.FrameBuffer, m *metrics.Metrics) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	if m != nil {
		m.ActiveViewers.Add(1)
		m.TotalViewers.Add(1)
		defer m.ActiveViewers.Add(-1)
	}

	ctx := r.Context()
	for {
		frame, ok := buf.Get()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		if _, err := w.Write(partHeader); err != nil {
			logger.Debug("MJPEG", "Client disconnected during header write: %v", err)
			return
		}
		if _, err := w.Write(frame.Data); err != nil {
			logger.Debug("MJPEG", "Client disconnected during frame write: %v", err)
			return
		}
		if _, err := w.Write(partFooter); err != nil {
			logger.Debug("MJPEG", "Client disconnected during delimiter write: %v", err)
			return
		}
		flusher.Flush()

		if m != nil {
			m.FramesServed.Add(1)
		}
	}
}
