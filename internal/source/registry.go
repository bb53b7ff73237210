package source

import (
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/metrics"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/pkg/types"
)

// Registry owns the per-source buffers and readers. It is constructed once
// from configuration and passed by reference to the mixer and HTTP layers;
// there is no ambient global state.
type Registry struct {
	entries []*entry
}

type entry struct {
	id     int
	url    string
	buffer *FrameBuffer
	reader *Reader
}

// NewRegistry builds one buffer and reader per URL. Source ids are 1-based
// in configuration order.
func NewRegistry(urls []string, opts ReaderOptions, m *metrics.Metrics) *Registry {
	if opts.Metrics == nil {
		opts.Metrics = m
	}
	reg := &Registry{}
	for i, url := range urls {
		id := i + 1
		buf := NewFrameBuffer(id, url)
		reg.entries = append(reg.entries, &entry{
			id:     id,
			url:    url,
			buffer: buf,
			reader: NewReader(id, url, buf, opts),
		})
	}
	return reg
}

// Len returns the number of configured sources.
func (r *Registry) Len() int {
	return len(r.entries)
}

// URLs returns the configured source URLs in id order.
func (r *Registry) URLs() []string {
	urls := make([]string, len(r.entries))
	for i, e := range r.entries {
		urls[i] = e.url
	}
	return urls
}

// Buffer returns the frame buffer for the 1-based source id.
func (r *Registry) Buffer(id int) (*FrameBuffer, bool) {
	if id < 1 || id > len(r.entries) {
		return nil, false
	}
	return r.entries[id-1].buffer, true
}

// StartAll launches every source reader.
func (r *Registry) StartAll() {
	for _, e := range r.entries {
		e.reader.Start()
	}
}

// StopAll requests a cooperative stop of every reader and waits for all of
// them to exit.
func (r *Registry) StopAll() {
	for _, e := range r.entries {
		e.reader.Stop()
	}
	for _, e := range r.entries {
		e.reader.Wait()
	}
}

// StatusSnapshot returns the health block of every source in id order.
func (r *Registry) StatusSnapshot() []types.SourceStatus {
	statuses := make([]types.SourceStatus, len(r.entries))
	for i, e := range r.entries {
		statuses[i] = e.buffer.Status()
	}
	return statuses
}
