package source

import (
	"sync"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/pkg/types"
)

// FrameBuffer is a latest-wins single-slot frame cell. Put replaces any
// resident frame and never blocks; Get removes and returns the resident
// frame without waiting. Freshness beats completeness: a frame the consumer
// did not collect before the next Put is dropped on purpose.
type FrameBuffer struct {
	mu     sync.Mutex
	frame  *types.Frame
	status types.SourceStatus
}

// NewFrameBuffer creates an empty buffer for the given source.
func NewFrameBuffer(sourceID int, url string) *FrameBuffer {
	return &FrameBuffer{
		status: types.SourceStatus{SourceID: sourceID, URL: url},
	}
}

// Put stores frame, evicting any resident frame. It reports whether a
// frame was evicted.
func (b *FrameBuffer) Put(frame *types.Frame) bool {
	b.mu.Lock()
	evicted := b.frame != nil
	b.frame = frame
	b.mu.Unlock()
	return evicted
}

// Get removes and returns the resident frame. The second return is false
// when the buffer is empty.
func (b *FrameBuffer) Get() (*types.Frame, bool) {
	b.mu.Lock()
	frame := b.frame
	b.frame = nil
	b.mu.Unlock()
	if frame == nil {
		return nil, false
	}
	return frame, true
}

// Status returns a snapshot of the source health block.
func (b *FrameBuffer) Status() types.SourceStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// The mark* methods are called only by the owning reader.

func (b *FrameBuffer) markAttempt(now time.Time) {
	b.mu.Lock()
	b.status.LastAttempt = now
	b.mu.Unlock()
}

func (b *FrameBuffer) markFailure(now time.Time, backoff time.Duration) {
	b.mu.Lock()
	b.status.Online = false
	b.status.ConsecutiveFailures++
	b.status.BackoffUntil = now.Add(backoff)
	b.mu.Unlock()
}

func (b *FrameBuffer) markSuccess() {
	b.mu.Lock()
	b.status.Online = true
	b.status.ConsecutiveFailures = 0
	b.status.BackoffUntil = time.Time{}
	b.mu.Unlock()
}

func (b *FrameBuffer) markDelivered() {
	b.mu.Lock()
	b.status.FramesDelivered++
	b.mu.Unlock()
}
