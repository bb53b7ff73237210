package types

import "time"

// Frame is a complete, self-delimited JPEG image as captured from a camera
// stream. The byte slice is immutable once the frame is created.
type Frame struct {
	Data      []byte    // Raw JPEG bytes, ending with the EOI marker
	Timestamp time.Time // Time the frame was delimited from the stream
	SourceID  int       // 1-based id of the originating source
	Seq       uint64    // Sequential frame number within the source
}

// TransitionSchedule controls the mixer's crossfade timing.
type TransitionSchedule struct {
	Interval time.Duration // Time between transition starts
	Duration time.Duration // Length of a single crossfade
}

// Valid reports whether the schedule satisfies interval > 0 and duration > 0.
func (s TransitionSchedule) Valid() bool {
	return s.Interval > 0 && s.Duration > 0
}

// SourceStatus is the per-source health block maintained by the owning
// reader and read-only everywhere else.
type SourceStatus struct {
	SourceID            int       `json:"id"`
	URL                 string    `json:"url"`
	Online              bool      `json:"online"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastAttempt         time.Time `json:"last_attempt"`
	BackoffUntil        time.Time `json:"backoff_until"`
	FramesDelivered     uint64    `json:"frames_delivered"`
}
