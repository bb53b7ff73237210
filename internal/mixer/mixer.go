package mixer

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/logger"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/metrics"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/source"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/pkg/types"
)

// Mixer composites two source feeds into one output feed with a timed
// crossfade. It pulls the latest frame from each source buffer on a fixed
// tick, runs the transition state machine, and puts encoded composite
// frames into its own output buffer.
type Mixer struct {
	bufA, bufB *source.FrameBuffer
	out        *source.FrameBuffer
	schedule   types.TransitionSchedule
	tick       time.Duration
	metrics    *metrics.Metrics

	// now is replaceable for deterministic tests.
	now func() time.Time

	// State below is owned by the mix loop goroutine.
	showingB       bool
	transitioning  bool
	lastTransition time.Time
	targetW        int
	targetH        int
	lastA, lastB   *image.RGBA
	seq            uint64

	stateMu sync.Mutex
	state   State

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// State is a point-in-time snapshot of the mixer for status reporting.
type State struct {
	ActiveSource   string    `json:"active_source"` // "A" or "B"
	Transitioning  bool      `json:"transitioning"`
	LastTransition time.Time `json:"last_transition"`
	TargetWidth    int       `json:"target_width"`
	TargetHeight   int       `json:"target_height"`
	FramesMixed    uint64    `json:"frames_mixed"`
}

// State returns the current mixer state snapshot.
func (m *Mixer) State() State {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

func (m *Mixer) publishState() {
	m.stateMu.Lock()
	m.state = State{
		ActiveSource:   m.targetName(),
		Transitioning:  m.transitioning,
		LastTransition: m.lastTransition,
		TargetWidth:    m.targetW,
		TargetHeight:   m.targetH,
		FramesMixed:    m.seq,
	}
	m.stateMu.Unlock()
}

// Options configures a Mixer.
type Options struct {
	Schedule types.TransitionSchedule
	Tick     time.Duration // output period; defaults to 1/30s
	Metrics  *metrics.Metrics
}

// New creates a mixer reading from bufA and bufB. The initial state shows
// source A; the first transition starts one interval after Start.
func New(bufA, bufB *source.FrameBuffer, opts Options) *Mixer {
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second / 30
	}
	return &Mixer{
		bufA:     bufA,
		bufB:     bufB,
		out:      source.NewFrameBuffer(0, "mixed"),
		schedule: opts.Schedule,
		tick:     tick,
		metrics:  opts.Metrics,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Output returns the buffer receiving composite frames.
func (m *Mixer) Output() *source.FrameBuffer {
	return m.out
}

// Start launches the mix loop.
func (m *Mixer) Start() {
	if m.started {
		return
	}
	m.started = true
	m.lastTransition = m.now()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx)
}

// Stop requests a cooperative shutdown, observed at the next tick.
func (m *Mixer) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Wait blocks until the mix loop has exited.
func (m *Mixer) Wait() {
	if m.started {
		<-m.done
	}
}

// run schedules ticks against ideal deadlines derived from the previous
// ideal deadline, so one slow tick does not permanently skew the output
// rate. If a tick overruns by more than a full period the schedule
// re-anchors to now instead of bursting to catch up.
func (m *Mixer) run(ctx context.Context) {
	defer close(m.done)

	logger.Info("Mixer", "Starting with %v interval, %v fade, %v tick",
		m.schedule.Interval, m.schedule.Duration, m.tick)

	deadline := m.now()
	for {
		if ctx.Err() != nil {
			logger.Info("Mixer", "Stopped")
			return
		}

		start := m.now()
		m.step(start)
		if m.metrics != nil {
			m.metrics.UpdateMixTick(m.now().Sub(start))
		}

		deadline = deadline.Add(m.tick)
		now := m.now()
		if !deadline.After(now) {
			if now.Sub(deadline) > m.tick {
				deadline = now
			}
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(deadline.Sub(now)):
		}
	}
}

// step produces at most one composite frame for the given instant. It
// reports whether a frame was published.
func (m *Mixer) step(now time.Time) bool {
	frameA := m.fetch(m.bufA, &m.lastA)
	frameB := m.fetch(m.bufB, &m.lastB)

	// No current or cached frame on either side: skip the tick rather
	// than publish stale or synthetic content.
	if frameA == nil && frameB == nil {
		if m.metrics != nil {
			m.metrics.SkippedTicks.Add(1)
		}
		m.publishState()
		return false
	}

	if frameA == nil {
		frameA = blackFrame(m.targetW, m.targetH)
	}
	if frameB == nil {
		frameB = blackFrame(m.targetW, m.targetH)
	}

	if !m.transitioning && now.Sub(m.lastTransition) >= m.schedule.Interval {
		m.lastTransition = now
		m.showingB = !m.showingB
		m.transitioning = true
		logger.Info("Mixer", "Transition started toward source %s", m.targetName())
	}

	var output *image.RGBA
	if m.transitioning {
		progress := float64(now.Sub(m.lastTransition)) / float64(m.schedule.Duration)
		if progress > 1 {
			progress = 1
		}
		eased := smoothstep(progress)
		alpha := eased
		if !m.showingB {
			alpha = 1 - eased
		}
		output = blendRGBA(frameA, frameB, alpha)

		if progress >= 1 {
			m.transitioning = false
			if m.metrics != nil {
				m.metrics.TransitionsDone.Add(1)
			}
			logger.Info("Mixer", "Transition complete, showing source %s", m.targetName())
		}
	} else if m.showingB {
		output = frameB
	} else {
		output = frameA
	}

	encoded, err := encodeJPEG(output)
	if err != nil {
		logger.Error("Mixer", "Encode failed: %v", err)
		return false
	}

	m.seq++
	m.out.Put(&types.Frame{
		Data:      encoded,
		Timestamp: now,
		Seq:       m.seq,
	})
	if m.metrics != nil {
		m.metrics.FramesMixed.Add(1)
	}
	m.publishState()
	return true
}

// fetch takes the latest frame from buf, decodes and normalizes it, and
// refreshes the hold-over cache. On a miss or decode failure it falls back
// to the cached frame, which may be nil if the source never produced one.
func (m *Mixer) fetch(buf *source.FrameBuffer, cache **image.RGBA) *image.RGBA {
	frame, ok := buf.Get()
	if ok {
		img, err := decodeFrame(frame.Data)
		if err != nil {
			if m.metrics != nil {
				m.metrics.DecodeFailures.Add(1)
			}
			logger.Debug("Mixer", "Decode failed for source %d: %v", frame.SourceID, err)
		} else {
			// The first successfully decoded frame of the run fixes the
			// target dimensions for everything that follows.
			if m.targetW == 0 {
				m.targetW = img.Bounds().Dx()
				m.targetH = img.Bounds().Dy()
				logger.Info("Mixer", "Target frame size set to %dx%d", m.targetW, m.targetH)
			}
			img = resizeRGBA(img, m.targetW, m.targetH)
			*cache = img
			return img
		}
	}
	return *cache
}

func (m *Mixer) targetName() string {
	if m.showingB {
		return "B"
	}
	return "A"
}
