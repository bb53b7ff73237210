package source

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/logger"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/metrics"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/pkg/types"
)

const (
	readChunkSize = 1024
	backoffBase   = 500 * time.Millisecond
	backoffMax    = 30 * time.Second
)

// ReaderOptions configures a source reader.
type ReaderOptions struct {
	UserAgent      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration // max time between bytes on the stream
	Metrics        *metrics.Metrics
}

// deadlineConn arms a fresh read deadline before every read, bounding the
// time between bytes rather than the whole connection. A camera that stops
// sending trips the deadline and the reader treats it like any other read
// failure.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

// Reader ingests one camera endpoint: it opens a streaming HTTP GET,
// delimits JPEG frames from the raw byte stream, and puts each into its
// FrameBuffer. It runs an unbounded reconnect loop isolated from every
// other source.
type Reader struct {
	id     int
	url    string
	buffer *FrameBuffer
	opts   ReaderOptions
	client *http.Client

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewReader creates a reader feeding buffer from url.
func NewReader(id int, url string, buffer *FrameBuffer, opts ReaderOptions) *Reader {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, timeout: opts.ReadTimeout}, nil
		},
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ConnectTimeout,
	}
	return &Reader{
		id:     id,
		url:    url,
		buffer: buffer,
		opts:   opts,
		// No overall client timeout: the response body is an endless
		// stream. Connect, TLS, and response headers are bounded above;
		// body reads are bounded per read by deadlineConn.
		client: &http.Client{Transport: transport},
		done:   make(chan struct{}),
	}
}

// Start launches the ingest loop.
func (r *Reader) Start() {
	if r.started {
		return
	}
	r.started = true
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.run(ctx)
}

// Stop requests a cooperative shutdown. An in-flight read is abandoned via
// context cancellation; the loop exits at its next iteration.
func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Wait blocks until the ingest loop has exited.
func (r *Reader) Wait() {
	if r.started {
		<-r.done
	}
}

func (r *Reader) run(ctx context.Context) {
	defer close(r.done)

	tag := fmt.Sprintf("Source %d", r.id)
	logger.Info(tag, "Starting ingest from %s", r.url)

	var seq uint64
	delim := &delimiter{}
	inBurst := false

	for {
		if ctx.Err() != nil {
			logger.Info(tag, "Ingest stopped")
			return
		}

		r.buffer.markAttempt(time.Now())
		delim.reset()

		err := r.stream(ctx, tag, delim, &seq, &inBurst)
		if ctx.Err() != nil {
			logger.Info(tag, "Ingest stopped")
			return
		}

		// Connect or mid-stream failure: back off and reconnect.
		backoff := r.nextBackoff()
		r.buffer.markFailure(time.Now(), backoff)
		if !inBurst {
			// Log only the first failure of a burst to avoid log storms.
			logger.Warn(tag, "Stream failed (%v), retrying with backoff", err)
			inBurst = true
		}

		if r.opts.Metrics != nil {
			r.opts.Metrics.SourceReconnects.Add(1)
		}

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
	}
}

// stream performs one connection attempt and reads until it fails. A nil
// return never happens in steady state; every exit is an error or a
// cancelled context.
func (r *Reader) stream(ctx context.Context, tag string, delim *delimiter, seq *uint64, inBurst *bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		r.countConnectFailure()
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.countConnectFailure()
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.countConnectFailure()
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if *inBurst {
		logger.Info(tag, "Stream recovered after failures")
		*inBurst = false
	}
	r.buffer.markSuccess()

	chunk := make([]byte, readChunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			delim.feed(chunk[:n], func(frame []byte) {
				*seq++
				evicted := r.buffer.Put(&types.Frame{
					Data:      frame,
					Timestamp: time.Now(),
					SourceID:  r.id,
					Seq:       *seq,
				})
				r.buffer.markDelivered()
				if r.opts.Metrics != nil {
					r.opts.Metrics.FramesIngested.Add(1)
					if evicted {
						r.opts.Metrics.FramesOverwritten.Add(1)
					}
				}
			})
			if delim.overflowed() {
				logger.Warn(tag, "No EOI marker within %d bytes, resetting accumulator", maxAccumulation)
				if r.opts.Metrics != nil {
					r.opts.Metrics.OversizeResets.Add(1)
				}
			}
		}
		if err != nil {
			if r.opts.Metrics != nil && ctx.Err() == nil {
				r.opts.Metrics.ReadFailures.Add(1)
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

func (r *Reader) countConnectFailure() {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ConnectFailures.Add(1)
	}
}

// nextBackoff grows exponentially with the consecutive failure count,
// capped at backoffMax. The count resets on the next successful connect.
func (r *Reader) nextBackoff() time.Duration {
	failures := r.buffer.Status().ConsecutiveFailures
	backoff := backoffBase
	for i := 0; i < failures && backoff < backoffMax; i++ {
		backoff *= 2
	}
	if backoff > backoffMax {
		backoff = backoffMax
	}
	return backoff
}
