package source

import "bytes"

// eoiMarker is the JPEG End Of Image marker. Byte stuffing guarantees it
// cannot occur inside entropy-coded data, so it is a safe frame terminator.
var eoiMarker = []byte{0xFF, 0xD9}

// maxAccumulation bounds the delimiter buffer when a source never emits an
// EOI marker. 10 MiB is far above any single MJPEG frame.
const maxAccumulation = 10 * 1024 * 1024

// delimiter splits a raw byte stream into complete JPEG frames on the EOI
// marker. It works purely on JPEG byte structure, so camera servers with
// broken multipart framing still produce usable frames. A stream containing
// exactly K EOI markers yields exactly K frames, each the byte run up to and
// including its marker.
type delimiter struct {
	buf     []byte
	scanned int // prefix of buf already searched for the marker
	dropped bool
}

// feed appends chunk and invokes emit once per completed frame. The emitted
// slice is a copy owned by the callee.
func (d *delimiter) feed(chunk []byte, emit func([]byte)) {
	d.buf = append(d.buf, chunk...)

	for {
		// Back up one byte in case the marker straddled the last chunk.
		from := d.scanned - 1
		if from < 0 {
			from = 0
		}
		idx := bytes.Index(d.buf[from:], eoiMarker)
		if idx < 0 {
			d.scanned = len(d.buf)
			break
		}
		end := from + idx + len(eoiMarker)

		frame := make([]byte, end)
		copy(frame, d.buf[:end])
		emit(frame)

		d.buf = d.buf[end:]
		d.scanned = 0
	}

	if len(d.buf) > maxAccumulation {
		d.buf = nil
		d.scanned = 0
		d.dropped = true
	}
}

// overflowed reports and clears the oversize-reset flag.
func (d *delimiter) overflowed() bool {
	o := d.dropped
	d.dropped = false
	return o
}

// reset discards any partial accumulation, e.g. across reconnects.
func (d *delimiter) reset() {
	d.buf = nil
	d.scanned = 0
	d.dropped = false
}
