package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger records raw HID report bytes crossing the core, independent of
// the structured slog output — useful for replaying a session offline.
type RawLogger interface {
	Log(inbound bool, data []byte)
}

// rawLogger implements RawLogger with a thread-safe single writer.
type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a new RawLogger. If w is nil, the returned logger is a
// no-op, so callers never need to nil-check before calling Log.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log emits a single-line hex dump with a timestamp and direction marker.
// inbound=true means a raw report arriving from the USB device; false means
// an encoded report leaving through the sink.
func (r *rawLogger) Log(inbound bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "core->sink"
	if inbound {
		dir = "device->core"
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s chunk: %d bytes, hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05"),
		dir,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}
