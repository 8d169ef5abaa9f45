// Package sink defines the fixed capability the core requires from
// outbound transport glue: one link capable of delivering keyboard,
// pointing, and consumer-control reports.
package sink

// SendResult classifies a send call's outcome. The core treats NotReady
// identically to Ok for state purposes: the resampler commits what it
// sent and counts a success. Only TransientFailure leaves resampler state
// unchanged, so the same data is retried on the next tick.
type SendResult int

const (
	Ok SendResult = iota
	NotReady
	TransientFailure
)

func (r SendResult) String() string {
	switch r {
	case Ok:
		return "ok"
	case NotReady:
		return "not_ready"
	case TransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// Sink is the outbound link. Implementations must return synchronously;
// the core never blocks a send behind a callback. GetDescriptor-style
// device metadata has no analogue here — a Sink only moves bytes.
type Sink interface {
	// Ready reports whether the link can currently accept a send. A false
	// result is not an error; the caller simply waits for the next tick.
	Ready() bool

	// SendKeyboard delivers an 8-byte boot-protocol-compatible keyboard
	// report: modifier byte, reserved byte, six scan codes.
	SendKeyboard(report [8]byte) SendResult

	// SendPointing delivers a 6-byte little-endian pointing report:
	// buttons (low 5 bits), dx int16, dy int16, wheel int8.
	SendPointing(report [6]byte) SendResult

	// SendConsumer delivers an opaque consumer-control usage bitmap of at
	// most 2 bytes.
	SendConsumer(report []byte) SendResult
}
