// Package resample turns a bursty, variable-cadence stream of relative
// motion pushes into a steady periodic sink stream, using a two-phase
// commit (preview, then encode, then commit-or-rollback) so a failing or
// blocking send never loses or duplicates motion.
package resample

import (
	"sync"
	"sync/atomic"

	"github.com/hidrelay/hidrelay/internal/sink"
)

// Outcome reports what a TrySend call actually did. Callers may use it for
// logging or a status view; it plays no part in the resampler's own state
// transitions.
type Outcome int

const (
	OutcomeSinkNotReady Outcome = iota
	OutcomeNoTraffic
	OutcomeSent
	OutcomeSendFailed
)

// State mirrors the resampler's abstract state machine (spec.md 4.5) for
// diagnostics: Idle when the sink isn't ready, Armed when ready with
// nothing queued, Pending when a send is owed.
type State int

const (
	StateIdle State = iota
	StateArmed
	StatePending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Stats are monotonically increasing diagnostic counters. None of them
// ever resets except at process restart.
type Stats struct {
	Overflows     uint64
	SendSuccesses uint64
	SendFailures  uint64
}

// Resampler holds the Event Ring plus the residual/watermark state spec.md
// 5 calls out as the only mutable shared state, guarded by a single mutex
// held for O(1) critical sections (a short-lived sync.Mutex stands in for
// the spec's spinlock; Go's runtime doesn't expose one, and a mutex serves
// the same purpose for a section this short).
type Resampler struct {
	mu sync.Mutex

	ring ring

	residualDX, residualDY, residualWheel int32
	lastSentButtons                       uint8
	lastSeenButtons                       uint8
	tLastSendUs                           int64

	sendIntervalUs int64

	sendSuccesses atomic.Uint64
	sendFailures  atomic.Uint64
}

// NewResampler returns a Resampler ticking at the given interval (BLE-style
// units of 1.25ms; 6 units is the spec's typical 7.5ms), armed as of nowUs.
func NewResampler(intervalUnits125ms int, nowUs int64) *Resampler {
	r := &Resampler{}
	r.sendIntervalUs = int64(intervalUnits125ms) * 1250
	r.tLastSendUs = nowUs
	return r
}

// SendIntervalUs returns the current tick period in microseconds, for the
// tick task to schedule against. UpdateSendInterval's "first tick at the
// new period is scheduled one interval after the call" is the tick task's
// responsibility, since the resampler owns no timer of its own.
func (r *Resampler) SendIntervalUs() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendIntervalUs
}

// UpdateSendInterval atomically replaces the tick period.
func (r *Resampler) UpdateSendInterval(unitsOf1_25ms int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendIntervalUs = int64(unitsOf1_25ms) * 1250
}

// Push enqueues one motion/button sample at nowUs. O(1), never blocks: the
// input path must never wait on the sink.
func (r *Resampler) Push(nowUs int64, dx, dy, wheel int32, buttons uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := event{tUs: nowUs, dx: dx, dy: dy, wheel: wheel, buttons: buttons}
	if buttons != r.lastSeenButtons {
		e.buttonChanged = true
	}
	r.lastSeenButtons = buttons
	r.ring.push(e)
}

// Clear empties the ring and zeroes residuals and button-edge tracking,
// preserving overflow diagnostics. Called on sink disconnect.
func (r *Resampler) Clear(nowUs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ring.clear()
	r.residualDX, r.residualDY, r.residualWheel = 0, 0, 0
	r.lastSentButtons = 0
	r.lastSeenButtons = 0
	r.tLastSendUs = nowUs
}

// TrySend runs one tick of the two-phase-commit send algorithm against s.
func (r *Resampler) TrySend(nowUs int64, s sink.Sink) Outcome {
	if !s.Ready() {
		return OutcomeSinkNotReady
	}

	r.mu.Lock()

	var (
		sumDX, sumDY, sumWheel int32
		buttonDirty            bool
		numToConsume           int
	)
	btn := r.lastSentButtons

	for numToConsume < r.ring.count {
		ev := r.ring.at(numToConsume)
		if ev.tUs > nowUs {
			break // future-dated: deferred to a later tick
		}
		sumDX += ev.dx
		sumDY += ev.dy
		sumWheel += ev.wheel
		btn = ev.buttons
		if ev.buttonChanged {
			buttonDirty = true
		}
		numToConsume++
	}
	if btn != r.lastSentButtons {
		buttonDirty = true
	}

	sumDX += r.residualDX
	sumDY += r.residualDY
	sumWheel += r.residualWheel

	motionDirty := sumDX != 0 || sumDY != 0 || sumWheel != 0

	if !motionDirty && !buttonDirty {
		r.mu.Unlock()
		return OutcomeNoTraffic
	}

	dx, residDX := saturateAxis(sumDX)
	dy, residDY := saturateAxis(sumDY)
	wheel, residWheel := saturateWheel(sumWheel)

	var out [6]byte
	out[0] = btn & 0x1F
	out[1] = byte(uint16(dx))
	out[2] = byte(uint16(dx) >> 8)
	out[3] = byte(uint16(dy))
	out[4] = byte(uint16(dy) >> 8)
	out[5] = byte(wheel)

	// The send itself happens outside the lock (spec.md 5: "the spinlock
	// is not held across that call"); a blocking or slow sink must never
	// stall the producer.
	r.mu.Unlock()

	switch s.SendPointing(out) {
	case sink.Ok, sink.NotReady:
		r.sendSuccesses.Add(1)
		r.mu.Lock()
		r.ring.pop(numToConsume)
		r.tLastSendUs = nowUs
		r.residualDX, r.residualDY, r.residualWheel = residDX, residDY, residWheel
		r.lastSentButtons = btn
		r.mu.Unlock()
		return OutcomeSent
	default:
		r.sendFailures.Add(1)
		return OutcomeSendFailed
	}
}

// State reports the resampler's abstract state for diagnostics. sinkReady
// is supplied by the caller rather than queried here, since only the
// sink-state task knows the current link status outside of a tick.
func (r *Resampler) State(sinkReady bool) State {
	if !sinkReady {
		return StateIdle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring.count == 0 && r.residualDX == 0 && r.residualDY == 0 && r.residualWheel == 0 {
		return StateArmed
	}
	return StatePending
}

// Stats returns a snapshot of the diagnostic counters.
func (r *Resampler) Stats() Stats {
	r.mu.Lock()
	overflows := r.ring.overflowCount
	r.mu.Unlock()
	return Stats{
		Overflows:     overflows,
		SendSuccesses: r.sendSuccesses.Load(),
		SendFailures:  r.sendFailures.Load(),
	}
}

// saturateAxis clamps to the signed i16 range used for dx/dy, excluding
// -32768 (some hosts read it as "no change"), returning the residual left
// over from clamping.
func saturateAxis(sum int32) (int16, int32) {
	const lo, hi = -32767, 32767
	switch {
	case sum > hi:
		return hi, sum - hi
	case sum < lo:
		return lo, sum - lo
	default:
		return int16(sum), 0
	}
}

// saturateWheel clamps to the i8 range the outbound wheel field uses.
func saturateWheel(sum int32) (int8, int32) {
	const lo, hi = -127, 127
	switch {
	case sum > hi:
		return hi, sum - hi
	case sum < lo:
		return lo, sum - lo
	default:
		return int8(sum), 0
	}
}
