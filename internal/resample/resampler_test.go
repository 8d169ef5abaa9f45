package resample_test

import (
	"testing"

	"github.com/hidrelay/hidrelay/internal/resample"
	"github.com/hidrelay/hidrelay/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink is a hand-rolled sink.Sink for tests: it records every send and
// returns canned results in order, repeating the last one once exhausted.
type fakeSink struct {
	ready   bool
	results []sink.SendResult
	sent    [][6]byte
}

func (f *fakeSink) Ready() bool { return f.ready }

func (f *fakeSink) SendPointing(report [6]byte) sink.SendResult {
	f.sent = append(f.sent, report)
	if len(f.results) == 0 {
		return sink.Ok
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r
}

func (f *fakeSink) SendKeyboard([8]byte) sink.SendResult { return sink.Ok }
func (f *fakeSink) SendConsumer([]byte) sink.SendResult  { return sink.Ok }

func decodeOutbound(t *testing.T, report [6]byte) (buttons uint8, dx, dy int16, wheel int8) {
	t.Helper()
	buttons = report[0]
	dx = int16(uint16(report[1]) | uint16(report[2])<<8)
	dy = int16(uint16(report[3]) | uint16(report[4])<<8)
	wheel = int8(report[5])
	return
}

func TestTrySendBootProtocolNoOverflow(t *testing.T) {
	r := resample.NewResampler(6, 0)
	r.Push(0, 5, -5, 0, 0x01)

	s := &fakeSink{ready: true}
	outcome := r.TrySend(1000, s)
	require.Equal(t, resample.OutcomeSent, outcome)
	require.Len(t, s.sent, 1)

	buttons, dx, dy, wheel := decodeOutbound(t, s.sent[0])
	assert.Equal(t, uint8(0x01), buttons)
	assert.Equal(t, int16(5), dx)
	assert.Equal(t, int16(-5), dy)
	assert.Equal(t, int8(0), wheel)
}

func TestTrySendCoalescesHighRateBurst(t *testing.T) {
	r := resample.NewResampler(6, 0)
	for i := 0; i < 20; i++ {
		r.Push(int64(i), 10, 0, 0, 0)
	}

	s := &fakeSink{ready: true}
	outcome := r.TrySend(1000, s)
	require.Equal(t, resample.OutcomeSent, outcome)

	_, dx, dy, wheel := decodeOutbound(t, s.sent[0])
	assert.Equal(t, int16(200), dx)
	assert.Equal(t, int16(0), dy)
	assert.Equal(t, int8(0), wheel)
}

func TestTrySendSaturatesAndCarriesResidual(t *testing.T) {
	r := resample.NewResampler(6, 0)
	r.Push(0, 40000, 0, 0, 0)

	s := &fakeSink{ready: true}
	outcome := r.TrySend(1000, s)
	require.Equal(t, resample.OutcomeSent, outcome)

	_, dx, _, _ := decodeOutbound(t, s.sent[0])
	assert.Equal(t, int16(32767), dx)

	// Next tick, no new pushes: the residual alone must still be sent.
	outcome = r.TrySend(2000, s)
	require.Equal(t, resample.OutcomeSent, outcome)
	_, dx, _, _ = decodeOutbound(t, s.sent[1])
	assert.Equal(t, int16(7233), dx)

	outcome = r.TrySend(3000, s)
	assert.Equal(t, resample.OutcomeNoTraffic, outcome)
}

func TestTrySendRetriesAfterTransientFailure(t *testing.T) {
	s := &fakeSink{ready: true, results: []sink.SendResult{sink.TransientFailure}}
	r := resample.NewResampler(6, 0)
	r.Push(0, 100, 0, 0, 0)

	outcome := r.TrySend(1000, s)
	require.Equal(t, resample.OutcomeSendFailed, outcome)

	stats := r.Stats()
	assert.Equal(t, uint64(1), stats.SendFailures)
	assert.Equal(t, uint64(0), stats.SendSuccesses)

	s.results = nil // subsequent sends succeed
	r.Push(1500, 3, 0, 0, 0)
	r.Push(1500, 4, 0, 0, 0)

	outcome = r.TrySend(2000, s)
	require.Equal(t, resample.OutcomeSent, outcome)
	_, dx, _, _ := decodeOutbound(t, s.sent[1])
	assert.Equal(t, int16(107), dx)

	assert.Equal(t, resample.StateArmed, r.State(true), "ring must be empty after the successful commit")
}

func TestTrySendPreservesButtonEdgeUnderIdleMotion(t *testing.T) {
	r := resample.NewResampler(6, 0)
	r.Push(0, 0, 0, 0, 0x01)

	s := &fakeSink{ready: true}
	outcome := r.TrySend(1000, s)
	require.Equal(t, resample.OutcomeSent, outcome)
	buttons, dx, dy, wheel := decodeOutbound(t, s.sent[0])
	assert.Equal(t, uint8(0x01), buttons)
	assert.Equal(t, int16(0), dx)
	assert.Equal(t, int16(0), dy)
	assert.Equal(t, int8(0), wheel)

	outcome = r.TrySend(2000, s)
	assert.Equal(t, resample.OutcomeNoTraffic, outcome, "no motion and no button change since the last send")
}

func TestTrySendReturnsSinkNotReadyWithoutMutatingState(t *testing.T) {
	r := resample.NewResampler(6, 0)
	r.Push(0, 9, 9, 0, 0)

	s := &fakeSink{ready: false}
	outcome := r.TrySend(1000, s)
	assert.Equal(t, resample.OutcomeSinkNotReady, outcome)
	assert.Empty(t, s.sent)

	// The event is still there for the next ready tick.
	s.ready = true
	outcome = r.TrySend(2000, s)
	require.Equal(t, resample.OutcomeSent, outcome)
	_, dx, dy, _ := decodeOutbound(t, s.sent[0])
	assert.Equal(t, int16(9), dx)
	assert.Equal(t, int16(9), dy)
}

func TestPushOverflowDropsOldestAndCountsOverflow(t *testing.T) {
	r := resample.NewResampler(6, 0)
	for i := 0; i < 200; i++ {
		r.Push(int64(i), 1, 0, 0, 0)
	}

	stats := r.Stats()
	assert.Equal(t, uint64(200-128), stats.Overflows)

	s := &fakeSink{ready: true}
	outcome := r.TrySend(1000, s)
	require.Equal(t, resample.OutcomeSent, outcome)
	_, dx, _, _ := decodeOutbound(t, s.sent[0])
	assert.Equal(t, int16(128), dx, "only the 128 surviving events remain in the ring")
}

func TestClearResetsMotionButKeepsOverflowCount(t *testing.T) {
	r := resample.NewResampler(6, 0)
	for i := 0; i < 130; i++ {
		r.Push(int64(i), 1, 0, 0, 0)
	}
	before := r.Stats()
	require.Positive(t, before.Overflows)

	r.Clear(500)
	after := r.Stats()
	assert.Equal(t, before.Overflows, after.Overflows)
	assert.Equal(t, resample.StateArmed, r.State(true))
}

func TestUpdateSendIntervalIsObservable(t *testing.T) {
	r := resample.NewResampler(6, 0)
	assert.Equal(t, int64(7500), r.SendIntervalUs())
	r.UpdateSendInterval(12)
	assert.Equal(t, int64(15000), r.SendIntervalUs())
}
