// Package bridge implements the Core Facade (spec.md 4.6): it owns one
// Descriptor Parser + Device Classifier verdict and layout catalog per
// attached device, dispatches inbound raw reports to the Report Decoder or
// straight through to the sink depending on device role, and drives each
// pointing device's Motion Resampler on every tick.
package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hidrelay/hidrelay/internal/hid/classify"
	"github.com/hidrelay/hidrelay/internal/hid/decode"
	"github.com/hidrelay/hidrelay/internal/hid/report"
	"github.com/hidrelay/hidrelay/internal/resample"
	"github.com/hidrelay/hidrelay/internal/sink"
)

// maxLayouts bounds the per-device layout catalog (spec.md 4.6, N <= 16).
// A descriptor that declares more report ids than this has its excess
// layouts dropped; devices in practice rarely exceed a handful.
const maxLayouts = 16

// defaultLinkIntervalUnits is the resampler's initial tick period before
// any OnLinkIntervalUpdated call, in units of 1.25ms (6 units = 7.5ms).
const defaultLinkIntervalUnits = 6

// Role is the classified role of an attached device. A device carries at
// most one role: classify.ResolveTieBreak already picks a single winner
// for composite descriptors (spec.md 9, Open Question 3).
type Role uint8

const (
	RoleNone Role = iota
	RoleKeyboard
	RolePointing
)

func (r Role) String() string {
	switch r {
	case RoleKeyboard:
		return "keyboard"
	case RolePointing:
		return "pointing"
	default:
		return "none"
	}
}

// Handle identifies one attached device for the lifetime of its attach.
type Handle uint64

// Stats are the core's monotonically increasing diagnostic counters
// (spec.md 7). ReportsDecoded/ReportsRejected count at the facade level;
// Overflows/SendSuccesses/SendFailures are aggregated across every
// device's resampler plus this facade's own keyboard/consumer sends.
type Stats struct {
	Overflows       uint64
	SendSuccesses   uint64
	SendFailures    uint64
	ReportsDecoded  uint64
	ReportsRejected uint64
}

type device struct {
	role      Role
	catalog   []report.Layout
	resampler *resample.Resampler
}

// Core is the facade transport glue drives. It is safe for concurrent use:
// OnInputReport is expected to run from an interrupt-driven input path
// while Tick runs from an independent periodic timer.
type Core struct {
	mu         sync.RWMutex
	devices    map[Handle]*device
	nextHandle uint64

	sink      sink.Sink
	sinkReady atomic.Bool

	reportsDecoded  atomic.Uint64
	reportsRejected atomic.Uint64
	sendSuccesses   atomic.Uint64
	sendFailures    atomic.Uint64
}

// NewCore returns a Core that drives s. s may be nil during bring-up
// before a transport is wired; sends are silently dropped until it isn't.
func NewCore(s sink.Sink) *Core {
	return &Core{
		devices: make(map[Handle]*device),
		sink:    s,
	}
}

// OnDeviceAttached runs the parser and classifier over descriptorBytes and
// registers a new device, returning its role and handle.
func (c *Core) OnDeviceAttached(descriptorBytes []byte) (Role, Handle) {
	return c.attach(descriptorBytes, classify.Result{})
}

// OnDeviceAttachedWithProtocolHint is like OnDeviceAttached but additionally
// supplies the transport's own protocol-field hint (e.g. a USB HID boot
// protocol byte), consulted only when the descriptor is malformed or
// declares neither role, and as the tie-break of last resort for a
// composite descriptor with an exact bit-count tie (spec.md 7, 9).
func (c *Core) OnDeviceAttachedWithProtocolHint(descriptorBytes []byte, hint Role) (Role, Handle) {
	return c.attach(descriptorBytes, roleToResult(hint))
}

func (c *Core) attach(descriptorBytes []byte, protocolHint classify.Result) (Role, Handle) {
	catalog := report.Parse(descriptorBytes)
	if len(catalog) == 1 && catalog[0].ReportID == 0 && catalog[0].ReportSizeBits == 0 {
		// Nothing usable was parsed (missing or malformed descriptor): leave
		// the catalog empty so decode applies its fixed fallback layouts.
		catalog = nil
	}
	if len(catalog) > maxLayouts {
		catalog = catalog[:maxLayouts]
	}

	verdict := classify.ResolveTieBreak(descriptorBytes, protocolHint)
	role := resultToRole(verdict)
	if role == RoleNone {
		role = resultToRole(protocolHint)
	}

	d := &device{role: role, catalog: catalog}
	if role == RolePointing {
		d.resampler = resample.NewResampler(defaultLinkIntervalUnits, nowUs())
	}

	c.mu.Lock()
	c.nextHandle++
	h := Handle(c.nextHandle)
	c.devices[h] = d
	c.mu.Unlock()

	return role, h
}

// OnDeviceDetached forgets a device. Its resampler, if any, is discarded
// along with it.
func (c *Core) OnDeviceDetached(h Handle) {
	c.mu.Lock()
	delete(c.devices, h)
	c.mu.Unlock()
}

// OnSinkReadyChanged updates the link's readiness. A true-to-false
// transition clears every device's resampler (spec.md 6).
func (c *Core) OnSinkReadyChanged(ready bool) {
	wasReady := c.sinkReady.Swap(ready)
	if !wasReady || ready {
		return
	}
	now := nowUs()
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.devices {
		if d.resampler != nil {
			d.resampler.Clear(now)
		}
	}
}

// OnLinkIntervalUpdated propagates a renegotiated link interval to every
// device's resampler.
func (c *Core) OnLinkIntervalUpdated(unitsOf1_25ms int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.devices {
		if d.resampler != nil {
			d.resampler.UpdateSendInterval(unitsOf1_25ms)
		}
	}
}

// OnInputReport dispatches a raw report by the device's classified role:
// keyboard reports go straight to the sink, pointing reports are decoded
// and pushed to the resampler, and anything else that looks like a short
// consumer-control usage bitmap is forwarded opaquely.
func (c *Core) OnInputReport(h Handle, raw []byte) {
	c.mu.RLock()
	d, ok := c.devices[h]
	c.mu.RUnlock()
	if !ok {
		return
	}

	switch d.role {
	case RoleKeyboard:
		c.dispatchKeyboard(d, raw)
	default:
		// RolePointing, and RoleNone as a best-effort default: an
		// unclassified device still gets the fixed fallback pointing
		// layouts of spec.md 4.4 rule 4 rather than being dropped outright.
		c.dispatchPointing(d, raw)
	}
}

func (c *Core) dispatchPointing(d *device, raw []byte) {
	p, ok := decode.Decode(d.catalog, raw)
	if !ok {
		if payload, isConsumer := asConsumerPayload(d.catalog, raw); isConsumer {
			c.reportsDecoded.Add(1)
			c.sendConsumer(payload)
			return
		}
		c.reportsRejected.Add(1)
		return
	}
	c.reportsDecoded.Add(1)

	c.mu.RLock()
	r := d.resampler
	c.mu.RUnlock()
	if r == nil {
		c.mu.Lock()
		if d.resampler == nil {
			d.resampler = resample.NewResampler(defaultLinkIntervalUnits, nowUs())
		}
		r = d.resampler
		c.mu.Unlock()
	}
	r.Push(nowUs(), int32(p.DX), int32(p.DY), int32(p.Wheel), p.Buttons)
}

func (c *Core) dispatchKeyboard(d *device, raw []byte) {
	payload := stripLeadingReportID(d.catalog, raw)
	if payload == nil {
		c.reportsRejected.Add(1)
		return
	}
	if len(payload) <= 2 {
		// Too short to be a keyboard body; likely a media-key consumer
		// report multiplexed onto the same handle under another report id.
		c.reportsDecoded.Add(1)
		c.sendConsumer(payload)
		return
	}

	var out [8]byte
	copy(out[:], payload)
	c.reportsDecoded.Add(1)
	c.sendKeyboard(out)
}

func (c *Core) sendKeyboard(report [8]byte) {
	if c.sink == nil {
		return
	}
	c.recordSend(c.sink.SendKeyboard(report))
}

func (c *Core) sendConsumer(payload []byte) {
	if c.sink == nil {
		return
	}
	c.recordSend(c.sink.SendConsumer(payload))
}

func (c *Core) recordSend(result sink.SendResult) {
	switch result {
	case sink.Ok, sink.NotReady:
		c.sendSuccesses.Add(1)
	default:
		c.sendFailures.Add(1)
	}
}

// Tick drives every pointing device's resampler once. It is meant to be
// invoked by a periodic timer at the configured send interval.
func (c *Core) Tick() {
	if c.sink == nil {
		return
	}
	now := nowUs()

	c.mu.RLock()
	resamplers := make([]*resample.Resampler, 0, len(c.devices))
	for _, d := range c.devices {
		if d.resampler != nil {
			resamplers = append(resamplers, d.resampler)
		}
	}
	c.mu.RUnlock()

	for _, r := range resamplers {
		r.TrySend(now, c.sink)
	}
}

// Stats returns a snapshot of the core's diagnostic counters, aggregated
// across every attached device's resampler.
func (c *Core) Stats() Stats {
	s := Stats{
		ReportsDecoded:  c.reportsDecoded.Load(),
		ReportsRejected: c.reportsRejected.Load(),
		SendSuccesses:   c.sendSuccesses.Load(),
		SendFailures:    c.sendFailures.Load(),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.devices {
		if d.resampler == nil {
			continue
		}
		rs := d.resampler.Stats()
		s.Overflows += rs.Overflows
		s.SendSuccesses += rs.SendSuccesses
		s.SendFailures += rs.SendFailures
	}
	return s
}

func nowUs() int64 {
	return time.Now().UnixNano() / 1000
}

func resultToRole(r classify.Result) Role {
	switch {
	case r.Keyboard:
		return RoleKeyboard
	case r.Pointing:
		return RolePointing
	default:
		return RoleNone
	}
}

func roleToResult(r Role) classify.Result {
	switch r {
	case RoleKeyboard:
		return classify.Result{Keyboard: true}
	case RolePointing:
		return classify.Result{Pointing: true}
	default:
		return classify.Result{}
	}
}

// stripLeadingReportID drops raw's leading byte when the device's catalog
// uses report ids at all, since that byte is then a multiplexing id, not
// payload. Returns nil if a report id was expected but raw was empty.
func stripLeadingReportID(catalog []report.Layout, raw []byte) []byte {
	usesReportID := false
	for _, l := range catalog {
		if l.ReportID != 0 {
			usesReportID = true
			break
		}
	}
	if !usesReportID {
		return raw
	}
	if len(raw) == 0 {
		return nil
	}
	return raw[1:]
}

// asConsumerPayload treats raw as an opaque consumer-control usage bitmap
// when, after stripping any leading report id, it is short enough to be
// one (spec.md 4.6: "payload <= 2 bytes").
func asConsumerPayload(catalog []report.Layout, raw []byte) ([]byte, bool) {
	payload := stripLeadingReportID(catalog, raw)
	if len(payload) == 0 || len(payload) > 2 {
		return nil, false
	}
	return payload, true
}
