// Package decode turns a raw HID input report into a Pointing value, either
// against a parsed report.Layout catalog or, when none is available, a
// fixed fallback layout chosen by report length (spec.md 4.4).
package decode

import (
	"github.com/hidrelay/hidrelay/internal/hid/bits"
	"github.com/hidrelay/hidrelay/internal/hid/report"
)

// Pointing is one decoded pointing report, already narrowed to the
// resampler's field widths.
type Pointing struct {
	Buttons uint8
	DX      int16
	DY      int16
	Wheel   int8
}

// Decode extracts a Pointing value from buf using catalog, the layouts
// produced by report.Parse for this device. An empty catalog falls back to
// a fixed layout chosen by len(buf). ok is false for a rejected report
// (too short, unknown report id) — the caller must treat that as a no-op,
// never as a zeroed Pointing.
func Decode(catalog []report.Layout, buf []byte) (p Pointing, ok bool) {
	if len(catalog) == 0 {
		return decodeFallback(buf)
	}

	layout, payload, found := selectLayout(catalog, buf)
	if !found {
		return Pointing{}, false
	}
	if layout.ReportSizeBits > 8*len(payload) {
		return Pointing{}, false
	}

	return decodeFields(payload, layout), true
}

// selectLayout picks the catalog entry matching buf's leading report-id
// byte, or the sole zero-id layout if the catalog uses no report ids.
// Offsets in the returned layout are relative to the returned payload,
// which has the id byte (if any) already stripped.
func selectLayout(catalog []report.Layout, buf []byte) (layout report.Layout, payload []byte, ok bool) {
	usesReportID := false
	for _, l := range catalog {
		if l.ReportID != 0 {
			usesReportID = true
			break
		}
	}
	if !usesReportID {
		return catalog[0], buf, true
	}

	if len(buf) == 0 {
		return report.Layout{}, nil, false
	}
	id := buf[0]
	for _, l := range catalog {
		if l.ReportID == id {
			return l, buf[1:], true
		}
	}
	return report.Layout{}, nil, false
}

func decodeFields(payload []byte, layout report.Layout) Pointing {
	var p Pointing
	if layout.ButtonsOffset.Present() {
		p.Buttons = uint8(bits.GetUint(payload, layout.ButtonsOffset.BitOffset, layout.ButtonsOffset.BitSize))
	}
	if layout.X.Present() {
		p.DX = int16(bits.GetInt(payload, layout.X.BitOffset, layout.X.BitSize))
	}
	if layout.Y.Present() {
		p.DY = int16(bits.GetInt(payload, layout.Y.BitOffset, layout.Y.BitSize))
	}
	if layout.Wheel.Present() {
		p.Wheel = int8(bits.GetInt(payload, layout.Wheel.BitOffset, layout.Wheel.BitSize))
	}
	return p
}

// decodeFallback applies the fixed layouts spec.md 4.4 defines for devices
// with no usable descriptor: 3-byte boot protocol, 4-byte extended (adds a
// wheel byte), and 5- or 8-byte forms carrying a leading id byte ahead of
// the boot-protocol body (the 8-byte form has trailing padding, ignored).
func decodeFallback(buf []byte) (Pointing, bool) {
	switch len(buf) {
	case 3:
		return Pointing{
			Buttons: buf[0],
			DX:      int16(int8(buf[1])),
			DY:      int16(int8(buf[2])),
		}, true
	case 4:
		return Pointing{
			Buttons: buf[0],
			DX:      int16(int8(buf[1])),
			DY:      int16(int8(buf[2])),
			Wheel:   int8(buf[3]),
		}, true
	case 5, 8:
		return Pointing{
			Buttons: buf[1],
			DX:      int16(int8(buf[2])),
			DY:      int16(int8(buf[3])),
			Wheel:   int8(buf[4]),
		}, true
	default:
		return Pointing{}, false
	}
}
