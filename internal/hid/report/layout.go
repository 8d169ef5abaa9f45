package report

// Field describes one bit-packed value within a report payload. BitSize
// zero means the field is absent from this layout.
type Field struct {
	BitOffset int
	BitSize   int
}

// Present reports whether the field actually appears in the layout.
func (f Field) Present() bool { return f.BitSize > 0 }

// Layout is the per-report-id bit-field map produced by Parse. ReportID
// zero means the descriptor uses no leading report-id byte for this
// layout (there is at most one such layout per descriptor).
type Layout struct {
	ReportID       byte
	ReportSizeBits int

	ButtonsOffset Field // unsigned
	X             Field // signed
	Y             Field // signed
	Wheel         Field // signed
	Pan           Field // signed

	// ButtonCount mirrors ButtonsOffset.BitSize; kept as its own field so
	// callers reading only the button count don't need to know the bit
	// layout convention.
	ButtonCount int
}

// HasPointing reports whether the layout carries both X and Y axes, the
// heuristic signal the device classifier uses independently of any
// structural scan (spec.md 4.3).
func (l Layout) HasPointing() bool {
	return l.X.Present() && l.Y.Present()
}

// valid checks the invariant from spec.md 4.1: every non-empty field lies
// entirely within the report and no two non-zero fields overlap.
func (l Layout) valid() bool {
	fields := []Field{l.ButtonsOffset, l.X, l.Y, l.Wheel, l.Pan}
	type span struct{ lo, hi int }
	var spans []span
	for _, f := range fields {
		if !f.Present() {
			continue
		}
		if f.BitOffset < 0 || f.BitOffset+f.BitSize > l.ReportSizeBits {
			return false
		}
		spans = append(spans, span{f.BitOffset, f.BitOffset + f.BitSize})
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].lo < spans[j].hi && spans[j].lo < spans[i].hi {
				return false
			}
		}
	}
	return true
}
