package report_test

import (
	"testing"

	"github.com/hidrelay/hidrelay/internal/hid/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fiveButtonMouseDescriptor is a boot-protocol-compatible 5-button mouse
// with vertical wheel and horizontal AC Pan, no report id.
var fiveButtonMouseDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x05, 0x09, //     Usage Page (Button)
	0x19, 0x01, //     Usage Minimum (Button 1)
	0x29, 0x05, //     Usage Maximum (Button 5)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x95, 0x05, //     Report Count (5)
	0x75, 0x01, //     Report Size (1)
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0x95, 0x01, //     Report Count (1)
	0x75, 0x03, //     Report Size (3)
	0x81, 0x01, //     Input - padding
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x09, 0x38, //     Usage (Wheel)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x03, //     Report Count (3)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0x05, 0x0C, //     Usage Page (Consumer)
	0x0A, 0x38, 0x02, // Usage (AC Pan)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x75, 0x08, //     Report Size (8)
	0x95, 0x01, //     Report Count (1)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xC0,       //   End Collection
	0xC0,       // End Collection
}

func TestParseFiveButtonMouse(t *testing.T) {
	layouts := report.Parse(fiveButtonMouseDescriptor)
	require.Len(t, layouts, 1)

	l := layouts[0]
	assert.Equal(t, byte(0), l.ReportID)
	assert.Equal(t, 40, l.ReportSizeBits)
	assert.Equal(t, report.Field{BitOffset: 0, BitSize: 5}, l.ButtonsOffset)
	assert.Equal(t, 5, l.ButtonCount)
	assert.Equal(t, report.Field{BitOffset: 8, BitSize: 8}, l.X)
	assert.Equal(t, report.Field{BitOffset: 16, BitSize: 8}, l.Y)
	assert.Equal(t, report.Field{BitOffset: 24, BitSize: 8}, l.Wheel)
	assert.Equal(t, report.Field{BitOffset: 32, BitSize: 8}, l.Pan)
	assert.True(t, l.HasPointing())
}

// threeButtonMouseNoWheel omits the wheel/pan fields entirely, exercising
// the "field with bit_size == 0 means absent" convention.
var threeButtonMouseNoWheel = []byte{
	0x05, 0x01, 0x09, 0x02, 0xA1, 0x01,
	0x09, 0x01, 0xA1, 0x00,
	0x05, 0x09, 0x19, 0x01, 0x29, 0x03,
	0x15, 0x00, 0x25, 0x01, 0x95, 0x03, 0x75, 0x01, 0x81, 0x02,
	0x95, 0x01, 0x75, 0x05, 0x81, 0x01,
	0x05, 0x01, 0x09, 0x30, 0x09, 0x31,
	0x15, 0x81, 0x25, 0x7F, 0x75, 0x08, 0x95, 0x02, 0x81, 0x06,
	0xC0, 0xC0,
}

func TestParseMouseWithoutWheel(t *testing.T) {
	layouts := report.Parse(threeButtonMouseNoWheel)
	require.Len(t, layouts, 1)

	l := layouts[0]
	assert.Equal(t, 24, l.ReportSizeBits)
	assert.Equal(t, 3, l.ButtonCount)
	assert.True(t, l.X.Present())
	assert.True(t, l.Y.Present())
	assert.False(t, l.Wheel.Present())
	assert.False(t, l.Pan.Present())
}

// twoReportIDMouse declares two independent report-id'd mouse layouts
// sharing one descriptor, exercising the report-id finalize/switch logic.
var twoReportIDMouse = []byte{
	0x05, 0x01, 0x09, 0x02, 0xA1, 0x01,
	0x85, 0x01, // Report ID (1)
	0x09, 0x01, 0xA1, 0x00,
	0x05, 0x09, 0x19, 0x01, 0x29, 0x03,
	0x15, 0x00, 0x25, 0x01, 0x95, 0x03, 0x75, 0x01, 0x81, 0x02,
	0x95, 0x01, 0x75, 0x05, 0x81, 0x01,
	0x05, 0x01, 0x09, 0x30, 0x09, 0x31,
	0x15, 0x81, 0x25, 0x7F, 0x75, 0x08, 0x95, 0x02, 0x81, 0x06,
	0xC0,
	0x85, 0x02, // Report ID (2) - a second, independent mouse collection
	0x09, 0x02, 0xA1, 0x00,
	0x05, 0x09, 0x19, 0x01, 0x29, 0x05,
	0x15, 0x00, 0x25, 0x01, 0x95, 0x05, 0x75, 0x01, 0x81, 0x02,
	0x95, 0x01, 0x75, 0x03, 0x81, 0x01,
	0x05, 0x01, 0x09, 0x30, 0x09, 0x31, 0x09, 0x38,
	0x15, 0x81, 0x25, 0x7F, 0x75, 0x08, 0x95, 0x03, 0x81, 0x06,
	0xC0,
	0xC0,
}

func TestParseTwoReportIDs(t *testing.T) {
	layouts := report.Parse(twoReportIDMouse)
	require.Len(t, layouts, 2)

	assert.Equal(t, byte(1), layouts[0].ReportID)
	assert.Equal(t, 24, layouts[0].ReportSizeBits)
	assert.Equal(t, 3, layouts[0].ButtonCount)
	assert.False(t, layouts[0].Wheel.Present())

	assert.Equal(t, byte(2), layouts[1].ReportID)
	assert.Equal(t, 32, layouts[1].ReportSizeBits)
	assert.Equal(t, 5, layouts[1].ButtonCount)
	assert.True(t, layouts[1].Wheel.Present())

	// Bit offsets in both layouts are relative to the payload after the
	// report-id byte, never including it.
	assert.Equal(t, 0, layouts[0].ButtonsOffset.BitOffset)
	assert.Equal(t, 0, layouts[1].ButtonsOffset.BitOffset)
}

func TestParseTruncatedDescriptorIsBestEffort(t *testing.T) {
	truncated := fiveButtonMouseDescriptor[:20] // cuts off mid-item
	layouts := report.Parse(truncated)
	// Whatever was well-formed before the cut is preserved; the parser
	// never panics on a short buffer.
	assert.NotPanics(t, func() { report.Parse(truncated) })
	_ = layouts
}

func TestParseEmptyDescriptorYieldsSingleEmptyLayout(t *testing.T) {
	layouts := report.Parse(nil)
	require.Len(t, layouts, 1)
	assert.Equal(t, byte(0), layouts[0].ReportID)
	assert.Equal(t, 0, layouts[0].ReportSizeBits)
	assert.False(t, layouts[0].HasPointing())
}
