package classify_test

import (
	"testing"

	"github.com/hidrelay/hidrelay/internal/hid/classify"
	"github.com/stretchr/testify/assert"
)

var pureMouseDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xA1, 0x01, // Collection (Application)
	0x05, 0x09, //   Usage Page (Button)
	0x19, 0x01, //   Usage Minimum (Button 1)
	0x29, 0x03, //   Usage Maximum (Button 3)
	0x15, 0x00,
	0x25, 0x01,
	0x75, 0x01,
	0x95, 0x03,
	0x81, 0x02, //   Input - 3 button bits
	0x95, 0x01,
	0x75, 0x05,
	0x81, 0x01, //   Input - padding
	0x05, 0x01, //   Usage Page (Generic Desktop)
	0x09, 0x30, //   Usage (X)
	0x09, 0x31, //   Usage (Y)
	0x15, 0x81,
	0x25, 0x7F,
	0x75, 0x08,
	0x95, 0x02,
	0x81, 0x06, //   Input - X, Y
	0xC0,
}

// bootKeyboardDescriptor is a standard boot-protocol keyboard: modifier
// byte, reserved byte, and a 6-byte array of Key Codes usages.
var bootKeyboardDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xA1, 0x01, // Collection (Application)
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0xE0, //   Usage Minimum (224)
	0x29, 0xE7, //   Usage Maximum (231)
	0x15, 0x00,
	0x25, 0x01,
	0x75, 0x01,
	0x95, 0x08,
	0x81, 0x02, //   Input - modifier byte
	0x95, 0x01,
	0x75, 0x08,
	0x81, 0x01, //   Input - reserved byte
	0x95, 0x06,
	0x75, 0x08,
	0x15, 0x00,
	0x25, 0x65,
	0x05, 0x07, //   Usage Page (Key Codes)
	0x19, 0x00,
	0x29, 0x65,
	0x81, 0x00, //   Input - 6 key code slots
	0xC0,
}

// sparseKeyboardHint declares a Keyboard application collection but only
// two Key Codes input slots, below the confirmation threshold: this looks
// like a composite device's spurious keyboard usage rather than a real
// keyboard interface.
var sparseKeyboardHint = []byte{
	0x05, 0x01,
	0x09, 0x06,
	0xA1, 0x01,
	0x05, 0x07,
	0x19, 0x00,
	0x29, 0x01,
	0x15, 0x00,
	0x25, 0x01,
	0x75, 0x01,
	0x95, 0x02, // report_count(2), below the threshold of 3
	0x81, 0x02,
	0xC0,
}

func TestClassifyPureMouse(t *testing.T) {
	res := classify.Classify(pureMouseDescriptor)
	assert.True(t, res.Pointing)
	assert.False(t, res.Keyboard)
	assert.True(t, res.Any())
}

func TestClassifyBootKeyboard(t *testing.T) {
	res := classify.Classify(bootKeyboardDescriptor)
	assert.True(t, res.Keyboard)
	assert.False(t, res.Pointing)
}

func TestClassifySparseKeyboardHintNotConfirmed(t *testing.T) {
	res := classify.Classify(sparseKeyboardHint)
	assert.False(t, res.Keyboard)
	assert.False(t, res.Pointing)
	assert.False(t, res.Any())
}

func TestResolveTieBreakPrefersHigherBitCollection(t *testing.T) {
	composite := append(append([]byte{}, bootKeyboardDescriptor...), pureMouseDescriptor...)

	res := classify.Classify(composite)
	assert.True(t, res.Keyboard)
	assert.True(t, res.Pointing, "the mouse collection's X/Y still satisfies the layout heuristic")

	resolved := classify.ResolveTieBreak(composite, classify.Result{Pointing: true})
	assert.True(t, resolved.Keyboard, "keyboard collection commits far more input bits than the mouse collection")
	assert.False(t, resolved.Pointing)
}

func TestResolveTieBreakFallsBackToProtocolHintOnExactTie(t *testing.T) {
	// Two collections committing the same number of input bits: 8 button
	// bits under a Keyboard-usage application collection, 8 bits under a
	// Mouse-usage one. Classify() alone would report both roles; the tie
	// must fall through to the caller-supplied protocol hint.
	tied := []byte{
		0x05, 0x01, 0x09, 0x06, 0xA1, 0x01, // Keyboard application collection
		0x05, 0x07, 0x19, 0x00, 0x29, 0x07,
		0x15, 0x00, 0x25, 0x01, 0x75, 0x01, 0x95, 0x08,
		0x81, 0x02,
		0xC0,
		0x05, 0x01, 0x09, 0x02, 0xA1, 0x01, // Mouse application collection
		0x05, 0x09, 0x19, 0x01, 0x29, 0x08,
		0x15, 0x00, 0x25, 0x01, 0x75, 0x01, 0x95, 0x08,
		0x81, 0x02,
		0xC0,
	}

	resolved := classify.ResolveTieBreak(tied, classify.Result{Pointing: true})
	assert.Equal(t, classify.Result{Pointing: true}, resolved)
}
