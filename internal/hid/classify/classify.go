// Package classify decides whether a HID report descriptor describes a
// keyboard, a pointing device, both, or neither. It is a pure function of
// the descriptor bytes. It uses internal/hid/report only for the layout
// heuristic; the structural scan walks the descriptor bytes on its own,
// since spec.md 4.3 defines it as an independent structural scan plus one
// heuristic drawn from the parsed layouts.
package classify

import "github.com/hidrelay/hidrelay/internal/hid/report"

// Usage pages and usages needed for the structural scan. Kept local to
// this package (rather than shared with internal/hid/report) because the
// two scans serve different questions and evolve independently.
const (
	usagePageGenericDesktop uint16 = 0x01
	usagePageKeyCodes       uint16 = 0x07

	usageGenericDesktopMouse    uint16 = 0x02
	usageGenericDesktopKeyboard uint16 = 0x06
)

const (
	itemTypeMain   = 0
	itemTypeGlobal = 1
	itemTypeLocal  = 2

	mainTagCollection    = 10
	mainTagInput         = 8
	mainTagEndCollection = 12

	globalTagUsagePage   = 0
	globalTagReportSize  = 7
	globalTagReportCount = 9

	localTagUsage = 0

	collectionApplication = 0x01
)

// keyboardConfirmBits is the minimum cumulative report_count on the Key
// Codes usage page, inside a Keyboard application collection, required to
// confirm a keyboard rather than a composite device that merely advertises
// a Keyboard usage with a handful of modifier bits (spec.md 4.3).
const keyboardConfirmBits = 3

// Result is the classifier's verdict.
type Result struct {
	Keyboard bool
	Pointing bool
}

// Any reports whether the descriptor was recognized as either role.
func (r Result) Any() bool { return r.Keyboard || r.Pointing }

// Classify inspects descriptor bytes and returns the device's role(s).
// The layout heuristic and the structural scan both contribute; the
// structural scan's keyboard confirmation wins when it can confirm one,
// per spec.md 4.3.
func Classify(descriptor []byte) Result {
	var res Result

	for _, l := range report.Parse(descriptor) {
		if l.HasPointing() {
			res.Pointing = true
			break
		}
	}

	structural := structuralScan(descriptor)
	if structural.pointingHint {
		res.Pointing = true
	}
	if structural.keyboardConfirmed {
		res.Keyboard = true
	}

	return res
}

type scanState struct {
	pointingHint      bool
	keyboardConfirmed bool
}

type collFrame struct {
	isMouseApp    bool
	isKeyboardApp bool
}

// structuralScan walks Main/Global/Local items tracking the usage page and
// the usage of each Application Collection, independent of the field
// placement logic in internal/hid/report.
func structuralScan(descriptor []byte) scanState {
	var (
		state       scanState
		usagePage   uint16
		reportSize  int
		reportCount int
		pendingUsg  []uint16
		stack       []collFrame
		keyBits     int
	)

	i := 0
	for i < len(descriptor) {
		if descriptor[i] == 0xFE { // long item, skip
			if i+2 >= len(descriptor) {
				break
			}
			dataLen := int(descriptor[i+1])
			total := 3 + dataLen
			if i+total > len(descriptor) {
				break
			}
			i += total
			continue
		}

		header := descriptor[i]
		size := header & 0b11
		if size == 3 {
			size = 4
		}
		typ := (header >> 2) & 0b11
		tag := (header >> 4) & 0b1111
		if i+1+int(size) > len(descriptor) {
			break
		}
		data := descriptor[i+1 : i+1+int(size)]
		i += 1 + int(size)

		val := func() uint32 {
			switch len(data) {
			case 1:
				return uint32(data[0])
			case 2:
				return uint32(data[0]) | uint32(data[1])<<8
			case 4:
				return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
			}
			return 0
		}()

		switch typ {
		case itemTypeGlobal:
			switch tag {
			case globalTagUsagePage:
				usagePage = uint16(val)
			case globalTagReportSize:
				reportSize = int(val)
			case globalTagReportCount:
				reportCount = int(val)
			}

		case itemTypeLocal:
			if tag == localTagUsage {
				pendingUsg = append(pendingUsg, uint16(val))
			}

		case itemTypeMain:
			switch tag {
			case mainTagCollection:
				frame := collFrame{}
				if len(data) >= 1 && data[0] == collectionApplication && usagePage == usagePageGenericDesktop {
					if len(pendingUsg) > 0 {
						switch pendingUsg[0] {
						case usageGenericDesktopMouse:
							frame.isMouseApp = true
							state.pointingHint = true
						case usageGenericDesktopKeyboard:
							frame.isKeyboardApp = true
						}
					}
				}
				stack = append(stack, frame)
				pendingUsg = nil

			case mainTagEndCollection:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				pendingUsg = nil

			case mainTagInput:
				insideKeyboard := false
				for _, f := range stack {
					if f.isKeyboardApp {
						insideKeyboard = true
						break
					}
				}
				if insideKeyboard && usagePage == usagePageKeyCodes && reportSize > 0 {
					keyBits += reportCount
					if keyBits >= keyboardConfirmBits {
						state.keyboardConfirmed = true
					}
				}
				pendingUsg = nil
			}
		}
	}

	return state
}

// ResolveTieBreak decides the role of a composite device that structurally
// advertises both a keyboard and a pointing collection, weighing which
// collection committed more input bits rather than blindly trusting the
// transport's protocol-field hint (spec.md 9, Open Question 3). protocolHint
// is used only to break an exact tie.
func ResolveTieBreak(descriptor []byte, protocolHint Result) Result {
	res := Classify(descriptor)
	if res.Keyboard && res.Pointing {
		kbBits, ptBits := committedBitsByCollection(descriptor)
		switch {
		case kbBits > ptBits:
			return Result{Keyboard: true}
		case ptBits > kbBits:
			return Result{Pointing: true}
		default:
			return protocolHint
		}
	}
	return res
}

// committedBitsByCollection sums the input bits declared inside Keyboard
// and Mouse application collections respectively.
func committedBitsByCollection(descriptor []byte) (keyboardBits, pointingBits int) {
	var (
		usagePage   uint16
		reportSize  int
		reportCount int
		pendingUsg  []uint16
		stack       []collFrame
	)

	i := 0
	for i < len(descriptor) {
		if descriptor[i] == 0xFE {
			if i+2 >= len(descriptor) {
				break
			}
			dataLen := int(descriptor[i+1])
			total := 3 + dataLen
			if i+total > len(descriptor) {
				break
			}
			i += total
			continue
		}
		header := descriptor[i]
		size := header & 0b11
		if size == 3 {
			size = 4
		}
		typ := (header >> 2) & 0b11
		tag := (header >> 4) & 0b1111
		if i+1+int(size) > len(descriptor) {
			break
		}
		data := descriptor[i+1 : i+1+int(size)]
		i += 1 + int(size)

		val := func() uint32 {
			switch len(data) {
			case 1:
				return uint32(data[0])
			case 2:
				return uint32(data[0]) | uint32(data[1])<<8
			case 4:
				return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
			}
			return 0
		}()

		switch typ {
		case itemTypeGlobal:
			switch tag {
			case globalTagUsagePage:
				usagePage = uint16(val)
			case globalTagReportSize:
				reportSize = int(val)
			case globalTagReportCount:
				reportCount = int(val)
			}
		case itemTypeLocal:
			if tag == localTagUsage {
				pendingUsg = append(pendingUsg, uint16(val))
			}
		case itemTypeMain:
			switch tag {
			case mainTagCollection:
				frame := collFrame{}
				if len(data) >= 1 && data[0] == collectionApplication && usagePage == usagePageGenericDesktop && len(pendingUsg) > 0 {
					switch pendingUsg[0] {
					case usageGenericDesktopMouse:
						frame.isMouseApp = true
					case usageGenericDesktopKeyboard:
						frame.isKeyboardApp = true
					}
				}
				stack = append(stack, frame)
				pendingUsg = nil
			case mainTagEndCollection:
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				pendingUsg = nil
			case mainTagInput:
				bits := reportCount * reportSize
				for _, f := range stack {
					if f.isKeyboardApp {
						keyboardBits += bits
					}
					if f.isMouseApp {
						pointingBits += bits
					}
				}
				pendingUsg = nil
			}
		}
	}
	return
}
