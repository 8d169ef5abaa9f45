// Package report parses HID report descriptors (HID 1.11) into per-report-id
// bit-field layouts describing the buttons/X/Y/wheel/pan fields of a
// pointing device.
//
// The parser only tracks enough descriptor state to place those five
// fields; it does not build a general-purpose descriptor object model
// (there is no need for one here — see internal/hid/classify for the
// independent keyboard/pointing structural scan, which walks the same
// byte stream for a different purpose).
package report

// item is one decoded short item from the descriptor byte stream.
type item struct {
	typ  itemType
	tag  uint8
	data []byte
}

// scanItem decodes the short item (or skips a long item) starting at
// descriptor[i], returning the item (zero value for a skipped long item)
// and the number of bytes consumed. ok is false if the buffer is truncated.
func scanItem(descriptor []byte, i int) (it item, consumed int, ok bool) {
	if i >= len(descriptor) {
		return item{}, 0, false
	}
	header := descriptor[i]

	if header == 0xFE { // long item
		if i+2 >= len(descriptor) {
			return item{}, 0, false
		}
		dataLen := int(descriptor[i+1])
		total := 3 + dataLen
		if i+total > len(descriptor) {
			return item{}, 0, false
		}
		return item{}, total, true
	}

	size := header & 0b11
	if size == 3 {
		size = 4
	}
	typ := itemType((header >> 2) & 0b11)
	tag := (header >> 4) & 0b1111

	if i+1+int(size) > len(descriptor) {
		return item{}, 0, false
	}
	return item{typ: typ, tag: tag, data: descriptor[i+1 : i+1+int(size)]}, 1 + int(size), true
}

func itemValueU(data []byte) uint32 {
	switch len(data) {
	case 0:
		return 0
	case 1:
		return uint32(data[0])
	case 2:
		return uint32(data[0]) | uint32(data[1])<<8
	case 4:
		return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	}
	return 0
}

func itemValueS(data []byte) int32 {
	u := itemValueU(data)
	switch len(data) {
	case 1:
		return int32(int8(u))
	case 2:
		return int32(int16(u))
	default:
		return int32(u)
	}
}

// usageSlot is one pending usage value or range awaiting assignment to a
// Main item's report_count slots.
type usageSlot struct {
	page      uint16
	low, high uint16
	fromRange bool // built from a Usage Minimum/Maximum pair, eligible to extend
}


type globalState struct {
	usagePage   uint16
	logicalMin  int32
	logicalMax  int32
	reportSize  int
	reportCount int
}

// Parse scans a HID report descriptor and returns one Layout per distinct
// report-id encountered, in the order first seen. On malformed input it
// returns whatever layouts it managed to finalize before the failure
// (spec.md 4.1: "parsing is best-effort").
func Parse(descriptor []byte) []Layout {
	var (
		global      = globalState{}
		stack       []globalState
		layouts     []*Layout
		byID        = map[byte]*Layout{}
		curID       byte
		curBit      int
		queue       []usageSlot
		pendingMin  *uint32
		pendingMax  *uint32
		collDepth  int
		inMouse    bool
		mouseDepth int = -1
	)

	layoutFor := func(id byte) *Layout {
		if l, ok := byID[id]; ok {
			return l
		}
		l := &Layout{ReportID: id}
		byID[id] = l
		layouts = append(layouts, l)
		return l
	}
	cur := layoutFor(0)

	resetLocal := func() {
		queue = nil
		pendingMin = nil
		pendingMax = nil
	}

	finalizeRange := func() {
		if pendingMin == nil || pendingMax == nil {
			return
		}
		lo, hi := uint16(*pendingMin), uint16(*pendingMax)
		if len(queue) > 0 {
			last := &queue[len(queue)-1]
			if last.fromRange && last.page == global.usagePage && last.high+1 == lo {
				last.high = hi
				pendingMin, pendingMax = nil, nil
				return
			}
		}
		queue = append(queue, usageSlot{page: global.usagePage, low: lo, high: hi, fromRange: true})
		pendingMin, pendingMax = nil, nil
	}

	popUsage := func() (page, usage uint16, ok bool) {
		if len(queue) == 0 {
			return 0, 0, false
		}
		s := &queue[0]
		page, usage = s.page, s.low
		if s.low == s.high {
			queue = queue[1:]
		} else {
			s.low++
		}
		return page, usage, true
	}

	queueHasPointingPage := func() bool {
		for _, s := range queue {
			switch s.page {
			case usagePageGenericDesktop, usagePageButton, usagePageConsumer:
				return true
			}
		}
		return false
	}

	classify := func(l *Layout, page, usage uint16, bitOffset, bitSize int) {
		switch {
		case page == usagePageButton && usage >= 1:
			if !l.ButtonsOffset.Present() {
				l.ButtonsOffset = Field{BitOffset: bitOffset, BitSize: bitSize}
			} else {
				l.ButtonsOffset.BitSize += bitSize
			}
			l.ButtonCount++
		case page == usagePageGenericDesktop && usage == usageX:
			l.X = Field{BitOffset: bitOffset, BitSize: bitSize}
		case page == usagePageGenericDesktop && usage == usageY:
			l.Y = Field{BitOffset: bitOffset, BitSize: bitSize}
		case page == usagePageGenericDesktop && usage == usageWheel:
			l.Wheel = Field{BitOffset: bitOffset, BitSize: bitSize}
		case page == usagePageConsumer && usage == usageACPan:
			l.Pan = Field{BitOffset: bitOffset, BitSize: bitSize}
		}
	}

	finalizeCurrent := func() {
		if cur.ReportSizeBits == 0 {
			cur.ReportSizeBits = curBit
		}
	}

	i := 0
	for i < len(descriptor) {
		it, n, ok := scanItem(descriptor, i)
		if !ok {
			break // truncated item: stop, keep whatever was already finalized
		}
		i += n

		switch it.typ {
		case itemTypeGlobal:
			switch it.tag {
			case globalTagUsagePage:
				global.usagePage = uint16(itemValueU(it.data))
			case globalTagLogicalMin:
				global.logicalMin = itemValueS(it.data)
			case globalTagLogicalMax:
				global.logicalMax = itemValueS(it.data)
			case globalTagReportSize:
				global.reportSize = int(itemValueU(it.data))
			case globalTagReportCount:
				global.reportCount = int(itemValueU(it.data))
			case globalTagReportID:
				id := byte(itemValueU(it.data))
				if id != 0 && id != curID {
					finalizeCurrent()
					curID = id
					cur = layoutFor(id)
					curBit = 0
				}
			case globalTagPush:
				if len(stack) >= maxStackDepth {
					finalizeCurrent()
					return toSlice(layouts)
				}
				stack = append(stack, global)
			case globalTagPop:
				if len(stack) == 0 {
					finalizeCurrent()
					return toSlice(layouts)
				}
				global = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}

		case itemTypeLocal:
			switch it.tag {
			case localTagUsage:
				u := uint32(itemValueU(it.data))
				queue = append(queue, usageSlot{page: global.usagePage, low: uint16(u), high: uint16(u)})
			case localTagUsageMinimum:
				v := itemValueU(it.data)
				pendingMin = &v
				finalizeRange()
			case localTagUsageMaximum:
				v := itemValueU(it.data)
				pendingMax = &v
				finalizeRange()
			}

		case itemTypeMain:
			switch it.tag {
			case mainTagCollection:
				collDepth++
				if len(it.data) >= 1 && it.data[0] == collectionApplication &&
					global.usagePage == usagePageGenericDesktop && !inMouse {
					if len(queue) > 0 && queue[0].low == usageMouse {
						inMouse = true
						mouseDepth = collDepth
					}
				}
				resetLocal()

			case mainTagEndCollection:
				collDepth--
				if inMouse && collDepth < mouseDepth {
					inMouse = false
					mouseDepth = -1
				}
				resetLocal()

			case mainTagInput:
				flags := uint8(0)
				if len(it.data) > 0 {
					flags = it.data[0]
				}
				count, size := global.reportCount, global.reportSize
				if count*size == 0 {
					resetLocal()
					break
				}
				isConstant := flags&mainFlagConstant != 0
				pointing := inMouse || queueHasPointingPage()
				if !isConstant && pointing {
					if flags&mainFlagVariable != 0 {
						for s := 0; s < count; s++ {
							page, usage, ok := popUsage()
							if !ok {
								break
							}
							classify(cur, page, usage, curBit+s*size, size)
						}
					} else if len(queue) > 0 && queue[0].page == usagePageButton {
						// Array field encoding a pressed-button index; treat the
						// whole field as an opaque button word.
						classify(cur, usagePageButton, queue[0].low, curBit, count*size)
					}
				}
				curBit += count * size
				resetLocal()

			case mainTagOutput, mainTagFeature:
				count, size := global.reportCount, global.reportSize
				curBit += count * size
				resetLocal()
			}
		}
	}

	finalizeCurrent()
	return toSlice(layouts)
}

// toSlice copies the layouts out in order, dropping the initial report-id-0
// layout when the descriptor declared report ids and no field preceded the
// first of them.
func toSlice(layouts []*Layout) []Layout {
	out := make([]Layout, 0, len(layouts))
	for _, l := range layouts {
		if l.ReportID == 0 && l.ReportSizeBits == 0 && len(layouts) > 1 {
			continue
		}
		out = append(out, *l)
	}
	return out
}
