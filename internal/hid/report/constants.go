package report

// Usage Page identifiers relevant to keyboard and pointing devices.
// Values per the HID Usage Tables, mirrored from the encoder-side
// constants a report descriptor builder would use for the same pages.
const (
	usagePageGenericDesktop uint16 = 0x01
	usagePageKeyCodes       uint16 = 0x07
	usagePageButton         uint16 = 0x09
	usagePageConsumer       uint16 = 0x0C
)

// Generic Desktop usages.
const (
	usageMouse    uint16 = 0x02
	usageKeyboard uint16 = 0x06
	usageX        uint16 = 0x30
	usageY        uint16 = 0x31
	usageWheel    uint16 = 0x38
)

// Consumer usages.
const usageACPan uint16 = 0x0238

// itemType is the HID short item "type" field (bits 2-3 of the header byte).
type itemType uint8

const (
	itemTypeMain     itemType = 0
	itemTypeGlobal   itemType = 1
	itemTypeLocal    itemType = 2
	itemTypeReserved itemType = 3
)

// Main item tags.
const (
	mainTagInput          uint8 = 8
	mainTagOutput         uint8 = 9
	mainTagCollection     uint8 = 10
	mainTagFeature        uint8 = 11
	mainTagEndCollection  uint8 = 12
)

// Global item tags.
const (
	globalTagUsagePage     uint8 = 0
	globalTagLogicalMin    uint8 = 1
	globalTagLogicalMax    uint8 = 2
	globalTagReportSize    uint8 = 7
	globalTagReportID      uint8 = 8
	globalTagReportCount   uint8 = 9
	globalTagPush          uint8 = 10
	globalTagPop           uint8 = 11
)

// Local item tags.
const (
	localTagUsage        uint8 = 0
	localTagUsageMinimum uint8 = 1
	localTagUsageMaximum uint8 = 2
)

// Main item data flag bits.
const (
	mainFlagConstant uint8 = 1 << 0 // clear = Data
	mainFlagVariable uint8 = 1 << 1 // clear = Array
)

// Collection kinds.
const collectionApplication uint8 = 0x01

// maxStackDepth bounds the Push/Pop global-state stack. HID 1.11 does not
// mandate a specific depth; four covers every descriptor seen in practice
// and gives the parser a concrete, testable overflow condition.
const maxStackDepth = 4
