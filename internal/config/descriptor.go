package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hidrelay/hidrelay/internal/hid/classify"
	"github.com/hidrelay/hidrelay/internal/hid/report"
)

// Run parses a descriptor blob and prints the layouts report.Parse
// produced along with the classifier's verdict, useful for bring-up
// without wiring a whole bridge session.
func (d *DescriptorDump) Run(logger *slog.Logger) error {
	var data []byte
	var err error
	if d.File == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(d.File)
	}
	if err != nil {
		return fmt.Errorf("reading descriptor: %w", err)
	}

	layouts := report.Parse(data)
	verdict := classify.Classify(data)

	fmt.Printf("classification: keyboard=%t pointing=%t\n", verdict.Keyboard, verdict.Pointing)
	fmt.Printf("%d report layout(s):\n", len(layouts))
	for _, l := range layouts {
		fmt.Printf("  report id %d: size=%d bits, buttons=%d, x=%t, y=%t, wheel=%t, pan=%t\n",
			l.ReportID, l.ReportSizeBits, l.ButtonCount, l.X.Present(), l.Y.Present(), l.Wheel.Present(), l.Pan.Present())
	}
	return nil
}
