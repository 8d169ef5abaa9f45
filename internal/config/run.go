package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hidrelay/hidrelay/internal/bridge"
	"github.com/hidrelay/hidrelay/internal/hidsrc"
	"github.com/hidrelay/hidrelay/internal/log"
	"github.com/hidrelay/hidrelay/internal/sink/simlink"

	"golang.org/x/term"
)

// Run dials a simlink sink and drives internal/bridge against a real
// /dev/hidraw* input source (Linux only). On other platforms, or when
// --simulate is set, it reports that "bridge demo" should be used instead:
// there is no real device source to drive without one.
func (r *BridgeRun) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.Simulate {
		return errors.New("bridge run --simulate has no built-in traffic generator; use 'hidrelay bridge demo' instead")
	}

	src, err := hidsrc.Open()
	if err != nil {
		return fmt.Errorf("no real input source available (%w); use 'hidrelay bridge demo' on this platform", err)
	}
	defer func() { _ = src.Close() }()

	key, err := decodeSinkKey(r.SinkKeyHex)
	if err != nil {
		return fmt.Errorf("decoding sink key: %w", err)
	}
	s, err := simlink.Dial(r.SinkAddr, key)
	if err != nil {
		return fmt.Errorf("dialing sink at %s: %w", r.SinkAddr, err)
	}
	defer func() { _ = s.Close() }()

	core := bridge.NewCore(s)
	core.OnSinkReadyChanged(true)
	core.OnLinkIntervalUpdated(r.LinkInterval)

	devices, err := src.Devices()
	if err != nil {
		return fmt.Errorf("enumerating hidraw devices: %w", err)
	}
	handles := make(map[hidsrc.DeviceID]bridge.Handle, len(devices))
	for _, d := range devices {
		role, h := core.OnDeviceAttached(d.Descriptor)
		handles[d.ID] = h
		logger.Info("device attached", "device", d.ID, "role", role.String())
	}

	reports, err := src.Reports()
	if err != nil {
		return fmt.Errorf("opening report stream: %w", err)
	}

	interval := time.Duration(r.LinkInterval) * 1250 * time.Microsecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	printer := newStatusPrinter(r.Watch)
	defer printer.close()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down bridge")
			return nil
		case rep, ok := <-reports:
			if !ok {
				return nil
			}
			h, known := handles[rep.Device]
			if !known {
				continue
			}
			rawLogger.Log(true, rep.Data)
			core.OnInputReport(h, rep.Data)
		case <-ticker.C:
			core.Tick()
			printer.paint(core.Stats())
		}
	}
}

// statusPrinter repaints a one-line counter summary when stdout is a
// terminal and --watch was requested; otherwise it logs a line per paint.
type statusPrinter struct {
	watch      bool
	isTerminal bool
}

func newStatusPrinter(watch bool) *statusPrinter {
	return &statusPrinter{
		watch:      watch,
		isTerminal: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (p *statusPrinter) paint(stats bridge.Stats) {
	line := fmt.Sprintf("sent=%d failed=%d overflows=%d decoded=%d rejected=%d",
		stats.SendSuccesses, stats.SendFailures, stats.Overflows, stats.ReportsDecoded, stats.ReportsRejected)

	if !p.watch || !p.isTerminal {
		fmt.Println(line)
		return
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	if len(line) < width {
		line += strings.Repeat(" ", width-len(line))
	}
	fmt.Print("\r" + line)
}

func (p *statusPrinter) close() {
	if p.watch && p.isTerminal {
		fmt.Println()
	}
}
