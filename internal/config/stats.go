package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hidrelay/hidrelay/internal/bridge"
	"github.com/hidrelay/hidrelay/internal/hidsrc"
	"github.com/hidrelay/hidrelay/internal/log"
	"github.com/hidrelay/hidrelay/internal/sink/simlink"
)

// Run drives the bridge exactly like BridgeRun.Run but only for Duration,
// then prints one final Stats snapshot and exits. Useful for smoke checks
// and scripting rather than an interactive session.
func (s *BridgeStats) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	if s.Simulate {
		return fmt.Errorf("bridge stats --simulate has no built-in traffic generator; use 'hidrelay bridge demo' instead")
	}

	duration, err := time.ParseDuration(s.Duration)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s.Duration, err)
	}

	src, err := hidsrc.Open()
	if err != nil {
		return fmt.Errorf("no real input source available (%w); use 'hidrelay bridge demo' on this platform", err)
	}
	defer func() { _ = src.Close() }()

	key, err := decodeSinkKey(s.SinkKeyHex)
	if err != nil {
		return fmt.Errorf("decoding sink key: %w", err)
	}
	sk, err := simlink.Dial(s.SinkAddr, key)
	if err != nil {
		return fmt.Errorf("dialing sink at %s: %w", s.SinkAddr, err)
	}
	defer func() { _ = sk.Close() }()

	core := bridge.NewCore(sk)
	core.OnSinkReadyChanged(true)
	core.OnLinkIntervalUpdated(s.LinkInterval)

	devices, err := src.Devices()
	if err != nil {
		return fmt.Errorf("enumerating hidraw devices: %w", err)
	}
	handles := make(map[hidsrc.DeviceID]bridge.Handle, len(devices))
	for _, d := range devices {
		_, h := core.OnDeviceAttached(d.Descriptor)
		handles[d.ID] = h
	}

	reports, err := src.Reports()
	if err != nil {
		return fmt.Errorf("opening report stream: %w", err)
	}

	interval := time.Duration(s.LinkInterval) * 1250 * time.Microsecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.After(duration)
	for {
		select {
		case <-deadline:
			stats := core.Stats()
			fmt.Printf("sent=%d failed=%d overflows=%d decoded=%d rejected=%d\n",
				stats.SendSuccesses, stats.SendFailures, stats.Overflows, stats.ReportsDecoded, stats.ReportsRejected)
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
		}
	}
}
