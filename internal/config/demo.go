package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hidrelay/hidrelay/internal/bridge"
	"github.com/hidrelay/hidrelay/internal/log"
	"github.com/hidrelay/hidrelay/internal/sink/simlink"
)

// demoFiveButtonMouseDescriptor declares a single unreported layout: 5
// buttons, X/Y/wheel, no report id.
var demoFiveButtonMouseDescriptor = []byte{
	0x05, 0x01, 0x09, 0x02, 0xA1, 0x01,
	0x09, 0x01, 0xA1, 0x00,
	0x05, 0x09, 0x19, 0x01, 0x29, 0x05,
	0x15, 0x00, 0x25, 0x01, 0x95, 0x05, 0x75, 0x01, 0x81, 0x02,
	0x95, 0x01, 0x75, 0x03, 0x81, 0x01,
	0x05, 0x01, 0x09, 0x30, 0x09, 0x31, 0x09, 0x38,
	0x15, 0x81, 0x25, 0x7F, 0x75, 0x08, 0x95, 0x03, 0x81, 0x06,
	0xC0, 0xC0,
}

var demoBootKeyboardDescriptor = []byte{
	0x05, 0x01, 0x09, 0x06, 0xA1, 0x01,
	0x05, 0x07, 0x19, 0xE0, 0x29, 0xE7,
	0x15, 0x00, 0x25, 0x01, 0x75, 0x01, 0x95, 0x08, 0x81, 0x02,
	0x95, 0x01, 0x75, 0x08, 0x81, 0x01,
	0x95, 0x06, 0x75, 0x08, 0x15, 0x00, 0x25, 0x65,
	0x05, 0x07, 0x19, 0x00, 0x29, 0x65, 0x81, 0x00,
	0xC0,
}

// Run runs a canned scripted device sequence (boot-protocol mouse,
// descriptor-driven mouse, boot keyboard) through internal/bridge and
// prints every report the sink actually receives.
func (d *BridgeDemo) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	key, err := randomSinkKey()
	if err != nil {
		return err
	}

	ln, err := simlink.Listen(d.SinkAddr, key)
	if err != nil {
		return fmt.Errorf("starting demo sink listener: %w", err)
	}
	defer ln.Close()

	printDone := make(chan struct{})
	go func() {
		defer close(printDone)
		recv, err := ln.Accept()
		if err != nil {
			return
		}
		defer recv.Close()
		for {
			rep, err := recv.Recv()
			if err != nil {
				return
			}
			kind := "consumer"
			switch {
			case rep.Keyboard:
				kind = "keyboard"
			case rep.Pointing:
				kind = "pointing"
			}
			fmt.Printf("sink received %s report: % x\n", kind, rep.Payload)
		}
	}()

	s, err := simlink.Dial(ln.Addr().String(), key)
	if err != nil {
		return fmt.Errorf("dialing demo sink: %w", err)
	}
	defer s.Close()

	core := bridge.NewCore(s)
	core.OnSinkReadyChanged(true)

	logger.Info("demo: attaching boot-protocol mouse (no descriptor)")
	_, bootMouse := core.OnDeviceAttachedWithProtocolHint(nil, bridge.RolePointing)
	core.OnInputReport(bootMouse, []byte{0x01, 5, 0xFB})
	core.Tick()

	logger.Info("demo: attaching descriptor-driven mouse")
	_, descMouse := core.OnDeviceAttached(demoFiveButtonMouseDescriptor)
	core.OnInputReport(descMouse, []byte{0b00000010, 20, 0xE0, 0})
	core.OnInputReport(descMouse, []byte{0b00000010, 0, 0, 0})
	core.Tick()

	logger.Info("demo: attaching boot keyboard")
	_, kbd := core.OnDeviceAttached(demoBootKeyboardDescriptor)
	rawLogger.Log(true, []byte{0x02, 0x00, 0x04, 0, 0, 0, 0, 0})
	core.OnInputReport(kbd, []byte{0x02, 0x00, 0x04, 0, 0, 0, 0, 0})
	core.OnInputReport(kbd, []byte{0x00, 0x00, 0x00, 0, 0, 0, 0, 0})

	time.Sleep(50 * time.Millisecond)
	core.Tick()

	stats := core.Stats()
	logger.Info("demo complete", "decoded", stats.ReportsDecoded, "rejected", stats.ReportsRejected,
		"sent", stats.SendSuccesses, "failed", stats.SendFailures, "overflows", stats.Overflows)

	_ = s.Close()
	<-printDone
	return nil
}
