//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	"magpie/config"
	"magpie/core"
	"magpie/recorder"
	"magpie/storage"
)

// sessionJSON is the recording configuration baked in at build time:
//
//	tinygo flash -target pico -ldflags "-X main.sessionJSON=$(cat rec.json)" ./targets/rp2040
//
// The default configuration is used when it is empty.
var sessionJSON string

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitDebugUART()
	core.SetDebugWriter(DebugPrintln)

	InitUSB()

	UpdateSystemTime()
	core.TimerInit()

	cfg := loadSession()
	core.SetDebugEnabled(cfg.Debug)

	core.SetGPIODriver(NewRPGPIODriver())
	rx := NewCapture()
	core.SetDMADriver(rx)
	core.SetDataPortDriver(rx)
	if err := InitConfigBus(); err != nil {
		fault(err)
	}
	if err := InitI2CBuses(); err != nil {
		fault(err)
	}

	link := storage.NewLinkSink(NewUSBLink())
	s, err := assemble(cfg, link)
	if err != nil {
		fault(err)
	}
	rtc := NewRTC(core.MustI2CBus(core.I2CBus3V3))

	DebugPrintln("[MAGPIE] recording " + core.Utoa(cfg.SampleRate) + " Hz")
	_, err = recorder.RunContinuous(context.Background(), s.recorder, recorder.SessionFromConfig(cfg),
		rtc, cfg.FilePrefix, int(cfg.FileCount), fileDone)
	if err != nil {
		fault(err)
	}

	s.engine.Close()
	DebugPrintln("[MAGPIE] done")
	blink(time.Second)
}

// loadSession parses the built-in configuration, falling back to the
// default when it is missing or invalid.
func loadSession() *config.RecorderConfig {
	if sessionJSON == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadConfig([]byte(sessionJSON))
	if err != nil {
		DebugPrintln("[MAGPIE] bad config: " + err.Error())
		return config.DefaultConfig()
	}
	return cfg
}

func fileDone(r recorder.Result) {
	DebugPrintln("[MAGPIE] " + r.Name + " " + core.Utoa(r.FileLength) + " bytes")
}

// fault reports err and the timing history, then flashes the LED rapidly
// until reset.
func fault(err error) {
	DebugPrintln("[MAGPIE] fatal: " + err.Error())
	core.DumpTimingRing()
	blink(100 * time.Millisecond)
}

func blink(period time.Duration) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(period)
		led.Low()
		time.Sleep(period)
	}
}
