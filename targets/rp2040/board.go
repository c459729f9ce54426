//go:build rp2040

package main

import (
	"runtime"

	"magpie/adc"
	"magpie/afe"
	"magpie/audio"
	"magpie/config"
	"magpie/core"
	"magpie/dma"
	"magpie/recorder"
	"magpie/storage"
)

// Recorder board wiring
const (
	pinClockEnable core.GPIOPin = 6
	pinClockReset  core.GPIOPin = 7
	pinCSCheck     core.GPIOPin = 8
	pinADCReset    core.GPIOPin = 9
	pinConfigCS    core.GPIOPin = 13
	pinEnableCh0   core.GPIOPin = 20
	pinEnableCh1   core.GPIOPin = 21

	portCh0 core.DataPortID = 0
	portCh1 core.DataPortID = 1
)

type stack struct {
	adc      *adc.AD4630
	afe      *afe.FrontEnd
	engine   *dma.Engine
	recorder *recorder.Recorder
}

// assemble brings up the converter and front end and builds the capture
// path around the registered drivers.
func assemble(cfg *config.RecorderConfig, sink storage.Sink) (*stack, error) {
	conv := adc.New(core.MustConfigBus(), core.MustGPIO(), adc.Pins{
		ClockEnable: pinClockEnable,
		ClockReset:  pinClockReset,
		CSCheck:     pinCSCheck,
		Reset:       pinADCReset,
		ConfigCS:    pinConfigCS,
	})
	if err := conv.Init(); err != nil {
		return nil, err
	}

	fe := afe.New(core.MustI2CBus(core.I2CBus1V8), core.MustI2CBus(core.I2CBus3V3), core.MustGPIO(), afe.Pins{
		EnableCh0: pinEnableCh0,
		EnableCh1: pinEnableCh1,
	})
	if err := fe.Init(); err != nil {
		return nil, err
	}

	engine, err := dma.NewEngine(core.MustDMA(), core.MustDataPorts(), core.MustGPIO(), dma.Config{
		ChunkSamples: int(cfg.ChunkSamples),
		Ports:        [audio.NumChannels]core.DataPortID{portCh0, portCh1},
		CSCheckPin:   conv.ChipSelectCheckPin(),
		SyncTimeout:  cfg.SyncTimeout(),
	})
	if err != nil {
		return nil, err
	}
	if err := engine.Configure(); err != nil {
		return nil, err
	}

	rec, err := recorder.New(conv, engine, sink, recorder.Options{
		FrontEnd: fe,
		Idle:     idle,
	})
	if err != nil {
		engine.Close()
		return nil, err
	}
	return &stack{adc: conv, afe: fe, engine: engine, recorder: rec}, nil
}

// idle runs while the recorder waits on the DMA rings
func idle() {
	UpdateSystemTime()
	runtime.Gosched()
}
