// Package sim is a simulated recorder board: GPIO with a running frame
// clock, the converter's register file, the two I2C buses, receive ports
// and a stepped DMA controller fed by a tone generator. The drivers
// assemble into the same stack the firmware runs, so recording can be
// exercised end to end without hardware.
package sim

import (
	"time"

	"magpie/adc"
	"magpie/afe"
	"magpie/audio"
	"magpie/core"
	"magpie/dma"
	"magpie/recorder"
	"magpie/storage"
)

// Board wiring.
const (
	PinClockEnable core.GPIOPin = 6
	PinClockReset  core.GPIOPin = 7
	PinCSCheck     core.GPIOPin = 8
	PinADCReset    core.GPIOPin = 9
	PinConfigCS    core.GPIOPin = 13
	PinEnableCh0   core.GPIOPin = 20
	PinEnableCh1   core.GPIOPin = 21

	PortCh0 core.DataPortID = 0
	PortCh1 core.DataPortID = 1
)

// Board holds the simulated peripherals.
type Board struct {
	GPIO      *GPIO
	ConfigBus *ConverterBus
	GainBus   *I2C
	SwitchBus *I2C
	Ports     *Ports
	DMA       *DMA
	Tone      *Tone
}

// NewBoard powers up a board with a 1 kHz tone on channel 0 and 3 kHz on
// channel 1 at half scale.
func NewBoard() *Board {
	tone := NewTone(0.5)
	tone.SetFrequency(PortCh0, 1000)
	tone.SetFrequency(PortCh1, 3000)
	ports := NewPorts()
	return &Board{
		GPIO:      NewGPIO(PinClockEnable, PinCSCheck),
		ConfigBus: NewConverterBus(),
		GainBus:   NewI2C(uint16(afe.AddrGainCh0), uint16(afe.AddrGainCh1)),
		SwitchBus: NewI2C(uint16(afe.AddrLoadSwitch)),
		Ports:     ports,
		DMA:       NewDMA(ports, tone),
		Tone:      tone,
	}
}

// Register installs the board's drivers as the core singletons.
func (b *Board) Register() {
	core.SetGPIODriver(b.GPIO)
	core.SetDMADriver(b.DMA)
	core.SetDataPortDriver(b.Ports)
	core.SetConfigBus(b.ConfigBus)
	core.SetI2CBus(core.I2CBus1V8, b.GainBus)
	core.SetI2CBus(core.I2CBus3V3, b.SwitchBus)
}

// ADCPins is the converter wiring.
func (b *Board) ADCPins() adc.Pins {
	return adc.Pins{
		ClockEnable: PinClockEnable,
		ClockReset:  PinClockReset,
		CSCheck:     PinCSCheck,
		Reset:       PinADCReset,
		ConfigCS:    PinConfigCS,
	}
}

// AFEPins is the front end wiring.
func (b *Board) AFEPins() afe.Pins {
	return afe.Pins{EnableCh0: PinEnableCh0, EnableCh1: PinEnableCh1}
}

// Pump completes one chunk on each running channel. It is the recorder's
// idle hook, so the simulated hardware advances exactly as fast as the
// consumer drains it.
func (b *Board) Pump() {
	b.DMA.Step()
}

// StackConfig sizes the capture path.
type StackConfig struct {
	ChunkSamples int
	SyncTimeout  time.Duration
}

// Stack is the assembled capture path.
type Stack struct {
	ADC      *adc.AD4630
	AFE      *afe.FrontEnd
	Engine   *dma.Engine
	Recorder *recorder.Recorder
}

// Assemble brings up the converter and front end, configures the DMA
// engine and builds a recorder writing to sink.
func (b *Board) Assemble(cfg StackConfig, sink storage.Sink) (*Stack, error) {
	b.Register()

	conv := adc.New(core.MustConfigBus(), core.MustGPIO(), b.ADCPins())
	conv.Delay = func(time.Duration) {}
	if err := conv.Init(); err != nil {
		return nil, err
	}

	fe := afe.New(core.MustI2CBus(core.I2CBus1V8), core.MustI2CBus(core.I2CBus3V3), core.MustGPIO(), b.AFEPins())
	if err := fe.Init(); err != nil {
		return nil, err
	}

	engine, err := dma.NewEngine(core.MustDMA(), core.MustDataPorts(), core.MustGPIO(), dma.Config{
		ChunkSamples: cfg.ChunkSamples,
		Ports:        [audio.NumChannels]core.DataPortID{PortCh0, PortCh1},
		CSCheckPin:   conv.ChipSelectCheckPin(),
		SyncTimeout:  cfg.SyncTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := engine.Configure(); err != nil {
		return nil, err
	}

	rec, err := recorder.New(conv, engine, sink, recorder.Options{
		FrontEnd: fe,
		Idle:     b.Pump,
	})
	if err != nil {
		engine.Close()
		return nil, err
	}
	return &Stack{ADC: conv, AFE: fe, Engine: engine, Recorder: rec}, nil
}

// Close releases the DMA channels.
func (s *Stack) Close() error {
	return s.Engine.Close()
}
