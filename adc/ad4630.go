// Package adc drives the AD4630 dual-channel converter: register access
// over a configuration SPI bus, host-clock mode set-up and the clock
// enable lines that start and stop free-running conversion.
package adc

import (
	"errors"
	"time"

	"magpie/core"

	"tinygo.org/x/drivers"
)

// Register map (subset).
const (
	RegExitConfigMode uint16 = 0x14
	RegModes          uint16 = 0x20
	RegOscillator     uint16 = 0x21

	// Reading this address puts the device in register configuration mode.
	RegConfigModeEntry uint16 = 0x3FFF
)

// Register values.
const (
	ExitConfigMode byte = 1

	OscDivBy1 byte = 0b00
	OscDivBy2 byte = 0b01
	OscDivBy4 byte = 0b10

	ModesClockSPI  byte = 0b00 << 4
	ModesClockEcho byte = 0b01 << 4
	ModesClockHost byte = 0b10 << 4

	readFlag = 0x80
)

// ResetPulse is how long the reset line is held low.
const ResetPulse = 100 * time.Millisecond

var (
	ErrNotInConfigMode = errors.New("adc: register access outside config mode")
	ErrVerify          = errors.New("adc: register readback mismatch")
)

// Pins are the converter's dedicated lines.
type Pins struct {
	ClockEnable core.GPIOPin // gates the 384 kHz frame clock
	ClockReset  core.GPIOPin // holds the clock divider in reset
	CSCheck     core.GPIOPin // monitors the frame chip-select (input)
	Reset       core.GPIOPin // active-low hardware reset
	ConfigCS    core.GPIOPin // chip select for register access
}

// AD4630 is the converter controller.
type AD4630 struct {
	bus      drivers.SPI
	gpio     core.GPIODriver
	pins     Pins
	inConfig bool
	running  bool

	tx [3]byte
	rx [3]byte

	// Delay waits out reset and settling times. Tests replace it.
	Delay func(time.Duration)
}

// New creates a controller. Nothing is written until Init.
func New(bus drivers.SPI, gpio core.GPIODriver, pins Pins) *AD4630 {
	return &AD4630{
		bus:   bus,
		gpio:  gpio,
		pins:  pins,
		Delay: time.Sleep,
	}
}

// Pins returns the wiring the controller was created with.
func (a *AD4630) Pins() Pins {
	return a.pins
}

// ChipSelectCheckPin is the input that mirrors the frame chip select. The
// DMA engine polls it to align the first transfer with a sample boundary.
func (a *AD4630) ChipSelectCheckPin() core.GPIOPin {
	return a.pins.CSCheck
}

// Running reports whether the conversion clock is enabled.
func (a *AD4630) Running() bool {
	return a.running
}

// Init brings the converter from power-up to host-clock mode with the
// conversion clock stopped. Any failure leaves the device in an unknown
// register state; retry from Init, which starts with a hardware reset.
func (a *AD4630) Init() error {
	if err := a.configurePins(); err != nil {
		return core.NewOpError("adc pins", core.ErrConfig, err)
	}
	if err := a.StopConversions(); err != nil {
		return err
	}
	if err := a.HardwareReset(); err != nil {
		return err
	}
	if err := a.BeginRegisterAccess(); err != nil {
		return err
	}
	if err := a.ConfigureHostClockMode(); err != nil {
		a.inConfig = false
		return err
	}
	if err := a.EndRegisterAccess(); err != nil {
		return err
	}
	a.Delay(ResetPulse)
	return nil
}

func (a *AD4630) configurePins() error {
	for _, pin := range []core.GPIOPin{a.pins.ClockEnable, a.pins.ClockReset, a.pins.Reset, a.pins.ConfigCS} {
		if err := a.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
	}
	if err := a.gpio.SetPin(a.pins.ConfigCS, true); err != nil {
		return err
	}
	return a.gpio.ConfigureInput(a.pins.CSCheck)
}

// HardwareReset pulses the reset line low.
func (a *AD4630) HardwareReset() error {
	if err := a.gpio.SetPin(a.pins.Reset, false); err != nil {
		return core.NewOpError("adc reset", core.ErrConfig, err)
	}
	a.Delay(ResetPulse)
	if err := a.gpio.SetPin(a.pins.Reset, true); err != nil {
		return core.NewOpError("adc reset", core.ErrConfig, err)
	}
	a.inConfig = false
	return nil
}

// BeginRegisterAccess enters configuration mode.
func (a *AD4630) BeginRegisterAccess() error {
	if _, err := a.readRegister(RegConfigModeEntry); err != nil {
		return core.NewOpError("adc enter config", core.ErrConfig, err)
	}
	a.inConfig = true
	return nil
}

// EndRegisterAccess leaves configuration mode. The device resumes
// conversion behaviour with the registers written inside the bracket.
func (a *AD4630) EndRegisterAccess() error {
	if !a.inConfig {
		return core.NewOpError("adc exit config", core.ErrConfig, ErrNotInConfigMode)
	}
	if err := a.writeRegister(RegExitConfigMode, ExitConfigMode); err != nil {
		return core.NewOpError("adc exit config", core.ErrConfig, err)
	}
	a.inConfig = false
	return nil
}

// ConfigureHostClockMode sets the oscillator divider and clock mode so the
// converter emits its own bit clock, then reads both back.
func (a *AD4630) ConfigureHostClockMode() error {
	writes := []struct {
		reg uint16
		val byte
	}{
		{RegOscillator, OscDivBy4},
		{RegModes, ModesClockHost},
	}
	for _, w := range writes {
		if err := a.WriteRegister(w.reg, w.val); err != nil {
			return err
		}
	}
	for _, w := range writes {
		got, err := a.ReadRegister(w.reg)
		if err != nil {
			return err
		}
		if got != w.val {
			return core.NewOpError("adc verify", core.ErrConfig, ErrVerify)
		}
	}
	return nil
}

// ReadRegister reads one register. Only valid inside a bracket.
func (a *AD4630) ReadRegister(reg uint16) (byte, error) {
	if !a.inConfig {
		return 0, core.NewOpError("adc read", core.ErrConfig, ErrNotInConfigMode)
	}
	v, err := a.readRegister(reg)
	if err != nil {
		return 0, core.NewOpError("adc read", core.ErrConfig, err)
	}
	return v, nil
}

// WriteRegister writes one register. Only valid inside a bracket.
func (a *AD4630) WriteRegister(reg uint16, val byte) error {
	if !a.inConfig {
		return core.NewOpError("adc write", core.ErrConfig, ErrNotInConfigMode)
	}
	if err := a.writeRegister(reg, val); err != nil {
		return core.NewOpError("adc write", core.ErrConfig, err)
	}
	return nil
}

func (a *AD4630) readRegister(reg uint16) (byte, error) {
	a.tx = [3]byte{readFlag | byte(reg>>8), byte(reg), 0}
	if err := a.transfer(); err != nil {
		return 0, err
	}
	return a.rx[2], nil
}

func (a *AD4630) writeRegister(reg uint16, val byte) error {
	a.tx = [3]byte{byte(reg>>8) &^ readFlag, byte(reg), val}
	return a.transfer()
}

func (a *AD4630) transfer() error {
	if err := a.gpio.SetPin(a.pins.ConfigCS, false); err != nil {
		return err
	}
	err := a.bus.Tx(a.tx[:], a.rx[:])
	if cerr := a.gpio.SetPin(a.pins.ConfigCS, true); err == nil {
		err = cerr
	}
	return err
}

// StartConversions releases the clock divider and enables the frame
// clock. Data is not trustworthy until the consumer has synchronised to a
// chip-select edge.
func (a *AD4630) StartConversions() error {
	if err := a.gpio.SetPin(a.pins.ClockReset, false); err != nil {
		return core.NewOpError("adc start", core.ErrConfig, err)
	}
	if err := a.gpio.SetPin(a.pins.ClockEnable, true); err != nil {
		return core.NewOpError("adc start", core.ErrConfig, err)
	}
	a.running = true
	return nil
}

// StopConversions gates the frame clock and holds its divider in reset.
func (a *AD4630) StopConversions() error {
	if err := a.gpio.SetPin(a.pins.ClockEnable, false); err != nil {
		return core.NewOpError("adc stop", core.ErrConfig, err)
	}
	if err := a.gpio.SetPin(a.pins.ClockReset, true); err != nil {
		return core.NewOpError("adc stop", core.ErrConfig, err)
	}
	a.running = false
	return nil
}
