// Package afe controls the analog front end: per-channel power through a
// GPIO load switch plus a TPS22994 I2C load switch, and gain through one
// MAX14662 analog switch per channel.
package afe

import (
	"errors"

	"magpie/audio"
	"magpie/core"

	"tinygo.org/x/drivers"
)

const (
	// MAX14662 gain switches, on the 1.8V bus
	AddrGainCh0 core.I2CAddress = 0x4F
	AddrGainCh1 core.I2CAddress = 0x4E

	// TPS22994 load switch, on the 3.3V bus
	AddrLoadSwitch core.I2CAddress = 0x71

	regLoadSwitchCtl = 0x05
	gainDummyReg     = 0x00

	// Upper nibble hands all four load switch channels to I2C control.
	loadSwitchI2CMask = 0xF0
)

var (
	ErrBadChannel      = errors.New("afe: bad channel")
	ErrBadGain         = errors.New("afe: bad gain")
	ErrChannelDisabled = errors.New("afe: channel disabled")
	ErrGainMismatch    = errors.New("afe: gain readback mismatch")
)

// Pins are the GPIO lines that power each channel's op-amps.
type Pins struct {
	EnableCh0 core.GPIOPin
	EnableCh1 core.GPIOPin
}

// FrontEnd tracks the enable state of both channels. The load switch
// register is write-only from our side so its image lives here.
type FrontEnd struct {
	gainBus   drivers.I2C
	switchBus drivers.I2C
	gpio      core.GPIODriver
	pins      Pins

	enabled [audio.NumChannels]bool
	tx      [2]byte
	rx      [1]byte
}

// New creates a front end controller. gainBus carries the MAX14662s and
// switchBus the TPS22994; on the recorder board these are different buses.
func New(gainBus, switchBus drivers.I2C, gpio core.GPIODriver, pins Pins) *FrontEnd {
	return &FrontEnd{
		gainBus:   gainBus,
		switchBus: switchBus,
		gpio:      gpio,
		pins:      pins,
	}
}

// Init hands the load switch to I2C control and powers both channels off.
func (f *FrontEnd) Init() error {
	for _, pin := range []core.GPIOPin{f.pins.EnableCh0, f.pins.EnableCh1} {
		if err := f.gpio.ConfigureOutput(pin); err != nil {
			return core.NewOpError("afe init", core.ErrConfig, err)
		}
	}
	f.tx = [2]byte{regLoadSwitchCtl, loadSwitchI2CMask}
	if err := f.switchBus.Tx(uint16(AddrLoadSwitch), f.tx[:], nil); err != nil {
		return core.NewOpError("afe init", core.ErrConfig, err)
	}
	if err := f.Disable(audio.Channel0); err != nil {
		return err
	}
	return f.Disable(audio.Channel1)
}

// Enable powers a channel: op-amps first, then microphone and preamp.
func (f *FrontEnd) Enable(ch audio.Channel) error {
	if !ch.Valid() {
		return ErrBadChannel
	}
	f.enabled[ch] = true
	if err := f.gpio.SetPin(f.enablePin(ch), true); err != nil {
		return core.NewOpError("afe enable", core.ErrConfig, err)
	}
	if err := f.writeLoadSwitch(); err != nil {
		return core.NewOpError("afe enable", core.ErrConfig, err)
	}
	return nil
}

// Disable powers a channel down in the reverse order of Enable.
func (f *FrontEnd) Disable(ch audio.Channel) error {
	if !ch.Valid() {
		return ErrBadChannel
	}
	f.enabled[ch] = false
	if err := f.writeLoadSwitch(); err != nil {
		return core.NewOpError("afe disable", core.ErrConfig, err)
	}
	if err := f.gpio.SetPin(f.enablePin(ch), false); err != nil {
		return core.NewOpError("afe disable", core.ErrConfig, err)
	}
	return nil
}

// IsEnabled reports whether the channel is powered.
func (f *FrontEnd) IsEnabled(ch audio.Channel) bool {
	return ch.Valid() && f.enabled[ch]
}

// SetGain closes the single switch that selects gain g.
func (f *FrontEnd) SetGain(ch audio.Channel, g audio.Gain) error {
	if !ch.Valid() {
		return ErrBadChannel
	}
	if !g.Valid() {
		return ErrBadGain
	}
	if !f.enabled[ch] {
		return ErrChannelDisabled
	}
	f.tx = [2]byte{gainDummyReg, GainToSwitch(g)}
	if err := f.gainBus.Tx(uint16(gainAddr(ch)), f.tx[:], nil); err != nil {
		return core.NewOpError("afe gain", core.ErrConfig, err)
	}
	return nil
}

// Gain reads the switch state back. It returns GainUndefined for a
// disabled channel, a bus error or a switch pattern that is not a gain.
func (f *FrontEnd) Gain(ch audio.Channel) audio.Gain {
	if !f.IsEnabled(ch) {
		return audio.GainUndefined
	}
	if err := f.gainBus.Tx(uint16(gainAddr(ch)), nil, f.rx[:]); err != nil {
		return audio.GainUndefined
	}
	return SwitchToGain(f.rx[0])
}

// Setup enables the channels a session records, sets their gain and
// checks the readback. In mono only the selected input is powered.
func (f *FrontEnd) Setup(mode audio.ChannelMode, mono audio.Channel, gain audio.Gain) error {
	for ch := audio.Channel0; ch < audio.NumChannels; ch++ {
		if mode == audio.Mono && ch != mono {
			if err := f.Disable(ch); err != nil {
				return err
			}
			continue
		}
		if err := f.Enable(ch); err != nil {
			return err
		}
		if err := f.SetGain(ch, gain); err != nil {
			return err
		}
		if got := f.Gain(ch); got != gain {
			return core.NewOpError("afe gain verify", core.ErrConfig, ErrGainMismatch)
		}
	}
	return nil
}

func (f *FrontEnd) writeLoadSwitch() error {
	var v byte = loadSwitchI2CMask
	// bits 0,1: microphone load switch; bits 2,3: preamp
	if f.enabled[audio.Channel0] {
		v |= 1<<0 | 1<<2
	}
	if f.enabled[audio.Channel1] {
		v |= 1<<1 | 1<<3
	}
	f.tx = [2]byte{regLoadSwitchCtl, v}
	return f.switchBus.Tx(uint16(AddrLoadSwitch), f.tx[:], nil)
}

func (f *FrontEnd) enablePin(ch audio.Channel) core.GPIOPin {
	if ch == audio.Channel0 {
		return f.pins.EnableCh0
	}
	return f.pins.EnableCh1
}

func gainAddr(ch audio.Channel) core.I2CAddress {
	if ch == audio.Channel0 {
		return AddrGainCh0
	}
	return AddrGainCh1
}

// GainToSwitch maps a gain step to its MAX14662 switch pattern. The bit
// order follows the board layout: 5 dB is switch 7, 40 dB is switch 0.
func GainToSwitch(g audio.Gain) byte {
	if !g.Valid() {
		return 0
	}
	return 1 << (8 - uint(g)/5)
}

// SwitchToGain is the inverse of GainToSwitch.
func SwitchToGain(bits byte) audio.Gain {
	for pos := uint(0); pos < 8; pos++ {
		if bits == 1<<pos {
			return audio.Gain((8 - pos) * 5)
		}
	}
	return audio.GainUndefined
}
