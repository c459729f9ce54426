package afe

import (
	"errors"
	"testing"

	"magpie/audio"
	"magpie/core"
)

type i2cWrite struct {
	addr uint16
	data [2]byte
}

// mockI2C keeps the last byte written to each address and hands it back
// on a read, which is how the MAX14662 behaves.
type mockI2C struct {
	writes []i2cWrite
	latch  map[uint16]byte
	fail   error
	stuck  bool // reads return 0 regardless of writes
}

func newMockI2C() *mockI2C {
	return &mockI2C{latch: map[uint16]byte{}}
}

func (m *mockI2C) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return nil
}

func (m *mockI2C) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return nil
}

func (m *mockI2C) Tx(addr uint16, w, r []byte) error {
	if m.fail != nil {
		return m.fail
	}
	if len(w) == 2 {
		m.writes = append(m.writes, i2cWrite{addr, [2]byte{w[0], w[1]}})
		m.latch[addr] = w[1]
	}
	if len(r) > 0 {
		if m.stuck {
			r[0] = 0
		} else {
			r[0] = m.latch[addr]
		}
	}
	return nil
}

type mockGPIO struct {
	level map[core.GPIOPin]bool
}

func (g *mockGPIO) ConfigureOutput(pin core.GPIOPin) error    { return nil }
func (g *mockGPIO) ConfigureInput(pin core.GPIOPin) error     { return nil }
func (g *mockGPIO) SetPin(pin core.GPIOPin, value bool) error { g.level[pin] = value; return nil }
func (g *mockGPIO) ReadPin(pin core.GPIOPin) bool             { return g.level[pin] }

var testPins = Pins{EnableCh0: 20, EnableCh1: 21}

func newTestFrontEnd() (*FrontEnd, *mockI2C, *mockI2C, *mockGPIO) {
	gain := newMockI2C()
	sw := newMockI2C()
	g := &mockGPIO{level: map[core.GPIOPin]bool{}}
	return New(gain, sw, g, testPins), gain, sw, g
}

func TestGainSwitchMapping(t *testing.T) {
	tests := []struct {
		gain audio.Gain
		bits byte
	}{
		{audio.Gain5dB, 0x80},
		{audio.Gain10dB, 0x40},
		{audio.Gain15dB, 0x20},
		{audio.Gain20dB, 0x10},
		{audio.Gain25dB, 0x08},
		{audio.Gain30dB, 0x04},
		{audio.Gain35dB, 0x02},
		{audio.Gain40dB, 0x01},
	}
	for _, tt := range tests {
		if got := GainToSwitch(tt.gain); got != tt.bits {
			t.Errorf("GainToSwitch(%d) = %#x, want %#x", tt.gain, got, tt.bits)
		}
		if got := SwitchToGain(tt.bits); got != tt.gain {
			t.Errorf("SwitchToGain(%#x) = %d, want %d", tt.bits, got, tt.gain)
		}
	}

	for _, bits := range []byte{0x00, 0x03, 0xFF} {
		if got := SwitchToGain(bits); got != audio.GainUndefined {
			t.Errorf("SwitchToGain(%#x) = %d, want undefined", bits, got)
		}
	}
	if GainToSwitch(audio.GainUndefined) != 0 {
		t.Error("undefined gain should open every switch")
	}
}

func TestInitDisablesBothChannels(t *testing.T) {
	f, _, sw, g := newTestFrontEnd()
	g.level[testPins.EnableCh0] = true

	if err := f.Init(); err != nil {
		t.Fatal(err)
	}
	if sw.writes[0] != (i2cWrite{uint16(AddrLoadSwitch), [2]byte{0x05, 0xF0}}) {
		t.Errorf("first load switch write = %+v", sw.writes[0])
	}
	if sw.latch[uint16(AddrLoadSwitch)] != 0xF0 {
		t.Errorf("load switch = %#x, want 0xf0", sw.latch[uint16(AddrLoadSwitch)])
	}
	if g.level[testPins.EnableCh0] || g.level[testPins.EnableCh1] {
		t.Error("op-amp enables left on")
	}
	if f.IsEnabled(audio.Channel0) || f.IsEnabled(audio.Channel1) {
		t.Error("channel reported enabled after Init")
	}
}

func TestEnableDisable(t *testing.T) {
	f, _, sw, g := newTestFrontEnd()
	addr := uint16(AddrLoadSwitch)

	if err := f.Enable(audio.Channel1); err != nil {
		t.Fatal(err)
	}
	if sw.latch[addr] != 0xF0|0x02|0x08 {
		t.Errorf("ch1 enabled: load switch = %#x", sw.latch[addr])
	}
	if !g.level[testPins.EnableCh1] {
		t.Error("ch1 op-amp enable not set")
	}

	if err := f.Enable(audio.Channel0); err != nil {
		t.Fatal(err)
	}
	if sw.latch[addr] != 0xFF {
		t.Errorf("both enabled: load switch = %#x", sw.latch[addr])
	}

	if err := f.Disable(audio.Channel1); err != nil {
		t.Fatal(err)
	}
	if sw.latch[addr] != 0xF0|0x01|0x04 {
		t.Errorf("ch0 only: load switch = %#x", sw.latch[addr])
	}
	if g.level[testPins.EnableCh1] {
		t.Error("ch1 op-amp enable still set")
	}

	if err := f.Enable(audio.Channel(2)); !errors.Is(err, ErrBadChannel) {
		t.Errorf("bad channel: %v", err)
	}
}

func TestSetGain(t *testing.T) {
	f, gain, _, _ := newTestFrontEnd()

	if err := f.SetGain(audio.Channel0, audio.Gain20dB); !errors.Is(err, ErrChannelDisabled) {
		t.Fatalf("disabled channel: %v", err)
	}
	if f.Gain(audio.Channel0) != audio.GainUndefined {
		t.Error("disabled channel should read undefined")
	}

	if err := f.Enable(audio.Channel0); err != nil {
		t.Fatal(err)
	}
	if err := f.SetGain(audio.Channel0, audio.Gain(7)); !errors.Is(err, ErrBadGain) {
		t.Errorf("bad gain: %v", err)
	}
	if err := f.SetGain(audio.Channel0, audio.Gain20dB); err != nil {
		t.Fatal(err)
	}
	if w := gain.writes[len(gain.writes)-1]; w != (i2cWrite{uint16(AddrGainCh0), [2]byte{0x00, 0x10}}) {
		t.Errorf("gain write = %+v", w)
	}
	if got := f.Gain(audio.Channel0); got != audio.Gain20dB {
		t.Errorf("Gain = %d, want 20", got)
	}
}

func TestSetup(t *testing.T) {
	t.Run("mono", func(t *testing.T) {
		f, gain, _, _ := newTestFrontEnd()
		if err := f.Setup(audio.Mono, audio.Channel0, audio.Gain35dB); err != nil {
			t.Fatal(err)
		}
		if !f.IsEnabled(audio.Channel0) || f.IsEnabled(audio.Channel1) {
			t.Error("mono should enable only channel 0")
		}
		if gain.latch[uint16(AddrGainCh0)] != 0x02 {
			t.Errorf("ch0 switches = %#x", gain.latch[uint16(AddrGainCh0)])
		}
	})

	t.Run("mono right", func(t *testing.T) {
		f, gain, _, _ := newTestFrontEnd()
		if err := f.Setup(audio.Mono, audio.Channel1, audio.Gain25dB); err != nil {
			t.Fatal(err)
		}
		if f.IsEnabled(audio.Channel0) || !f.IsEnabled(audio.Channel1) {
			t.Error("mono on channel 1 should enable only channel 1")
		}
		if gain.latch[uint16(AddrGainCh1)] != 0x08 {
			t.Errorf("ch1 switches = %#x", gain.latch[uint16(AddrGainCh1)])
		}
	})

	t.Run("stereo", func(t *testing.T) {
		f, gain, _, _ := newTestFrontEnd()
		if err := f.Setup(audio.Stereo, audio.Channel0, audio.Gain5dB); err != nil {
			t.Fatal(err)
		}
		if !f.IsEnabled(audio.Channel1) {
			t.Error("stereo should enable channel 1")
		}
		if gain.latch[uint16(AddrGainCh1)] != 0x80 {
			t.Errorf("ch1 switches = %#x", gain.latch[uint16(AddrGainCh1)])
		}
	})

	t.Run("readback mismatch", func(t *testing.T) {
		f, gain, _, _ := newTestFrontEnd()
		gain.stuck = true
		err := f.Setup(audio.Mono, audio.Channel0, audio.Gain10dB)
		if !errors.Is(err, core.ErrConfig) || !errors.Is(err, ErrGainMismatch) {
			t.Errorf("Setup = %v", err)
		}
	})

	t.Run("bus failure", func(t *testing.T) {
		f, _, sw, _ := newTestFrontEnd()
		sw.fail = errors.New("nak")
		if err := f.Setup(audio.Mono, audio.Channel0, audio.Gain10dB); !errors.Is(err, core.ErrConfig) {
			t.Errorf("Setup = %v", err)
		}
	})
}
