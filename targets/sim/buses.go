package sim

import "errors"

var ErrNack = errors.New("sim: no device at address")

// ConverterBus is the AD4630 register interface as seen over SPI: three
// byte frames, read flag in the top bit of the first byte.
type ConverterBus struct {
	regs       map[uint16]byte
	configMode bool
	frames     int
}

const (
	convReadFlag   = 0x80
	convEntryReg   = 0x3FFF
	convExitReg    = 0x14
	convDeviceType = 0x03
)

// NewConverterBus returns a register file at power-on state.
func NewConverterBus() *ConverterBus {
	return &ConverterBus{regs: map[uint16]byte{convDeviceType: 0x07}}
}

func (b *ConverterBus) Tx(w, r []byte) error {
	if len(w) != 3 {
		return nil
	}
	b.frames++
	reg := uint16(w[0]&^convReadFlag)<<8 | uint16(w[1])
	if w[0]&convReadFlag != 0 {
		if reg == convEntryReg {
			b.configMode = true
		}
		if len(r) == 3 {
			r[2] = b.regs[reg]
		}
		return nil
	}
	if !b.configMode {
		return nil
	}
	if reg == convExitReg && w[2] == 1 {
		b.configMode = false
		return nil
	}
	b.regs[reg] = w[2]
	return nil
}

func (b *ConverterBus) Transfer(w byte) (byte, error) {
	return 0, nil
}

// Register returns a register's value.
func (b *ConverterBus) Register(reg uint16) byte {
	return b.regs[reg]
}

// InConfigMode reports whether register writes are being accepted.
func (b *ConverterBus) InConfigMode() bool {
	return b.configMode
}

// Frames counts SPI frames seen.
func (b *ConverterBus) Frames() int {
	return b.frames
}

// I2C is a bus of latch devices: each keeps the last byte of a plain
// write and returns it on read. That covers the gain switches and the load
// switch control register.
type I2C struct {
	latch map[uint16]byte
}

// NewI2C creates a bus with devices at addrs.
func NewI2C(addrs ...uint16) *I2C {
	b := &I2C{latch: make(map[uint16]byte)}
	for _, a := range addrs {
		b.latch[a] = 0
	}
	return b
}

func (b *I2C) Tx(addr uint16, w, r []byte) error {
	if _, ok := b.latch[addr]; !ok {
		return ErrNack
	}
	if len(r) == 0 && len(w) > 0 {
		b.latch[addr] = w[len(w)-1]
	}
	if len(r) > 0 {
		r[0] = b.latch[addr]
	}
	return nil
}

func (b *I2C) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{r}, buf)
}

func (b *I2C) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), append([]byte{r}, buf...), nil)
}

// Latched returns the last byte written to addr.
func (b *I2C) Latched(addr uint16) byte {
	return b.latch[addr]
}
