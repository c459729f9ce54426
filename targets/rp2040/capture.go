//go:build rp2040

package main

// Sample capture using PIO receive ports and the DMA controller.
//
// The converter clocks each channel's data out on its own serial line.
// One PIO state machine per channel acts as the slave-mode receive port:
//
//	wait 1 pin 1   ; clock high
//	wait 0 pin 1   ; falling edge (mode 1 samples here)
//	in   pins, 1   ; shift one data bit, autopush every WordBits
//
// The data line is the state machine's IN base and the clock is the
// next GPIO up. Each pushed word lands in the RX FIFO and raises a DREQ
// for the DMA channel reading that FIFO a byte at a time.

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"magpie/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Capture wiring: data pin per port, clock on data+1.
var capturePorts = [...]capturePort{
	{pioNum: 0, smNum: 0, data: machine.GPIO10},
	{pioNum: 0, smNum: 1, data: machine.GPIO14},
}

const (
	numDMAChannels = 12

	dmaBase          = 0x50000000
	dmaChannelStride = 0x40
	dmaINTE0         = dmaBase + 0x404
	dmaINTS0         = dmaBase + 0x40C
	dmaCHAN_ABORT    = dmaBase + 0x444

	// Channel register offsets
	dmaREAD_ADDR            = 0x00
	dmaWRITE_ADDR           = 0x04
	dmaTRANS_COUNT          = 0x08
	dmaCTRL_TRIG            = 0x0C
	dmaAL1_CTRL             = 0x10
	dmaAL1_TRANS_COUNT_TRIG = 0x1C

	// CTRL bits
	dmaCtrlEN           = 1 << 0
	dmaCtrlHighPriority = 1 << 1
	dmaCtrlSizeByte     = 0 << 2
	dmaCtrlIncrWrite    = 1 << 5
	dmaCtrlChainPos     = 11
	dmaCtrlTreqPos      = 15

	// DREQ numbers for PIO RX FIFOs
	dreqPIO0RX0 = 4
	dreqPIO1RX0 = 12

	pio0Base = 0x50200000
	pio1Base = 0x50300000
	pioRXF0  = 0x20

	captureOrigin = -1 // anywhere in instruction memory
)

var (
	errNoDMAChannel  = errors.New("capture: no free DMA channel")
	errBadDMAChannel = errors.New("capture: DMA channel not claimed")
	errBadPort       = errors.New("capture: unknown data port")
	errPortIdle      = errors.New("capture: data port not configured")
	errWordBits      = errors.New("capture: word size must be 8, 16 or 32 bits")
)

type capturePort struct {
	pioNum uint8
	smNum  uint8
	data   machine.Pin

	sm         rp2pio.StateMachine
	configured bool
}

func (p *capturePort) pio() *rp2pio.PIO {
	if p.pioNum == 0 {
		return rp2pio.PIO0
	}
	return rp2pio.PIO1
}

// fifo is the address of the state machine's RX FIFO register
func (p *capturePort) fifo() uintptr {
	base := uintptr(pio0Base)
	if p.pioNum != 0 {
		base = pio1Base
	}
	return base + pioRXF0 + 4*uintptr(p.smNum)
}

func (p *capturePort) dreq() uint32 {
	if p.pioNum == 0 {
		return dreqPIO0RX0 + uint32(p.smNum)
	}
	return dreqPIO1RX0 + uint32(p.smNum)
}

type captureChannel struct {
	claimed    bool
	port       *capturePort
	length     uint32
	reload     []byte
	onComplete func()
}

// Capture implements core.DataPortDriver with PIO state machines and
// core.DMADriver with the RP2040 DMA block. The completion interrupt
// restarts a channel into its reload buffer before running the callback,
// so only the PIO FIFO has to cover the interrupt latency.
type Capture struct {
	channels [numDMAChannels]captureChannel
	offset   [2]int16 // program offset per PIO, -1 when not loaded
	irq      interrupt.Interrupt
}

// capture is referenced from the interrupt handler.
var capture *Capture

// NewCapture sets up the DMA interrupt. Call once.
func NewCapture() *Capture {
	c := &Capture{offset: [2]int16{-1, -1}}
	capture = c
	c.irq = interrupt.New(rp.IRQ_DMA_IRQ_0, func(interrupt.Interrupt) {
		capture.handleIRQ()
	})
	c.irq.SetPriority(0x00)
	c.irq.Enable()
	return c
}

// buildCaptureProgram creates the receive program for a port
func buildCaptureProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		waitPin(true, 1),                     // 0: wait 1 pin 1
		waitPin(false, 1),                    // 1: wait 0 pin 1
		asm.In(rp2pio.InSrcPins, 1).Encode(), // 2: in pins, 1
		// .wrap
	}
}

// waitPin encodes WAIT on a pin relative to the IN base.
func waitPin(polarity bool, index uint8) uint16 {
	const opWait = 0b001 << 13
	const srcPin = 0b01 << 5
	ins := uint16(opWait | srcPin | uint16(index&0x1F))
	if polarity {
		ins |= 1 << 7
	}
	return ins
}

func (c *Capture) port(id core.DataPortID) (*capturePort, error) {
	if int(id) >= len(capturePorts) {
		return nil, errBadPort
	}
	return &capturePorts[id], nil
}

// ConfigurePort loads the program if needed and initialises the state
// machine, leaving it disabled.
func (c *Capture) ConfigurePort(id core.DataPortID, cfg core.DataPortConfig) error {
	p, err := c.port(id)
	if err != nil {
		return err
	}
	switch cfg.WordBits {
	case 8, 16, 32:
	default:
		return errWordBits
	}

	block := p.pio()
	program := buildCaptureProgram()
	if c.offset[p.pioNum] < 0 {
		offset, err := block.AddProgram(program, captureOrigin)
		if err != nil {
			return err
		}
		c.offset[p.pioNum] = int16(offset)
	}
	offset := uint8(c.offset[p.pioNum])

	p.sm = block.StateMachine(p.smNum)
	p.sm.TryClaim()

	clk := p.data + 1
	p.data.Configure(machine.PinConfig{Mode: block.PinMode()})
	clk.Configure(machine.PinConfig{Mode: block.PinMode()})

	smcfg := rp2pio.DefaultStateMachineConfig()
	smcfg.SetInPins(p.data)
	// Shift left so the first bit on the wire ends up as the MSB
	smcfg.SetInShift(false, true, uint16(cfg.WordBits))
	smcfg.SetFIFOJoin(rp2pio.FifoJoinRx)
	smcfg.SetWrap(offset+uint8(len(program))-1, offset)
	// Run at system clock; the program is paced by the converter clock
	smcfg.SetClkDivIntFrac(1, 0)

	p.sm.Init(offset, smcfg)
	p.sm.SetPindirsConsecutive(p.data, 2, false)
	p.sm.SetEnabled(false)
	p.configured = true
	return nil
}

// EnablePort starts shifting data in
func (c *Capture) EnablePort(id core.DataPortID) error {
	p, err := c.port(id)
	if err != nil {
		return err
	}
	if !p.configured {
		return errPortIdle
	}
	p.sm.ClearFIFOs()
	p.sm.Restart()
	p.sm.SetEnabled(true)
	return nil
}

// DisablePort stops the state machine and drops anything in its FIFO
func (c *Capture) DisablePort(id core.DataPortID) error {
	p, err := c.port(id)
	if err != nil {
		return err
	}
	if !p.configured {
		return errPortIdle
	}
	p.sm.SetEnabled(false)
	p.sm.ClearFIFOs()
	return nil
}

// AcquireChannel claims the lowest free DMA channel
func (c *Capture) AcquireChannel() (core.DMAChannelID, error) {
	for i := range c.channels {
		if !c.channels[i].claimed {
			c.channels[i] = captureChannel{claimed: true}
			return core.DMAChannelID(i), nil
		}
	}
	return 0, core.NewOpError("dma acquire", core.ErrDMA, errNoDMAChannel)
}

// ReleaseChannel aborts the channel and frees it
func (c *Capture) ReleaseChannel(id core.DMAChannelID) {
	if int(id) >= len(c.channels) {
		return
	}
	c.DisableChannel(id)
	c.channels[id] = captureChannel{}
}

// ConfigureChannel programs FIFO to memory, a byte per DREQ, write
// address incrementing, chained to itself (no chain).
func (c *Capture) ConfigureChannel(id core.DMAChannelID, cfg core.DMAConfig, onComplete func()) error {
	ch, err := c.channel(id)
	if err != nil {
		return err
	}
	p, err := c.port(cfg.Port)
	if err != nil {
		return err
	}
	if len(cfg.Dest) == 0 {
		return core.NewOpError("dma configure", core.ErrDMA, nil)
	}

	ch.port = p
	ch.length = uint32(len(cfg.Dest))
	ch.onComplete = onComplete

	ctrl := uint32(dmaCtrlSizeByte|dmaCtrlIncrWrite) |
		uint32(id)<<dmaCtrlChainPos |
		p.dreq()<<dmaCtrlTreqPos
	if cfg.Priority == 0 {
		ctrl |= dmaCtrlHighPriority
	}

	dmaReg(id, dmaREAD_ADDR).Set(uint32(p.fifo()))
	dmaReg(id, dmaWRITE_ADDR).Set(bufferAddr(cfg.Dest))
	dmaReg(id, dmaTRANS_COUNT).Set(ch.length)
	// AL1_CTRL does not trigger, so the channel stays idle until enabled
	dmaReg(id, dmaAL1_CTRL).Set(ctrl)

	inte := (*volatile.Register32)(unsafe.Pointer(uintptr(dmaINTE0)))
	inte.SetBits(1 << uint32(id))
	return nil
}

// SetReload stores the next destination. Called from the interrupt.
func (c *Capture) SetReload(id core.DMAChannelID, dest []byte) {
	if int(id) < len(c.channels) {
		c.channels[id].reload = dest
	}
}

// EnableChannel sets EN and triggers the first transfer
func (c *Capture) EnableChannel(id core.DMAChannelID) error {
	if _, err := c.channel(id); err != nil {
		return err
	}
	ctrl := dmaReg(id, dmaAL1_CTRL).Get()
	dmaReg(id, dmaCTRL_TRIG).Set(ctrl | dmaCtrlEN)
	return nil
}

// DisableChannel clears EN and aborts any transfer in flight
func (c *Capture) DisableChannel(id core.DMAChannelID) error {
	if _, err := c.channel(id); err != nil {
		return err
	}
	state := core.DisableInterrupts()
	inte := (*volatile.Register32)(unsafe.Pointer(uintptr(dmaINTE0)))
	inte.ClearBits(1 << uint32(id))
	dmaReg(id, dmaAL1_CTRL).ClearBits(dmaCtrlEN)

	abort := (*volatile.Register32)(unsafe.Pointer(uintptr(dmaCHAN_ABORT)))
	abort.Set(1 << uint32(id))
	for abort.HasBits(1 << uint32(id)) {
	}
	core.RestoreInterrupts(state)
	return nil
}

func (c *Capture) channel(id core.DMAChannelID) (*captureChannel, error) {
	if int(id) >= len(c.channels) || !c.channels[id].claimed {
		return nil, errBadDMAChannel
	}
	return &c.channels[id], nil
}

// handleIRQ restarts every finished channel into its reload buffer and
// then runs its completion callback, which sets the following reload.
func (c *Capture) handleIRQ() {
	ints := (*volatile.Register32)(unsafe.Pointer(uintptr(dmaINTS0)))
	pending := ints.Get()
	ints.Set(pending) // write 1 to clear

	UpdateSystemTime()
	for i := range c.channels {
		if pending&(1<<uint32(i)) == 0 {
			continue
		}
		ch := &c.channels[i]
		if !ch.claimed || ch.reload == nil {
			continue
		}
		id := core.DMAChannelID(i)
		dmaReg(id, dmaWRITE_ADDR).Set(bufferAddr(ch.reload))
		dmaReg(id, dmaAL1_TRANS_COUNT_TRIG).Set(ch.length)
		if ch.onComplete != nil {
			ch.onComplete()
		}
	}
}

func dmaReg(id core.DMAChannelID, offset uintptr) *volatile.Register32 {
	addr := uintptr(dmaBase) + uintptr(id)*dmaChannelStride + offset
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

func bufferAddr(b []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}
