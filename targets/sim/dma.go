package sim

import (
	"errors"

	"magpie/core"
)

// NumDMAChannels matches the RP2040.
const NumDMAChannels = 12

var (
	ErrNoChannel         = errors.New("sim: no free DMA channel")
	ErrBadDMAChannel     = errors.New("sim: DMA channel not claimed")
	ErrPortNotConfigured = errors.New("sim: data port not configured")
)

// Source produces wire-format sample bytes for a port.
type Source interface {
	Fill(port core.DataPortID, dst []byte)
}

// Ports are the slave-mode receive ports.
type Ports struct {
	config  map[core.DataPortID]core.DataPortConfig
	enabled map[core.DataPortID]bool
}

func NewPorts() *Ports {
	return &Ports{
		config:  make(map[core.DataPortID]core.DataPortConfig),
		enabled: make(map[core.DataPortID]bool),
	}
}

func (p *Ports) ConfigurePort(port core.DataPortID, cfg core.DataPortConfig) error {
	p.config[port] = cfg
	p.enabled[port] = false
	return nil
}

func (p *Ports) EnablePort(port core.DataPortID) error {
	if _, ok := p.config[port]; !ok {
		return ErrPortNotConfigured
	}
	p.enabled[port] = true
	return nil
}

func (p *Ports) DisablePort(port core.DataPortID) error {
	if _, ok := p.config[port]; !ok {
		return ErrPortNotConfigured
	}
	p.enabled[port] = false
	return nil
}

// Enabled reports whether port is receiving.
func (p *Ports) Enabled(port core.DataPortID) bool {
	return p.enabled[port]
}

type dmaChannel struct {
	claimed    bool
	enabled    bool
	port       core.DataPortID
	dest       []byte
	reload     []byte
	onComplete func()
}

// DMA is a controller whose transfers finish when Step is called rather
// than on a real clock. Each Step fills the current destination of every
// enabled channel with a port is receiving, switches it to its reload
// destination and runs the completion callback.
type DMA struct {
	channels [NumDMAChannels]dmaChannel
	ports    *Ports
	source   Source
	steps    uint32
}

// NewDMA creates a controller reading from ports, with samples from src.
func NewDMA(ports *Ports, src Source) *DMA {
	return &DMA{ports: ports, source: src}
}

func (d *DMA) AcquireChannel() (core.DMAChannelID, error) {
	for i := range d.channels {
		if !d.channels[i].claimed {
			d.channels[i] = dmaChannel{claimed: true}
			return core.DMAChannelID(i), nil
		}
	}
	return 0, core.NewOpError("sim dma acquire", core.ErrDMA, ErrNoChannel)
}

func (d *DMA) ReleaseChannel(id core.DMAChannelID) {
	if int(id) < len(d.channels) {
		d.channels[id] = dmaChannel{}
	}
}

func (d *DMA) ConfigureChannel(id core.DMAChannelID, cfg core.DMAConfig, onComplete func()) error {
	c, err := d.channel(id)
	if err != nil {
		return err
	}
	c.port = cfg.Port
	c.dest = cfg.Dest
	c.onComplete = onComplete
	c.enabled = false
	return nil
}

func (d *DMA) SetReload(id core.DMAChannelID, dest []byte) {
	if c, err := d.channel(id); err == nil {
		c.reload = dest
	}
}

func (d *DMA) EnableChannel(id core.DMAChannelID) error {
	c, err := d.channel(id)
	if err != nil {
		return err
	}
	c.enabled = true
	return nil
}

func (d *DMA) DisableChannel(id core.DMAChannelID) error {
	c, err := d.channel(id)
	if err != nil {
		return err
	}
	c.enabled = false
	return nil
}

func (d *DMA) channel(id core.DMAChannelID) (*dmaChannel, error) {
	if int(id) >= len(d.channels) || !d.channels[id].claimed {
		return nil, ErrBadDMAChannel
	}
	return &d.channels[id], nil
}

// Step completes one transfer on every running channel.
func (d *DMA) Step() {
	d.steps++
	for i := range d.channels {
		c := &d.channels[i]
		if !c.enabled || !d.ports.Enabled(c.port) || c.dest == nil {
			continue
		}
		d.source.Fill(c.port, c.dest)
		c.dest = c.reload
		if c.onComplete != nil {
			c.onComplete()
		}
	}
}

// Burst runs n steps back to back, as if the consumer had stalled.
func (d *DMA) Burst(n int) {
	for i := 0; i < n; i++ {
		d.Step()
	}
}

// Steps counts calls to Step.
func (d *DMA) Steps() uint32 {
	return d.steps
}

// Claimed is the number of channels in use.
func (d *DMA) Claimed() int {
	n := 0
	for i := range d.channels {
		if d.channels[i].claimed {
			n++
		}
	}
	return n
}
