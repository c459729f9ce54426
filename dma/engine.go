// Package dma moves raw 24-bit samples from the two ADC receive ports into
// per-channel ping-pong rings. The hardware writes chunk after chunk on its
// own; the completion interrupt only does index bookkeeping, and the
// recording loop claims finished chunks from the rings.
package dma

import (
	"errors"
	"time"

	"magpie/audio"
	"magpie/core"
)

const (
	// DefaultChunks is N, the number of chunks per ring.
	DefaultChunks = 4

	// DefaultChunkSamples is 4 ms at 384 kHz, so whole seconds are an
	// integral number of chunks.
	DefaultChunkSamples = 1536

	// BytesPerSample is the packed width on the wire.
	BytesPerSample = audio.Sample24Bytes

	// DefaultSyncTimeout bounds each start-up wait on the chip-select
	// monitor. The frame clock toggles at 384 kHz, so an edge normally
	// arrives within microseconds.
	DefaultSyncTimeout = 50 * time.Millisecond

	// DefaultStaggerEdges is 1.5 receive FIFO fills (8 + 4 frames).
	DefaultStaggerEdges = 12

	// rxThreshold raises a DMA request every 8 frames (24 bytes).
	rxThreshold = 24
)

var (
	ErrBadChannel = errors.New("dma: invalid channel")
	ErrState      = errors.New("dma: operation not valid in current state")
)

// State is the lifecycle of one channel.
type State uint8

const (
	Uninitialized State = iota
	Configured
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Config describes the ring geometry and the board wiring.
type Config struct {
	Chunks       int
	ChunkSamples int
	Ports        [audio.NumChannels]core.DataPortID
	CSCheckPin   core.GPIOPin
	SyncTimeout  time.Duration
	StaggerEdges int
	Priority     uint8
}

func (c *Config) applyDefaults() {
	if c.Chunks == 0 {
		c.Chunks = DefaultChunks
	}
	if c.ChunkSamples == 0 {
		c.ChunkSamples = DefaultChunkSamples
	}
	if c.SyncTimeout == 0 {
		c.SyncTimeout = DefaultSyncTimeout
	}
	if c.StaggerEdges == 0 {
		c.StaggerEdges = DefaultStaggerEdges
	}
}

type channel struct {
	ring  *Ring
	dma   core.DMAChannelID
	state State
}

// Engine owns both channels' rings and hardware channels.
type Engine struct {
	dma   core.DMADriver
	ports core.DataPortDriver
	gpio  core.GPIODriver
	cfg   Config
	ch    [audio.NumChannels]channel
}

// NewEngine allocates the rings. No hardware is touched until Configure.
func NewEngine(d core.DMADriver, ports core.DataPortDriver, gpio core.GPIODriver, cfg Config) (*Engine, error) {
	cfg.applyDefaults()
	e := &Engine{dma: d, ports: ports, gpio: gpio, cfg: cfg}
	for i := range e.ch {
		r, err := NewRing(cfg.Chunks, cfg.ChunkSamples*BytesPerSample)
		if err != nil {
			return nil, err
		}
		e.ch[i].ring = r
	}
	return e, nil
}

// ChunkSamples is the number of samples per chunk.
func (e *Engine) ChunkSamples() int {
	return e.cfg.ChunkSamples
}

// Chunks is N.
func (e *Engine) Chunks() int {
	return e.cfg.Chunks
}

// ChunkPeriod is the time the hardware takes to fill one chunk.
func (e *Engine) ChunkPeriod() time.Duration {
	return time.Duration(e.cfg.ChunkSamples) * time.Second / time.Duration(audio.BaseRate)
}

// State reports a channel's lifecycle state.
func (e *Engine) State(ch audio.Channel) State {
	if !ch.Valid() {
		return Uninitialized
	}
	return e.ch[ch].state
}

// Configure claims a DMA channel per input and programs it and its
// receive port, leaving both disabled. If no DMA channel is free the
// already claimed ones are released and an ErrDMA error is returned.
func (e *Engine) Configure() error {
	for i := range e.ch {
		if e.ch[i].state != Uninitialized {
			return core.NewOpError("dma configure", core.ErrDMA, ErrState)
		}
	}

	for i := range e.ch {
		id, err := e.dma.AcquireChannel()
		if err != nil {
			e.release(i)
			return core.NewOpError("dma acquire", core.ErrDMA, err)
		}
		e.ch[i].dma = id
		e.ch[i].state = Configured
	}

	for i := range e.ch {
		err := e.ports.ConfigurePort(e.cfg.Ports[i], core.DataPortConfig{
			Mode:        1,
			WordBits:    8,
			RxThreshold: rxThreshold,
		})
		if err != nil {
			e.release(len(e.ch))
			return core.NewOpError("dma port setup", core.ErrDMA, err)
		}
		if err := e.program(audio.Channel(i)); err != nil {
			e.release(len(e.ch))
			return err
		}
	}
	return nil
}

// program points a channel at chunk 0 with chunk 1 as reload target.
func (e *Engine) program(ch audio.Channel) error {
	c := &e.ch[ch]
	c.ring.Reset()
	err := e.dma.ConfigureChannel(c.dma, core.DMAConfig{
		Port:       e.cfg.Ports[ch],
		Dest:       c.ring.Chunk(0),
		BurstBytes: rxThreshold,
		Priority:   e.cfg.Priority,
	}, func() { e.OnChunkComplete(ch) })
	if err != nil {
		return core.NewOpError("dma channel setup", core.ErrDMA, err)
	}
	e.dma.SetReload(c.dma, c.ring.Chunk(1))
	return nil
}

// release frees the first n claimed channels.
func (e *Engine) release(n int) {
	for i := 0; i < n && i < len(e.ch); i++ {
		if e.ch[i].state != Uninitialized {
			e.dma.ReleaseChannel(e.ch[i].dma)
			e.ch[i].state = Uninitialized
		}
	}
}

// Start aligns to a chip-select edge, enables channel 0, waits out the
// stagger and enables channel 1. The two completion interrupts then fire
// roughly 1.5 FIFO fills apart instead of together.
func (e *Engine) Start() error {
	for i := range e.ch {
		switch e.ch[i].state {
		case Configured:
		case Stopped:
			if err := e.program(audio.Channel(i)); err != nil {
				return err
			}
			e.ch[i].state = Configured
		default:
			return core.NewOpError("dma start", core.ErrDMA, ErrState)
		}
	}

	if err := WaitForRisingEdge(e.gpio, e.cfg.CSCheckPin, e.cfg.SyncTimeout); err != nil {
		return core.NewOpError("dma sync", core.ErrSyncTimeout, nil)
	}
	if err := e.enable(audio.Channel0); err != nil {
		return err
	}

	if err := CountRisingEdges(e.gpio, e.cfg.CSCheckPin, e.cfg.StaggerEdges, e.cfg.SyncTimeout); err != nil {
		e.Stop()
		return core.NewOpError("dma stagger", core.ErrSyncTimeout, nil)
	}
	if err := e.enable(audio.Channel1); err != nil {
		e.Stop()
		return err
	}
	return nil
}

// enable turns on the receive path first so the DMA never waits on a
// silent port.
func (e *Engine) enable(ch audio.Channel) error {
	c := &e.ch[ch]
	if err := e.ports.EnablePort(e.cfg.Ports[ch]); err != nil {
		return core.NewOpError("dma enable port", core.ErrDMA, err)
	}
	if err := e.dma.EnableChannel(c.dma); err != nil {
		e.ports.DisablePort(e.cfg.Ports[ch])
		return core.NewOpError("dma enable channel", core.ErrDMA, err)
	}
	c.state = Running
	core.RecordTiming(core.EvtStart, uint8(ch), uint32(c.dma), 0)
	return nil
}

// Stop disables each running channel's DMA and then its receive port.
// Rings keep their contents until the next Start.
func (e *Engine) Stop() error {
	var first error
	for i := range e.ch {
		c := &e.ch[i]
		if c.state != Running {
			continue
		}
		if err := e.dma.DisableChannel(c.dma); err != nil && first == nil {
			first = core.NewOpError("dma disable channel", core.ErrDMA, err)
		}
		if err := e.ports.DisablePort(e.cfg.Ports[i]); err != nil && first == nil {
			first = core.NewOpError("dma disable port", core.ErrDMA, err)
		}
		c.state = Stopped
		core.RecordTiming(core.EvtStop, uint8(i), c.ring.Completed(), uint32(c.ring.Available()))
	}
	return first
}

// Close stops the engine and returns the DMA channels.
func (e *Engine) Close() error {
	err := e.Stop()
	e.release(len(e.ch))
	return err
}

// OnChunkComplete is the completion interrupt for ch. It stores the next
// reload address and bumps the counters; buffer contents are not touched.
func (e *Engine) OnChunkComplete(ch audio.Channel) {
	c := &e.ch[ch]
	next := c.ring.Complete()
	e.dma.SetReload(c.dma, next)

	avail := c.ring.Available()
	core.RecordTiming(core.EvtChunkComplete, uint8(ch), c.ring.reload, uint32(avail))
	if avail > c.ring.Len() {
		core.RecordTiming(core.EvtOverrun, uint8(ch), c.ring.Completed(), uint32(avail))
	}
}

// NumAvailable is the number of completed chunks waiting on ch.
func (e *Engine) NumAvailable(ch audio.Channel) int {
	if !ch.Valid() {
		return 0
	}
	return e.ch[ch].ring.Available()
}

// ConsumeBuffer claims the next completed chunk of ch. See Ring.Consume.
func (e *Engine) ConsumeBuffer(ch audio.Channel) ([]byte, error) {
	if !ch.Valid() {
		return nil, ErrBadChannel
	}
	buf, err := e.ch[ch].ring.Consume()
	if err == nil {
		core.RecordTiming(core.EvtChunkConsume, uint8(ch), e.ch[ch].ring.read, uint32(e.ch[ch].ring.Available()))
	}
	return buf, err
}

// OverrunOccurred reports whether ch's ring was lapped.
func (e *Engine) OverrunOccurred(ch audio.Channel) bool {
	if !ch.Valid() {
		return false
	}
	return e.ch[ch].ring.Overrun()
}

// ClearOverrun resets ch's overrun flag.
func (e *Engine) ClearOverrun(ch audio.Channel) {
	if ch.Valid() {
		e.ch[ch].ring.ClearOverrun()
	}
}
