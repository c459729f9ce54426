// Package decimate converts the 384 kHz working stream to 192, 96, 48 or
// 24 kHz with a fixed cascade of half-band FIR stages per rate.
package decimate

import (
	"errors"
	"sync/atomic"

	"magpie/audio"
)

var (
	ErrUnsupportedRate = errors.New("decimate: unsupported sample rate")
	ErrNotConfigured   = errors.New("decimate: channel has no sample rate set")
	ErrBadChannel      = errors.New("decimate: invalid channel")
	ErrBlockLength     = errors.New("decimate: block length not supported")
	ErrShortBuffer     = errors.New("decimate: destination too short")
	ErrScratchBusy     = errors.New("decimate: scratch buffers already claimed")
)

const noOwner = -1

// channelState is one input's filter chain. The history backing arrays
// are sized for the largest stage at each position and reused for every
// rate.
type channelState struct {
	rate    audio.SampleRate
	factor  int
	history [MaxStages][]audio.Sample32
	stages  [MaxStages]firStage
	nstages int
}

// Cascade holds the filter state for both channels and the scratch buffers
// that carry samples between stages. The scratch buffers are shared by the
// channels; each Downsample call claims them for its duration.
type Cascade struct {
	blockLen int
	channels [audio.NumChannels]channelState
	scratch  [2][]audio.Sample32
	owner    atomic.Int32
}

// NewCascade allocates state for input blocks of up to blockLen samples.
// blockLen must be a positive multiple of 64 so that every rate produces
// whole four-sample blocks for the converters.
func NewCascade(blockLen int) (*Cascade, error) {
	if blockLen <= 0 || blockLen%64 != 0 {
		return nil, ErrBlockLength
	}
	c := &Cascade{blockLen: blockLen}
	c.owner.Store(noOwner)

	// Size history per stage position and scratch per parity.
	var histLen [MaxStages]int
	var scratchLen [2]int
	for _, rate := range decimatedRates {
		specs, _ := stagesFor(rate)
		in := blockLen
		for p, spec := range specs {
			if n := in + len(spec.taps) - 1; n > histLen[p] {
				histLen[p] = n
			}
			in /= spec.factor
			if p < len(specs)-1 && in > scratchLen[p%2] {
				scratchLen[p%2] = in
			}
		}
	}
	for ch := range c.channels {
		for p := range histLen {
			c.channels[ch].history[p] = make([]audio.Sample32, histLen[p])
		}
	}
	c.scratch[0] = make([]audio.Sample32, scratchLen[0])
	c.scratch[1] = make([]audio.Sample32, scratchLen[1])
	return c, nil
}

// BlockLen is the largest input block accepted by Downsample.
func (c *Cascade) BlockLen() int {
	return c.blockLen
}

// SetSampleRate selects the cascade for rate on channel ch and zeroes its
// history, so nothing from an earlier configuration reaches the new
// stream. 384 kHz is accepted and leaves the channel without stages.
func (c *Cascade) SetSampleRate(rate audio.SampleRate, ch audio.Channel) error {
	if !ch.Valid() {
		return ErrBadChannel
	}
	if !rate.Valid() {
		return ErrUnsupportedRate
	}
	if c.owner.Load() != noOwner {
		return ErrScratchBusy
	}

	cs := &c.channels[ch]
	cs.rate = rate
	cs.factor = rate.DecimationFactor()
	specs, _ := stagesFor(rate)
	cs.nstages = len(specs)

	in := c.blockLen
	for p, spec := range specs {
		st := &cs.stages[p]
		st.factor = spec.factor
		st.taps = spec.taps
		st.state = cs.history[p][:in+len(spec.taps)-1]
		st.reset()
		in /= spec.factor
	}
	for p := len(specs); p < MaxStages; p++ {
		cs.stages[p] = firStage{}
	}
	return nil
}

// Rate returns the rate configured for ch, or 0 if none.
func (c *Cascade) Rate(ch audio.Channel) audio.SampleRate {
	if !ch.Valid() {
		return 0
	}
	return c.channels[ch].rate
}

// Factor is the total decimation factor configured for ch.
func (c *Cascade) Factor(ch audio.Channel) int {
	if !ch.Valid() {
		return 0
	}
	return c.channels[ch].factor
}

// Downsample filters all of src through ch's cascade and writes
// len(src)/factor samples to dst, returning that count. dst may be src.
func (c *Cascade) Downsample(src, dst []audio.Sample32, ch audio.Channel) (int, error) {
	if !ch.Valid() {
		return 0, ErrBadChannel
	}
	cs := &c.channels[ch]
	if cs.nstages == 0 {
		return 0, ErrNotConfigured
	}
	n := len(src)
	if n == 0 || n > c.blockLen || n%cs.factor != 0 {
		return 0, ErrBlockLength
	}
	if len(dst) < n/cs.factor {
		return 0, ErrShortBuffer
	}

	if !c.owner.CompareAndSwap(noOwner, int32(ch)) {
		return 0, ErrScratchBusy
	}
	defer c.owner.Store(noOwner)

	in := src
	for p := 0; p < cs.nstages; p++ {
		out := dst
		if p < cs.nstages-1 {
			out = c.scratch[p%2]
		}
		produced := cs.stages[p].run(in, out, len(in))
		in = out[:produced]
	}
	return len(in), nil
}
