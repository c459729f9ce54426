package recorder

import (
	"errors"
	"math"
	"time"

	"magpie/audio"
	"magpie/config"
	"magpie/core"
	"magpie/wav"
)

var (
	ErrBadSession = errors.New("recorder: invalid session parameters")
	ErrBadChunk   = errors.New("recorder: chunk length must be a positive multiple of 64")
)

// Session is what one file records.
type Session struct {
	Rate     audio.SampleRate
	Depth    audio.BitDepth
	Mode     audio.ChannelMode
	Channel  audio.Channel // input recorded in mono
	Gain     audio.Gain    // GainUndefined leaves the front end alone
	Duration time.Duration
}

// SessionFromConfig maps a validated configuration onto a Session.
func SessionFromConfig(c *config.RecorderConfig) Session {
	return Session{
		Rate:     c.Rate(),
		Depth:    c.Depth(),
		Mode:     c.Mode(),
		Channel:  c.Channel(),
		Gain:     c.Gain(),
		Duration: c.Duration(),
	}
}

func (s Session) validate() error {
	if !s.Rate.Valid() || !s.Depth.Valid() || !s.Channel.Valid() || s.Duration <= 0 ||
		(s.Mode != audio.Mono && s.Mode != audio.Stereo) ||
		(s.Gain != audio.GainUndefined && !s.Gain.Valid()) {
		return core.NewOpError("recorder arm", core.ErrConfig, ErrBadSession)
	}
	return nil
}

// PoolBytes is the size of the shared processing pool for a given chunk
// length: room for two channels of 32-bit samples, three times over.
func PoolBytes(chunkSamples int) int {
	return chunkSamples * audio.Sample32Bytes * audio.NumChannels * 3
}

// Plan is the per-session arithmetic derived at Arm time.
type Plan struct {
	Session
	Pipeline     Pipeline
	ChunkSamples int
	Factor       int

	// PoolBytes is split into ReserveBytes of decimation workspace and a
	// packing region. 384 kHz reserves nothing.
	PoolBytes    int
	ReserveBytes int

	BytesPerChunk int // one processed chunk, all channels
	ChunksPerPack int // processed chunks per storage write
	TotalChunks   int // chunks consumed for Duration
}

// NewPlan computes the plan for s with the ingest chunk length.
func NewPlan(s Session, chunkSamples int) (Plan, error) {
	if err := s.validate(); err != nil {
		return Plan{}, err
	}
	if chunkSamples <= 0 || chunkSamples%64 != 0 {
		return Plan{}, core.NewOpError("recorder plan", core.ErrConfig, ErrBadChunk)
	}

	channels := s.Mode.Count()
	p := Plan{
		Session:      s,
		Pipeline:     SelectPipeline(s.Rate, s.Mode),
		ChunkSamples: chunkSamples,
		Factor:       s.Rate.DecimationFactor(),
		PoolBytes:    PoolBytes(chunkSamples),
	}
	if p.Factor > 1 {
		p.ReserveBytes = chunkSamples * audio.Sample32Bytes * channels
	}
	p.BytesPerChunk = (chunkSamples / p.Factor) * s.Depth.BytesPerSample() * channels
	p.ChunksPerPack = (p.PoolBytes - p.ReserveBytes) / p.BytesPerChunk

	micros := uint64(s.Duration / time.Microsecond)
	p.TotalChunks = int(micros * uint64(audio.BaseRate) / (1000000 * uint64(chunkSamples)))
	if p.PayloadBytes()+wav.Length > math.MaxUint32 {
		return Plan{}, core.NewOpError("recorder plan", core.ErrConfig, ErrBadSession)
	}
	return p, nil
}

// PackBytes is the size of the packing region actually used.
func (p Plan) PackBytes() int {
	return p.ChunksPerPack * p.BytesPerChunk
}

// PayloadBytes is the audio the file will hold if the session runs to
// completion. It is 64-bit so oversized sessions are caught rather than
// wrapped.
func (p Plan) PayloadBytes() uint64 {
	return uint64(p.TotalChunks) * uint64(p.BytesPerChunk)
}
