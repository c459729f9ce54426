// Package recorder runs a recording session: it arms the capture path for
// a rate, depth and channel mode, pulls chunks from the DMA rings through
// conversion and decimation into a packing buffer, writes full packs to
// storage and finishes the file with a length-corrected WAVE header.
package recorder

import (
	"context"
	"errors"

	"magpie/audio"
	"magpie/core"
	"magpie/decimate"
	"magpie/storage"
	"magpie/wav"
)

var (
	ErrNotArmed = errors.New("recorder: not armed")
	ErrBusy     = errors.New("recorder: session in progress")
)

// State is the recorder lifecycle.
type State uint8

const (
	Idle State = iota
	Armed
	Recording
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	}
	return "unknown"
}

// ConversionClock starts and stops the ADC's free-running conversions.
type ConversionClock interface {
	StartConversions() error
	StopConversions() error
}

// Ingest is the consumer side of the DMA engine.
type Ingest interface {
	ChunkSamples() int
	Start() error
	Stop() error
	NumAvailable(ch audio.Channel) int
	ConsumeBuffer(ch audio.Channel) ([]byte, error)
	OverrunOccurred(ch audio.Channel) bool
}

// FrontEnd powers and sets the gain of the analog inputs.
type FrontEnd interface {
	Setup(mode audio.ChannelMode, mono audio.Channel, gain audio.Gain) error
}

// Options are optional collaborators.
type Options struct {
	// FrontEnd, when set, is configured at every Arm.
	FrontEnd FrontEnd

	// Idle runs on each empty poll of the rings. Nil keeps the loop a
	// pure spin; the simulator uses it to advance its DMA.
	Idle func()
}

// Result describes a finished (or aborted) file.
type Result struct {
	Name         string
	Chunks       int    // chunks consumed per channel
	Flushes      int    // storage writes of packed audio
	PayloadBytes uint32 // audio bytes written after the header
	FileLength   uint32 // header plus payload, as declared in the header
	Stopped      bool   // ended early by cancellation
}

// Recorder owns the processing memory and filter state across sessions.
type Recorder struct {
	clock   ConversionClock
	ingest  Ingest
	sink    storage.Sink
	opts    Options
	cascade *decimate.Cascade
	arena   *Arena
	header  wav.Header

	state   State
	plan    Plan
	process stage
}

// New creates a recorder. The ingest engine must already be configured.
func New(clock ConversionClock, ingest Ingest, sink storage.Sink, opts Options) (*Recorder, error) {
	cascade, err := decimate.NewCascade(ingest.ChunkSamples())
	if err != nil {
		return nil, core.NewOpError("recorder new", core.ErrConfig, err)
	}
	return &Recorder{
		clock:   clock,
		ingest:  ingest,
		sink:    sink,
		opts:    opts,
		cascade: cascade,
		arena:   NewArena(ingest.ChunkSamples()),
	}, nil
}

// State returns the lifecycle state.
func (r *Recorder) State() State {
	return r.state
}

// Plan returns the plan of the armed or last session.
func (r *Recorder) Plan() Plan {
	return r.plan
}

// Arm prepares a session: plan arithmetic, arena layout, filter reset,
// data path selection and front end set-up. Arming again from Armed
// replaces the session.
func (r *Recorder) Arm(s Session) error {
	if r.state != Idle && r.state != Armed {
		return core.NewOpError("recorder arm", core.ErrConfig, ErrBusy)
	}
	p, err := NewPlan(s, r.ingest.ChunkSamples())
	if err != nil {
		return err
	}
	if err := r.arena.Configure(p); err != nil {
		return core.NewOpError("recorder arm", core.ErrConfig, err)
	}
	if p.Pipeline.Decimated() {
		for ch := audio.Channel0; ch < audio.NumChannels; ch++ {
			if s.Mode == audio.Mono && ch != s.Channel {
				continue
			}
			if err := r.cascade.SetSampleRate(s.Rate, ch); err != nil {
				return core.NewOpError("recorder arm", core.ErrConfig, err)
			}
		}
	}
	if r.opts.FrontEnd != nil && s.Gain != audio.GainUndefined {
		if err := r.opts.FrontEnd.Setup(s.Mode, s.Channel, s.Gain); err != nil {
			return err
		}
	}

	r.plan = p
	r.process = r.bindPipeline()
	r.state = Armed
	core.DebugPrintln("[REC] armed " + p.Pipeline.String() +
		" rate=" + core.Itoa(int(s.Rate)) +
		" bits=" + core.Itoa(int(s.Depth)) +
		" chunks=" + core.Itoa(p.TotalChunks) +
		" pack=" + core.Itoa(p.ChunksPerPack))
	return nil
}

// Record writes one file named name for the armed session. It returns
// when the planned number of chunks has been consumed, when ctx is
// cancelled (the file is finalized with what was captured) or on a fatal
// error. Fatal errors leave the file without a valid header.
func (r *Recorder) Record(ctx context.Context, name string) (Result, error) {
	res := Result{Name: name}
	if r.state != Armed {
		return res, core.NewOpError("record", core.ErrConfig, ErrNotArmed)
	}
	owner := OwnerOf(r.plan.Pipeline, r.plan.Channel)
	if err := r.arena.Claim(owner); err != nil {
		return res, core.NewOpError("record", core.ErrConfig, err)
	}
	defer r.arena.Release(owner)

	if err := r.sink.Open(name, storage.ModeCreate); err != nil {
		r.state = Idle
		return res, core.NewOpError("storage open", core.ErrStorage, err)
	}
	if err := r.sink.Seek(uint32(r.header.HeaderLength())); err != nil {
		return res, r.abort(core.NewOpError("storage seek", core.ErrStorage, err), false)
	}

	r.state = Recording
	if err := r.clock.StartConversions(); err != nil {
		return res, r.abort(err, true)
	}
	if err := r.ingest.Start(); err != nil {
		return res, r.abort(err, true)
	}

	pack := r.arena.Pack()
	per := r.plan.BytesPerChunk
	fill, packed := 0, 0
	done := ctx.Done()

loop:
	for res.Chunks < r.plan.TotalChunks {
		select {
		case <-done:
			res.Stopped = true
			break loop
		default:
		}

		if r.ingest.OverrunOccurred(audio.Channel0) || r.ingest.OverrunOccurred(audio.Channel1) {
			core.RecordTiming(core.EvtOverrun, uint8(r.plan.Channel), uint32(res.Chunks), 0)
			core.DumpTimingRing()
			return res, r.abort(core.NewOpError("record", core.ErrOverrun, nil), true)
		}
		if r.ingest.NumAvailable(audio.Channel0) == 0 || r.ingest.NumAvailable(audio.Channel1) == 0 {
			if r.opts.Idle != nil {
				r.opts.Idle()
			}
			continue
		}

		n, err := r.process(pack[fill : fill+per])
		if err != nil {
			return res, r.abort(err, true)
		}
		fill += n
		packed++
		res.Chunks++

		if packed >= r.plan.ChunksPerPack {
			if err := r.flush(pack[:fill], &res); err != nil {
				return res, r.abort(err, true)
			}
			fill, packed = 0, 0
		}
	}

	return res, r.finalize(pack[:fill], &res)
}

func (r *Recorder) flush(b []byte, res *Result) error {
	if _, err := r.sink.Write(b); err != nil {
		return core.NewOpError("storage write", core.ErrStorage, err)
	}
	res.Flushes++
	res.PayloadBytes += uint32(len(b))
	core.RecordTiming(core.EvtFlush, 0, uint32(len(b)), uint32(res.Chunks))
	return nil
}

// finalize writes the partial pack, stops the hardware and rewrites the
// header with the final length.
func (r *Recorder) finalize(rest []byte, res *Result) error {
	r.state = Finalizing
	if len(rest) > 0 {
		if err := r.flush(rest, res); err != nil {
			return r.abort(err, true)
		}
	}
	stopErr := r.stopHardware()

	if err := r.sink.Seek(0); err != nil {
		return r.abort(core.NewOpError("storage seek", core.ErrStorage, err), false)
	}
	size := r.sink.Size()
	r.header.SetAttributes(wav.Attributes{
		SampleRate:    r.plan.Rate,
		BitsPerSample: r.plan.Depth,
		NumChannels:   uint16(r.plan.Mode.Count()),
		FileLength:    size,
	})
	if _, err := r.sink.Write(r.header.Bytes()); err != nil {
		return r.abort(core.NewOpError("storage header", core.ErrStorage, err), false)
	}
	if err := r.sink.Close(); err != nil {
		r.state = Idle
		return core.NewOpError("storage close", core.ErrStorage, err)
	}
	res.FileLength = size
	r.state = Idle

	core.DebugPrintln("[REC] wrote " + res.Name +
		" bytes=" + core.Utoa(size) +
		" chunks=" + core.Itoa(res.Chunks))
	return stopErr
}

// stopHardware stops the DMA before the clock so no transfer is left
// waiting on a silent port.
func (r *Recorder) stopHardware() error {
	err := r.ingest.Stop()
	if cerr := r.clock.StopConversions(); err == nil {
		err = cerr
	}
	return err
}

// abort ends the session after a fatal error. The file is closed as is;
// no header is written.
func (r *Recorder) abort(err error, hardware bool) error {
	if hardware {
		r.stopHardware()
	}
	r.sink.Close()
	r.state = Idle
	core.DebugPrintln("[REC] aborted: " + err.Error())
	return err
}
