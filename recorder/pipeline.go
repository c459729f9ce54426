package recorder

import (
	"errors"

	"magpie/audio"
	"magpie/convert"
	"magpie/core"
)

var ErrConvert = errors.New("recorder: converter rejected chunk")

// Pipeline is the data path a session uses, chosen once at Arm.
type Pipeline uint8

const (
	Mono384 Pipeline = iota
	Stereo384
	MonoDecimated
	StereoDecimated
)

// SelectPipeline picks the variant for a rate and channel mode.
func SelectPipeline(rate audio.SampleRate, mode audio.ChannelMode) Pipeline {
	switch {
	case rate == audio.Rate384k && mode == audio.Stereo:
		return Stereo384
	case rate == audio.Rate384k:
		return Mono384
	case mode == audio.Stereo:
		return StereoDecimated
	default:
		return MonoDecimated
	}
}

func (p Pipeline) String() string {
	switch p {
	case Mono384:
		return "mono-384k"
	case Stereo384:
		return "stereo-384k"
	case MonoDecimated:
		return "mono-decimated"
	case StereoDecimated:
		return "stereo-decimated"
	}
	return "unknown"
}

// Decimated reports whether the variant runs the filter cascade.
func (p Pipeline) Decimated() bool {
	return p == MonoDecimated || p == StereoDecimated
}

// stage turns one chunk per channel into packed output at dst.
type stage func(dst []byte) (int, error)

// Converter shapes, with the bit depth bound at Arm.
type (
	swapFunc             func(src, dst []byte, n int) int
	interleaveFunc       func(src0, src1, dst []byte, n int) int
	narrowFunc           func(src []audio.Sample32, dst []byte, n int) int
	interleaveNarrowFunc func(src0, src1 []audio.Sample32, dst []byte, n int) int
)

// bindPipeline selects the stage for the armed plan.
func (r *Recorder) bindPipeline() stage {
	depth24 := r.plan.Depth == audio.Depth24
	switch r.plan.Pipeline {
	case Mono384:
		var swap swapFunc = convert.Narrow24To16Swap
		if depth24 {
			swap = convert.SwapEndian24
		}
		return func(dst []byte) (int, error) { return r.mono384(swap, dst) }
	case Stereo384:
		var interleave interleaveFunc = convert.Interleave2Swap24To16
		if depth24 {
			interleave = convert.Interleave2Swap24
		}
		return func(dst []byte) (int, error) { return r.stereo384(interleave, dst) }
	case MonoDecimated:
		var narrow narrowFunc = convert.Narrow32To16
		if depth24 {
			narrow = convert.Narrow32To24
		}
		return func(dst []byte) (int, error) { return r.monoDecimated(narrow, dst) }
	default:
		var interleave interleaveNarrowFunc = convert.Interleave2Narrow32To16
		if depth24 {
			interleave = convert.Interleave2Narrow32To24
		}
		return func(dst []byte) (int, error) { return r.stereoDecimated(interleave, dst) }
	}
}

func (r *Recorder) consume(ch audio.Channel) ([]byte, error) {
	buf, err := r.ingest.ConsumeBuffer(ch)
	if err != nil {
		return nil, core.NewOpError("record consume", core.ErrDMA, err)
	}
	return buf, nil
}

// consumeMono takes the selected channel's chunk after discarding the
// other channel's, which keeps the idle ring from overrunning.
func (r *Recorder) consumeMono() ([]byte, error) {
	if _, err := r.consume(r.plan.Channel.Other()); err != nil {
		return nil, err
	}
	return r.consume(r.plan.Channel)
}

func (r *Recorder) mono384(swap swapFunc, dst []byte) (int, error) {
	src, err := r.consumeMono()
	if err != nil {
		return 0, err
	}
	return r.checked(swap(src, dst, r.plan.ChunkSamples))
}

func (r *Recorder) stereo384(interleave interleaveFunc, dst []byte) (int, error) {
	src0, err := r.consume(audio.Channel0)
	if err != nil {
		return 0, err
	}
	src1, err := r.consume(audio.Channel1)
	if err != nil {
		return 0, err
	}
	return r.checked(interleave(src0, src1, dst, r.plan.ChunkSamples))
}

func (r *Recorder) monoDecimated(narrow narrowFunc, dst []byte) (int, error) {
	src, err := r.consumeMono()
	if err != nil {
		return 0, err
	}
	m, err := r.widenAndDecimate(src, r.arena.Work(audio.Channel0), r.plan.Channel)
	if err != nil {
		return 0, err
	}
	return r.checked(narrow(r.arena.Work(audio.Channel0), dst, m))
}

func (r *Recorder) stereoDecimated(interleave interleaveNarrowFunc, dst []byte) (int, error) {
	src0, err := r.consume(audio.Channel0)
	if err != nil {
		return 0, err
	}
	src1, err := r.consume(audio.Channel1)
	if err != nil {
		return 0, err
	}
	w0, w1 := r.arena.Work(audio.Channel0), r.arena.Work(audio.Channel1)
	m, err := r.widenAndDecimate(src0, w0, audio.Channel0)
	if err != nil {
		return 0, err
	}
	if _, err := r.widenAndDecimate(src1, w1, audio.Channel1); err != nil {
		return 0, err
	}
	return r.checked(interleave(w0, w1, dst, m))
}

// widenAndDecimate expands src into work and filters it in place,
// returning the decimated sample count.
func (r *Recorder) widenAndDecimate(src []byte, work []audio.Sample32, ch audio.Channel) (int, error) {
	n := r.plan.ChunkSamples
	if convert.Expand24To32Swap(src, work, n) == 0 {
		return 0, core.NewOpError("record widen", core.ErrConfig, ErrConvert)
	}
	m, err := r.cascade.Downsample(work[:n], work, ch)
	if err != nil {
		return 0, core.NewOpError("record decimate", core.ErrConfig, err)
	}
	return m, nil
}

func (r *Recorder) checked(n int) (int, error) {
	if n != r.plan.BytesPerChunk {
		return 0, core.NewOpError("record convert", core.ErrConfig, ErrConvert)
	}
	return n, nil
}
