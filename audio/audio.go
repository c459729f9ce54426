// Package audio holds the vocabulary shared by every stage of the capture
// pipeline: sample rates, bit depths, channels and the three sample widths.
package audio

// SampleRate is an output sample rate in Hz.
type SampleRate uint32

const (
	Rate24k  SampleRate = 24000
	Rate48k  SampleRate = 48000
	Rate96k  SampleRate = 96000
	Rate192k SampleRate = 192000
	Rate384k SampleRate = 384000

	// BaseRate is the rate the ADC free-runs at.
	BaseRate = Rate384k
)

// Rates lists the supported rates, lowest first.
var Rates = []SampleRate{Rate24k, Rate48k, Rate96k, Rate192k, Rate384k}

// Valid reports whether r is one of the supported rates.
func (r SampleRate) Valid() bool {
	switch r {
	case Rate24k, Rate48k, Rate96k, Rate192k, Rate384k:
		return true
	}
	return false
}

// DecimationFactor is BaseRate/r, or 0 for an unsupported rate.
func (r SampleRate) DecimationFactor() int {
	if !r.Valid() {
		return 0
	}
	return int(BaseRate / r)
}

// KHz is the rate in whole kilohertz.
func (r SampleRate) KHz() int {
	return int(r / 1000)
}

// BitDepth is the stored bits per sample.
type BitDepth uint8

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
)

// Valid reports whether d is a supported storage depth.
func (d BitDepth) Valid() bool {
	return d == Depth16 || d == Depth24
}

// BytesPerSample is the stored width of one sample.
func (d BitDepth) BytesPerSample() int {
	return int(d) / 8
}

// Channel is one of the two analog inputs.
type Channel uint8

const (
	Channel0 Channel = 0
	Channel1 Channel = 1

	NumChannels = 2
)

// Valid reports whether c names an existing input.
func (c Channel) Valid() bool {
	return c < NumChannels
}

// Other returns the opposite input.
func (c Channel) Other() Channel {
	return c ^ 1
}

// ChannelMode selects mono or stereo recording.
type ChannelMode uint8

const (
	Mono ChannelMode = iota
	Stereo
)

// Count is the number of interleaved channels written to storage.
func (m ChannelMode) Count() int {
	if m == Stereo {
		return 2
	}
	return 1
}

func (m ChannelMode) String() string {
	if m == Stereo {
		return "stereo"
	}
	return "mono"
}

// Gain is an analog front end gain step in dB.
type Gain uint8

const (
	Gain5dB       Gain = 5
	Gain10dB      Gain = 10
	Gain15dB      Gain = 15
	Gain20dB      Gain = 20
	Gain25dB      Gain = 25
	Gain30dB      Gain = 30
	Gain35dB      Gain = 35
	Gain40dB      Gain = 40
	GainUndefined Gain = 255
)

// Valid reports whether g is one of the switchable gain steps.
func (g Gain) Valid() bool {
	return g >= Gain5dB && g <= Gain40dB && g%5 == 0
}
