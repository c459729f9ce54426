package sim

import (
	"math"

	"magpie/audio"
	"magpie/core"
)

// Tone generates a sine per port at the converter's base rate in the
// ADC's big-endian 24-bit wire format. Phase carries across chunks.
type Tone struct {
	freq      map[core.DataPortID]float64
	amplitude float64
	phase     map[core.DataPortID]float64
}

// NewTone creates a source at amplitude, a fraction of full scale.
func NewTone(amplitude float64) *Tone {
	return &Tone{
		freq:      make(map[core.DataPortID]float64),
		amplitude: amplitude,
		phase:     make(map[core.DataPortID]float64),
	}
}

// SetFrequency sets the tone on port in Hz. Zero gives silence.
func (t *Tone) SetFrequency(port core.DataPortID, hz float64) {
	t.freq[port] = hz
}

func (t *Tone) Fill(port core.DataPortID, dst []byte) {
	step := 2 * math.Pi * t.freq[port] / float64(audio.BaseRate)
	phase := t.phase[port]
	full := float64(audio.Sample24Max) * t.amplitude
	for i := 0; i+audio.Sample24Bytes <= len(dst); i += audio.Sample24Bytes {
		audio.PutSample24BE(dst[i:], audio.Sample24(full*math.Sin(phase)))
		phase += step
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}
	t.phase[port] = phase
}
