package decimate

import "magpie/audio"

// Coefficient tables are Q31, symmetric, and designed offline so that a
// full-scale input cannot saturate the accumulator. Each stage halves the
// rate; the stage list for a rate multiplies out to 384k/rate.

var taps192kStage0 = []int32{
	-23215316, 15943290, 69341217, -4194368, -136036336, 11320770, 476387342, 749653914,
	476387342, 11320770, -136036336, -4194368, 69341217, 15943290, -23215316,
}

var taps96kStage0 = []int32{
	-20749647, -66609278, 51582801, 442242045, 691682165, 442242045, 51582801, -66609278,
	-20749647,
}

var taps96kStage1 = []int32{
	-3229201, 1658598, 16721610, 16330065, -12855261, -23661054, 18450717, 41258441,
	-22628821, -68277309, 26456118, 114386501, -29451143, -213892037, 31368109, 678814008,
	1041713732, 678814008, 31368109, -213892037, -29451143, 114386501, 26456118, -68277309,
	-22628821, 41258441, 18450717, -23661054, -12855261, 16330065, 16721610, 1658598,
	-3229201,
}

var taps48kStage0 = []int32{
	-42201666, 18023525, 423595866, 727113801, 423595866, 18023525, -42201666,
}

// Also the third stage of the 24 kHz cascade.
var taps48kStage1 = []int32{
	-35829136, -93392547, 90204797, 624894336, 955274946, 624894336, 90204797, -93392547,
	-35829136,
}

// Final stage for both 48 kHz and 24 kHz.
var tapsHalfbandFinal = []int32{
	-2823963, 804105, 13756249, 13832557, -12099816, -21810016, 17681236, 39284877,
	-22118934, -66381589, 26258540, 112809109, -29540929, -212849373, 31655722, 678451831,
	1041361918, 678451831, 31655722, -212849373, -29540929, 112809109, 26258540, -66381589,
	-22118934, 39284877, 17681236, -21810016, -12099816, 13832557, 13756249, 804105,
	-2823963,
}

var taps24kStage0 = []int32{
	87026071, 382177371, 589816446, 382177371, 87026071,
}

var taps24kStage1 = []int32{
	-59682168, 25489114, 599055019, 1028294198, 599055019, 25489114, -59682168,
}

// stageSpec is one FIR decimation sub-stage.
type stageSpec struct {
	factor int
	taps   []int32
}

var (
	stages192k = []stageSpec{{2, taps192kStage0}}
	stages96k  = []stageSpec{{2, taps96kStage0}, {2, taps96kStage1}}
	stages48k  = []stageSpec{{2, taps48kStage0}, {2, taps48kStage1}, {2, tapsHalfbandFinal}}
	stages24k  = []stageSpec{{2, taps24kStage0}, {2, taps24kStage1}, {2, taps48kStage1}, {2, tapsHalfbandFinal}}
)

// MaxStages is the longest cascade (24 kHz).
const MaxStages = 4

// stagesFor returns the cascade for rate. 384 kHz has no stages.
func stagesFor(rate audio.SampleRate) ([]stageSpec, bool) {
	switch rate {
	case audio.Rate192k:
		return stages192k, true
	case audio.Rate96k:
		return stages96k, true
	case audio.Rate48k:
		return stages48k, true
	case audio.Rate24k:
		return stages24k, true
	}
	return nil, false
}

// decimatedRates lists every rate that has a cascade.
var decimatedRates = []audio.SampleRate{audio.Rate24k, audio.Rate48k, audio.Rate96k, audio.Rate192k}
