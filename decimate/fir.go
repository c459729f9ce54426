package decimate

import "magpie/audio"

// firStage is a decimating FIR filter with its own history. The state
// buffer holds the last len(taps)-1 input samples followed by room for
// one input block.
type firStage struct {
	factor int
	taps   []int32
	state  []audio.Sample32
}

func (s *firStage) reset() {
	for i := range s.state {
		s.state[i] = 0
	}
}

// run filters n input samples from src into n/factor outputs in dst.
// dst may alias src: output i is written after input i*factor has been
// copied into the history, and i <= i*factor.
func (s *firStage) run(src, dst []audio.Sample32, n int) int {
	m := s.factor
	numTaps := len(s.taps)
	hist := numTaps - 1
	out := n / m

	cur := hist
	for i := 0; i < out; i++ {
		copy(s.state[cur:cur+m], src[i*m:i*m+m])
		cur += m

		window := s.state[i*m : i*m+numTaps]
		var acc int32
		for k, c := range s.taps {
			// Fast Q31 multiply-accumulate: keep the high word of each
			// 64-bit product.
			acc += int32((int64(window[k]) * int64(c)) >> 32)
		}
		dst[i] = audio.Sample32(acc << 1)
	}

	// Keep the newest numTaps-1 inputs for the next block.
	copy(s.state[:hist], s.state[n:n+hist])
	return out
}
