package decimate

import (
	"errors"
	"testing"

	"magpie/audio"
)

const testBlock = 1024

// noise fills n samples from a fixed LCG, scaled well below full scale.
func noise(n int, seed uint32) []audio.Sample32 {
	out := make([]audio.Sample32, n)
	x := seed
	for i := range out {
		x = x*1664525 + 1013904223
		out[i] = audio.Sample32(int32(x)>>4) &^ 0xFF
	}
	return out
}

func mustCascade(t *testing.T, blockLen int) *Cascade {
	t.Helper()
	c, err := NewCascade(blockLen)
	if err != nil {
		t.Fatalf("NewCascade(%d): %v", blockLen, err)
	}
	return c
}

func TestOutputLength(t *testing.T) {
	for _, blockLen := range []int{testBlock, 7680} {
		c := mustCascade(t, blockLen)
		for _, rate := range decimatedRates {
			if err := c.SetSampleRate(rate, audio.Channel0); err != nil {
				t.Fatalf("SetSampleRate(%d): %v", rate, err)
			}
			src := noise(blockLen, 1)
			dst := make([]audio.Sample32, blockLen)
			n, err := c.Downsample(src, dst, audio.Channel0)
			if err != nil {
				t.Fatalf("Downsample at %d: %v", rate, err)
			}
			want := blockLen / rate.DecimationFactor()
			if n != want {
				t.Errorf("block %d rate %d: produced %d, want %d", blockLen, rate, n, want)
			}
		}
	}
}

func TestCascadeFactorsMatchRate(t *testing.T) {
	for _, rate := range decimatedRates {
		specs, ok := stagesFor(rate)
		if !ok {
			t.Fatalf("no stages for %d", rate)
		}
		product := 1
		for _, s := range specs {
			product *= s.factor
			if len(s.taps)%2 != 1 {
				t.Errorf("rate %d: stage with %d taps is not odd length", rate, len(s.taps))
			}
		}
		if product != rate.DecimationFactor() {
			t.Errorf("rate %d: stage factors multiply to %d, want %d", rate, product, rate.DecimationFactor())
		}
	}
}

func TestImpulseResponse(t *testing.T) {
	c := mustCascade(t, 64)
	if err := c.SetSampleRate(audio.Rate192k, audio.Channel0); err != nil {
		t.Fatal(err)
	}

	src := make([]audio.Sample32, 64)
	src[0] = 1 << 30
	dst := make([]audio.Sample32, 32)
	if _, err := c.Downsample(src, dst, audio.Channel0); err != nil {
		t.Fatal(err)
	}

	taps := taps192kStage0
	for i := 0; i < 8; i++ {
		want := (taps[len(taps)-1-2*i] >> 2) << 1
		if int32(dst[i]) != want {
			t.Errorf("y[%d] = %d, want %d", i, int32(dst[i]), want)
		}
	}
	for i := 8; i < 32; i++ {
		if dst[i] != 0 {
			t.Errorf("y[%d] = %d, want 0 after impulse leaves the window", i, int32(dst[i]))
		}
	}
}

func TestRateSwitchDoesNotLeakState(t *testing.T) {
	rates := decimatedRates
	input := noise(testBlock, 7)
	other := noise(testBlock, 99)

	for _, a := range rates {
		for _, b := range rates {
			c := mustCascade(t, testBlock)

			run := func(rate audio.SampleRate, src []audio.Sample32) []audio.Sample32 {
				if err := c.SetSampleRate(rate, audio.Channel0); err != nil {
					t.Fatalf("SetSampleRate(%d): %v", rate, err)
				}
				in := append([]audio.Sample32(nil), src...)
				out := make([]audio.Sample32, testBlock)
				n, err := c.Downsample(in, out, audio.Channel0)
				if err != nil {
					t.Fatalf("Downsample: %v", err)
				}
				return out[:n]
			}

			first := run(a, input)
			run(b, other)
			again := run(a, input)

			if len(first) != len(again) {
				t.Fatalf("%d->%d->%d: lengths %d and %d", a, b, a, len(first), len(again))
			}
			for i := range first {
				if first[i] != again[i] {
					t.Fatalf("%d->%d->%d: output differs at %d (%d vs %d)", a, b, a, i, first[i], again[i])
				}
			}
		}
	}
}

func TestChannelIsolation(t *testing.T) {
	block1 := noise(testBlock, 3)
	block2 := noise(testBlock, 4)
	interloper := noise(testBlock, 5)

	// Reference: channel 0 alone.
	ref := mustCascade(t, testBlock)
	ref.SetSampleRate(audio.Rate48k, audio.Channel0)
	refOut := make([]audio.Sample32, testBlock)
	ref.Downsample(block1, refOut, audio.Channel0)
	nref, _ := ref.Downsample(block2, refOut, audio.Channel0)

	// Same channel 0 stream with channel 1 traffic between its blocks.
	c := mustCascade(t, testBlock)
	c.SetSampleRate(audio.Rate48k, audio.Channel0)
	c.SetSampleRate(audio.Rate48k, audio.Channel1)
	out := make([]audio.Sample32, testBlock)
	c.Downsample(block1, out, audio.Channel0)
	c.Downsample(interloper, make([]audio.Sample32, testBlock), audio.Channel1)
	n, err := c.Downsample(block2, out, audio.Channel0)
	if err != nil {
		t.Fatal(err)
	}

	if n != nref {
		t.Fatalf("produced %d, reference %d", n, nref)
	}
	for i := 0; i < n; i++ {
		if out[i] != refOut[i] {
			t.Fatalf("channel 1 activity changed channel 0 output at %d", i)
		}
	}
}

func TestInPlace(t *testing.T) {
	for _, rate := range decimatedRates {
		input := noise(testBlock, 11)

		a := mustCascade(t, testBlock)
		a.SetSampleRate(rate, audio.Channel1)
		separate := make([]audio.Sample32, testBlock)
		n1, _ := a.Downsample(input, separate, audio.Channel1)

		b := mustCascade(t, testBlock)
		b.SetSampleRate(rate, audio.Channel1)
		buf := append([]audio.Sample32(nil), input...)
		n2, err := b.Downsample(buf, buf, audio.Channel1)
		if err != nil {
			t.Fatal(err)
		}

		if n1 != n2 {
			t.Fatalf("rate %d: lengths %d and %d", rate, n1, n2)
		}
		for i := 0; i < n1; i++ {
			if separate[i] != buf[i] {
				t.Fatalf("rate %d: in-place output differs at %d", rate, i)
			}
		}
	}
}

func TestDownsampleErrors(t *testing.T) {
	c := mustCascade(t, testBlock)
	src := make([]audio.Sample32, testBlock)
	dst := make([]audio.Sample32, testBlock)

	if _, err := c.Downsample(src, dst, audio.Channel0); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured: got %v, want ErrNotConfigured", err)
	}
	if err := c.SetSampleRate(audio.SampleRate(16000), audio.Channel0); !errors.Is(err, ErrUnsupportedRate) {
		t.Errorf("16 kHz: got %v, want ErrUnsupportedRate", err)
	}
	if err := c.SetSampleRate(audio.Rate384k, audio.Channel0); err != nil {
		t.Errorf("384 kHz: %v", err)
	}
	if _, err := c.Downsample(src, dst, audio.Channel0); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("384 kHz downsample: got %v, want ErrNotConfigured", err)
	}
	if err := c.SetSampleRate(audio.Rate48k, audio.Channel(2)); !errors.Is(err, ErrBadChannel) {
		t.Errorf("channel 2: got %v, want ErrBadChannel", err)
	}

	c.SetSampleRate(audio.Rate24k, audio.Channel0)
	if _, err := c.Downsample(make([]audio.Sample32, 2*testBlock), dst, audio.Channel0); !errors.Is(err, ErrBlockLength) {
		t.Errorf("oversized block: got %v, want ErrBlockLength", err)
	}
	if _, err := c.Downsample(src[:24], dst, audio.Channel0); !errors.Is(err, ErrBlockLength) {
		t.Errorf("indivisible block: got %v, want ErrBlockLength", err)
	}
	if _, err := c.Downsample(src, dst[:10], audio.Channel0); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short dst: got %v, want ErrShortBuffer", err)
	}

	if _, err := NewCascade(100); !errors.Is(err, ErrBlockLength) {
		t.Errorf("NewCascade(100): got %v, want ErrBlockLength", err)
	}
}

func TestScratchOwnership(t *testing.T) {
	c := mustCascade(t, testBlock)
	c.SetSampleRate(audio.Rate96k, audio.Channel0)

	// Simulate channel 1 holding the scratch buffers.
	c.owner.Store(int32(audio.Channel1))

	if err := c.SetSampleRate(audio.Rate48k, audio.Channel0); !errors.Is(err, ErrScratchBusy) {
		t.Errorf("SetSampleRate while claimed: got %v, want ErrScratchBusy", err)
	}
	src := make([]audio.Sample32, testBlock)
	if _, err := c.Downsample(src, src, audio.Channel0); !errors.Is(err, ErrScratchBusy) {
		t.Errorf("Downsample while claimed: got %v, want ErrScratchBusy", err)
	}

	c.owner.Store(noOwner)
	if _, err := c.Downsample(src, src, audio.Channel0); err != nil {
		t.Errorf("Downsample after release: %v", err)
	}
	if got := c.owner.Load(); got != noOwner {
		t.Errorf("owner after Downsample = %d, want released", got)
	}
}
