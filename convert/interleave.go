package convert

import "magpie/audio"

// The interleaving variants merge two channels of n samples each into
// [ch0, ch1, ch0, ch1, ...] frames. n counts samples per channel.

// Interleave2Swap24 interleaves two big-endian 24-bit streams into
// little-endian 24-bit stereo frames.
func Interleave2Swap24(src0, src1, dst []byte, n int) int {
	in := n * audio.Sample24Bytes
	size := 2 * in
	if !blockOK(n) || len(src0) < in || len(src1) < in || len(dst) < size {
		return 0
	}
	for i, o := 0, 0; i < in; i, o = i+3, o+6 {
		a := src0[i : i+3 : i+3]
		b := src1[i : i+3 : i+3]
		d := dst[o : o+6 : o+6]
		d[0], d[1], d[2] = a[2], a[1], a[0]
		d[3], d[4], d[5] = b[2], b[1], b[0]
	}
	return size
}

// Interleave2Swap24To16 interleaves two big-endian 24-bit streams into
// little-endian 16-bit stereo frames.
func Interleave2Swap24To16(src0, src1, dst []byte, n int) int {
	in := n * audio.Sample24Bytes
	size := 2 * n * audio.Sample16Bytes
	if !blockOK(n) || len(src0) < in || len(src1) < in || len(dst) < size {
		return 0
	}
	for i, o := 0, 0; i < in; i, o = i+3, o+4 {
		a := src0[i : i+3 : i+3]
		b := src1[i : i+3 : i+3]
		d := dst[o : o+4 : o+4]
		d[0], d[1] = a[1], a[0]
		d[2], d[3] = b[1], b[0]
	}
	return size
}

// Interleave2Narrow32To24 interleaves two working streams into little-endian
// 24-bit stereo frames.
func Interleave2Narrow32To24(src0, src1 []audio.Sample32, dst []byte, n int) int {
	size := 2 * n * audio.Sample24Bytes
	if !blockOK(n) || len(src0) < n || len(src1) < n || len(dst) < size {
		return 0
	}
	for j, o := 0, 0; j < n; j, o = j+1, o+6 {
		d := dst[o : o+6 : o+6]
		audio.PutSample24LE(d[0:3], src0[j].Narrow24())
		audio.PutSample24LE(d[3:6], src1[j].Narrow24())
	}
	return size
}

// Interleave2Narrow32To16 interleaves two working streams into little-endian
// 16-bit stereo frames.
func Interleave2Narrow32To16(src0, src1 []audio.Sample32, dst []byte, n int) int {
	size := 2 * n * audio.Sample16Bytes
	if !blockOK(n) || len(src0) < n || len(src1) < n || len(dst) < size {
		return 0
	}
	for j, o := 0, 0; j < n; j, o = j+1, o+4 {
		d := dst[o : o+4 : o+4]
		audio.PutSample16LE(d[0:2], src0[j].Narrow16())
		audio.PutSample16LE(d[2:4], src1[j].Narrow16())
	}
	return size
}
