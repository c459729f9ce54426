// Package convert implements the block transforms between the ADC's packed
// big-endian 24-bit samples, the 32-bit working format of the decimation
// filters and the little-endian 24 or 16-bit storage formats.
//
// Every function takes a sample count n that must be a multiple of four:
// four 24-bit samples fill exactly three 32-bit words, and the loops below
// move one such block per iteration. A count that is not a multiple of four,
// or buffers too short for n samples, transfer nothing and return 0.
// Otherwise the return value is the number of bytes written to dst.
package convert

import "magpie/audio"

// BlockSamples is the unit of processing.
const BlockSamples = 4

func blockOK(n int) bool {
	return n > 0 && n%BlockSamples == 0
}

// SwapEndian24 byte-reverses each 3-byte sample, turning the ADC wire order
// into storage order. src and dst may be the same slice.
func SwapEndian24(src, dst []byte, n int) int {
	size := n * audio.Sample24Bytes
	if !blockOK(n) || len(src) < size || len(dst) < size {
		return 0
	}
	for i := 0; i < size; i += 12 {
		s := src[i : i+12 : i+12]
		d := dst[i : i+12 : i+12]
		s0, s1, s2 := s[0], s[1], s[2]
		s3, s4, s5 := s[3], s[4], s[5]
		s6, s7, s8 := s[6], s[7], s[8]
		s9, s10, s11 := s[9], s[10], s[11]
		d[0], d[1], d[2] = s2, s1, s0
		d[3], d[4], d[5] = s5, s4, s3
		d[6], d[7], d[8] = s8, s7, s6
		d[9], d[10], d[11] = s11, s10, s9
	}
	return size
}

// Expand24To32Swap widens big-endian 24-bit samples into the 32-bit working
// format with the low byte zeroed. The returned count is in bytes of
// 32-bit samples written, n*4.
func Expand24To32Swap(src []byte, dst []audio.Sample32, n int) int {
	if !blockOK(n) || len(src) < n*audio.Sample24Bytes || len(dst) < n {
		return 0
	}
	for i, j := 0, 0; j < n; i, j = i+12, j+4 {
		s := src[i : i+12 : i+12]
		d := dst[j : j+4 : j+4]
		d[0] = audio.ReadSample24BE(s[0:3]).Widen()
		d[1] = audio.ReadSample24BE(s[3:6]).Widen()
		d[2] = audio.ReadSample24BE(s[6:9]).Widen()
		d[3] = audio.ReadSample24BE(s[9:12]).Widen()
	}
	return n * audio.Sample32Bytes
}

// Narrow24To16Swap keeps the two most significant bytes of each big-endian
// 24-bit sample and stores them little-endian.
func Narrow24To16Swap(src, dst []byte, n int) int {
	size := n * audio.Sample16Bytes
	if !blockOK(n) || len(src) < n*audio.Sample24Bytes || len(dst) < size {
		return 0
	}
	for i, o := 0, 0; o < size; i, o = i+12, o+8 {
		s := src[i : i+12 : i+12]
		d := dst[o : o+8 : o+8]
		d[0], d[1] = s[1], s[0]
		d[2], d[3] = s[4], s[3]
		d[4], d[5] = s[7], s[6]
		d[6], d[7] = s[10], s[9]
	}
	return size
}

// Narrow32To24 drops the low byte of each working sample and stores the
// rest little-endian.
func Narrow32To24(src []audio.Sample32, dst []byte, n int) int {
	size := n * audio.Sample24Bytes
	if !blockOK(n) || len(src) < n || len(dst) < size {
		return 0
	}
	for j, o := 0, 0; j < n; j, o = j+4, o+12 {
		s := src[j : j+4 : j+4]
		d := dst[o : o+12 : o+12]
		audio.PutSample24LE(d[0:3], s[0].Narrow24())
		audio.PutSample24LE(d[3:6], s[1].Narrow24())
		audio.PutSample24LE(d[6:9], s[2].Narrow24())
		audio.PutSample24LE(d[9:12], s[3].Narrow24())
	}
	return size
}

// Narrow32To16 keeps the upper 16 bits of each working sample, stored
// little-endian.
func Narrow32To16(src []audio.Sample32, dst []byte, n int) int {
	size := n * audio.Sample16Bytes
	if !blockOK(n) || len(src) < n || len(dst) < size {
		return 0
	}
	for j, o := 0, 0; j < n; j, o = j+4, o+8 {
		s := src[j : j+4 : j+4]
		d := dst[o : o+8 : o+8]
		audio.PutSample16LE(d[0:2], s[0].Narrow16())
		audio.PutSample16LE(d[2:4], s[1].Narrow16())
		audio.PutSample16LE(d[4:6], s[2].Narrow16())
		audio.PutSample16LE(d[6:8], s[3].Narrow16())
	}
	return size
}
