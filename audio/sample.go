package audio

// Sample24 is a signed 24-bit sample as produced by the ADC. The value is
// held sign-extended; only the low 24 bits are ever transmitted.
type Sample24 int32

// Sample32 is the expanded form used by the decimation filters: the 24
// significant bits sit in the upper three bytes and the low byte is zero
// until filtering adds precision there.
type Sample32 int32

// Sample16 is the truncated storage form.
type Sample16 int16

// Bytes occupied by each width on the wire or in storage.
const (
	Sample24Bytes = 3
	Sample32Bytes = 4
	Sample16Bytes = 2
)

// Full-scale limits of a Sample24.
const (
	Sample24Max = 1<<23 - 1
	Sample24Min = -1 << 23
)

// Widen moves the sample into the upper 24 bits. Lossless.
func (s Sample24) Widen() Sample32 {
	return Sample32(int32(s) << 8)
}

// Narrow16 keeps the upper 16 of the 24 bits.
func (s Sample24) Narrow16() Sample16 {
	return Sample16(int32(s) >> 8)
}

// Narrow24 drops the low byte.
func (s Sample32) Narrow24() Sample24 {
	return Sample24(int32(s) >> 8)
}

// Narrow16 keeps the upper 16 bits.
func (s Sample32) Narrow16() Sample16 {
	return Sample16(int32(s) >> 16)
}

// ReadSample24BE decodes the big-endian wire form.
func ReadSample24BE(b []byte) Sample24 {
	_ = b[2]
	v := int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8
	return Sample24(v >> 8)
}

// PutSample24BE encodes s in the big-endian wire form.
func PutSample24BE(b []byte, s Sample24) {
	_ = b[2]
	b[0] = byte(s >> 16)
	b[1] = byte(s >> 8)
	b[2] = byte(s)
}

// PutSample24LE encodes s in the little-endian storage form.
func PutSample24LE(b []byte, s Sample24) {
	_ = b[2]
	b[0] = byte(s)
	b[1] = byte(s >> 8)
	b[2] = byte(s >> 16)
}

// ReadSample24LE decodes the little-endian storage form.
func ReadSample24LE(b []byte) Sample24 {
	_ = b[2]
	v := int32(b[2])<<24 | int32(b[1])<<16 | int32(b[0])<<8
	return Sample24(v >> 8)
}

// PutSample16LE encodes s in the little-endian storage form.
func PutSample16LE(b []byte, s Sample16) {
	_ = b[1]
	b[0] = byte(s)
	b[1] = byte(s >> 8)
}

// ReadSample16LE decodes the little-endian storage form.
func ReadSample16LE(b []byte) Sample16 {
	_ = b[1]
	return Sample16(uint16(b[0]) | uint16(b[1])<<8)
}
