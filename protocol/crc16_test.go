package protocol

import "testing"

func TestCRC16Empty(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(nil) = %04X, want FFFF", got)
	}
}

func TestCRC16Consistency(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if CRC16(data) != CRC16(data) {
		t.Error("CRC16 not deterministic")
	}
}

func TestCRC16DetectsSingleBitErrors(t *testing.T) {
	data := []byte("Magpie00_20240101_000000_48kHz_16_bit_1_channel.wav")
	want := CRC16(data)

	for i := range data {
		for bit := 0; bit < 8; bit++ {
			data[i] ^= 1 << bit
			if CRC16(data) == want {
				t.Errorf("flip of byte %d bit %d not detected", i, bit)
			}
			data[i] ^= 1 << bit
		}
	}
}

func TestCRC16CheckValue(t *testing.T) {
	// Standard check input for the reflected CCITT polynomial, 0xFFFF seed.
	if got := CRC16([]byte("123456789")); got != 0x6F91 {
		t.Errorf("CRC16(123456789) = %04X, want 6F91", got)
	}
}
