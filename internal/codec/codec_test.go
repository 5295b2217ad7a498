package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU8P4RoundTrip(t *testing.T) {
	for x := 0.0; x <= 15.9375; x += 0.0625 {
		got := DecodeU8P4(EncodeU8P4(x))
		assert.InDelta(t, x, got, 1.0/16.0)
	}
}

func TestU16P8RoundTrip(t *testing.T) {
	for x := 0.0; x <= 255.99; x += 1.37 {
		got := DecodeU16P8(EncodeU16P8(x))
		assert.InDelta(t, x, got, 1.0/256.0)
	}
}

func TestReadU16BEMatchesManualShift(t *testing.T) {
	cases := [][2]byte{{0x00, 0x64}, {0xFF, 0xFF}, {0x01, 0x00}}
	for _, b := range cases {
		buf := []byte{b[0], b[1]}
		v, off, err := ReadU16BE(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, off)
		assert.Equal(t, uint16(b[0])<<8|uint16(b[1]), v)
	}
}

func TestReadU16BEShortBuffer(t *testing.T) {
	_, _, err := ReadU16BE([]byte{0x01}, 0)
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestReadU24BE(t *testing.T) {
	v, off, err := ReadU24BE([]byte{0x01, 0x02, 0x03}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, off)
	assert.Equal(t, uint32(0x010203), v)
}

func TestHeadTempBias(t *testing.T) {
	// byte 0x3C = 60 -> 60/16 = 3.75, plus bias 73.0 = 76.75
	assert.InDelta(t, 76.75, DecodeHeadTemp(0x3C), 1e-9)
}

func TestF8_1_7Decode(t *testing.T) {
	// hi-bit set, mantissa 30(0x1E) tenths = 3.0
	assert.InDelta(t, 3.0, DecodeF8_1_7(0x80|0x1E), 1e-9)
	// hi-bit clear, mantissa 30 whole seconds = 30.0
	assert.InDelta(t, 30.0, DecodeF8_1_7(0x1E), 1e-9)
}

func TestF8_1_7EncodeSelectsLeastLossyForm(t *testing.T) {
	// 30s > 12.7s threshold, so plain mantissa form is used (hi-bit clear).
	b := EncodeF8_1_7(30.0)
	assert.Equal(t, uint8(0x1E), b)
	assert.Zero(t, b&0x80)

	// 5s is within range for the x10 form.
	b2 := EncodeF8_1_7(5.0)
	assert.NotZero(t, b2&0x80)
	assert.InDelta(t, 5.0, DecodeF8_1_7(b2), 0.1)
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	assert.Equal(t, uint8(255), EncodeU8P0(1000))
	assert.Equal(t, uint8(0), EncodeU8P0(-10))
	assert.Equal(t, uint16(1023), EncodeU10P0(99999))
}

func TestU24P0RoundTrip(t *testing.T) {
	enc := EncodeU24P0(0xABCDEF)
	assert.Equal(t, uint32(0xABCDEF), DecodeU24P0(enc))
}
