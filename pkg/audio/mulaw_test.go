package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSampleKnownValues(t *testing.T) {
	// 0xFF is companded silence; the scheme's zero mantissa in the lowest
	// segment reconstructs to twice the bias.
	assert.Equal(t, int16(66), DecodeSample(0xFF))
	assert.Equal(t, int16(-66), DecodeSample(0x7F))

	// sign=0, exponent=3, mantissa=12 -> 12<<6 + 33<<3 = 1032, negated
	assert.Equal(t, int16(-1032), DecodeSample(0x43))

	// top positive segment clamps to the format maximum
	assert.Equal(t, int16(muLawMax), DecodeSample(0x80))
	assert.Equal(t, int16(-muLawMax), DecodeSample(0x00))
}

func TestEncodeSampleKnownValues(t *testing.T) {
	assert.Equal(t, byte(0xFF), EncodeSample(0))
	assert.Equal(t, byte(0x43), EncodeSample(-1000))
	assert.Equal(t, byte(0x80), EncodeSample(32767))
	assert.Equal(t, byte(0x00), EncodeSample(-32768))
}

func TestRoundTripWithinQuantizationBound(t *testing.T) {
	// Over the representable linear range the reconstruction error stays
	// within one quantization step of the segment plus the companding bias
	// applied on both legs.
	for s := -8000; s <= 8000; s += 7 {
		b := EncodeSample(int16(s))
		decoded := int(DecodeSample(b))

		exponent := int((^b >> 4) & 0x07)
		bound := (1 << (exponent + 3)) + 2*muLawBias

		diff := decoded - s
		if diff < 0 {
			diff = -diff
		}
		require.LessOrEqualf(t, diff, bound,
			"sample %d encoded as %#02x decoded to %d", s, b, decoded)
	}
}

func TestEncodeDecodeBuffer(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0x18, 0xFC, 0xE8, 0x03} // 0, -1000, 1000
	mulaw := EncodeBuffer(pcm)
	require.Len(t, mulaw, 3)
	assert.Equal(t, byte(0xFF), mulaw[0])
	assert.Equal(t, byte(0x43), mulaw[1])

	decoded := DecodeBuffer(mulaw)
	assert.Len(t, decoded, 6)
}

func TestEncodeBufferIgnoresTrailingOddByte(t *testing.T) {
	mulaw := EncodeBuffer([]byte{0x00, 0x00, 0x55})
	assert.Len(t, mulaw, 1)
}
