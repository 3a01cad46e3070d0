package audio

import "encoding/binary"

// G.711 mu-law companding constants.
const (
	muLawBias = 33
	muLawClip = 32635
	muLawMax  = 0x1FFF
)

// DecodeSample expands one companded mu-law byte into a 16-bit linear sample.
func DecodeSample(b byte) int16 {
	u := ^b
	sign := u & 0x80
	exponent := int((u >> 4) & 0x07)
	mantissa := int(u & 0x0F)

	sample := (mantissa << (exponent + 3)) + (muLawBias << exponent)
	if exponent == 0 {
		sample += muLawBias
	}
	if sample > muLawMax {
		sample = muLawMax
	}
	if sign != 0 {
		return int16(-sample)
	}
	return int16(sample)
}

// EncodeSample compresses a 16-bit linear sample into one mu-law byte.
func EncodeSample(s int16) byte {
	var sign byte
	magnitude := int(s)
	if magnitude < 0 {
		sign = 0x80
		magnitude = -magnitude
	}
	if magnitude > muLawClip {
		magnitude = muLawClip
	}
	magnitude += muLawBias

	exponent := 0
	for exponent < 7 && magnitude > segmentMax(exponent) {
		exponent++
	}

	mantissa := (magnitude - segmentBase(exponent)) >> (exponent + 3)
	if mantissa < 0 {
		mantissa = 0
	}
	if mantissa > 0x0F {
		mantissa = 0x0F
	}

	return ^(sign | byte(exponent)<<4 | byte(mantissa))
}

// segmentBase is the linear magnitude a segment's zero mantissa decodes to.
func segmentBase(exponent int) int {
	base := muLawBias << exponent
	if exponent == 0 {
		base += muLawBias
	}
	return base
}

// segmentMax is the largest linear magnitude representable in a segment.
func segmentMax(exponent int) int {
	return (0x0F << (exponent + 3)) + segmentBase(exponent)
}

// DecodeBuffer expands a mu-law byte stream into little-endian PCM16.
func DecodeBuffer(mulaw []byte) []byte {
	pcm := make([]byte, len(mulaw)*2)
	for i, b := range mulaw {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(DecodeSample(b)))
	}
	return pcm
}

// EncodeBuffer compresses little-endian PCM16 into a mu-law byte stream.
// A trailing odd byte is ignored.
func EncodeBuffer(pcm []byte) []byte {
	n := len(pcm) / 2
	mulaw := make([]byte, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		mulaw[i] = EncodeSample(s)
	}
	return mulaw
}
