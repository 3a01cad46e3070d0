package audio

import "encoding/binary"

// ResampleLinear converts little-endian PCM16 audio between sample rates
// using linear interpolation. When the rates are equal the input is
// returned unchanged.
func ResampleLinear(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate {
		return pcm
	}
	inSamples := len(pcm) / 2
	if inSamples == 0 {
		return []byte{}
	}

	outSamples := int(int64(inSamples) * int64(toRate) / int64(fromRate))
	out := make([]byte, outSamples*2)

	ratio := float64(toRate) / float64(fromRate)
	for i := 0; i < outSamples; i++ {
		srcPos := float64(i) / ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		s0 := int16(binary.LittleEndian.Uint16(pcm[idx*2:]))
		s1 := s0
		if idx+1 < inSamples {
			s1 = int16(binary.LittleEndian.Uint16(pcm[(idx+1)*2:]))
		}

		sample := int16(float64(s0) + (float64(s1)-float64(s0))*frac)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}
