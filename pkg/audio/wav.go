package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// FormatError reports a malformed audio container.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("audio format error: %s", e.Reason)
}

// WrapAsWAV prepends a canonical 44-byte RIFF/WAVE header to raw
// linear-PCM audio.
func WrapAsWAV(pcm []byte, sampleRate, channels, bitDepth int) []byte {
	dataLen := len(pcm)
	byteRate := sampleRate * channels * bitDepth / 8
	blockAlign := channels * bitDepth / 8

	buf := make([]byte, wavHeaderSize+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // linear PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitDepth))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[wavHeaderSize:], pcm)
	return buf
}

// UnwrapWAV strips a 44-byte RIFF/WAVE header and returns the PCM payload.
func UnwrapWAV(wav []byte) ([]byte, error) {
	if len(wav) < wavHeaderSize {
		return nil, &FormatError{Reason: fmt.Sprintf("buffer too short: %d bytes", len(wav))}
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) {
		return nil, &FormatError{Reason: "missing RIFF tag"}
	}
	if !bytes.Equal(wav[8:12], []byte("WAVE")) {
		return nil, &FormatError{Reason: "missing WAVE tag"}
	}
	return wav[wavHeaderSize:], nil
}
