package sinks

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	wav "github.com/youpy/go-wav"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/logger"
)

// RecordingSink accumulates call audio and writes it out on call end.
type RecordingSink interface {
	AppendAudio(callID string, pcm []byte)
	Finish(callID string) error
}

// WAVRecordingSink buffers PCM16 per call in memory and writes one WAV
// file per call when it finishes. Call recordings are short enough that
// buffering beats reopening the file per frame.
type WAVRecordingSink struct {
	dir        string
	sampleRate int

	mu      sync.Mutex
	buffers map[string][]byte
}

func NewWAVRecordingSink(dir string, sampleRate int) *WAVRecordingSink {
	return &WAVRecordingSink{
		dir:        dir,
		sampleRate: sampleRate,
		buffers:    make(map[string][]byte),
	}
}

func (s *WAVRecordingSink) AppendAudio(callID string, pcm []byte) {
	s.mu.Lock()
	s.buffers[callID] = append(s.buffers[callID], pcm...)
	s.mu.Unlock()
}

// Finish writes the call's WAV file and releases its buffer.
func (s *WAVRecordingSink) Finish(callID string) error {
	s.mu.Lock()
	pcm, ok := s.buffers[callID]
	delete(s.buffers, callID)
	s.mu.Unlock()
	if !ok || len(pcm) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	path := filepath.Join(s.dir, callID+".wav")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	defer f.Close()

	numSamples := len(pcm) / 2
	writer := wav.NewWriter(f, uint32(numSamples), 1, uint32(s.sampleRate), 16)

	samples := make([]wav.Sample, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i].Values[0] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	if err := writer.WriteSamples(samples); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}

	logger.Info("recording written",
		zap.String("call_id", callID),
		zap.String("path", path),
		zap.Int("samples", numSamples))
	return nil
}

// NopRecordingSink drops audio; used when recording is disabled.
type NopRecordingSink struct{}

func (NopRecordingSink) AppendAudio(string, []byte) {}
func (NopRecordingSink) Finish(string) error        { return nil }
