// Package sinks persists what a call produced: utterance transcripts to
// the database and caller/assistant audio to WAV recordings.
package sinks

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/code-100-precent/echobridge/internal/models"
	"github.com/code-100-precent/echobridge/pkg/logger"
)

// TranscriptSink records utterances for a call.
type TranscriptSink interface {
	Record(callID, speaker, text string, confidence float64)
}

// DBTranscriptSink writes utterances to the call database. Failures are
// logged, never surfaced to the audio path.
type DBTranscriptSink struct {
	db *gorm.DB
}

func NewDBTranscriptSink(db *gorm.DB) *DBTranscriptSink {
	return &DBTranscriptSink{db: db}
}

func (s *DBTranscriptSink) Record(callID, speaker, text string, confidence float64) {
	if text == "" {
		return
	}
	err := models.AppendTranscript(s.db, &models.TranscriptEntry{
		CallID:     callID,
		Speaker:    speaker,
		Text:       text,
		Confidence: confidence,
	})
	if err != nil {
		logger.Warn("transcript write failed",
			zap.String("call_id", callID), zap.Error(err))
	}
}

// NopTranscriptSink drops utterances; used when transcripts are disabled.
type NopTranscriptSink struct{}

func (NopTranscriptSink) Record(string, string, string, float64) {}
