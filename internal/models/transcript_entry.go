package models

import (
	"time"

	"gorm.io/gorm"
)

// Transcript speakers.
const (
	SpeakerCaller    = "caller"
	SpeakerAssistant = "assistant"
)

// TranscriptEntry is one utterance recorded during a call.
type TranscriptEntry struct {
	ID         uint    `gorm:"primarykey" json:"id"`
	CallID     string  `gorm:"size:64;index;not null" json:"call_id"`
	Speaker    string  `gorm:"size:16;not null" json:"speaker"`
	Text       string  `gorm:"type:text" json:"text"`
	Confidence float64 `json:"confidence"`

	CreatedAt time.Time `json:"created_at"`
}

func (TranscriptEntry) TableName() string {
	return "transcript_entries"
}

// AppendTranscript stores one utterance.
func AppendTranscript(db *gorm.DB, entry *TranscriptEntry) error {
	return db.Create(entry).Error
}

// ListTranscripts returns a call's utterances in arrival order.
func ListTranscripts(db *gorm.DB, callID string) ([]TranscriptEntry, error) {
	var entries []TranscriptEntry
	err := db.Where("call_id = ?", callID).Order("id asc").Find(&entries).Error
	return entries, err
}
