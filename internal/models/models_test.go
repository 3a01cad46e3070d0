package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&CallRecord{}, &TranscriptEntry{}))
	return db
}

func TestCallRecordLifecycle(t *testing.T) {
	db := setupTestDB(t)

	record := &CallRecord{
		CallID:   "CA1",
		StreamID: "MZ1",
		TeamID:   "team-1",
	}
	require.NoError(t, CreateCallRecord(db, record))
	assert.Equal(t, CallStatusActive, record.Status)
	assert.False(t, record.StartedAt.IsZero())

	got, err := GetCallRecordByCallID(db, "CA1")
	require.NoError(t, err)
	assert.Equal(t, "MZ1", got.StreamID)

	active, err := CountActiveCalls(db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, active)

	require.NoError(t, FinishCallRecord(db, "CA1", CallStatusEscalated, "explicit_request"))
	got, err = GetCallRecordByCallID(db, "CA1")
	require.NoError(t, err)
	assert.Equal(t, CallStatusEscalated, got.Status)
	assert.Equal(t, "explicit_request", got.EscalationReason)
	assert.NotNil(t, got.EndedAt)

	active, err = CountActiveCalls(db)
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestCallRecordUniqueCallID(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, CreateCallRecord(db, &CallRecord{CallID: "CA1"}))
	assert.Error(t, CreateCallRecord(db, &CallRecord{CallID: "CA1"}))
}

func TestGetCallRecordMissing(t *testing.T) {
	db := setupTestDB(t)
	_, err := GetCallRecordByCallID(db, "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTranscriptOrdering(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, AppendTranscript(db, &TranscriptEntry{
		CallID: "CA1", Speaker: SpeakerCaller, Text: "where is my order",
	}))
	require.NoError(t, AppendTranscript(db, &TranscriptEntry{
		CallID: "CA1", Speaker: SpeakerAssistant, Text: "it ships today", Confidence: 0.8,
	}))
	require.NoError(t, AppendTranscript(db, &TranscriptEntry{
		CallID: "CA2", Speaker: SpeakerCaller, Text: "unrelated call",
	}))

	entries, err := ListTranscripts(db, "CA1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, SpeakerCaller, entries[0].Speaker)
	assert.Equal(t, SpeakerAssistant, entries[1].Speaker)
	assert.InDelta(t, 0.8, entries[1].Confidence, 1e-9)
}
