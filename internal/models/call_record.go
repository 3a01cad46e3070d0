package models

import (
	"time"

	"gorm.io/gorm"
)

// Call lifecycle statuses.
const (
	CallStatusActive    = "active"
	CallStatusCompleted = "completed"
	CallStatusEscalated = "escalated"
)

// CallRecord is the persisted record of one bridged call.
type CallRecord struct {
	ID               uint   `gorm:"primarykey" json:"id"`
	CallID           string `gorm:"size:64;uniqueIndex;not null" json:"call_id"`
	StreamID         string `gorm:"size:64;index" json:"stream_id"`
	TeamID           string `gorm:"size:64;index" json:"team_id"`
	CampaignID       string `gorm:"size:64" json:"campaign_id"`
	TemplateID       string `gorm:"size:64" json:"template_id"`
	Status           string `gorm:"size:32;default:active" json:"status"`
	EscalationReason string `gorm:"size:64" json:"escalation_reason"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// CreateCallRecord inserts a new active call row.
func CreateCallRecord(db *gorm.DB, record *CallRecord) error {
	if record.Status == "" {
		record.Status = CallStatusActive
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now()
	}
	return db.Create(record).Error
}

// GetCallRecordByCallID fetches one call by its external id.
func GetCallRecordByCallID(db *gorm.DB, callID string) (*CallRecord, error) {
	var record CallRecord
	if err := db.Where("call_id = ?", callID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FinishCallRecord marks a call ended with its final status.
func FinishCallRecord(db *gorm.DB, callID, status, escalationReason string) error {
	now := time.Now()
	return db.Model(&CallRecord{}).
		Where("call_id = ?", callID).
		Updates(map[string]any{
			"status":            status,
			"escalation_reason": escalationReason,
			"ended_at":          &now,
		}).Error
}

// CountActiveCalls returns the number of calls still marked active.
func CountActiveCalls(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&CallRecord{}).Where("status = ?", CallStatusActive).Count(&count).Error
	return count, err
}
