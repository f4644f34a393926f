package models

import (
	"time"

	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyEventOutbox rows are written in the same transaction as the state
// change they describe; the dispatcher drains them to Pub/Sub.
type PolicyEventOutbox struct {
	ID            int        `gorm:"primary_key" json:"id"`
	EventId       string     `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	EventType     string     `gorm:"size:100;index;not null" json:"event_type"`
	ReferenceId   int        `gorm:"index" json:"reference_id"`
	ReferenceType string     `gorm:"size:50" json:"reference_type"`
	Payload       []byte     `gorm:"type:json" json:"payload"`
	CorrelationId string     `gorm:"size:64" json:"correlation_id"`
	PublishStatus string     `gorm:"size:20;index;default:PENDING" json:"publish_status"`
	Attempts      int        `gorm:"default:0" json:"attempts"`
	NextAttemptAt *time.Time `gorm:"index" json:"next_attempt_at"`
	LastError     string     `gorm:"size:500" json:"last_error"`
	ClaimedBy     string     `gorm:"size:64" json:"claimed_by"`
	ClaimedAt     *time.Time `json:"claimed_at"`
	PublishedAt   *time.Time `json:"published_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PolicyEventOutbox) TableName() string {
	return "policy_event_outbox"
}

// AppendOutboxEvent stages an event inside the caller's transaction.
// payload must be JSON-marshalable.
func AppendOutboxEvent(tx *gorm.DB, eventType string, referenceId int, referenceType string, payload any, correlationId string) error {
	body, err := utils.MarshalToJSON(payload)
	if err != nil {
		return err
	}
	raw := []byte(body)
	now := time.Now()
	row := PolicyEventOutbox{
		EventId:       uuid.NewString(),
		EventType:     eventType,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
		Payload:       raw,
		CorrelationId: correlationId,
		PublishStatus: OutboxPublishStatusPending,
		NextAttemptAt: &now,
	}
	return tx.Create(&row).Error
}
