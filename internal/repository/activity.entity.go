package repository

import (
	"time"

	"github.com/nimasrn/cash-ledger/internal/model"
)

// ActivityEntity uses the event id as its key, so replays of the same event
// collapse into one row.
type ActivityEntity struct {
	ID            string    `gorm:"primaryKey;column:id"`
	OwnerID       string    `gorm:"column:owner_id;type:uuid;not null;index"`
	Type          string    `gorm:"column:type;not null"`
	CustomerID    string    `gorm:"column:customer_id;type:uuid;not null;index"`
	TransactionID string    `gorm:"column:transaction_id"`
	Message       string    `gorm:"column:message;not null"`
	OccurredAt    time.Time `gorm:"column:occurred_at;not null;index"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ActivityEntity) TableName() string {
	return "activity"
}

func toActivityEntity(m *model.Activity) *ActivityEntity {
	if m == nil {
		return nil
	}
	return &ActivityEntity{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Type:          string(m.Type),
		CustomerID:    m.CustomerID,
		TransactionID: m.TransactionID,
		Message:       m.Message,
		OccurredAt:    m.OccurredAt,
		CreatedAt:     m.CreatedAt,
	}
}

func toActivityModel(e *ActivityEntity) *model.Activity {
	if e == nil {
		return nil
	}
	return &model.Activity{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		Type:          model.EventType(e.Type),
		CustomerID:    e.CustomerID,
		TransactionID: e.TransactionID,
		Message:       e.Message,
		OccurredAt:    e.OccurredAt,
		CreatedAt:     e.CreatedAt,
	}
}
