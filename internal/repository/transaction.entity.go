package repository

import (
	"time"

	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	pg.Model
	CustomerID    string          `gorm:"column:customer_id;type:uuid;not null;index"`
	OwnerID       string          `gorm:"column:owner_id;type:uuid;not null;index"`
	Type          string          `gorm:"column:type;not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Description   string          `gorm:"column:description;not null;default:''"`
	PaymentMethod string          `gorm:"column:payment_method;not null"`
	Date          time.Time       `gorm:"column:date;not null;index"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		Model:         pg.Model{ID: m.ID, CreatedAt: m.CreatedAt},
		CustomerID:    m.CustomerID,
		OwnerID:       m.OwnerID,
		Type:          string(m.Type),
		Amount:        m.Amount.Round(model.AmountScale),
		Description:   m.Description,
		PaymentMethod: string(m.PaymentMethod),
		Date:          m.Date,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:            e.ID,
		CustomerID:    e.CustomerID,
		OwnerID:       e.OwnerID,
		Type:          model.TransactionType(e.Type),
		Amount:        e.Amount,
		Description:   e.Description,
		PaymentMethod: model.PaymentMethod(e.PaymentMethod),
		Date:          e.Date,
		CreatedAt:     e.CreatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
