package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventCustomerCreated  EventType = "customer.created"
	EventCustomerDeleted  EventType = "customer.deleted"
	EventTransactionAdded EventType = "transaction.added"
)

// LedgerEvent is published after a ledger write commits. ID is unique per
// event and doubles as the activity entry's primary key.
type LedgerEvent struct {
	ID            string           `json:"id"`
	Type          EventType        `json:"type"`
	OwnerID       string           `json:"userId"`
	CustomerID    string           `json:"customerId"`
	CustomerName  string           `json:"customerName,omitempty"`
	TransactionID string           `json:"transactionId,omitempty"`
	TxType        TransactionType  `json:"txType,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	PaymentMethod PaymentMethod    `json:"paymentMethod,omitempty"`
	OccurredAt    time.Time        `json:"occurredAt"`
}

// Activity is one human readable line of a user's history.
type Activity struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"userId"`
	Type          EventType `json:"type"`
	CustomerID    string    `json:"customerId"`
	TransactionID string    `json:"transactionId,omitempty"`
	Message       string    `json:"message"`
	OccurredAt    time.Time `json:"occurredAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 200
)

type ActivityFilter struct {
	OwnerID    string
	CustomerID string
	Limit      int
}

// Clamp bounds Limit to [1, MaxActivityLimit], defaulting to DefaultActivityLimit.
func (f ActivityFilter) Clamp() ActivityFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultActivityLimit
	case f.Limit > MaxActivityLimit:
		f.Limit = MaxActivityLimit
	}
	return f
}

// Describe renders the activity message for an event.
func (e LedgerEvent) Describe() string {
	name := e.CustomerName
	if name == "" {
		name = "customer"
	}
	switch e.Type {
	case EventCustomerCreated:
		return "Added customer " + name
	case EventCustomerDeleted:
		return "Deleted customer " + name + " and their transactions"
	case EventTransactionAdded:
		amount := "0.00"
		if e.Amount != nil {
			amount = e.Amount.StringFixed(2)
		}
		if e.TxType == TransactionPaid {
			return "Paid " + amount + " to " + name + " (" + string(e.PaymentMethod) + ")"
		}
		return "Received " + amount + " from " + name + " (" + string(e.PaymentMethod) + ")"
	default:
		return string(e.Type)
	}
}

func (e LedgerEvent) ToActivity() *Activity {
	return &Activity{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		Type:          e.Type,
		CustomerID:    e.CustomerID,
		TransactionID: e.TransactionID,
		Message:       e.Describe(),
		OccurredAt:    e.OccurredAt,
	}
}
