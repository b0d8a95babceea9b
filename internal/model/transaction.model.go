package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionReceived TransactionType = "received"
	TransactionPaid     TransactionType = "paid"
)

func (t TransactionType) Valid() bool {
	return t == TransactionReceived || t == TransactionPaid
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentOnline
}

// Transaction is an immutable ledger entry. It is only ever removed
// together with its customer.
type Transaction struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	OwnerID       string          `json:"userId"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Date          time.Time       `json:"date"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TransactionCreateRequest is the body of the add-transaction call. Amount
// is a pointer so a missing or null amount can be told apart from zero.
type TransactionCreateRequest struct {
	CustomerID    string           `json:"customerId"`
	Type          TransactionType  `json:"type"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
	Description   string           `json:"description"`
	Date          string           `json:"date"`
}

func (r *TransactionCreateRequest) Normalize() {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.Description = strings.TrimSpace(r.Description)
	r.Date = strings.TrimSpace(r.Date)
}

func (r TransactionCreateRequest) Validate() error {
	if r.CustomerID == "" || r.Type == "" || r.Amount == nil || r.PaymentMethod == "" {
		return NewValidationError("customerId", "customerId, type, amount and paymentMethod are required")
	}
	if !r.Type.Valid() {
		return NewValidationError("type", "Invalid transaction type")
	}
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "Amount must be greater than zero")
	}
	if err := validAmountScale(*r.Amount); err != nil {
		return err
	}
	if !r.PaymentMethod.Valid() {
		return NewValidationError("paymentMethod", "Invalid payment method")
	}
	if r.Date != "" {
		if _, err := ParseTransactionDate(r.Date); err != nil {
			return NewValidationError("date", "Invalid date, expected RFC3339 or YYYY-MM-DD")
		}
	}
	return nil
}

// Amounts are stored as NUMERIC(14,2).
const (
	AmountScale     = 2
	amountMaxDigits = 12
)

var maxAmount = decimal.New(1, amountMaxDigits)

// validAmountScale rejects amounts the store cannot hold exactly. The
// exponent is bounded first so rounding and comparing stay cheap for
// literals like 1e-999999999.
func validAmountScale(a decimal.Decimal) error {
	exp := a.Exponent()
	if exp > amountMaxDigits {
		return NewValidationError("amount", "Amount must be less than 1000000000000")
	}
	if exp < -(AmountScale+amountMaxDigits) || !a.Equal(a.Round(AmountScale)) {
		return NewValidationError("amount", "Amount must have at most two decimal places")
	}
	if a.GreaterThanOrEqual(maxAmount) {
		return NewValidationError("amount", "Amount must be less than 1000000000000")
	}
	return nil
}

// DateOr returns the requested date, or now when none was given.
func (r TransactionCreateRequest) DateOr(now time.Time) time.Time {
	if r.Date == "" {
		return now
	}
	d, err := ParseTransactionDate(r.Date)
	if err != nil {
		return now
	}
	return d
}

func ParseTransactionDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// CustomerLedger is a customer's transactions, newest first, with their totals.
type CustomerLedger struct {
	Customer     *Customer      `json:"customer"`
	Summary      Summary        `json:"summary"`
	Transactions []*Transaction `json:"transactions"`
}
