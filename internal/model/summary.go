package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type BalanceStatus string

const (
	StatusWillReceive BalanceStatus = "will_receive"
	StatusNeedsToPay  BalanceStatus = "needs_to_pay"
	StatusSettled     BalanceStatus = "settled"
)

// Totals are the per-customer sums shown next to each customer in a list.
type Totals struct {
	Received decimal.Decimal `json:"received"`
	Paid     decimal.Decimal `json:"paid"`
	Balance  decimal.Decimal `json:"balance"`
}

// Summary is the aggregate over a scope: one customer or all of a user's
// customers. Balance is always TotalReceived - TotalPaid; a positive
// balance is money owed to the user.
type Summary struct {
	TotalReceived decimal.Decimal `json:"totalReceived"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	Balance       decimal.Decimal `json:"balance"`
}

// Summarize sums received and paid amounts in one pass. Entries with an
// unknown type are ignored.
func Summarize(txns []*Transaction) Summary {
	received, paid := decimal.Zero, decimal.Zero
	for _, t := range txns {
		if t == nil {
			continue
		}
		switch t.Type {
		case TransactionReceived:
			received = received.Add(t.Amount)
		case TransactionPaid:
			paid = paid.Add(t.Amount)
		}
	}
	return Summary{
		TotalReceived: received,
		TotalPaid:     paid,
		Balance:       received.Sub(paid),
	}
}

// SummarizeByCustomer groups txns by customer id and summarizes each group.
// Customers without transactions are absent from the result.
func SummarizeByCustomer(txns []*Transaction) map[string]Summary {
	groups := make(map[string][]*Transaction)
	for _, t := range txns {
		if t == nil {
			continue
		}
		groups[t.CustomerID] = append(groups[t.CustomerID], t)
	}
	out := make(map[string]Summary, len(groups))
	for id, g := range groups {
		out[id] = Summarize(g)
	}
	return out
}

func (s Summary) Totals() Totals {
	return Totals{Received: s.TotalReceived, Paid: s.TotalPaid, Balance: s.Balance}
}

func (s Summary) Status() BalanceStatus {
	switch s.Balance.Sign() {
	case 1:
		return StatusWillReceive
	case -1:
		return StatusNeedsToPay
	default:
		return StatusSettled
	}
}

// Label renders the balance for display, e.g. "You will receive 90.00".
func (s Summary) Label() string {
	switch s.Status() {
	case StatusWillReceive:
		return "You will receive " + s.Balance.StringFixed(2)
	case StatusNeedsToPay:
		return "You need to pay " + s.Balance.Abs().StringFixed(2)
	default:
		return "Settled"
	}
}

// MarshalJSON adds the derived status and label to the wire form.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		Status BalanceStatus `json:"status"`
		Label  string        `json:"label"`
	}{plain(s), s.Status(), s.Label()})
}
