// Package model holds the ledger's domain types, their validation and the
// pure aggregation over transactions.
package model

import "github.com/shopspring/decimal"

func init() {
	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}
