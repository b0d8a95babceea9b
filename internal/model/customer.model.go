package model

import (
	"regexp"
	"strings"
	"time"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

type Customer struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"userId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// CustomerWithTotals is a customer together with the sums of its ledger.
type CustomerWithTotals struct {
	*Customer
	Totals
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (r *CustomerCreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r CustomerCreateRequest) Validate() error {
	if r.Name == "" || r.Phone == "" {
		return NewValidationError("name", "Name and phone are required")
	}
	if !ValidPhone(r.Phone) {
		return NewValidationError("phone", "Phone must be exactly 10 digits")
	}
	return nil
}

func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
