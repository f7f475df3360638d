package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRequest describes a purchase (points load) or a redemption
// against a card.
type TransactionRequest struct {
	CardNumber string
	// Amount is in dollars.
	Amount decimal.Decimal
	// ExpiresInDays is only sent for purchases; nil leaves the vendor default.
	ExpiresInDays *int
	// Force is only sent for redemptions.
	Force bool
}

// DateRange bounds a transaction listing. Nil ends are omitted from the request.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	Page      int      `json:"page"`
	PageCount int      `json:"page_count"`
	Rows      []Record `json:"rows"`
}
