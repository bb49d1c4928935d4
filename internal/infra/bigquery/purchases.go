package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
)

// CreditCardPurchaseRow is one installment of a credit-card purchase.
// All installments of a purchase share the same group ID.
type CreditCardPurchaseRow struct {
	PurchaseID string `bigquery:"purchase_id"`
	GroupID    string `bigquery:"group_id"`
	AccountID  string `bigquery:"account_id"`

	Description string   `bigquery:"description"`
	Amount      *big.Rat `bigquery:"amount"` // NUMERIC
	Currency    string   `bigquery:"currency"`

	InstallmentNumber int64      `bigquery:"installment_number"`
	TotalInstallments int64      `bigquery:"total_installments"`
	DueDate           civil.Date `bigquery:"due_date"`

	Settled   bool      `bigquery:"settled"`
	CreatedTS time.Time `bigquery:"created_ts"`
}
