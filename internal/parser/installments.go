package parser

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one generated sub-payment of a credit-card purchase.
// All installments of a purchase share one group ID.
type Installment struct {
	GroupID     string
	Description string
	Amount      decimal.Decimal
	Currency    string
	Number      int
	Total       int
	DueDate     time.Time
}

// ExpandInstallments splits a credit-card purchase into its N installment
// records. Each installment is total/N rounded to 2 decimal places; the
// rounded amounts are not reconciled against the total, so across many
// installments the sum can drift from the purchase amount by a cent.
// Installment i is due i-1 months after the purchase date.
func ExpandInstallments(tx *ParsedTransaction, groupID string) []Installment {
	total := tx.Installments
	if total < 1 {
		total = 1
	}

	amount := decimal.NewFromFloat(tx.Amount).
		DivRound(decimal.NewFromInt(int64(total)), 2)
	purchaseDate := tx.ParsedDate()

	result := make([]Installment, 0, total)
	for i := 1; i <= total; i++ {
		result = append(result, Installment{
			GroupID:     groupID,
			Description: tx.Description,
			Amount:      amount,
			Currency:    tx.Currency,
			Number:      i,
			Total:       total,
			DueDate:     purchaseDate.AddDate(0, i-1, 0),
		})
	}
	return result
}
