package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TransactionType string `bigquery:"transaction_type"` // REQUIRED
	Description     string `bigquery:"description"`      // REQUIRED

	FromAccountID bigquery.NullString `bigquery:"from_account_id"` // NULLABLE
	ToAccountID   bigquery.NullString `bigquery:"to_account_id"`   // NULLABLE
	CategoryID    bigquery.NullString `bigquery:"category_id"`     // NULLABLE
	CategoryName  bigquery.NullString `bigquery:"category_name"`   // NULLABLE

	Currency   string   `bigquery:"currency"`    // REQUIRED
	FromAmount *big.Rat `bigquery:"from_amount"` // NULLABLE NUMERIC
	ToAmount   *big.Rat `bigquery:"to_amount"`   // NULLABLE NUMERIC

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	InstallmentGroup bigquery.NullString `bigquery:"installment_group"` // NULLABLE

	Archived  bool      `bigquery:"archived"`
	CreatedTS time.Time `bigquery:"created_ts"`
}
