package bigquery

import "time"

// Account types.
const (
	AccountTypeCash       = "cash"
	AccountTypeBank       = "bank"
	AccountTypeCreditCard = "credit_card"
)

type AccountRow struct {
	AccountID   string    `bigquery:"account_id"`
	Name        string    `bigquery:"name"`
	AccountType string    `bigquery:"account_type"`
	Currency    string    `bigquery:"currency"`
	Archived    bool      `bigquery:"archived"`
	CreatedTS   time.Time `bigquery:"created_ts"`
}
