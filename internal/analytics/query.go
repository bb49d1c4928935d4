package analytics

import (
	"fmt"

	"google.golang.org/genai"
)

// QueryType enumerates the read-only aggregations the pipeline can run.
type QueryType string

const (
	QueryTopAccountsByExpense          QueryType = "top_accounts_by_expense"
	QuerySpendingByCategory            QueryType = "spending_by_category"
	QueryCountArchivedTransactions     QueryType = "count_archived_transactions"
	QueryCountRemainingInstallments    QueryType = "count_remaining_installments"
	QueryTotalCreditCardDebt           QueryType = "total_credit_card_debt"
	QueryTopAccountsByTransactionCount QueryType = "top_accounts_by_transaction_count"
)

// TimePeriod selects the query time window.
type TimePeriod string

const (
	PeriodToday     TimePeriod = "today"
	PeriodThisWeek  TimePeriod = "this_week"
	PeriodThisMonth TimePeriod = "this_month"
	PeriodThisYear  TimePeriod = "this_year"
	PeriodAllTime   TimePeriod = "all_time"
)

var validPeriods = map[TimePeriod]bool{
	PeriodToday:     true,
	PeriodThisWeek:  true,
	PeriodThisMonth: true,
	PeriodThisYear:  true,
	PeriodAllTime:   true,
}

// GeneratedQuery is the structured descriptor the query generator emits.
// It is transient: validated by the safety gate, then executed at most
// once.
type GeneratedQuery struct {
	QueryType           QueryType         `json:"query_type"`
	SortOrder           string            `json:"sort_order,omitempty"`
	Limit               int               `json:"limit,omitempty"`
	TimePeriod          TimePeriod        `json:"time_period,omitempty"`
	Filters             map[string]string `json:"filters,omitempty"`
	IncludeArchived     bool              `json:"include_archived,omitempty"`
	CreditCardAccountID string            `json:"credit_card_account_id,omitempty"`
}

// Validate implements extract.Validator. Note the query type is checked
// only for being a known enum value here; the allow-list decision belongs
// to the safety gate, which also rejects unknown types.
func (q *GeneratedQuery) Validate() error {
	if q.QueryType == "" {
		return fmt.Errorf("query_type is required")
	}
	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("invalid sort_order %q", q.SortOrder)
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", q.Limit)
	}
	if q.TimePeriod == "" {
		q.TimePeriod = PeriodAllTime
	}
	if !validPeriods[q.TimePeriod] {
		return fmt.Errorf("invalid time_period %q", q.TimePeriod)
	}
	return nil
}

// querySchema is the fallback output schema for the query-generator
// prompt. query_type is deliberately unconstrained here: the allow-list
// in the safety gate is the floor, not the model's schema.
var querySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"query_type": {Type: genai.TypeString},
		"sort_order": {Type: genai.TypeString, Enum: []string{"asc", "desc"}},
		"limit":      {Type: genai.TypeInteger},
		"time_period": {
			Type: genai.TypeString,
			Enum: []string{
				string(PeriodToday),
				string(PeriodThisWeek),
				string(PeriodThisMonth),
				string(PeriodThisYear),
				string(PeriodAllTime),
			},
		},
		"filters": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {Type: genai.TypeString},
				"currency": {Type: genai.TypeString},
			},
		},
		"include_archived":       {Type: genai.TypeBoolean},
		"credit_card_account_id": {Type: genai.TypeString},
	},
	Required: []string{"query_type"},
}
