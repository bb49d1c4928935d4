package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLimit caps ranked results when the query names no limit.
const DefaultLimit = 10

// QueryParams is the flattened, validated parameter set handed to the
// repository layer.
type QueryParams struct {
	StartDate           time.Time
	EndDate             time.Time
	SortOrder           string
	Limit               int
	IncludeArchived     bool
	CreditCardAccountID string
	Category            string
}

// AccountTotal is one row of an amount-ranked account aggregation.
type AccountTotal struct {
	AccountName string
	Total       float64
	Currency    string
}

// CategoryTotal is one row of a per-category spending breakdown.
type CategoryTotal struct {
	Category string
	Total    float64
	Currency string
}

// CurrencyTotal is an aggregate amount per currency.
type CurrencyTotal struct {
	Currency string
	Total    float64
}

// AccountCount is one row of a count-ranked account aggregation.
type AccountCount struct {
	AccountName string
	Count       int64
}

// Repository is the read-only aggregation surface the executor consumes.
// Every method maps to exactly one parameterized aggregation; none
// mutates data.
type Repository interface {
	TopAccountsByExpense(ctx context.Context, p QueryParams) ([]AccountTotal, error)
	SpendingByCategory(ctx context.Context, p QueryParams) ([]CategoryTotal, error)
	CountArchivedTransactions(ctx context.Context, p QueryParams) (int64, error)
	CountRemainingInstallments(ctx context.Context, p QueryParams) (int64, error)
	TotalCreditCardDebt(ctx context.Context, p QueryParams) ([]CurrencyTotal, error)
	TopAccountsByTransactionCount(ctx context.Context, p QueryParams) ([]AccountCount, error)
}

// Result is the tagged outcome of one executed query; only the fields
// for its QueryType are populated.
type Result struct {
	QueryType      QueryType
	AccountTotals  []AccountTotal
	CategoryTotals []CategoryTotal
	CurrencyTotals []CurrencyTotal
	AccountCounts  []AccountCount
	Count          int64
}

// Executor maps a validated query descriptor onto the repository.
type Executor struct {
	repo Repository
	now  func() time.Time
	log  zerolog.Logger
}

func NewExecutor(repo Repository, log zerolog.Logger) *Executor {
	return &Executor{repo: repo, now: time.Now, log: log}
}

// Execute runs the aggregation for the query. The caller must have run
// the safety gate first; an unknown query type here is a hard error, not
// a fallback.
func (e *Executor) Execute(ctx context.Context, query *GeneratedQuery) (*Result, error) {
	start, end := Window(e.now(), query.TimePeriod)

	params := QueryParams{
		StartDate:           start,
		EndDate:             end,
		SortOrder:           query.SortOrder,
		Limit:               query.Limit,
		IncludeArchived:     query.IncludeArchived,
		CreditCardAccountID: query.CreditCardAccountID,
		Category:            query.Filters["category"],
	}
	if params.SortOrder == "" {
		params.SortOrder = "desc"
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	result := &Result{QueryType: query.QueryType}
	var err error

	switch query.QueryType {
	case QueryTopAccountsByExpense:
		result.AccountTotals, err = e.repo.TopAccountsByExpense(ctx, params)
	case QuerySpendingByCategory:
		result.CategoryTotals, err = e.repo.SpendingByCategory(ctx, params)
	case QueryCountArchivedTransactions:
		result.Count, err = e.repo.CountArchivedTransactions(ctx, params)
	case QueryCountRemainingInstallments:
		result.Count, err = e.repo.CountRemainingInstallments(ctx, params)
	case QueryTotalCreditCardDebt:
		result.CurrencyTotals, err = e.repo.TotalCreditCardDebt(ctx, params)
	case QueryTopAccountsByTransactionCount:
		result.AccountCounts, err = e.repo.TopAccountsByTransactionCount(ctx, params)
	default:
		return nil, fmt.Errorf("Execute: unsupported query type %q", query.QueryType)
	}
	if err != nil {
		return nil, fmt.Errorf("Execute: %s: %w", query.QueryType, err)
	}

	return result, nil
}
