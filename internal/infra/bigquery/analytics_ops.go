package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/ucielsola/expense-tracker/internal/analytics"
)

// AnalyticsRepository implements the read-only aggregation surface the
// query executor consumes. Every method is a single parameterized
// SELECT; nothing here mutates data.
type AnalyticsRepository struct {
	client *Client
}

func NewAnalyticsRepository(client *Client) *AnalyticsRepository {
	return &AnalyticsRepository{client: client}
}

// sortDirection maps the validated sort order onto SQL. The input is
// constrained upstream; anything unexpected falls back to DESC.
func sortDirection(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}

func archivedClause(includeArchived bool) string {
	if includeArchived {
		return "TRUE"
	}
	return "NOT t.archived"
}

func dateParams(p analytics.QueryParams) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(p.StartDate)},
		{Name: "end_date", Value: civil.DateOf(p.EndDate)},
	}
}

// TopAccountsByExpense ranks accounts by total expense outflow.
func (r *AnalyticsRepository) TopAccountsByExpense(ctx context.Context, p analytics.QueryParams) ([]analytics.AccountTotal, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT
			a.name AS account_name,
			CAST(SUM(t.from_amount) AS FLOAT64) AS total,
			t.currency AS currency
		FROM %s t
		JOIN %s a ON t.from_account_id = a.account_id
		WHERE t.transaction_type = 'expense'
		  AND t.transaction_date BETWEEN @start_date AND @end_date
		  AND %s
		GROUP BY a.name, t.currency
		ORDER BY total %s
		LIMIT @limit
	`, r.client.table(transactionsTable), r.client.table(accountsTable),
		archivedClause(p.IncludeArchived), sortDirection(p.SortOrder)))
	q.Parameters = append(dateParams(p), bigquery.QueryParameter{Name: "limit", Value: int64(p.Limit)})

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("TopAccountsByExpense: reading query: %w", err)
	}

	var rows []analytics.AccountTotal
	for {
		var row struct {
			AccountName string  `bigquery:"account_name"`
			Total       float64 `bigquery:"total"`
			Currency    string  `bigquery:"currency"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("TopAccountsByExpense: iterating: %w", err)
		}
		rows = append(rows, analytics.AccountTotal{
			AccountName: row.AccountName,
			Total:       row.Total,
			Currency:    row.Currency,
		})
	}
	return rows, nil
}

// SpendingByCategory totals expenses per category.
func (r *AnalyticsRepository) SpendingByCategory(ctx context.Context, p analytics.QueryParams) ([]analytics.CategoryTotal, error) {
	categoryFilter := "TRUE"
	params := append(dateParams(p), bigquery.QueryParameter{Name: "limit", Value: int64(p.Limit)})
	if p.Category != "" {
		categoryFilter = "LOWER(t.category_name) = LOWER(@category)"
		params = append(params, bigquery.QueryParameter{Name: "category", Value: p.Category})
	}

	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT
			IFNULL(t.category_name, 'Uncategorized') AS category,
			CAST(SUM(t.from_amount) AS FLOAT64) AS total,
			t.currency AS currency
		FROM %s t
		WHERE t.transaction_type = 'expense'
		  AND t.transaction_date BETWEEN @start_date AND @end_date
		  AND %s
		  AND %s
		GROUP BY category, t.currency
		ORDER BY total %s
		LIMIT @limit
	`, r.client.table(transactionsTable), archivedClause(p.IncludeArchived),
		categoryFilter, sortDirection(p.SortOrder)))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("SpendingByCategory: reading query: %w", err)
	}

	var rows []analytics.CategoryTotal
	for {
		var row struct {
			Category string  `bigquery:"category"`
			Total    float64 `bigquery:"total"`
			Currency string  `bigquery:"currency"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SpendingByCategory: iterating: %w", err)
		}
		rows = append(rows, analytics.CategoryTotal{
			Category: row.Category,
			Total:    row.Total,
			Currency: row.Currency,
		})
	}
	return rows, nil
}

// CountArchivedTransactions counts archived transactions in the window.
func (r *AnalyticsRepository) CountArchivedTransactions(ctx context.Context, p analytics.QueryParams) (int64, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s t
		WHERE t.archived
		  AND t.transaction_date BETWEEN @start_date AND @end_date
	`, r.client.table(transactionsTable)))
	q.Parameters = dateParams(p)

	return r.readCount(ctx, q, "CountArchivedTransactions")
}

// CountRemainingInstallments counts unsettled installments, optionally
// for one credit-card account.
func (r *AnalyticsRepository) CountRemainingInstallments(ctx context.Context, p analytics.QueryParams) (int64, error) {
	accountFilter := "TRUE"
	var params []bigquery.QueryParameter
	if p.CreditCardAccountID != "" {
		accountFilter = "account_id = @account_id"
		params = append(params, bigquery.QueryParameter{Name: "account_id", Value: p.CreditCardAccountID})
	}

	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s
		WHERE NOT settled
		  AND %s
	`, r.client.table(purchasesTable), accountFilter))
	q.Parameters = params

	return r.readCount(ctx, q, "CountRemainingInstallments")
}

// TotalCreditCardDebt sums unsettled installment amounts per currency.
func (r *AnalyticsRepository) TotalCreditCardDebt(ctx context.Context, p analytics.QueryParams) ([]analytics.CurrencyTotal, error) {
	accountFilter := "TRUE"
	var params []bigquery.QueryParameter
	if p.CreditCardAccountID != "" {
		accountFilter = "account_id = @account_id"
		params = append(params, bigquery.QueryParameter{Name: "account_id", Value: p.CreditCardAccountID})
	}

	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT
			currency,
			CAST(SUM(amount) AS FLOAT64) AS total
		FROM %s
		WHERE NOT settled
		  AND %s
		GROUP BY currency
		ORDER BY total DESC
	`, r.client.table(purchasesTable), accountFilter))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("TotalCreditCardDebt: reading query: %w", err)
	}

	var rows []analytics.CurrencyTotal
	for {
		var row struct {
			Currency string  `bigquery:"currency"`
			Total    float64 `bigquery:"total"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("TotalCreditCardDebt: iterating: %w", err)
		}
		rows = append(rows, analytics.CurrencyTotal{Currency: row.Currency, Total: row.Total})
	}
	return rows, nil
}

// TopAccountsByTransactionCount ranks accounts by how many transactions
// touched them on either side.
func (r *AnalyticsRepository) TopAccountsByTransactionCount(ctx context.Context, p analytics.QueryParams) ([]analytics.AccountCount, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		WITH touched AS (
			SELECT from_account_id AS account_id, transaction_date, archived
			FROM %[1]s WHERE from_account_id IS NOT NULL
			UNION ALL
			SELECT to_account_id, transaction_date, archived
			FROM %[1]s WHERE to_account_id IS NOT NULL
		)
		SELECT
			a.name AS account_name,
			COUNT(*) AS n
		FROM touched t
		JOIN %[2]s a ON t.account_id = a.account_id
		WHERE t.transaction_date BETWEEN @start_date AND @end_date
		  AND %[3]s
		GROUP BY a.name
		ORDER BY n %[4]s
		LIMIT @limit
	`, r.client.table(transactionsTable), r.client.table(accountsTable),
		archivedClause(p.IncludeArchived), sortDirection(p.SortOrder)))
	q.Parameters = append(dateParams(p), bigquery.QueryParameter{Name: "limit", Value: int64(p.Limit)})

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("TopAccountsByTransactionCount: reading query: %w", err)
	}

	var rows []analytics.AccountCount
	for {
		var row struct {
			AccountName string `bigquery:"account_name"`
			N           int64  `bigquery:"n"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("TopAccountsByTransactionCount: iterating: %w", err)
		}
		rows = append(rows, analytics.AccountCount{AccountName: row.AccountName, Count: row.N})
	}
	return rows, nil
}

// AccountBalance is one row of the balance report.
type AccountBalance struct {
	AccountName string
	Currency    string
	Balance     float64
}

// AccountBalances computes per-account balances as inflows minus
// outflows over all non-archived transactions.
func (r *AnalyticsRepository) AccountBalances(ctx context.Context) ([]AccountBalance, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		WITH flows AS (
			SELECT to_account_id AS account_id, to_amount AS amount
			FROM %[1]s WHERE to_account_id IS NOT NULL AND NOT archived
			UNION ALL
			SELECT from_account_id, -from_amount
			FROM %[1]s WHERE from_account_id IS NOT NULL AND NOT archived
		)
		SELECT
			a.name AS account_name,
			a.currency AS currency,
			CAST(IFNULL(SUM(f.amount), 0) AS FLOAT64) AS balance
		FROM %[2]s a
		LEFT JOIN flows f ON f.account_id = a.account_id
		WHERE NOT a.archived
		GROUP BY a.name, a.currency
		ORDER BY a.name
	`, r.client.table(transactionsTable), r.client.table(accountsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("AccountBalances: reading query: %w", err)
	}

	var rows []AccountBalance
	for {
		var row struct {
			AccountName string  `bigquery:"account_name"`
			Currency    string  `bigquery:"currency"`
			Balance     float64 `bigquery:"balance"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("AccountBalances: iterating: %w", err)
		}
		rows = append(rows, AccountBalance(row))
	}
	return rows, nil
}

func (r *AnalyticsRepository) readCount(ctx context.Context, q *bigquery.Query, op string) (int64, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: reading query: %w", op, err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return 0, fmt.Errorf("%s: iterating: %w", op, err)
	}
	return row.N, nil
}
