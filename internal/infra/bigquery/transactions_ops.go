package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// TransactionRepository reads and writes transaction rows.
type TransactionRepository struct {
	client *Client
}

func NewTransactionRepository(client *Client) *TransactionRepository {
	return &TransactionRepository{client: client}
}

const transactionColumns = `transaction_id, transaction_type, description,
	from_account_id, to_account_id, category_id, category_name,
	currency, from_amount, to_amount, transaction_date,
	installment_group, archived, created_ts`

// Insert writes one transaction row.
func (r *TransactionRepository) Insert(ctx context.Context, row *TransactionRow) error {
	if row.TransactionID == "" {
		return fmt.Errorf("Insert: transaction ID is required")
	}
	if err := r.client.inserter(transactionsTable).Put(ctx, row); err != nil {
		return fmt.Errorf("Insert: inserting transaction: %w", err)
	}
	return nil
}

// ListRecent returns the most recent non-archived transactions.
func (r *TransactionRepository) ListRecent(ctx context.Context, limit int) ([]TransactionRow, error) {
	if limit <= 0 {
		limit = 10
	}

	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE NOT archived
		ORDER BY transaction_date DESC, created_ts DESC
		LIMIT @limit
	`, transactionColumns, r.client.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: reading query: %w", err)
	}

	var rows []TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecent: iterating: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FindLatestByDescription returns the newest non-archived transaction
// whose description contains the given text (case-insensitive), or nil.
func (r *TransactionRepository) FindLatestByDescription(ctx context.Context, text string) (*TransactionRow, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE NOT archived
		  AND CONTAINS_SUBSTR(LOWER(description), LOWER(@text))
		ORDER BY transaction_date DESC, created_ts DESC
		LIMIT 1
	`, transactionColumns, r.client.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "text", Value: text},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindLatestByDescription: reading query: %w", err)
	}

	var row TransactionRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindLatestByDescription: iterating: %w", err)
	}
	return &row, nil
}

// Archive marks one transaction archived.
func (r *TransactionRepository) Archive(ctx context.Context, transactionID string) error {
	statement := fmt.Sprintf(`
		UPDATE %s
		SET archived = TRUE
		WHERE transaction_id = @transaction_id
	`, r.client.table(transactionsTable))

	err := r.client.runDML(ctx, statement, []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
	})
	if err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	return nil
}
