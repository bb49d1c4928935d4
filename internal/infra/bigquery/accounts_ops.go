package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// AccountRepository reads and writes account rows.
type AccountRepository struct {
	client *Client
}

func NewAccountRepository(client *Client) *AccountRepository {
	return &AccountRepository{client: client}
}

const accountColumns = "account_id, name, account_type, currency, archived, created_ts"

// FindByID returns the account with the given ID, or nil when absent.
func (r *AccountRepository) FindByID(ctx context.Context, accountID string) (*AccountRow, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE account_id = @account_id
	`, accountColumns, r.client.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}
	return r.readOne(ctx, q, "FindByID")
}

// FindByName matches the account name case-insensitively, or nil when
// absent.
func (r *AccountRepository) FindByName(ctx context.Context, name string) (*AccountRow, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE LOWER(name) = LOWER(@name)
		  AND NOT archived
	`, accountColumns, r.client.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: name},
	}
	return r.readOne(ctx, q, "FindByName")
}

// ListActive returns all non-archived accounts ordered by name.
func (r *AccountRepository) ListActive(ctx context.Context) ([]AccountRow, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE NOT archived
		ORDER BY name
	`, accountColumns, r.client.table(accountsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActive: reading query: %w", err)
	}

	var rows []AccountRow
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActive: iterating: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Create inserts a new account and returns its generated ID.
func (r *AccountRepository) Create(ctx context.Context, name, accountType, currency string) (string, error) {
	row := &AccountRow{
		AccountID:   uuid.NewString(),
		Name:        name,
		AccountType: accountType,
		Currency:    currency,
		CreatedTS:   time.Now(),
	}
	if err := r.client.inserter(accountsTable).Put(ctx, row); err != nil {
		return "", fmt.Errorf("Create: inserting account: %w", err)
	}
	return row.AccountID, nil
}

func (r *AccountRepository) readOne(ctx context.Context, q *bigquery.Query, op string) (*AccountRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: reading query: %w", op, err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: iterating: %w", op, err)
	}
	return &row, nil
}
