package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// CategoryRepository reads and writes category rows.
type CategoryRepository struct {
	client *Client
}

func NewCategoryRepository(client *Client) *CategoryRepository {
	return &CategoryRepository{client: client}
}

const categoryColumns = "category_id, name, archived, created_ts"

// ListActive returns all non-archived categories ordered by name.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]CategoryRow, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE NOT archived
		ORDER BY name
	`, categoryColumns, r.client.table(categoriesTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActive: reading query: %w", err)
	}

	var rows []CategoryRow
	for {
		var row CategoryRow
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

// FindByName matches the category name case-insensitively, or nil when
// absent.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*CategoryRow, error) {
	q := r.client.bq.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE LOWER(name) = LOWER(@name)
		  AND NOT archived
	`, categoryColumns, r.client.table(categoriesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "name", Value: name},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindByName: reading query: %w", err)
	}

	var row CategoryRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByName: iterating: %w", err)
	}
	return &row, nil
}

// Create inserts a new category and returns its generated ID.
func (r *CategoryRepository) Create(ctx context.Context, name string) (string, error) {
	row := &CategoryRow{
		CategoryID: uuid.NewString(),
		Name:       name,
		CreatedTS:  time.Now(),
	}
	if err := r.client.inserter(categoriesTable).Put(ctx, row); err != nil {
		return "", fmt.Errorf("Create: inserting category: %w", err)
	}
	return row.CategoryID, nil
}
