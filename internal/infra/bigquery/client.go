// Package bigquery holds the relational repositories: one row struct and
// one ops file per table, parameterized queries only.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Table names within the dataset.
const (
	accountsTable     = "accounts"
	categoriesTable   = "categories"
	transactionsTable = "transactions"
	purchasesTable    = "credit_card_purchases"
)

// Client wraps one shared BigQuery connection plus dataset addressing.
// It is constructed once at process start and passed to repositories
// explicitly.
type Client struct {
	bq        *bigquery.Client
	projectID string
	datasetID string
}

func NewClient(ctx context.Context, projectID, datasetID string) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("bigquery.NewClient: project ID is required")
	}
	bq, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	return &Client{bq: bq, projectID: projectID, datasetID: datasetID}, nil
}

func (c *Client) Close() error {
	return c.bq.Close()
}

// table returns the fully qualified table name for interpolation into
// query text. Only the constants above ever reach this.
func (c *Client) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", c.projectID, c.datasetID, name)
}

func (c *Client) inserter(name string) *bigquery.Inserter {
	return c.bq.DatasetInProject(c.projectID, c.datasetID).Table(name).Inserter()
}

// runDML executes a parameterized statement and waits for completion.
func (c *Client) runDML(ctx context.Context, statement string, params []bigquery.QueryParameter) error {
	q := c.bq.Query(statement)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("runDML: running statement: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("runDML: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("runDML: job error: %w", err)
	}
	return nil
}
