package bigquery

import (
	"context"
	"fmt"
)

// PurchaseRepository writes credit-card purchase installments.
type PurchaseRepository struct {
	client *Client
}

func NewPurchaseRepository(client *Client) *PurchaseRepository {
	return &PurchaseRepository{client: client}
}

// InsertBatch writes all installments of one purchase. The batch is not
// atomic: a mid-sequence failure can leave a partial installment group
// behind.
func (r *PurchaseRepository) InsertBatch(ctx context.Context, rows []*CreditCardPurchaseRow) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.PurchaseID == "" || row.GroupID == "" {
			return fmt.Errorf("InsertBatch: purchase and group IDs are required")
		}
	}
	if err := r.client.inserter(purchasesTable).Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertBatch: inserting purchases: %w", err)
	}
	return nil
}
