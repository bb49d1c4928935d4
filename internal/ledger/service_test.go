package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	infra "github.com/ucielsola/expense-tracker/internal/infra/bigquery"
	"github.com/ucielsola/expense-tracker/internal/parser"
)

type mockAccounts struct {
	byName map[string]*infra.AccountRow
	active []infra.AccountRow
	err    error
}

func (m *mockAccounts) FindByName(ctx context.Context, name string) (*infra.AccountRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byName[name], nil
}

func (m *mockAccounts) ListActive(ctx context.Context) ([]infra.AccountRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.active, nil
}

type mockCategories struct {
	byName map[string]*infra.CategoryRow
}

func (m *mockCategories) FindByName(ctx context.Context, name string) (*infra.CategoryRow, error) {
	return m.byName[name], nil
}

type mockTransactions struct {
	inserted []*infra.TransactionRow
	err      error
}

func (m *mockTransactions) Insert(ctx context.Context, row *infra.TransactionRow) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, row)
	return nil
}

type mockPurchases struct {
	batches [][]*infra.CreditCardPurchaseRow
}

func (m *mockPurchases) InsertBatch(ctx context.Context, rows []*infra.CreditCardPurchaseRow) error {
	m.batches = append(m.batches, rows)
	return nil
}

func newTestService(accounts *mockAccounts, categories *mockCategories, transactions *mockTransactions, purchases *mockPurchases) *Service {
	s := NewService(accounts, categories, transactions, purchases, zerolog.Nop())
	n := 0
	s.newID = func() string {
		n++
		return "id-" + string(rune('a'+n-1))
	}
	return s
}

func TestRecord_Expense(t *testing.T) {
	accounts := &mockAccounts{byName: map[string]*infra.AccountRow{
		"Revolut": {AccountID: "acc-1", Name: "Revolut"},
	}}
	categories := &mockCategories{byName: map[string]*infra.CategoryRow{
		"groceries": {CategoryID: "cat-1", Name: "groceries"},
	}}
	transactions := &mockTransactions{}
	svc := newTestService(accounts, categories, transactions, &mockPurchases{})

	recorded, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:        parser.TypeExpense,
		Description: "groceries",
		Amount:      50,
		FromAccount: "Revolut",
		Category:    "groceries",
		Currency:    parser.CurrencyUSD,
		Date:        "2025-06-18",
		Confidence:  92,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if recorded.Installments != 1 {
		t.Errorf("installments = %d, want 1", recorded.Installments)
	}
	if len(transactions.inserted) != 1 {
		t.Fatalf("inserted %d rows, want 1", len(transactions.inserted))
	}

	row := transactions.inserted[0]
	if row.FromAccountID.StringVal != "acc-1" || !row.FromAccountID.Valid {
		t.Errorf("from account = %+v, want acc-1", row.FromAccountID)
	}
	if row.ToAccountID.Valid {
		t.Errorf("expense should not set a destination account")
	}
	if row.CategoryID.StringVal != "cat-1" {
		t.Errorf("category = %+v, want cat-1", row.CategoryID)
	}
	if got, _ := row.FromAmount.Float64(); got != 50 {
		t.Errorf("from amount = %v, want 50", got)
	}
	if got, _ := row.ToAmount.Float64(); got != 50 {
		t.Errorf("to amount defaults to amount, got %v", got)
	}
}

func TestRecord_LowConfidenceNeverPersists(t *testing.T) {
	transactions := &mockTransactions{}
	purchases := &mockPurchases{}
	svc := newTestService(&mockAccounts{}, &mockCategories{}, transactions, purchases)

	_, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:        parser.TypeExpense,
		Description: "something",
		Amount:      10,
		FromAccount: "Revolut",
		Currency:    parser.CurrencyUSD,
		Date:        "2025-06-18",
		Confidence:  49.9,
	})
	if !errors.Is(err, ErrLowConfidence) {
		t.Fatalf("err = %v, want ErrLowConfidence", err)
	}
	if len(transactions.inserted) != 0 || len(purchases.batches) != 0 {
		t.Error("nothing must be persisted below the confidence gate")
	}
}

func TestRecord_ExpenseWithoutAccountNeedsChoice(t *testing.T) {
	svc := newTestService(&mockAccounts{}, &mockCategories{}, &mockTransactions{}, &mockPurchases{})

	_, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:        parser.TypeExpense,
		Description: "coffee",
		Amount:      5,
		Currency:    parser.CurrencyEUR,
		Date:        "2025-06-18",
		Confidence:  90,
	})
	if !errors.Is(err, ErrAccountChoiceNeeded) {
		t.Fatalf("err = %v, want ErrAccountChoiceNeeded", err)
	}
}

func TestRecord_UnknownAccountName(t *testing.T) {
	svc := newTestService(&mockAccounts{byName: map[string]*infra.AccountRow{}}, &mockCategories{}, &mockTransactions{}, &mockPurchases{})

	_, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:        parser.TypeExpense,
		Description: "coffee",
		Amount:      5,
		FromAccount: "Nonexistent",
		Currency:    parser.CurrencyEUR,
		Date:        "2025-06-18",
		Confidence:  90,
	})

	var unknown *UnknownAccountError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownAccountError", err)
	}
	if unknown.Name != "Nonexistent" {
		t.Errorf("error names %q, want the missing account name", unknown.Name)
	}
}

func TestRecord_Transfer(t *testing.T) {
	accounts := &mockAccounts{byName: map[string]*infra.AccountRow{
		"Checking": {AccountID: "acc-1", Name: "Checking"},
		"Savings":  {AccountID: "acc-2", Name: "Savings"},
	}}
	transactions := &mockTransactions{}
	svc := newTestService(accounts, &mockCategories{}, transactions, &mockPurchases{})

	_, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:        parser.TypeTransfer,
		Description: "to savings",
		Amount:      200,
		FromAccount: "Checking",
		ToAccount:   "Savings",
		FromAmount:  200,
		ToAmount:    180,
		Currency:    parser.CurrencyEUR,
		Date:        "2025-06-18",
		Confidence:  95,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	row := transactions.inserted[0]
	if row.FromAccountID.StringVal != "acc-1" || row.ToAccountID.StringVal != "acc-2" {
		t.Errorf("accounts = %v -> %v", row.FromAccountID, row.ToAccountID)
	}
	if got, _ := row.ToAmount.Float64(); got != 180 {
		t.Errorf("explicit toAmount must be preserved, got %v", got)
	}
}

func TestRecord_CreditCardPurchaseExpands(t *testing.T) {
	accounts := &mockAccounts{byName: map[string]*infra.AccountRow{
		"Visa": {AccountID: "card-1", Name: "Visa", AccountType: infra.AccountTypeCreditCard},
	}}
	purchases := &mockPurchases{}
	svc := newTestService(accounts, &mockCategories{}, &mockTransactions{}, purchases)

	recorded, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:         parser.TypeCreditCardPurchase,
		Description:  "laptop",
		Amount:       1200,
		FromAccount:  "Visa",
		Currency:     parser.CurrencyUSD,
		Date:         "2025-06-18",
		Installments: 12,
		Confidence:   95,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if recorded.Installments != 12 {
		t.Errorf("installments = %d, want 12", recorded.Installments)
	}
	if len(purchases.batches) != 1 || len(purchases.batches[0]) != 12 {
		t.Fatalf("expected one batch of 12 rows")
	}

	first := purchases.batches[0][0]
	group := first.GroupID
	for i, row := range purchases.batches[0] {
		if row.GroupID != group {
			t.Errorf("row %d has group %q, want shared %q", i, row.GroupID, group)
		}
		if row.AccountID != "card-1" {
			t.Errorf("row %d account = %q", i, row.AccountID)
		}
		if row.InstallmentNumber != int64(i+1) {
			t.Errorf("row %d number = %d", i, row.InstallmentNumber)
		}
		if got, _ := row.Amount.Float64(); got != 100 {
			t.Errorf("row %d amount = %v, want 100", i, got)
		}
	}
}

func TestRecord_PurchaseDefaultsToSoleCard(t *testing.T) {
	accounts := &mockAccounts{active: []infra.AccountRow{
		{AccountID: "acc-1", Name: "Cash", AccountType: infra.AccountTypeCash},
		{AccountID: "card-1", Name: "Visa", AccountType: infra.AccountTypeCreditCard},
	}}
	purchases := &mockPurchases{}
	svc := newTestService(accounts, &mockCategories{}, &mockTransactions{}, purchases)

	_, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:        parser.TypeCreditCardPurchase,
		Description: "headphones",
		Amount:      90,
		Currency:    parser.CurrencyUSD,
		Date:        "2025-06-18",
		Confidence:  90,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if purchases.batches[0][0].AccountID != "card-1" {
		t.Errorf("account = %q, want the sole credit card", purchases.batches[0][0].AccountID)
	}
}

func TestRecord_UnknownCategory(t *testing.T) {
	accounts := &mockAccounts{byName: map[string]*infra.AccountRow{
		"Revolut": {AccountID: "acc-1", Name: "Revolut"},
	}}
	svc := newTestService(accounts, &mockCategories{}, &mockTransactions{}, &mockPurchases{})

	_, err := svc.Record(context.Background(), &parser.ParsedTransaction{
		Type:        parser.TypeExpense,
		Description: "coffee",
		Amount:      5,
		FromAccount: "Revolut",
		Category:    "nope",
		Currency:    parser.CurrencyEUR,
		Date:        "2025-06-18",
		Confidence:  90,
	})

	var unknown *UnknownCategoryError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownCategoryError", err)
	}
}
