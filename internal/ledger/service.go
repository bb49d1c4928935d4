// Package ledger maps parsed transactions onto the persistence layer.
// It is the only place where a ParsedTransaction becomes stored rows.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	bq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	infra "github.com/ucielsola/expense-tracker/internal/infra/bigquery"
	"github.com/ucielsola/expense-tracker/internal/parser"
)

// ErrLowConfidence means the parsed transaction is below the persistence
// gate; the caller must ask the user for clarification instead.
var ErrLowConfidence = errors.New("transaction confidence below threshold")

// ErrAccountChoiceNeeded means the expense names no resolvable source
// account; the caller must let the user pick one and retry.
var ErrAccountChoiceNeeded = errors.New("expense has no resolvable source account")

// UnknownAccountError reports an account name the model produced that
// does not exist.
type UnknownAccountError struct {
	Name string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("unknown account %q", e.Name)
}

// UnknownCategoryError reports a category name that does not exist.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Name)
}

// Accounts is the slice of the account repository the service needs.
type Accounts interface {
	FindByName(ctx context.Context, name string) (*infra.AccountRow, error)
	ListActive(ctx context.Context) ([]infra.AccountRow, error)
}

type Categories interface {
	FindByName(ctx context.Context, name string) (*infra.CategoryRow, error)
}

type Transactions interface {
	Insert(ctx context.Context, row *infra.TransactionRow) error
}

type Purchases interface {
	InsertBatch(ctx context.Context, rows []*infra.CreditCardPurchaseRow) error
}

// Recorded summarizes what persistence was performed.
type Recorded struct {
	Type         parser.TransactionType
	ID           string
	Installments int
}

// Service records parsed transactions.
type Service struct {
	accounts     Accounts
	categories   Categories
	transactions Transactions
	purchases    Purchases
	log          zerolog.Logger
	newID        func() string
}

func NewService(accounts Accounts, categories Categories, transactions Transactions, purchases Purchases, log zerolog.Logger) *Service {
	return &Service{
		accounts:     accounts,
		categories:   categories,
		transactions: transactions,
		purchases:    purchases,
		log:          log,
		newID:        uuid.NewString,
	}
}

// Record persists one parsed transaction. The mapping from transaction
// type to persistence call is total over the five types; anything else
// is a hard error for the message. Below the confidence gate nothing is
// written.
func (s *Service) Record(ctx context.Context, tx *parser.ParsedTransaction) (*Recorded, error) {
	if tx.Confidence < parser.MinConfidence {
		return nil, ErrLowConfidence
	}

	switch tx.Type {
	case parser.TypeIncome:
		return s.recordSimple(ctx, tx, "", tx.ToAccount)
	case parser.TypeExpense:
		if tx.FromAccount == "" {
			return nil, ErrAccountChoiceNeeded
		}
		return s.recordSimple(ctx, tx, tx.FromAccount, "")
	case parser.TypeTransfer, parser.TypeCreditCardPayment:
		return s.recordSimple(ctx, tx, tx.FromAccount, tx.ToAccount)
	case parser.TypeCreditCardPurchase:
		return s.recordPurchase(ctx, tx)
	default:
		return nil, fmt.Errorf("Record: unrecognized transaction type %q", tx.Type)
	}
}

// recordSimple writes one transaction row linking the named accounts.
// An empty name on a side leaves that side null; a name that does not
// resolve is a hard error carrying the missing name.
func (s *Service) recordSimple(ctx context.Context, tx *parser.ParsedTransaction, fromName, toName string) (*Recorded, error) {
	row := &infra.TransactionRow{
		TransactionID:   s.newID(),
		TransactionType: string(tx.Type),
		Description:     tx.Description,
		Currency:        tx.Currency,
		TransactionDate: civil.DateOf(tx.ParsedDate()),
		CreatedTS:       time.Now(),
	}

	if fromName != "" {
		account, err := s.resolveAccount(ctx, fromName)
		if err != nil {
			return nil, err
		}
		row.FromAccountID = bq.NullString{StringVal: account.AccountID, Valid: true}
	}
	if toName != "" {
		account, err := s.resolveAccount(ctx, toName)
		if err != nil {
			return nil, err
		}
		row.ToAccountID = bq.NullString{StringVal: account.AccountID, Valid: true}
	}
	if !row.FromAccountID.Valid && !row.ToAccountID.Valid {
		return nil, fmt.Errorf("recordSimple: %s names no account", tx.Type)
	}

	if tx.Category != "" {
		category, err := s.categories.FindByName(ctx, tx.Category)
		if err != nil {
			return nil, fmt.Errorf("recordSimple: find category: %w", err)
		}
		if category == nil {
			return nil, &UnknownCategoryError{Name: tx.Category}
		}
		row.CategoryID = bq.NullString{StringVal: category.CategoryID, Valid: true}
		row.CategoryName = bq.NullString{StringVal: category.Name, Valid: true}
	}

	fromAmount, toAmount := tx.FromAmount, tx.ToAmount
	if fromAmount == 0 {
		fromAmount = tx.Amount
	}
	if toAmount == 0 {
		toAmount = tx.Amount
	}
	row.FromAmount = ratFromFloat(fromAmount)
	row.ToAmount = ratFromFloat(toAmount)

	if err := s.transactions.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("recordSimple: %w", err)
	}

	s.log.Info().
		Str("transaction_id", row.TransactionID).
		Str("type", row.TransactionType).
		Float64("amount", tx.Amount).
		Msg("transaction recorded")
	return &Recorded{Type: tx.Type, ID: row.TransactionID, Installments: 1}, nil
}

// recordPurchase expands a credit-card purchase into its installment
// rows, all sharing one generated group ID. The batch insert is not
// atomic across rows.
func (s *Service) recordPurchase(ctx context.Context, tx *parser.ParsedTransaction) (*Recorded, error) {
	account, err := s.resolveCardAccount(ctx, tx.FromAccount)
	if err != nil {
		return nil, err
	}

	groupID := s.newID()
	installments := parser.ExpandInstallments(tx, groupID)

	rows := make([]*infra.CreditCardPurchaseRow, 0, len(installments))
	for _, inst := range installments {
		rows = append(rows, &infra.CreditCardPurchaseRow{
			PurchaseID:        s.newID(),
			GroupID:           inst.GroupID,
			AccountID:         account.AccountID,
			Description:       inst.Description,
			Amount:            inst.Amount.Rat(),
			Currency:          inst.Currency,
			InstallmentNumber: int64(inst.Number),
			TotalInstallments: int64(inst.Total),
			DueDate:           civil.DateOf(inst.DueDate),
			CreatedTS:         time.Now(),
		})
	}

	if err := s.purchases.InsertBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("recordPurchase: %w", err)
	}

	s.log.Info().
		Str("group_id", groupID).
		Int("installments", len(rows)).
		Float64("total", tx.Amount).
		Msg("credit card purchase recorded")
	return &Recorded{Type: tx.Type, ID: groupID, Installments: len(rows)}, nil
}

func (s *Service) resolveAccount(ctx context.Context, name string) (*infra.AccountRow, error) {
	account, err := s.accounts.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolveAccount: %w", err)
	}
	if account == nil {
		return nil, &UnknownAccountError{Name: name}
	}
	return account, nil
}

// resolveCardAccount finds the credit-card account for a purchase. With
// no name given, a sole existing credit-card account is used; zero or
// several mean the user has to pick.
func (s *Service) resolveCardAccount(ctx context.Context, name string) (*infra.AccountRow, error) {
	if name != "" {
		return s.resolveAccount(ctx, name)
	}

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolveCardAccount: %w", err)
	}
	var cards []infra.AccountRow
	for _, a := range accounts {
		if a.AccountType == infra.AccountTypeCreditCard {
			cards = append(cards, a)
		}
	}
	if len(cards) == 1 {
		return &cards[0], nil
	}
	return nil, ErrAccountChoiceNeeded
}

func ratFromFloat(f float64) *big.Rat {
	return decimal.NewFromFloat(f).Rat()
}
