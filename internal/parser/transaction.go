package parser

import (
	"fmt"
	"time"

	"google.golang.org/genai"
)

// TransactionType is the shape of a parsed transaction.
type TransactionType string

const (
	TypeIncome             TransactionType = "income"
	TypeTransfer           TransactionType = "transfer"
	TypeExpense            TransactionType = "expense"
	TypeCreditCardPayment  TransactionType = "credit_card_payment"
	TypeCreditCardPurchase TransactionType = "credit_card_purchase"
)

var validTypes = map[TransactionType]bool{
	TypeIncome:             true,
	TypeTransfer:           true,
	TypeExpense:            true,
	TypeCreditCardPayment:  true,
	TypeCreditCardPurchase: true,
}

// Supported currencies.
const (
	CurrencyEUR  = "EUR"
	CurrencyUSDC = "USDC"
	CurrencyARS  = "ARS"
	CurrencyUSD  = "USD"
)

var validCurrencies = map[string]bool{
	CurrencyEUR:  true,
	CurrencyUSDC: true,
	CurrencyARS:  true,
	CurrencyUSD:  true,
}

// DateLayout is the wire format for transaction dates.
const DateLayout = "2006-01-02"

// ParsedTransaction is the structured result of parsing one message.
// It is transient: the persistence layer maps it to a stored transaction
// (or N credit-card installment rows).
type ParsedTransaction struct {
	Type         TransactionType `json:"type"`
	Description  string          `json:"description"`
	Amount       float64         `json:"amount"`
	FromAccount  string          `json:"fromAccount,omitempty"`
	ToAccount    string          `json:"toAccount,omitempty"`
	Category     string          `json:"category,omitempty"`
	Currency     string          `json:"currency"`
	Date         string          `json:"date"`
	Installments int             `json:"installments,omitempty"`
	FromAmount   float64         `json:"fromAmount,omitempty"`
	ToAmount     float64         `json:"toAmount,omitempty"`
	Confidence   float64         `json:"confidence"`
}

// Validate implements extract.Validator. Installments defaults to 1 when
// the model omits it.
func (t *ParsedTransaction) Validate() error {
	if !validTypes[t.Type] {
		return fmt.Errorf("invalid transaction type %q", t.Type)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %v", t.Amount)
	}
	if !validCurrencies[t.Currency] {
		return fmt.Errorf("invalid currency %q", t.Currency)
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return fmt.Errorf("invalid date %q: %w", t.Date, err)
	}
	if t.Installments == 0 {
		t.Installments = 1
	}
	if t.Installments < 1 {
		return fmt.Errorf("installments must be >= 1, got %d", t.Installments)
	}
	if t.Confidence < 0 || t.Confidence > 100 {
		return fmt.Errorf("confidence %v out of range [0,100]", t.Confidence)
	}
	return nil
}

// ParsedDate returns the transaction date as a time value. Validate must
// have succeeded first.
func (t *ParsedTransaction) ParsedDate() time.Time {
	d, _ := time.Parse(DateLayout, t.Date)
	return d
}

// transactionSchema is the fallback output schema for the expense-parser
// prompt.
var transactionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type": {
			Type: genai.TypeString,
			Enum: []string{
				string(TypeIncome),
				string(TypeTransfer),
				string(TypeExpense),
				string(TypeCreditCardPayment),
				string(TypeCreditCardPurchase),
			},
		},
		"description":  {Type: genai.TypeString},
		"amount":       {Type: genai.TypeNumber},
		"fromAccount":  {Type: genai.TypeString},
		"toAccount":    {Type: genai.TypeString},
		"category":     {Type: genai.TypeString},
		"currency":     {Type: genai.TypeString, Enum: []string{CurrencyEUR, CurrencyUSDC, CurrencyARS, CurrencyUSD}},
		"date":         {Type: genai.TypeString, Description: "YYYY-MM-DD"},
		"installments": {Type: genai.TypeInteger},
		"fromAmount":   {Type: genai.TypeNumber},
		"toAmount":     {Type: genai.TypeNumber},
		"confidence":   {Type: genai.TypeNumber, Description: "0-100"},
	},
	Required: []string{"type", "description", "amount", "currency", "date", "confidence"},
}
