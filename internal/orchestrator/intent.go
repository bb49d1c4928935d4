package orchestrator

import (
	"fmt"

	"google.golang.org/genai"
)

// Intent is the coarse-grained purpose of a user message.
type Intent string

const (
	IntentTrackExpense       Intent = "track_expense"
	IntentTrackIncome        Intent = "track_income"
	IntentQueryBalance       Intent = "query_balance"
	IntentQueryTransactions  Intent = "query_transactions"
	IntentQueryReport        Intent = "query_report"
	IntentArchiveTransaction Intent = "archive_transaction"
	IntentGeneralChat        Intent = "general_chat"
	IntentUnknown            Intent = "unknown"
)

var validIntents = map[Intent]bool{
	IntentTrackExpense:       true,
	IntentTrackIncome:        true,
	IntentQueryBalance:       true,
	IntentQueryTransactions:  true,
	IntentQueryReport:        true,
	IntentArchiveTransaction: true,
	IntentGeneralChat:        true,
	IntentUnknown:            true,
}

// Decision is the classification of one inbound message. It is produced
// once, consumed immediately by the router and never persisted.
type Decision struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Validate implements extract.Validator.
func (d *Decision) Validate() error {
	if !validIntents[d.Intent] {
		return fmt.Errorf("invalid intent %q", d.Intent)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", d.Confidence)
	}
	return nil
}

// intentSchema is the fallback output schema for the orchestrator-intent
// prompt, used only when the prompt store carries no config of its own.
var intentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {
			Type: genai.TypeString,
			Enum: []string{
				string(IntentTrackExpense),
				string(IntentTrackIncome),
				string(IntentQueryBalance),
				string(IntentQueryTransactions),
				string(IntentQueryReport),
				string(IntentArchiveTransaction),
				string(IntentGeneralChat),
				string(IntentUnknown),
			},
		},
		"confidence": {Type: genai.TypeNumber},
		"reasoning":  {Type: genai.TypeString},
	},
	Required: []string{"intent", "confidence"},
}
