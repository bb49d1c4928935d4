// Package bot is the Telegram surface: it routes classified messages
// through the pipeline and turns outcomes into chat replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/ucielsola/expense-tracker/internal/analytics"
	infra "github.com/ucielsola/expense-tracker/internal/infra/bigquery"
	"github.com/ucielsola/expense-tracker/internal/ledger"
	"github.com/ucielsola/expense-tracker/internal/llm"
	"github.com/ucielsola/expense-tracker/internal/orchestrator"
	"github.com/ucielsola/expense-tracker/internal/parser"
	"github.com/ucielsola/expense-tracker/internal/pending"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

// ChatPromptName is the prompt resolved for plain conversational replies.
const ChatPromptName = "general-chat"

const defaultChatPrompt = "You are a concise, friendly personal finance assistant. " +
	"Answer briefly and stay on the topic of the user's finances."

// Fixed user-facing replies.
const (
	msgLowConfidence = "I couldn't confidently understand that transaction. " +
		"Could you rephrase it with the amount and what it was for?"
	msgUnsafeQuery = "I can't run that query. Only a fixed set of read-only reports is supported."
	msgParseFailed = "I couldn't make sense of that. Could you rephrase it?"
	msgPickAccount = "Which account did this come from?"
	msgCancelled   = "Okay, discarded."
	msgNoPending   = "There's nothing waiting for an answer."
	msgInternal    = "Something went wrong on my side. Please try again."
)

// Callback data prefixes for inline keyboards.
const (
	callbackAccountPrefix = "acct:"
	callbackCancel        = "cancel"
)

// Attachment is a downloaded Telegram file.
type Attachment struct {
	Filename string
	Data     []byte
	MIMEType string
}

// Incoming is one normalized inbound message.
type Incoming struct {
	ChatID int64
	Text   string
	Voice  *Attachment
	Photo  *Attachment
}

// Reply is what the transport sends back.
type Reply struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

type intentAnalyzer interface {
	AnalyzeIntent(ctx context.Context, message string) orchestrator.Decision
}

type transactionParser interface {
	Parse(ctx context.Context, message string) (*parser.ParsedTransaction, error)
}

type transactionRecorder interface {
	Record(ctx context.Context, tx *parser.ParsedTransaction) (*ledger.Recorded, error)
}

type accountLister interface {
	ListActive(ctx context.Context) ([]infra.AccountRow, error)
}

type queryGenerator interface {
	Generate(ctx context.Context, question string) (*analytics.GeneratedQuery, error)
}

type queryGate interface {
	Validate(ctx context.Context, question string, query *analytics.GeneratedQuery) (bool, error)
}

type queryExecutor interface {
	Execute(ctx context.Context, query *analytics.GeneratedQuery) (*analytics.Result, error)
}

type reporter interface {
	AccountBalances(ctx context.Context) ([]infra.AccountBalance, error)
}

type transactionReader interface {
	ListRecent(ctx context.Context, limit int) ([]infra.TransactionRow, error)
	FindLatestByDescription(ctx context.Context, text string) (*infra.TransactionRow, error)
	Archive(ctx context.Context, transactionID string) error
}

type chatModel interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResult, error)
	TranscribeAudio(ctx context.Context, data []byte, filename string) (string, error)
}

type promptResolver interface {
	GetPromptWithConfig(ctx context.Context, name string, fallback *genai.Schema, version string) (prompts.Resolved, error)
}

type mediaArchiver interface {
	Archive(ctx context.Context, chatID int64, filename string, data []byte) (string, error)
}

// Handler routes one message through intent classification and the
// matching pipeline branch.
type Handler struct {
	intents      intentAnalyzer
	parser       transactionParser
	recorder     transactionRecorder
	accounts     accountLister
	generator    queryGenerator
	gate         queryGate
	executor     queryExecutor
	reports      reporter
	transactions transactionReader
	chat         chatModel
	resolver     promptResolver
	archiver     mediaArchiver
	pending      *pending.Store
	log          zerolog.Logger
}

type HandlerDeps struct {
	Intents      intentAnalyzer
	Parser       transactionParser
	Recorder     transactionRecorder
	Accounts     accountLister
	Generator    queryGenerator
	Gate         queryGate
	Executor     queryExecutor
	Reports      reporter
	Transactions transactionReader
	Chat         chatModel
	Resolver     promptResolver
	Archiver     mediaArchiver
	Pending      *pending.Store
}

func NewHandler(deps HandlerDeps, log zerolog.Logger) *Handler {
	return &Handler{
		intents:      deps.Intents,
		parser:       deps.Parser,
		recorder:     deps.Recorder,
		accounts:     deps.Accounts,
		generator:    deps.Generator,
		gate:         deps.Gate,
		executor:     deps.Executor,
		reports:      deps.Reports,
		transactions: deps.Transactions,
		chat:         deps.Chat,
		resolver:     deps.Resolver,
		archiver:     deps.Archiver,
		pending:      deps.Pending,
		log:          log,
	}
}

// HandleMessage processes one inbound message end to end and returns
// the reply to send. Attachments are archived first, then reduced to
// text, then routed like any typed message.
func (h *Handler) HandleMessage(ctx context.Context, in Incoming) Reply {
	text := in.Text

	switch {
	case in.Voice != nil:
		h.archive(ctx, in.ChatID, in.Voice)
		transcript, err := h.chat.TranscribeAudio(ctx, in.Voice.Data, in.Voice.Filename)
		if err != nil {
			h.log.Error().Err(err).Int64("chat_id", in.ChatID).Msg("voice transcription failed")
			return Reply{Text: "I couldn't understand that voice note. Could you type it instead?"}
		}
		text = transcript
	case in.Photo != nil:
		h.archive(ctx, in.ChatID, in.Photo)
		extracted, err := h.describeImage(ctx, in.Photo, in.Text)
		if err != nil {
			h.log.Error().Err(err).Int64("chat_id", in.ChatID).Msg("image extraction failed")
			return Reply{Text: "I couldn't read that image. Could you describe the transaction in text?"}
		}
		text = extracted
	}

	if strings.TrimSpace(text) == "" {
		return Reply{Text: msgParseFailed}
	}
	return h.route(ctx, in.ChatID, text)
}

func (h *Handler) route(ctx context.Context, chatID int64, text string) Reply {
	decision := h.intents.AnalyzeIntent(ctx, text)
	h.log.Info().
		Int64("chat_id", chatID).
		Str("intent", string(decision.Intent)).
		Float64("confidence", decision.Confidence).
		Msg("message routed")

	switch decision.Intent {
	case orchestrator.IntentTrackExpense, orchestrator.IntentTrackIncome:
		return h.handleTrack(ctx, chatID, text)
	case orchestrator.IntentQueryBalance:
		return h.handleBalance(ctx)
	case orchestrator.IntentQueryTransactions:
		return h.handleRecent(ctx)
	case orchestrator.IntentQueryReport:
		return h.handleReport(ctx, text)
	case orchestrator.IntentArchiveTransaction:
		return h.handleArchive(ctx, text)
	default:
		return h.handleChat(ctx, text)
	}
}

// handleTrack parses and records a transaction. A below-threshold parse
// asks the user to rephrase; an expense with no resolvable source
// account parks the transaction and offers an account keyboard.
func (h *Handler) handleTrack(ctx context.Context, chatID int64, text string) Reply {
	tx, err := h.parser.Parse(ctx, text)
	if err != nil {
		h.log.Error().Err(err).Msg("transaction parse failed")
		return Reply{Text: msgParseFailed}
	}

	recorded, err := h.recorder.Record(ctx, tx)
	switch {
	case err == nil:
		return Reply{Text: confirmation(tx, recorded)}
	case errors.Is(err, ledger.ErrLowConfidence):
		return Reply{Text: msgLowConfidence}
	case errors.Is(err, ledger.ErrAccountChoiceNeeded):
		return h.offerAccountChoice(ctx, chatID, tx)
	default:
		var unknownAccount *ledger.UnknownAccountError
		var unknownCategory *ledger.UnknownCategoryError
		if errors.As(err, &unknownAccount) {
			return Reply{Text: fmt.Sprintf("I don't know an account called %q.", unknownAccount.Name)}
		}
		if errors.As(err, &unknownCategory) {
			return Reply{Text: fmt.Sprintf("I don't know a category called %q.", unknownCategory.Name)}
		}
		h.log.Error().Err(err).Msg("recording transaction failed")
		return Reply{Text: msgInternal}
	}
}

func (h *Handler) offerAccountChoice(ctx context.Context, chatID int64, tx *parser.ParsedTransaction) Reply {
	accounts, err := h.accounts.ListActive(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("listing accounts failed")
		return Reply{Text: msgInternal}
	}
	if len(accounts) == 0 {
		return Reply{Text: "You have no accounts yet, so I can't record this expense."}
	}

	choices := make([]pending.AccountChoice, 0, len(accounts))
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(accounts)+1)
	for _, a := range accounts {
		choices = append(choices, pending.AccountChoice{ID: a.AccountID, Name: a.Name})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(a.Name, callbackAccountPrefix+a.AccountID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackCancel),
	))
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	h.pending.Put(chatID, &pending.Transaction{
		Parsed:    *tx,
		Choices:   choices,
		CreatedAt: time.Now(),
	})

	return Reply{Text: msgPickAccount, Keyboard: &keyboard}
}

// HandleCallback resolves an inline-keyboard answer for the chat's
// pending transaction.
func (h *Handler) HandleCallback(ctx context.Context, chatID int64, data string) Reply {
	if data == callbackCancel {
		h.pending.Delete(chatID)
		return Reply{Text: msgCancelled}
	}
	if !strings.HasPrefix(data, callbackAccountPrefix) {
		return Reply{Text: msgNoPending}
	}

	parked, ok := h.pending.Get(chatID)
	if !ok {
		return Reply{Text: msgNoPending}
	}

	accountID := strings.TrimPrefix(data, callbackAccountPrefix)
	var accountName string
	for _, c := range parked.Choices {
		if c.ID == accountID {
			accountName = c.Name
			break
		}
	}
	if accountName == "" {
		return Reply{Text: msgNoPending}
	}

	tx := parked.Parsed
	tx.FromAccount = accountName
	recorded, err := h.recorder.Record(ctx, &tx)
	if err != nil {
		h.log.Error().Err(err).Msg("recording pending transaction failed")
		return Reply{Text: msgInternal}
	}

	h.pending.Delete(chatID)
	return Reply{Text: confirmation(&tx, recorded)}
}

func (h *Handler) handleBalance(ctx context.Context) Reply {
	balances, err := h.reports.AccountBalances(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("balance report failed")
		return Reply{Text: msgInternal}
	}
	if len(balances) == 0 {
		return Reply{Text: "You have no accounts yet."}
	}

	var b strings.Builder
	b.WriteString("Account balances:\n")
	for _, row := range balances {
		fmt.Fprintf(&b, "• %s: %.2f %s\n", row.AccountName, row.Balance, row.Currency)
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func (h *Handler) handleRecent(ctx context.Context) Reply {
	rows, err := h.transactions.ListRecent(ctx, 10)
	if err != nil {
		h.log.Error().Err(err).Msg("recent transactions report failed")
		return Reply{Text: msgInternal}
	}
	if len(rows) == 0 {
		return Reply{Text: "No transactions recorded yet."}
	}

	var b strings.Builder
	b.WriteString("Recent transactions:\n")
	for _, row := range rows {
		amount := 0.0
		if row.FromAmount != nil {
			amount, _ = row.FromAmount.Float64()
		}
		fmt.Fprintf(&b, "• %s  %s  %.2f %s (%s)\n",
			row.TransactionDate.String(), row.Description, amount, row.Currency, row.TransactionType)
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}
}

// handleReport runs the analytics pipeline: generate, validate with
// both safety stages, execute, format. A rejected query gets the fixed
// refusal; the question and query are logged for audit.
func (h *Handler) handleReport(ctx context.Context, question string) Reply {
	query, err := h.generator.Generate(ctx, question)
	if err != nil {
		h.log.Error().Err(err).Str("question", question).Msg("query generation failed")
		return Reply{Text: msgParseFailed}
	}

	safe, err := h.gate.Validate(ctx, question, query)
	if err != nil {
		h.log.Error().Err(err).Str("question", question).Msg("safety validation failed")
		return Reply{Text: msgUnsafeQuery}
	}
	if !safe {
		return Reply{Text: msgUnsafeQuery}
	}

	result, err := h.executor.Execute(ctx, query)
	if err != nil {
		h.log.Error().Err(err).Str("question", question).Msg("query execution failed")
		return Reply{Text: msgInternal}
	}
	return Reply{Text: analytics.Format(query, result)}
}

// handleArchive finds the newest transaction matching the message's
// subject and archives it.
func (h *Handler) handleArchive(ctx context.Context, text string) Reply {
	phrase, err := h.archiveSearchPhrase(ctx, text)
	if err != nil {
		h.log.Error().Err(err).Msg("archive phrase extraction failed")
		return Reply{Text: msgInternal}
	}

	row, err := h.transactions.FindLatestByDescription(ctx, phrase)
	if err != nil {
		h.log.Error().Err(err).Msg("archive lookup failed")
		return Reply{Text: msgInternal}
	}
	if row == nil {
		return Reply{Text: fmt.Sprintf("I couldn't find a transaction matching %q.", phrase)}
	}

	if err := h.transactions.Archive(ctx, row.TransactionID); err != nil {
		h.log.Error().Err(err).Str("transaction_id", row.TransactionID).Msg("archive failed")
		return Reply{Text: msgInternal}
	}

	amount := 0.0
	if row.FromAmount != nil {
		amount, _ = row.FromAmount.Float64()
	}
	return Reply{Text: fmt.Sprintf("Archived: %s, %.2f %s on %s.",
		row.Description, amount, row.Currency, row.TransactionDate.String())}
}

// archiveSearchPhrase reduces the message to the words identifying the
// transaction to archive.
func (h *Handler) archiveSearchPhrase(ctx context.Context, text string) (string, error) {
	temperature := float32(0)
	result, err := h.chat.Chat(ctx, []llm.Message{
		llm.TextMessage(llm.RoleSystem, "Extract the short phrase describing the transaction "+
			"the user wants to archive or delete. Reply with only that phrase."),
		llm.TextMessage(llm.RoleUser, text),
	}, llm.ChatOptions{
		Capability:      llm.CapabilityTextFast,
		Temperature:     &temperature,
		MaxOutputTokens: 50,
	})
	if err != nil {
		return "", err
	}
	phrase := strings.TrimSpace(result.Content)
	if phrase == "" {
		return "", fmt.Errorf("archiveSearchPhrase: empty phrase")
	}
	return phrase, nil
}

func (h *Handler) handleChat(ctx context.Context, text string) Reply {
	system := defaultChatPrompt
	if resolved, err := h.resolver.GetPromptWithConfig(ctx, ChatPromptName, nil, ""); err == nil {
		system = resolved.Prompt
	}

	result, err := h.chat.Chat(ctx, []llm.Message{
		llm.TextMessage(llm.RoleSystem, system),
		llm.TextMessage(llm.RoleUser, text),
	}, llm.ChatOptions{Capability: llm.CapabilityText})
	if err != nil {
		h.log.Error().Err(err).Msg("chat reply failed")
		return Reply{Text: msgInternal}
	}
	return Reply{Text: result.Content}
}

// describeImage turns a photo (receipt, screenshot) into transaction
// text for the regular pipeline. The caption, when present, is passed
// along as context.
func (h *Handler) describeImage(ctx context.Context, photo *Attachment, caption string) (string, error) {
	instruction := "Describe the financial transaction shown in this image as one plain sentence " +
		"with the amount, currency, merchant and date if visible."
	if caption != "" {
		instruction += " The sender added: " + caption
	}

	result, err := h.chat.Chat(ctx, []llm.Message{
		{
			Role: llm.RoleUser,
			Parts: []llm.Part{
				{Text: instruction},
				{Data: photo.Data, MIMEType: photo.MIMEType},
			},
		},
	}, llm.ChatOptions{Capability: llm.CapabilityVision})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

func (h *Handler) archive(ctx context.Context, chatID int64, att *Attachment) {
	if h.archiver == nil {
		return
	}
	uri, err := h.archiver.Archive(ctx, chatID, att.Filename, att.Data)
	if err != nil {
		// Archiving is best effort; processing continues.
		h.log.Warn().Err(err).Msg("attachment archiving failed")
		return
	}
	if uri != "" {
		h.log.Debug().Str("uri", uri).Msg("attachment stored")
	}
}

func confirmation(tx *parser.ParsedTransaction, recorded *ledger.Recorded) string {
	if recorded.Type == parser.TypeCreditCardPurchase && recorded.Installments > 1 {
		per := decimal.NewFromFloat(tx.Amount).
			DivRound(decimal.NewFromInt(int64(recorded.Installments)), 2)
		return fmt.Sprintf("Recorded credit card purchase: %s, %d installments of %s %s (total %.2f).",
			tx.Description, recorded.Installments, per.StringFixed(2), tx.Currency, tx.Amount)
	}

	label := map[parser.TransactionType]string{
		parser.TypeIncome:             "income",
		parser.TypeExpense:            "expense",
		parser.TypeTransfer:           "transfer",
		parser.TypeCreditCardPayment:  "credit card payment",
		parser.TypeCreditCardPurchase: "credit card purchase",
	}[recorded.Type]
	return fmt.Sprintf("Recorded %s: %s, %.2f %s on %s.",
		label, tx.Description, tx.Amount, tx.Currency, tx.Date)
}
