package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ucielsola/expense-tracker/internal/analytics"
	"github.com/ucielsola/expense-tracker/internal/bot"
	"github.com/ucielsola/expense-tracker/internal/config"
	"github.com/ucielsola/expense-tracker/internal/extract"
	infra "github.com/ucielsola/expense-tracker/internal/infra/bigquery"
	"github.com/ucielsola/expense-tracker/internal/ledger"
	"github.com/ucielsola/expense-tracker/internal/llm"
	"github.com/ucielsola/expense-tracker/internal/logger"
	"github.com/ucielsola/expense-tracker/internal/media"
	"github.com/ucielsola/expense-tracker/internal/orchestrator"
	"github.com/ucielsola/expense-tracker/internal/parser"
	"github.com/ucielsola/expense-tracker/internal/pending"
	"github.com/ucielsola/expense-tracker/internal/prompts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New("info")
		l.Fatal().Err(err).Msg("configuration error")
	}

	log := logger.New(cfg.LogLevel)
	log.Info().Msg("starting expense tracker bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Model gateway. Nothing works without credentials, so this is fatal.
	gateway, err := llm.NewClient(ctx, cfg.GeminiAPIKey, cfg.Models, logger.Component(log, "llm"))
	if err != nil {
		log.Fatal().Err(err).Msg("model gateway init failed")
	}

	// Prompt store and resolver. A missing Notion config leaves the store
	// disabled; resolution then fails closed per prompt.
	store := prompts.NewNotionStore(cfg.NotionToken, cfg.NotionPromptsDBID)
	if !store.Enabled() {
		log.Warn().Msg("notion prompt store disabled, prompt resolution will fail closed")
	}
	resolver := prompts.NewResolver(store, cfg.PromptCacheTTL, logger.Component(log, "prompts"))

	// Persistence.
	bqClient, err := infra.NewClient(ctx, cfg.BQProjectID, cfg.BQDatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("bigquery init failed")
	}
	defer bqClient.Close()

	accounts := infra.NewAccountRepository(bqClient)
	categories := infra.NewCategoryRepository(bqClient)
	transactions := infra.NewTransactionRepository(bqClient)
	purchases := infra.NewPurchaseRepository(bqClient)
	reports := infra.NewAnalyticsRepository(bqClient)

	// Media archiving is optional.
	archiver, err := media.NewArchiver(ctx, cfg.MediaBucket, logger.Component(log, "media"))
	if err != nil {
		log.Fatal().Err(err).Msg("media archiver init failed")
	}
	defer archiver.Close()

	// Pipeline stages.
	extractor := extract.NewExtractor(gateway, logger.Component(log, "extract"))
	intents := orchestrator.New(resolver, extractor, logger.Component(log, "orchestrator"))
	txParser := parser.New(resolver, extractor, logger.Component(log, "parser"))
	recorder := ledger.NewService(accounts, categories, transactions, purchases, logger.Component(log, "ledger"))
	generator := analytics.NewGenerator(resolver, extractor, logger.Component(log, "analytics"))
	gate := analytics.NewSafetyGate(resolver, gateway, logger.Component(log, "safety"))
	executor := analytics.NewExecutor(reports, logger.Component(log, "analytics"))

	handler := bot.NewHandler(bot.HandlerDeps{
		Intents:      intents,
		Parser:       txParser,
		Recorder:     recorder,
		Accounts:     accounts,
		Generator:    generator,
		Gate:         gate,
		Executor:     executor,
		Reports:      reports,
		Transactions: transactions,
		Chat:         gateway,
		Resolver:     resolver,
		Archiver:     archiver,
		Pending:      pending.NewStore(),
	}, logger.Component(log, "bot"))

	tg, err := bot.New(cfg.TelegramToken, handler, logger.Component(log, "telegram"))
	if err != nil {
		log.Fatal().Err(err).Msg("telegram init failed")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		cancel()
	}()

	if err := tg.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("bot stopped")
	}
	log.Info().Msg("bot exited")
}
