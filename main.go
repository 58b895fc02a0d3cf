package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"watchcaller/config"
	"watchcaller/internal/adapters/binanceclient"
	"watchcaller/internal/adapters/gemini"
	"watchcaller/internal/adapters/logger"
	"watchcaller/internal/adapters/sqlite"
	"watchcaller/internal/adapters/telegram"
	"watchcaller/internal/app"
	"watchcaller/internal/ingest"
	"watchcaller/internal/position"
	"watchcaller/internal/risk"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewStdLogger(logger.LevelError).Error(ctx, err, "failed to load configuration")
		os.Exit(1)
	}
	log := logger.NewStdLogger(cfg.LogLevel)

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: log})
	if err != nil {
		log.Error(ctx, err, "failed to initialize trade repository")
		os.Exit(1)
	}
	defer repo.Close()

	exchange, err := binanceclient.New(binanceclient.Config{
		APIKey:            cfg.APIKey,
		SecretKey:         cfg.SecretKey,
		UseTestnet:        cfg.IsTestnet,
		Logger:            log,
		QuoteCurrency:     cfg.QuoteCurrency,
		QuantityPrecision: cfg.QuantityPrecision,
		PricePrecision:    cfg.PricePrecision,
	})
	if err != nil {
		log.Error(ctx, err, "failed to initialize exchange client")
		os.Exit(1)
	}

	bot, err := telegram.New(telegram.Config{
		Token:         cfg.TelegramToken,
		NotifyChatID:  cfg.TelegramNotifyChatID,
		SourceChatIDs: cfg.TelegramSourceChatIDs,
		Logger:        log,
	})
	if err != nil {
		log.Error(ctx, err, "failed to initialize Telegram bot")
		os.Exit(1)
	}

	parser, err := gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
		Logger:  log,
	})
	if err != nil {
		log.Error(ctx, err, "failed to initialize signal parser")
		os.Exit(1)
	}

	riskMgr := risk.NewManager(risk.Config{
		DefaultLeverage:     cfg.DefaultLeverage,
		HighLeverage:        cfg.HighLeverage,
		HighLeverageCoins:   cfg.HighLeverageCoins,
		DefaultPositionSize: cfg.DefaultPositionSize,
		MaxPositionSize:     cfg.MaxPositionSize,
		MinConfidence:       cfg.MinConfidence,
	})

	posMgr, err := position.NewManager(position.Config{
		MaxPositions:    cfg.MaxPositions,
		QuoteCurrency:   cfg.QuoteCurrency,
		MinQuoteBalance: cfg.MinAvailableBalance,
		AutoBreakeven:   cfg.AutoBreakeven,
		Retention:       cfg.PositionRetention,
	}, log, exchange, bot, repo, riskMgr)
	if err != nil {
		log.Error(ctx, err, "failed to initialize position manager")
		os.Exit(1)
	}
	bot.EnableCommands(posMgr, repo)

	handler, err := ingest.NewHandler(ingest.Config{
		MaxTPLevels:     cfg.MaxTPLevels,
		MinTPPercentage: cfg.MinTPPercentage,
		MultiTPEnabled:  cfg.MultiTPEnabled,
	}, log, parser, bot, riskMgr, posMgr)
	if err != nil {
		log.Error(ctx, err, "failed to initialize ingest handler")
		os.Exit(1)
	}

	svc, err := app.New(app.Config{
		ReconcileInterval: cfg.ReconcileInterval,
		TPCheckInterval:   cfg.TPCheckInterval,
		CleanupInterval:   cfg.CleanupInterval,
	}, log, exchange, posMgr, handler, bot)
	if err != nil {
		log.Error(ctx, err, "failed to initialize service")
		os.Exit(1)
	}

	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, err, "service exited with error")
		os.Exit(1)
	}
	log.Info(ctx, "service stopped")
}
