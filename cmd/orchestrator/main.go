package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/socialgrab/downorc/internal/api/handlers"
	"github.com/socialgrab/downorc/internal/api/router"
	"github.com/socialgrab/downorc/internal/config"
	"github.com/socialgrab/downorc/internal/database"
	"github.com/socialgrab/downorc/internal/kv"
	"github.com/socialgrab/downorc/internal/orchestrator"
	"github.com/socialgrab/downorc/internal/services/cache"
	"github.com/socialgrab/downorc/internal/services/delivery"
	"github.com/socialgrab/downorc/internal/services/executor"
	"github.com/socialgrab/downorc/internal/services/gate"
	"github.com/socialgrab/downorc/internal/services/intake"
	"github.com/socialgrab/downorc/internal/services/metrics"
	"github.com/socialgrab/downorc/internal/services/postproc"
	"github.com/socialgrab/downorc/internal/services/progress"
	"github.com/socialgrab/downorc/internal/services/providers"
	"github.com/socialgrab/downorc/internal/services/routing"
	"github.com/socialgrab/downorc/internal/services/slots"
	"github.com/socialgrab/downorc/internal/services/storage"
	"github.com/socialgrab/downorc/internal/services/transport"
	"github.com/socialgrab/downorc/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.GetLogger().Fatalf("failed to load configuration: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("starting download orchestrator")

	db, err := database.NewPostgresDB(&cfg.Postgres)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}

	kvStore := kv.New(&cfg.Redis)

	s3Storage, err := storage.NewStorage(&cfg.S3)
	if err != nil {
		logger.Fatalf("failed to initialize storage: %v", err)
	}

	telegramTransport, err := transport.NewTelegramTransport(&cfg.Telegram)
	if err != nil {
		logger.Fatalf("failed to initialize telegram transport: %v", err)
	}

	registry := providers.NewRegistry()
	rapidAPIProvider := providers.NewRapidAPIProvider(cfg.Provider.RapidAPIKey, cfg.Provider.RapidAPIHost, cfg.Provider.ScratchDir)
	ytdlpProvider := providers.NewYtdlpProvider(cfg.Provider.YtdlpBinaryPath, cfg.Provider.ScratchDir)
	pinterestAware := providers.NewPinterestAwareProvider(ytdlpProvider, rapidAPIProvider)

	registry.Register(pinterestAware)
	registry.Register(rapidAPIProvider)
	registry.Register(providers.NewPytubefixProvider(cfg.Provider.ScratchDir))
	registry.Register(providers.NewSaveNowProvider(cfg.Provider.SaveNowBaseURL, cfg.Provider.ScratchDir))

	slotCtl := slots.New(kvStore, cfg.Slot)
	routingEngine := routing.New(kvStore)
	artifactCache := cache.New(kvStore)
	progressUpdater := progress.New(telegramTransport)
	exec := executor.New(registry, progressUpdater)
	postProc := postproc.New(cfg.Provider.FFmpegPath, cfg.Provider.FFprobePath, cfg.Provider.ScratchDir, slotCtl)

	var subscriptionChecker gate.SubscriptionChecker
	if cfg.Gate.CheckerURL != "" {
		subscriptionChecker = gate.NewHTTPSubscriptionChecker(cfg.Gate.CheckerURL)
	} else {
		subscriptionChecker = alwaysAllowChecker{}
	}
	gateSvc := gate.New(db, subscriptionChecker, cfg.Gate)

	deliverer := delivery.New(telegramTransport, db, artifactCache, cfg.Provider, cfg.Telegram.BotToken)
	resolver := intake.NewResolver(cfg.Provider.ConnectTimeout)

	core := orchestrator.New(cfg, telegramTransport, db, kvStore, registry, slotCtl, routingEngine,
		artifactCache, progressUpdater, exec, postProc, gateSvc, deliverer, resolver, cfg.Telegram.BotToken)

	metricsCtx, cancelMetrics := context.WithCancel(context.Background())
	sampler := metrics.New(kvStore, cfg.Provider.ScratchDir)
	go sampler.Run(metricsCtx)

	healthHandler := handlers.NewHealthHandler(db, kvStore, s3Storage)
	webhookHandler := handlers.NewWebhookHandler(core)
	r := router.NewRouter(cfg, healthHandler, webhookHandler)

	go func() {
		logger.Infof("listening on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := r.Start(); err != nil {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancelMetrics()
	db.Close()
	if err := kvStore.Close(); err != nil {
		logger.Errorf("failed to close redis client: %v", err)
	}
	logger.Info("shutdown complete")
}

// alwaysAllowChecker is the fail-open default when no external
// subscription-proof endpoint is configured (local/dev environments).
type alwaysAllowChecker struct{}

func (alwaysAllowChecker) Check(ctx context.Context, userRef, languageTag string) (bool, error) {
	return true, nil
}
