package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/procurehq/procure-server/internal/ai"
	"github.com/procurehq/procure-server/internal/auth"
	"github.com/procurehq/procure-server/internal/config"
	"github.com/procurehq/procure-server/internal/documents"
	"github.com/procurehq/procure-server/internal/email"
	"github.com/procurehq/procure-server/internal/lark"
	"github.com/procurehq/procure-server/internal/notify"
	"github.com/procurehq/procure-server/internal/procurement"
	"github.com/procurehq/procure-server/internal/registry"
	"github.com/procurehq/procure-server/internal/report"
	"github.com/procurehq/procure-server/internal/repository"
	"github.com/procurehq/procure-server/internal/seed"
	"github.com/procurehq/procure-server/internal/server"
	"github.com/procurehq/procure-server/internal/storage"
	"github.com/procurehq/procure-server/internal/store"
	"github.com/procurehq/procure-server/internal/worker"
	"github.com/procurehq/procure-server/internal/workflow"
	"github.com/procurehq/procure-server/pkg/database"
	"github.com/procurehq/procure-server/pkg/utils"
)

func main() {
	// .env values reach the config layer through viper's env bindings
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting procurement server",
		zap.String("version", server.Version),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)
	documentRepo := repository.NewDocumentRepository(db, logger)
	recordStore := store.NewSQLite(db, logger)
	reg := registry.New()

	if cfg.Seed.Enabled {
		if err := seed.Users(context.Background(), db, userRepo, logger); err != nil {
			logger.Fatal("Failed to seed default users", zap.Error(err))
		}
	}

	// Token state lives in redis when configured so logins survive
	// restarts; the in-process store covers single-node deployments.
	var tokenStore auth.TokenStore = auth.NewMemoryTokenStore()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		tokenStore = auth.NewRedisTokenStore(rdb)
		logger.Info("Using redis token store", zap.String("addr", cfg.Redis.Addr))
	}

	var objects storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "minio":
		objects, err = storage.NewMinioStorage(cfg.Storage.Minio, logger)
	default:
		objects, err = storage.NewLocalStorage(cfg.Storage.LocalDir, logger)
	}
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	var messageAPI *lark.MessageAPI
	var resetMail server.ResetMailer
	if cfg.Lark.Enabled {
		larkClient := lark.NewClient(lark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, logger)
		messageAPI = lark.NewMessageAPI(larkClient, logger)
		resetMail = email.NewSender(messageAPI, logger)
	}

	var scorer procurement.VendorScorer
	var classifier documents.Classifier
	if cfg.OpenAI.APIKey != "" {
		scorer = ai.NewRiskScorer(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, logger)
		classifier = ai.NewDocumentClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, logger)
	} else {
		logger.Warn("OpenAI API key not set; vendor risk scoring and document classification are disabled")
	}

	emitter := notify.NewEmitter(notificationRepo, logger)

	srv := server.NewServer(cfg.Server, cfg.JWT.Secret, server.Services{
		Auth:          auth.NewService(userRepo, tokenStore, cfg.JWT, logger),
		Procurement:   procurement.NewService(recordStore, reg, scorer, logger),
		Workflow:      workflow.NewEngine(recordStore, reg, userRepo, emitter, logger),
		WorkflowQuery: workflow.NewQuery(recordStore, reg, logger),
		Documents: documents.NewService(documentRepo, objects, recordStore, reg,
			documents.NewTextExtractor(logger), classifier, logger),
		Reports:       report.NewService(recordStore, reg, logger),
		Exporter:      report.NewExcelExporter(recordStore, reg, logger),
		Users:         userRepo,
		Notifications: notificationRepo,
		ResetMail:     resetMail,
		Registry:      reg,
	}, logger)

	manager := worker.NewManager(logger)
	if cfg.Lark.Enabled {
		manager.Register(worker.NewNotificationDispatcher(
			notificationRepo, userRepo, notify.NewLarkMessenger(messageAPI, logger),
			cfg.Worker.NotificationInterval, cfg.Worker.NotificationBatch, logger))
	} else {
		logger.Info("Lark messenger disabled; notifications stay in-app only")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		<-serverErr
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
		cancel()
	}

	manager.StopAll()
	logger.Info("Server exited")
}
