package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ideaforge-app/ideaforge-api/internal/application"
	"github.com/ideaforge-app/ideaforge-api/internal/application/analyze"
	"github.com/ideaforge-app/ideaforge-api/internal/config"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/ai"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
	"github.com/ideaforge-app/ideaforge-api/internal/infra/ai/gemini"
	aopenai "github.com/ideaforge-app/ideaforge-api/internal/infra/ai/openai"
	mongodb "github.com/ideaforge-app/ideaforge-api/internal/infra/db/mongo"
	mysqldb "github.com/ideaforge-app/ideaforge-api/internal/infra/db/mysql"
	"github.com/ideaforge-app/ideaforge-api/internal/infra/httpserver"
	minioStore "github.com/ideaforge-app/ideaforge-api/internal/infra/storage"
	"github.com/ideaforge-app/ideaforge-api/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("config load error", zap.Error(err))
	}

	ctx := context.Background()
	clock := application.SystemClock{}

	// connect the store backend
	var (
		keyRepo      keys.Repository
		analysisRepo analysis.Repository
		checkers     = map[string]middleware.HealthChecker{}
	)
	switch cfg.Database.Driver {
	case "mongo":
		db, err := mongodb.Connect(ctx, cfg.Database.Mongo.URI, cfg.Database.Mongo.Name)
		if err != nil {
			log.Fatal("mongo connect error", zap.Error(err))
		}
		defer db.Client().Disconnect(ctx)
		keyRepo = mongodb.NewKeyRepository(db)
		analysisRepo = mongodb.NewAnalysisRepository(db, clock)
		checkers["mongo"] = &middleware.MongoHealthChecker{Client: db.Client()}
	case "mysql":
		db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatal("mysql connect error", zap.Error(err))
		}
		defer db.Close()
		keyRepo = mysqldb.NewKeyRepository(db)
		analysisRepo = mysqldb.NewAnalysisRepository(db, clock)
		checkers["mysql"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		log.Fatal("unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	// init the generation client
	var generator ai.Generator
	switch cfg.AI.Provider {
	case "gemini":
		generator, err = gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Fatal("gemini init error", zap.Error(err))
		}
	case "openai":
		generator = aopenai.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	default:
		log.Fatal("unknown ai provider", zap.String("provider", cfg.AI.Provider))
	}

	// init the raw-completion archive
	var archive analyze.CompletionArchive
	if cfg.Archive.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			log.Fatal("archive init error", zap.Error(err))
		}
		archive = store
	}

	svc := &analyze.Service{
		Keys:            keyRepo,
		Analyses:        analysisRepo,
		Generator:       generator,
		Archive:         archive,
		GenerateTimeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Log:             log,
	}

	handler := httpserver.NewRouter(svc, httpserver.Config{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Debug:          cfg.Debug,
		Checkers:       checkers,
		RateCapacity:   cfg.RateLimit.Capacity,
		RateRefill:     cfg.RateLimit.RefillPerSecond,
		Log:            log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // the generation call alone takes tens of seconds
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
}
