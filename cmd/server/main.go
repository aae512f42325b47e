package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/HardCodeMatter/file-fortress-api/internal/config"
	"github.com/HardCodeMatter/file-fortress-api/internal/db"
	"github.com/HardCodeMatter/file-fortress-api/internal/es"
	"github.com/HardCodeMatter/file-fortress-api/internal/handlers"
	"github.com/HardCodeMatter/file-fortress-api/internal/hash"
	"github.com/HardCodeMatter/file-fortress-api/internal/logging"
	loggingmw "github.com/HardCodeMatter/file-fortress-api/internal/middleware/logging"
	"github.com/HardCodeMatter/file-fortress-api/internal/mykafka"
	"github.com/HardCodeMatter/file-fortress-api/internal/repo"
	"github.com/HardCodeMatter/file-fortress-api/internal/service"
	"github.com/HardCodeMatter/file-fortress-api/internal/service/search"
	"github.com/HardCodeMatter/file-fortress-api/internal/storage"
	"github.com/HardCodeMatter/file-fortress-api/internal/tokens"
	httpserver "github.com/HardCodeMatter/file-fortress-api/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.AppName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	gdb, err := db.Open(ctx, cfg.DB)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx, cfg.DB, gdb); err != nil {
			cancel()
			log.Fatalf("db migrate: %v", err)
		}
	}

	store, err := newObjectStore(ctx, cfg.S3)
	if err != nil {
		cancel()
		log.Fatalf("object storage: %v", err)
	}

	var index service.FileIndexer
	if cfg.ES.URL != "" {
		client, err := es.NewClient(ctx, cfg.ES)
		if err != nil {
			logger.Warn("elasticsearch unavailable, searching the database", "error", err)
		} else {
			fi := search.NewFileIndex(client, cfg.ES.FileIndex)
			if err := fi.EnsureIndex(ctx); err != nil {
				logger.Warn("elasticsearch index setup failed", "index", cfg.ES.FileIndex, "error", err)
			}
			index = fi
		}
	}
	cancel()

	var events mykafka.Publisher = mykafka.NopPublisher{}
	var producer *mykafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		events = producer
	}

	tokenSvc, err := tokens.NewService(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	keys, err := service.NewKeyGenerator(cfg.Upload.KeyLength)
	if err != nil {
		log.Fatalf("storage keys: %v", err)
	}

	rp := repo.New(gdb)
	hasher := hash.NewBcrypt(0)
	authSvc := service.NewAuthService(rp, hasher, tokenSvc, events, cfg.Kafka.UserTopic)
	fileSvc := service.NewFileService(rp, store, hasher, keys, index, events, service.FileServiceOptions{
		MaxBytes:    cfg.Upload.MaxBytes,
		KeyAttempts: cfg.Upload.KeyAttempts,
		Topic:       cfg.Kafka.FileTopic,
	})

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowCredentials: !containsWildcard(cfg.CORSAllowOrigins),
	}))

	httpserver.Register(e, &httpserver.Deps{
		DB:           gdb,
		AuthHandler:  &handlers.AuthHandler{Svc: authSvc, SecureCookies: cfg.Cookie.Secure},
		UserHandler:  &handlers.UserHandler{Svc: authSvc},
		FileHandler:  &handlers.FileHandler{Svc: fileSvc},
		Tokens:       tokenSvc,
		Users:        authSvc,
		MaxBodyBytes: cfg.Upload.MaxBytes,
	})

	runCtx, stopRun := context.WithCancel(logging.IntoContext(context.Background(), logger))
	go fileSvc.RunSweeper(runCtx, cfg.Upload.SweepInterval, cfg.Upload.PendingTTL)
	if index != nil {
		go func() {
			if _, err := fileSvc.Reindex(runCtx); err != nil {
				logger.Warn("reindex_failed", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.AppEnv, "token_alg", tokenSvc.Algorithm())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	stopRun()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	closeAll(logger, gdb, producer)
	logger.Info("server stopped")
}

func newObjectStore(ctx context.Context, cfg config.S3Config) (storage.ObjectStore, error) {
	if cfg.Driver == "memory" {
		slog.Warn("using in-memory object storage, files are lost on restart")
		return storage.NewMemoryStore(), nil
	}
	s3store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s3store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3store, nil
}

func closeAll(logger *slog.Logger, gdb *gorm.DB, producer *mykafka.Producer) {
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close", "error", err)
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
