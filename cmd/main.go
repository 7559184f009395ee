package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/config"
	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/internal/container"
	pginfra "github.com/oksasatya/go-library-management/internal/infrastructure/postgres"
	"github.com/oksasatya/go-library-management/internal/interface/middleware"
	"github.com/oksasatya/go-library-management/internal/router"
	"github.com/oksasatya/go-library-management/pkg/helpers"
	"github.com/oksasatya/go-library-management/pkg/storage"
	"github.com/oksasatya/go-library-management/pkg/validation"
	"github.com/oksasatya/go-library-management/web"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Postgres
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	uploader, closeStorage, err := newUploader(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}
	defer closeStorage()

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetUploader(uploader)
	container.SetSessionTokens(helpers.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL))

	// Email jobs (optional)
	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; email notifications disabled")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}

	// Catalog search (optional)
	if cfg.SearchEnabled {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch client init failed; falling back to sql search")
		} else if err := helpers.PingES(ctx, es); err != nil {
			logger.WithError(err).Warn("elasticsearch unreachable; falling back to sql search")
		} else {
			idx := application.NewCatalogIndex(es, cfg.ESBooksIndex, logger)
			if err := idx.EnsureIndex(ctx); err != nil {
				logger.WithError(err).Warn("ensure books index failed")
			}
			container.SetCatalogIndex(idx)
		}
	}

	r := gin.New()
	r.HTMLRender = web.MustRenderer()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxy))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	} else if cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// newUploader builds the configured object storage driver.
func newUploader(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.Uploader, func(), error) {
	switch cfg.StorageDriver {
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return nil, func() {}, err
		}
		logger.WithField("bucket", cfg.GCSBucket).Info("gcs storage ready")
		return storage.NewGCSUploader(client, cfg.GCSBucket), func() { _ = client.Close() }, nil
	default:
		client, err := storage.NewS3Client(ctx, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			return nil, func() {}, err
		}
		logger.WithFields(logrus.Fields{"bucket": cfg.S3Bucket, "region": cfg.S3Region}).Info("s3 storage ready")
		return storage.NewS3Uploader(client, cfg.S3Bucket, cfg.S3Region), func() {}, nil
	}
}
