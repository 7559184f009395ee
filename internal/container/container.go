package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/config"
	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/pkg/helpers"
	"github.com/oksasatya/go-library-management/pkg/storage"
)

// app-level container to share constructed components across packages.
// The router wires modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	uploader    storage.Uploader

	sessionTokens *helpers.SessionTokens

	rabbitPub    *helpers.RabbitPublisher
	catalogIndex *application.CatalogIndex
)

func SetConfig(c *config.Config)                { cfg = c }
func GetConfig() *config.Config                 { return cfg }
func SetLogger(l *logrus.Logger)                { logger = l }
func GetLogger() *logrus.Logger                 { return logger }
func SetPGPool(p *pgxpool.Pool)                 { pgPool = p }
func GetPGPool() *pgxpool.Pool                  { return pgPool }
func SetRedis(r *redis.Client)                  { redisClient = r }
func GetRedis() *redis.Client                   { return redisClient }
func SetUploader(u storage.Uploader)            { uploader = u }
func GetUploader() storage.Uploader             { return uploader }
func SetSessionTokens(t *helpers.SessionTokens) { sessionTokens = t }
func GetSessionTokens() *helpers.SessionTokens {
	if sessionTokens != nil {
		return sessionTokens
	}
	return helpers.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL)
}

func SetRabbitPub(p *helpers.RabbitPublisher)       { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher        { return rabbitPub }
func SetCatalogIndex(ci *application.CatalogIndex) { catalogIndex = ci }
func GetCatalogIndex() *application.CatalogIndex   { return catalogIndex }

// GetNotifier returns nil (not a typed nil) when publishing is disabled.
func GetNotifier() application.Notifier {
	if rabbitPub == nil {
		return nil
	}
	return rabbitPub
}

// GetBookSearcher returns nil when catalog search is disabled.
func GetBookSearcher() application.BookSearcher {
	if catalogIndex == nil {
		return nil
	}
	return catalogIndex
}
