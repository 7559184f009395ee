package router

import (
	"context"

	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/internal/container"
	pginfra "github.com/oksasatya/go-library-management/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-library-management/internal/interface/http"
	"github.com/oksasatya/go-library-management/internal/router/modules"
)

type AppDeps struct {
	Auth    *application.AuthService
	Library *application.LibraryService

	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	HealthHandler *handlers.HealthHandler
}

func buildDeps() AppDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	books := pginfra.NewBookRepository(pool)
	loans := pginfra.NewLoanRepository(pool)

	auth := application.NewAuthService(
		users,
		container.GetUploader(),
		container.GetRedis(),
		container.GetSessionTokens(),
		container.GetNotifier(),
		logger,
	)
	library := application.NewLibraryService(
		books,
		loans,
		users,
		container.GetBookSearcher(),
		container.GetNotifier(),
		logger,
	)

	health := handlers.NewHealthHandler(map[string]handlers.Check{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis":    func(ctx context.Context) error { return container.GetRedis().Ping(ctx).Err() },
	})

	return AppDeps{
		Auth:          auth,
		Library:       library,
		AuthHandler:   handlers.NewAuthHandler(auth, logger, cfg.CookieDomain, cfg.CookieSecure),
		UserHandler:   handlers.NewUserHandler(library, logger, cfg.CookieDomain, cfg.CookieSecure),
		HealthHandler: health,
	}
}

// InitModules builds the services from the container and registers every module.
// Call once during startup, after the container is populated.
func InitModules(r *Registry) {
	deps := buildDeps()
	cfg := container.GetConfig()
	rdb := container.GetRedis()
	logger := container.GetLogger()

	r.Add(modules.NewAuthModule(deps.AuthHandler, deps.Auth, rdb, logger, cfg.LoginRateLimit))
	r.Add(modules.NewUserModule(deps.UserHandler, deps.Auth, rdb, logger, cfg.ActionRateLimit))
	r.Add(modules.NewHealthModule(deps.HealthHandler))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
