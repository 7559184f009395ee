package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-library-management/internal/interface/http"
	"github.com/oksasatya/go-library-management/internal/interface/middleware"
)

// UserModule wires the catalog and loan page. All routes require a session.
type UserModule struct {
	Handler  *handlers.UserHandler
	Sessions middleware.SessionValidator
	Redis    *redis.Client
	Logger   *logrus.Logger
	// ActionLimit is the max borrow/return POSTs per user per minute; 0 disables it.
	ActionLimit int
}

func NewUserModule(h *handlers.UserHandler, sessions middleware.SessionValidator, rdb *redis.Client, logger *logrus.Logger, actionLimit int) *UserModule {
	return &UserModule{Handler: h, Sessions: sessions, Redis: rdb, Logger: logger, ActionLimit: actionLimit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	actionLimiter := middleware.RateLimitWith(m.Redis, m.ActionLimit, time.Minute, middleware.KeyByUserID(), nil, m.Handler.TooManyActions)

	auth := rg.Group("/user")
	auth.Use(middleware.RequireSession(m.Sessions, m.Logger))
	{
		auth.GET("", m.Handler.Page)
		auth.POST("", actionLimiter, m.Handler.Action)
	}
}
