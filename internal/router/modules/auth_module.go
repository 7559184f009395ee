package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-library-management/internal/interface/http"
	"github.com/oksasatya/go-library-management/internal/interface/middleware"
)

// AuthModule wires signup, login, logout and the welcome page.
// Public: GET /, GET|POST /signup, GET|POST /login, GET /logout
// Protected: GET /welcome
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions middleware.SessionValidator
	Redis    *redis.Client
	Logger   *logrus.Logger
	// LoginLimit is the max POSTs per IP per minute on /login and /signup.
	LoginLimit int
}

func NewAuthModule(h *handlers.AuthHandler, sessions middleware.SessionValidator, rdb *redis.Client, logger *logrus.Logger, loginLimit int) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions, Redis: rdb, Logger: logger, LoginLimit: loginLimit}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	formLimiter := middleware.RateLimitWith(m.Redis, m.LoginLimit, time.Minute, middleware.KeyByIPAndPath(), nil, m.Handler.TooManyAttempts)

	rg.GET("/", m.Handler.Index)
	rg.GET("/signup", m.Handler.SignupForm)
	rg.POST("/signup", formLimiter, m.Handler.Signup)
	rg.GET("/login", m.Handler.LoginForm)
	rg.POST("/login", formLimiter, m.Handler.Login)
	rg.GET("/logout", middleware.NoStore(), m.Handler.Logout)

	rg.GET("/welcome", middleware.RequireSession(m.Sessions, m.Logger), m.Handler.Welcome)
}
