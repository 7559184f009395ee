package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/pkg/helpers"
)

const CtxUserIDKey = "userID"

// SessionValidator resolves a session cookie to a user id.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (int64, error)
}

// NoStore disables caching of the response.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}

// RequireSession validates the session cookie against Redis and sets userID
// (int64) in the Gin context. Requests without a valid session are redirected to /login.
func RequireSession(sv SessionValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")

		token, _ := c.Cookie(helpers.SessionCookie)
		uid, err := sv.ValidateSession(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, application.ErrSessionInvalid) && logger != nil {
				logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("session lookup failed")
			}
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

// UserID returns the id set by RequireSession, or 0.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(CtxUserIDKey)
}
