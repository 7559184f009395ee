package helpers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "session"
	FlashCookie   = "flash"
)

type Manager struct {
	Domain string
	Secure bool
}

func NewCookie(domain string, secure bool) *Manager {
	return &Manager{Domain: domain, Secure: secure}
}

func (m *Manager) SetSession(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAgeFrom(exp), "/", m.Domain, m.Secure, true)
}

func (m *Manager) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", m.Domain, m.Secure, true)
}

// SetFlash stores a one-line message shown on the next rendered page.
func (m *Manager) SetFlash(c *gin.Context, msg string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, base64.RawURLEncoding.EncodeToString([]byte(msg)), 60, "/", m.Domain, m.Secure, true)
}

// PopFlash returns the pending flash message, if any, and clears it.
func (m *Manager) PopFlash(c *gin.Context) string {
	v, err := c.Cookie(FlashCookie)
	if err != nil || v == "" {
		return ""
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, "", -1, "/", m.Domain, m.Secure, true)
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
