package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRealIP(t *testing.T) {
	for _, tc := range []struct {
		name  string
		trust bool
		want  string
	}{
		{"trusted proxy", true, "203.0.113.7"},
		{"untrusted", false, "192.0.2.1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RealIP(tc.trust))
			r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			assert.Equal(t, tc.want, serve(r, req).Body.String())
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1c2b7e-4d3a-4a8e-9c1f-2b3d4e5f6a7b")
	assert.Equal(t, "6f1c2b7e-4d3a-4a8e-9c1f-2b3d4e5f6a7b", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	assert.NotEqual(t, "<script>", serve(r, req).Body.String())
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.POST("/login", RateLimit(rdb, 2, time.Minute, KeyByIPAndPath(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	post := func() *httptest.ResponseRecorder {
		return serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	}
	w := post()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, post().Code)

	w = post()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusNoContent, post().Code)
}

func TestRateLimit_AllowBypass(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.GET("/debug/vars", RateLimit(rdb, 1, time.Minute, KeyByIP(), AllowPrivateIP()), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/debug/vars", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	}
	assert.False(t, mr.Exists("rl:ip:10.1.2.3"))
}

func TestRateLimitWith_CustomExceeded(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	onExceeded := func(c *gin.Context) { c.Redirect(http.StatusSeeOther, c.Request.URL.Path) }
	r := gin.New()
	r.POST("/signup", RateLimitWith(rdb, 1, time.Minute, KeyByIPAndPath(), nil, onExceeded), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	post := func() *httptest.ResponseRecorder {
		return serve(r, httptest.NewRequest(http.MethodPost, "/signup", nil))
	}
	assert.Equal(t, http.StatusNoContent, post().Code)

	w := post()
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/signup", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestKeyByUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/user", nil)
	c.Set("real_ip", "203.0.113.7")
	assert.Equal(t, "rl:user:anon:ip:203.0.113.7", KeyByUserID()(c))

	c.Set(CtxUserIDKey, int64(42))
	assert.Equal(t, "rl:user:42", KeyByUserID()(c))
}
