package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/internal/infrastructure/memory"
	handlers "github.com/oksasatya/go-library-management/internal/interface/http"
	"github.com/oksasatya/go-library-management/internal/interface/middleware"
	"github.com/oksasatya/go-library-management/internal/router"
	"github.com/oksasatya/go-library-management/internal/router/modules"
	"github.com/oksasatya/go-library-management/pkg/helpers"
	"github.com/oksasatya/go-library-management/pkg/storage"
	"github.com/oksasatya/go-library-management/pkg/validation"
	"github.com/oksasatya/go-library-management/web"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type fakeUploader struct {
	err error
}

func (u *fakeUploader) Upload(_ context.Context, f storage.File) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return "https://ccitpublicbucket.s3.eu-west-2.amazonaws.com/" + storage.ObjectKey(f.Filename()), nil
}

type app struct {
	engine   *gin.Engine
	store    *memory.Store
	uploader *fakeUploader
	cookies  map[string]*http.Cookie
}

func newApp(t *testing.T, loginLimit int) *app {
	t.Helper()
	return newAppWithLimits(t, loginLimit, 0)
}

func newAppWithLimits(t *testing.T, loginLimit, actionLimit int) *app {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := helpers.NewDiscardLogger()
	store := memory.NewStore()
	store.AddBook("Dune", "Frank Herbert")
	store.AddBook("Emma", "Jane Austen")
	up := &fakeUploader{}

	auth := application.NewAuthService(store.Users, up, rdb, helpers.NewSessionTokens("test-secret", time.Hour), nil, logger)
	auth.HashCost = bcrypt.MinCost
	library := application.NewLibraryService(store.Books, store.Loans, store.Users, nil, nil, logger)

	r := gin.New()
	r.HTMLRender = web.MustRenderer()
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP(false))

	reg := router.NewRegistry(r)
	reg.Add(modules.NewAuthModule(handlers.NewAuthHandler(auth, logger, "", false), auth, rdb, logger, loginLimit))
	reg.Add(modules.NewUserModule(handlers.NewUserHandler(library, logger, "", false), auth, rdb, logger, actionLimit))
	reg.Add(modules.NewHealthModule(handlers.NewHealthHandler(map[string]handlers.Check{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})))
	reg.RegisterAll()

	return &app{engine: r, store: store, uploader: up, cookies: map[string]*http.Cookie{}}
}

// do sends req with the stored cookies and records the cookies the response sets.
func (a *app) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(a.cookies, c.Name)
			continue
		}
		a.cookies[c.Name] = c
	}
	return w
}

func (a *app) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *app) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *app) postSignup(t *testing.T, fields map[string]string, image string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != "" {
		fw, err := mw.CreateFormFile("image", image)
		require.NoError(t, err)
		_, _ = io.WriteString(fw, "png-bytes")
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/signup", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req)
}

func signupFields() map[string]string {
	return map[string]string{
		"name":        "Ann",
		"mobile":      "0123",
		"email":       "a@x.com",
		"password":    "p1",
		"re_password": "p1",
		"gender":      "female",
		"location":    "Leeds",
	}
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, to string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, to, w.Header().Get("Location"))
}

// bodyOf renders path, consuming any pending flash.
func (a *app) bodyOf(path string) string {
	return a.get(path).Body.String()
}

func TestProtectedPagesRedirectWithoutSession(t *testing.T) {
	a := newApp(t, 0)
	for _, p := range []string{"/welcome", "/user"} {
		w := a.get(p)
		assertRedirect(t, w, "/login")
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	}
	w := a.postForm("/user", url.Values{"action": {"borrow"}, "book_id": {"1"}})
	assertRedirect(t, w, "/login")
	assert.Empty(t, a.store.AllLoans())
}

func TestIndexRedirectsToLogin(t *testing.T) {
	a := newApp(t, 0)
	assertRedirect(t, a.get("/"), "/login")
}

func TestForgedCookieRedirects(t *testing.T) {
	a := newApp(t, 0)
	a.cookies[helpers.SessionCookie] = &http.Cookie{Name: helpers.SessionCookie, Value: "not-a-token"}
	assertRedirect(t, a.get("/welcome"), "/login")
}

func TestSignupLoginWelcomeFlow(t *testing.T) {
	a := newApp(t, 0)

	w := a.postSignup(t, signupFields(), "")
	assertRedirect(t, w, "/login")
	assert.Contains(t, a.bodyOf("/login"), "Signup successful! Please login.")

	w = a.postForm("/login", url.Values{"email": {"a@x.com"}, "password": {"p1"}})
	assertRedirect(t, w, "/welcome")
	require.Contains(t, a.cookies, helpers.SessionCookie)

	w = a.get("/welcome")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome, Ann")
	assert.Contains(t, w.Body.String(), "a@x.com")

	w = a.get("/logout")
	assertRedirect(t, w, "/login")
	assert.NotContains(t, a.cookies, helpers.SessionCookie)
	assert.Contains(t, a.bodyOf("/login"), "Logged out successfully.")
	assertRedirect(t, a.get("/welcome"), "/login")
}

func TestSignupErrors(t *testing.T) {
	a := newApp(t, 0)

	missing := signupFields()
	delete(missing, "location")
	assertRedirect(t, a.postSignup(t, missing, ""), "/signup")
	assert.Contains(t, a.bodyOf("/signup"), "Please fill all required fields")

	mismatch := signupFields()
	mismatch["re_password"] = "p2"
	assertRedirect(t, a.postSignup(t, mismatch, ""), "/signup")
	assert.Contains(t, a.bodyOf("/signup"), "Passwords do not match")
	assert.Equal(t, 0, a.store.UserCount())

	assertRedirect(t, a.postSignup(t, signupFields(), ""), "/login")
	assertRedirect(t, a.postSignup(t, signupFields(), ""), "/signup")
	assert.Contains(t, a.bodyOf("/signup"), "Email already exists")
	assert.Equal(t, 1, a.store.UserCount())
}

func TestSignupEmailIsTrimmedBeforeValidation(t *testing.T) {
	a := newApp(t, 0)

	padded := signupFields()
	padded["email"] = "  A@X.com "
	assertRedirect(t, a.postSignup(t, padded, ""), "/login")
	_, err := a.store.Users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	a.get("/login")

	bad := signupFields()
	bad["email"] = "not-an-email"
	assertRedirect(t, a.postSignup(t, bad, ""), "/signup")
	assert.Contains(t, a.bodyOf("/signup"), "email must be a valid email")
	assert.Equal(t, 1, a.store.UserCount())
}

func TestSignupWithImage(t *testing.T) {
	a := newApp(t, 0)
	assertRedirect(t, a.postSignup(t, signupFields(), "me.png"), "/login")

	u, err := a.store.Users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Regexp(t, `^https://ccitpublicbucket\.s3\.eu-west-2\.amazonaws\.com/[0-9a-f]{32}_me\.png$`, u.ImageURL)
}

func TestSignupUploadFailure(t *testing.T) {
	a := newApp(t, 0)
	a.uploader.err = errors.Join(storage.ErrUploadFailed, errors.New("AccessDenied"))

	assertRedirect(t, a.postSignup(t, signupFields(), "me.png"), "/signup")
	assert.Contains(t, a.bodyOf("/signup"), "Image upload failed")
	assert.Equal(t, 0, a.store.UserCount())
}

func TestLoginInvalid(t *testing.T) {
	a := newApp(t, 0)
	assertRedirect(t, a.postSignup(t, signupFields(), ""), "/login")
	a.get("/login") // consume flash

	assertRedirect(t, a.postForm("/login", url.Values{"email": {"a@x.com"}, "password": {"nope"}}), "/login")
	assert.Contains(t, a.bodyOf("/login"), "Invalid email or password")
	assert.NotContains(t, a.cookies, helpers.SessionCookie)
}

func login(t *testing.T, a *app) {
	t.Helper()
	assertRedirect(t, a.postSignup(t, signupFields(), ""), "/login")
	assertRedirect(t, a.postForm("/login", url.Values{"email": {"a@x.com"}, "password": {"p1"}}), "/welcome")
	a.get("/welcome")
}

func TestBorrowReturnFlow(t *testing.T) {
	a := newApp(t, 0)
	login(t, a)

	body := a.bodyOf("/user")
	assert.Contains(t, body, "Dune")
	assert.Contains(t, body, "Nothing borrowed.")

	borrow := url.Values{"action": {"borrow"}, "book_id": {"1"}}
	assertRedirect(t, a.postForm("/user", borrow), "/user")
	body = a.bodyOf("/user")
	assert.Contains(t, body, "Book borrowed successfully.")
	assert.Contains(t, body, "Not returned")

	assertRedirect(t, a.postForm("/user", borrow), "/user")
	assert.Contains(t, a.bodyOf("/user"), "You already borrowed this book and not yet returned.")

	ret := url.Values{"action": {"return"}, "book_id": {"1"}}
	assertRedirect(t, a.postForm("/user", ret), "/user")
	assert.Contains(t, a.bodyOf("/user"), "Book returned successfully.")

	assertRedirect(t, a.postForm("/user", ret), "/user")
	assert.Contains(t, a.bodyOf("/user"), "No borrowed record found to return.")

	loans := a.store.AllLoans()
	require.Len(t, loans, 1)
	assert.False(t, loans[0].Active())
}

func TestUserActionInvalid(t *testing.T) {
	a := newApp(t, 0)
	login(t, a)

	for _, form := range []url.Values{
		{},
		{"action": {"borrow"}},
		{"book_id": {"1"}},
		{"action": {"steal"}, "book_id": {"1"}},
		{"action": {"borrow"}, "book_id": {"abc"}},
		{"action": {"borrow"}, "book_id": {"0"}},
	} {
		assertRedirect(t, a.postForm("/user", form), "/user")
		assert.Contains(t, a.bodyOf("/user"), "Invalid action or book ID", "form %v", form)
	}
	assert.Empty(t, a.store.AllLoans())
}

func TestUserSearch(t *testing.T) {
	a := newApp(t, 0)
	login(t, a)

	body := a.bodyOf("/user?q=austen")
	assert.Contains(t, body, "Emma")
	assert.NotContains(t, body, "Dune")
}

func TestLoginRateLimited(t *testing.T) {
	a := newApp(t, 2)
	form := url.Values{"email": {"a@x.com"}, "password": {"nope"}}

	for i := 0; i < 2; i++ {
		assertRedirect(t, a.postForm("/login", form), "/login")
	}
	w := a.postForm("/login", form)
	assertRedirect(t, w, "/login")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, a.bodyOf("/login"), "Too many attempts, try again later")
}

func TestSignupRateLimited(t *testing.T) {
	a := newApp(t, 1)
	missing := signupFields()
	delete(missing, "name")

	assertRedirect(t, a.postSignup(t, missing, ""), "/signup")
	a.get("/signup")
	assertRedirect(t, a.postSignup(t, signupFields(), ""), "/signup")
	assert.Contains(t, a.bodyOf("/signup"), "Too many attempts, try again later")
	assert.Equal(t, 0, a.store.UserCount())
}

func TestBorrowRateLimitedPerUser(t *testing.T) {
	a := newAppWithLimits(t, 0, 2)
	login(t, a)

	assertRedirect(t, a.postForm("/user", url.Values{"action": {"borrow"}, "book_id": {"1"}}), "/user")
	assertRedirect(t, a.postForm("/user", url.Values{"action": {"return"}, "book_id": {"1"}}), "/user")
	a.get("/user")

	w := a.postForm("/user", url.Values{"action": {"borrow"}, "book_id": {"2"}})
	assertRedirect(t, w, "/user")
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, a.bodyOf("/user"), "Too many attempts, try again later")
	assert.Len(t, a.store.AllLoans(), 1)
}

func TestHealthz(t *testing.T) {
	a := newApp(t, 0)
	w := a.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)
}
