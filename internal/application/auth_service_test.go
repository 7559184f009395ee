package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
	repo "github.com/oksasatya/go-library-management/internal/domain/repository"
	"github.com/oksasatya/go-library-management/internal/infrastructure/memory"
	"github.com/oksasatya/go-library-management/pkg/helpers"
	"github.com/oksasatya/go-library-management/pkg/mailer"
	"github.com/oksasatya/go-library-management/pkg/storage"
)

type memFile struct{ name string }

func (f memFile) Filename() string    { return f.name }
func (f memFile) ContentType() string { return "image/png" }
func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("png")), nil
}

type fakeUploader struct {
	calls int
	url   string
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, f storage.File) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PublishJSON(ctx context.Context, body any) error {
	return m.Called(ctx, body).Error(0)
}

type authFixture struct {
	store    *memory.Store
	uploader *fakeUploader
	redis    *miniredis.Miniredis
	svc      *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	up := &fakeUploader{url: "https://ccitpublicbucket.s3.eu-west-2.amazonaws.com/k_me.png"}
	svc := NewAuthService(store.Users, up, rdb, helpers.NewSessionTokens("test-secret", time.Hour), nil, helpers.NewDiscardLogger())
	svc.HashCost = bcrypt.MinCost
	return &authFixture{store: store, uploader: up, redis: mr, svc: svc}
}

func validSignup() SignupInput {
	return SignupInput{
		Name:       "Ann",
		Mobile:     "0123",
		Email:      "a@x.com",
		Password:   "p1",
		RePassword: "p1",
		Gender:     "female",
		Location:   "Leeds",
	}
}

func TestSignupThenLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.NotEqual(t, "p1", u.Password, "password must be stored hashed")
	assert.Empty(t, u.ImageURL)

	got, sess, err := f.svc.Login(ctx, "A@X.com ", "p1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, sess.Token)

	uid, err := f.svc.ValidateSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
	assert.True(t, f.redis.Exists(sessionKey(u.ID)))
}

func TestSignup_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SignupInput)
		want   error
	}{
		{"missing name", func(in *SignupInput) { in.Name = "" }, ErrMissingFields},
		{"blank location", func(in *SignupInput) { in.Location = "   " }, ErrMissingFields},
		{"mismatch", func(in *SignupInput) { in.RePassword = "p2" }, ErrPasswordMismatch},
		{"too long", func(in *SignupInput) {
			in.Password = strings.Repeat("x", 73)
			in.RePassword = in.Password
		}, ErrPasswordTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture(t)
			in := validSignup()
			in.Image = memFile{name: "me.png"}
			tc.mutate(&in)

			_, err := f.svc.Signup(context.Background(), in)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, f.store.UserCount())
			assert.Equal(t, 0, f.uploader.calls, "nothing is uploaded before validation passes")
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	in := validSignup()
	in.Email = " A@x.COM"
	in.Image = memFile{name: "me.png"}
	_, err = f.svc.Signup(ctx, in)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, 1, f.store.UserCount())
	assert.Equal(t, 0, f.uploader.calls)
}

func TestSignup_WithImage(t *testing.T) {
	f := newAuthFixture(t)
	in := validSignup()
	in.Image = memFile{name: "me.png"}

	u, err := f.svc.Signup(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, f.uploader.calls)
	assert.Equal(t, f.uploader.url, u.ImageURL)
}

func TestSignup_UploadFailureAborts(t *testing.T) {
	f := newAuthFixture(t)
	f.uploader.err = errors.Join(storage.ErrUploadFailed, errors.New("AccessDenied"))
	in := validSignup()
	in.Image = memFile{name: "me.png"}

	_, err := f.svc.Signup(context.Background(), in)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, 0, f.store.UserCount())
}

func TestSignup_PublishesWelcome(t *testing.T) {
	f := newAuthFixture(t)
	n := new(mockNotifier)
	n.On("PublishJSON", mock.Anything, mock.MatchedBy(func(job mailer.EmailJob) bool {
		return job.Template == mailer.TemplateWelcome && job.To == "a@x.com" && job.Data["Name"] == "Ann"
	})).Return(errors.New("broker down")).Once()
	f.svc.Notifier = n

	_, err := f.svc.Signup(context.Background(), validSignup())
	require.NoError(t, err, "publish failures never fail signup")
	n.AssertExpectations(t)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, _, err = f.svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "nobody@x.com", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSession_NewLoginReplacesOld(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, first, err := f.svc.Login(ctx, "a@x.com", "p1")
	require.NoError(t, err)
	_, second, err := f.svc.Login(ctx, "a@x.com", "p1")
	require.NoError(t, err)

	_, err = f.svc.ValidateSession(ctx, first.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = f.svc.ValidateSession(ctx, second.Token)
	assert.NoError(t, err)
}

func TestLogout_DropsSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	_, sess, err := f.svc.Login(ctx, "a@x.com", "p1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, sess.Token))
	assert.False(t, f.redis.Exists(sessionKey(u.ID)))

	_, err = f.svc.ValidateSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// garbage or repeated logouts are harmless
	assert.NoError(t, f.svc.Logout(ctx, "garbage"))
	assert.NoError(t, f.svc.Logout(ctx, sess.Token))
}

func TestValidateSession_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	_, sess, err := f.svc.Login(ctx, "a@x.com", "p1")
	require.NoError(t, err)

	f.redis.FastForward(2 * time.Hour)
	_, err = f.svc.ValidateSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = f.svc.ValidateSession(ctx, "")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestGetUser_NotFound(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.GetUser(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// racingUsers reports the email as free but loses the insert to a concurrent signup.
type racingUsers struct {
	repo.UserRepository
}

func (racingUsers) EmailExists(context.Context, string) (bool, error) { return false, nil }
func (racingUsers) Create(context.Context, *entity.User) error { return repo.ErrDuplicate }

func TestSignup_InsertFailureAfterUploadLogsImage(t *testing.T) {
	f := newAuthFixture(t)
	logger, hook := logtest.NewNullLogger()
	f.svc.Logger = logger
	f.svc.Repo = racingUsers{UserRepository: f.store.Users}

	in := validSignup()
	in.Image = memFile{name: "me.png"}
	_, err := f.svc.Signup(context.Background(), in)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, 1, f.uploader.calls)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, f.uploader.url, entry.Data["image_url"])
	assert.Equal(t, "a@x.com", entry.Data["email"])
}
