package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/internal/domain/entity"
	repo "github.com/oksasatya/go-library-management/internal/domain/repository"
	"github.com/oksasatya/go-library-management/pkg/helpers"
	"github.com/oksasatya/go-library-management/pkg/mailer"
	mailtpl "github.com/oksasatya/go-library-management/pkg/mailer/templates"
	"github.com/oksasatya/go-library-management/pkg/storage"
)

const maxPasswordBytes = 72

type AuthService struct {
	Repo     repo.UserRepository
	Uploader storage.Uploader
	Redis    *redis.Client
	Tokens   *helpers.SessionTokens
	Notifier Notifier
	Logger   *logrus.Logger
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

func NewAuthService(repo repo.UserRepository, uploader storage.Uploader, rdb *redis.Client, tokens *helpers.SessionTokens, notifier Notifier, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Repo:     repo,
		Uploader: uploader,
		Redis:    rdb,
		Tokens:   tokens,
		Notifier: notifier,
		Logger:   logger,
	}
}

// Session is an established login. Token is the signed cookie value.
type Session struct {
	UserID    int64
	ID        string
	Token     string
	ExpiresAt time.Time
}

type SignupInput struct {
	Name       string
	Mobile     string
	Email      string
	Password   string
	RePassword string
	Gender     string
	Location   string
	Image      storage.File // optional
}

func sessionKey(userID int64) string {
	return "user:session:" + strconv.FormatInt(userID, 10)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// NormalizeEmail is applied on both signup and login.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup validates the form, uploads the optional image and stores the user.
// Nothing is written when validation fails or the email is already registered.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	in.Email = NormalizeEmail(in.Email)
	for _, v := range []string{in.Name, in.Mobile, in.Email, in.Password, in.RePassword, in.Gender, in.Location} {
		if strings.TrimSpace(v) == "" {
			return nil, ErrMissingFields
		}
	}
	if in.Password != in.RePassword {
		return nil, ErrPasswordMismatch
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	exists, err := s.Repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := helpers.HashPasswordCost(in.Password, s.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var imageURL string
	if in.Image != nil && in.Image.Filename() != "" {
		if s.Uploader == nil {
			return nil, fmt.Errorf("%w: storage not configured", ErrUploadFailed)
		}
		imageURL, err = s.Uploader.Upload(ctx, in.Image)
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("email", in.Email).Warn("profile image upload failed")
			}
			return nil, err
		}
	}

	u := &entity.User{
		Name:     strings.TrimSpace(in.Name),
		Mobile:   strings.TrimSpace(in.Mobile),
		Email:    in.Email,
		Password: hash,
		Gender:   in.Gender,
		Location: strings.TrimSpace(in.Location),
		ImageURL: imageURL,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if imageURL != "" && s.Logger != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{"email": in.Email, "image_url": imageURL}).
				Warn("user insert failed after upload, profile image is orphaned")
		}
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	notify(ctx, s.Notifier, s.Logger, mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateWelcome,
		Data:     mailtpl.ToMap(mailtpl.NewEmailData(u.Name, u.Email)),
	})
	return u, nil
}

// Authenticate validates email/password and returns the user without creating a session.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and records a session in Redis.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, Session, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, Session{}, err
	}
	sess, err := s.startSession(ctx, u)
	if err != nil {
		return nil, Session{}, err
	}
	return u, sess, nil
}

func (s *AuthService) startSession(ctx context.Context, u *entity.User) (Session, error) {
	sid := uuid.NewString()
	token, exp, err := s.Tokens.Generate(u.ID, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate session token failed")
		}
		return Session{}, err
	}

	key := sessionKey(u.ID)
	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"sid":        sid,
		"created_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, s.Tokens.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return Session{UserID: u.ID, ID: sid, Token: token, ExpiresAt: exp}, nil
}

// ValidateSession resolves a session cookie to a user id.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrSessionInvalid
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return 0, ErrSessionInvalid
	}
	sid, err := s.Redis.HGet(ctx, sessionKey(claims.UserID), "sid").Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	if sid != claims.SessionID {
		return 0, ErrSessionInvalid
	}
	return claims.UserID, nil
}

// Logout drops the server-side session. Callers clear the cookie regardless of the result.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil
	}
	key := sessionKey(claims.UserID)
	sid, err := s.Redis.HGet(ctx, key, "sid").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if sid != claims.SessionID {
		return nil
	}
	return s.Redis.Del(ctx, key).Err()
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
