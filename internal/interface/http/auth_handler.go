package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/internal/interface/middleware"
	"github.com/oksasatya/go-library-management/pkg/helpers"
	"github.com/oksasatya/go-library-management/pkg/response"
	"github.com/oksasatya/go-library-management/pkg/storage"
	"github.com/oksasatya/go-library-management/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signupForm struct {
	Name       string `form:"name" binding:"required"`
	Mobile     string `form:"mobile" binding:"required"`
	Email      string `form:"email" binding:"required"`
	Password   string `form:"password" binding:"required,pwd"`
	RePassword string `form:"re_password" binding:"required"`
	Gender     string `form:"gender" binding:"required"`
	Location   string `form:"location" binding:"required"`
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (h *AuthHandler) Index(c *gin.Context) {
	response.Redirect(c, "/login")
}

func (h *AuthHandler) SignupForm(c *gin.Context) {
	response.HTML(c, http.StatusOK, "signup.page.html", response.Page{Title: "Sign up", Flash: h.Cookies.PopFlash(c)})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		msg := msgMissingFields
		if !validation.HasTag(err, "required") {
			if m := validation.ToMessage(err); m != "" {
				msg = m
			}
		}
		h.Cookies.SetFlash(c, msg)
		response.Redirect(c, "/signup")
		return
	}
	// format is checked on the normalized address
	form.Email = application.NormalizeEmail(form.Email)
	if msg := validation.CheckValue("email", form.Email, "email"); msg != "" {
		h.Cookies.SetFlash(c, msg)
		response.Redirect(c, "/signup")
		return
	}

	in := application.SignupInput{
		Name:       form.Name,
		Mobile:     form.Mobile,
		Email:      form.Email,
		Password:   form.Password,
		RePassword: form.RePassword,
		Gender:     form.Gender,
		Location:   form.Location,
	}
	if fh, err := c.FormFile("image"); err == nil && fh.Filename != "" {
		in.Image = storage.FromFormFile(fh)
	}

	u, err := h.Svc.Signup(c.Request.Context(), in)
	if err != nil {
		msg, known := flashFor(err)
		if !known {
			helpers.LogError(h.Logger, "signup failed", err, logrus.Fields{"request_id": c.GetString("request_id")})
		}
		h.Cookies.SetFlash(c, msg)
		response.Redirect(c, "/signup")
		return
	}

	metrics.Add("signups", 1)
	helpers.LogInfo(h.Logger, "user signed up", logrus.Fields{"user_id": u.ID, "request_id": c.GetString("request_id")})
	h.Cookies.SetFlash(c, msgSignupOK)
	response.Redirect(c, "/login")
}

// TooManyAttempts sends a rate-limited form post back to the form it came from.
func (h *AuthHandler) TooManyAttempts(c *gin.Context) {
	metrics.Add("rate_limited", 1)
	h.Cookies.SetFlash(c, msgTooManyTries)
	response.Redirect(c, c.Request.URL.Path)
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	response.HTML(c, http.StatusOK, "login.page.html", response.Page{Title: "Login", Flash: h.Cookies.PopFlash(c)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.Cookies.SetFlash(c, msgInvalidLogin)
		response.Redirect(c, "/login")
		return
	}

	u, sess, err := h.Svc.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		msg, known := flashFor(err)
		if !known {
			helpers.LogError(h.Logger, "login failed", err, logrus.Fields{"request_id": c.GetString("request_id")})
		}
		metrics.Add("login_failures", 1)
		h.Cookies.SetFlash(c, msg)
		response.Redirect(c, "/login")
		return
	}

	metrics.Add("logins", 1)
	h.Cookies.SetSession(c, sess.Token, sess.ExpiresAt)
	helpers.LogInfo(h.Logger, "user logged in", logrus.Fields{"user_id": u.ID, "request_id": c.GetString("request_id")})
	response.Redirect(c, "/welcome")
}

// Logout always clears the cookie, even when the server-side session is already gone.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(helpers.SessionCookie); err == nil && token != "" {
		if err := h.Svc.Logout(c.Request.Context(), token); err != nil {
			helpers.LogError(h.Logger, "logout failed", err, logrus.Fields{"request_id": c.GetString("request_id")})
		}
	}
	h.Cookies.ClearSession(c)
	h.Cookies.SetFlash(c, msgLoggedOut)
	response.Redirect(c, "/login")
}

func (h *AuthHandler) Welcome(c *gin.Context) {
	uid := middleware.UserID(c)
	u, err := h.Svc.GetUser(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			h.Cookies.ClearSession(c)
			h.Cookies.SetFlash(c, msgSessionExpired)
			response.Redirect(c, "/login")
			return
		}
		helpers.LogError(h.Logger, "load user failed", err, logrus.Fields{"user_id": uid, "request_id": c.GetString("request_id")})
		response.HTML(c, http.StatusInternalServerError, "welcome.page.html", response.Page{Title: "Welcome", Flash: msgDatabaseError})
		return
	}
	response.HTML(c, http.StatusOK, "welcome.page.html", response.Page{Title: "Welcome", Flash: h.Cookies.PopFlash(c), Data: u})
}
