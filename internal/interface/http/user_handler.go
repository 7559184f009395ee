package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/internal/application"
	"github.com/oksasatya/go-library-management/internal/interface/middleware"
	"github.com/oksasatya/go-library-management/pkg/helpers"
	"github.com/oksasatya/go-library-management/pkg/response"
)

// UserHandler serves the catalog and loan page.
type UserHandler struct {
	Svc     *application.LibraryService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *application.LibraryService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type loanForm struct {
	Action string `form:"action" binding:"required,oneof=borrow return"`
	BookID int64  `form:"book_id" binding:"required,gt=0"`
}

func (h *UserHandler) Page(c *gin.Context) {
	uid := middleware.UserID(c)
	q := c.Query("q")
	flash := h.Cookies.PopFlash(c)

	dash, err := h.Svc.Dashboard(c.Request.Context(), uid, q)
	if err != nil {
		helpers.LogError(h.Logger, "load user page failed", err, logrus.Fields{"user_id": uid, "request_id": c.GetString("request_id")})
		response.HTML(c, http.StatusInternalServerError, "user.page.html", response.Page{
			Title: "Books",
			Flash: msgDatabaseError,
			Data:  &application.Dashboard{Query: q},
		})
		return
	}
	response.HTML(c, http.StatusOK, "user.page.html", response.Page{Title: "Books", Flash: flash, Data: dash})
}

// Action handles the borrow/return form and always redirects back to the page.
func (h *UserHandler) Action(c *gin.Context) {
	uid := middleware.UserID(c)

	var form loanForm
	if err := c.ShouldBind(&form); err != nil {
		h.Cookies.SetFlash(c, msgInvalidAction)
		response.Redirect(c, "/user")
		return
	}

	ctx := c.Request.Context()
	var (
		err error
		ok  string
	)
	switch form.Action {
	case "borrow":
		_, err = h.Svc.Borrow(ctx, uid, form.BookID)
		ok = msgBorrowed
	case "return":
		_, err = h.Svc.Return(ctx, uid, form.BookID)
		ok = msgReturned
	}

	if err != nil {
		msg, known := flashFor(err)
		if !known {
			helpers.LogError(h.Logger, "loan action failed", err, logrus.Fields{
				"user_id":    uid,
				"book_id":    form.BookID,
				"action":     form.Action,
				"request_id": c.GetString("request_id"),
			})
		}
		h.Cookies.SetFlash(c, msg)
		response.Redirect(c, "/user")
		return
	}

	metrics.Add(form.Action, 1)
	h.Cookies.SetFlash(c, ok)
	response.Redirect(c, "/user")
}

// TooManyActions answers a rate-limited borrow/return post.
func (h *UserHandler) TooManyActions(c *gin.Context) {
	metrics.Add("rate_limited", 1)
	h.Cookies.SetFlash(c, msgTooManyTries)
	response.Redirect(c, "/user")
}
