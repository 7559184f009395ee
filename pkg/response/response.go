package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data,omitempty"`
	Meta      any       `json:"meta,omitempty"`
	Error     any       `json:"error,omitempty"`
}

// Success writes a JSON success envelope and returns it.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta any) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
	ctx.JSON(status, resp)
	return resp
}

// Error writes a JSON error envelope and returns it.
func Error[T any](ctx *gin.Context, status int, message string, err any) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	resp := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Error:     err,
	}
	ctx.JSON(status, resp)
	return resp
}

// Page is the view model every HTML template receives.
type Page struct {
	Title     string
	Path      string
	Flash     string
	RequestID string
	Data      any
}

// HTML renders the named page template.
func HTML(ctx *gin.Context, status int, name string, p Page) {
	if status == 0 {
		status = http.StatusOK
	}
	p.Path = ctx.Request.URL.Path
	p.RequestID = ctx.GetString("request_id")
	ctx.HTML(status, name, p)
}

// Redirect answers 303 See Other so a POST is followed by a GET.
func Redirect(ctx *gin.Context, location string) {
	ctx.Redirect(http.StatusSeeOther, location)
}
