package templates

import (
	"strings"
	"time"
)

const timeLayout = "02 January 2006, 15:04"

// Option pattern
type Option func(*EmailData)

func WithAppName(name string) Option {
	return func(d *EmailData) {
		if s := strings.TrimSpace(name); s != "" {
			d.AppName = s
		}
	}
}

func WithBook(title, author string) Option {
	return func(d *EmailData) {
		d.Title = title
		d.Author = author
	}
}

func WithBorrowDate(t time.Time) Option {
	return func(d *EmailData) { d.BorrowDate = t.UTC().Format(timeLayout) }
}

func WithReturnDate(t time.Time) Option {
	return func(d *EmailData) { d.ReturnDate = t.UTC().Format(timeLayout) }
}

// NewEmailData fills the recipient fields and applies opts.
func NewEmailData(name, email string, opts ...Option) EmailData {
	d := EmailData{Name: name, Email: email, AppName: "Library"}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// EnsureDefaults fills fields a queued job may have left empty.
func EnsureDefaults(data map[string]any, to string) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	if v, ok := data["Email"]; !ok || v == "" {
		data["Email"] = to
	}
	if v, ok := data["AppName"]; !ok || v == "" {
		data["AppName"] = "Library"
	}
	return data
}
