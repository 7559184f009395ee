package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/pkg/mailer"
	mailtpl "github.com/oksasatya/go-library-management/pkg/mailer/templates"
)

// Sender delivers a rendered email. Implemented by mailer.Mailgun.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type outcome int

const (
	ack outcome = iota
	drop
	retry
)

var errNoRecipient = errors.New("missing recipient")

type worker struct {
	sender Sender
	logger *logrus.Logger
}

// render turns a job into subject/text/html. Template jobs win over inline bodies.
func render(job mailer.EmailJob) (subject, text, html string, err error) {
	if job.To == "" {
		return "", "", "", errNoRecipient
	}
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return "", "", "", fmt.Errorf("job without template needs subject and body")
		}
		return job.Subject, job.Text, job.HTML, nil
	}
	data := mailtpl.EnsureDefaults(job.Data, job.To)
	return mailtpl.Render(job.Template, data)
}

// handle decodes, renders and sends one message body.
func (w *worker) handle(ctx context.Context, body []byte) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.WithError(err).Warn("bad message")
		return drop
	}

	subject, text, html, err := render(job)
	if err != nil {
		w.logger.WithError(err).WithField("template", job.Template).Warn("render failed")
		return drop
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := w.sender.Send(c, job.To, subject, text, html); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			w.logger.WithField("to", job.To).Warn("mailgun not configured, dropping message")
			return drop
		}
		w.logger.WithError(err).WithFields(logrus.Fields{"template": job.Template, "to": job.To}).Error("send failed")
		return retry
	}
	w.logger.WithFields(logrus.Fields{"template": job.Template, "to": job.To}).Info("email sent")
	return ack
}
