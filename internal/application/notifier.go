package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-library-management/pkg/mailer"
)

// Notifier enqueues email jobs. Implemented by helpers.RabbitPublisher.
type Notifier interface {
	PublishJSON(ctx context.Context, body any) error
}

// notify publishes job best-effort; failures never fail the calling workflow.
func notify(ctx context.Context, n Notifier, logger *logrus.Logger, job mailer.EmailJob) {
	if n == nil {
		return
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := n.PublishJSON(c, job); err != nil && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{"template": job.Template, "to": job.To}).Warn("failed to publish email job")
	}
}
