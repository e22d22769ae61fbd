// Package notify tells the outside world a batch has finished: webhook and e-mail
package notify

import (
	"context"
	"errors"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/settings"
)

type Notifier interface {
	Notify(ctx context.Context, r *model.Report) error
}

// Multi calls every notifier, a failed one does not stop the rest.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, r *model.Report) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromSettings builds notifiers for every configured channel; nothing configured - empty Multi.
func FromSettings(s settings.Settings) Multi {
	var m Multi
	if s.Webhook.URL != "" {
		m = append(m, NewWebhook(s.Webhook))
	}
	if s.Mail.Host != "" && len(s.Mail.To) > 0 {
		m = append(m, NewMailer(s.Mail, s.Converter.ReportFormat))
	}
	return m
}
