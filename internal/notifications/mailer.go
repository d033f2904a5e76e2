package notifications

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/exrstore/exr-backend/pkg/config"
	"github.com/exrstore/exr-backend/pkg/db/models"
	"github.com/exrstore/exr-backend/pkg/logger"
)

// Mailer sends transactional storefront email over SMTP. All sends are best
// effort; failures are logged and swallowed by callers.
type Mailer struct {
	cfg   config.SMTPConfig
	store config.StoreConfig
	logg  *logger.Logger
	send  func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewMailer builds an SMTP mailer. Returns nil when SMTP is not configured
// so callers can treat email as disabled.
func NewMailer(cfg config.SMTPConfig, store config.StoreConfig, logg *logger.Logger) *Mailer {
	if !cfg.Enabled() {
		return nil
	}
	return &Mailer{
		cfg:   cfg,
		store: store,
		logg:  logg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendRefundApproved notifies the shopper that their refund was credited.
func (m *Mailer) SendRefundApproved(ctx context.Context, to string, order *models.Order) error {
	subject := fmt.Sprintf("%s: your refund for order %s has been approved", m.store.Name, shortID(order))
	body := fmt.Sprintf(
		"Hi,\n\nYour refund request for order %s has been approved. %d.%02d %s has been credited to your %s wallet.\n\nQuestions? Reach us at %s.\n",
		shortID(order),
		order.TotalCents/100, order.TotalCents%100, m.store.Currency,
		m.store.Name, m.store.SupportEmail,
	)
	return m.deliver(ctx, to, subject, body)
}

// SendRefundRejected notifies the shopper that their refund was declined.
func (m *Mailer) SendRefundRejected(ctx context.Context, to string, order *models.Order, reason string) error {
	subject := fmt.Sprintf("%s: update on your refund request for order %s", m.store.Name, shortID(order))
	body := fmt.Sprintf(
		"Hi,\n\nYour refund request for order %s was declined.\n\nReason: %s\n\nQuestions? Reach us at %s.\n",
		shortID(order), reason, m.store.SupportEmail,
	)
	return m.deliver(ctx, to, subject, body)
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(e, addr, auth); err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, fmt.Sprintf("sending email %q", subject), err)
		}
		return err
	}
	return nil
}

func shortID(order *models.Order) string {
	id := order.ID.String()
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
