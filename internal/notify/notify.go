package notify

import (
	"github.com/rs/zerolog"

	"github.com/clinicore/identity-service/internal/config"
)

// Notifier delivers outbound email and SMS. Delivery is best-effort: callers
// must never fail a request because a notification could not be sent.
type Notifier interface {
	SendEmail(to, subject, body string) error
	SendSMS(to, body string) error
}

// Service is the default Notifier. Email goes through SMTP when configured
// and is logged otherwise; SMS is logged only, since no gateway is wired.
type Service struct {
	mailer *Mailer
	logger zerolog.Logger
}

// NewService builds a Service from SMTP configuration. With SMTP disabled,
// every message is written to the log instead.
func NewService(cfg config.SMTPConfig, logger zerolog.Logger) *Service {
	s := &Service{logger: logger}
	if cfg.Enabled() {
		s.mailer = NewMailer(cfg)
	}
	return s
}

// SendEmail delivers a plain-text email.
func (s *Service) SendEmail(to, subject, body string) error {
	if s.mailer == nil {
		s.logger.Info().Str("to", to).Str("subject", subject).Msg("smtp disabled, email logged only")
		return nil
	}
	return s.mailer.Send(to, subject, body)
}

// SendSMS logs the message in place of a real SMS gateway.
func (s *Service) SendSMS(to, body string) error {
	s.logger.Info().Str("mobile", to).Str("body", body).Msg("sms dispatched")
	return nil
}
