package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type Service interface {
	SendCustom(ctx context.Context, to []string, subject string, content string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPService struct {
	dialer Dialer
	from   string
}

func NewSMTPService(cfg SMTPConfig) *SMTPService {
	return NewSMTPServiceWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewSMTPServiceWithDialer(d Dialer, from string) *SMTPService {
	return &SMTPService{dialer: d, from: from}
}

func (s *SMTPService) SendCustom(ctx context.Context, to []string, subject string, content string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", strings.Join(to, ","), err)
	}
	return nil
}
