package mail

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// Sender delivers a notification. Sends are fire-and-forget on the saga path:
// a failure is logged and never rolls back a state transition.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender stands in when no SMTP relay is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(to, subject, body string) error {
	s.logger.Info("Mail notification (no SMTP relay configured)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

// NewSender picks the SMTP sender when an address is configured, the logging
// sender otherwise.
func NewSender(smtpAddr, from string, logger *zap.Logger) Sender {
	if smtpAddr == "" {
		return NewLogSender(logger)
	}
	return NewSMTPSender(smtpAddr, from)
}
