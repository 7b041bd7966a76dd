package notify

import (
	"fmt"
	"net"
	"net/smtp"

	"nexbank-ledger-go/internal/models"

	"github.com/jordan-wright/email"
)

// Sender delivers a notification to a recipient address over some channel.
type Sender interface {
	Send(n *models.Notification, recipient string) error
}

// EmailSender delivers notifications over SMTP.
type EmailSender struct {
	cfg models.NotifyConfig
}

func NewEmailSender(cfg models.NotifyConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) Send(n *models.Notification, recipient string) error {
	msg := email.NewEmail()
	msg.From = s.cfg.SenderEmail
	msg.To = []string{recipient}
	msg.Subject = n.Title
	msg.Text = []byte(n.Message)

	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := msg.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", recipient, err)
	}
	return nil
}
