package mailer

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/mamadbah2/hospital-reports/internal/config"
	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPClient sends mail through an SMTP server.
type SMTPClient struct {
	dialer dialer
	from   string
	logger *zap.Logger
}

// NewSMTPClient builds an SMTP backed gateway.
func NewSMTPClient(cfg config.MailConfig, logger *zap.Logger) *SMTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPClient{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.From,
		logger: logger,
	}
}

func (c *SMTPClient) Send(ctx context.Context, msg models.MailMessage) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := c.buildMessage(msg)
	if err := c.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	c.logger.Info("mail sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Int("attachments", len(msg.Attachments)))
	return nil
}

func (c *SMTPClient) buildMessage(msg models.MailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, a := range msg.Attachments {
		data := a.Data
		m.Attach(a.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m
}
