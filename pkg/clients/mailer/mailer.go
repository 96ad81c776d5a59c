package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/config"
	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

// Gateway delivers one message to every listed recipient.
type Gateway interface {
	Send(ctx context.Context, msg models.MailMessage) error
}

// ErrNoRecipients is returned for messages without any address.
var ErrNoRecipients = errors.New("message has no recipients")

// New builds the gateway selected by the mail driver.
func New(cfg config.MailConfig, logger *zap.Logger) (Gateway, error) {
	switch cfg.Driver {
	case config.MailDriverSMTP:
		return NewSMTPClient(cfg, logger), nil
	case config.MailDriverHTTP:
		return NewRelayClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.Driver)
	}
}
