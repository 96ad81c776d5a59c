package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/config"
	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

// RelayClient posts messages to an HTTP mail relay. Attachment bytes travel
// base64 encoded in the JSON body.
type RelayClient struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewRelayClient builds a resty-backed relay gateway.
func NewRelayClient(cfg config.MailConfig, logger *zap.Logger) *RelayClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	if cfg.RelayToken != "" {
		restyClient.SetAuthToken(cfg.RelayToken)
	}

	return &RelayClient{httpClient: restyClient, url: cfg.RelayURL, logger: logger}
}

func (c *RelayClient) Send(ctx context.Context, msg models.MailMessage) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	result := new(models.SendResult)
	apiErr := new(models.SendResult)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(result).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post mail relay: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("mail relay error: code=%d, message=%s", resp.StatusCode(), message)
	}

	if !result.Success {
		if result.Error == "" {
			return errors.New("mail relay rejected message")
		}
		return fmt.Errorf("mail relay rejected message: %s", result.Error)
	}

	c.logger.Info("mail relayed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
