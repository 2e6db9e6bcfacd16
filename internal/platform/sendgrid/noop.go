package sendgrid

import (
	"context"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
)

// noopClient stands in when no API key is configured. Mail is dropped with a
// log line so local development does not need a SendGrid account.
type noopClient struct {
	log *logger.Logger
}

func NewNoop(log *logger.Logger) Client {
	return &noopClient{log: log.With("client", "NoopMailClient")}
}

func (c *noopClient) Send(ctx context.Context, req SendEmailRequest) error {
	recipients := make([]string, 0, len(req.To))
	for _, to := range req.To {
		recipients = append(recipients, to.Email)
	}
	c.log.Info("Mail delivery disabled, dropping message", "to", recipients, "subject", req.Subject)
	return nil
}
