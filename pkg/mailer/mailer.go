package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
)

// Sender delivers a composed message. Satisfied by sendgrid.Client.
type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Message is a single outbound email.
type Message struct {
	To        string
	ToName    string
	ReplyTo   string
	Subject   string
	PlainText string
	HTML      string
}

// Client wraps the SendGrid transactional mail API.
type Client struct {
	sender   Sender
	from     *mail.Email
	disabled bool
}

// New builds a mail client. When no API key is configured the client runs in
// disabled mode: Send becomes a no-op so local dev does not need SendGrid.
func New(cfg config.SendgridConfig, logg *logger.Logger) *Client {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		if logg != nil {
			logg.Warn(context.Background(), "sendgrid api key missing, outbound email disabled")
		}
		return &Client{disabled: true}
	}
	return &Client{
		sender: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
	}
}

// Send delivers a single message, returning an error on non-2xx responses.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil || c.disabled {
		return nil
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}

	to := mail.NewEmail(msg.ToName, msg.To)
	email := mail.NewSingleEmail(c.from, msg.Subject, to, msg.PlainText, msg.HTML)
	if msg.ReplyTo != "" {
		email.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	resp, err := c.sender.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}
	return nil
}
