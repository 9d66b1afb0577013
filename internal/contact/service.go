package contact

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
	"github.com/bluebeachhouse/storefront-backend/pkg/mailer"
)

// Submission is a validated contact form payload. Honeypot is a hidden field
// real users never fill; a non-empty value marks a bot.
type Submission struct {
	Name     string
	Email    string
	Phone    string
	Message  string
	Honeypot string
}

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Service forwards contact form submissions to the shop inbox.
type Service struct {
	mailer    mailSender
	recipient string
	logg      *logger.Logger
}

// NewService builds the contact service.
func NewService(mail mailSender, cfg config.ContactConfig, logg *logger.Logger) (*Service, error) {
	if mail == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if strings.TrimSpace(cfg.Recipient) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "contact recipient required")
	}
	return &Service{mailer: mail, recipient: cfg.Recipient, logg: logg}, nil
}

// Submit delivers the submission. Bot submissions are acknowledged without
// sending anything, so the trap stays invisible.
func (s *Service) Submit(ctx context.Context, sub Submission) error {
	if sub.Honeypot != "" {
		s.logg.Info(ctx, "honeypot triggered, likely bot submission")
		return nil
	}

	msg := mailer.Message{
		To:        s.recipient,
		ReplyTo:   sub.Email,
		Subject:   fmt.Sprintf("New Contact Form Submission from %s", sub.Name),
		PlainText: plainBody(sub),
		HTML:      htmlBody(sub),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeProcessing, err, "failed to send message, please try again later")
	}
	return nil
}

func plainBody(sub Submission) string {
	var b strings.Builder
	b.WriteString("New Contact Form Submission\n\n")
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\n", sub.Name, sub.Email)
	if sub.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", sub.Phone)
	}
	fmt.Fprintf(&b, "\nMessage:\n%s\n", sub.Message)
	return b.String()
}

func htmlBody(sub Submission) string {
	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>")
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>", html.EscapeString(sub.Name))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>", html.EscapeString(sub.Email))
	if sub.Phone != "" {
		fmt.Fprintf(&b, "<p><strong>Phone:</strong> %s</p>", html.EscapeString(sub.Phone))
	}
	b.WriteString("<hr><h3>Message:</h3>")
	escaped := strings.ReplaceAll(html.EscapeString(sub.Message), "\n", "<br>")
	fmt.Fprintf(&b, "<p>%s</p>", escaped)
	return b.String()
}
