package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/bluebeachhouse/storefront-backend/internal/checkout"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
	"github.com/bluebeachhouse/storefront-backend/pkg/mailer"
)

type cartDropper interface {
	Drop(ctx context.Context, token string) error
}

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type ServiceParams struct {
	Carts  cartDropper
	Mailer mailSender
	Logger *logger.Logger
}

// Service dispatches authenticated, deduplicated webhook events to their
// side effects.
type Service struct {
	carts  cartDropper
	mailer mailSender
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mailer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		carts:  params.Carts,
		mailer: params.Mailer,
		logg:   params.Logger,
	}, nil
}

// HandleEvent runs the side effects for one verified event. Unrecognized
// types are logged and acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	ctx = s.logg.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeProcessing, err, "decode checkout session")
		}
		return s.handleCompleted(ctx, &session)

	case stripe.EventTypeCheckoutSessionExpired:
		s.logg.Info(ctx, "checkout session expired")
		return nil

	case stripe.EventTypePaymentIntentSucceeded:
		s.logg.Info(ctx, "payment intent succeeded")
		return nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		s.logg.Warn(ctx, "payment intent failed")
		return nil

	default:
		s.logg.Info(ctx, fmt.Sprintf("ignoring unhandled event type %s", event.Type))
		return nil
	}
}

func (s *Service) handleCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	ctx = s.logg.WithSessionID(ctx, session.ID)

	if token := session.Metadata[checkout.MetadataCartToken]; token != "" {
		if err := s.carts.Drop(ctx, token); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeProcessing, err, "clear cart after completed checkout")
		}
	}

	// Confirmation email is fire and forget: a mail outage must not make
	// Stripe re-deliver the event.
	if email := customerEmail(session); email != "" {
		msg := confirmationMessage(session, email)
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logg.Error(ctx, "send order confirmation email", err)
		}
	} else {
		s.logg.Warn(ctx, "completed session has no customer email")
	}

	s.logg.Info(ctx, "checkout session completed")
	return nil
}

func customerEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	if session.CustomerEmail != "" {
		return session.CustomerEmail
	}
	return ""
}

func confirmationMessage(session *stripe.CheckoutSession, email string) mailer.Message {
	name := ""
	if session.CustomerDetails != nil {
		name = session.CustomerDetails.Name
	}
	total := fmt.Sprintf("$%.2f", float64(session.AmountTotal)/100)
	return mailer.Message{
		To:      email,
		ToName:  name,
		Subject: "Your order is confirmed",
		PlainText: fmt.Sprintf(
			"Thanks for your order!\n\nOrder reference: %s\nTotal: %s\n\nWe'll email you again once it ships.",
			session.ID, total,
		),
		HTML: fmt.Sprintf(
			"<p>Thanks for your order!</p><p>Order reference: <strong>%s</strong><br>Total: <strong>%s</strong></p><p>We'll email you again once it ships.</p>",
			session.ID, total,
		),
	}
}
