package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bluebeachhouse/storefront-backend/api/middleware"
	"github.com/bluebeachhouse/storefront-backend/api/responses"
	"github.com/bluebeachhouse/storefront-backend/api/validators"
	checkoutsvc "github.com/bluebeachhouse/storefront-backend/internal/checkout"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
	"github.com/bluebeachhouse/storefront-backend/pkg/metrics"
)

// Checkout re-prices the requested items against the catalog and returns a
// hosted payment session. Accepts either a single product or a cart's worth
// of lines, never both.
func Checkout(svc *checkoutsvc.Service, metr *metrics.HTTPMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			metr.IncCheckout("rejected")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			metr.IncCheckout("rejected")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.CartToken = middleware.CartTokenFromContext(r.Context())

		result, err := svc.CreateSession(r.Context(), input)
		if err != nil {
			metr.IncCheckout("failed")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		metr.IncCheckout("created")
		responses.WriteSuccess(w, checkoutResponse{
			URL:       result.URL,
			SessionID: result.SessionID,
		})
	}
}

type checkoutRequest struct {
	ProductID  *string               `json:"productId,omitempty" validate:"omitempty,uuid"`
	Quantity   *int                  `json:"quantity,omitempty" validate:"omitempty,min=1,max=10"`
	Items      []checkoutLineRequest `json:"items,omitempty" validate:"omitempty,dive"`
	SuccessURL string                `json:"successUrl,omitempty" validate:"omitempty,url"`
	CancelURL  string                `json:"cancelUrl,omitempty" validate:"omitempty,url"`
}

type checkoutLineRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=10"`
}

type checkoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

func (r checkoutRequest) toInput() (checkoutsvc.Input, error) {
	hasSingle := r.ProductID != nil && *r.ProductID != ""
	hasItems := len(r.Items) > 0

	switch {
	case hasSingle && hasItems:
		return checkoutsvc.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "provide either productId or items, not both")
	case !hasSingle && !hasItems:
		return checkoutsvc.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "productId or items required")
	}

	input := checkoutsvc.Input{
		SuccessURL: r.SuccessURL,
		CancelURL:  r.CancelURL,
	}

	if hasSingle {
		id, err := uuid.Parse(*r.ProductID)
		if err != nil {
			return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		qty := 1
		if r.Quantity != nil {
			qty = *r.Quantity
		}
		input.Single = &checkoutsvc.Line{ProductID: id, Quantity: qty}
		return input, nil
	}

	lines := make([]checkoutsvc.Line, 0, len(r.Items))
	for _, item := range r.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		lines = append(lines, checkoutsvc.Line{ProductID: id, Quantity: item.Quantity})
	}
	input.Items = lines
	return input, nil
}
