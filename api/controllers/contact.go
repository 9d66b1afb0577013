package controllers

import (
	"net/http"

	"github.com/bluebeachhouse/storefront-backend/api/responses"
	"github.com/bluebeachhouse/storefront-backend/api/validators"
	contactsvc "github.com/bluebeachhouse/storefront-backend/internal/contact"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
)

// Contact forwards a storefront contact form submission to the shop inbox.
func Contact(svc *contactsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contact service unavailable"))
			return
		}

		var payload contactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := svc.Submit(r.Context(), contactsvc.Submission{
			Name:     payload.Name,
			Email:    payload.Email,
			Phone:    payload.Phone,
			Message:  payload.Message,
			Honeypot: payload.Honeypot,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

type contactRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Message  string `json:"message" validate:"required,min=10,max=2000"`
	Honeypot string `json:"honeypot,omitempty"`
}
