package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/bluebeachhouse/storefront-backend/api/middleware"
	"github.com/bluebeachhouse/storefront-backend/api/responses"
	"github.com/bluebeachhouse/storefront-backend/api/validators"
	"github.com/bluebeachhouse/storefront-backend/internal/cart"
	"github.com/bluebeachhouse/storefront-backend/internal/catalog"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
)

// GetCart returns the cart bound to the request's token cookie.
func GetCart(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, token, err := cartContext(r, logg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snap, err := svc.Get(ctx, token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snap))
	}
}

// AddCartItem resolves the product against the catalog and merges it into the
// cart. The stored line carries the catalog's name, price and first image;
// nothing from the request body besides id and quantity is kept.
func AddCartItem(svc *cart.Service, catalogSvc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, token, err := cartContext(r, logg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := catalogSvc.GetProduct(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !product.Available {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not available"))
			return
		}

		item := cart.Item{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
		}
		if len(product.Images) > 0 {
			item.Image = product.Images[0]
		}

		qty := 1
		if payload.Quantity != nil {
			qty = *payload.Quantity
		}

		snap, err := svc.AddItem(ctx, token, item, qty)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snap))
	}
}

// UpdateCartItem sets a line quantity; quantities below one remove the line.
func UpdateCartItem(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, token, err := cartContext(r, logg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snap, err := svc.UpdateQuantity(ctx, token, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snap))
	}
}

// RemoveCartItem drops a line from the cart.
func RemoveCartItem(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, token, err := cartContext(r, logg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snap, err := svc.RemoveItem(ctx, token, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snap))
	}
}

// ClearCart empties the cart.
func ClearCart(svc *cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, token, err := cartContext(r, logg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snap, err := svc.Clear(ctx, token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snap))
	}
}

// SetCartVisibility reports the cart with its drawer flag adjusted. The flag
// is per-response presentation state and is never written back to the store:
// the loaded snapshot always starts closed, so the transition applies to that
// closed baseline and toggle behaves the same as open.
func SetCartVisibility(svc *cart.Service, logg *logger.Logger, transition func(cart.Snapshot) cart.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, token, err := cartContext(r, logg)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snap, err := svc.Get(ctx, token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(transition(snap)))
	}
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  *int   `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Items      []cartItemResponse `json:"items"`
	IsOpen     bool               `json:"isOpen"`
	TotalItems int                `json:"totalItems"`
	Subtotal   string             `json:"subtotal"`
}

type cartItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unitPrice"`
	Image     string    `json:"image,omitempty"`
	Quantity  int       `json:"quantity"`
}

func newCartResponse(snap cart.Snapshot) cartResponse {
	items := make([]cartItemResponse, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, cartItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Image:     item.Image,
			Quantity:  item.Quantity,
		})
	}
	return cartResponse{
		Items:      items,
		IsOpen:     snap.IsOpen,
		TotalItems: snap.TotalItems(),
		Subtotal:   snap.Subtotal().StringFixed(2),
	}
}

// cartContext resolves the request's cart token and returns a context tagged
// with it, so every log line emitted for the request carries the token.
func cartContext(r *http.Request, logg *logger.Logger) (context.Context, string, error) {
	ctx := r.Context()
	token := middleware.CartTokenFromContext(ctx)
	if token == "" {
		return ctx, "", pkgerrors.New(pkgerrors.CodeInternal, "cart token missing from request context")
	}
	if logg != nil {
		ctx = logg.WithCartToken(ctx, token)
	}
	return ctx, token, nil
}
