package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	"github.com/bluebeachhouse/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
)

// Stripe caps metadata values at 500 characters.
const metadataValueLimit = 500

// MaxLineQty bounds the quantity of any checkout line, mirroring the cart's
// per-line clamp. Requests outside it are rejected, not clamped: by the time
// a request reaches checkout an out-of-range quantity is tampering, not UI
// drift.
const MaxLineQty = 10

// MetadataCartToken names the session metadata key carrying the cart token,
// so the webhook processor can clear the right cart on completion.
const MetadataCartToken = "cart_token"

// Line is one normalized checkout request line.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Input is the normalized checkout request. Exactly one of Single or Items is
// populated; the API boundary enforces that before calling the service.
type Input struct {
	Single     *Line
	Items      []Line
	SuccessURL string
	CancelURL  string
	CartToken  string
}

// Result carries the hosted session handle back to the client.
type Result struct {
	URL       string
	SessionID string
}

type catalogGateway interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// Service converts validated checkout requests into hosted payment sessions.
// Every price comes from the catalog; nothing the client sent is billed.
type Service struct {
	catalog catalogGateway
	stripe  sessionCreator
	cfg     config.CheckoutConfig
	baseURL string
}

// NewService builds the checkout orchestrator.
func NewService(catalog catalogGateway, stripeClient sessionCreator, cfg config.CheckoutConfig, baseURL string) (*Service, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog gateway required")
	}
	if stripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	return &Service{catalog: catalog, stripe: stripeClient, cfg: cfg, baseURL: baseURL}, nil
}

// CreateSession re-prices the request against the catalog and opens a hosted
// checkout session. Single-item requests 404 on a missing product; cart
// requests drop missing lines and fail only when none survive.
func (s *Service) CreateSession(ctx context.Context, input Input) (*Result, error) {
	var (
		lineItems []*stripe.CheckoutSessionCreateLineItemParams
		metadata  map[string]string
	)

	switch {
	case input.Single != nil:
		if err := validateQty(input.Single.Quantity); err != nil {
			return nil, err
		}
		product, err := s.catalog.GetProduct(ctx, input.Single.ProductID)
		if err != nil {
			return nil, err
		}
		lineItems = []*stripe.CheckoutSessionCreateLineItemParams{
			s.lineItem(*product, input.Single.Quantity),
		}
		metadata = map[string]string{
			"productId": input.Single.ProductID.String(),
			"quantity":  strconv.Itoa(input.Single.Quantity),
		}

	case len(input.Items) > 0:
		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, line := range input.Items {
			if err := validateQty(line.Quantity); err != nil {
				return nil, err
			}
			ids = append(ids, line.ProductID)
		}
		found, err := s.catalog.GetProducts(ctx, ids)
		if err != nil {
			return nil, err
		}

		var priced []Line
		for _, line := range input.Items {
			product, ok := found[line.ProductID]
			if !ok {
				continue
			}
			lineItems = append(lineItems, s.lineItem(product, line.Quantity))
			priced = append(priced, line)
		}
		if len(lineItems) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no valid products found in cart")
		}
		metadata = map[string]string{
			"itemCount": strconv.Itoa(len(input.Items)),
			"items":     compactItemsJSON(priced),
		}

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "either product_id or items is required")
	}

	if input.CartToken != "" {
		metadata[MetadataCartToken] = input.CartToken
	}

	successURL := input.SuccessURL
	if successURL == "" {
		successURL = s.baseURL + s.cfg.SuccessPath
	}
	cancelURL := input.CancelURL
	if cancelURL == "" {
		cancelURL = s.baseURL + s.cfg.CancelPath
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		ShippingAddressCollection: &stripe.CheckoutSessionCreateShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{s.cfg.ShippingCountry}),
		},
		SuccessURL:       stripe.String(successURL),
		CancelURL:        stripe.String(cancelURL),
		CustomerCreation: stripe.String(string(stripe.CheckoutSessionCustomerCreationAlways)),
		Metadata:         metadata,
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, providerError(err)
	}

	return &Result{URL: session.URL, SessionID: session.ID}, nil
}

func (s *Service) lineItem(product models.Product, qty int) *stripe.CheckoutSessionCreateLineItemParams {
	productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name: stripe.String(product.Name),
	}
	if product.Description != nil && *product.Description != "" {
		productData.Description = stripe.String(*product.Description)
	}
	if len(product.Images) > 0 {
		productData.Images = stripe.StringSlice(product.Images)
	}
	return &stripe.CheckoutSessionCreateLineItemParams{
		PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
			Currency:    stripe.String(s.cfg.Currency),
			ProductData: productData,
			UnitAmount:  stripe.Int64(product.PriceCents()),
		},
		Quantity: stripe.Int64(int64(qty)),
	}
}

func validateQty(qty int) error {
	if qty < 1 || qty > MaxLineQty {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", MaxLineQty))
	}
	return nil
}

// providerError surfaces Stripe's own message so the client sees why the
// session could not be created.
func providerError(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Msg != "" {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, stripeErr.Msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeProvider, err, "failed to create checkout session")
}

type compactItem struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

// compactItemsJSON renders the priced lines as compact JSON, dropping
// trailing entries until the value fits Stripe's metadata limit.
func compactItemsJSON(lines []Line) string {
	for n := len(lines); n > 0; n-- {
		compact := make([]compactItem, 0, n)
		for _, line := range lines[:n] {
			compact = append(compact, compactItem{ID: line.ProductID.String(), Qty: line.Quantity})
		}
		encoded, err := json.Marshal(compact)
		if err != nil {
			return "[]"
		}
		if len(encoded) <= metadataValueLimit {
			return string(encoded)
		}
	}
	return "[]"
}
