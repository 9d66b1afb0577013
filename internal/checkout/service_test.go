package checkout

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	"github.com/bluebeachhouse/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
)

type fakeCatalog struct {
	products map[uuid.UUID]models.Product
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func (f *fakeCatalog) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	found := make(map[uuid.UUID]models.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

type fakeSessions struct {
	lastParams *stripe.CheckoutSessionCreateParams
	err        error
}

func (f *fakeSessions) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
}

func testConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		Currency:        "usd",
		ShippingCountry: "US",
		SuccessPath:     "/cart/success?session_id={CHECKOUT_SESSION_ID}",
		CancelPath:      "/cart",
	}
}

func newTestService(t *testing.T, catalog *fakeCatalog, sessions *fakeSessions) *Service {
	t.Helper()
	svc, err := NewService(catalog, sessions, testConfig(), "https://shop.example.com")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func product(id uuid.UUID, name, price string) models.Product {
	return models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Available: true}
}

func TestSingleItemCheckoutPricesFromCatalog(t *testing.T) {
	id := uuid.New()
	catalog := &fakeCatalog{products: map[uuid.UUID]models.Product{
		id: product(id, "Coaster Set", "24.99"),
	}}
	sessions := &fakeSessions{}
	svc := newTestService(t, catalog, sessions)

	result, err := svc.CreateSession(context.Background(), Input{
		Single:    &Line{ProductID: id, Quantity: 2},
		CartToken: "tok-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionID != "cs_test_123" {
		t.Fatalf("unexpected session id %s", result.SessionID)
	}

	params := sessions.lastParams
	if len(params.LineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(params.LineItems))
	}
	line := params.LineItems[0]
	if got := *line.PriceData.UnitAmount; got != 2499 {
		t.Fatalf("expected 2499 cents, got %d", got)
	}
	if got := *line.Quantity; got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
	if params.Metadata["productId"] != id.String() || params.Metadata["quantity"] != "2" {
		t.Fatalf("unexpected metadata %v", params.Metadata)
	}
	if params.Metadata[MetadataCartToken] != "tok-1" {
		t.Fatal("cart token missing from metadata")
	}
	if got := *params.SuccessURL; got != "https://shop.example.com/cart/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("unexpected success url %s", got)
	}
	if got := *params.CancelURL; got != "https://shop.example.com/cart" {
		t.Fatalf("unexpected cancel url %s", got)
	}
}

func TestSingleItemMissingProductIs404(t *testing.T) {
	svc := newTestService(t, &fakeCatalog{products: map[uuid.UUID]models.Product{}}, &fakeSessions{})

	_, err := svc.CreateSession(context.Background(), Input{Single: &Line{ProductID: uuid.New(), Quantity: 1}})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCartCheckoutDropsMissingLines(t *testing.T) {
	known := uuid.New()
	catalog := &fakeCatalog{products: map[uuid.UUID]models.Product{
		known: product(known, "Vase", "45.00"),
	}}
	sessions := &fakeSessions{}
	svc := newTestService(t, catalog, sessions)

	result, err := svc.CreateSession(context.Background(), Input{
		Items: []Line{
			{ProductID: known, Quantity: 1},
			{ProductID: uuid.New(), Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a session")
	}
	if len(sessions.lastParams.LineItems) != 1 {
		t.Fatalf("missing lines must be dropped, got %d line items", len(sessions.lastParams.LineItems))
	}
	// itemCount reflects the requested cart, not the surviving lines.
	if sessions.lastParams.Metadata["itemCount"] != "2" {
		t.Fatalf("unexpected itemCount %s", sessions.lastParams.Metadata["itemCount"])
	}
}

func TestCartCheckoutAllMissingIs400(t *testing.T) {
	svc := newTestService(t, &fakeCatalog{products: map[uuid.UUID]models.Product{}}, &fakeSessions{})

	_, err := svc.CreateSession(context.Background(), Input{
		Items: []Line{{ProductID: uuid.New(), Quantity: 1}},
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEmptyInputIsRejected(t *testing.T) {
	svc := newTestService(t, &fakeCatalog{}, &fakeSessions{})
	_, err := svc.CreateSession(context.Background(), Input{})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuantityOutsideBoundsIsRejected(t *testing.T) {
	id := uuid.New()
	catalog := &fakeCatalog{products: map[uuid.UUID]models.Product{
		id: product(id, "Coaster Set", "24.99"),
	}}
	sessions := &fakeSessions{}
	svc := newTestService(t, catalog, sessions)

	for _, qty := range []int{0, -1, MaxLineQty + 1, 9999} {
		_, err := svc.CreateSession(context.Background(), Input{
			Single: &Line{ProductID: id, Quantity: qty},
		})
		appErr := pkgerrors.As(err)
		if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for quantity %d, got %v", qty, err)
		}
	}

	_, err := svc.CreateSession(context.Background(), Input{
		Items: []Line{
			{ProductID: id, Quantity: 1},
			{ProductID: id, Quantity: 500},
		},
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for oversized line, got %v", err)
	}
	if sessions.lastParams != nil {
		t.Fatal("no session should be created for out-of-range quantities")
	}

	// the cart's per-line maximum is still accepted
	if _, err := svc.CreateSession(context.Background(), Input{
		Single: &Line{ProductID: id, Quantity: MaxLineQty},
	}); err != nil {
		t.Fatalf("quantity at the bound should pass, got %v", err)
	}
}

func TestProviderErrorSurfacesStripeMessage(t *testing.T) {
	id := uuid.New()
	catalog := &fakeCatalog{products: map[uuid.UUID]models.Product{
		id: product(id, "Lamp", "80.00"),
	}}
	sessions := &fakeSessions{err: &stripe.Error{Msg: "Your account cannot currently make live charges."}}
	svc := newTestService(t, catalog, sessions)

	_, err := svc.CreateSession(context.Background(), Input{Single: &Line{ProductID: id, Quantity: 1}})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
	if appErr.Message() != "Your account cannot currently make live charges." {
		t.Fatalf("expected provider message to surface, got %q", appErr.Message())
	}
}

func TestMetadataStaysWithinStripeLimit(t *testing.T) {
	products := map[uuid.UUID]models.Product{}
	var lines []Line
	for i := 0; i < 40; i++ {
		id := uuid.New()
		products[id] = product(id, "Bulk", "5.00")
		lines = append(lines, Line{ProductID: id, Quantity: 1})
	}
	sessions := &fakeSessions{}
	svc := newTestService(t, &fakeCatalog{products: products}, sessions)

	if _, err := svc.CreateSession(context.Background(), Input{Items: lines}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := sessions.lastParams.Metadata["items"]
	if len(items) > 500 {
		t.Fatalf("metadata value exceeds 500 chars: %d", len(items))
	}
	var decoded []compactItem
	if err := json.Unmarshal([]byte(items), &decoded); err != nil {
		t.Fatalf("truncated items must stay valid JSON: %v", err)
	}
	if len(decoded) == 0 {
		t.Fatal("expected at least one entry to survive truncation")
	}
	if !strings.HasPrefix(items, `[{"id":`) {
		t.Fatalf("unexpected items encoding: %s", items)
	}
}
