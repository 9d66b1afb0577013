package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bluebeachhouse/storefront-backend/internal/cart"
	"github.com/bluebeachhouse/storefront-backend/internal/catalog"
	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	"github.com/bluebeachhouse/storefront-backend/pkg/db/models"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
	"github.com/bluebeachhouse/storefront-backend/pkg/ratelimit"
)

// exhaustedWindow reports every client as far over quota.
type exhaustedWindow struct{}

func (exhaustedWindow) SlidingWindow(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	return 100, now, nil
}

func (exhaustedWindow) RateLimitKey(scope string) string {
	return "bbhd:rate_limit:" + scope
}

type staticCatalogRepo struct {
	products map[uuid.UUID]models.Product
}

func (s *staticCatalogRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *staticCatalogRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *staticCatalogRepo) ListAvailable(ctx context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

type mapCartStore struct {
	mu    sync.Mutex
	snaps map[string]cart.Snapshot
}

func (s *mapCartStore) Load(ctx context.Context, token string) (cart.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[token], nil
}

func (s *mapCartStore) Save(ctx context.Context, token string, snap cart.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[token] = snap
	return nil
}

func (s *mapCartStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, token)
	return nil
}

func TestGateCoversWritesOnly(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		Cart: config.CartConfig{CookieName: "bbhd_cart", TTL: time.Hour},
	}

	product := models.Product{
		ID:        uuid.New(),
		Name:      "sunset-print",
		Price:     decimal.RequireFromString("24.99"),
		Available: true,
	}
	catalogService, err := catalog.NewService(&staticCatalogRepo{
		products: map[uuid.UUID]models.Product{product.ID: product},
	})
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	cartService, err := cart.NewService(&mapCartStore{snaps: map[string]cart.Snapshot{}})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}

	limiter := ratelimit.New(exhaustedWindow{}, config.RateLimitConfig{
		Window: 10 * time.Second,
		Limit:  10,
	})

	handler := NewRouter(cfg, logg, nil, nil, nil, nil, limiter,
		catalogService, cartService, nil, nil, nil, nil, nil)

	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// reads stay open while the window is exhausted
	if code := do(http.MethodGet, "/api/v1/products"); code != http.StatusOK {
		t.Fatalf("products list should not be gated, got %d", code)
	}
	if code := do(http.MethodGet, "/api/v1/products/"+product.ID.String()); code != http.StatusOK {
		t.Fatalf("product fetch should not be gated, got %d", code)
	}
	if code := do(http.MethodGet, "/api/v1/cart"); code != http.StatusOK {
		t.Fatalf("cart read should not be gated, got %d", code)
	}

	// writes are refused
	for _, write := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/cart/items"},
		{http.MethodPatch, "/api/v1/cart/items/" + product.ID.String()},
		{http.MethodDelete, "/api/v1/cart/items/" + product.ID.String()},
		{http.MethodDelete, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodPost, "/api/v1/contact"},
	} {
		if code := do(write.method, write.path); code != http.StatusTooManyRequests {
			t.Fatalf("%s %s should be gated, got %d", write.method, write.path, code)
		}
	}

	// the webhook route sits outside the gate entirely
	if code := do(http.MethodPost, "/api/v1/webhooks/stripe"); code == http.StatusTooManyRequests {
		t.Fatal("webhook route must not be rate limited")
	}
}
