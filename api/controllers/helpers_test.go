package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bluebeachhouse/storefront-backend/api/middleware"
	"github.com/bluebeachhouse/storefront-backend/internal/cart"
	"github.com/bluebeachhouse/storefront-backend/internal/catalog"
	"github.com/bluebeachhouse/storefront-backend/pkg/config"
	"github.com/bluebeachhouse/storefront-backend/pkg/db/models"
	"github.com/bluebeachhouse/storefront-backend/pkg/logger"
)

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fakeCatalogRepo struct {
	products map[uuid.UUID]models.Product
	err      error
}

func (f *fakeCatalogRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	product, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

func (f *fakeCatalogRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) ListAvailable(ctx context.Context) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Product, 0, len(f.products))
	for _, product := range f.products {
		if product.Available {
			out = append(out, product)
		}
	}
	return out, nil
}

func newTestProduct(name string, price string, available bool) models.Product {
	return models.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Images:    []string{"https://cdn.example.com/" + name + ".jpg"},
		Category:  "prints",
		Available: available,
	}
}

func newTestCatalog(t *testing.T, products ...models.Product) (*catalog.Service, *fakeCatalogRepo) {
	t.Helper()
	repo := &fakeCatalogRepo{products: make(map[uuid.UUID]models.Product)}
	for _, product := range products {
		repo.products[product.ID] = product
	}
	svc, err := catalog.NewService(repo)
	if err != nil {
		t.Fatalf("catalog service: %v", err)
	}
	return svc, repo
}

type memCartStore struct {
	mu    sync.Mutex
	snaps map[string]cart.Snapshot
}

func newMemCartStore() *memCartStore {
	return &memCartStore{snaps: make(map[string]cart.Snapshot)}
}

func (s *memCartStore) Load(ctx context.Context, token string) (cart.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[token], nil
}

func (s *memCartStore) Save(ctx context.Context, token string, snap cart.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// the real store persists items only
	snap.IsOpen = false
	s.snaps[token] = snap
	return nil
}

func (s *memCartStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, token)
	return nil
}

func newTestCartService(t *testing.T) *cart.Service {
	t.Helper()
	svc, err := cart.NewService(newMemCartStore())
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	return svc
}

// withCartToken runs the handler behind the token cookie middleware with a
// stable token, so repeated requests hit the same cart.
func withCartToken(handler http.Handler) (http.Handler, string) {
	token := uuid.NewString()
	cfg := config.CartConfig{CookieName: "bbhd_cart", TTL: time.Hour}
	wrapped := middleware.CartToken(cfg, false)(handler)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "bbhd_cart", Value: token})
		wrapped.ServeHTTP(w, r)
	}), token
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, envelope.Data)
	}
}
