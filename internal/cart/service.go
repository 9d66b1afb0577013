package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/bluebeachhouse/storefront-backend/pkg/errors"
)

type snapshotStore interface {
	Load(ctx context.Context, token string) (Snapshot, error)
	Save(ctx context.Context, token string, snap Snapshot) error
	Delete(ctx context.Context, token string) error
}

// Service applies cart transitions atomically per token. Concurrent mutations
// of the same cart serialize on a per-token lock so the load-modify-save cycle
// never interleaves.
type Service struct {
	store snapshotStore

	mu    sync.Mutex
	locks map[string]*tokenLock
}

type tokenLock struct {
	sync.Mutex
	refs int
}

// NewService builds the cart service.
func NewService(store snapshotStore) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart store required")
	}
	return &Service{store: store, locks: make(map[string]*tokenLock)}, nil
}

func (s *Service) lock(token string) *tokenLock {
	s.mu.Lock()
	l, ok := s.locks[token]
	if !ok {
		l = &tokenLock{}
		s.locks[token] = l
	}
	l.refs++
	s.mu.Unlock()
	l.Lock()
	return l
}

func (s *Service) unlock(token string, l *tokenLock) {
	l.Unlock()
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, token)
	}
	s.mu.Unlock()
}

// Get returns the current snapshot without mutating it.
func (s *Service) Get(ctx context.Context, token string) (Snapshot, error) {
	snap, err := s.store.Load(ctx, token)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return snap, nil
}

// AddItem merges the item into the cart and persists the result.
func (s *Service) AddItem(ctx context.Context, token string, item Item, qty int) (Snapshot, error) {
	return s.mutate(ctx, token, func(snap Snapshot) Snapshot {
		return snap.Add(item, qty)
	})
}

// UpdateQuantity sets the line quantity for productID.
func (s *Service) UpdateQuantity(ctx context.Context, token string, productID uuid.UUID, qty int) (Snapshot, error) {
	return s.mutate(ctx, token, func(snap Snapshot) Snapshot {
		return snap.SetQuantity(productID, qty)
	})
}

// RemoveItem drops the line for productID.
func (s *Service) RemoveItem(ctx context.Context, token string, productID uuid.UUID) (Snapshot, error) {
	return s.mutate(ctx, token, func(snap Snapshot) Snapshot {
		return snap.Remove(productID)
	})
}

// Clear empties the cart and persists the empty record.
func (s *Service) Clear(ctx context.Context, token string) (Snapshot, error) {
	return s.mutate(ctx, token, func(snap Snapshot) Snapshot {
		return snap.Clear()
	})
}

// Drop removes the persisted cart entirely. Used when a checkout completes.
func (s *Service) Drop(ctx context.Context, token string) error {
	l := s.lock(token)
	defer s.unlock(token, l)

	if err := s.store.Delete(ctx, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, token string, fn func(Snapshot) Snapshot) (Snapshot, error) {
	l := s.lock(token)
	defer s.unlock(token, l)

	snap, err := s.store.Load(ctx, token)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	next := fn(snap)
	if err := s.store.Save(ctx, token, next); err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return next, nil
}
