package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxItemQty caps the quantity of any single line.
const MaxItemQty = 10

// Item is one cart line. UnitPrice and Image are display caches carried from
// the catalog at add time; checkout never trusts them.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
}

// Snapshot is the full cart state. Items keep insertion order and hold at
// most one line per product id. IsOpen is a drawer visibility flag that is
// never persisted.
type Snapshot struct {
	Items  []Item `json:"items"`
	IsOpen bool   `json:"is_open"`
}

// Add merges qty of item into the snapshot, clamping the line to MaxItemQty,
// and opens the drawer. qty below 1 is treated as 1.
func (s Snapshot) Add(item Item, qty int) Snapshot {
	if qty < 1 {
		qty = 1
	}

	next := s.cloneItems()
	merged := false
	for i := range next {
		if next[i].ProductID == item.ProductID {
			next[i].Quantity = clampQty(next[i].Quantity + qty)
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = clampQty(qty)
		next = append(next, item)
	}

	return Snapshot{Items: next, IsOpen: true}
}

// Remove drops the line for productID. Absent ids are a no-op.
func (s Snapshot) Remove(productID uuid.UUID) Snapshot {
	next := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if it.ProductID != productID {
			next = append(next, it)
		}
	}
	return Snapshot{Items: next, IsOpen: s.IsOpen}
}

// SetQuantity replaces the quantity for productID. Quantities below 1 remove
// the line; values above MaxItemQty clamp; unknown ids are ignored.
func (s Snapshot) SetQuantity(productID uuid.UUID, qty int) Snapshot {
	if qty < 1 {
		return s.Remove(productID)
	}

	next := s.cloneItems()
	for i := range next {
		if next[i].ProductID == productID {
			next[i].Quantity = clampQty(qty)
			break
		}
	}
	return Snapshot{Items: next, IsOpen: s.IsOpen}
}

// Clear empties the cart, leaving the drawer state alone.
func (s Snapshot) Clear() Snapshot {
	return Snapshot{Items: []Item{}, IsOpen: s.IsOpen}
}

// Open, Close and Toggle adjust drawer visibility only.
func (s Snapshot) Open() Snapshot   { s.IsOpen = true; return s }
func (s Snapshot) Close() Snapshot  { s.IsOpen = false; return s }
func (s Snapshot) Toggle() Snapshot { s.IsOpen = !s.IsOpen; return s }

// TotalItems sums line quantities.
func (s Snapshot) TotalItems() int {
	total := 0
	for _, it := range s.Items {
		total += it.Quantity
	}
	return total
}

// Subtotal sums unit_price x quantity across lines. Display only.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (s Snapshot) cloneItems() []Item {
	next := make([]Item, len(s.Items))
	copy(next, s.Items)
	return next
}

func clampQty(q int) int {
	if q > MaxItemQty {
		return MaxItemQty
	}
	if q < 1 {
		return 1
	}
	return q
}
