package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/immunopass-go/internal/domain"
)

type OrderRepo struct{ s *Store }

// Create stores o and applies alloc to the owning organization in one step.
// It fails with ErrConflict if the organization's alloted count moved since
// alloc.Expected was read, the organization is not active, or the new total
// would exceed capacity.
func (r *OrderRepo) Create(_ context.Context, o *domain.VoucherOrder, alloc domain.Allocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.orders[o.OrderID]; exists {
		return fmt.Errorf("order %s already exists: %w", o.OrderID, domain.ErrConflict)
	}
	org, ok := r.s.organizations[alloc.OrganizationID]
	if !ok {
		return fmt.Errorf("organization not found: %w", domain.ErrNotFound)
	}
	next := alloc.Expected + alloc.Count
	if org.AllotedVouchers != alloc.Expected || org.Status != domain.EntityActive || next > org.TotalVouchers {
		return fmt.Errorf("allocate %d vouchers for %s: %w", alloc.Count, alloc.OrganizationID, domain.ErrConflict)
	}
	org.AllotedVouchers = next
	r.s.organizations[org.OrganizationID] = org
	o.Version = 1
	r.s.orders[o.OrderID] = *o
	return nil
}

func (r *OrderRepo) Get(_ context.Context, orderID string) (*domain.VoucherOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order not found: %w", domain.ErrNotFound)
	}
	return &o, nil
}

// ListByStatus returns orders in the given status, oldest first.
func (r *OrderRepo) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.VoucherOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.VoucherOrder
	for _, o := range r.s.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (r *OrderRepo) Save(_ context.Context, o *domain.VoucherOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, exists := r.s.orders[o.OrderID]
	if !versionOK(exists, cur.Version, o.Version) {
		return fmt.Errorf("order %s modified concurrently: %w", o.OrderID, domain.ErrConflict)
	}
	o.Version++
	r.s.orders[o.OrderID] = *o
	return nil
}
