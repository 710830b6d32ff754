package memory

import (
	"context"
	"fmt"

	"github.com/immunopass-go/internal/domain"
)

type VoucherRepo struct{ s *Store }

// Create inserts v and reserves its code. It returns ErrConflict when the
// voucher id already exists and ErrCodeTaken when the code is reserved.
func (r *VoucherRepo) Create(_ context.Context, v *domain.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.vouchers[v.VoucherID]; exists {
		return fmt.Errorf("voucher %s already exists: %w", v.VoucherID, domain.ErrConflict)
	}
	if _, taken := r.s.codes[v.VoucherCode]; taken {
		return fmt.Errorf("voucher %s: %w", v.VoucherID, domain.ErrCodeTaken)
	}
	v.Version = 1
	r.s.vouchers[v.VoucherID] = *v
	r.s.codes[v.VoucherCode] = v.VoucherID
	return nil
}

// ListByOrder returns the vouchers of an order in CSV row order.
func (r *VoucherRepo) ListByOrder(_ context.Context, orderID string) ([]domain.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Voucher
	for _, v := range r.s.vouchers {
		if v.OrderID == orderID {
			out = append(out, v)
		}
	}
	sortVouchers(out)
	return out, nil
}

func (r *VoucherRepo) Save(_ context.Context, v *domain.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, exists := r.s.vouchers[v.VoucherID]
	if !versionOK(exists, cur.Version, v.Version) {
		return fmt.Errorf("voucher %s modified concurrently: %w", v.VoucherID, domain.ErrConflict)
	}
	v.Version++
	r.s.vouchers[v.VoucherID] = *v
	return nil
}
