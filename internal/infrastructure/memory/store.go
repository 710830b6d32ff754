// Package memory keeps every entity in process memory. It mirrors the
// DynamoDB repositories, including optimistic version checks and the
// atomic quota allocation, so it can stand in for them in tests and local runs.
package memory

import (
	"sort"
	"sync"

	"github.com/immunopass-go/internal/domain"
)

// Store holds all data in memory.
type Store struct {
	mu            sync.RWMutex
	accounts      map[string]domain.Account
	otps          map[string][]domain.OTPRecord // identifier -> records in creation order
	organizations map[string]domain.Organization
	orders        map[string]domain.VoucherOrder
	vouchers      map[string]domain.Voucher
	codes         map[string]string // voucher_code -> voucher_id
}

func NewStore() *Store {
	return &Store{
		accounts:      make(map[string]domain.Account),
		otps:          make(map[string][]domain.OTPRecord),
		organizations: make(map[string]domain.Organization),
		orders:        make(map[string]domain.VoucherOrder),
		vouchers:      make(map[string]domain.Voucher),
		codes:         make(map[string]string),
	}
}

func (s *Store) Accounts() *AccountRepo           { return &AccountRepo{s: s} }
func (s *Store) OTPs() *OTPRepo                   { return &OTPRepo{s: s} }
func (s *Store) Organizations() *OrganizationRepo { return &OrganizationRepo{s: s} }
func (s *Store) Orders() *OrderRepo               { return &OrderRepo{s: s} }
func (s *Store) Vouchers() *VoucherRepo           { return &VoucherRepo{s: s} }

// versionOK reports whether a write carrying prev may replace current.
func versionOK(exists bool, current, prev int64) bool {
	if !exists {
		return prev == 0
	}
	return current == prev
}

func sortVouchers(vs []domain.Voucher) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].RowIndex != vs[j].RowIndex {
			return vs[i].RowIndex < vs[j].RowIndex
		}
		return vs[i].VoucherID < vs[j].VoucherID
	})
}
