package memory

import (
	"context"
	"fmt"

	"github.com/immunopass-go/internal/domain"
)

type AccountRepo struct{ s *Store }

func (r *AccountRepo) Put(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[a.AccountID] = *a
	return nil
}

func (r *AccountRepo) Get(_ context.Context, accountID string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (r *AccountRepo) GetByIdentifier(_ context.Context, identifier string, idType domain.IdentifierType) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.accounts {
		if a.Identifier == identifier && a.IdentifierType == idType {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
}
