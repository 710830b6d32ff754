package memory

import (
	"context"
	"fmt"

	"github.com/immunopass-go/internal/domain"
)

type OrganizationRepo struct{ s *Store }

func (r *OrganizationRepo) Put(_ context.Context, o *domain.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.organizations[o.OrganizationID] = *o
	return nil
}

func (r *OrganizationRepo) Get(_ context.Context, orgID string) (*domain.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.organizations[orgID]
	if !ok {
		return nil, fmt.Errorf("organization not found: %w", domain.ErrNotFound)
	}
	return &o, nil
}
