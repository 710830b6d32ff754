package memory

import (
	"context"
	"fmt"

	"github.com/immunopass-go/internal/domain"
)

type OTPRepo struct{ s *Store }

// Latest returns the most recently created record for identifier.
func (r *OTPRepo) Latest(_ context.Context, identifier string) (*domain.OTPRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	recs := r.s.otps[identifier]
	if len(recs) == 0 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	latest := recs[0]
	for _, o := range recs[1:] {
		if o.CreatedAt.After(latest.CreatedAt) || (o.CreatedAt.Equal(latest.CreatedAt) && o.OTPID > latest.OTPID) {
			latest = o
		}
	}
	return &latest, nil
}

// Save upserts o if its Version matches the stored one and bumps Version on success.
func (r *OTPRepo) Save(_ context.Context, o *domain.OTPRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	recs := r.s.otps[o.Identifier]
	idx := -1
	for i := range recs {
		if recs[i].OTPID == o.OTPID {
			idx = i
			break
		}
	}
	var current int64
	if idx >= 0 {
		current = recs[idx].Version
	}
	if !versionOK(idx >= 0, current, o.Version) {
		return fmt.Errorf("otp %s modified concurrently: %w", o.OTPID, domain.ErrConflict)
	}
	o.Version++
	if idx >= 0 {
		recs[idx] = *o
	} else {
		recs = append(recs, *o)
	}
	r.s.otps[o.Identifier] = recs
	return nil
}
