package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/immunopass-go/internal/domain"
)

type seedData struct {
	Accounts      []domain.Account      `json:"accounts"`
	Organizations []domain.Organization `json:"organizations"`
}

type accountWriter interface {
	Put(ctx context.Context, a *domain.Account) error
}

type organizationWriter interface {
	Put(ctx context.Context, o *domain.Organization) error
}

// seed loads accounts and organizations from a JSON file. Existing rows with
// the same ids are overwritten.
func seed(ctx context.Context, path string, accounts accountWriter, orgs organizationWriter) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var data seedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}
	for i := range data.Organizations {
		if err := orgs.Put(ctx, &data.Organizations[i]); err != nil {
			return fmt.Errorf("seed organization %s: %w", data.Organizations[i].OrganizationID, err)
		}
	}
	for i := range data.Accounts {
		if err := accounts.Put(ctx, &data.Accounts[i]); err != nil {
			return fmt.Errorf("seed account %s: %w", data.Accounts[i].AccountID, err)
		}
	}
	slog.Info("seed data loaded", "accounts", len(data.Accounts), "organizations", len(data.Organizations))
	return nil
}
