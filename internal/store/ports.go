// Package store defines the persistence ports the ledger core consumes.
// Implementations scope every call to the tenant carried by the context.
package store

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordStore loads and saves a tenant's whole record sequence.
	RecordStore interface {
		// Load returns the stored sequence. A missing or unreadable backing
		// document yields an empty sequence, not an error.
		Load(ctx context.Context) ([]core.Record, error)
		// Save replaces the stored sequence atomically.
		Save(ctx context.Context, records []core.Record) error
	}

	// BudgetStore persists the monthly budget state.
	BudgetStore interface {
		LoadBudget(ctx context.Context) (core.BudgetState, error)
		SaveBudget(ctx context.Context, state core.BudgetState) error
	}

	// Backend is the union every concrete store provides. The embedded
	// RecordStore holds expenses; Incomes returns the income sequence kept
	// under the same tenant.
	Backend interface {
		RecordStore
		BudgetStore
		Incomes() RecordStore
	}
)
