package memory

import (
	"context"
	"sync"

	"ledger/internal/core"
	"ledger/internal/session"
	"ledger/internal/store"
)

type recordKey struct {
	kind   core.Kind
	tenant session.TenantID
}

type Store struct {
	mu      sync.Mutex
	records map[recordKey][]core.Record
	budgets map[session.TenantID]core.BudgetState
}

func New() *Store {
	return &Store{
		records: make(map[recordKey][]core.Record),
		budgets: make(map[session.TenantID]core.BudgetState),
	}
}

// Seed replaces the expenses of the default tenant.
func (s *Store) Seed(records []core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{core.KindExpense, session.DefaultTenant}] = append([]core.Record(nil), records...)
}

// Load returns a copy of the tenant's expenses.
func (s *Store) Load(ctx context.Context) ([]core.Record, error) {
	return s.load(ctx, core.KindExpense)
}

// Save stores a copy so later caller mutations cannot leak in.
func (s *Store) Save(ctx context.Context, records []core.Record) error {
	return s.save(ctx, core.KindExpense, records)
}

// Incomes returns the tenant-scoped income sequence of this store.
func (s *Store) Incomes() store.RecordStore {
	return incomes{s}
}

func (s *Store) load(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	key := recordKey{kind, session.TenantOrDefault(ctx)}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record{}, s.records[key]...), nil
}

func (s *Store) save(ctx context.Context, kind core.Kind, records []core.Record) error {
	key := recordKey{kind, session.TenantOrDefault(ctx)}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]core.Record(nil), records...)
	return nil
}

func (s *Store) LoadBudget(ctx context.Context) (core.BudgetState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgets[session.TenantOrDefault(ctx)], nil
}

func (s *Store) SaveBudget(ctx context.Context, state core.BudgetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[session.TenantOrDefault(ctx)] = state
	return nil
}

type incomes struct{ s *Store }

func (i incomes) Load(ctx context.Context) ([]core.Record, error) {
	return i.s.load(ctx, core.KindIncome)
}

func (i incomes) Save(ctx context.Context, records []core.Record) error {
	return i.s.save(ctx, core.KindIncome, records)
}
