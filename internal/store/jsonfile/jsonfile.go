// Package jsonfile stores each tenant's ledger as a JSON document on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"ledger/internal/core"
	"ledger/internal/session"
	"ledger/internal/store"
)

const (
	defaultRecordsFile = "expenses.json"
	defaultIncomesFile = "incomes.json"
	defaultBudgetFile  = "budget.json"
)

type Store struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// New returns a store rooted at dir. The directory is created on first save.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Load reads the tenant's expense document. Missing files, undecodable JSON
// and records that fail validation all yield an empty sequence.
func (s *Store) Load(ctx context.Context) ([]core.Record, error) {
	return s.loadRecords(ctx, defaultRecordsFile)
}

// Save writes the full expense sequence through a temp file and rename.
func (s *Store) Save(ctx context.Context, records []core.Record) error {
	return s.saveRecords(ctx, defaultRecordsFile, records)
}

// Incomes returns the income sequence, stored in incomes.json or
// <tenant>_incomes.json with the same load rules as expenses.
func (s *Store) Incomes() store.RecordStore {
	return incomes{s}
}

type incomes struct{ s *Store }

func (i incomes) Load(ctx context.Context) ([]core.Record, error) {
	return i.s.loadRecords(ctx, defaultIncomesFile)
}

func (i incomes) Save(ctx context.Context, records []core.Record) error {
	return i.s.saveRecords(ctx, defaultIncomesFile, records)
}

func (s *Store) loadRecords(ctx context.Context, base string) ([]core.Record, error) {
	path, err := s.tenantFile(ctx, base)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WarnContext(ctx, "Unreadable ledger file, starting empty", "path", path, "error", err)
		}
		return []core.Record{}, nil
	}

	var records []core.Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.WarnContext(ctx, "Malformed ledger file, starting empty", "path", path, "error", err)
		return []core.Record{}, nil
	}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Invalid record in ledger file, starting empty",
				"path", path, "position", i, "error", err)
			return []core.Record{}, nil
		}
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

func (s *Store) saveRecords(ctx context.Context, base string, records []core.Record) error {
	path, err := s.tenantFile(ctx, base)
	if err != nil {
		return err
	}
	if records == nil {
		records = []core.Record{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(path, records)
}

func (s *Store) LoadBudget(ctx context.Context) (core.BudgetState, error) {
	path, err := s.budgetPath(ctx)
	if err != nil {
		return core.BudgetState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WarnContext(ctx, "Unreadable budget file, treating as unset", "path", path, "error", err)
		}
		return core.BudgetState{}, nil
	}
	var state core.BudgetState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.WarnContext(ctx, "Malformed budget file, treating as unset", "path", path, "error", err)
		return core.BudgetState{}, nil
	}
	return state, nil
}

func (s *Store) SaveBudget(ctx context.Context, state core.BudgetState) error {
	path, err := s.budgetPath(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(path, state)
}

func (s *Store) budgetPath(ctx context.Context) (string, error) {
	return s.tenantFile(ctx, defaultBudgetFile)
}

func (s *Store) tenantFile(ctx context.Context, base string) (string, error) {
	tenant := session.TenantOrDefault(ctx)
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	if tenant == session.DefaultTenant {
		return filepath.Join(s.dir, base), nil
	}
	return filepath.Join(s.dir, string(tenant)+"_"+base), nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
