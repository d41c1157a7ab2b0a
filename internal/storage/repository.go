package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/session"
	"ledger/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the relational RecordStore/BudgetStore. Rows carry an
// autoincrement id, but the ledger contract addresses records by position.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements store.RecordStore over the tenant's expenses. Rows that
// no longer parse as valid records make the whole sequence load as empty.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Record, error) {
	return r.loadRecords(ctx, core.KindExpense)
}

// Save implements store.RecordStore by replacing the tenant's expense rows
// in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, records []core.Record) error {
	return r.saveRecords(ctx, core.KindExpense, records)
}

// Incomes returns the income rows of the same database as a RecordStore.
func (r *SQLiteRepository) Incomes() store.RecordStore {
	return incomeRows{r}
}

type incomeRows struct{ r *SQLiteRepository }

func (i incomeRows) Load(ctx context.Context) ([]core.Record, error) {
	return i.r.loadRecords(ctx, core.KindIncome)
}

func (i incomeRows) Save(ctx context.Context, records []core.Record) error {
	return i.r.saveRecords(ctx, core.KindIncome, records)
}

func (r *SQLiteRepository) loadRecords(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	tenant, err := tenantKey(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT description, category, amount, date FROM records WHERE tenant = ? AND kind = ? ORDER BY position`,
		tenant, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []core.Record{}
	for rows.Next() {
		var desc, cat, amount, date string
		if err := rows.Scan(&desc, &cat, &amount, &date); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRow(desc, cat, amount, date)
		if err != nil {
			r.logger.WarnContext(ctx, "Malformed record row, loading empty ledger",
				"tenant", tenant, "kind", string(kind), "error", err)
			return []core.Record{}, nil
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (r *SQLiteRepository) saveRecords(ctx context.Context, kind core.Kind, records []core.Record) error {
	tenant, err := tenantKey(ctx)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE tenant = ? AND kind = ?`, tenant, string(kind)); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (tenant, kind, position, description, category, amount, date) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, tenant, string(kind), i, rec.Description, rec.Category, rec.Amount.String(), rec.Date.String()); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}

	r.logger.DebugContext(ctx, "Ledger saved to SQLite", "tenant", tenant, "kind", string(kind), "count", len(records))
	return nil
}

// LoadBudget implements store.BudgetStore.
func (r *SQLiteRepository) LoadBudget(ctx context.Context) (core.BudgetState, error) {
	tenant, err := tenantKey(ctx)
	if err != nil {
		return core.BudgetState{}, err
	}

	var (
		limit     decimal.NullDecimal
		updatedAt string
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT monthly_limit, updated_at FROM budgets WHERE tenant = ?`, tenant).
		Scan(&limit, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetState{}, nil
	}
	if err != nil {
		return core.BudgetState{}, fmt.Errorf("get budget: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return core.BudgetState{}, fmt.Errorf("parse budget timestamp: %w", err)
	}
	return core.BudgetState{MonthlyLimit: limit, UpdatedAt: ts}, nil
}

// SaveBudget implements store.BudgetStore.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, state core.BudgetState) error {
	tenant, err := tenantKey(ctx)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO budgets (tenant, monthly_limit, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(tenant) DO UPDATE SET monthly_limit = excluded.monthly_limit, updated_at = excluded.updated_at`,
		tenant, state.MonthlyLimit, state.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}

	r.logger.InfoContext(ctx, "Budget saved to SQLite", "tenant", tenant)
	return nil
}

func tenantKey(ctx context.Context) (string, error) {
	tenant := session.TenantOrDefault(ctx)
	if err := tenant.Validate(); err != nil {
		return "", err
	}
	return string(tenant), nil
}

func decodeRow(desc, cat, amount, date string) (core.Record, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Record{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Record{}, err
	}
	rec := core.Record{Description: desc, Category: cat, Amount: amt, Date: d}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	return rec, nil
}
