// Package ledger owns a tenant's ordered record sequence and its CRUD and
// query operations.
//
// Records are addressed by zero-based position. Every operation reloads the
// sequence from the store, and every mutation saves the full sequence before
// returning, so positions obtained before a mutation are invalid afterwards.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/session"
	"ledger/internal/store"
)

// ChangePublisher is notified after each successful mutation.
type ChangePublisher interface {
	PublishChange(ctx context.Context, change core.Change) error
}

// Patch lists the fields an Edit overwrites. Nil fields keep their value.
type Patch struct {
	Description *string
	Category    *string
	Amount      *decimal.Decimal
	Date        *string
}

type Service struct {
	kind      core.Kind
	store     store.RecordStore
	publisher ChangePublisher
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher enables change events.
func WithPublisher(p ChangePublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithKind marks which record sequence the service manages. The default is
// core.KindExpense.
func WithKind(kind core.Kind) Option {
	return func(s *Service) { s.kind = kind }
}

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(rs store.RecordStore, opts ...Option) *Service {
	s := &Service{
		kind:   core.KindExpense,
		store:  rs,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the tenant's records in stored order.
func (s *Service) List(ctx context.Context) ([]core.Record, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return records, nil
}

// Get returns the record at position.
func (s *Service) Get(ctx context.Context, position int) (core.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return core.Record{}, err
	}
	if err := checkPosition(position, len(records)); err != nil {
		return core.Record{}, err
	}
	return records[position], nil
}

// Kind reports which record sequence the service manages.
func (s *Service) Kind() core.Kind {
	return s.kind
}

// Add validates and appends a record, returning it with the position it was
// stored at. An empty date means today.
func (s *Service) Add(ctx context.Context, description, category string, amount decimal.Decimal, date string) (core.Record, int, error) {
	if strings.TrimSpace(date) == "" {
		date = core.DateOf(s.now()).String()
	}
	rec, err := core.NewRecord(description, category, amount, date)
	if err != nil {
		return core.Record{}, 0, err
	}

	records, err := s.List(ctx)
	if err != nil {
		return core.Record{}, 0, err
	}
	position := len(records)
	records = append(records, rec)
	if err := s.save(ctx, records); err != nil {
		return core.Record{}, 0, err
	}

	s.logger.InfoContext(ctx, "Record added",
		"tenant", session.TenantOrDefault(ctx).String(),
		"kind", string(s.kind),
		"position", position,
		"category", rec.Category,
		"amount", rec.Amount.String(),
		"date", rec.Date.String())
	s.publish(ctx, core.Change{Operation: core.OpCreated, Position: position, Record: rec})
	return rec, position, nil
}

// Edit overwrites the supplied fields of the record at position and
// re-validates the result.
func (s *Service) Edit(ctx context.Context, position int, patch Patch) (core.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return core.Record{}, err
	}
	if err := checkPosition(position, len(records)); err != nil {
		return core.Record{}, err
	}

	current := records[position]
	desc, cat, amount, date := current.Description, current.Category, current.Amount, current.Date.String()
	if patch.Description != nil {
		desc = *patch.Description
	}
	if patch.Category != nil {
		cat = *patch.Category
	}
	if patch.Amount != nil {
		amount = *patch.Amount
	}
	if patch.Date != nil {
		date = *patch.Date
	}

	updated, err := core.NewRecord(desc, cat, amount, date)
	if err != nil {
		return core.Record{}, err
	}
	records[position] = updated
	if err := s.save(ctx, records); err != nil {
		return core.Record{}, err
	}

	s.logger.InfoContext(ctx, "Record updated",
		"tenant", session.TenantOrDefault(ctx).String(),
		"kind", string(s.kind),
		"position", position)
	s.publish(ctx, core.Change{Operation: core.OpUpdated, Position: position, Record: updated})
	return updated, nil
}

// Delete removes and returns the record at position. Higher positions shift
// down by one.
func (s *Service) Delete(ctx context.Context, position int) (core.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return core.Record{}, err
	}
	if err := checkPosition(position, len(records)); err != nil {
		return core.Record{}, err
	}

	removed := records[position]
	remaining := make([]core.Record, 0, len(records)-1)
	remaining = append(remaining, records[:position]...)
	remaining = append(remaining, records[position+1:]...)
	if err := s.save(ctx, remaining); err != nil {
		return core.Record{}, err
	}

	s.logger.InfoContext(ctx, "Record deleted",
		"tenant", session.TenantOrDefault(ctx).String(),
		"kind", string(s.kind),
		"position", position)
	s.publish(ctx, core.Change{Operation: core.OpDeleted, Position: position, Record: removed})
	return removed, nil
}

// FilterByDate returns the records whose date equals date exactly.
func (s *Service) FilterByDate(ctx context.Context, date string) ([]core.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []core.Record{}
	for _, r := range records {
		if r.Date.String() == date {
			out = append(out, r)
		}
	}
	return out, nil
}

// FilterByMonth returns the records whose YYYY-MM prefix equals month, in
// their original relative order.
func (s *Service) FilterByMonth(ctx context.Context, month string) ([]core.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return InMonth(records, month), nil
}

// FilterByCategory returns the records whose category matches category
// case-insensitively. A non-empty month narrows the result to that YYYY-MM
// first.
func (s *Service) FilterByCategory(ctx context.Context, category, month string) ([]core.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if month != "" {
		records = InMonth(records, month)
	}
	category = strings.TrimSpace(category)
	out := []core.Record{}
	for _, r := range records {
		if strings.EqualFold(r.Category, category) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Export writes every record through sink. Exporting an empty ledger is a
// caller error.
func (s *Service) Export(ctx context.Context, sink export.Sink) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return core.ErrEmptyLedger
	}
	if err := sink.WriteRecords(records); err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger exported",
		"tenant", session.TenantOrDefault(ctx).String(),
		"kind", string(s.kind),
		"count", len(records))
	return nil
}

// InMonth filters records by YYYY-MM prefix.
func InMonth(records []core.Record, month string) []core.Record {
	out := []core.Record{}
	for _, r := range records {
		if r.Date.MonthKey() == month {
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) save(ctx context.Context, records []core.Record) error {
	if err := s.store.Save(ctx, records); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			"tenant", session.TenantOrDefault(ctx).String(), "kind", string(s.kind), "error", err)
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// publish never fails the mutation; the ledger is already persisted.
func (s *Service) publish(ctx context.Context, change core.Change) {
	if s.publisher == nil {
		return
	}
	change.Kind = s.kind
	if err := s.publisher.PublishChange(ctx, change); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			"kind", string(change.Kind), "operation", change.Operation, "position", change.Position, "error", err)
	}
}

func checkPosition(position, length int) error {
	if position < 0 || position >= length {
		return fmt.Errorf("%w: position %d outside [0, %d)", core.ErrNotFound, position, length)
	}
	return nil
}
