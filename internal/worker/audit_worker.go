package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/session"
)

// AuditWorker turns ledger change events into audit log lines.
type AuditWorker struct {
	logger    *log.Logger
	processed atomic.Int64
	rejected  atomic.Int64
}

func NewAuditWorker(logger *log.Logger) *AuditWorker {
	return &AuditWorker{logger: logger.WithComponent(log.ComponentAudit)}
}

// HandleLedgerEvent records one event. Events naming an invalid tenant or an
// unknown operation are logged and dropped rather than requeued, since
// redelivery cannot fix them.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if err := validateEvent(ev); err != nil {
		w.rejected.Add(1)
		w.logger.WarnContext(ctx, "Dropping malformed ledger event",
			log.FieldEventID, ev.ID, log.FieldError, err)
		return nil
	}

	kind := ev.Kind
	if kind == "" {
		kind = core.KindExpense
	}
	fields := log.NewFields().
		WithTenant(ev.Tenant).
		WithOperation(string(ev.Operation)).
		WithRecord(ev.Position, ev.Record)
	fields[log.FieldEventID] = ev.ID
	fields[log.FieldKind] = string(kind)
	fields["event_time"] = ev.Timestamp

	w.logger.InfoContext(ctx, "Ledger change", fields.ToSlice()...)
	w.processed.Add(1)
	return nil
}

// Handler adapts HandleLedgerEvent to the consumer callback shape.
func (w *AuditWorker) Handler(ctx context.Context) func(*amqp.LedgerEvent) error {
	return func(ev *amqp.LedgerEvent) error {
		return w.HandleLedgerEvent(ctx, ev)
	}
}

// Stats returns how many events were logged and how many were dropped.
func (w *AuditWorker) Stats() (processed, rejected int64) {
	return w.processed.Load(), w.rejected.Load()
}

func validateEvent(ev *amqp.LedgerEvent) error {
	if err := session.TenantID(ev.Tenant).Validate(); err != nil {
		return err
	}
	if ev.Kind != "" && !ev.Kind.Valid() {
		return fmt.Errorf("unknown ledger kind %q", ev.Kind)
	}
	switch ev.Operation {
	case core.OpCreated, core.OpUpdated, core.OpDeleted:
	default:
		return fmt.Errorf("unknown operation %q", ev.Operation)
	}
	if ev.Position < 0 {
		return fmt.Errorf("negative position %d", ev.Position)
	}
	return nil
}
