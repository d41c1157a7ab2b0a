package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/session"
)

// LedgerEvent is published after every successful ledger mutation.
// Position is only meaningful relative to the ledger state at Timestamp.
type LedgerEvent struct {
	ID        string        `json:"id"`
	Tenant    string        `json:"tenant"`
	Kind      core.Kind     `json:"kind"`
	Operation core.ChangeOp `json:"operation"`
	Position  int           `json:"position"`
	Record    core.Record   `json:"record"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id and the current time. A
// change without a kind is an expense change.
func NewLedgerEvent(tenant session.TenantID, change core.Change) *LedgerEvent {
	kind := change.Kind
	if kind == "" {
		kind = core.KindExpense
	}
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Tenant:    string(tenant),
		Kind:      kind,
		Operation: change.Operation,
		Position:  change.Position,
		Record:    change.Record,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
