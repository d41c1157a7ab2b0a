package core

// Kind names one of a tenant's record sequences. Expenses feed analytics,
// budget and alerts; incomes are kept alongside with the same positional
// CRUD.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// ChangeOp names a ledger mutation.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// Change describes one successful ledger mutation. Position is the record's
// position at the time of the change.
type Change struct {
	Kind      Kind     `json:"kind"`
	Operation ChangeOp `json:"operation"`
	Position  int      `json:"position"`
	Record    Record   `json:"record"`
}
