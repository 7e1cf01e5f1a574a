package ledger

import (
	"errors"
)

var (
	// ErrEntryNotFound is returned when an update or delete names an unknown entry id.
	ErrEntryNotFound = errors.New("budget entry not found")
	// ErrBudgetNameRequired is returned when an entry is created without a budget name.
	ErrBudgetNameRequired = errors.New("budget name is required")
)

// IssueRef points an entry at a work item in the external tracker.
type IssueRef struct {
	Key     string
	Summary string
	Type    string
}

// Entry is a single expense line item attributed to a project and optionally
// to specific work items.
type Entry struct {
	ID             string
	ProjectKey     string
	BudgetName     string
	BudgetCategory string
	Description    string
	// Amount may be zero or negative to represent corrections.
	Amount         float64
	SelectedIssues []IssueRef
	EpicKey        string
	IssueKey       string
	// Date is a free-form attribution date. ISO-8601 (YYYY-MM-DD) is expected;
	// the cumulative series sorts lexicographically, so non-ISO input sorts
	// incorrectly. Defaulted to the current date when empty.
	Date string
}

// Overview is the per-project budget summary. TotalSpend is recomputed on
// demand, while RemainingBudget is maintained incrementally, so the two can
// diverge after SetProjectBudget is called with entries already present.
type Overview struct {
	TotalBudget     float64
	TotalSpend      float64
	RemainingBudget float64
}

// NamedTotal is one group of the category or phase aggregation.
type NamedTotal struct {
	Name  string
	Value float64
}

// CumulativePoint is one point of the running spend series, one per entry.
type CumulativePoint struct {
	Date   string
	Amount float64
}
