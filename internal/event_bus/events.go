package event_bus

// SpendChangedEvent is published by the ledger after every mutation that can
// change a project's spend ratio.
const SpendChangedEvent EventType = "ledger.spend.changed"

// SpendChanged carries the recomputed totals for a single project.
type SpendChanged struct {
	ProjectKey  string
	TotalBudget float64
	TotalSpend  float64
}
