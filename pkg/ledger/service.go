package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/moeeztaher/budget-tracker/internal/event_bus"
	"github.com/moeeztaher/budget-tracker/internal/utils"
	"github.com/moeeztaher/budget-tracker/pkg/jira"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	UpdateEntry(ctx context.Context, id string, entry Entry) (Entry, error)
	DeleteEntry(ctx context.Context, id string) error
	SetProjectBudget(ctx context.Context, projectKey string, totalBudget float64)
	GetAll(ctx context.Context) []Entry
	GetProjectExpenses(ctx context.Context, projectKey string) []Entry
	GetOverview(ctx context.Context, projectKey string) Overview
	GetTotalBudget(ctx context.Context, projectKey string) float64
	GetTotalExpenses(ctx context.Context, projectKey string) float64
	GetRemainingBudget(ctx context.Context, projectKey string) float64
	ExpensesByCategory(ctx context.Context, projectKey string) []NamedTotal
	ExpensesByPhase(ctx context.Context, projectKey string) []NamedTotal
	CumulativeExpenses(ctx context.Context, projectKey string) []CumulativePoint
	ExpensesForIssue(ctx context.Context, issueKey string) []Entry
}

// projectBudget is the per-project budget state. remaining is maintained
// incrementally on every mutation; SetProjectBudget resets it to the new
// total without re-subtracting existing spend.
type projectBudget struct {
	total     float64
	remaining float64
}

// ServiceImpl keeps all entries in memory, in insertion order. A single
// mutex guards entries and project totals; gateway lookups and the
// spend-changed trigger always run outside of it.
type ServiceImpl struct {
	mu       sync.Mutex
	entries  []Entry
	projects map[string]*projectBudget

	jiraClient jira.Client
	bus        *event_bus.EventBus
	clock      utils.Clock
}

func NewService(jiraClient jira.Client, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		projects:   make(map[string]*projectBudget),
		jiraClient: jiraClient,
		bus:        bus,
		clock:      clock,
	}
}

func (s *ServiceImpl) project(key string) *projectBudget {
	p, ok := s.projects[key]
	if !ok {
		p = &projectBudget{}
		s.projects[key] = p
	}
	return p
}

// totalsLocked recomputes a project's spend. Callers must hold s.mu.
func (s *ServiceImpl) totalsLocked(projectKey string) (totalBudget, totalSpend float64) {
	for _, e := range s.entries {
		if e.ProjectKey == projectKey {
			totalSpend += e.Amount
		}
	}
	return s.project(projectKey).total, totalSpend
}

// publishSpendChanged triggers the threshold check. Publish errors are
// logged and never surfaced to the mutating caller.
func (s *ServiceImpl) publishSpendChanged(ctx context.Context, projectKey string, totalBudget, totalSpend float64) {
	event := event_bus.NewEvent(ctx, event_bus.SpendChangedEvent, event_bus.SpendChanged{
		ProjectKey:  projectKey,
		TotalBudget: totalBudget,
		TotalSpend:  totalSpend,
	})
	if err := s.bus.Publish(event); err != nil {
		log.Errorf("spend-changed handling failed for project %s: %v", projectKey, err)
	}
}

// CreateEntry validates and stores a new entry, adjusts the project's
// remaining budget, and triggers the threshold check.
func (s *ServiceImpl) CreateEntry(ctx context.Context, entry Entry) (Entry, error) {
	if entry.BudgetName == "" {
		return Entry{}, ErrBudgetNameRequired
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Date == "" {
		entry.Date = s.clock.Now().Format("2006-01-02")
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	project := s.project(entry.ProjectKey)
	project.remaining -= entry.Amount
	totalBudget, totalSpend := s.totalsLocked(entry.ProjectKey)
	s.mu.Unlock()

	s.publishSpendChanged(ctx, entry.ProjectKey, totalBudget, totalSpend)
	return entry, nil
}

// UpdateEntry replaces the entry with the given id and adjusts the project's
// remaining budget by the amount delta.
func (s *ServiceImpl) UpdateEntry(ctx context.Context, id string, entry Entry) (Entry, error) {
	entry.ID = id

	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return Entry{}, ErrEntryNotFound
	}
	old := s.entries[idx]
	s.entries[idx] = entry

	project := s.project(entry.ProjectKey)
	project.remaining -= entry.Amount - old.Amount
	totalBudget, totalSpend := s.totalsLocked(entry.ProjectKey)
	s.mu.Unlock()

	s.publishSpendChanged(ctx, entry.ProjectKey, totalBudget, totalSpend)
	return entry, nil
}

// DeleteEntry removes the entry with the given id and credits its amount
// back to the project's remaining budget.
func (s *ServiceImpl) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrEntryNotFound
	}
	removed := s.entries[idx]
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)

	project := s.project(removed.ProjectKey)
	project.remaining += removed.Amount
	totalBudget, totalSpend := s.totalsLocked(removed.ProjectKey)
	s.mu.Unlock()

	s.publishSpendChanged(ctx, removed.ProjectKey, totalBudget, totalSpend)
	return nil
}

func (s *ServiceImpl) findLocked(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// SetProjectBudget sets the project's total budget and resets the remaining
// budget to it. Existing spend is not re-subtracted; GetOverview recomputes
// spend on demand, so the two views may diverge after this call.
func (s *ServiceImpl) SetProjectBudget(ctx context.Context, projectKey string, totalBudget float64) {
	s.mu.Lock()
	project := s.project(projectKey)
	project.total = totalBudget
	project.remaining = totalBudget
	_, totalSpend := s.totalsLocked(projectKey)
	s.mu.Unlock()

	s.publishSpendChanged(ctx, projectKey, totalBudget, totalSpend)
}

// GetAll returns every entry in insertion order.
func (s *ServiceImpl) GetAll(ctx context.Context) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Entry, len(s.entries))
	copy(result, s.entries)
	return result
}

// GetProjectExpenses returns the project's entries in insertion order.
func (s *ServiceImpl) GetProjectExpenses(ctx context.Context, projectKey string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectEntriesLocked(projectKey)
}

func (s *ServiceImpl) projectEntriesLocked(projectKey string) []Entry {
	result := make([]Entry, 0)
	for _, e := range s.entries {
		if e.ProjectKey == projectKey {
			result = append(result, e)
		}
	}
	return result
}

func (s *ServiceImpl) GetOverview(ctx context.Context, projectKey string) Overview {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalBudget, totalSpend := s.totalsLocked(projectKey)
	return Overview{
		TotalBudget:     totalBudget,
		TotalSpend:      totalSpend,
		RemainingBudget: s.project(projectKey).remaining,
	}
}

func (s *ServiceImpl) GetTotalBudget(ctx context.Context, projectKey string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project(projectKey).total
}

func (s *ServiceImpl) GetTotalExpenses(ctx context.Context, projectKey string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, totalSpend := s.totalsLocked(projectKey)
	return totalSpend
}

func (s *ServiceImpl) GetRemainingBudget(ctx context.Context, projectKey string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project(projectKey).remaining
}

// ExpensesByCategory groups the project's entries by category and sums the
// amounts per group. Group order is unspecified.
func (s *ServiceImpl) ExpensesByCategory(ctx context.Context, projectKey string) []NamedTotal {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[string]float64)
	for _, e := range s.entries {
		if e.ProjectKey == projectKey {
			totals[e.BudgetCategory] += e.Amount
		}
	}

	result := make([]NamedTotal, 0, len(totals))
	for name, value := range totals {
		result = append(result, NamedTotal{Name: name, Value: value})
	}
	return result
}

// ExpensesByPhase sums, for every epic of the project, the amounts of all
// entries attributed to the epic itself or to any of its linked issues. A
// hierarchy lookup failure folds to an empty result for the affected epic.
func (s *ServiceImpl) ExpensesByPhase(ctx context.Context, projectKey string) []NamedTotal {
	epics, err := s.jiraClient.FindEpics(ctx, projectKey)
	if err != nil {
		log.Warnf("failed to find epics for project %s: %v", projectKey, err)
		return []NamedTotal{}
	}

	// Resolve each epic's issue set before touching ledger state.
	epicIssueKeys := make([]map[string]bool, len(epics))
	for i, epic := range epics {
		keys := map[string]bool{epic.Key: true}
		issues, err := s.jiraClient.FindEpicIssues(ctx, epic.Key)
		if err != nil {
			log.Warnf("failed to find issues for epic %s: %v", epic.Key, err)
		}
		for _, issue := range issues {
			keys[issue.Key] = true
		}
		epicIssueKeys[i] = keys
	}

	s.mu.Lock()
	entries := s.projectEntriesLocked(projectKey)
	s.mu.Unlock()

	result := make([]NamedTotal, 0, len(epics))
	for i, epic := range epics {
		total := 0.0
		for _, e := range entries {
			if anyIssueIn(e.SelectedIssues, epicIssueKeys[i]) {
				total += e.Amount
			}
		}
		result = append(result, NamedTotal{Name: epic.Summary, Value: total})
	}
	return result
}

// CumulativeExpenses returns the project's running spend total, one point
// per entry, sorted ascending by date. Dates compare lexicographically;
// entries sharing a date each produce their own point.
func (s *ServiceImpl) CumulativeExpenses(ctx context.Context, projectKey string) []CumulativePoint {
	s.mu.Lock()
	entries := s.projectEntriesLocked(projectKey)
	s.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})

	result := make([]CumulativePoint, 0, len(entries))
	runningTotal := 0.0
	for _, e := range entries {
		runningTotal += e.Amount
		result = append(result, CumulativePoint{Date: e.Date, Amount: runningTotal})
	}
	return result
}

// ExpensesForIssue returns every entry attributed to the given issue. For an
// epic the match set also includes all of its linked issues; an entry
// matching several keys of the set is still returned once.
func (s *ServiceImpl) ExpensesForIssue(ctx context.Context, issueKey string) []Entry {
	relatedKeys := map[string]bool{issueKey: true}

	isEpic, err := s.jiraClient.IsEpic(ctx, issueKey)
	if err != nil {
		log.Warnf("failed to check whether %s is an epic: %v", issueKey, err)
	}
	if isEpic {
		issues, err := s.jiraClient.FindEpicIssues(ctx, issueKey)
		if err != nil {
			log.Warnf("failed to find issues for epic %s: %v", issueKey, err)
		}
		for _, issue := range issues {
			relatedKeys[issue.Key] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Entry, 0)
	for _, e := range s.entries {
		if anyIssueIn(e.SelectedIssues, relatedKeys) {
			result = append(result, e)
		}
	}
	return result
}

func anyIssueIn(issues []IssueRef, keys map[string]bool) bool {
	for _, issue := range issues {
		if keys[issue.Key] {
			return true
		}
	}
	return false
}
