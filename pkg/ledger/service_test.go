package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moeeztaher/budget-tracker/internal/event_bus"
	"github.com/moeeztaher/budget-tracker/internal/utils"
	"github.com/moeeztaher/budget-tracker/pkg/alert"
	"github.com/moeeztaher/budget-tracker/pkg/jira"
	"github.com/moeeztaher/budget-tracker/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServiceTest(t *testing.T) (*ServiceImpl, *jira.ClientStub, *event_bus.EventBus, context.Context) {
	jiraStub := jira.NewClientStub()
	bus := event_bus.NewEventBus()
	clock := &utils.MockClock{FixedNow: time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)}
	service := NewService(jiraStub, bus, clock)
	t.Cleanup(func() {
		jiraStub.Reset()
	})
	return service, jiraStub, bus, context.Background()
}

func TestServiceImpl_CreateEntry(t *testing.T) {
	t.Run("should assign id and default date", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)

		// when
		created, err := service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ",
			BudgetName: "Licenses",
			Amount:     100,
		})

		// then
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "2024-03-15", created.Date)
		assert.Len(t, service.GetAll(ctx), 1)
	})

	t.Run("should keep provided id and date", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)

		// when
		created, err := service.CreateEntry(ctx, Entry{
			ID:         "entry-1",
			ProjectKey: "PRJ",
			BudgetName: "Licenses",
			Date:       "2024-01-01",
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, "entry-1", created.ID)
		assert.Equal(t, "2024-01-01", created.Date)
	})

	t.Run("should reject entry without budget name", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)

		// when
		_, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", Amount: 100})

		// then
		require.ErrorIs(t, err, ErrBudgetNameRequired)
		assert.Empty(t, service.GetAll(ctx))
		assert.Equal(t, 0.0, service.GetRemainingBudget(ctx, "PRJ"))
	})
}

func TestServiceImpl_RemainingBudgetInvariant(t *testing.T) {
	// With no interleaved SetProjectBudget, remaining == total - sum(amount)
	// after every mutation.
	service, _, _, ctx := setupServiceTest(t)
	service.SetProjectBudget(ctx, "PRJ", 1000)

	first, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "Hardware", Amount: 300})
	require.NoError(t, err)
	assert.Equal(t, 700.0, service.GetRemainingBudget(ctx, "PRJ"))

	second, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "Travel", Amount: 200})
	require.NoError(t, err)
	assert.Equal(t, 500.0, service.GetRemainingBudget(ctx, "PRJ"))

	// correction entry with negative amount
	_, err = service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "Refund", Amount: -50})
	require.NoError(t, err)
	assert.Equal(t, 550.0, service.GetRemainingBudget(ctx, "PRJ"))

	second.Amount = 250
	_, err = service.UpdateEntry(ctx, second.ID, second)
	require.NoError(t, err)
	assert.Equal(t, 500.0, service.GetRemainingBudget(ctx, "PRJ"))

	require.NoError(t, service.DeleteEntry(ctx, first.ID))
	assert.Equal(t, 800.0, service.GetRemainingBudget(ctx, "PRJ"))
	assert.Equal(t, service.GetTotalBudget(ctx, "PRJ")-service.GetTotalExpenses(ctx, "PRJ"),
		service.GetRemainingBudget(ctx, "PRJ"))
}

func TestServiceImpl_UpdateEntry(t *testing.T) {
	t.Run("should fail for unknown id", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)

		// when
		_, err := service.UpdateEntry(ctx, "missing", Entry{ProjectKey: "PRJ", BudgetName: "X"})

		// then
		require.ErrorIs(t, err, ErrEntryNotFound)
		assert.Empty(t, service.GetAll(ctx))
	})

	t.Run("should replace entry in place", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)
		created, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "Hardware", Amount: 100})
		require.NoError(t, err)

		// when
		updated, err := service.UpdateEntry(ctx, created.ID, Entry{
			ProjectKey: "PRJ",
			BudgetName: "Hardware (revised)",
			Amount:     150,
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		entries := service.GetProjectExpenses(ctx, "PRJ")
		require.Len(t, entries, 1)
		assert.Equal(t, "Hardware (revised)", entries[0].BudgetName)
		assert.Equal(t, 150.0, entries[0].Amount)
	})
}

func TestServiceImpl_DeleteEntry(t *testing.T) {
	t.Run("should fail for unknown id", func(t *testing.T) {
		service, _, _, ctx := setupServiceTest(t)

		err := service.DeleteEntry(ctx, "missing")

		require.ErrorIs(t, err, ErrEntryNotFound)
	})

	t.Run("should remove entry and credit its amount", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)
		service.SetProjectBudget(ctx, "PRJ", 500)
		created, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "Travel", Amount: 200})
		require.NoError(t, err)

		// when
		err = service.DeleteEntry(ctx, created.ID)

		// then
		require.NoError(t, err)
		assert.Empty(t, service.GetProjectExpenses(ctx, "PRJ"))
		assert.Equal(t, 500.0, service.GetRemainingBudget(ctx, "PRJ"))
	})
}

func TestServiceImpl_SetProjectBudget(t *testing.T) {
	t.Run("should reset remaining without re-subtracting existing spend", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)
		service.SetProjectBudget(ctx, "PRJ", 1000)
		_, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "Hardware", Amount: 400})
		require.NoError(t, err)

		// when
		service.SetProjectBudget(ctx, "PRJ", 2000)

		// then remaining diverges from totalBudget - totalSpend until the
		// next mutation; overview recomputes spend on demand.
		overview := service.GetOverview(ctx, "PRJ")
		assert.Equal(t, 2000.0, overview.TotalBudget)
		assert.Equal(t, 400.0, overview.TotalSpend)
		assert.Equal(t, 2000.0, overview.RemainingBudget)
	})
}

func TestServiceImpl_GetAll(t *testing.T) {
	// entries come back in insertion order, across projects
	service, _, _, ctx := setupServiceTest(t)
	_, err := service.CreateEntry(ctx, Entry{ProjectKey: "A", BudgetName: "first"})
	require.NoError(t, err)
	_, err = service.CreateEntry(ctx, Entry{ProjectKey: "B", BudgetName: "second"})
	require.NoError(t, err)
	_, err = service.CreateEntry(ctx, Entry{ProjectKey: "A", BudgetName: "third"})
	require.NoError(t, err)

	all := service.GetAll(ctx)

	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].BudgetName)
	assert.Equal(t, "second", all[1].BudgetName)
	assert.Equal(t, "third", all[2].BudgetName)

	projectA := service.GetProjectExpenses(ctx, "A")
	require.Len(t, projectA, 2)
	assert.Equal(t, "first", projectA[0].BudgetName)
	assert.Equal(t, "third", projectA[1].BudgetName)
}

func TestServiceImpl_ExpensesByCategory(t *testing.T) {
	// given
	service, _, _, ctx := setupServiceTest(t)
	_, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "a", BudgetCategory: "Hardware", Amount: 100})
	require.NoError(t, err)
	_, err = service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "b", BudgetCategory: "Hardware", Amount: 50})
	require.NoError(t, err)
	_, err = service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "c", BudgetCategory: "Travel", Amount: 75})
	require.NoError(t, err)
	_, err = service.CreateEntry(ctx, Entry{ProjectKey: "OTHER", BudgetName: "d", BudgetCategory: "Hardware", Amount: 999})
	require.NoError(t, err)

	// when
	totals := service.ExpensesByCategory(ctx, "PRJ")

	// then
	assert.ElementsMatch(t, []NamedTotal{
		{Name: "Hardware", Value: 150},
		{Name: "Travel", Value: 75},
	}, totals)
}

func TestServiceImpl_CumulativeExpenses(t *testing.T) {
	t.Run("should order by date with one point per entry", func(t *testing.T) {
		// given entries created out of date order
		service, _, _, ctx := setupServiceTest(t)
		_, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "late", Amount: 30, Date: "2024-03-10"})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "early", Amount: 10, Date: "2024-01-05"})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "middle", Amount: 20, Date: "2024-02-20"})
		require.NoError(t, err)

		// when
		points := service.CumulativeExpenses(ctx, "PRJ")

		// then
		assert.Equal(t, []CumulativePoint{
			{Date: "2024-01-05", Amount: 10},
			{Date: "2024-02-20", Amount: 30},
			{Date: "2024-03-10", Amount: 60},
		}, points)
	})

	t.Run("should emit one point per entry on duplicate dates", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)
		_, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "a", Amount: 10, Date: "2024-01-05"})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "b", Amount: 5, Date: "2024-01-05"})
		require.NoError(t, err)

		// when
		points := service.CumulativeExpenses(ctx, "PRJ")

		// then
		assert.Equal(t, []CumulativePoint{
			{Date: "2024-01-05", Amount: 10},
			{Date: "2024-01-05", Amount: 15},
		}, points)
	})
}

func TestServiceImpl_ExpensesByPhase(t *testing.T) {
	t.Run("should attribute entries to epics through linked issues", func(t *testing.T) {
		// given
		service, jiraStub, _, ctx := setupServiceTest(t)
		jiraStub.SetEpics("PRJ", []jira.Issue{
			{Key: "PRJ-1", Summary: "Design Phase", Type: "Epic"},
			{Key: "PRJ-2", Summary: "Build Phase", Type: "Epic"},
		})
		jiraStub.SetEpicIssues("PRJ-1", []jira.Issue{{Key: "PRJ-10"}, {Key: "PRJ-11"}})
		jiraStub.SetEpicIssues("PRJ-2", []jira.Issue{{Key: "PRJ-20"}})

		_, err := service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "mockups", Amount: 100,
			SelectedIssues: []IssueRef{{Key: "PRJ-10"}},
		})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "epic-level", Amount: 40,
			SelectedIssues: []IssueRef{{Key: "PRJ-1"}},
		})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "build", Amount: 25,
			SelectedIssues: []IssueRef{{Key: "PRJ-20"}},
		})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "unattributed", Amount: 999,
		})
		require.NoError(t, err)

		// when
		totals := service.ExpensesByPhase(ctx, "PRJ")

		// then
		assert.ElementsMatch(t, []NamedTotal{
			{Name: "Design Phase", Value: 140},
			{Name: "Build Phase", Value: 25},
		}, totals)
	})

	t.Run("should fold hierarchy failure to empty result", func(t *testing.T) {
		// given
		service, jiraStub, _, ctx := setupServiceTest(t)
		jiraStub.SetFindEpicsErr(errors.New("jira unavailable"))
		_, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "a", Amount: 10})
		require.NoError(t, err)

		// when
		totals := service.ExpensesByPhase(ctx, "PRJ")

		// then
		assert.Empty(t, totals)
	})
}

func TestServiceImpl_ExpensesForIssue(t *testing.T) {
	t.Run("should union epic and children without duplicates", func(t *testing.T) {
		// given
		service, jiraStub, _, ctx := setupServiceTest(t)
		jiraStub.SetEpics("PRJ", []jira.Issue{{Key: "PRJ-1", Summary: "Design Phase", Type: "Epic"}})
		jiraStub.SetEpicIssues("PRJ-1", []jira.Issue{{Key: "PRJ-10"}, {Key: "PRJ-11"}})

		// attributed to both the epic and one of its children
		_, err := service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "both", Amount: 10,
			SelectedIssues: []IssueRef{{Key: "PRJ-1"}, {Key: "PRJ-10"}},
		})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "child-only", Amount: 20,
			SelectedIssues: []IssueRef{{Key: "PRJ-11"}},
		})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "unrelated", Amount: 30,
			SelectedIssues: []IssueRef{{Key: "PRJ-99"}},
		})
		require.NoError(t, err)

		// when
		entries := service.ExpensesForIssue(ctx, "PRJ-1")

		// then
		require.Len(t, entries, 2)
		assert.Equal(t, "both", entries[0].BudgetName)
		assert.Equal(t, "child-only", entries[1].BudgetName)
	})

	t.Run("should match only the issue itself for non-epics", func(t *testing.T) {
		// given
		service, _, _, ctx := setupServiceTest(t)
		_, err := service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "direct", Amount: 10,
			SelectedIssues: []IssueRef{{Key: "PRJ-10"}},
		})
		require.NoError(t, err)
		_, err = service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "other", Amount: 20,
			SelectedIssues: []IssueRef{{Key: "PRJ-11"}},
		})
		require.NoError(t, err)

		// when
		entries := service.ExpensesForIssue(ctx, "PRJ-10")

		// then
		require.Len(t, entries, 1)
		assert.Equal(t, "direct", entries[0].BudgetName)
	})

	t.Run("should fall back to direct matches when the epic check fails", func(t *testing.T) {
		// given
		service, jiraStub, _, ctx := setupServiceTest(t)
		jiraStub.SetIsEpicErr(errors.New("jira unavailable"))
		_, err := service.CreateEntry(ctx, Entry{
			ProjectKey: "PRJ", BudgetName: "direct", Amount: 10,
			SelectedIssues: []IssueRef{{Key: "PRJ-1"}},
		})
		require.NoError(t, err)

		// when
		entries := service.ExpensesForIssue(ctx, "PRJ-1")

		// then
		require.Len(t, entries, 1)
	})
}

// TestLedgerAlertScenario drives the ledger with the alert engine subscribed
// the same way the application wires them.
func TestLedgerAlertScenario(t *testing.T) {
	// given thresholds {50, 80} and a project with a 1000 budget
	service, jiraStub, bus, ctx := setupServiceTest(t)
	mailer := notification.NewStubMailer()
	alertService := alert.NewThresholdService(jiraStub, mailer, "Project Manager")
	event_bus.SubscribeTyped[event_bus.SpendChanged](bus, event_bus.SpendChangedEvent,
		func(e event_bus.EventT[event_bus.SpendChanged]) error {
			alertService.CheckAndAlert(e.Context(), e.Data.ProjectKey, e.Data.TotalBudget, e.Data.TotalSpend)
			return nil
		})

	jiraStub.SetRoleUsers("PRJ", []jira.User{
		{Name: "pm", DisplayName: "Project Manager", EmailAddress: "pm@example.com"},
	})
	alertService.AddThreshold(50)
	alertService.AddThreshold(80)
	service.SetProjectBudget(ctx, "PRJ", 1000)

	// when 60% is spent
	first, err := service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "phase one", Amount: 600})
	require.NoError(t, err)

	// then exactly one alert fires, for threshold 50
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "pm@example.com", sent[0].To)
	assert.Equal(t, "Budget Alert for Project PRJ", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "reached 50%")

	// when spend grows to 85%
	_, err = service.CreateEntry(ctx, Entry{ProjectKey: "PRJ", BudgetName: "phase two", Amount: 250})
	require.NoError(t, err)

	// then exactly one more alert fires, for threshold 80
	sent = mailer.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Body, "reached 80%")

	// when spend drops back to 25%
	require.NoError(t, service.DeleteEntry(ctx, first.ID))

	// then the watermark does not reset downward and no alert fires
	assert.Len(t, mailer.Sent(), 2)
}
