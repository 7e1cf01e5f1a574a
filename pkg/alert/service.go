package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/moeeztaher/budget-tracker/pkg/jira"
	"github.com/moeeztaher/budget-tracker/pkg/notification"
	log "github.com/sirupsen/logrus"
)

// gatewayTimeout bounds recipient resolution and mail delivery for a single
// alert so a slow collaborator cannot stall ledger mutations.
const gatewayTimeout = 10 * time.Second

type ThresholdService interface {
	Thresholds() []int
	AddThreshold(threshold int)
	RemoveThreshold(threshold int)
	CheckAndAlert(ctx context.Context, projectKey string, totalBudget, totalSpend float64)
}

// ThresholdServiceImpl owns the ordered threshold set and one watermark per
// project. The watermark records the highest threshold already alerted on,
// so a threshold fires exactly once on the way up and never again until the
// process restarts.
type ThresholdServiceImpl struct {
	mu             sync.Mutex
	thresholds     []int // distinct, descending
	highestCrossed map[string]int

	jiraClient  jira.Client
	mailer      notification.Mailer
	managerRole string
}

func NewThresholdService(jiraClient jira.Client, mailer notification.Mailer, managerRole string) *ThresholdServiceImpl {
	return &ThresholdServiceImpl{
		highestCrossed: make(map[string]int),
		jiraClient:     jiraClient,
		mailer:         mailer,
		managerRole:    managerRole,
	}
}

// Thresholds returns the configured thresholds in descending order.
func (s *ThresholdServiceImpl) Thresholds() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]int, len(s.thresholds))
	copy(result, s.thresholds)
	return result
}

// AddThreshold inserts a threshold; adding an existing value is a no-op.
func (s *ThresholdServiceImpl) AddThreshold(threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.thresholds {
		if t == threshold {
			return
		}
	}
	s.thresholds = append(s.thresholds, threshold)
	sort.Sort(sort.Reverse(sort.IntSlice(s.thresholds)))
}

// RemoveThreshold removes a threshold; removing an absent value is a no-op.
func (s *ThresholdServiceImpl) RemoveThreshold(threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.thresholds {
		if t == threshold {
			s.thresholds = append(s.thresholds[:i], s.thresholds[i+1:]...)
			return
		}
	}
}

// CheckAndAlert advances the project's watermark to the highest newly
// crossed threshold and emails the project's managers about it. At most one
// threshold transition fires per call: the watermark advances before lower
// thresholds are considered, so they no longer qualify. Failures of the
// recipient lookup or the mail gateway are logged and swallowed; a failed
// alert must never block the ledger mutation that triggered the check.
func (s *ThresholdServiceImpl) CheckAndAlert(ctx context.Context, projectKey string, totalBudget, totalSpend float64) {
	if totalBudget <= 0 {
		log.Debugf("no total budget set for project %s, skipping threshold check", projectKey)
		return
	}
	percentSpent := totalSpend / totalBudget * 100

	s.mu.Lock()
	crossed := 0
	for _, threshold := range s.thresholds {
		if percentSpent >= float64(threshold) && threshold > s.highestCrossed[projectKey] {
			crossed = threshold
			s.highestCrossed[projectKey] = threshold
			break
		}
	}
	s.mu.Unlock()

	if crossed == 0 {
		return
	}

	log.Infof("project %s crossed %d%% of its budget (%.2f%% spent)", projectKey, crossed, percentSpent)

	// Gateway calls run outside the lock with a bounded timeout.
	gatewayCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	s.alertProjectManagers(gatewayCtx, projectKey, crossed, percentSpent, totalBudget, totalSpend)
}

func (s *ThresholdServiceImpl) alertProjectManagers(ctx context.Context, projectKey string, threshold int, percentSpent, totalBudget, totalSpend float64) {
	managers, err := s.jiraClient.FindProjectRoleUsers(ctx, projectKey, s.managerRole)
	if err != nil {
		log.Warnf("failed to resolve %q members for project %s: %v", s.managerRole, projectKey, err)
		return
	}
	if len(managers) == 0 {
		log.Warnf("no %q members found for project %s, alert not delivered", s.managerRole, projectKey)
		return
	}

	subject := fmt.Sprintf("Budget Alert for Project %s", projectKey)
	body := fmt.Sprintf("Alert: Project %s has reached %d%% of its budget.\n\n"+
		"Total Budget: $%.2f\n"+
		"Current Expenses: $%.2f\n"+
		"Percentage Spent: %.2f%%",
		projectKey, threshold, totalBudget, totalSpend, percentSpent)

	for _, manager := range managers {
		if manager.EmailAddress == "" {
			log.Debugf("skipping %s: no email address", manager.Name)
			continue
		}
		if err := s.mailer.Send(ctx, manager.EmailAddress, subject, body); err != nil {
			log.Warnf("failed to send budget alert to %s: %v", manager.EmailAddress, err)
		}
	}
}
