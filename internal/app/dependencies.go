package app

import (
	"github.com/moeeztaher/budget-tracker/internal/config"
	"github.com/moeeztaher/budget-tracker/internal/event_bus"
	"github.com/moeeztaher/budget-tracker/internal/utils"
	"github.com/moeeztaher/budget-tracker/pkg/alert"
	"github.com/moeeztaher/budget-tracker/pkg/jira"
	"github.com/moeeztaher/budget-tracker/pkg/ledger"
	"github.com/moeeztaher/budget-tracker/pkg/notification"
)

// Dependencies holds all gateways, services and handlers for the application.
type Dependencies struct {
	Bus *event_bus.EventBus

	JiraClient jira.Client
	Mailer     notification.Mailer

	AlertService *alert.ThresholdServiceImpl
	AlertHandler *alert.Handler

	LedgerService *ledger.ServiceImpl
	LedgerHandler *ledger.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
// The alert engine is constructed once here and subscribed to ledger
// spend-changed events; no other component holds threshold state.
func BuildDependencies(cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.JiraClient = jira.NewClient(cfg.Jira)
	deps.Mailer = notification.NewSMTPMailer(cfg.Mail)

	deps.AlertService = alert.NewThresholdService(deps.JiraClient, deps.Mailer, cfg.Alert.ManagerRole)
	deps.AlertHandler = alert.NewHandler(deps.AlertService)

	deps.LedgerService = ledger.NewService(deps.JiraClient, deps.Bus, deps.Clock)
	deps.LedgerHandler = ledger.NewHandler(deps.LedgerService)

	event_bus.SubscribeTyped[event_bus.SpendChanged](deps.Bus, event_bus.SpendChangedEvent,
		func(e event_bus.EventT[event_bus.SpendChanged]) error {
			deps.AlertService.CheckAndAlert(e.Context(), e.Data.ProjectKey, e.Data.TotalBudget, e.Data.TotalSpend)
			return nil
		})

	return deps
}
