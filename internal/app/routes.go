package app

import (
	"github.com/gorilla/mux"
	"github.com/moeeztaher/budget-tracker/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Budget entries
	r.HandleFunc("/api/budget", deps.LedgerHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/budget", deps.LedgerHandler.CreateEntry).Methods("POST")
	r.HandleFunc("/api/budget/set", deps.LedgerHandler.SetProjectBudget).Methods("POST")
	r.HandleFunc("/api/budget/{id}", deps.LedgerHandler.UpdateEntry).Methods("PUT")
	r.HandleFunc("/api/budget/{id}", deps.LedgerHandler.DeleteEntry).Methods("DELETE")

	// Project views
	r.HandleFunc("/api/budget/overview/{projectKey}", deps.LedgerHandler.GetOverview).Methods("GET")
	r.HandleFunc("/api/budget/remaining/{projectKey}", deps.LedgerHandler.GetRemainingBudget).Methods("GET")
	r.HandleFunc("/api/budget/expenses/all/{projectKey}", deps.LedgerHandler.GetProjectExpenses).Methods("GET")
	r.HandleFunc("/api/budget/expenses/by-category/{projectKey}", deps.LedgerHandler.GetExpensesByCategory).Methods("GET")
	r.HandleFunc("/api/budget/expenses/by-phase/{projectKey}", deps.LedgerHandler.GetExpensesByPhase).Methods("GET")
	r.HandleFunc("/api/budget/cumulative-expenses/{projectKey}", deps.LedgerHandler.GetCumulativeExpenses).Methods("GET")
	r.HandleFunc("/api/budget/expenses/{issueKey}", deps.LedgerHandler.GetExpensesForIssue).Methods("GET")

	// Alert thresholds
	r.HandleFunc("/api/alert-thresholds", deps.AlertHandler.GetThresholds).Methods("GET")
	r.HandleFunc("/api/alert-thresholds", deps.AlertHandler.AddThreshold).Methods("POST")
	r.HandleFunc("/api/alert-thresholds/{threshold}", deps.AlertHandler.RemoveThreshold).Methods("DELETE")
}
