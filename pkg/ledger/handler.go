package ledger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// EntryDTO is the wire shape of a ledger entry. TotalBudget and
// RemainingBudget only carry meaning on the set-budget payload; they are
// ignored on expense entries.
type EntryDTO struct {
	ID              string        `json:"id,omitempty"`
	ProjectKey      string        `json:"projectKey"`
	BudgetName      string        `json:"budgetName"`
	BudgetCategory  string        `json:"budgetCategory,omitempty"`
	Description     string        `json:"description,omitempty"`
	Amount          float64       `json:"amount"`
	SelectedIssues  []IssueRefDTO `json:"selectedIssues,omitempty"`
	EpicKey         string        `json:"epicKey,omitempty"`
	IssueKey        string        `json:"issueKey,omitempty"`
	Date            string        `json:"date,omitempty"`
	TotalBudget     float64       `json:"totalBudget,omitempty"`
	RemainingBudget float64       `json:"remainingBudget,omitempty"`
}

type IssueRefDTO struct {
	Key     string `json:"key"`
	Summary string `json:"summary,omitempty"`
	Type    string `json:"type,omitempty"`
}

type OverviewDTO struct {
	TotalBudget     float64 `json:"totalBudget"`
	TotalSpend      float64 `json:"totalSpend"`
	RemainingBudget float64 `json:"remainingBudget"`
}

type NamedTotalDTO struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type CumulativePointDTO struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (handler *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	log.Debug("Registering new budget entry")
	w.Header().Set("Content-Type", "application/json")

	var entryDTO EntryDTO
	if err := json.NewDecoder(r.Body).Decode(&entryDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	createdEntry, err := handler.service.CreateEntry(r.Context(), dtoToEntry(entryDTO))
	if err != nil {
		if errors.Is(err, ErrBudgetNameRequired) {
			http.Error(w, "Budget name is required", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(entryToDTO(createdEntry)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	vars := mux.Vars(r)
	id := vars["id"]

	var entryDTO EntryDTO
	if err := json.NewDecoder(r.Body).Decode(&entryDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updatedEntry, err := handler.service.UpdateEntry(r.Context(), id, dtoToEntry(entryDTO))
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "Budget entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entryToDTO(updatedEntry)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := handler.service.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "Budget entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	entries := handler.service.GetAll(r.Context())

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entriesToDTOs(entries)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) GetProjectExpenses(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectKey := mux.Vars(r)["projectKey"]

	entries := handler.service.GetProjectExpenses(r.Context(), projectKey)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entriesToDTOs(entries)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) SetProjectBudget(w http.ResponseWriter, r *http.Request) {
	log.Debug("Setting project budget")
	w.Header().Set("Content-Type", "application/json")

	var entryDTO EntryDTO
	if err := json.NewDecoder(r.Body).Decode(&entryDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if entryDTO.ProjectKey == "" {
		http.Error(w, "Project key is required", http.StatusBadRequest)
		return
	}

	handler.service.SetProjectBudget(r.Context(), entryDTO.ProjectKey, entryDTO.TotalBudget)

	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectKey := mux.Vars(r)["projectKey"]

	overview := handler.service.GetOverview(r.Context(), projectKey)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(OverviewDTO{
		TotalBudget:     overview.TotalBudget,
		TotalSpend:      overview.TotalSpend,
		RemainingBudget: overview.RemainingBudget,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) GetRemainingBudget(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectKey := mux.Vars(r)["projectKey"]

	remaining := handler.service.GetRemainingBudget(r.Context(), projectKey)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(remaining); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) GetExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectKey := mux.Vars(r)["projectKey"]

	totals := handler.service.ExpensesByCategory(r.Context(), projectKey)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(namedTotalsToDTOs(totals)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) GetExpensesByPhase(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectKey := mux.Vars(r)["projectKey"]

	totals := handler.service.ExpensesByPhase(r.Context(), projectKey)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(namedTotalsToDTOs(totals)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) GetCumulativeExpenses(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	projectKey := mux.Vars(r)["projectKey"]

	points := handler.service.CumulativeExpenses(r.Context(), projectKey)

	pointDTOs := make([]CumulativePointDTO, 0, len(points))
	for _, point := range points {
		pointDTOs = append(pointDTOs, CumulativePointDTO{Date: point.Date, Amount: point.Amount})
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(pointDTOs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) GetExpensesForIssue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	issueKey := mux.Vars(r)["issueKey"]

	entries := handler.service.ExpensesForIssue(r.Context(), issueKey)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entriesToDTOs(entries)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func entryToDTO(entry Entry) EntryDTO {
	issues := make([]IssueRefDTO, 0, len(entry.SelectedIssues))
	for _, issue := range entry.SelectedIssues {
		issues = append(issues, IssueRefDTO{Key: issue.Key, Summary: issue.Summary, Type: issue.Type})
	}
	return EntryDTO{
		ID:             entry.ID,
		ProjectKey:     entry.ProjectKey,
		BudgetName:     entry.BudgetName,
		BudgetCategory: entry.BudgetCategory,
		Description:    entry.Description,
		Amount:         entry.Amount,
		SelectedIssues: issues,
		EpicKey:        entry.EpicKey,
		IssueKey:       entry.IssueKey,
		Date:           entry.Date,
	}
}

func dtoToEntry(entryDTO EntryDTO) Entry {
	issues := make([]IssueRef, 0, len(entryDTO.SelectedIssues))
	for _, issue := range entryDTO.SelectedIssues {
		issues = append(issues, IssueRef{Key: issue.Key, Summary: issue.Summary, Type: issue.Type})
	}
	return Entry{
		ID:             entryDTO.ID,
		ProjectKey:     entryDTO.ProjectKey,
		BudgetName:     entryDTO.BudgetName,
		BudgetCategory: entryDTO.BudgetCategory,
		Description:    entryDTO.Description,
		Amount:         entryDTO.Amount,
		SelectedIssues: issues,
		EpicKey:        entryDTO.EpicKey,
		IssueKey:       entryDTO.IssueKey,
		Date:           entryDTO.Date,
	}
}

func entriesToDTOs(entries []Entry) []EntryDTO {
	result := make([]EntryDTO, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entryToDTO(entry))
	}
	return result
}

func namedTotalsToDTOs(totals []NamedTotal) []NamedTotalDTO {
	result := make([]NamedTotalDTO, 0, len(totals))
	for _, total := range totals {
		result = append(result, NamedTotalDTO{Name: total.Name, Value: total.Value})
	}
	return result
}
