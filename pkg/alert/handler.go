package alert

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type ThresholdDTO struct {
	Threshold int `json:"threshold"`
}

type Handler struct {
	service ThresholdService
}

func NewHandler(service ThresholdService) *Handler {
	return &Handler{service}
}

func (handler *Handler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	thresholds := handler.service.Thresholds()

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(thresholds); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (handler *Handler) AddThreshold(w http.ResponseWriter, r *http.Request) {
	log.Debug("Adding alert threshold")
	w.Header().Set("Content-Type", "application/json")

	var thresholdDTO ThresholdDTO
	if err := json.NewDecoder(r.Body).Decode(&thresholdDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if thresholdDTO.Threshold < 1 {
		http.Error(w, "Threshold must be a positive percentage", http.StatusBadRequest)
		return
	}

	handler.service.AddThreshold(thresholdDTO.Threshold)

	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) RemoveThreshold(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	threshold, err := strconv.Atoi(vars["threshold"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handler.service.RemoveThreshold(threshold)

	w.WriteHeader(http.StatusOK)
}
