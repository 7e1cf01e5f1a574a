package alert

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/moeeztaher/budget-tracker/pkg/jira"
	"github.com/moeeztaher/budget-tracker/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*mux.Router, *ThresholdServiceImpl) {
	service := NewThresholdService(jira.NewClientStub(), notification.NewStubMailer(), "Project Manager")
	handler := NewHandler(service)
	r := mux.NewRouter()
	r.HandleFunc("/api/alert-thresholds", handler.GetThresholds).Methods("GET")
	r.HandleFunc("/api/alert-thresholds", handler.AddThreshold).Methods("POST")
	r.HandleFunc("/api/alert-thresholds/{threshold}", handler.RemoveThreshold).Methods("DELETE")
	return r, service
}

func TestHandler_Thresholds(t *testing.T) {
	t.Run("should add, list and remove thresholds", func(t *testing.T) {
		// given
		router, _ := setupHandlerTest(t)

		for _, threshold := range []int{50, 100, 80} {
			body, _ := json.Marshal(ThresholdDTO{Threshold: threshold})
			req := httptest.NewRequest("POST", "/api/alert-thresholds", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		// when
		req := httptest.NewRequest("GET", "/api/alert-thresholds", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		// then thresholds come back descending
		require.Equal(t, http.StatusOK, rec.Code)
		var thresholds []int
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&thresholds))
		assert.Equal(t, []int{100, 80, 50}, thresholds)

		// when one is removed
		req = httptest.NewRequest("DELETE", "/api/alert-thresholds/80", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest("GET", "/api/alert-thresholds", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		thresholds = nil
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&thresholds))
		assert.Equal(t, []int{100, 50}, thresholds)
	})

	t.Run("should reject non-positive thresholds", func(t *testing.T) {
		router, service := setupHandlerTest(t)
		body, _ := json.Marshal(ThresholdDTO{Threshold: 0})

		req := httptest.NewRequest("POST", "/api/alert-thresholds", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, service.Thresholds())
	})
}
