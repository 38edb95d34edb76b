package resources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/hubservice"
	"github.com/ossohq/pe32-hub/internal/models"
)

// SampleHandlers encapsulates the metric sample HTTP handlers
type SampleHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List known metrics
// @Produce json
// @Success 200 {array} models.Metric
// @Router /metrics [get]
func (h *SampleHandlers) ListMetrics(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, models.Metrics())
}

type recordSampleRequest struct {
	Time    time.Time `json:"time"`
	LabelID int64     `json:"label_id"`
	Low     *float64  `json:"low,omitempty"`
	Avg     *float64  `json:"avg,omitempty"`
	High    *float64  `json:"high,omitempty"`
	// Value is used for the categorical comfort metric
	Value string `json:"value,omitempty"`
}

// @Summary Record a sample
// @Description Record one aggregated observation for a metric. Numeric
// @Description metrics take low/avg/high, the comfort metric takes value.
// @Description A duplicate (time, label) pair is rejected with a conflict.
// @Accept json
// @Produce json
// @Param metric path string true "Metric name"
// @Param sample body recordSampleRequest true "Sample"
// @Success 201 {object} map[string]string
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /metrics/{metric}/samples [post]
func (h *SampleHandlers) RecordSample(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	metricName := vars["metric"]
	requestID := nuts.NID("req", 12)

	metric, ok := models.MetricByName(metricName)
	if !ok {
		respondWithError(w, errors.NewValidationError("unknown metric: "+metricName, nil).WithRequestID(requestID))
		return
	}

	var req recordSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	var err error
	if metric.Numeric() {
		err = h.hubservice.RecordSample(r.Context(), metric.Name, req.Time, req.LabelID, req.Low, req.Avg, req.High)
	} else {
		err = h.hubservice.RecordComfortDescriptor(r.Context(), req.Time, req.LabelID, req.Value)
	}
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// @Summary Query samples over a time range
// @Description Returns rows with time in the half-open interval
// @Description [start, end), ordered by time ascending.
// @Produce json
// @Param metric path string true "Metric name"
// @Param start query string false "Start time (RFC3339)"
// @Param end query string false "End time (RFC3339)"
// @Param label_id query int false "Restrict to one label"
// @Success 200 {array} models.Sample
// @Failure 400 {object} errors.APIError
// @Router /metrics/{metric}/samples [get]
func (h *SampleHandlers) QuerySamples(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	metricName := vars["metric"]
	requestID := nuts.NID("req", 12)

	metric, ok := models.MetricByName(metricName)
	if !ok {
		respondWithError(w, errors.NewValidationError("unknown metric: "+metricName, nil).WithRequestID(requestID))
		return
	}

	tr, err := parseTimeRange(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	if metric.Numeric() {
		samples, err := h.hubservice.QuerySamples(r.Context(), metric.Name, tr.start, tr.end, tr.labelID)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, samples)
		return
	}

	descriptors, err := h.hubservice.QueryDescriptors(r.Context(), metric.Name, tr.start, tr.end, tr.labelID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, descriptors)
}
