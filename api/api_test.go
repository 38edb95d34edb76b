package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossohq/pe32-hub/api/middleware"
	"github.com/ossohq/pe32-hub/internal/hubservice"
	"github.com/ossohq/pe32-hub/internal/models"
	"github.com/ossohq/pe32-hub/internal/repository/memory"
)

func newTestRouter(t *testing.T, keys middleware.KeyConfig) *Router {
	t.Helper()
	store := memory.NewStore()
	svc := hubservice.New(store.Registry(), store.Samples(), nil)
	require.NoError(t, svc.Validate())
	return NewRouter(svc, keys)
}

func doJSON(t *testing.T, router *Router, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, middleware.KeyConfig{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestLabelLifecycle(t *testing.T) {
	router := newTestRouter(t, middleware.KeyConfig{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/labels", map[string]string{"name": "kitchen"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Label
	decodeJSON(t, rec, &created)
	assert.Equal(t, "kitchen", created.Name)
	require.Greater(t, created.ID, int64(0))

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/labels/%d", created.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/v1/labels/%d", created.ID),
		map[string]string{"name": "kitchen/window"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var renamed models.Label
	decodeJSON(t, rec, &renamed)
	assert.Equal(t, "kitchen/window", renamed.Name)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/labels", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var labels []models.Label
	decodeJSON(t, rec, &labels)
	require.Len(t, labels, 1)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/labels/9999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/labels", map[string]string{"name": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordAndQuerySamples(t *testing.T) {
	router := newTestRouter(t, middleware.KeyConfig{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/labels", map[string]string{"name": "kitchen"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var kitchen models.Label
	decodeJSON(t, rec, &kitchen)

	sample := map[string]interface{}{
		"time":     "2026-08-23T12:04:00Z",
		"label_id": kitchen.ID,
		"low":      21.1,
		"avg":      21.5,
		"high":     21.9,
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/metrics/temperature/samples", sample, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same (time, label) window again: first write wins.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/metrics/temperature/samples", sample, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A label nobody created.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/metrics/temperature/samples", map[string]interface{}{
		"time":     "2026-08-23T12:05:00Z",
		"label_id": 9999,
		"avg":      21.5,
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/metrics/nonsense/samples", sample, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing avg.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/metrics/humidity/samples", map[string]interface{}{
		"time":     "2026-08-23T12:04:00Z",
		"label_id": kitchen.ID,
		"low":      40.0,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/api/v1/metrics/temperature/samples?start=%s&end=%s&label_id=%d",
		"2026-08-23T12:03:59Z", "2026-08-23T12:04:01Z", kitchen.ID)
	rec = doJSON(t, router, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var samples []models.Sample
	decodeJSON(t, rec, &samples)
	require.Len(t, samples, 1)
	assert.Equal(t, 21.5, samples[0].Avg)

	// End is exclusive.
	path = fmt.Sprintf("/api/v1/metrics/temperature/samples?start=%s&end=%s",
		"2026-08-23T12:03:00Z", "2026-08-23T12:04:00Z")
	rec = doJSON(t, router, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	samples = nil
	decodeJSON(t, rec, &samples)
	assert.Empty(t, samples)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/metrics/temperature/samples?start=not-a-time", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComfortSamplesUseValue(t *testing.T) {
	router := newTestRouter(t, middleware.KeyConfig{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/labels", map[string]string{"name": "kitchen"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var kitchen models.Label
	decodeJSON(t, rec, &kitchen)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/metrics/comfort/samples", map[string]interface{}{
		"time":     "2026-08-23T12:04:00Z",
		"label_id": kitchen.ID,
		"value":    "Comfortable",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	path := fmt.Sprintf("/api/v1/metrics/comfort/samples?start=%s&end=%s",
		"2026-08-23T12:04:00Z", "2026-08-23T12:05:00Z")
	rec = doJSON(t, router, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var descriptors []models.Descriptor
	decodeJSON(t, rec, &descriptors)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "Comfortable", descriptors[0].Value)
}

func TestMetricsListing(t *testing.T) {
	router := newTestRouter(t, middleware.KeyConfig{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics []models.Metric
	decodeJSON(t, rec, &metrics)
	assert.Len(t, metrics, 9)
}

func TestDeviceResolveAndReassign(t *testing.T) {
	router := newTestRouter(t, middleware.KeyConfig{})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/devices/EUI48:C0:49:EF:D0:1F:38/resolve",
		map[string]string{"dev_type": "dht22-v0.1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resolved struct {
		LabelID int64 `json:"label_id"`
	}
	decodeJSON(t, rec, &resolved)
	assert.Greater(t, resolved.LabelID, int64(0))

	// Resolving again yields the same label.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/devices/EUI48:C0:49:EF:D0:1F:38/resolve", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var again struct {
		LabelID int64 `json:"label_id"`
	}
	decodeJSON(t, rec, &again)
	assert.Equal(t, resolved.LabelID, again.LabelID)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/labels", map[string]string{"name": "attic"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var attic models.Label
	decodeJSON(t, rec, &attic)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/devices/EUI48:C0:49:EF:D0:1F:38/label",
		map[string]interface{}{"label_id": attic.ID}, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/devices/EUI48:C0:49:EF:D0:1F:38/label",
		map[string]interface{}{"label_id": 9999}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/devices", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listings []models.DeviceListing
	decodeJSON(t, rec, &listings)
	assert.Len(t, listings, 2)
}

func TestAPIKeyEnforcement(t *testing.T) {
	keys := middleware.KeyConfig{WriterKey: "write-secret", ReaderKey: "read-secret"}
	router := newTestRouter(t, keys)

	// Health stays public.
	rec := doJSON(t, router, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/labels", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/labels", nil,
		map[string]string{"Authorization": "Bearer read-secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The reader key cannot write.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/labels", map[string]string{"name": "kitchen"},
		map[string]string{"Authorization": "Bearer read-secret"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/labels", map[string]string{"name": "kitchen"},
		map[string]string{"X-API-Key": "write-secret"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// The writer key passes read routes too.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/labels", nil,
		map[string]string{"Authorization": "Bearer write-secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/labels", nil,
		map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
