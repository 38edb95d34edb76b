package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/hubservice"
)

// DeviceHandlers encapsulates the device-related HTTP handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List devices grouped by label
// @Produce json
// @Success 200 {array} models.DeviceListing
// @Router /devices [get]
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	listings, err := h.hubservice.ListDevices(r.Context())
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list devices", err).WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, listings)
}

type resolveRequest struct {
	DevType string `json:"dev_type"`
}

type resolveResponse struct {
	LabelID int64 `json:"label_id"`
}

// @Summary Resolve a device to its label
// @Description Resolve a device identifier to its label, registering an
// @Description unseen device under the fallback label
// @Accept json
// @Produce json
// @Param identifier path string true "Device identifier"
// @Success 200 {object} resolveResponse
// @Failure 404 {object} errors.APIError
// @Router /devices/{identifier}/resolve [post]
func (h *DeviceHandlers) ResolveLabel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	identifier := vars["identifier"]
	requestID := nuts.NID("req", 12)

	var req resolveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
			return
		}
	}

	labelID, err := h.hubservice.ResolveLabel(r.Context(), identifier, req.DevType)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resolveResponse{LabelID: labelID})
}

type reassignRequest struct {
	// LabelID nil detaches the device
	LabelID *int64 `json:"label_id"`
}

// @Summary Reassign a device to a label
// @Accept json
// @Produce json
// @Param identifier path string true "Device identifier"
// @Param body body reassignRequest true "Target label"
// @Success 204
// @Failure 404 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /devices/{identifier}/label [put]
func (h *DeviceHandlers) ReassignLabel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	identifier := vars["identifier"]
	requestID := nuts.NID("req", 12)

	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.ReassignLabel(r.Context(), identifier, req.LabelID); err != nil {
		respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
