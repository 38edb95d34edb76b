package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/hubservice"
)

// LabelHandlers encapsulates the label-related HTTP handlers
type LabelHandlers struct {
	hubservice *hubservice.HubService
}

type labelRequest struct {
	Name string `json:"name"`
}

// @Summary List labels
// @Produce json
// @Success 200 {array} models.Label
// @Router /labels [get]
func (h *LabelHandlers) ListLabels(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	labels, err := h.hubservice.ListLabels(r.Context())
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list labels", err).WithRequestID(requestID))
		return
	}
	respondWithJSON(w, http.StatusOK, labels)
}

// @Summary Get a label
// @Produce json
// @Param id path int true "Label ID"
// @Success 200 {object} models.Label
// @Failure 404 {object} errors.APIError
// @Router /labels/{id} [get]
func (h *LabelHandlers) GetLabel(w http.ResponseWriter, r *http.Request) {
	id, err := labelIDFromPath(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	label, err := h.hubservice.GetLabel(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, label)
}

// @Summary Create a label
// @Accept json
// @Produce json
// @Param label body labelRequest true "Label name"
// @Success 201 {object} models.Label
// @Failure 400 {object} errors.APIError
// @Router /labels [post]
func (h *LabelHandlers) CreateLabel(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	label, err := h.hubservice.CreateLabel(r.Context(), req.Name)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, label)
}

// @Summary Rename a label
// @Accept json
// @Produce json
// @Param id path int true "Label ID"
// @Param label body labelRequest true "New name"
// @Success 200 {object} models.Label
// @Failure 404 {object} errors.APIError
// @Router /labels/{id} [put]
func (h *LabelHandlers) RenameLabel(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	id, err := labelIDFromPath(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.RenameLabel(r.Context(), id, req.Name); err != nil {
		respondWithError(w, err)
		return
	}

	label, err := h.hubservice.GetLabel(r.Context(), id)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, label)
}

func labelIDFromPath(r *http.Request) (int64, error) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		return 0, errors.NewValidationError("invalid label id", err)
	}
	return id, nil
}
