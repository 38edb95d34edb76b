package resources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/schema"

	"github.com/ossohq/pe32-hub/internal/errors"
	"github.com/ossohq/pe32-hub/internal/hubservice"
	"github.com/ossohq/pe32-hub/internal/models"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Labels  *LabelHandlers
	Devices *DeviceHandlers
	Samples *SampleHandlers
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService) *Resources {
	return &Resources{
		Labels:  &LabelHandlers{hubservice: svc},
		Devices: &DeviceHandlers{hubservice: svc},
		Samples: &SampleHandlers{hubservice: svc},
	}
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		respondWithJSON(w, apiErr.Code, apiErr)
		return
	}
	respondWithJSON(w, http.StatusInternalServerError,
		errors.NewInternalError("unexpected error", err))
}

type timeRange struct {
	start   time.Time
	end     time.Time
	labelID *int64
}

// parseTimeRange decodes start/end/label_id query parameters. The range
// is half-open [start, end) and defaults to the last 24 hours.
func parseTimeRange(r *http.Request) (timeRange, error) {
	var query models.RangeQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		return timeRange{}, errors.NewValidationError("invalid query parameters", err)
	}

	now := time.Now()
	tr := timeRange{start: now.Add(-24 * time.Hour), end: now, labelID: query.LabelID}

	if query.Start != "" {
		parsed, err := time.Parse(time.RFC3339, query.Start)
		if err != nil {
			return timeRange{}, errors.NewValidationError("invalid start time", err)
		}
		tr.start = parsed
	}
	if query.End != "" {
		parsed, err := time.Parse(time.RFC3339, query.End)
		if err != nil {
			return timeRange{}, errors.NewValidationError("invalid end time", err)
		}
		tr.end = parsed
	}
	return tr, nil
}
