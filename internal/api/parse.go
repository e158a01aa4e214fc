package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicwave/clinic-scheduling/internal/schedule"
)

const dateLayout = "2006-01-02"

// urlID parses the {id} path segment. On failure it writes the error
// response and returns false.
func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "path id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(w http.ResponseWriter, field, value string) (time.Time, bool) {
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", field+" must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func parseClock(w http.ResponseWriter, field, value string) (schedule.TimeOfDay, bool) {
	t, err := schedule.ParseTimeOfDay(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", field+" must be formatted as HH:MM")
		return 0, false
	}
	return t, true
}

func optionalDate(w http.ResponseWriter, field string, value *string) (*time.Time, bool) {
	if value == nil || *value == "" {
		return nil, true
	}
	d, ok := parseDate(w, field, *value)
	if !ok {
		return nil, false
	}
	return &d, true
}

func optionalClock(w http.ResponseWriter, field string, value *string) (*schedule.TimeOfDay, bool) {
	if value == nil || *value == "" {
		return nil, true
	}
	t, ok := parseClock(w, field, *value)
	if !ok {
		return nil, false
	}
	return &t, true
}
