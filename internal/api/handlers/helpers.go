package handlers

import (
	"cadete-dispatch-service/internal/domain"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg, "code": code})
}

// Status and code for each domain error a handler may surface.
var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrGeocodeFailure, http.StatusUnprocessableEntity, "geocode_failed"},
	{domain.ErrGeocodeNotFound, http.StatusUnprocessableEntity, "geocode_failed"},
	{domain.ErrTooClose, http.StatusConflict, "too_close"},
	{domain.ErrDuplicateTrip, http.StatusConflict, "duplicate_trip"},
	{domain.ErrBusy, http.StatusConflict, "busy"},
	{domain.ErrCancelled, http.StatusConflict, "cancelled"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domain.ErrTripNotFound, http.StatusNotFound, "trip_not_found"},
	{domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{domain.ErrWaypointNotFound, http.StatusNotFound, "waypoint_not_found"},
	{domain.ErrNoDestinations, http.StatusBadRequest, "no_destinations"},
	{domain.ErrInvalidCoordinates, http.StatusBadRequest, "invalid_coordinates"},
}

// writeServiceError maps err onto its HTTP status. Unknown errors are
// logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeError(w, r, e.status, e.code, e.err.Error())
			return
		}
	}
	log.Printf("%s failed: %v", op, err)
	writeError(w, r, http.StatusInternalServerError, "internal", "internal server error")
}

// decodeJSON reads exactly one JSON object into v and validates it.
// It writes the 400 response itself and reports whether v is usable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "invalid_json", "body must contain only one JSON object")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return "invalid field " + f.Namespace() + ": failed " + f.Tag()
	}
	return "invalid request"
}

func tripIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "trip id must be a positive integer")
		return 0, false
	}
	return id, true
}

func waypointIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "wid"))
	if err != nil || id < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_id", "waypoint id must be a non-negative integer")
		return 0, false
	}
	return id, true
}
