package handlers

import (
	"cadete-dispatch-service/internal/api/dto"
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/services"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SessionHandler exposes one interactive trip builder per dispatcher session.
type SessionHandler struct {
	Sessions *services.Sessions
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSessionRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	mode, err := services.ParseMode(req.Mode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation", err.Error())
		return
	}

	id, b := h.Sessions.Create(mode)
	writeJSON(w, r, http.StatusCreated, sessionResponse(id, b))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, b, ok := h.builder(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse(id, b))
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if !h.Sessions.Close(chi.URLParam(r, "sid")) {
		writeServiceError(w, r, "close session", domain.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) AddOrigin(w http.ResponseWriter, r *http.Request) {
	_, b, ok := h.builder(w, r)
	if !ok {
		return
	}
	p, ok := decodePoint(w, r)
	if !ok {
		return
	}

	t, err := b.AddOrigin(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, "add origin", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTripResponse(t))
}

// AddDestination returns the updated trip. In single mode the trip comes
// back already active.
func (h *SessionHandler) AddDestination(w http.ResponseWriter, r *http.Request) {
	_, b, ok := h.builder(w, r)
	if !ok {
		return
	}
	p, ok := decodePoint(w, r)
	if !ok {
		return
	}

	t, err := b.AddDestination(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, "add destination", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTripResponse(t))
}

func (h *SessionHandler) RemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	_, b, ok := h.builder(w, r)
	if !ok {
		return
	}
	wid, ok := waypointIDParam(w, r)
	if !ok {
		return
	}

	t, err := b.RemoveWaypoint(r.Context(), wid)
	if err != nil {
		writeServiceError(w, r, "remove waypoint", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTripResponse(t))
}

func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	_, b, ok := h.builder(w, r)
	if !ok {
		return
	}

	t, err := b.Finalize(r.Context())
	if err != nil {
		writeServiceError(w, r, "finalize", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toTripResponse(t))
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, b, ok := h.builder(w, r)
	if !ok {
		return
	}
	b.Cancel()
	writeJSON(w, r, http.StatusOK, sessionResponse(id, b))
}

func (h *SessionHandler) builder(w http.ResponseWriter, r *http.Request) (string, *services.TripBuilder, bool) {
	id := chi.URLParam(r, "sid")
	b, err := h.Sessions.Get(id)
	if err != nil {
		writeServiceError(w, r, "get session", err)
		return "", nil, false
	}
	return id, b, true
}

func sessionResponse(id string, b *services.TripBuilder) dto.SessionResponse {
	res := dto.SessionResponse{ID: id, Mode: string(b.Mode())}
	if t, ok := b.Snapshot(); ok {
		tr := toTripResponse(t)
		res.Trip = &tr
	}
	return res
}

func decodePoint(w http.ResponseWriter, r *http.Request) (services.Point, bool) {
	var req dto.PointRequest
	if !decodeJSON(w, r, &req) {
		return services.Point{}, false
	}

	if req.HasCoordinate() {
		c := domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		if err := c.Validate(); err != nil {
			writeServiceError(w, r, "decode point", err)
			return services.Point{}, false
		}
		return services.AtCoordinate(c), true
	}

	addr := strings.TrimSpace(req.Address)
	if addr == "" {
		writeError(w, r, http.StatusBadRequest, "validation", "lat and lng, or address, is required")
		return services.Point{}, false
	}
	return services.AtAddress(addr), true
}
