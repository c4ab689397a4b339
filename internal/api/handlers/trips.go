package handlers

import (
	"cadete-dispatch-service/internal/api/dto"
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/services"
	"fmt"
	"net/http"
)

// TripHandler serves active trips and today's history.
type TripHandler struct {
	Dispatcher *services.Dispatcher
	Sessions   *services.Sessions
	Town       string
}

// Manual builds and finalizes a trip from typed addresses in one request.
func (h *TripHandler) Manual(w http.ResponseWriter, r *http.Request) {
	var req dto.AddressTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	b := h.Sessions.NewBuilder(services.ModeMulti)
	t, err := services.PlanFromAddresses(r.Context(), b, req.Origin, req.Destinations)
	if err != nil {
		writeServiceError(w, r, "manual trip", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toTripResponse(t))
}

func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toListTripsResponse(h.Dispatcher.Store().Active()))
}

func (h *TripHandler) History(w http.ResponseWriter, r *http.Request) {
	h.Dispatcher.ResetHistoryIfNewDay(r.Context())
	writeJSON(w, r, http.StatusOK, toListTripsResponse(h.Dispatcher.Store().History()))
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trip(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, toTripResponse(t))
}

func (h *TripHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	t, err := h.Dispatcher.Complete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "complete trip", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toTripResponse(t))
}

func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	if _, err := h.Dispatcher.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete trip", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveWaypoint deletes the active trip the waypoint belongs to.
func (h *TripHandler) RemoveWaypoint(w http.ResponseWriter, r *http.Request) {
	id, ok := tripIDParam(w, r)
	if !ok {
		return
	}
	wid, ok := waypointIDParam(w, r)
	if !ok {
		return
	}
	if _, err := h.Dispatcher.RemoveWaypoint(r.Context(), id, wid); err != nil {
		writeServiceError(w, r, "remove trip waypoint", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TripHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trip(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NavigationResponse{URL: services.NavigationURL(&t, h.Town)})
}

func (h *TripHandler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	t, ok := h.trip(w, r)
	if !ok {
		return
	}
	b, err := tripFeatures(&t).MarshalJSON()
	if err != nil {
		writeServiceError(w, r, "trip geojson", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *TripHandler) trip(w http.ResponseWriter, r *http.Request) (domain.Trip, bool) {
	id, ok := tripIDParam(w, r)
	if !ok {
		return domain.Trip{}, false
	}
	t, found := h.Dispatcher.Store().Get(id)
	if !found {
		writeServiceError(w, r, "get trip", fmt.Errorf("trip %d: %w", id, domain.ErrTripNotFound))
		return domain.Trip{}, false
	}
	return t, true
}
