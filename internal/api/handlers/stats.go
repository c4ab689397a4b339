package handlers

import (
	"cadete-dispatch-service/internal/api/dto"
	"cadete-dispatch-service/internal/services"
	"net/http"
)

type StatsHandler struct {
	Store *services.TripStore
}

func (h *StatsHandler) Today(w http.ResponseWriter, r *http.Request) {
	st := services.Today(h.Store)
	writeJSON(w, r, http.StatusOK, dto.StatsResponse{
		ActiveToday:    st.ActiveToday,
		CompletedToday: st.CompletedToday,
		DistanceKm:     st.DistanceKm,
		EarningsToday:  st.EarningsToday,
		RouteFailures:  st.RouteFailures,
	})
}
