package handlers

import (
	"cadete-dispatch-service/internal/api/dto"
	"cadete-dispatch-service/internal/ports"
	"cadete-dispatch-service/internal/services"
	"net/http"
)

// QuoteHandler prices a straight-line estimate before a trip is routed.
type QuoteHandler struct {
	Geocoder ports.Geocoder
	Pricing  *services.PricingPolicy
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.AddressTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := services.EstimateQuote(r.Context(), h.Geocoder, h.Pricing, req.Origin, req.Destinations)
	if err != nil {
		writeServiceError(w, r, "quote", err)
		return
	}

	res := dto.QuoteResponse{
		Points:         make([]dto.WaypointResponse, 0, len(q.Points)),
		DistanceMeters: q.DistanceMeters,
		DistanceKm:     q.DistanceMeters / 1000,
		RatePerKm:      q.RatePerKm,
		Price:          q.Price,
	}
	for _, p := range q.Points {
		res.Points = append(res.Points, toWaypointResponse(p))
	}
	writeJSON(w, r, http.StatusOK, res)
}
