package handlers

import (
	"cadete-dispatch-service/internal/api/dto"
	"cadete-dispatch-service/internal/ports"
	"cadete-dispatch-service/internal/services"
	"log"
	"net/http"
)

// SettingsHandler lets an administrator read and change the price per km.
// A change applies to the next priced segment.
type SettingsHandler struct {
	Rates   ports.RateSource
	Pricing *services.PricingPolicy
}

func (h *SettingsHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.RateResponse{PricePerKm: h.Pricing.Rate(r.Context())})
}

func (h *SettingsHandler) PutRate(w http.ResponseWriter, r *http.Request) {
	var req dto.RateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Rates.SetRatePerKm(r.Context(), req.PricePerKm); err != nil {
		log.Printf("set rate failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, dto.RateResponse{PricePerKm: h.Pricing.Rate(r.Context())})
}
