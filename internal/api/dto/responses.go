package dto

import "time"

type CoordinateResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type WaypointResponse struct {
	ID      int     `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type SegmentResponse struct {
	DistanceMeters  float64              `json:"distance_meters"`
	DurationSeconds float64              `json:"duration_seconds"`
	Polyline        []CoordinateResponse `json:"polyline"`
}

type TripResponse struct {
	ID                  int64              `json:"id"`
	Status              string             `json:"status"`
	Color               string             `json:"color"`
	Origin              WaypointResponse   `json:"origin"`
	Destinations        []WaypointResponse `json:"destinations"`
	Segments            []*SegmentResponse `json:"segments"`
	TotalDistanceMeters float64            `json:"total_distance_meters"`
	TotalDistanceKm     float64            `json:"total_distance_km"`
	Price               float64            `json:"price"`
	RatePerKm           float64            `json:"rate_per_km"`
	RouteFailures       int                `json:"route_failures"`
	CreatedAt           time.Time          `json:"created_at"`
	CompletedAt         *time.Time         `json:"completed_at"`
}

type ListTripsResponse struct {
	Trips []TripResponse `json:"trips"`
}

type SessionResponse struct {
	ID   string        `json:"id"`
	Mode string        `json:"mode"`
	Trip *TripResponse `json:"trip"`
}

type StatsResponse struct {
	ActiveToday    int     `json:"active_today"`
	CompletedToday int     `json:"completed_today"`
	DistanceKm     float64 `json:"distance_km"`
	EarningsToday  float64 `json:"earnings_today"`
	RouteFailures  int     `json:"route_failures"`
}

type RateResponse struct {
	PricePerKm float64 `json:"price_per_km"`
}

type QuoteResponse struct {
	Points         []WaypointResponse `json:"points"`
	DistanceMeters float64            `json:"distance_meters"`
	DistanceKm     float64            `json:"distance_km"`
	RatePerKm      float64            `json:"rate_per_km"`
	Price          float64            `json:"price"`
}

type NavigationResponse struct {
	URL string `json:"url"`
}
