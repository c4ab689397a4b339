package dto

type CreateSessionRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=single multi"`
}

// PointRequest is either a map click (lat, lng) or a typed address.
type PointRequest struct {
	Lat     *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng     *float64 `json:"lng" validate:"omitempty,longitude"`
	Address string   `json:"address" validate:"max=300"`
}

func (p PointRequest) HasCoordinate() bool { return p.Lat != nil && p.Lng != nil }

type AddressTripRequest struct {
	Origin       string   `json:"origin" validate:"required,max=300"`
	Destinations []string `json:"destinations" validate:"required,min=1,max=25,dive,required,max=300"`
}

type RateRequest struct {
	PricePerKm float64 `json:"price_per_km" validate:"gt=0"`
}
