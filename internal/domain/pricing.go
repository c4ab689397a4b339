package domain

// Price is the fare for a road distance at the given rate per kilometre.
func Price(distanceKm, ratePerKm float64) float64 {
	return distanceKm * ratePerKm
}
