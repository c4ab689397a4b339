package services

import (
	"cadete-dispatch-service/internal/domain"
	"net/url"
	"strings"
)

const mapsDirectionsURL = "https://www.google.com/maps/dir/?api=1"

// NavigationURL links to turn-by-turn directions from the courier's current
// location through the trip origin and intermediate stops to the last
// destination.
func NavigationURL(t *domain.Trip, town string) string {
	if len(t.Destinations) == 0 {
		return ""
	}

	stops := []string{withTown(t.Origin.Address, town)}
	for _, d := range t.Destinations[:len(t.Destinations)-1] {
		stops = append(stops, withTown(d.Address, town))
	}
	for i := range stops {
		stops[i] = url.QueryEscape(stops[i])
	}
	dest := withTown(t.Destinations[len(t.Destinations)-1].Address, town)

	var sb strings.Builder
	sb.WriteString(mapsDirectionsURL)
	sb.WriteString("&origin=My+Location")
	sb.WriteString("&destination=" + url.QueryEscape(dest))
	sb.WriteString("&waypoints=" + strings.Join(stops, "|"))
	sb.WriteString("&travelmode=driving")
	return sb.String()
}

func withTown(address, town string) string {
	if town == "" || strings.Contains(address, town) {
		return address
	}
	return address + ", " + town
}
