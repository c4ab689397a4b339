package handlers

import (
	"cadete-dispatch-service/internal/domain"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// tripFeatures renders a trip for the map: one point per waypoint and one
// line per routed segment, all carrying the trip color.
func tripFeatures(t *domain.Trip) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	marker := func(w domain.Waypoint, kind string) {
		f := geojson.NewFeature(orb.Point(w.Coordinate.LngLat()))
		f.Properties["trip_id"] = t.ID
		f.Properties["waypoint_id"] = w.ID
		f.Properties["kind"] = kind
		f.Properties["address"] = w.Address
		f.Properties["color"] = t.Color
		fc.Append(f)
	}

	marker(t.Origin, "origin")
	for _, d := range t.Destinations {
		marker(d, "destination")
	}

	for i, s := range t.Segments {
		if s == nil || len(s.Polyline) < 2 {
			continue
		}
		line := make(orb.LineString, len(s.Polyline))
		for j, p := range s.Polyline {
			line[j] = orb.Point(p.LngLat())
		}
		f := geojson.NewFeature(line)
		f.Properties["trip_id"] = t.ID
		f.Properties["kind"] = "route"
		f.Properties["segment"] = i
		f.Properties["distance_meters"] = s.DistanceMeters
		f.Properties["color"] = t.Color
		fc.Append(f)
	}

	return fc
}
