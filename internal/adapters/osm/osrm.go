package osm

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/platform/obs"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OSRMRouter implements ports.Router with one OSRM /route request per leg.
type OSRMRouter struct {
	client
	baseURL string
	profile string
	timeout time.Duration
}

func NewOSRMRouter(baseURL, userAgent string, timeout time.Duration) (*OSRMRouter, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("osrm base url is empty")
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &OSRMRouter{
		client: client{
			session:   &http.Client{},
			userAgent: userAgent,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving",
		timeout: timeout,
	}, nil
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route returns the driving route from -> to. Timeouts, transport errors,
// non-2xx answers and empty results are all domain.ErrRouteNotFound.
func (o *OSRMRouter) Route(ctx context.Context, from, to domain.Coordinate) (_ domain.Route, err error) {
	defer obs.Time(ctx, "osrm.Route")(&err)

	if err := from.Validate(); err != nil {
		return domain.Route{}, fmt.Errorf("route: origin: %w", err)
	}
	if err := to.Validate(); err != nil {
		return domain.Route{}, fmt.Errorf("route: destination: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// OSRM takes lng,lat pairs.
	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.baseURL, o.profile, from.Lng, from.Lat, to.Lng, to.Lat,
	)

	var decoded osrmResponse
	if err := o.getJSON(ctx, endpoint, &decoded); err != nil {
		return domain.Route{}, fmt.Errorf("route %s -> %s: %v: %w", from, to, err, domain.ErrRouteNotFound)
	}
	if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
		return domain.Route{}, fmt.Errorf("route %s -> %s: code=%q: %w", from, to, decoded.Code, domain.ErrRouteNotFound)
	}

	best := decoded.Routes[0]
	polyline := make([]domain.Coordinate, 0, len(best.Geometry.Coordinates))
	for _, p := range best.Geometry.Coordinates {
		if len(p) < 2 {
			return domain.Route{}, fmt.Errorf("route %s -> %s: invalid coordinate format: %w", from, to, domain.ErrRouteNotFound)
		}
		polyline = append(polyline, domain.Coordinate{Lat: p[1], Lng: p[0]})
	}

	return domain.Route{
		Polyline:        polyline,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}
