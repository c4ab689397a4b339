package osm

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/platform/obs"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type NominatimConfig struct {
	BaseURL      string
	UserAgent    string
	Town         string
	CountryCodes string
	// minLng,maxLat,maxLng,minLat as Nominatim expects it.
	Viewbox string
	Timeout time.Duration
}

// NominatimGeocoder implements ports.Geocoder against a Nominatim server.
//
// Searches are first biased to the configured town (viewbox, bounded,
// country filter). When that yields nothing a single unbiased country-wide
// search is made. The geocoder is safe for concurrent use.
type NominatimGeocoder struct {
	client
	cfg         NominatimConfig
	placeholder string
}

func NewNominatimGeocoder(cfg NominatimConfig) (*NominatimGeocoder, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("nominatim base url is empty")
	}
	if strings.TrimSpace(cfg.Town) == "" {
		return nil, errors.New("nominatim town is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &NominatimGeocoder{
		client: client{
			session:   &http.Client{},
			userAgent: cfg.UserAgent,
		},
		cfg:         cfg,
		placeholder: "Dirección desconocida, " + cfg.Town,
	}, nil
}

type nominatimAddress struct {
	Road        string `json:"road"`
	Pedestrian  string `json:"pedestrian"`
	Cycleway    string `json:"cycleway"`
	HouseNumber string `json:"house_number"`
}

type nominatimPlace struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     *nominatimAddress `json:"address"`
}

func (p nominatimPlace) coordinate() (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	c := domain.Coordinate{Lat: lat, Lng: lng}
	return c, c.Validate()
}

// Geocode resolves address to a waypoint labelled "street[, number], Town".
// Any failure, including a timeout, is reported as domain.ErrGeocodeNotFound.
func (n *NominatimGeocoder) Geocode(ctx context.Context, address string) (_ domain.Waypoint, err error) {
	defer obs.Time(ctx, "nominatim.Geocode")(&err)

	address = strings.Join(strings.Fields(address), " ")
	if address == "" {
		return domain.Waypoint{}, fmt.Errorf("geocode: empty address: %w", domain.ErrGeocodeNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	// Only an empty biased result falls back; a failed request does not.
	place, err := n.search(ctx, n.withTown(address), true)
	if err != nil {
		return domain.Waypoint{}, fmt.Errorf("geocode %q: %v: %w", address, err, domain.ErrGeocodeNotFound)
	}
	if place == nil {
		place, err = n.search(ctx, address, false)
		if err != nil {
			return domain.Waypoint{}, fmt.Errorf("geocode %q: %v: %w", address, err, domain.ErrGeocodeNotFound)
		}
	}
	if place == nil {
		return domain.Waypoint{}, fmt.Errorf("geocode %q: no results: %w", address, domain.ErrGeocodeNotFound)
	}

	c, err := place.coordinate()
	if err != nil {
		return domain.Waypoint{}, fmt.Errorf("geocode %q: %v: %w", address, err, domain.ErrGeocodeNotFound)
	}

	return domain.Waypoint{Coordinate: c, Address: n.label(place.Address, address)}, nil
}

// ReverseGeocode never fails; on any error the town placeholder is returned.
func (n *NominatimGeocoder) ReverseGeocode(ctx context.Context, c domain.Coordinate) string {
	var err error
	defer obs.Time(ctx, "nominatim.ReverseGeocode")(&err)

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))

	var place nominatimPlace
	if err = n.getJSON(ctx, n.cfg.BaseURL+"/reverse?"+q.Encode(), &place); err != nil {
		return n.placeholder
	}
	if place.Address == nil {
		return n.placeholder
	}

	street := firstNonEmpty(place.Address.Road, place.Address.Pedestrian, place.Address.Cycleway)
	if street == "" {
		return n.placeholder
	}
	return n.label(place.Address, "")
}

func (n *NominatimGeocoder) search(ctx context.Context, query string, biased bool) (*nominatimPlace, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	q.Set("q", query)
	if n.cfg.CountryCodes != "" {
		q.Set("countrycodes", n.cfg.CountryCodes)
	}
	if biased && n.cfg.Viewbox != "" {
		q.Set("viewbox", n.cfg.Viewbox)
		q.Set("bounded", "1")
	}

	var places []nominatimPlace
	if err := n.getJSON(ctx, n.cfg.BaseURL+"/search?"+q.Encode(), &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}
	return &places[0], nil
}

func (n *NominatimGeocoder) withTown(address string) string {
	if strings.Contains(strings.ToLower(address), strings.ToLower(n.cfg.Town)) {
		return address
	}
	return address + ", " + n.cfg.Town
}

func (n *NominatimGeocoder) label(a *nominatimAddress, query string) string {
	if a == nil {
		return n.withTown(query)
	}
	street := firstNonEmpty(a.Road, a.Pedestrian, a.Cycleway)
	if street == "" {
		return n.withTown(query)
	}
	if a.HouseNumber != "" {
		street += ", " + a.HouseNumber
	}
	return street + ", " + n.cfg.Town
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
