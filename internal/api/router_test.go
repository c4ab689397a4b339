package api

import (
	"cadete-dispatch-service/internal/adapters/memory"
	"cadete-dispatch-service/internal/adapters/osm"
	"cadete-dispatch-service/internal/api/dto"
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/services"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var (
	origin = domain.Coordinate{Lat: -33.0141, Lng: -58.5071}
	destA  = domain.Coordinate{Lat: -33.0241, Lng: -58.4971}
	destB  = domain.Coordinate{Lat: -33.0341, Lng: -58.4871}
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	rates   *memory.RateSource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	geo := osm.NewMockGeocoder(map[string]domain.Coordinate{
		"Rivadavia 100": origin,
		"Urquiza 850":   destA,
		"España 1150":   destB,
	})
	rates := memory.NewRateSource(500)
	pricing := services.NewPricingPolicy(rates, 500, nil)
	ids := &services.IDSource{}
	store := services.NewTripStore(services.DuplicateDetector{ToleranceMeters: 10}, clock, time.UTC)
	dispatcher := services.NewDispatcher(services.DispatcherDeps{Store: store, IDs: ids, Now: clock})
	sessions := services.NewSessions(services.BuilderDeps{
		Geocoder:            geo,
		Router:              osm.NewMockRouter(),
		Pricing:             pricing,
		Committer:           dispatcher,
		IDs:                 ids,
		Now:                 clock,
		MinSeparationMeters: 50,
	})

	h := NewRouter(Deps{
		Dispatcher: dispatcher,
		Sessions:   sessions,
		Pricing:    pricing,
		Rates:      rates,
		Geocoder:   geo,
		Town:       "Gualeguaychú",
	})
	return &testServer{t: t, handler: h, rates: rates}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
}

func wantCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	wantStatus(t, rec, status)
	body := decode[map[string]string](t, rec)
	if body["code"] != code {
		t.Fatalf("code = %q, want %q", body["code"], code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "")
	wantStatus(t, rec, http.StatusOK)
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Fatalf("status = %q, want ok", got)
	}
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/sessions", `{"mode":"multi"}`)
	wantStatus(t, rec, http.StatusCreated)
	sess := decode[dto.SessionResponse](t, rec)
	base := "/sessions/" + sess.ID

	wantStatus(t, s.do(http.MethodPost, base+"/origin", `{"address":"Rivadavia 100"}`), http.StatusOK)
	rec = s.do(http.MethodPost, base+"/destinations", fmt.Sprintf(`{"lat":%f,"lng":%f}`, destA.Lat, destA.Lng))
	wantStatus(t, rec, http.StatusOK)
	building := decode[dto.TripResponse](t, rec)
	if building.Status != "building" || len(building.Destinations) != 1 {
		t.Fatalf("trip = %+v, want building with one destination", building)
	}
	if building.Destinations[0].Address != "Urquiza 850" {
		t.Fatalf("reverse geocoded address = %q", building.Destinations[0].Address)
	}

	rec = s.do(http.MethodPost, base+"/finalize", "")
	wantStatus(t, rec, http.StatusCreated)
	trip := decode[dto.TripResponse](t, rec)
	if trip.Status != "active" {
		t.Fatalf("Status = %q, want active", trip.Status)
	}

	rec = s.do(http.MethodGet, base, "")
	wantStatus(t, rec, http.StatusOK)
	if decode[dto.SessionResponse](t, rec).Trip != nil {
		t.Fatalf("session still holds a trip after finalize")
	}

	list := decode[dto.ListTripsResponse](t, s.do(http.MethodGet, "/trips", ""))
	if len(list.Trips) != 1 || list.Trips[0].ID != trip.ID {
		t.Fatalf("active trips = %+v", list.Trips)
	}

	wantStatus(t, s.do(http.MethodPost, fmt.Sprintf("/trips/%d/complete", trip.ID), ""), http.StatusOK)

	history := decode[dto.ListTripsResponse](t, s.do(http.MethodGet, "/trips/history", ""))
	if len(history.Trips) != 1 || history.Trips[0].Status != "completed" {
		t.Fatalf("history = %+v", history.Trips)
	}

	stats := decode[dto.StatsResponse](t, s.do(http.MethodGet, "/stats/today", ""))
	if stats.CompletedToday != 1 || stats.EarningsToday != trip.Price {
		t.Fatalf("stats = %+v, want one completed trip earning %v", stats, trip.Price)
	}

	wantStatus(t, s.do(http.MethodDelete, base, ""), http.StatusNoContent)
	wantCode(t, s.do(http.MethodGet, base, ""), http.StatusNotFound, "session_not_found")
}

func TestSessionRejectsTooClosePoint(t *testing.T) {
	s := newTestServer(t)
	sess := decode[dto.SessionResponse](t, s.do(http.MethodPost, "/sessions", ""))
	base := "/sessions/" + sess.ID

	wantStatus(t, s.do(http.MethodPost, base+"/origin", fmt.Sprintf(`{"lat":%f,"lng":%f}`, origin.Lat, origin.Lng)), http.StatusOK)
	rec := s.do(http.MethodPost, base+"/destinations", fmt.Sprintf(`{"lat":%f,"lng":%f}`, origin.Lat+0.0001, origin.Lng))
	wantCode(t, rec, http.StatusConflict, "too_close")
}

func TestDestinationBeforeOriginIsInvalidState(t *testing.T) {
	s := newTestServer(t)
	sess := decode[dto.SessionResponse](t, s.do(http.MethodPost, "/sessions", `{"mode":"single"}`))
	rec := s.do(http.MethodPost, "/sessions/"+sess.ID+"/destinations", `{"address":"Urquiza 850"}`)
	wantCode(t, rec, http.StatusConflict, "invalid_state")
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)
	sess := decode[dto.SessionResponse](t, s.do(http.MethodPost, "/sessions", ""))
	base := "/sessions/" + sess.ID

	wantCode(t, s.do(http.MethodPost, base+"/origin", `{"address":"x","extra":1}`), http.StatusBadRequest, "invalid_json")
	wantCode(t, s.do(http.MethodPost, base+"/origin", `{"lat":95,"lng":0}`), http.StatusBadRequest, "validation")
	wantCode(t, s.do(http.MethodPost, base+"/origin", `{}`), http.StatusBadRequest, "validation")
	wantCode(t, s.do(http.MethodPost, "/sessions", `{"mode":"both"}`), http.StatusBadRequest, "validation")
	wantCode(t, s.do(http.MethodPost, "/trips/manual", `{"origin":"Rivadavia 100","destinations":[]}`), http.StatusBadRequest, "validation")
	wantCode(t, s.do(http.MethodGet, "/trips/abc", ""), http.StatusBadRequest, "invalid_id")
}

func TestManualTrip(t *testing.T) {
	s := newTestServer(t)
	body := `{"origin":"Rivadavia 100","destinations":["Urquiza 850","España 1150"]}`

	rec := s.do(http.MethodPost, "/trips/manual", body)
	wantStatus(t, rec, http.StatusCreated)
	trip := decode[dto.TripResponse](t, rec)
	if len(trip.Destinations) != 2 || trip.Status != "active" {
		t.Fatalf("trip = %+v", trip)
	}
	want := (domain.HaversineMeters(origin, destA) + domain.HaversineMeters(destA, destB)) / 1000 * 500
	if diff := trip.Price - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("Price = %v, want %v", trip.Price, want)
	}

	wantCode(t, s.do(http.MethodPost, "/trips/manual", body), http.StatusConflict, "duplicate_trip")

	rec = s.do(http.MethodPost, "/trips/manual", `{"origin":"Rivadavia 100","destinations":["Nowhere 1"]}`)
	wantCode(t, rec, http.StatusUnprocessableEntity, "geocode_failed")
}

func TestTripEndpoints(t *testing.T) {
	s := newTestServer(t)
	trip := decode[dto.TripResponse](t, s.do(http.MethodPost, "/trips/manual", `{"origin":"Rivadavia 100","destinations":["Urquiza 850","España 1150"]}`))
	path := fmt.Sprintf("/trips/%d", trip.ID)

	rec := s.do(http.MethodGet, path+"/navigation", "")
	wantStatus(t, rec, http.StatusOK)
	nav := decode[dto.NavigationResponse](t, rec)
	if !strings.Contains(nav.URL, "origin=My+Location") || !strings.Contains(nav.URL, "destination=Espa%C3%B1a+1150%2C+Gualeguaych%C3%BA") {
		t.Fatalf("URL = %s", nav.URL)
	}

	rec = s.do(http.MethodGet, path+"/geojson", "")
	wantStatus(t, rec, http.StatusOK)
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 5 {
		t.Fatalf("geojson = %+v, want 3 markers and 2 lines", fc)
	}
	if fc.Features[3].Geometry.Type != "LineString" {
		t.Fatalf("feature 3 type = %q, want LineString", fc.Features[3].Geometry.Type)
	}

	wantCode(t, s.do(http.MethodDelete, path+"/waypoints/9", ""), http.StatusNotFound, "waypoint_not_found")
	wantStatus(t, s.do(http.MethodDelete, path+"/waypoints/1", ""), http.StatusNoContent)
	wantCode(t, s.do(http.MethodGet, path, ""), http.StatusNotFound, "trip_not_found")
	wantCode(t, s.do(http.MethodDelete, path, ""), http.StatusNotFound, "trip_not_found")
}

func TestRateSettings(t *testing.T) {
	s := newTestServer(t)

	rate := decode[dto.RateResponse](t, s.do(http.MethodGet, "/settings/rate", ""))
	if rate.PricePerKm != 500 {
		t.Fatalf("rate = %v, want 500", rate.PricePerKm)
	}

	wantCode(t, s.do(http.MethodPut, "/settings/rate", `{"price_per_km":0}`), http.StatusBadRequest, "validation")
	rec := s.do(http.MethodPut, "/settings/rate", `{"price_per_km":650}`)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[dto.RateResponse](t, rec).PricePerKm; got != 650 {
		t.Fatalf("rate = %v, want 650", got)
	}

	trip := decode[dto.TripResponse](t, s.do(http.MethodPost, "/trips/manual", `{"origin":"Rivadavia 100","destinations":["Urquiza 850"]}`))
	if trip.RatePerKm != 650 {
		t.Fatalf("trip RatePerKm = %v, want 650", trip.RatePerKm)
	}
}

func TestQuote(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/quotes", `{"origin":"Rivadavia 100","destinations":["Urquiza 850"]}`)
	wantStatus(t, rec, http.StatusOK)
	q := decode[dto.QuoteResponse](t, rec)
	if len(q.Points) != 2 || q.RatePerKm != 500 {
		t.Fatalf("quote = %+v", q)
	}
	if want := domain.HaversineMeters(origin, destA); q.DistanceMeters != want {
		t.Fatalf("DistanceMeters = %v, want %v", q.DistanceMeters, want)
	}

	// quotes do not create trips
	if list := decode[dto.ListTripsResponse](t, s.do(http.MethodGet, "/trips", "")); len(list.Trips) != 0 {
		t.Fatalf("active trips = %d, want 0", len(list.Trips))
	}
}
