package routing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trip-guardian/internal/journey"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestOSRMRouteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/route/v1/foot/") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": "Ok",
			"routes": []map[string]any{{
				"distance": 850.0,
				"duration": 640.0,
				"geometry": map[string]any{
					"coordinates": [][]float64{{77.59, 12.97}, {77.60, 12.98}},
				},
				"legs": []map[string]any{{
					"steps": []map[string]any{{
						"distance": 850.0,
						"duration": 640.0,
						"name":     "Station Road",
						"maneuver": map[string]string{"type": "turn", "modifier": "left"},
					}},
				}},
			}},
		})
	}))
	defer srv.Close()

	client := NewOSRM(OSRMOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	route, err := client.Route(context.Background(), journey.LatLng{Lat: 12.97, Lng: 77.59}, journey.LatLng{Lat: 12.98, Lng: 77.60}, "foot")
	if err != nil {
		t.Fatalf("route should succeed: %v", err)
	}
	if route.DistanceM != 850 || route.DurationS != 640 {
		t.Fatalf("unexpected route %+v", route)
	}
	if len(route.Coordinates) != 2 || route.Coordinates[0].Lat != 12.97 {
		t.Fatalf("geojson lng,lat pairs should be swapped into LatLng: %+v", route.Coordinates)
	}
	if len(route.Steps) != 1 || route.Steps[0].Instruction != "turn left onto Station Road" {
		t.Fatalf("unexpected steps %+v", route.Steps)
	}
	if route.Synthetic {
		t.Fatal("provider route must not be marked synthetic")
	}
}

func TestOSRMRouteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "InvalidQuery"})
	}))
	defer srv.Close()

	client := NewOSRM(OSRMOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := client.Route(context.Background(), journey.LatLng{}, journey.LatLng{}, "foot"); err == nil {
		t.Fatal("HTTP 400 should return an error")
	}
}

func TestOSRMRouteNonOkCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "NoRoute", "routes": []any{}})
	}))
	defer srv.Close()

	client := NewOSRM(OSRMOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := client.Route(context.Background(), journey.LatLng{}, journey.LatLng{}, "foot"); err == nil {
		t.Fatal("non-Ok code should return an error")
	}
}

func TestSyntheticShape(t *testing.T) {
	from := journey.LatLng{Lat: 12.9716, Lng: 77.5946}
	to := journey.LatLng{Lat: 13.0000, Lng: 77.5946}

	route := Synthetic(from, to, "foot")
	if !route.Synthetic {
		t.Fatal("fallback must be marked synthetic")
	}
	if len(route.Coordinates) != 2 || len(route.Steps) != 1 {
		t.Fatalf("fallback should carry endpoints and a single step: %+v", route)
	}
	if route.DistanceM < 3000 || route.DistanceM > 3500 {
		t.Fatalf("unexpected straight-line distance %f", route.DistanceM)
	}
	// walking 4.8 km/h -> duration = distance / 1.333 m/s
	wantDur := route.DistanceM / (4.8 * 1000 / 3600)
	if route.DurationS != wantDur {
		t.Fatalf("unexpected duration %f want %f", route.DurationS, wantDur)
	}
}

type failingProvider struct{}

func (failingProvider) Route(ctx context.Context, from, to journey.LatLng, profile string) (journey.Route, error) {
	return journey.Route{}, context.DeadlineExceeded
}

func TestRouterFallsBack(t *testing.T) {
	router := NewRouter(failingProvider{}, noopLogger())
	route := router.Route(context.Background(), journey.LatLng{Lat: 12.9, Lng: 77.5}, journey.LatLng{Lat: 12.95, Lng: 77.55}, "foot")
	if !route.Synthetic {
		t.Fatal("router must substitute the synthetic route on provider failure")
	}
	if route.DistanceM <= 0 {
		t.Fatalf("fallback route should have a positive distance, got %f", route.DistanceM)
	}
}

func TestRouterWithoutProvider(t *testing.T) {
	router := NewRouter(nil, noopLogger())
	route := router.Route(context.Background(), journey.LatLng{Lat: 12.9, Lng: 77.5}, journey.LatLng{Lat: 12.91, Lng: 77.51}, "foot")
	if !route.Synthetic {
		t.Fatal("nil provider should yield the synthetic route")
	}
}
