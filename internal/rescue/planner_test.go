package rescue

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"trip-guardian/internal/journey"
	"trip-guardian/internal/routing"
)

func testPlanner() *Planner {
	return NewPlanner(routing.NewRouter(nil, zerolog.Nop()), DefaultOptions(), zerolog.Nop())
}

func TestDerivePickupDeterministic(t *testing.T) {
	a := DerivePickup(12.9, 77.5, 13.0, 77.6)
	b := DerivePickup(12.9, 77.5, 13.0, 77.6)
	if a != b {
		t.Fatalf("pickup derivation is not deterministic: %+v vs %+v", a, b)
	}
	if a.Label != "next signal junction" {
		t.Fatalf("unexpected label %q", a.Label)
	}
}

func TestDerivePickupGeometry(t *testing.T) {
	// Due-north line: the 55% point offsets purely in longitude.
	p := DerivePickup(12.0, 77.0, 13.0, 77.0)
	wantLat := 12.0 + 0.55
	if math.Abs(p.Lat-wantLat) > 1e-9 {
		t.Fatalf("expected lat %f, got %f", wantLat, p.Lat)
	}
	if math.Abs(p.Lng-77.004) > 1e-9 {
		t.Fatalf("expected perpendicular lng offset 0.004, got %f", p.Lng-77.0)
	}
}

func TestDerivePickupZeroDistance(t *testing.T) {
	p := DerivePickup(12.9, 77.5, 12.9, 77.5)
	if p.Lat != 12.9 || p.Lng != 77.5 {
		t.Fatalf("coincident points should not offset: %+v", p)
	}
}

func TestRecommendModeBands(t *testing.T) {
	p := testPlanner()
	cases := []struct {
		distKm float64
		want   journey.RescueMode
	}{
		{1.5, journey.RescueBikeTaxi},
		{5, journey.RescueAuto},
		{10, journey.RescueCab},
		{2, journey.RescueAuto}, // boundary is exclusive
		{8, journey.RescueAuto},
	}
	for _, c := range cases {
		if got := p.recommendMode(c.distKm); got != c.want {
			t.Fatalf("distance %f: expected %s, got %s", c.distKm, c.want, got)
		}
	}
}

func TestPlanAlwaysProducesPlan(t *testing.T) {
	p := testPlanner()
	tick := journey.Tick{DistanceKm: 5, ProjectedArrivalMin: 40, SpeedKmh: 10}
	leg := journey.GuardedLeg{Destination: "Terminal", DestLat: 13.0, DestLng: 77.6, Departure: "10:00", NextMode: journey.ModeTrain}

	plan := p.Plan(context.Background(), 12.95, 77.55, leg, tick)
	if plan.Mode != journey.RescueAuto {
		t.Fatalf("5km band should recommend auto, got %s", plan.Mode)
	}
	if len(plan.Route.Coordinates) == 0 {
		t.Fatal("plan must always carry a route, synthetic or not")
	}
	if !plan.Route.Synthetic {
		t.Fatal("nil provider should have produced the synthetic route")
	}
	if plan.SavingMin < 0 {
		t.Fatalf("saving must be clamped at zero, got %d", plan.SavingMin)
	}
}

func TestPlanSavingClampedAtZero(t *testing.T) {
	p := testPlanner()
	// Projection already tiny: the rescue detour cannot beat it.
	tick := journey.Tick{DistanceKm: 5, ProjectedArrivalMin: 1, SpeedKmh: 60}
	leg := journey.GuardedLeg{Destination: "Terminal", DestLat: 13.0, DestLng: 77.6, Departure: "10:00", NextMode: journey.ModeBus}

	plan := p.Plan(context.Background(), 12.95, 77.55, leg, tick)
	if plan.SavingMin != 0 {
		t.Fatalf("expected zero saving, got %d", plan.SavingMin)
	}
}
