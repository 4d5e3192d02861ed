package geo

import (
	"math"
	"testing"
	"time"

	"trip-guardian/internal/journey"
)

func TestDistanceKmIdentityAndSymmetry(t *testing.T) {
	if d := DistanceKm(12.97, 77.59, 12.97, 77.59); d != 0 {
		t.Fatalf("distance to self should be 0, got %f", d)
	}
	ab := DistanceKm(12.9716, 77.5946, 13.1986, 77.7066)
	ba := DistanceKm(13.1986, 77.7066, 12.9716, 77.5946)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("distance should be symmetric: %f vs %f", ab, ba)
	}
	// BLR city centre to airport is roughly 28km as the crow flies.
	if ab < 25 || ab > 31 {
		t.Fatalf("unexpected distance %f", ab)
	}
}

func TestResolveDeadlineSameDay(t *testing.T) {
	now := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	deadline, err := ResolveDeadline("08:00", now)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	if !deadline.Equal(want) {
		t.Fatalf("expected %v, got %v", want, deadline)
	}
}

func TestResolveDeadlineRollsOvernight(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	deadline, err := ResolveDeadline("00:05", now)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	want := time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)
	if !deadline.Equal(want) {
		t.Fatalf("expected next-day %v, got %v", want, deadline)
	}
}

func TestResolveDeadlineGraceWindow(t *testing.T) {
	// 30 seconds past the deadline still counts as today.
	now := time.Date(2025, 3, 10, 18, 0, 30, 0, time.UTC)
	deadline, err := ResolveDeadline("18:00", now)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if deadline.Day() != 10 {
		t.Fatalf("within grace window the deadline should stay on today, got %v", deadline)
	}

	// Two minutes past rolls to tomorrow.
	now = time.Date(2025, 3, 10, 18, 2, 0, 0, time.UTC)
	deadline, err = ResolveDeadline("18:00", now)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if deadline.Day() != 11 {
		t.Fatalf("past grace window the deadline should roll over, got %v", deadline)
	}
}

func TestResolveDeadlineRejectsGarbage(t *testing.T) {
	if _, err := ResolveDeadline("25:99", time.Now()); err == nil {
		t.Fatal("invalid HH:MM should error")
	}
}

func TestMissProbabilitySaturatesWhenLate(t *testing.T) {
	// 7-minute buffer eats the whole window regardless of speed.
	for _, speed := range []float64{0, 5, 60, 300} {
		if pct := MissProbability(speed, 10, 7); pct != 95 {
			t.Fatalf("expired window should saturate at 95, got %d (speed %f)", pct, speed)
		}
	}
}

func TestMissProbabilitySaturatesWhenArrived(t *testing.T) {
	for _, speed := range []float64{0, 40, 120} {
		if pct := MissProbability(speed, 0.05, 30); pct != 2 {
			t.Fatalf("arrived should saturate at 2, got %d", pct)
		}
	}
}

func TestMissProbabilityCalibration(t *testing.T) {
	// ratio == 1 (exactly enough speed) sits at the curve midpoint.
	// 10km in 27min => required 30km/h.
	if pct := MissProbability(30, 10, 27); pct != 50 {
		t.Fatalf("ratio 1 should yield 50, got %d", pct)
	}
	// Scenario A: 8km, 10min, 20km/h -> required 160, ratio 8, saturated.
	if pct := MissProbability(20, 8, 10); pct != 95 {
		t.Fatalf("scenario A should saturate near 95, got %d", pct)
	}
	// Scenario B: 5km, 30min, 40km/h -> ratio ~0.326, well below 25.
	if pct := MissProbability(40, 5, 30); pct >= 25 {
		t.Fatalf("scenario B should be comfortably safe, got %d", pct)
	}
}

func TestMissProbabilityBounds(t *testing.T) {
	for speed := 0.0; speed <= 200; speed += 7 {
		for dist := 0.0; dist <= 60; dist += 3 {
			for minutes := 0.0; minutes <= 120; minutes += 11 {
				pct := MissProbability(speed, dist, minutes)
				if pct < 2 || pct > 95 {
					t.Fatalf("probability %d out of [2,95] (speed=%f dist=%f min=%f)", pct, speed, dist, minutes)
				}
			}
		}
	}
}

func TestMissProbabilityMonotonicInSpeed(t *testing.T) {
	prev := 101
	for speed := 1.0; speed <= 120; speed += 1 {
		pct := MissProbability(speed, 12, 40)
		if pct > prev {
			t.Fatalf("probability rose from %d to %d as speed increased to %f", prev, pct, speed)
		}
		prev = pct
	}
}

func TestMissProbabilityMonotonicInDistance(t *testing.T) {
	prev := -1
	for dist := 0.2; dist <= 50; dist += 0.5 {
		pct := MissProbability(30, dist, 40)
		if pct < prev {
			t.Fatalf("probability fell from %d to %d as distance grew to %f", prev, pct, dist)
		}
		prev = pct
	}
}

func TestMissProbabilityDeterministic(t *testing.T) {
	a := MissProbability(33.3, 9.9, 41.5)
	b := MissProbability(33.3, 9.9, 41.5)
	if a != b {
		t.Fatalf("same inputs produced %d then %d", a, b)
	}
}

func TestBuildTick(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	leg := journey.GuardedLeg{
		Destination: "City Junction",
		DestLat:     12.9716,
		DestLng:     77.5946,
		Departure:   "09:30",
		NextMode:    journey.ModeTrain,
		Provider:    "IR",
	}

	tick, err := BuildTick(12.9316, 77.5946, 36, leg, now)
	if err != nil {
		t.Fatalf("build tick: %v", err)
	}
	if tick.MinutesRemaining != 30 {
		t.Fatalf("expected 30 minutes remaining, got %f", tick.MinutesRemaining)
	}
	if tick.DistanceKm < 4 || tick.DistanceKm > 5 {
		t.Fatalf("unexpected distance %f", tick.DistanceKm)
	}
	if tick.ProjectedArrivalMin <= 0 || tick.ProjectedArrivalMin > 10 {
		t.Fatalf("unexpected projection %f", tick.ProjectedArrivalMin)
	}

	again, err := BuildTick(12.9316, 77.5946, 36, leg, now)
	if err != nil {
		t.Fatalf("build tick: %v", err)
	}
	if again != tick {
		t.Fatalf("BuildTick is not deterministic: %+v vs %+v", tick, again)
	}
}

func TestBuildTickCrawlSentinel(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	leg := journey.GuardedLeg{Destination: "X", DestLat: 13.0, DestLng: 77.6, Departure: "10:00", NextMode: journey.ModeBus}

	tick, err := BuildTick(12.9, 77.5, 0.2, leg, now)
	if err != nil {
		t.Fatalf("build tick: %v", err)
	}
	if tick.ProjectedArrivalMin != ProjectedArrivalSentinel {
		t.Fatalf("crawl speed should report the sentinel, got %f", tick.ProjectedArrivalMin)
	}
}

func TestBuildTickClampsExpiredDeadline(t *testing.T) {
	// Inside the grace window the deadline stays today but lies in the
	// past: remaining minutes must clamp at zero, not go negative.
	now := time.Date(2025, 3, 10, 18, 0, 30, 0, time.UTC)
	leg := journey.GuardedLeg{Destination: "X", DestLat: 13.0, DestLng: 77.6, Departure: "18:00", NextMode: journey.ModeMetro}

	tick, err := BuildTick(12.9, 77.5, 20, leg, now)
	if err != nil {
		t.Fatalf("build tick: %v", err)
	}
	if tick.MinutesRemaining != 0 {
		t.Fatalf("expected clamp to 0, got %f", tick.MinutesRemaining)
	}
	if tick.MissChancePct != 95 {
		t.Fatalf("expired deadline should saturate risk, got %d", tick.MissChancePct)
	}
}
