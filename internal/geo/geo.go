// Package geo holds the pure kinematic helpers behind the guardian:
// great-circle distance, deadline resolution, and the miss-probability
// curve. Everything here is deterministic given its inputs.
package geo

import (
	"fmt"
	"math"
	"time"

	"trip-guardian/internal/journey"
)

const (
	earthRadiusKm = 6371.0

	// safetyBufferMin is subtracted from the remaining minutes before
	// judging whether the current speed is enough. Tunable policy.
	safetyBufferMin = 7.0

	// Logistic curve shape: midpoint at requiredSpeed == currentSpeed,
	// steepness chosen so ratio 0.7 lands near 20% and 1.6 near 85%.
	curveSteepness = 5.0
	curveMidpoint  = 1.0

	// arrivedDistanceKm below which the traveller counts as arrived.
	arrivedDistanceKm = 0.1

	minMissPct = 2
	maxMissPct = 95

	// deadlineGrace keeps a just-passed HH:MM on today instead of
	// rolling it to tomorrow.
	deadlineGrace = 60 * time.Second

	// crawlSpeedKmh is the floor under which no meaningful arrival
	// projection exists; ProjectedArrivalSentinel is reported instead.
	crawlSpeedKmh = 0.5

	// ProjectedArrivalSentinel marks "not moving, no projection".
	ProjectedArrivalSentinel = 999
)

// DistanceKm returns the haversine great-circle distance in kilometres.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ResolveDeadline interprets an "HH:MM" wall-clock string as its next
// occurrence relative to now. A time more than the grace window in the
// past is advanced by exactly one day, which covers overnight journeys
// whose connection departs "tomorrow".
func ResolveDeadline(hhmm string, now time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse deadline %q: %w", hhmm, err)
	}
	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if now.Sub(candidate) > deadlineGrace {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate, nil
}

// MissProbability estimates the chance (0-100, integer) of missing the
// connection, given current speed (km/h), straight-line distance (km),
// and minutes remaining until the deadline. The result always lies in
// [minMissPct, maxMissPct].
func MissProbability(speedKmh, distanceKm, minutesRemaining float64) int {
	effectiveMinutes := minutesRemaining - safetyBufferMin
	if effectiveMinutes <= 0 {
		return maxMissPct // already inside the danger zone
	}
	if distanceKm <= arrivedDistanceKm {
		return minMissPct // effectively arrived
	}

	requiredSpeed := distanceKm / effectiveMinutes * 60
	ratio := requiredSpeed / math.Max(speedKmh, 1)

	pct := 100 / (1 + math.Exp(-curveSteepness*(ratio-curveMidpoint)))
	rounded := int(math.Round(pct))
	if rounded < minMissPct {
		return minMissPct
	}
	if rounded > maxMissPct {
		return maxMissPct
	}
	return rounded
}

// BuildTick derives a risk snapshot for one position sample against the
// guarded leg. Pure given its inputs and now.
func BuildTick(userLat, userLng, speedKmh float64, leg journey.GuardedLeg, now time.Time) (journey.Tick, error) {
	deadline, err := ResolveDeadline(leg.Departure, now)
	if err != nil {
		return journey.Tick{}, err
	}

	minutesRemaining := deadline.Sub(now).Minutes()
	if minutesRemaining < 0 {
		minutesRemaining = 0
	}

	distanceKm := DistanceKm(userLat, userLng, leg.DestLat, leg.DestLng)

	projected := float64(ProjectedArrivalSentinel)
	if speedKmh > crawlSpeedKmh {
		projected = distanceKm / speedKmh * 60
	}

	return journey.Tick{
		MissChancePct:       MissProbability(speedKmh, distanceKm, minutesRemaining),
		MinutesRemaining:    minutesRemaining,
		DistanceKm:          distanceKm,
		ProjectedArrivalMin: projected,
		SpeedKmh:            speedKmh,
		At:                  now,
	}, nil
}
