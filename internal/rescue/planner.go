// Package rescue derives an alternate last-mile plan once the guardian
// decides the current trajectory will miss the connection.
package rescue

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"trip-guardian/internal/geo"
	"trip-guardian/internal/journey"
	"trip-guardian/internal/routing"
)

const (
	// pickupFraction of the straight user->destination line at which
	// the hand-off point is placed.
	pickupFraction = 0.55
	// pickupOffsetDeg nudges the point perpendicular to the line so it
	// lands on a plausible side street rather than the exact midpoint
	// of the road, roughly 400m.
	pickupOffsetDeg = 0.004

	pickupLabel = "next signal junction"

	walkingProfile = "foot"
)

// Options carry the tunable policy numbers for plan assembly.
type Options struct {
	// NearKm and FarKm band the mode recommendation by distance left
	// to the destination.
	NearKm float64
	FarKm  float64
	// WaitMinutes is the fixed wait-for-pickup allowance.
	WaitMinutes float64
	// LastMileSpeedKmh is the assumed auto/bike speed from pickup to
	// destination.
	LastMileSpeedKmh float64
}

// DefaultOptions mirror the shipped policy values.
func DefaultOptions() Options {
	return Options{NearKm: 2, FarKm: 8, WaitMinutes: 5, LastMileSpeedKmh: 15}
}

// Planner produces rescue plans. It never fails: routing errors are
// absorbed by the router's fallback before they reach plan assembly.
type Planner struct {
	router *routing.Router
	opts   Options
	logger zerolog.Logger
}

// NewPlanner constructs a planner over the given router.
func NewPlanner(router *routing.Router, opts Options, logger zerolog.Logger) *Planner {
	if opts.NearKm <= 0 {
		opts.NearKm = 2
	}
	if opts.FarKm <= opts.NearKm {
		opts.FarKm = 8
	}
	if opts.WaitMinutes <= 0 {
		opts.WaitMinutes = 5
	}
	if opts.LastMileSpeedKmh <= 0 {
		opts.LastMileSpeedKmh = 15
	}
	return &Planner{
		router: router,
		opts:   opts,
		logger: logger.With().Str("component", "rescue_planner").Logger(),
	}
}

// DerivePickup walks pickupFraction of the line from the user to the
// destination and applies a small perpendicular offset. Deterministic.
func DerivePickup(userLat, userLng, destLat, destLng float64) journey.Pickup {
	dLat := destLat - userLat
	dLng := destLng - userLng

	lat := userLat + dLat*pickupFraction
	lng := userLng + dLng*pickupFraction

	norm := math.Hypot(dLat, dLng)
	if norm > 0 {
		lat += -dLng / norm * pickupOffsetDeg
		lng += dLat / norm * pickupOffsetDeg
	}

	return journey.Pickup{Lat: lat, Lng: lng, Label: pickupLabel}
}

// Plan assembles a RescuePlan for the triggering tick. A plan is always
// produced once this is invoked.
func (p *Planner) Plan(ctx context.Context, userLat, userLng float64, leg journey.GuardedLeg, tick journey.Tick) journey.RescuePlan {
	pickup := DerivePickup(userLat, userLng, leg.DestLat, leg.DestLng)

	route := p.router.Route(ctx,
		journey.LatLng{Lat: userLat, Lng: userLng},
		journey.LatLng{Lat: pickup.Lat, Lng: pickup.Lng},
		walkingProfile)

	rescueTotalMin := tick.ProjectedArrivalMin // no usable route: assume no improvement
	if route.DurationS > 0 {
		lastMileKm := geo.DistanceKm(pickup.Lat, pickup.Lng, leg.DestLat, leg.DestLng)
		rescueTotalMin = route.DurationS/60 + p.opts.WaitMinutes + lastMileKm/p.opts.LastMileSpeedKmh*60
	}

	saving := int(math.Round(tick.ProjectedArrivalMin - rescueTotalMin))
	if saving < 0 {
		saving = 0
	}

	plan := journey.RescuePlan{
		Pickup:    pickup,
		Route:     route,
		SavingMin: saving,
		Mode:      p.recommendMode(tick.DistanceKm),
	}

	p.logger.Debug().
		Int("saving_min", plan.SavingMin).
		Str("mode", string(plan.Mode)).
		Bool("synthetic_route", route.Synthetic).
		Msg("rescue plan assembled")

	return plan
}

func (p *Planner) recommendMode(distanceToDestKm float64) journey.RescueMode {
	switch {
	case distanceToDestKm < p.opts.NearKm:
		return journey.RescueBikeTaxi
	case distanceToDestKm > p.opts.FarKm:
		return journey.RescueCab
	default:
		return journey.RescueAuto
	}
}
