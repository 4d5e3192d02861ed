package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"trip-guardian/internal/geo"
	"trip-guardian/internal/journey"
)

// Provider computes a route between two points. Implementations are
// fallible; callers wanting a guaranteed result go through Router.
type Provider interface {
	Route(ctx context.Context, from, to journey.LatLng, profile string) (journey.Route, error)
}

// Assumed straight-line speeds per profile for the synthetic fallback,
// in km/h.
var syntheticSpeedKmh = map[string]float64{
	"foot":    4.8,
	"bike":    14,
	"driving": 28,
}

// Synthetic builds a straight-line approximation with the same shape a
// provider would return. It never fails and is the guaranteed second
// tier behind every routing call.
func Synthetic(from, to journey.LatLng, profile string) journey.Route {
	distanceM := geo.DistanceKm(from.Lat, from.Lng, to.Lat, to.Lng) * 1000

	speed := syntheticSpeedKmh[strings.ToLower(profile)]
	if speed <= 0 {
		speed = syntheticSpeedKmh["foot"]
	}
	durationS := distanceM / (speed * 1000 / 3600)

	return journey.Route{
		Coordinates: []journey.LatLng{from, to},
		DistanceM:   distanceM,
		DurationS:   durationS,
		Steps: []journey.RouteStep{{
			Instruction: "Head directly towards the pickup point",
			DistanceM:   distanceM,
			DurationS:   durationS,
		}},
		Synthetic: true,
	}
}

// Router composes a fallible provider with the synthetic fallback so
// callers always receive a usable route.
type Router struct {
	provider Provider
	logger   zerolog.Logger
}

// NewRouter wires a provider behind the fallback. A nil provider is
// allowed and always yields the synthetic route.
func NewRouter(provider Provider, logger zerolog.Logger) *Router {
	return &Router{
		provider: provider,
		logger:   logger.With().Str("component", "router").Logger(),
	}
}

// Route never fails: provider errors are logged and replaced with the
// straight-line approximation.
func (r *Router) Route(ctx context.Context, from, to journey.LatLng, profile string) journey.Route {
	if r.provider == nil {
		return Synthetic(from, to, profile)
	}

	route, err := r.provider.Route(ctx, from, to, profile)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("profile", profile).
			Msg("routing provider failed; using straight-line fallback")
		return Synthetic(from, to, profile)
	}
	if len(route.Coordinates) == 0 {
		r.logger.Warn().Str("profile", profile).Msg("routing provider returned empty geometry; using fallback")
		return Synthetic(from, to, profile)
	}
	return route
}

func formatCoord(p journey.LatLng) string {
	// OSRM wants lng,lat order.
	return fmt.Sprintf("%f,%f", p.Lng, p.Lat)
}
