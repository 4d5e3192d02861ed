package journey

import (
	"fmt"
	"time"
)

// TransportMode enumerates the connection modes a leg can depart with.
type TransportMode string

const (
	ModeTrain     TransportMode = "train"
	ModeFlight    TransportMode = "flight"
	ModeBus       TransportMode = "bus"
	ModeMetro     TransportMode = "metro"
	ModeFerry     TransportMode = "ferry"
	ModeRideshare TransportMode = "rideshare"
)

// Valid reports whether the mode is one of the known enum values.
func (m TransportMode) Valid() bool {
	switch m {
	case ModeTrain, ModeFlight, ModeBus, ModeMetro, ModeFerry, ModeRideshare:
		return true
	}
	return false
}

// RescueMode is the recommended last-mile transport for a rescue plan.
type RescueMode string

const (
	RescueAuto     RescueMode = "auto"
	RescueBikeTaxi RescueMode = "bike_taxi"
	RescueCab      RescueMode = "cab"
)

// Label returns a human-readable phrase for message templating.
func (m RescueMode) Label() string {
	switch m {
	case RescueBikeTaxi:
		return "a bike taxi"
	case RescueCab:
		return "a cab"
	default:
		return "an auto"
	}
}

// GuardedLeg is one monitored connection. Immutable once monitoring starts.
type GuardedLeg struct {
	Destination string        `json:"destination"`
	DestLat     float64       `json:"lat"`
	DestLng     float64       `json:"lng"`
	Departure   string        `json:"departure"` // wall-clock "HH:MM", resolved to its next occurrence
	NextMode    TransportMode `json:"mode"`
	Provider    string        `json:"provider"`
}

// Validate checks the leg fields that monitoring depends on.
func (l GuardedLeg) Validate() error {
	if l.Destination == "" {
		return fmt.Errorf("leg destination is required")
	}
	if l.DestLat < -90 || l.DestLat > 90 || l.DestLng < -180 || l.DestLng > 180 {
		return fmt.Errorf("leg %q has out-of-range coordinates (%f, %f)", l.Destination, l.DestLat, l.DestLng)
	}
	if _, err := time.Parse("15:04", l.Departure); err != nil {
		return fmt.Errorf("leg %q departure must be HH:MM: %w", l.Destination, err)
	}
	if !l.NextMode.Valid() {
		return fmt.Errorf("leg %q has unknown transport mode %q", l.Destination, l.NextMode)
	}
	return nil
}

// Tick is one computed risk snapshot from a single position sample.
// Superseded by the next sample; never mutated.
type Tick struct {
	MissChancePct       int
	MinutesRemaining    float64
	DistanceKm          float64
	ProjectedArrivalMin float64
	SpeedKmh            float64
	At                  time.Time
}

// LatLng is a WGS 84 coordinate pair in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteStep is a single turn-by-turn instruction.
type RouteStep struct {
	Instruction string  `json:"instruction"`
	DistanceM   float64 `json:"distanceMeters"`
	DurationS   float64 `json:"durationSeconds"`
}

// Route is a computed path. Synthetic marks the straight-line
// approximation substituted when the routing provider is unavailable.
type Route struct {
	Coordinates []LatLng    `json:"coordinates"`
	DistanceM   float64     `json:"distanceMeters"`
	DurationS   float64     `json:"durationSeconds"`
	Steps       []RouteStep `json:"steps"`
	Synthetic   bool        `json:"synthetic"`
}

// Pickup is a hand-off point for the rescue plan.
type Pickup struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// RescuePlan is computed fresh on each alert trigger; never cached.
type RescuePlan struct {
	Pickup    Pickup
	Route     Route
	SavingMin int
	Mode      RescueMode
}

// Alert is the object surfaced to the presentation layer. Its Tick is a
// frozen snapshot of the sample that triggered it.
type Alert struct {
	Tick        Tick
	Title       string
	Message     string
	Plan        RescuePlan
	TriggeredAt time.Time
}

// Status is the guardian session state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusWatching Status = "watching"
	StatusSafe     Status = "safe"
	StatusAlert    Status = "alert"
	StatusPivoting Status = "pivoting"
)

// PositionSample is one raw observation from the position source.
// SpeedMps may be absent or negative and must be clamped before use.
type PositionSample struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	SpeedMps float64   `json:"speedMps"`
	At       time.Time `json:"timestamp"`
}

// SpeedKmh returns the sample speed clamped to >= 0 and converted to km/h.
func (s PositionSample) SpeedKmh() float64 {
	if s.SpeedMps <= 0 {
		return 0
	}
	return s.SpeedMps * 3.6
}
