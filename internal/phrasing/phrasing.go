package phrasing

import (
	"context"

	"trip-guardian/internal/journey"
)

// Summary is the structured risk situation handed to the provider.
type Summary struct {
	SpeedKmh         float64                `json:"speedKmh"`
	DistanceKm       float64                `json:"distanceKm"`
	MinutesRemaining float64                `json:"minutesRemaining"`
	MissChancePct    int                    `json:"missChancePct"`
	Destination      string                 `json:"destination"`
	Provider         string                 `json:"provider"`
	Mode             journey.TransportMode  `json:"mode"`
	Deadline         string                 `json:"deadline"`
	PickupLabel      string                 `json:"pickupLabel"`
	RescueMode       journey.RescueMode     `json:"rescueMode"`
	SavingMin        int                    `json:"savingMin"`
}

// Phraser authors user-facing alert text. Both operations must be
// assumed fallible; callers always hold the template fallback.
type Phraser interface {
	// PhraseAlert returns the full-length in-app alert message.
	PhraseAlert(ctx context.Context, s Summary) (string, error)
	// PhraseNotification returns the short push-notification title.
	PhraseNotification(ctx context.Context, s Summary) (string, error)
}
