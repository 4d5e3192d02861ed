package alerting

import (
	"fmt"
	"strings"

	"trip-guardian/internal/journey"
)

// ShortNotification renders the one-line, notification-length text used
// for push delivery. Pure templating; always succeeds.
func ShortNotification(tick journey.Tick, leg journey.GuardedLeg, savingMin int, mode journey.RescueMode) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%d%% risk of missing your %s at %s.", tick.MissChancePct, leg.NextMode, leg.Departure))
	if savingMin > 0 {
		builder.WriteString(fmt.Sprintf(" Grab %s to save ~%d min.", mode.Label(), savingMin))
	} else {
		builder.WriteString(fmt.Sprintf(" Consider %s for the last stretch.", mode.Label()))
	}
	builder.WriteString(" Tap to see the rescue plan.")
	return builder.String()
}

// FallbackTitle renders the notification title used when the phrasing
// provider cannot supply one.
func FallbackTitle(tick journey.Tick, leg journey.GuardedLeg) string {
	return fmt.Sprintf("%d%% risk: %s %s at %s", tick.MissChancePct, leg.Destination, leg.NextMode, leg.Departure)
}

// FallbackMessage renders the full in-app alert used whenever the
// phrasing provider is unreachable or fails, so the user never sees a
// blank alert.
func FallbackMessage(tick journey.Tick, leg journey.GuardedLeg, pickupLabel string, mode journey.RescueMode, savingMin int) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf(
		"At your current pace of %.0f km/h there is a %d%% chance you miss the %s %s departing at %s.",
		tick.SpeedKmh, tick.MissChancePct, leg.Provider, leg.NextMode, leg.Departure))
	builder.WriteString(fmt.Sprintf(
		" You still have %.1f km to cover with %.0f minutes left.",
		tick.DistanceKm, tick.MinutesRemaining))
	builder.WriteString(fmt.Sprintf(
		" Hop off at the %s and take %s the rest of the way", pickupLabel, mode.Label()))
	if savingMin > 0 {
		builder.WriteString(fmt.Sprintf(" — that should save you about %d minutes.", savingMin))
	} else {
		builder.WriteString(".")
	}
	return builder.String()
}
