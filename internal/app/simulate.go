package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"trip-guardian/internal/journey"
	"trip-guardian/internal/metrics"
	"trip-guardian/internal/stream"
)

// SimulateAlert 用一条合成位置样本完整走一遍告警管线。
// The real planner, phrasing client, and notifier are exercised, so the
// command doubles as an end-to-end smoke test of the configured stack.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	leg := journey.GuardedLeg{
		Destination: opts.DestName,
		DestLat:     opts.DestLat,
		DestLng:     opts.DestLng,
		Departure:   opts.Departure,
		NextMode:    journey.TransportMode(opts.Mode),
		Provider:    opts.Provider,
	}
	if err := leg.Validate(); err != nil {
		return err
	}

	g := a.newGuardian(nil, metrics.NewCollector(), a.newNotifier())

	source := stream.NewManual()
	g.Start(ctx, []journey.GuardedLeg{leg}, source)
	if g.Status() == journey.StatusIdle {
		return errors.New("simulation aborted: guardian did not start")
	}
	defer g.Stop()

	source.Emit(journey.PositionSample{
		Lat:      opts.Lat,
		Lng:      opts.Lng,
		SpeedMps: opts.SpeedKmh / 3.6,
		At:       time.Now(),
	})

	tick, ok := g.CurrentTick()
	if !ok {
		return errors.New("sample was rejected; check the leg departure time")
	}

	fmt.Fprintf(os.Stdout, "risk: %d%% (%.1f km out, %.0f min to deadline)\n",
		tick.MissChancePct, tick.DistanceKm, tick.MinutesRemaining)

	if tick.MissChancePct <= a.Config.Guardian.AlertThresholdPct {
		fmt.Fprintln(os.Stdout, "below the alert threshold; no alert raised")
		return nil
	}

	deadline := time.Now().Add(a.Config.Guardian.ComputeTimeout + 2*time.Second)
	for time.Now().Before(deadline) {
		if _, ok := g.ActiveAlert(); ok {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	alert, ok := g.ActiveAlert()
	if !ok {
		return errors.New("alert pipeline did not complete in time")
	}

	fmt.Fprintf(os.Stdout, "title: %s\n", alert.Title)
	fmt.Fprintf(os.Stdout, "message: %s\n", alert.Message)
	fmt.Fprintf(os.Stdout, "pickup: %q at (%.5f, %.5f)\n",
		alert.Plan.Pickup.Label, alert.Plan.Pickup.Lat, alert.Plan.Pickup.Lng)
	fmt.Fprintf(os.Stdout, "mode: %s, saves ~%d min (route synthetic: %v)\n",
		alert.Plan.Mode.Label(), alert.Plan.SavingMin, alert.Plan.Route.Synthetic)
	return nil
}
