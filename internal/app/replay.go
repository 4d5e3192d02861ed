package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"trip-guardian/internal/journey"
	"trip-guardian/internal/metrics"
	"trip-guardian/internal/storage"
	"trip-guardian/internal/stream"
)

// Replay runs the guardian over a recorded position log and prints what
// it concluded. With --dry-run no notification leaves the process and
// nothing is persisted.
func (a *App) Replay(ctx context.Context, opts ReplayOptions) error {
	legs, err := journey.LoadLegs(opts.LegsPath)
	if err != nil {
		return err
	}

	rep, err := stream.LoadReplay(opts.LogPath, opts.Interval, a.Logger)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()

	var store *storage.Store
	notifier := a.newNotifier()
	if opts.DryRun {
		notifier = nil
	} else {
		opened, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}
		store = opened
	}

	g := a.newGuardian(store, collector, notifier)

	source := stream.NewManual()
	g.Start(ctx, legs, source)
	if g.Status() == journey.StatusIdle {
		return fmt.Errorf("replay aborted: guardian did not start")
	}
	defer g.Stop()

	a.Logger.Info().Int("samples", rep.Len()).Bool("dry_run", opts.DryRun).Msg("replaying position log")
	if err := rep.Run(ctx, source.Emit); err != nil {
		return err
	}

	tick, ok := g.CurrentTick()
	if !ok {
		fmt.Fprintln(os.Stdout, "replay produced no usable ticks")
		return nil
	}

	// The alert pipeline commits off the sample path; give an in-flight
	// computation a chance to land before reporting.
	if tick.MissChancePct > a.Config.Guardian.AlertThresholdPct {
		deadline := time.Now().Add(a.Config.Guardian.ComputeTimeout + time.Second)
		for time.Now().Before(deadline) {
			if _, ok := g.ActiveAlert(); ok {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
	}

	fmt.Fprintf(os.Stdout, "final status: %s\n", g.Status())
	fmt.Fprintf(os.Stdout, "final risk: %d%% (%.1f km out, %.0f min to deadline, %.0f km/h)\n",
		tick.MissChancePct, tick.DistanceKm, tick.MinutesRemaining, tick.SpeedKmh)

	if alert, ok := g.ActiveAlert(); ok {
		fmt.Fprintf(os.Stdout, "alert: %s\n", alert.Title)
		fmt.Fprintf(os.Stdout, "  %s\n", alert.Message)
		fmt.Fprintf(os.Stdout, "  pickup %q at (%.5f, %.5f), take %s, saves ~%d min\n",
			alert.Plan.Pickup.Label, alert.Plan.Pickup.Lat, alert.Plan.Pickup.Lng,
			alert.Plan.Mode.Label(), alert.Plan.SavingMin)
	}
	return nil
}
