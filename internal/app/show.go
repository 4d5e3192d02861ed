package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"trip-guardian/internal/storage"
)

// Show prints recent audit rows: tick samples by default, alert
// emissions with --alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Alerts {
		return a.showAlerts(ctx, store, opts.Limit)
	}
	return a.showTicks(ctx, store, opts.Limit)
}

func (a *App) showTicks(ctx context.Context, store storage.TickStore, limit int) error {
	ticks, err := store.ListRecentTicks(ctx, limit)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		fmt.Fprintln(os.Stdout, "no tick samples found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tLeg\tDestination\tSpeed km/h\tDist km\tMin left\tRisk%\tStatus")

	for _, tick := range ticks {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s\t%.1f\t%.2f\t%.1f\t%d\t%s\n",
			tick.At.UTC().Format(time.RFC3339),
			tick.LegIndex,
			tick.Destination,
			tick.SpeedKmh,
			tick.DistanceKm,
			tick.MinutesRemaining,
			tick.MissChancePct,
			tick.Status,
		)
	}

	return writer.Flush()
}

func (a *App) showAlerts(ctx context.Context, store storage.AlertStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tLeg\tDestination\tRisk%\tSaving min\tMode\tFallback\tTitle")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s\t%d\t%d\t%s\t%v\t%s\n",
			alert.TriggeredAt.UTC().Format(time.RFC3339),
			alert.LegIndex,
			alert.Destination,
			alert.MissChancePct,
			alert.SavingMin,
			alert.RescueMode,
			alert.Fallback,
			sanitizeInline(alert.Title),
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
