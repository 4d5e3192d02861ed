package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"trip-guardian/internal/storage"
)

// defaultExportWindow bounds the query when --from is omitted.
const defaultExportWindow = 24 * time.Hour

// Export renders the recorded tick trail as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-defaultExportWindow)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	ticks, err := store.ListTicksBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		a.Logger.Info().Msg("no tick samples found for export window")
		return nil
	}

	downsampled := downsampleTicks(ticks, opts.MaxPoints)
	a.Logger.Info().Int("total", len(ticks)).Int("exported", len(downsampled)).Msg("exporting tick samples")

	if opts.CSVPath != "" {
		if err := writeTicksCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeTicksPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleTicks(ticks []storage.TickSample, max int) []storage.TickSample {
	if max <= 0 || len(ticks) <= max {
		return ticks
	}

	result := make([]storage.TickSample, 0, max)
	step := float64(len(ticks)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(ticks) {
			idx = len(ticks) - 1
		}
		result = append(result, ticks[idx])
	}
	return result
}

func writeTicksCSV(path string, ticks []storage.TickSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"at", "leg_index", "destination", "lat", "lng", "speed_kmh", "distance_km", "minutes_remaining", "projected_arrival_min", "miss_chance_pct", "status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, tick := range ticks {
		record := []string{
			tick.At.UTC().Format(time.RFC3339),
			strconv.Itoa(tick.LegIndex),
			tick.Destination,
			formatFloat(tick.Lat, 6),
			formatFloat(tick.Lng, 6),
			formatFloat(tick.SpeedKmh, 1),
			formatFloat(tick.DistanceKm, 3),
			formatFloat(tick.MinutesRemaining, 1),
			formatFloat(tick.ProjectedArrivalMin, 1),
			strconv.Itoa(tick.MissChancePct),
			tick.Status,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeTicksPNG(path string, ticks []storage.TickSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(ticks))
	risk := make([]float64, len(ticks))
	speed := make([]float64, len(ticks))
	minutes := make([]float64, len(ticks))

	for i, tick := range ticks {
		x[i] = tick.At
		risk[i] = float64(tick.MissChancePct)
		speed[i] = tick.SpeedKmh
		minutes[i] = tick.MinutesRemaining
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Miss chance (%)",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		YAxisSecondary: chart.YAxis{
			Name: "Speed (km/h) / Minutes left",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Miss chance %",
				XValues: x,
				YValues: risk,
			},
			chart.TimeSeries{
				Name:    "Speed km/h",
				XValues: x,
				YValues: speed,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Minutes left",
				XValues: x,
				YValues: minutes,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatFloat(v float64, places int) string {
	return fmt.Sprintf("%.*f", places, v)
}
