package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertTickSQL = `INSERT INTO tick_samples (
        at,
        leg_index,
        destination,
        lat,
        lng,
        speed_kmh,
        distance_km,
        minutes_remaining,
        projected_arrival_min,
        miss_chance_pct,
        status
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (at) DO UPDATE
    SET
        leg_index             = EXCLUDED.leg_index,
        destination           = EXCLUDED.destination,
        lat                   = EXCLUDED.lat,
        lng                   = EXCLUDED.lng,
        speed_kmh             = EXCLUDED.speed_kmh,
        distance_km           = EXCLUDED.distance_km,
        minutes_remaining     = EXCLUDED.minutes_remaining,
        projected_arrival_min = EXCLUDED.projected_arrival_min,
        miss_chance_pct       = EXCLUDED.miss_chance_pct,
        status                = EXCLUDED.status;`

	listTicksBetweenSQL = `SELECT
        at, leg_index, destination, lat, lng, speed_kmh, distance_km,
        minutes_remaining, projected_arrival_min, miss_chance_pct, status, created_at
    FROM tick_samples
    WHERE at >= $1 AND at < $2
    ORDER BY at;`

	listRecentTicksSQL = `SELECT
        at, leg_index, destination, lat, lng, speed_kmh, distance_km,
        minutes_remaining, projected_arrival_min, miss_chance_pct, status, created_at
    FROM tick_samples
    ORDER BY at DESC
    LIMIT $1;`

	countTicksSQL = `SELECT COUNT(*) FROM tick_samples;`

	insertAlertSQL = `INSERT INTO alert_emissions (
        triggered_at,
        leg_index,
        destination,
        miss_chance_pct,
        saving_min,
        rescue_mode,
        title,
        message,
        fallback
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id, triggered_at, leg_index, destination, miss_chance_pct,
        saving_min, rescue_mode, title, message, fallback, created_at;`

	listRecentAlertsSQL = `SELECT
        id, triggered_at, leg_index, destination, miss_chance_pct,
        saving_min, rescue_mode, title, message, fallback, created_at
    FROM alert_emissions
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alert_emissions WHERE created_at < $1;`
)

// TickStore defines operations for tick sample persistence.
type TickStore interface {
	InsertTick(ctx context.Context, sample TickSample) error
	ListTicksBetween(ctx context.Context, from, to time.Time) ([]TickSample, error)
	ListRecentTicks(ctx context.Context, limit int) ([]TickSample, error)
	CountTicks(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to tick samples and alert emissions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertTick persists or updates one observation.
func (s *Store) InsertTick(ctx context.Context, sample TickSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertTickSQL,
		sample.At,
		sample.LegIndex,
		sample.Destination,
		sample.Lat,
		sample.Lng,
		sample.SpeedKmh,
		sample.DistanceKm,
		sample.MinutesRemaining,
		sample.ProjectedArrivalMin,
		sample.MissChancePct,
		sample.Status,
	)
	if execErr != nil {
		return fmt.Errorf("insert tick sample: %w", execErr)
	}
	return nil
}

// ListTicksBetween lists samples within a time window.
func (s *Store) ListTicksBetween(ctx context.Context, from, to time.Time) ([]TickSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTicksBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list ticks between: %w", queryErr)
	}
	defer rows.Close()

	return collectTicks(rows, 0)
}

// ListRecentTicks lists the most recent samples, newest first.
func (s *Store) ListRecentTicks(ctx context.Context, limit int) ([]TickSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTicksSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent ticks: %w", queryErr)
	}
	defer rows.Close()

	return collectTicks(rows, limit)
}

// CountTicks counts stored samples.
func (s *Store) CountTicks(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countTicksSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count ticks: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.TriggeredAt,
		alert.LegIndex,
		alert.Destination,
		alert.MissChancePct,
		alert.SavingMin,
		alert.RescueMode,
		alert.Title,
		alert.Message,
		alert.Fallback,
	)

	var rec AlertRecord
	if scanErr := row.Scan(
		&rec.ID,
		&rec.TriggeredAt,
		&rec.LegIndex,
		&rec.Destination,
		&rec.MissChancePct,
		&rec.SavingMin,
		&rec.RescueMode,
		&rec.Title,
		&rec.Message,
		&rec.Fallback,
		&rec.CreatedAt,
	); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alert emissions.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.TriggeredAt,
			&rec.LegIndex,
			&rec.Destination,
			&rec.MissChancePct,
			&rec.SavingMin,
			&rec.RescueMode,
			&rec.Title,
			&rec.Message,
			&rec.Fallback,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alert emissions.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func collectTicks(rows pgx.Rows, sizeHint int) ([]TickSample, error) {
	samples := make([]TickSample, 0, sizeHint)
	for rows.Next() {
		var sample TickSample
		if err := rows.Scan(
			&sample.At,
			&sample.LegIndex,
			&sample.Destination,
			&sample.Lat,
			&sample.Lng,
			&sample.SpeedKmh,
			&sample.DistanceKm,
			&sample.MinutesRemaining,
			&sample.ProjectedArrivalMin,
			&sample.MissChancePct,
			&sample.Status,
			&sample.CreatedAt,
		); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

var _ TickStore = (*Store)(nil)
var _ AlertStore = (*Store)(nil)
