package storage

import (
	"time"
)

// TickSample is one persisted risk observation, written best-effort as
// samples are evaluated. Audit telemetry only; guardian state is never
// restored from it.
type TickSample struct {
	At                  time.Time
	LegIndex            int
	Destination         string
	Lat                 float64
	Lng                 float64
	SpeedKmh            float64
	DistanceKm          float64
	MinutesRemaining    float64
	ProjectedArrivalMin float64
	MissChancePct       int
	Status              string
	CreatedAt           time.Time
}

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID            int64
	TriggeredAt   time.Time
	LegIndex      int
	Destination   string
	MissChancePct int
	SavingMin     int
	RescueMode    string
	Title         string
	Message       string
	Fallback      bool
	CreatedAt     time.Time
}
