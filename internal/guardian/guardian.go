// Package guardian owns the per-journey monitoring session: it consumes
// position samples, evaluates miss risk against the alert/safe
// thresholds, and coordinates rescue planning, phrasing, and
// notification delivery.
package guardian

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trip-guardian/internal/alerting"
	"trip-guardian/internal/config"
	"trip-guardian/internal/geo"
	"trip-guardian/internal/journey"
	"trip-guardian/internal/metrics"
	"trip-guardian/internal/phrasing"
	"trip-guardian/internal/storage"
	"trip-guardian/internal/stream"
)

// RescuePlanner produces a plan for a risky tick. Implementations must
// always return a usable plan; routing failures are absorbed earlier.
type RescuePlanner interface {
	Plan(ctx context.Context, userLat, userLng float64, leg journey.GuardedLeg, tick journey.Tick) journey.RescuePlan
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Deps bundle the guardian's injected collaborators. Planner and Logger
// are required; everything else may be nil/absent.
type Deps struct {
	Planner  RescuePlanner
	Phraser  phrasing.Phraser
	Notifier alerting.Notifier
	Ticks    storage.TickStore
	Alerts   storage.AlertStore
	Metrics  *metrics.Collector
	Logger   zerolog.Logger
	Config   config.GuardianConfig
	Clock    Clock
}

// Guardian is the state machine for one journey. Exactly one session is
// active at a time; all session state lives behind mu and is mutated
// only by the transition rules in HandleSample and the user actions.
type Guardian struct {
	planner  RescuePlanner
	phraser  phrasing.Phraser
	notifier alerting.Notifier
	ticks    storage.TickStore
	alerts   storage.AlertStore
	metrics  *metrics.Collector
	logger   zerolog.Logger
	cfg      config.GuardianConfig
	clock    Clock

	mu            sync.Mutex
	status        journey.Status
	legs          []journey.GuardedLeg
	legIdx        int
	lastTick      *journey.Tick
	activeAlert   *journey.Alert
	lastAlertAt   time.Time
	alertInFlight bool
	// session increments on every Start/Stop; in-flight computations
	// carry the value they started under and discard their result if
	// it no longer matches.
	session      uint64
	cancelStream func()
}

// New constructs an idle guardian.
func New(deps Deps) *Guardian {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	cfg := deps.Config
	if cfg.AlertThresholdPct <= 0 {
		cfg.AlertThresholdPct = 60
	}
	if cfg.SafeThresholdPct <= 0 {
		cfg.SafeThresholdPct = 25
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 3 * time.Minute
	}
	if cfg.ComputeTimeout <= 0 {
		cfg.ComputeTimeout = 6 * time.Second
	}

	return &Guardian{
		planner:  deps.Planner,
		phraser:  deps.Phraser,
		notifier: deps.Notifier,
		ticks:    deps.Ticks,
		alerts:   deps.Alerts,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With().Str("component", "guardian").Logger(),
		cfg:      cfg,
		clock:    clock,
		status:   journey.StatusIdle,
	}
}

// Start begins monitoring the given legs against the position source.
// Missing prerequisites (no legs, invalid legs, unavailable stream) are
// logged and Start has no effect; no error crosses this boundary.
func (g *Guardian) Start(ctx context.Context, legs []journey.GuardedLeg, source stream.PositionSource) {
	if len(legs) == 0 {
		g.logger.Warn().Msg("start ignored: no legs to guard")
		return
	}
	for i, leg := range legs {
		if err := leg.Validate(); err != nil {
			g.logger.Warn().Err(err).Int("leg", i).Msg("start ignored: invalid leg")
			return
		}
	}

	g.mu.Lock()
	if g.status != journey.StatusIdle {
		g.mu.Unlock()
		g.logger.Warn().Msg("start ignored: a session is already active")
		return
	}
	g.session++
	session := g.session
	g.legs = append([]journey.GuardedLeg(nil), legs...)
	g.legIdx = 0
	g.lastTick = nil
	g.activeAlert = nil
	g.lastAlertAt = time.Time{}
	g.alertInFlight = false
	g.status = journey.StatusWatching
	g.mu.Unlock()

	cancel, err := source.Subscribe(ctx, g.HandleSample)
	if err != nil {
		g.logger.Warn().Err(err).Msg("start ignored: position stream unavailable")
		g.mu.Lock()
		if g.session == session {
			g.status = journey.StatusIdle
			g.legs = nil
		}
		g.mu.Unlock()
		return
	}

	g.mu.Lock()
	// A Stop may have raced the subscription; do not commit a cancel
	// func onto a session that no longer exists.
	if g.session != session || g.status == journey.StatusIdle {
		g.mu.Unlock()
		cancel()
		return
	}
	g.cancelStream = cancel
	g.mu.Unlock()

	g.logger.Info().Int("legs", len(legs)).Str("first_destination", legs[0].Destination).Msg("guardian watching")
}

// HandleSample evaluates one position sample. Samples are serialised by
// the session mutex; only one alert pipeline can be in flight at a time.
func (g *Guardian) HandleSample(sample journey.PositionSample) {
	g.mu.Lock()

	if g.status == journey.StatusIdle || g.legIdx >= len(g.legs) {
		g.mu.Unlock()
		return
	}

	now := g.clock()
	leg := g.legs[g.legIdx]

	tick, err := geo.BuildTick(sample.Lat, sample.Lng, sample.SpeedKmh(), leg, now)
	if err != nil {
		g.mu.Unlock()
		g.logger.Warn().Err(err).Msg("dropping sample: tick build failed")
		return
	}
	g.lastTick = &tick

	session := g.session
	legIdx := g.legIdx

	switch {
	case tick.MinutesRemaining <= 0 && g.legIdx < len(g.legs)-1:
		// Deadline has passed: hand over to the next leg.
		g.legIdx++
		g.activeAlert = nil
		g.status = journey.StatusWatching
		g.logger.Info().
			Int("leg", g.legIdx).
			Str("destination", g.legs[g.legIdx].Destination).
			Msg("deadline reached; guarding next leg")

	case tick.MissChancePct < g.cfg.SafeThresholdPct:
		switch g.status {
		case journey.StatusAlert:
			g.activeAlert = nil
			g.status = journey.StatusWatching
		case journey.StatusWatching:
			g.status = journey.StatusSafe
		}

	case tick.MissChancePct > g.cfg.AlertThresholdPct:
		if g.status == journey.StatusSafe {
			g.status = journey.StatusWatching
		}
		if !g.alertInFlight && now.Sub(g.lastAlertAt) >= g.cfg.Cooldown {
			g.alertInFlight = true
			// Recorded at the moment computation begins so a slow
			// phrasing call cannot stretch the cooldown window.
			g.lastAlertAt = now
			go g.computeAlert(session, legIdx, sample, leg, tick)
		}

	default:
		if g.status == journey.StatusSafe {
			g.status = journey.StatusWatching
		}
	}

	status := g.status
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.TicksProcessed.Inc()
		g.metrics.MissChance.Set(float64(tick.MissChancePct))
		g.metrics.MinutesRemaining.Set(tick.MinutesRemaining)
	}
	g.recordTick(legIdx, leg, sample, tick, status)
}

// computeAlert runs the plan -> phrase -> publish pipeline off the
// sample-handling path. The in-flight guard is released regardless of
// outcome; results are committed only if the session has not moved on.
func (g *Guardian) computeAlert(session uint64, legIdx int, sample journey.PositionSample, leg journey.GuardedLeg, tick journey.Tick) {
	start := time.Now()
	defer func() {
		g.mu.Lock()
		// A restart owns the guard now; a stale pipeline must not
		// release it on behalf of the new session's own computation.
		if g.session == session {
			g.alertInFlight = false
		}
		g.mu.Unlock()
		if g.metrics != nil {
			g.metrics.AlertPipelineDuration.Observe(time.Since(start).Seconds())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.ComputeTimeout)
	defer cancel()

	plan := g.planner.Plan(ctx, sample.Lat, sample.Lng, leg, tick)
	if g.metrics != nil && plan.Route.Synthetic {
		g.metrics.RoutingFallbacks.Inc()
	}

	title, message, usedFallback := g.composeText(ctx, leg, tick, plan)

	alert := journey.Alert{
		Tick:        tick,
		Title:       title,
		Message:     message,
		Plan:        plan,
		TriggeredAt: g.clock(),
	}

	g.mu.Lock()
	if g.session != session || g.legIdx != legIdx || g.status == journey.StatusIdle {
		g.mu.Unlock()
		if g.metrics != nil {
			g.metrics.StaleDiscards.Inc()
		}
		g.logger.Debug().Msg("discarding stale alert computation")
		return
	}
	g.activeAlert = &alert
	if g.status != journey.StatusPivoting {
		g.status = journey.StatusAlert
	}
	g.mu.Unlock()

	g.logger.Info().
		Int("miss_pct", tick.MissChancePct).
		Int("saving_min", plan.SavingMin).
		Str("rescue_mode", string(plan.Mode)).
		Bool("template_fallback", usedFallback).
		Msg("alert raised")
	if g.metrics != nil {
		g.metrics.AlertsFired.Inc()
	}

	g.deliverNotification(title, alerting.ShortNotification(tick, leg, plan.SavingMin, plan.Mode))
	g.recordAlert(legIdx, leg, alert, usedFallback)
}

// composeText asks the phrasing provider for both texts concurrently and
// falls back to the local templates if either call fails. Never fails.
func (g *Guardian) composeText(ctx context.Context, leg journey.GuardedLeg, tick journey.Tick, plan journey.RescuePlan) (title, message string, usedFallback bool) {
	if g.phraser != nil {
		summary := phrasing.Summary{
			SpeedKmh:         tick.SpeedKmh,
			DistanceKm:       tick.DistanceKm,
			MinutesRemaining: tick.MinutesRemaining,
			MissChancePct:    tick.MissChancePct,
			Destination:      leg.Destination,
			Provider:         leg.Provider,
			Mode:             leg.NextMode,
			Deadline:         leg.Departure,
			PickupLabel:      plan.Pickup.Label,
			RescueMode:       plan.Mode,
			SavingMin:        plan.SavingMin,
		}

		var (
			wg       sync.WaitGroup
			msg, ttl string
			msgErr   error
			ttlErr   error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			msg, msgErr = g.phraser.PhraseAlert(ctx, summary)
		}()
		go func() {
			defer wg.Done()
			ttl, ttlErr = g.phraser.PhraseNotification(ctx, summary)
		}()
		wg.Wait()

		if msgErr == nil && ttlErr == nil {
			return ttl, msg, false
		}

		if g.metrics != nil {
			g.metrics.PhrasingFailures.Inc()
		}
		g.logger.Warn().
			AnErr("message_err", msgErr).
			AnErr("title_err", ttlErr).
			Msg("phrasing provider failed; using template fallback")
	}

	return alerting.FallbackTitle(tick, leg),
		alerting.FallbackMessage(tick, leg, plan.Pickup.Label, plan.Mode, plan.SavingMin),
		true
}

func (g *Guardian) deliverNotification(title, body string) {
	if g.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.notifier.Notify(ctx, title, body); err != nil {
		if g.metrics != nil {
			g.metrics.NotifyErrors.Inc()
		}
		g.logger.Error().Err(err).Msg("notification delivery failed")
	}
}

// DismissAlert clears the active alert without stopping monitoring.
func (g *Guardian) DismissAlert() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.activeAlert == nil {
		return
	}
	g.activeAlert = nil
	if g.status == journey.StatusAlert || g.status == journey.StatusPivoting {
		g.status = journey.StatusWatching
	}
}

// ActivatePivot marks the rescue recommendation as accepted. The alert
// stays visible and monitoring continues.
func (g *Guardian) ActivatePivot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.activeAlert == nil {
		return
	}
	g.status = journey.StatusPivoting
}

// Stop cancels the stream subscription and resets the session. Safe to
// call at any point; results of in-flight computations are discarded.
func (g *Guardian) Stop() {
	g.mu.Lock()
	if g.status == journey.StatusIdle {
		g.mu.Unlock()
		return
	}
	cancel := g.cancelStream
	g.cancelStream = nil
	g.session++
	g.legs = nil
	g.legIdx = 0
	g.lastTick = nil
	g.activeAlert = nil
	g.lastAlertAt = time.Time{}
	g.status = journey.StatusIdle
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if g.notifier != nil {
		ctx, cancelCtx := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelCtx()
		if err := g.notifier.DismissAll(ctx); err != nil {
			g.logger.Warn().Err(err).Msg("failed to clear outstanding notifications")
		}
	}

	g.logger.Info().Msg("guardian stopped")
}

// Status returns the current session state.
func (g *Guardian) Status() journey.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// CurrentTick returns the most recent tick, if any.
func (g *Guardian) CurrentTick() (journey.Tick, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastTick == nil {
		return journey.Tick{}, false
	}
	return *g.lastTick, true
}

// ActiveAlert returns the currently surfaced alert, if any.
func (g *Guardian) ActiveAlert() (journey.Alert, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.activeAlert == nil {
		return journey.Alert{}, false
	}
	return *g.activeAlert, true
}

// GuardedLegs returns a copy of the monitored legs.
func (g *Guardian) GuardedLegs() []journey.GuardedLeg {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]journey.GuardedLeg(nil), g.legs...)
}

// CurrentLegIndex reports which leg is being guarded.
func (g *Guardian) CurrentLegIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.legIdx
}

// recordTick writes the observation to the audit store off the sample
// path; storage latency or failure never affects monitoring.
func (g *Guardian) recordTick(legIdx int, leg journey.GuardedLeg, sample journey.PositionSample, tick journey.Tick, status journey.Status) {
	if g.ticks == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err := g.ticks.InsertTick(ctx, storage.TickSample{
			At:                  tick.At,
			LegIndex:            legIdx,
			Destination:         leg.Destination,
			Lat:                 sample.Lat,
			Lng:                 sample.Lng,
			SpeedKmh:            tick.SpeedKmh,
			DistanceKm:          tick.DistanceKm,
			MinutesRemaining:    tick.MinutesRemaining,
			ProjectedArrivalMin: tick.ProjectedArrivalMin,
			MissChancePct:       tick.MissChancePct,
			Status:              string(status),
		})
		if err != nil {
			g.logger.Debug().Err(err).Msg("failed to persist tick sample")
		}
	}()
}

func (g *Guardian) recordAlert(legIdx int, leg journey.GuardedLeg, alert journey.Alert, usedFallback bool) {
	if g.alerts == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := g.alerts.InsertAlert(ctx, storage.AlertRecord{
			TriggeredAt:   alert.TriggeredAt,
			LegIndex:      legIdx,
			Destination:   leg.Destination,
			MissChancePct: alert.Tick.MissChancePct,
			SavingMin:     alert.Plan.SavingMin,
			RescueMode:    string(alert.Plan.Mode),
			Title:         alert.Title,
			Message:       alert.Message,
			Fallback:      usedFallback,
		})
		if err != nil {
			g.logger.Error().Err(err).Msg("failed to persist alert record")
		}
	}()
}
