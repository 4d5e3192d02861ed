package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trip-guardian/internal/alerting"
	"trip-guardian/internal/config"
	"trip-guardian/internal/guardian"
	"trip-guardian/internal/journey"
	"trip-guardian/internal/metrics"
	"trip-guardian/internal/phrasing"
	"trip-guardian/internal/rescue"
	"trip-guardian/internal/routing"
	"trip-guardian/internal/storage"
	"trip-guardian/internal/stream"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newPlanner() *rescue.Planner {
	provider := routing.NewOSRM(routing.OSRMOptions{
		BaseURL:   a.Config.Routing.BaseURL,
		Timeout:   a.Config.Routing.RequestTimeout,
		UserAgent: a.Config.Routing.UserAgent,
	}, a.Logger)

	router := routing.NewRouter(provider, a.Logger)

	return rescue.NewPlanner(router, rescue.Options{
		NearKm:           a.Config.Rescue.NearKm,
		FarKm:            a.Config.Rescue.FarKm,
		WaitMinutes:      a.Config.Rescue.WaitMinutes,
		LastMileSpeedKmh: a.Config.Rescue.LastMileSpeedKmh,
	}, a.Logger)
}

func (a *App) newPhraser() phrasing.Phraser {
	if !a.Config.Phrasing.Enabled {
		return nil
	}
	return phrasing.NewRemote(phrasing.RemoteOptions{
		BaseURL: a.Config.Phrasing.BaseURL,
		APIKey:  a.Config.Phrasing.APIKey,
		Timeout: a.Config.Phrasing.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Notify.Enabled {
		return nil
	}
	return alerting.NewPushNotifier(
		a.Config.Notify.GatewayURL,
		a.Config.Notify.Token,
		a.Config.Notify.RequestTimeout,
		a.Logger,
	)
}

func (a *App) newGuardian(store *storage.Store, collector *metrics.Collector, notifier alerting.Notifier) *guardian.Guardian {
	var tickStore storage.TickStore
	var alertStore storage.AlertStore
	if store != nil {
		tickStore = store
		alertStore = store
	}

	return guardian.New(guardian.Deps{
		Planner:  a.newPlanner(),
		Phraser:  a.newPhraser(),
		Notifier: notifier,
		Ticks:    tickStore,
		Alerts:   alertStore,
		Metrics:  collector,
		Logger:   a.Logger,
		Config:   a.Config.Guardian,
	})
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// RunOptions configure the long-running monitor.
type RunOptions struct {
	LegsPath string
}

// Run executes the long-running guardian service against the live
// position stream until interrupted.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	legs, err := journey.LoadLegs(opts.LegsPath)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; audit trail disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	collector := metrics.NewCollector()
	if addr := a.Config.Metrics.Addr; addr != "" {
		srv := collector.Serve(addr, a.Logger)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	source, err := stream.NewNATS(stream.NATSOptions{
		URL:     a.Config.Stream.NATSURL,
		Subject: a.Config.Stream.Subject,
		Name:    a.Config.Stream.Name,
	}, collector, a.Logger)
	if err != nil {
		return err
	}
	defer source.Close()

	g := a.newGuardian(store, collector, a.newNotifier())

	a.Logger.Info().Int("legs", len(legs)).Msg("starting guardian service")
	g.Start(ctx, legs, source)
	if g.Status() == journey.StatusIdle {
		a.Logger.Error().Msg("guardian did not start; exiting")
		return nil
	}

	<-ctx.Done()
	g.Stop()
	a.Logger.Info().Msg("guardian service stopped")
	return nil
}

// ReplayOptions configure the replay command.
type ReplayOptions struct {
	LegsPath string
	LogPath  string
	Interval time.Duration
	DryRun   bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}

// ExportOptions hold parameters for exporting the recorded audit trail.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions describe the synthetic scenario for simulate-alert.
type SimulateOptions struct {
	Lat       float64
	Lng       float64
	SpeedKmh  float64
	DestLat   float64
	DestLng   float64
	DestName  string
	Departure string
	Mode      string
	Provider  string
}
