package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"trip-guardian/internal/journey"
)

// ConnState receives connectivity changes, typically a metrics gauge.
type ConnState interface {
	StreamSetConnected(connected bool)
}

// NATSOptions parameterise the live position source.
type NATSOptions struct {
	URL     string
	Subject string
	Name    string
}

// NATS subscribes to a subject carrying position JSON published by the
// device-side tracker.
type NATS struct {
	opts   NATSOptions
	nc     *nats.Conn
	logger zerolog.Logger
}

// positionMessage is the wire shape on the subject. The tracker uses
// "lon"; "lng" is accepted as an alias.
type positionMessage struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Lng       float64   `json:"lng"`
	SpeedMps  float64   `json:"speedMps"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNATS connects to the NATS server. The connection is long-lived and
// reused across subscriptions.
func NewNATS(opts NATSOptions, state ConnState, logger zerolog.Logger) (*NATS, error) {
	if opts.Subject == "" {
		return nil, fmt.Errorf("stream subject is required")
	}
	name := opts.Name
	if name == "" {
		name = "tripguardian"
	}

	scoped := logger.With().Str("component", "position_stream").Logger()

	nc, err := nats.Connect(opts.URL,
		nats.Name(name),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if state != nil {
				state.StreamSetConnected(false)
			}
			scoped.Warn().Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if state != nil {
				state.StreamSetConnected(true)
			}
			scoped.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if state != nil {
				state.StreamSetConnected(false)
			}
			scoped.Info().Msg("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if state != nil {
		state.StreamSetConnected(true)
	}

	return &NATS{opts: opts, nc: nc, logger: scoped}, nil
}

// Subscribe starts delivering decoded samples to h.
func (n *NATS) Subscribe(ctx context.Context, h Handler) (func(), error) {
	sub, err := n.nc.Subscribe(n.opts.Subject, func(msg *nats.Msg) {
		var pm positionMessage
		if err := json.Unmarshal(msg.Data, &pm); err != nil {
			n.logger.Warn().Err(err).Msg("dropping malformed position message")
			return
		}

		lng := pm.Lon
		if lng == 0 && pm.Lng != 0 {
			lng = pm.Lng
		}
		at := pm.Timestamp
		if at.IsZero() {
			at = time.Now()
		}

		h(journey.PositionSample{Lat: pm.Lat, Lng: lng, SpeedMps: pm.SpeedMps, At: at})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %q: %w", n.opts.Subject, err)
	}

	n.logger.Info().Str("subject", n.opts.Subject).Msg("position stream subscribed")

	var once sync.Once
	stop := func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				n.logger.Warn().Err(err).Msg("unsubscribe failed")
			}
		})
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	return stop, nil
}

// Close drains and closes the connection.
func (n *NATS) Close() {
	if n.nc != nil {
		_ = n.nc.Drain()
		n.nc.Close()
	}
}

var _ PositionSource = (*NATS)(nil)
