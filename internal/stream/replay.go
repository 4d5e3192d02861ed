package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"trip-guardian/internal/journey"
)

// Replay plays a recorded JSONL position log back through a handler,
// one sample per line, optionally paced by a fixed interval.
type Replay struct {
	samples  []journey.PositionSample
	interval time.Duration
	logger   zerolog.Logger
}

// LoadReplay reads a JSONL file of position samples.
func LoadReplay(path string, interval time.Duration, logger zerolog.Logger) (*Replay, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer file.Close()

	var samples []journey.PositionSample
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var s journey.PositionSample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("replay file contains no samples")
	}

	return &Replay{
		samples:  samples,
		interval: interval,
		logger:   logger.With().Str("component", "replay_stream").Logger(),
	}, nil
}

// Len reports the number of loaded samples.
func (r *Replay) Len() int { return len(r.samples) }

// Run feeds every sample to h, waiting interval between samples when a
// pace was configured. Blocks until the log is exhausted or ctx ends.
func (r *Replay) Run(ctx context.Context, h Handler) error {
	for i, sample := range r.samples {
		if r.interval > 0 && i > 0 {
			timer := time.NewTimer(r.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		h(sample)
	}
	r.logger.Info().Int("samples", len(r.samples)).Msg("replay finished")
	return nil
}
