package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trip-guardian/internal/journey"
)

const defaultOSRMBaseURL = "https://router.project-osrm.org"

// OSRMOptions parameterise the OSRM routing client.
type OSRMOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// OSRM fetches short routes from an OSRM-compatible HTTP endpoint.
type OSRM struct {
	opts    OSRMOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewOSRM constructs the routing client.
func NewOSRM(opts OSRMOptions, logger zerolog.Logger) *OSRM {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOSRMBaseURL
	}

	return &OSRM{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "osrm").Logger(),
	}
}

// Route requests a route with full geojson geometry and steps.
func (o *OSRM) Route(ctx context.Context, from, to journey.LatLng, profile string) (journey.Route, error) {
	if profile == "" {
		profile = "foot"
	}

	url := fmt.Sprintf("%s/route/v1/%s/%s;%s?overview=full&geometries=geojson&steps=true",
		o.baseURL, profile, formatCoord(from), formatCoord(to))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return journey.Route{}, fmt.Errorf("create osrm request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(o.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return journey.Route{}, fmt.Errorf("send osrm request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return journey.Route{}, fmt.Errorf("read osrm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return journey.Route{}, parseOSRMError(resp.StatusCode, payload)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return journey.Route{}, fmt.Errorf("decode osrm response: %w", err)
	}
	if parsed.Code != "Ok" {
		return journey.Route{}, fmt.Errorf("osrm returned code %q: %s", parsed.Code, parsed.Message)
	}
	if len(parsed.Routes) == 0 {
		return journey.Route{}, errors.New("osrm returned no routes")
	}

	best := parsed.Routes[0]
	route := journey.Route{
		DistanceM:   best.Distance,
		DurationS:   best.Duration,
		Coordinates: make([]journey.LatLng, 0, len(best.Geometry.Coordinates)),
	}
	for _, pair := range best.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		// geojson carries lng,lat pairs
		route.Coordinates = append(route.Coordinates, journey.LatLng{Lat: pair[1], Lng: pair[0]})
	}
	for _, leg := range best.Legs {
		for _, step := range leg.Steps {
			route.Steps = append(route.Steps, journey.RouteStep{
				Instruction: describeStep(step),
				DistanceM:   step.Distance,
				DurationS:   step.Duration,
			})
		}
	}

	return route, nil
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Steps []osrmStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type osrmStep struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Name     string  `json:"name"`
	Maneuver struct {
		Type     string `json:"type"`
		Modifier string `json:"modifier"`
	} `json:"maneuver"`
}

func describeStep(s osrmStep) string {
	action := s.Maneuver.Type
	if s.Maneuver.Modifier != "" {
		action = fmt.Sprintf("%s %s", s.Maneuver.Type, s.Maneuver.Modifier)
	}
	if s.Name == "" {
		return action
	}
	return fmt.Sprintf("%s onto %s", action, s.Name)
}

func parseOSRMError(status int, payload []byte) error {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("osrm error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Code != "" {
			return fmt.Errorf("osrm error (%d): %s", status, apiErr.Code)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("osrm error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("osrm error (%d)", status)
}

var _ Provider = (*OSRM)(nil)
