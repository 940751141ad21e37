package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
	"github.com/januszmateusz/weather-data-pipeline/pkg/models"
)

// Transient failure classes. They consume one attempt and may be retried.
var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
)

// permanentError marks a failure that retrying cannot fix. The retry loop
// stops as soon as it sees one.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// OpenWeatherConfig bundles the HTTP and resilience settings of the
// extractor. MaxRetries is the TOTAL attempt budget: with MaxRetries=3 a city
// gets at most three requests, and a success on the third still counts.
type OpenWeatherConfig struct {
	APIKey         string
	BaseURL        string
	Units          string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// OpenWeatherExtractor fetches current weather from the OpenWeatherMap API,
// one city per call, with exponential backoff and a circuit breaker around
// individual requests.
type OpenWeatherExtractor struct {
	cfg     OpenWeatherConfig
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     *logger.Logger
}

func NewOpenWeatherExtractor(cfg OpenWeatherConfig, log *logger.Logger) *OpenWeatherExtractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &OpenWeatherExtractor{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		circuit: cb,
		log:     log.Named("openweather"),
	}
}

// FetchCity requests the current weather for one city. Timeouts, connection
// errors, HTTP 429 and 5xx are retried with exponential backoff until the
// attempt budget runs out; 404 (unknown city), 401/403 (bad credentials) and
// other 4xx responses fail immediately. The returned error is always an
// *APIError carrying the city and the number of attempts made.
func (e *OpenWeatherExtractor) FetchCity(ctx context.Context, city string) (*models.WeatherObservation, error) {
	if e.cfg.APIKey == "" {
		return nil, &APIError{City: city, Attempts: 0, Err: errors.New("API key is not configured")}
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &APIError{City: city, Attempts: attempt - 1, Err: err}
		}

		obs, err := e.fetchOnce(ctx, city)
		if err == nil {
			e.log.Debug("Fetched city weather",
				logger.String("city", city),
				logger.Int("attempt", attempt))
			return obs, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return nil, &APIError{City: city, Attempts: attempt, Err: perm.err}
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &APIError{City: city, Attempts: attempt, Err: fmt.Errorf("circuit breaker open: %w", err)}
		}

		lastErr = err
		if attempt == e.cfg.MaxRetries {
			break
		}

		// 1s, 2s, 4s... by default, capped at MaxBackoff.
		delay := e.cfg.InitialBackoff << (attempt - 1)
		if e.cfg.MaxBackoff > 0 && delay > e.cfg.MaxBackoff {
			delay = e.cfg.MaxBackoff
		}
		e.log.Warn("Weather API request failed, retrying",
			logger.String("city", city),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", e.cfg.MaxRetries),
			logger.Duration("backoff", delay),
			logger.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &APIError{City: city, Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return nil, &APIError{City: city, Attempts: e.cfg.MaxRetries, Err: lastErr}
}

// fetchOnce performs a single request through the circuit breaker and
// classifies the outcome.
func (e *OpenWeatherExtractor) fetchOnce(ctx context.Context, city string) (*models.WeatherObservation, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", e.cfg.APIKey)
	values.Set("units", e.cfg.Units)

	reqURL := fmt.Sprintf("%s?%s", e.cfg.BaseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &permanentError{err: err}
	}

	result, err := e.circuit.Execute(func() (interface{}, error) {
		resp, execErr := e.client.Do(req)
		if execErr != nil {
			// Network errors and timeouts are transient.
			return nil, execErr
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var obs models.WeatherObservation
			if decErr := json.NewDecoder(resp.Body).Decode(&obs); decErr != nil {
				return nil, &permanentError{err: fmt.Errorf("failed to decode response: %w", decErr)}
			}
			return &obs, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, &permanentError{err: ErrCityNotFound}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &permanentError{err: ErrUnauthorized}
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
		default:
			return nil, &permanentError{err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
		}
	})
	if err != nil {
		return nil, err
	}

	obs, ok := result.(*models.WeatherObservation)
	if !ok {
		return nil, &permanentError{err: errors.New("unexpected result type from circuit breaker")}
	}
	return obs, nil
}
