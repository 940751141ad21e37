package etl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/januszmateusz/weather-data-pipeline/pkg/logger"
)

func weatherBody(city string) string {
	return fmt.Sprintf(`{
		"name": %q,
		"sys": {"country": "PL"},
		"main": {"temp": 21.5, "feels_like": 20.8, "temp_min": 19.0, "temp_max": 23.0, "pressure": 1013, "humidity": 60},
		"weather": [{"main": "Clear", "description": "clear sky"}],
		"wind": {"speed": 3.6},
		"clouds": {"all": 0},
		"dt": 1756000000
	}`, city)
}

func testExtractor(baseURL string, maxRetries int) *OpenWeatherExtractor {
	return NewOpenWeatherExtractor(OpenWeatherConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
	}, logger.NewNop())
}

func TestFetchCitySuccess(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if q.Get("q") != "Warsaw" {
			t.Errorf("Expected q=Warsaw, got %q", q.Get("q"))
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("Expected appid=test-key, got %q", q.Get("appid"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("Expected units=metric, got %q", q.Get("units"))
		}
		fmt.Fprint(w, weatherBody("Warsaw"))
	}))
	defer srv.Close()

	obs, err := testExtractor(srv.URL, 3).FetchCity(context.Background(), "Warsaw")
	if err != nil {
		t.Fatalf("FetchCity failed: %v", err)
	}
	if obs.Name != "Warsaw" {
		t.Errorf("Expected city Warsaw, got %q", obs.Name)
	}
	if obs.Main.Temp != 21.5 {
		t.Errorf("Expected temp 21.5, got %g", obs.Main.Temp)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("Expected exactly 1 request, got %d", n)
	}
}

func TestFetchCityNotFoundFailsFast(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"cod":"404","message":"city not found"}`)
	}))
	defer srv.Close()

	_, err := testExtractor(srv.URL, 3).FetchCity(context.Background(), "Atlantis")
	if err == nil {
		t.Fatal("Expected an error for an unknown city")
	}
	if !errors.Is(err, ErrCityNotFound) {
		t.Errorf("Expected ErrCityNotFound, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected an *APIError, got %T", err)
	}
	if apiErr.City != "Atlantis" {
		t.Errorf("Expected city Atlantis, got %q", apiErr.City)
	}
	if apiErr.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", apiErr.Attempts)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("Expected a permanent failure to issue exactly 1 request, got %d", n)
	}
}

func TestFetchCityUnauthorizedFailsFast(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testExtractor(srv.URL, 3).FetchCity(context.Background(), "Warsaw")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("Expected exactly 1 request, got %d", n)
	}
}

func TestFetchCityRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, weatherBody("Warsaw"))
	}))
	defer srv.Close()

	obs, err := testExtractor(srv.URL, 3).FetchCity(context.Background(), "Warsaw")
	if err != nil {
		t.Fatalf("Expected a success within the attempt budget, got: %v", err)
	}
	if obs.Name != "Warsaw" {
		t.Errorf("Expected city Warsaw, got %q", obs.Name)
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("Expected 3 requests, got %d", n)
	}
}

func TestFetchCityRetriesRateLimit(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, weatherBody("Warsaw"))
	}))
	defer srv.Close()

	if _, err := testExtractor(srv.URL, 3).FetchCity(context.Background(), "Warsaw"); err != nil {
		t.Fatalf("Expected 429 to be retried, got: %v", err)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("Expected 2 requests, got %d", n)
	}
}

func TestFetchCityExhaustsAttemptBudget(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testExtractor(srv.URL, 3).FetchCity(context.Background(), "Warsaw")
	if err == nil {
		t.Fatal("Expected the budget to be exhausted")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected an *APIError, got %T", err)
	}
	if apiErr.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", apiErr.Attempts)
	}
	if !strings.Contains(err.Error(), "giving up after 3 attempts") {
		t.Errorf("Expected the error to report the attempt count, got: %v", err)
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("Expected 3 requests, got %d", n)
	}
}

func TestFetchCityMalformedBodyFailsFast(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	_, err := testExtractor(srv.URL, 3).FetchCity(context.Background(), "Warsaw")
	if err == nil {
		t.Fatal("Expected a decode failure")
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("Expected a decode failure not to be retried, got %d requests", n)
	}
}

func TestFetchCityWithoutAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request should be issued without an API key")
	}))
	defer srv.Close()

	ext := NewOpenWeatherExtractor(OpenWeatherConfig{BaseURL: srv.URL}, logger.NewNop())
	_, err := ext.FetchCity(context.Background(), "Warsaw")
	if err == nil {
		t.Fatal("Expected an error without an API key")
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Errorf("Expected the error to mention the API key, got: %v", err)
	}
}

func TestFetchCityCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, weatherBody("Warsaw"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testExtractor(srv.URL, 3).FetchCity(ctx, "Warsaw")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
