package providers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishfox90/pfrsentinel/internal/logger"
	"github.com/englishfox90/pfrsentinel/internal/providers"
)

func init() {
	logger.Init(false, false, false)
}

func TestNINARoofFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/api/equipment/safetymonitor/info", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Success": true,
			"Response": {
				"IsSafe": true,
				"Connected": true,
				"Name": "SafetyMonitor",
				"DisplayName": "Roof Monitor"
			}
		}`))
	}))
	defer srv.Close()

	p := providers.NewNINARoof(srv.URL, 2*time.Second, nil)
	state := p.Fetch(context.Background())

	assert.True(t, state.Available)
	assert.Equal(t, "nina", state.Source)
	require.NotNil(t, state.RoofOpen)
	assert.True(t, *state.RoofOpen)
	require.NotNil(t, state.Connected)
	assert.True(t, *state.Connected)
	assert.Equal(t, "Roof Monitor", state.DeviceName)
}

func TestNINARoofAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Success": false, "Error": "no safety monitor connected"}`))
	}))
	defer srv.Close()

	p := providers.NewNINARoof(srv.URL, 2*time.Second, nil)
	state := p.Fetch(context.Background())

	assert.False(t, state.Available)
	assert.Contains(t, state.Reason, "no safety monitor connected")
	assert.Nil(t, state.RoofOpen)
}

func TestDewPoint(t *testing.T) {
	dp, ok := providers.DewPoint(20, 100)
	require.True(t, ok)
	// Saturated air: dew point sits near the air temperature.
	assert.InDelta(t, 20, dp, 3.5)

	dpDry, ok := providers.DewPoint(20, 30)
	require.True(t, ok)
	assert.Less(t, dpDry, dp, "drier air lowers the dew point")

	_, ok = providers.DewPoint(20, 0)
	assert.False(t, ok)
}

func TestEstimateSeeingClearNight(t *testing.T) {
	est := providers.EstimateSeeing(providers.Weather{
		TemperatureC: 15,
		Humidity:     30,
		CloudCover:   0,
		VisibilityKm: 10,
	})

	assert.Equal(t, "excellent", est.Quality)
	assert.InDelta(t, 1.0, est.HumidityScore, 1e-9)
	assert.InDelta(t, 1.0, est.CloudScore, 1e-9)
	assert.InDelta(t, 1.0, est.VisibilityScore, 1e-9)
	require.NotNil(t, est.DewRisk)
	assert.False(t, *est.DewRisk)
}

func TestEstimateSeeingOvercast(t *testing.T) {
	est := providers.EstimateSeeing(providers.Weather{
		TemperatureC: 10,
		Humidity:     95,
		CloudCover:   100,
		VisibilityKm: 2,
	})

	assert.LessOrEqual(t, est.OverallScore, 0.4)
	require.NotNil(t, est.DewRisk)
	assert.True(t, *est.DewRisk, "near-saturated air means dew risk")
}

func TestOpenWeatherFetchAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "testkey", r.URL.Query().Get("appid"))
		w.Write([]byte(`{
			"weather": [{"main": "Clear", "description": "clear sky"}],
			"main": {"temp": 18.5, "feels_like": 18.0, "humidity": 40, "pressure": 1015},
			"clouds": {"all": 5},
			"wind": {"speed": 2.5},
			"visibility": 10000
		}`))
	}))
	defer srv.Close()

	p := providers.NewOpenWeather(providers.OpenWeatherConfig{
		APIKey:   "testkey",
		BaseURL:  srv.URL,
		CacheFor: time.Hour,
	}, nil)

	w := p.Fetch(context.Background())
	require.True(t, w.Available)
	assert.Equal(t, 18.5, w.TemperatureC)
	assert.Equal(t, "Clear", w.Condition)
	assert.True(t, w.IsClear)
	assert.False(t, w.IsCloudy)
	assert.False(t, w.LowVisibility)
	require.NotNil(t, w.DewPointC)
	require.NotNil(t, w.Seeing)

	p.Fetch(context.Background())
	assert.Equal(t, 1, calls, "second fetch inside the cache window must not hit the API")
}

func TestOpenWeatherMissingKey(t *testing.T) {
	p := providers.NewOpenWeather(providers.OpenWeatherConfig{}, nil)
	w := p.Fetch(context.Background())

	assert.False(t, w.Available)
	assert.Contains(t, w.Reason, "api key")
}

func TestHTTPPredictor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{
			"model": "sky-rf-v2",
			"label": "clear",
			"confidence": 0.91,
			"probability": {"clear": 0.91, "cloudy": 0.09}
		}`))
	}))
	defer srv.Close()

	p := providers.NewHTTPPredictor(srv.URL, 2*time.Second, nil)
	pred := p.Predict(context.Background(), providers.Features{MedianLum: 0.02, Period: "night"})

	assert.True(t, pred.Available)
	assert.Equal(t, "clear", pred.Label)
	assert.Equal(t, "sky-rf-v2", pred.Model)
	assert.InDelta(t, 0.91, pred.Confidence, 1e-9)
}

func TestHTTPPredictorUnreachable(t *testing.T) {
	p := providers.NewHTTPPredictor("http://127.0.0.1:1", time.Second, nil)
	pred := p.Predict(context.Background(), providers.Features{})

	assert.False(t, pred.Available)
	assert.NotEmpty(t, pred.Reason)
}
