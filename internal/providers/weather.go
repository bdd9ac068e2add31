package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/englishfox90/pfrsentinel/internal/logger"
)

// Weather is the observing-site weather context. Available false means
// the provider is disabled, unconfigured, or the fetch failed.
type Weather struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Source    string `json:"source,omitempty"`

	TemperatureC float64 `json:"temperature_c"`
	FeelsLikeC   float64 `json:"feels_like_c"`
	Condition    string  `json:"condition"`
	Description  string  `json:"description"`
	CloudCover   int     `json:"cloud_cover_pct"`
	Humidity     int     `json:"humidity_pct"`
	Pressure     int     `json:"pressure_hpa"`
	VisibilityKm float64 `json:"visibility_km"`
	WindSpeed    float64 `json:"wind_speed"`

	IsCloudy      bool `json:"is_cloudy"`
	IsClear       bool `json:"is_clear"`
	LowVisibility bool `json:"low_visibility"`

	DewPointC *float64        `json:"dew_point_c,omitempty"`
	Seeing    *SeeingEstimate `json:"seeing,omitempty"`
}

// WeatherProvider fetches current conditions.
type WeatherProvider interface {
	Fetch(ctx context.Context) Weather
}

// Magnus formula constants for dew point.
const (
	magnusA = 17.27
	magnusB = 237.7
)

// DewPoint computes the dew point from temperature (°C) and relative
// humidity (%). Returns false outside the formula's valid range.
func DewPoint(tempC, humidityPct float64) (float64, bool) {
	if humidityPct <= 0 || humidityPct > 100 {
		return 0, false
	}
	alpha := magnusA*tempC/(magnusB+tempC) + humidityPct/100
	if magnusA-alpha == 0 {
		return 0, false
	}

	return magnusB * alpha / (magnusA - alpha), true
}

// SeeingEstimate is a coarse observing-quality score built from weather
// alone. Scores run 0-1, higher is better.
type SeeingEstimate struct {
	OverallScore float64 `json:"overall_score"`
	Quality      string  `json:"quality"`

	HumidityScore   float64 `json:"humidity_score"`
	VisibilityScore float64 `json:"visibility_score"`
	CloudScore      float64 `json:"cloud_score"`
	DewScore        float64 `json:"dew_score"`
	DewRisk         *bool   `json:"dew_risk,omitempty"`
}

// Component weights for the overall seeing score.
const (
	seeingHumidityWeight   = 0.3
	seeingVisibilityWeight = 0.2
	seeingCloudWeight      = 0.4
	seeingDewWeight        = 0.1
)

// EstimateSeeing scores observing conditions from the weather context.
// Humidity is best below 40%, visibility saturates at 10km, and the
// dew score tracks how far the air temperature sits above the dew
// point. An uncomputable dew point scores a neutral 0.5.
func EstimateSeeing(w Weather) SeeingEstimate {
	est := SeeingEstimate{
		HumidityScore: math.Max(0, 1-(float64(w.Humidity)-40)/60),
		CloudScore:    math.Max(0, 1-float64(w.CloudCover)/100),
	}
	est.VisibilityScore = math.Min(1, w.VisibilityKm/10)

	if dp, ok := DewPoint(w.TemperatureC, float64(w.Humidity)); ok {
		margin := w.TemperatureC - dp
		risk := margin < 3
		est.DewRisk = &risk
		est.DewScore = math.Min(1, math.Max(0, margin/10))
	} else {
		est.DewScore = 0.5
	}

	est.OverallScore = est.HumidityScore*seeingHumidityWeight +
		est.VisibilityScore*seeingVisibilityWeight +
		est.CloudScore*seeingCloudWeight +
		est.DewScore*seeingDewWeight

	switch {
	case est.OverallScore > 0.8:
		est.Quality = "excellent"
	case est.OverallScore > 0.6:
		est.Quality = "good"
	case est.OverallScore > 0.4:
		est.Quality = "fair"
	case est.OverallScore > 0.2:
		est.Quality = "poor"
	default:
		est.Quality = "very_poor"
	}

	return est
}

// OpenWeatherConfig configures the OpenWeatherMap provider.
type OpenWeatherConfig struct {
	APIKey    string
	Latitude  float64
	Longitude float64
	Units     string
	CacheFor  time.Duration
	BaseURL   string
}

type openWeather struct {
	cfg    OpenWeatherConfig
	client *http.Client
	logger logger.Logger

	mu        sync.Mutex
	cached    Weather
	fetchedAt time.Time
}

// NewOpenWeather builds the OpenWeatherMap current-conditions provider.
// Responses are cached; the free tier refreshes on a 10 minute cadence
// anyway, so hammering it per frame buys nothing.
func NewOpenWeather(cfg OpenWeatherConfig, log logger.Logger) WeatherProvider {
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.CacheFor <= 0 {
		cfg.CacheFor = 600 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openweathermap.org"
	}
	if log == nil {
		log = logger.Default()
	}

	return &openWeather{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log,
	}
}

type owmResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility int `json:"visibility"`
}

func (p *openWeather) Fetch(ctx context.Context) Weather {
	p.mu.Lock()
	if p.cached.Available && time.Since(p.fetchedAt) < p.cfg.CacheFor {
		cached := p.cached
		p.mu.Unlock()
		return cached
	}
	p.mu.Unlock()

	w := Weather{Source: "openweathermap"}
	if p.cfg.APIKey == "" {
		w.Reason = "api key not configured"
		return w
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", p.cfg.Latitude))
	q.Set("lon", fmt.Sprintf("%.4f", p.cfg.Longitude))
	q.Set("units", p.cfg.Units)
	q.Set("appid", p.cfg.APIKey)
	endpoint := p.cfg.BaseURL + "/data/2.5/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		w.Reason = "bad request: " + err.Error()
		return w
	}

	resp, err := p.client.Do(req)
	if err != nil {
		w.Reason = "unreachable: " + err.Error()
		p.logger.Debug().Err(err).Msg("Weather provider unreachable")
		return w
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.Reason = "unexpected status: " + resp.Status
		return w
	}

	var body owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		w.Reason = "bad payload: " + err.Error()
		return w
	}

	w.Available = true
	w.TemperatureC = body.Main.Temp
	w.FeelsLikeC = body.Main.FeelsLike
	w.Humidity = body.Main.Humidity
	w.Pressure = body.Main.Pressure
	w.CloudCover = body.Clouds.All
	w.WindSpeed = body.Wind.Speed
	w.VisibilityKm = float64(body.Visibility) / 1000
	if len(body.Weather) > 0 {
		w.Condition = body.Weather[0].Main
		w.Description = body.Weather[0].Description
	}

	w.IsCloudy = w.CloudCover > 60
	w.IsClear = w.CloudCover < 20
	w.LowVisibility = w.VisibilityKm < 5

	if dp, ok := DewPoint(w.TemperatureC, float64(w.Humidity)); ok {
		w.DewPointC = &dp
	}
	seeing := EstimateSeeing(w)
	w.Seeing = &seeing

	p.mu.Lock()
	p.cached = w
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	return w
}
