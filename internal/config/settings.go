package config

// Config is the fully resolved application configuration. The capture
// scheduler treats a loaded Config as an immutable snapshot; runtime
// changes are picked up by re-resolving at the start of the next cycle.
type Config struct {
	LogLevel string  `mapstructure:"log_level"`
	Debug    bool    `mapstructure:"debug"`
	Verbose  bool    `mapstructure:"verbose"`
	Interval float64 `mapstructure:"interval"`
	Session  string  `mapstructure:"session"`

	Camera       CameraConfig       `mapstructure:"camera"`
	AutoExposure AutoExposureConfig `mapstructure:"auto_exposure"`
	Schedule     ScheduleConfig     `mapstructure:"schedule"`
	WhiteBalance WhiteBalanceConfig `mapstructure:"white_balance"`
	Stretch      StretchConfig      `mapstructure:"stretch"`
	Location     LocationConfig     `mapstructure:"location"`
	Calibration  CalibrationConfig  `mapstructure:"calibration"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
}

// CameraConfig holds the fixed sensor settings applied at connect time.
type CameraConfig struct {
	ExposureMs   float64 `mapstructure:"exposure_ms"`
	Gain         int     `mapstructure:"gain"`
	Offset       int     `mapstructure:"offset"`
	Flip         int     `mapstructure:"flip"`
	BayerPattern string  `mapstructure:"bayer_pattern"`
	BitDepth     int     `mapstructure:"bit_depth"`
	ADCBits      int     `mapstructure:"adc_bits"`
}

// AutoExposureConfig tunes the brightness feedback controller.
type AutoExposureConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	TargetBrightness float64 `mapstructure:"target_brightness"`
	MinExposureMs    float64 `mapstructure:"min_exposure_ms"`
	MaxExposureMs    float64 `mapstructure:"max_exposure_ms"`
	Tolerance        float64 `mapstructure:"tolerance"`
	Algorithm        string  `mapstructure:"algorithm"`
	Percentile       float64 `mapstructure:"percentile"`
}

// ScheduleConfig is the capture time window, local wall clock HH:MM.
// End before start means the window spans midnight.
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Start   string `mapstructure:"start"`
	End     string `mapstructure:"end"`
}

// WhiteBalanceConfig selects one of three mutually exclusive modes:
// "auto" (sensor-side, pass-through), "manual", or "gray_world".
type WhiteBalanceConfig struct {
	Mode             string  `mapstructure:"mode"`
	RedGain          int     `mapstructure:"red_gain"`
	BlueGain         int     `mapstructure:"blue_gain"`
	GrayWorldLowPct  float64 `mapstructure:"gray_world_low_pct"`
	GrayWorldHighPct float64 `mapstructure:"gray_world_high_pct"`
}

// StretchConfig holds the auto-stretch tunables.
type StretchConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	TargetMedian         float64 `mapstructure:"target_median"`
	Linked               bool    `mapstructure:"linked"`
	PreserveBlacks       bool    `mapstructure:"preserve_blacks"`
	NormalizeChannels    bool    `mapstructure:"normalize_channels"`
	DarkSceneThreshold   float64 `mapstructure:"dark_scene_threshold"`
	ShadowAggressiveness float64 `mapstructure:"shadow_aggressiveness"`
	SaturationBoost      float64 `mapstructure:"saturation_boost"`
}

// LocationConfig is the observer position for solar/lunar context.
// Latitude and longitude left at zero value means "unconfigured" and
// the time-context engine degrades to hour-based classification.
type LocationConfig struct {
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Set       bool    `mapstructure:"set"`
}

// CalibrationConfig controls the per-frame calibration record store.
type CalibrationConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Database     string `mapstructure:"database"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
	QueueSize    int    `mapstructure:"queue_size"`
}

// ProvidersConfig configures the optional external context collaborators.
// A disabled provider simply leaves its calibration sub-object absent.
type ProvidersConfig struct {
	Roof    RoofProviderConfig    `mapstructure:"roof"`
	Weather WeatherProviderConfig `mapstructure:"weather"`
	ML      MLProviderConfig      `mapstructure:"ml"`
}

type RoofProviderConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	URL       string `mapstructure:"url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

type WeatherProviderConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	APIKey        string `mapstructure:"api_key"`
	Units         string `mapstructure:"units"`
	CacheDuration int    `mapstructure:"cache_duration"`
}

type MLProviderConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	URL       string `mapstructure:"url"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}
