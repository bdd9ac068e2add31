package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/englishfox90/pfrsentinel/internal/errors"
)

const DefaultLogLevel = "info"

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load resolves configuration from defaults, an optional TOML file, and
// command line flags, in increasing order of precedence. The config file
// location can be overridden with the PFRSENTINEL_CONFIG environment
// variable; otherwise pfrsentinel.toml is looked up in /etc and the
// working directory.
func Load() (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	setDefaults(v)

	flags := pflag.NewFlagSet("pfrsentinel", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Float64("interval", 0, "Seconds between captures")
	flags.String("session", "", "Session name stamped on calibration records")
	if err := flags.Parse(os.Args[1:]); err != nil && err != pflag.ErrHelp {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if path := os.Getenv("PFRSENTINEL_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pfrsentinel")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig,
				"Failed to read config file: "+err.Error())
		}
	}

	// Flags set on the command line override config file values.
	flags.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("interval", 5.0)
	v.SetDefault("session", "")

	v.SetDefault("camera.exposure_ms", 100.0)
	v.SetDefault("camera.gain", 100)
	v.SetDefault("camera.offset", 20)
	v.SetDefault("camera.flip", 0)
	v.SetDefault("camera.bayer_pattern", "BGGR")
	v.SetDefault("camera.bit_depth", 16)
	v.SetDefault("camera.adc_bits", 12)

	v.SetDefault("auto_exposure.enabled", false)
	v.SetDefault("auto_exposure.target_brightness", 100.0)
	v.SetDefault("auto_exposure.min_exposure_ms", 0.032)
	v.SetDefault("auto_exposure.max_exposure_ms", 30000.0)
	v.SetDefault("auto_exposure.tolerance", 20.0)
	v.SetDefault("auto_exposure.algorithm", "mean")
	v.SetDefault("auto_exposure.percentile", 75.0)

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.start", "17:00")
	v.SetDefault("schedule.end", "09:00")

	v.SetDefault("white_balance.mode", "auto")
	v.SetDefault("white_balance.red_gain", 50)
	v.SetDefault("white_balance.blue_gain", 50)
	v.SetDefault("white_balance.gray_world_low_pct", 5.0)
	v.SetDefault("white_balance.gray_world_high_pct", 95.0)

	v.SetDefault("stretch.enabled", true)
	v.SetDefault("stretch.target_median", 0.25)
	v.SetDefault("stretch.linked", true)
	v.SetDefault("stretch.preserve_blacks", true)
	v.SetDefault("stretch.normalize_channels", true)
	v.SetDefault("stretch.dark_scene_threshold", 0.05)
	v.SetDefault("stretch.shadow_aggressiveness", 2.8)
	v.SetDefault("stretch.saturation_boost", 1.5)

	v.SetDefault("location.name", "Observatory")
	v.SetDefault("location.set", false)

	v.SetDefault("calibration.enabled", true)
	v.SetDefault("calibration.database", "pfrsentinel.db")
	v.SetDefault("calibration.batch_size", 16)
	v.SetDefault("calibration.batch_timeout", 30)
	v.SetDefault("calibration.queue_size", 8)

	v.SetDefault("providers.roof.enabled", false)
	v.SetDefault("providers.roof.url", "http://localhost:1888")
	v.SetDefault("providers.roof.timeout_ms", 2000)
	v.SetDefault("providers.weather.enabled", false)
	v.SetDefault("providers.weather.units", "metric")
	v.SetDefault("providers.weather.cache_duration", 600)
	v.SetDefault("providers.ml.enabled", false)
	v.SetDefault("providers.ml.timeout_ms", 5000)
}

func validate(cfg *Config) error {
	errFactory := errors.New()

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if !validLogLevels[cfg.LogLevel] {
		return errFactory.WithData(errors.ErrInvalidLogLevel, cfg.LogLevel)
	}
	if cfg.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, cfg.Interval)
	}
	if cfg.AutoExposure.MinExposureMs <= 0 ||
		cfg.AutoExposure.MaxExposureMs < cfg.AutoExposure.MinExposureMs {
		return errFactory.WithData(errors.ErrInvalidConfig, "exposure bounds")
	}
	if cfg.AutoExposure.TargetBrightness < 0 || cfg.AutoExposure.TargetBrightness > 255 {
		return errFactory.WithData(errors.ErrInvalidConfig, "target_brightness out of 0-255 range")
	}

	switch cfg.Camera.BayerPattern {
	case "RGGB", "BGGR", "GRBG", "GBRG":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig,
			"camera.bayer_pattern must be RGGB, BGGR, GRBG or GBRG")
	}

	switch cfg.WhiteBalance.Mode {
	case "auto", "manual", "gray_world":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig,
			"white_balance.mode must be auto, manual or gray_world")
	}

	// Manual gains live on the 1-99 sensor scale where 50 is unity.
	if cfg.WhiteBalance.RedGain < 1 {
		cfg.WhiteBalance.RedGain = 1
	}
	if cfg.WhiteBalance.RedGain > 99 {
		cfg.WhiteBalance.RedGain = 99
	}
	if cfg.WhiteBalance.BlueGain < 1 {
		cfg.WhiteBalance.BlueGain = 1
	}
	if cfg.WhiteBalance.BlueGain > 99 {
		cfg.WhiteBalance.BlueGain = 99
	}

	return nil
}
