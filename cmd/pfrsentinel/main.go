package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/englishfox90/pfrsentinel/internal/calibration"
	"github.com/englishfox90/pfrsentinel/internal/capture"
	"github.com/englishfox90/pfrsentinel/internal/config"
	"github.com/englishfox90/pfrsentinel/internal/exposure"
	"github.com/englishfox90/pfrsentinel/internal/logger"
	"github.com/englishfox90/pfrsentinel/internal/providers"
	"github.com/englishfox90/pfrsentinel/internal/sensor"
)

var (
	cfg *config.Config
	cam sensor.Sensor
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug || cfg.LogLevel == "debug", cfg.Verbose || cfg.LogLevel == "info",
		logger.IsService())
	logger.Debug().Msg("Config loaded")

	cam = sensor.NewSim(sensor.SimOptions{
		BitDepth: cfg.Camera.BitDepth,
		ADCBits:  cfg.Camera.ADCBits,
		Bayer:    sensor.BayerPattern(cfg.Camera.BayerPattern),
		Vignette: 0.4,
		RealTime: true,
	})
}

func main() {
	defer func() {
		if err := cam.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close sensor")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in capture loop")
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	session := cfg.Session
	if session == "" {
		session = uuid.NewString()
	}

	var records calibration.Sink
	if cfg.Calibration.Enabled {
		repo, err := calibration.NewRepository(calibration.StoreConfig{
			DBPath:       cfg.Calibration.Database,
			BatchSize:    cfg.Calibration.BatchSize,
			BatchTimeout: cfg.Calibration.BatchTimeout,
		}, logger.Default())
		if err != nil {
			return err
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close calibration store")
			}
		}()

		dispatcher := calibration.NewDispatcher(repo, cfg.Calibration.QueueSize, logger.Default())
		defer dispatcher.Close()
		records = dispatcher
	}

	controller := exposure.NewController(cfg.Camera.ExposureMs/1000, exposure.Settings{
		Target:      cfg.AutoExposure.TargetBrightness,
		MinExposure: cfg.AutoExposure.MinExposureMs / 1000,
		MaxExposure: cfg.AutoExposure.MaxExposureMs / 1000,
		Tolerance:   cfg.AutoExposure.Tolerance,
	})

	opts := capture.Options{
		Sensor:     cam,
		Source:     capture.SettingsFunc(func() capture.Settings { return capture.FromConfig(cfg) }),
		Controller: controller,
		Records:    records,
		Session:    session,
	}

	if cfg.Providers.Roof.Enabled {
		opts.Roof = providers.NewNINARoof(cfg.Providers.Roof.URL,
			time.Duration(cfg.Providers.Roof.TimeoutMs)*time.Millisecond, logger.Default())
	}
	if cfg.Providers.Weather.Enabled {
		opts.Weather = providers.NewOpenWeather(providers.OpenWeatherConfig{
			APIKey:    cfg.Providers.Weather.APIKey,
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Units:     cfg.Providers.Weather.Units,
			CacheFor:  time.Duration(cfg.Providers.Weather.CacheDuration) * time.Second,
		}, logger.Default())
	}
	if cfg.Providers.ML.Enabled {
		opts.Predictor = providers.NewHTTPPredictor(cfg.Providers.ML.URL,
			time.Duration(cfg.Providers.ML.TimeoutMs)*time.Millisecond, logger.Default())
	}

	scheduler, err := capture.NewScheduler(opts)
	if err != nil {
		return err
	}

	return scheduler.Run(ctx)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
