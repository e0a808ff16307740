package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jsphweid/keystream/constants"
)

type Strategy string

const (
	// MicroBatch groups note-ons with a short trailing-edge window.
	MicroBatch Strategy = "microbatch"
	// Debounce is the legacy fixed debounce path.
	Debounce Strategy = "debounce"
)

// Config holds every tunable of the pipeline. Values come from the
// environment (KEYSTREAM_*) and can be overridden by command flags.
type Config struct {
	Strategy        Strategy
	BatchWindow     time.Duration
	DebounceWindow  time.Duration
	MaxBatchSize    int
	MaxBatchRate    int
	LatencyCapacity int
	AccessTimeout   time.Duration
	Source          string
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
}

func Default() Config {
	return Config{
		Strategy:        Strategy(constants.DefaultStrategy),
		BatchWindow:     constants.DefaultBatchWindow,
		DebounceWindow:  constants.DefaultDebounceWindow,
		MaxBatchSize:    constants.DefaultMaxBatchSize,
		MaxBatchRate:    constants.DefaultMaxBatchRate,
		LatencyCapacity: constants.DefaultLatencyCapacity,
		AccessTimeout:   constants.DefaultAccessTimeout,
		LogLevel:        constants.DefaultLogLevel,
		LogFormat:       "text",
		HTTPAddr:        constants.DefaultHTTPAddr,
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (Config, error) {
	cfg := Default()

	var err error
	if cfg.BatchWindow, err = getEnvMillis(constants.EnvBatchWindowMs, cfg.BatchWindow); err != nil {
		return cfg, err
	}
	if cfg.DebounceWindow, err = getEnvMillis(constants.EnvDebounceMs, cfg.DebounceWindow); err != nil {
		return cfg, err
	}
	if cfg.MaxBatchSize, err = getEnvInt(constants.EnvMaxBatchSize, cfg.MaxBatchSize); err != nil {
		return cfg, err
	}
	if cfg.MaxBatchRate, err = getEnvInt(constants.EnvMaxBatchRate, cfg.MaxBatchRate); err != nil {
		return cfg, err
	}
	if cfg.LatencyCapacity, err = getEnvInt(constants.EnvLatencyCapacity, cfg.LatencyCapacity); err != nil {
		return cfg, err
	}
	if cfg.AccessTimeout, err = getEnvDuration(constants.EnvAccessTimeout, cfg.AccessTimeout); err != nil {
		return cfg, err
	}
	cfg.Strategy = Strategy(strings.ToLower(getEnvString(constants.EnvStrategy, string(cfg.Strategy))))
	cfg.Source = getEnvString(constants.EnvSource, cfg.Source)
	cfg.LogLevel = getEnvString(constants.EnvLogLevel, cfg.LogLevel)
	cfg.LogFormat = getEnvString(constants.EnvLogFormat, cfg.LogFormat)
	cfg.HTTPAddr = getEnvString(constants.EnvHTTPAddr, cfg.HTTPAddr)

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Strategy {
	case MicroBatch, Debounce:
	default:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	}
	if c.BatchWindow <= 0 {
		return errors.New("batch window must be positive")
	}
	if c.DebounceWindow <= 0 {
		return errors.New("debounce window must be positive")
	}
	if c.MaxBatchSize < 1 {
		return errors.New("max batch size must be at least 1")
	}
	if c.MaxBatchRate < 1 {
		return errors.New("max batch rate must be at least 1")
	}
	if c.LatencyCapacity < 1 {
		return errors.New("latency capacity must be at least 1")
	}
	if c.AccessTimeout <= 0 {
		return errors.New("access timeout must be positive")
	}
	return nil
}

// Window is the flush delay for the configured strategy.
func (c Config) Window() time.Duration {
	if c.Strategy == Debounce {
		return c.DebounceWindow
	}
	return c.BatchWindow
}

func getEnvString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return parsed, nil
}

func getEnvMillis(key string, defaultValue time.Duration) (time.Duration, error) {
	ms, err := getEnvInt(key, int(defaultValue/time.Millisecond))
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return parsed, nil
}
