// Package config reads settings from the environment, optionally seeded by a .env file.
package config

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"colorshift/pkg/change"
	"colorshift/pkg/composition"
	"colorshift/pkg/lib"
	"colorshift/pkg/mask"
)

const (
	EnvThreshold           = "COLORSHIFT_THRESHOLD"
	EnvRanges              = "COLORSHIFT_RANGES"
	EnvOrder               = "COLORSHIFT_ORDER"
	EnvMaxDim              = "COLORSHIFT_MAX_DIM"
	EnvMaskDir             = "COLORSHIFT_MASK_DIR"
	EnvLogLevel            = "LOG_LEVEL"
	EnvPort                = "PORT"
	EnvWatchDir            = "WATCH_DIR"
	EnvWatchInterval       = "WATCH_INTERVAL"
	EnvTelegramToken       = "TELEGRAM_BOT_TOKEN"
	EnvTelegramSubscribers = "TELEGRAM_SUBSCRIBERS"
)

type Config struct {
	Threshold  float64
	RangesFile string
	Order      mask.ChannelOrder
	MaxDim     int
	MaskDir    string
	LogLevel   log.Level

	Port          int
	WatchDir      string
	WatchInterval time.Duration

	TelegramToken   string
	SubscribersFile string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Threshold:       change.DefaultThreshold,
		Order:           mask.BGR,
		MaskDir:         ".",
		LogLevel:        log.InfoLevel,
		Port:            8080,
		WatchDir:        "Images",
		WatchInterval:   2 * time.Second,
		SubscribersFile: "telegram.json",
	}
}

// Load reads the given .env files (".env" when none are given; missing files are ignored)
// and then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, lib.NewValidationError("env file", "%s: %v", file, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables over Default.
func FromEnv() (Config, error) {
	cfg := Default()
	var err error

	if cfg.Threshold, err = parseFloatOrDefault(EnvThreshold, cfg.Threshold); err != nil {
		return Config{}, err
	}
	cfg.RangesFile = getEnvOrDefault(EnvRanges, cfg.RangesFile)
	if v := os.Getenv(EnvOrder); v != "" {
		if cfg.Order, err = mask.ParseChannelOrder(v); err != nil {
			return Config{}, lib.NewValidationError(EnvOrder, "%v", err)
		}
	}
	if cfg.MaxDim, err = parseIntOrDefault(EnvMaxDim, cfg.MaxDim); err != nil {
		return Config{}, err
	}
	cfg.MaskDir = getEnvOrDefault(EnvMaskDir, cfg.MaskDir)
	if v := os.Getenv(EnvLogLevel); v != "" {
		if cfg.LogLevel, err = log.ParseLevel(strings.ToLower(v)); err != nil {
			return Config{}, lib.NewValidationError(EnvLogLevel, "%v", err)
		}
	}
	if cfg.Port, err = parseIntOrDefault(EnvPort, cfg.Port); err != nil {
		return Config{}, err
	}
	cfg.WatchDir = getEnvOrDefault(EnvWatchDir, cfg.WatchDir)
	if v := os.Getenv(EnvWatchInterval); v != "" {
		if cfg.WatchInterval, err = time.ParseDuration(strings.TrimSpace(v)); err != nil {
			return Config{}, lib.NewValidationError(EnvWatchInterval, "%v", err)
		}
	}
	cfg.TelegramToken = os.Getenv(EnvTelegramToken)
	cfg.SubscribersFile = getEnvOrDefault(EnvTelegramSubscribers, cfg.SubscribersFile)

	return cfg, cfg.Validate()
}

// Validate checks ranges of numeric settings.
func (c Config) Validate() error {
	if c.Threshold <= 0 || math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return lib.NewValidationError("threshold", "must be a positive number (got %v)", c.Threshold)
	}
	if c.MaxDim < 0 {
		return lib.NewValidationError("max dimension", "must be >= 0 (got %d)", c.MaxDim)
	}
	if c.Port < 1 || c.Port > 65535 {
		return lib.NewValidationError("port", "must be between 1 and 65535 (got %d)", c.Port)
	}
	if c.WatchInterval <= 0 {
		return lib.NewValidationError("watch interval", "must be > 0 (got %s)", c.WatchInterval)
	}
	return nil
}

// Analyzer builds the composition analyzer, reading RangesFile when set.
func (c Config) Analyzer() (composition.Analyzer, error) {
	analyzer := composition.Analyzer{Ranges: composition.DefaultRanges(), Order: c.Order}
	if c.RangesFile == "" {
		return analyzer, nil
	}
	ranges, err := composition.LoadRanges(c.RangesFile)
	if err != nil {
		return composition.Analyzer{}, err
	}
	analyzer.Ranges = ranges
	return analyzer, nil
}

// Options returns the change detector options for this configuration.
func (c Config) Options() change.Options {
	return change.DefaultOptions().WithThreshold(c.Threshold)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, lib.NewValidationError(key, "%q is not a number", value)
	}
	return f, nil
}

func parseIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, lib.NewValidationError(key, "%q is not an integer", value)
	}
	return i, nil
}
