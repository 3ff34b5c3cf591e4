package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"titanic-survival/internal/common"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	defaultDownloadTimeout = 30 * time.Second
)

type Settings struct {
	Port            int
	MetricsEnabled  bool
	FeedEnabled     bool
	ModelDir        string
	DataPath        string // bbolt directory; empty disables prediction history
	DatasetPath     string
	DatasetURL      string
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
	LogLevel        string
	CORSOrigins     []string
	TestRatio       float64
	Seed            int64
	Trees           int
	MaxDepth        int
}

type ConfigFile struct {
	Server struct {
		Port           int      `yaml:"port"`
		RequestTimeout string   `yaml:"requestTimeout"`
		CORSOrigins    []string `yaml:"corsOrigins"`
		FeedEnabled    *bool    `yaml:"feedEnabled"`
	} `yaml:"server"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Model struct {
		Dir string `yaml:"dir"`
	} `yaml:"model"`

	Training struct {
		DatasetPath     string  `yaml:"datasetPath"`
		DatasetURL      *string `yaml:"datasetURL"`
		DownloadTimeout string  `yaml:"downloadTimeout"`
		TestRatio       float64 `yaml:"testRatio"`
		Seed            int64   `yaml:"seed"`
		Trees           int     `yaml:"trees"`
		MaxDepth        int     `yaml:"maxDepth"`
	} `yaml:"training"`

	System struct {
		DataPath string `yaml:"dataPath"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads settings from CONFIG_FILE when set, otherwise from the
// environment alone. Variables from a .env file are applied first and never
// override variables already set in the process environment.
func Load() (Settings, error) {
	if err := loadDotEnv(getEnvOrDefault(common.EnvDotEnvFile, common.DefaultDotEnvFile)); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = defaultRequestTimeout
	}

	downloadTimeout, err := time.ParseDuration(config.Training.DownloadTimeout)
	if err != nil {
		downloadTimeout = defaultDownloadTimeout
	}

	datasetURL := common.DefaultDatasetURL
	if config.Training.DatasetURL != nil {
		datasetURL = *config.Training.DatasetURL
	}

	settings := Settings{
		Port:            getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		MetricsEnabled:  getBoolFromEnvOrConfig(common.EnvMetricsEnabled, config.Metrics.Enabled, true),
		FeedEnabled:     getBoolFromEnvOrConfig(common.EnvFeedEnabled, config.Server.FeedEnabled, true),
		ModelDir:        getEnvOrDefault(common.EnvModelDir, stringOr(config.Model.Dir, common.DefaultModelDir)),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		DatasetPath:     getEnvOrDefault(common.EnvDatasetPath, stringOr(config.Training.DatasetPath, common.DefaultDatasetPath)),
		DatasetURL:      getEnvOrDefault(common.EnvDatasetURL, datasetURL),
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		DownloadTimeout: downloadTimeout,
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, stringOr(config.System.LogLevel, common.DefaultLogLevel)),
		CORSOrigins:     getOriginsFromEnvOrConfig(config.Server.CORSOrigins),
		TestRatio:       getFloatFromEnvOrConfig(common.EnvTestRatio, config.Training.TestRatio, common.DefaultTestRatio),
		Seed:            int64(getIntFromEnvOrConfig(common.EnvSeed, int(config.Training.Seed), common.DefaultSeed)),
		Trees:           getIntFromEnvOrConfig(common.EnvTrees, config.Training.Trees, common.DefaultTrees),
		MaxDepth:        getIntFromEnvOrConfig(common.EnvMaxDepth, config.Training.MaxDepth, common.DefaultMaxDepth),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:            getIntOrDefault(common.EnvPort, common.DefaultPort),
		MetricsEnabled:  getBoolOrDefault(common.EnvMetricsEnabled, true),
		FeedEnabled:     getBoolOrDefault(common.EnvFeedEnabled, true),
		ModelDir:        getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		DatasetPath:     getEnvOrDefault(common.EnvDatasetPath, common.DefaultDatasetPath),
		DatasetURL:      getEnvOrDefault(common.EnvDatasetURL, common.DefaultDatasetURL),
		RequestTimeout:  getDurationOrDefault(common.EnvRequestTimeout, defaultRequestTimeout),
		DownloadTimeout: defaultDownloadTimeout,
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		CORSOrigins:     splitOrDefault(os.Getenv(common.EnvCORSOrigins), []string{common.DefaultCORSOrigin}),
		TestRatio:       getFloatOrDefault(common.EnvTestRatio, common.DefaultTestRatio),
		Seed:            int64(getIntOrDefault(common.EnvSeed, common.DefaultSeed)),
		Trees:           getIntOrDefault(common.EnvTrees, common.DefaultTrees),
		MaxDepth:        getIntOrDefault(common.EnvMaxDepth, common.DefaultMaxDepth),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func stringOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getOriginsFromEnvOrConfig(configOrigins []string) []string {
	if env := os.Getenv(common.EnvCORSOrigins); env != "" {
		return splitOrDefault(env, []string{common.DefaultCORSOrigin})
	}
	if len(configOrigins) > 0 {
		return configOrigins
	}
	return []string{common.DefaultCORSOrigin}
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue *bool, defaultValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	if configValue != nil {
		return *configValue
	}
	return defaultValue
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}

	// Validate paths
	if settings.ModelDir == "" {
		return fmt.Errorf("model directory cannot be empty")
	}
	if settings.DatasetPath == "" {
		return fmt.Errorf("dataset path cannot be empty")
	}

	// Validate time durations
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > 5*time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 5m, got %v", settings.RequestTimeout)
	}
	if settings.DownloadTimeout < time.Second || settings.DownloadTimeout > 10*time.Minute {
		return fmt.Errorf("download timeout must be between 1s and 10m, got %v", settings.DownloadTimeout)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}

	if len(settings.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be specified")
	}

	// Validate training parameters
	if settings.TestRatio <= 0 || settings.TestRatio >= 1 {
		return fmt.Errorf("test ratio must be between 0 and 1 (exclusive), got %f", settings.TestRatio)
	}
	if settings.Trees <= 0 || settings.Trees > common.MaxTrees {
		return fmt.Errorf("trees must be between 1 and %d, got %d", common.MaxTrees, settings.Trees)
	}
	if settings.MaxDepth <= 0 || settings.MaxDepth > common.MaxTreeDepth {
		return fmt.Errorf("max depth must be between 1 and %d, got %d", common.MaxTreeDepth, settings.MaxDepth)
	}

	return nil
}
