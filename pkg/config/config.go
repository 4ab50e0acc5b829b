// Package config loads timewarp settings from defaults, an optional YAML file
// and TIMEWARP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

// Sentinel validation errors.
var (
	ErrInvalidPort      = errors.New("invalid server port")
	ErrInvalidTimeout   = errors.New("api timeout must be positive")
	ErrInvalidFOV       = errors.New("scene fov must be between 0 and 180 degrees")
	ErrInvalidColorMode = errors.New("invalid scene color mode")
	ErrInvalidBaseURL   = errors.New("invalid api base url")
	ErrInvalidRetries   = errors.New("api max retries must not be negative")
	ErrInvalidLogFormat = errors.New("invalid logging format")
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	configName = "timewarp"
	envPrefix  = "TIMEWARP"
	maxPort    = 65535
	maxFOV     = 180
)

// Config holds all timewarp configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Hotspot HotspotConfig `mapstructure:"hotspot"`
	Scene   SceneConfig   `mapstructure:"scene"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// APIConfig points at the snapshot backend.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Burst      int           `mapstructure:"burst"`
}

// HotspotConfig sets the initial hotspot filter.
type HotspotConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Only      bool    `mapstructure:"only"`
}

// SceneConfig sets rendering defaults.
type SceneConfig struct {
	ColorMode    string  `mapstructure:"color_mode"`
	FOV          float64 `mapstructure:"fov"`
	RotationStep float64 `mapstructure:"rotation_step"`
	SkipVendor   bool    `mapstructure:"skip_vendor"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures `timewarp serve`.
type ServerConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Prometheus  bool          `mapstructure:"prometheus"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Addr is host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ColorMode returns the validated scene color mode.
func (c *Config) ColorMode() scene.ColorMode {
	mode, err := scene.ParseColorMode(c.Scene.ColorMode)
	if err != nil {
		return scene.ColorByChurn
	}

	return mode
}

// LoadConfig reads configPath, or timewarp.yaml from the working directory,
// ./config or /etc/timewarp when configPath is empty. A missing search-path
// file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/timewarp")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperCfg.AutomaticEnv()

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	normalize(&config)

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("api.base_url", DefaultBaseURL)
	viperCfg.SetDefault("api.timeout", DefaultTimeout)
	viperCfg.SetDefault("api.max_retries", DefaultMaxRetries)
	viperCfg.SetDefault("api.rate_limit", DefaultRateLimit)
	viperCfg.SetDefault("api.burst", DefaultBurst)

	viperCfg.SetDefault("hotspot.threshold", DefaultThreshold)
	viperCfg.SetDefault("hotspot.only", DefaultHotspotOnly)

	viperCfg.SetDefault("scene.color_mode", DefaultColorMode)
	viperCfg.SetDefault("scene.fov", DefaultFOV)
	viperCfg.SetDefault("scene.rotation_step", DefaultRotationStep)
	viperCfg.SetDefault("scene.skip_vendor", DefaultSkipVendor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("server.host", DefaultHost)
	viperCfg.SetDefault("server.port", DefaultPort)
	viperCfg.SetDefault("server.prometheus", DefaultPrometheus)
	viperCfg.SetDefault("server.read_timeout", DefaultReadTimeout)
}

// normalize fixes values that are tolerated rather than rejected.
func normalize(config *Config) {
	config.API.BaseURL = strings.TrimRight(strings.TrimSpace(config.API.BaseURL), "/")
	config.Hotspot.Threshold = scene.ClampUnit(config.Hotspot.Threshold)
	config.Scene.ColorMode = strings.ToLower(strings.TrimSpace(config.Scene.ColorMode))
	config.Logging.Format = strings.ToLower(strings.TrimSpace(config.Logging.Format))
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	if config.API.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, config.API.Timeout)
	}

	if config.API.MaxRetries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetries, config.API.MaxRetries)
	}

	if config.Scene.FOV <= 0 || config.Scene.FOV >= maxFOV {
		return fmt.Errorf("%w: %g", ErrInvalidFOV, config.Scene.FOV)
	}

	if _, err := scene.ParseColorMode(config.Scene.ColorMode); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidColorMode, config.Scene.ColorMode)
	}

	if config.Logging.Format != LogFormatText && config.Logging.Format != LogFormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	return validateBaseURL(config.API.BaseURL)
}

func validateBaseURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}

	return nil
}
