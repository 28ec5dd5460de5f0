// Package config handles configuration loading and validation for the
// Instagram automation engine. It supports YAML configuration files with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"instagram-automation/internal/models"
)

// Config holds all configuration for the automation engine.
type Config struct {
	Bot      models.BotConfig   `yaml:"bot"`
	Delays   models.DelayConfig `yaml:"delays"`
	Targets  TargetsConfig      `yaml:"targets"`
	Stealth  StealthConfig      `yaml:"stealth"`
	Browser  BrowserConfig      `yaml:"browser"`
	Storage  StorageConfig      `yaml:"storage"`
	Server   ServerConfig       `yaml:"server"`
	Refresh  RefreshConfig      `yaml:"refresh"`
	LogLevel string             `yaml:"-"`
}

// TargetsConfig seeds the hashtag and competitor lists on first run. The
// live lists are user-edited through the store/dashboard afterwards.
type TargetsConfig struct {
	Hashtags    []string `yaml:"hashtags"`
	Competitors []string `yaml:"competitors"`
}

// StealthConfig holds anti-detection settings.
type StealthConfig struct {
	// Activity window
	ScheduleOnly bool `yaml:"schedule_only"`
	StartHour    int  `yaml:"start_hour"`
	EndHour      int  `yaml:"end_hour"`

	// Mouse movement
	MouseSpeedMin   float64 `yaml:"mouse_speed_min"`
	MouseSpeedMax   float64 `yaml:"mouse_speed_max"`
	EnableOvershoot bool    `yaml:"enable_overshoot"`

	// Scrolling
	ScrollSpeedMin   int  `yaml:"scroll_speed_min"`
	ScrollSpeedMax   int  `yaml:"scroll_speed_max"`
	EnableScrollBack bool `yaml:"enable_scroll_back"`

	// Random actions
	EnableRandomHovers bool    `yaml:"enable_random_hovers"`
	HoverProbability   float64 `yaml:"hover_probability"`
}

// BrowserConfig holds browser settings.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	UserDataDir    string `yaml:"user_data_dir"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	CookiesPath  string `yaml:"cookies_path"`
}

// ServerConfig holds dashboard API settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RefreshConfig controls the periodic one-shot profile refresh.
type RefreshConfig struct {
	Enabled       bool `yaml:"enabled"`
	IntervalHours int  `yaml:"interval_hours"`
}

// Load reads configuration from YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Bot: models.BotConfig{
			LikeEnabled:    true,
			SourceHashtags: true,
		},
		Delays: models.DefaultDelays(),
		Targets: TargetsConfig{
			Hashtags:    []string{"#digitalart", "#photography"},
			Competitors: []string{},
		},
		Stealth: StealthConfig{
			ScheduleOnly:       false,
			StartHour:          9,
			EndHour:            23,
			MouseSpeedMin:      0.5,
			MouseSpeedMax:      2.0,
			EnableOvershoot:    true,
			ScrollSpeedMin:     200,
			ScrollSpeedMax:     800,
			EnableScrollBack:   true,
			EnableRandomHovers: true,
			HoverProbability:   0.3,
		},
		Browser: BrowserConfig{
			Headless:       false,
			UserDataDir:    "./data/browser",
			ViewportWidth:  1440,
			ViewportHeight: 900,
		},
		Storage: StorageConfig{
			DatabasePath: "./data/instagram.db",
			CookiesPath:  "./data/cookies.json",
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8765",
		},
		Refresh: RefreshConfig{
			Enabled:       true,
			IntervalHours: 6,
		},
		LogLevel: "info",
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, use defaults
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.loadEnvOverrides()
	cfg.Delays = cfg.Delays.Normalize()

	return cfg, nil
}

// loadEnvOverrides applies environment variable overrides to config.
func (c *Config) loadEnvOverrides() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv("HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}

	if v := os.Getenv("COOKIES_PATH"); v != "" {
		c.Storage.CookiesPath = v
	}

	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv("BATCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Delays.BatchLimit = n
		}
	}

	if v := os.Getenv("REFRESH_INTERVAL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Refresh.IntervalHours = n
		}
	}
}
