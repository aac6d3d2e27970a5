package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"github.com/ravimadlani/calfix-sub002/internal/models"
)

// Config captures the settings required to boot the analytics engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	ICS      ICSConfig      `yaml:"ics"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// ProviderConfig configures the hosted calendar-provider API client.
type ProviderConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	EventsPath string        `yaml:"eventsPath"`
	APIKey     string        `yaml:"apiKey"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ICSConfig lists ICS feed subscriptions and the refresh schedule.
type ICSConfig struct {
	Sources     []ICSSource   `yaml:"sources"`
	Timeout     time.Duration `yaml:"timeout"`
	RefreshCron string        `yaml:"refreshCron"`
}

// ICSSource is a single ICS feed owned by one user.
type ICSSource struct {
	ID         string `yaml:"id"`
	URL        string `yaml:"url"`
	OwnerEmail string `yaml:"ownerEmail"`
}

// AnalysisConfig carries the window defaults and the tunable thresholds
// behind flag and relationship-status rules.
type AnalysisConfig struct {
	BaselineWorkWeekHours     float64  `yaml:"baselineWorkWeekHours"`
	AuditWindowDays           int      `yaml:"auditWindowDays"`
	RelationshipWindowDays    int      `yaml:"relationshipWindowDays"`
	HighPeopleHoursPerMonth   float64  `yaml:"highPeopleHoursPerMonth"`
	StaleCadenceMultiplier    float64  `yaml:"staleCadenceMultiplier"`
	CriticalCadenceMultiplier float64  `yaml:"criticalCadenceMultiplier"`
	CriticalFixedGapDays      float64  `yaml:"criticalFixedGapDays"`
	OverdueFixedGapDays       float64  `yaml:"overdueFixedGapDays"`
	ResourceDomains           []string `yaml:"resourceDomains"`
	MaxSampleEvents           int      `yaml:"maxSampleEvents"`
}

// Thresholds converts the analysis section into engine tuning, falling back
// to the model defaults for anything the file leaves unset.
func (a AnalysisConfig) Thresholds() models.Thresholds {
	t := models.DefaultThresholds()
	if a.HighPeopleHoursPerMonth > 0 {
		t.HighPeopleHoursPerMonth = a.HighPeopleHoursPerMonth
	}
	if a.StaleCadenceMultiplier > 0 {
		t.StaleCadenceMultiplier = a.StaleCadenceMultiplier
	}
	if a.CriticalCadenceMultiplier > 0 {
		t.CriticalCadenceMultiplier = a.CriticalCadenceMultiplier
	}
	if a.CriticalFixedGapDays > 0 {
		t.CriticalFixedGapDays = a.CriticalFixedGapDays
	}
	if a.OverdueFixedGapDays > 0 {
		t.OverdueFixedGapDays = a.OverdueFixedGapDays
	}
	if len(a.ResourceDomains) > 0 {
		t.ResourceDomains = a.ResourceDomains
	}
	if a.MaxSampleEvents > 0 {
		t.MaxSampleEvents = a.MaxSampleEvents
	}
	return t
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls memoisation of analysis results.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Kind         string        `yaml:"kind"` // memory | valkey
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ResultTTL    time.Duration `yaml:"resultTTL"`
}

// envOverrides maps CALFIX_* environment variables onto config fields. The
// file is optional; the environment always wins over it.
type envOverrides struct {
	ServerAddress   string `env:"CALFIX_SERVER_ADDRESS"`
	MetricsAddress  string `env:"CALFIX_METRICS_ADDRESS"`
	ProviderBaseURL string `env:"CALFIX_PROVIDER_BASE_URL"`
	ProviderAPIKey  string `env:"CALFIX_PROVIDER_API_KEY"`
	LogLevel        string `env:"CALFIX_LOG_LEVEL"`
	LogFormat       string `env:"CALFIX_LOG_FORMAT"`
	CacheEnabled    string `env:"CALFIX_CACHE_ENABLED"`
	CacheKind       string `env:"CALFIX_CACHE_KIND"`
	CacheAddr       string `env:"CALFIX_CACHE_ADDR"`
	CachePassword   string `env:"CALFIX_CACHE_PASSWORD"`
	RefreshCron     string `env:"CALFIX_REFRESH_CRON"`
}

// Load initialises Config from a YAML file and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CALFIX_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	applyOverrides(&cfg, overrides)

	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Provider: ProviderConfig{
			EventsPath: "/api/v1/events",
			Timeout:    10 * time.Second,
		},
		ICS: ICSConfig{
			Timeout: 15 * time.Second,
		},
		Analysis: AnalysisConfig{
			BaselineWorkWeekHours:  40,
			AuditWindowDays:        30,
			RelationshipWindowDays: 90,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			Kind:         "memory",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ResultTTL:    5 * time.Minute,
		},
	}
}

func applyOverrides(cfg *Config, o envOverrides) {
	if o.ServerAddress != "" {
		cfg.Server.Address = o.ServerAddress
	}
	if o.MetricsAddress != "" {
		cfg.Server.MetricsAddress = o.MetricsAddress
	}
	if o.ProviderBaseURL != "" {
		cfg.Provider.BaseURL = o.ProviderBaseURL
	}
	if o.ProviderAPIKey != "" {
		cfg.Provider.APIKey = o.ProviderAPIKey
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat == "json" {
		cfg.Logging.JSON = true
	}
	switch o.CacheEnabled {
	case "true", "1":
		cfg.Cache.Enabled = true
	case "false", "0":
		cfg.Cache.Enabled = false
	}
	if o.CacheKind != "" {
		cfg.Cache.Kind = o.CacheKind
	}
	if o.CacheAddr != "" {
		cfg.Cache.Addr = o.CacheAddr
	}
	if o.CachePassword != "" {
		cfg.Cache.Password = o.CachePassword
	}
	if o.RefreshCron != "" {
		cfg.ICS.RefreshCron = o.RefreshCron
	}
}
