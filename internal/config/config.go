package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "SLOTBOOK_CONFIG_PATH"

type Config struct {
	Server struct {
		Address     string   `yaml:"address"`
		APIKey      string   `yaml:"api_key"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Backend struct {
		Driver            string `yaml:"driver"` // supabase | postgres
		URL               string `yaml:"url"`
		Key               string `yaml:"key"`
		DatabaseURL       string `yaml:"database_url"`
		PendingStatusID   string `yaml:"pending_status_id"`
		CancelledStatusID string `yaml:"cancelled_status_id"`
	} `yaml:"backend"`

	Stripe struct {
		SecretKey string `yaml:"secret_key"`
		Currency  string `yaml:"currency"`
	} `yaml:"stripe"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		ReliefMinutes          int      `yaml:"relief_minutes"`
		DefaultDurationMinutes int      `yaml:"default_duration_minutes"`
		DefaultTimezone        string   `yaml:"default_timezone"`
		PickerMonthsAhead      int      `yaml:"picker_months_ahead"`
		Compensate             *bool    `yaml:"compensate"`
		NonBlockingStatuses    []string `yaml:"non_blocking_statuses"`
		SessionTimeoutMinutes  int      `yaml:"session_timeout_minutes"`
		RateLimitPerMinute     int      `yaml:"rate_limit_per_minute"`
	} `yaml:"booking"`

	Calendar struct {
		StartHour int `yaml:"start_hour"`
		EndHour   int `yaml:"end_hour"`
	} `yaml:"calendar"`

	Audit struct {
		RetentionDays int    `yaml:"retention_days"`
		ExportDir     string `yaml:"export_dir"`
	} `yaml:"audit"`

	BusinessesPath string `yaml:"businesses_path"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Path returns the config file to load.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/slotbook.db"
	}
	if cfg.Backend.Driver == "" {
		cfg.Backend.Driver = "supabase"
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case "supabase":
		if c.Backend.URL == "" || c.Backend.Key == "" {
			return fmt.Errorf("backend: url and key are required for the supabase driver")
		}
	case "postgres":
		if c.Backend.DatabaseURL == "" {
			return fmt.Errorf("backend: database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("backend: unknown driver %q", c.Backend.Driver)
	}
	if c.Compensate() && c.Backend.CancelledStatusID == "" {
		return fmt.Errorf("backend: cancelled_status_id is required while booking.compensate is on")
	}

	if c.Calendar.StartHour != 0 || c.Calendar.EndHour != 0 {
		if c.Calendar.StartHour < 0 || c.Calendar.EndHour > 23 || c.Calendar.StartHour > c.Calendar.EndHour {
			return fmt.Errorf("calendar: invalid hour range %d-%d", c.Calendar.StartHour, c.Calendar.EndHour)
		}
	}
	if _, err := time.LoadLocation(c.DefaultTimezone()); err != nil {
		return fmt.Errorf("booking.default_timezone: %w", err)
	}
	return nil
}

func (c *Config) ServerAddress() string {
	if c.Server.Address == "" {
		return ":8080"
	}
	return c.Server.Address
}

func (c *Config) Relief() time.Duration {
	if c.Booking.ReliefMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.ReliefMinutes) * time.Minute
}

func (c *Config) DefaultDuration() time.Duration {
	if c.Booking.DefaultDurationMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.Booking.DefaultDurationMinutes) * time.Minute
}

func (c *Config) DefaultTimezone() string {
	if c.Booking.DefaultTimezone == "" {
		return "Australia/Melbourne"
	}
	return c.Booking.DefaultTimezone
}

func (c *Config) PickerMonthsAhead() int {
	if c.Booking.PickerMonthsAhead <= 0 {
		return 6
	}
	return c.Booking.PickerMonthsAhead
}

// Compensate defaults to true when unset.
func (c *Config) Compensate() bool {
	if c.Booking.Compensate == nil {
		return true
	}
	return *c.Booking.Compensate
}

func (c *Config) NonBlockingStatuses() []string {
	if len(c.Booking.NonBlockingStatuses) == 0 {
		return []string{"cancelled", "canceled"}
	}
	return c.Booking.NonBlockingStatuses
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Booking.SessionTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SessionTimeoutMinutes) * time.Minute
}

func (c *Config) RateLimitPerMinute() int {
	if c.Booking.RateLimitPerMinute <= 0 {
		return 10
	}
	return c.Booking.RateLimitPerMinute
}

// HourRange returns the calendar grid rows, 8-20 unless configured.
func (c *Config) HourRange() (start, end int) {
	if c.Calendar.StartHour == 0 && c.Calendar.EndHour == 0 {
		return 8, 20
	}
	return c.Calendar.StartHour, c.Calendar.EndHour
}

func (c *Config) PendingStatusID() string {
	if c.Backend.PendingStatusID == "" {
		return "dfbd8eb3-4eb4-49b5-b230-a9c7d3a14bca"
	}
	return c.Backend.PendingStatusID
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) AuditRetention() time.Duration {
	if c.Audit.RetentionDays <= 0 {
		return 90 * 24 * time.Hour
	}
	return time.Duration(c.Audit.RetentionDays) * 24 * time.Hour
}

func (c *Config) BusinessesFile() string {
	if c.BusinessesPath == "" {
		return "configs/businesses.yaml"
	}
	return c.BusinessesPath
}

// AllowedOrigins returns trimmed CORS origins; empty means any.
func (c *Config) AllowedOrigins() []string {
	out := make([]string, 0, len(c.Server.CORSOrigins))
	for _, o := range c.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
