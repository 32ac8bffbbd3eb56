package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"slotbook/internal/clock"
)

// BusinessConfig holds per-business overrides keyed by identifier.
type BusinessConfig struct {
	Identifier    string `yaml:"identifier"`
	Timezone      string `yaml:"timezone,omitempty"`
	ReliefMinutes int    `yaml:"relief_minutes,omitempty"`
	StartHour     *int   `yaml:"start_hour,omitempty"`
	EndHour       *int   `yaml:"end_hour,omitempty"`
}

// BusinessesConfig is the root of businesses.yaml.
type BusinessesConfig struct {
	Businesses []BusinessConfig `yaml:"businesses"`
	Defaults   struct {
		Timezone      string `yaml:"timezone"`
		ReliefMinutes int    `yaml:"relief_minutes"`
	} `yaml:"defaults"`
}

// LoadBusinessesConfig loads and validates businesses.yaml.
func LoadBusinessesConfig(path string) (*BusinessesConfig, error) {
	if path == "" {
		path = "configs/businesses.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read businesses config: %w", err)
	}

	var cfg BusinessesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse businesses config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate businesses config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *BusinessesConfig) Validate() error {
	ids := make(map[string]bool)
	for i, b := range c.Businesses {
		if b.Identifier == "" {
			return fmt.Errorf("business[%d]: identifier is required", i)
		}
		if ids[b.Identifier] {
			return fmt.Errorf("business[%d]: duplicate identifier '%s'", i, b.Identifier)
		}
		ids[b.Identifier] = true

		if b.Timezone != "" {
			if _, err := time.LoadLocation(b.Timezone); err != nil {
				return fmt.Errorf("business[%d]: invalid timezone '%s'", i, b.Timezone)
			}
		}
		if b.ReliefMinutes < 0 {
			return fmt.Errorf("business[%d]: relief_minutes cannot be negative", i)
		}
		if (b.StartHour == nil) != (b.EndHour == nil) {
			return fmt.Errorf("business[%d]: start_hour and end_hour must be set together", i)
		}
		if b.StartHour != nil && (*b.StartHour < 0 || *b.EndHour > 23 || *b.StartHour > *b.EndHour) {
			return fmt.Errorf("business[%d]: invalid hour range %d-%d", i, *b.StartHour, *b.EndHour)
		}
	}

	if c.Defaults.Timezone != "" {
		if _, err := time.LoadLocation(c.Defaults.Timezone); err != nil {
			return fmt.Errorf("defaults: invalid timezone '%s'", c.Defaults.Timezone)
		}
	}
	return nil
}

// applyDefaults fills businesses without explicit settings.
func (c *BusinessesConfig) applyDefaults() {
	for i := range c.Businesses {
		if c.Businesses[i].Timezone == "" {
			c.Businesses[i].Timezone = c.Defaults.Timezone
		}
		if c.Businesses[i].ReliefMinutes == 0 {
			c.Businesses[i].ReliefMinutes = c.Defaults.ReliefMinutes
		}
	}
}

// Get returns the business by identifier.
func (c *BusinessesConfig) Get(identifier string) *BusinessConfig {
	if c == nil {
		return nil
	}
	for i := range c.Businesses {
		if c.Businesses[i].Identifier == identifier {
			return &c.Businesses[i]
		}
	}
	return nil
}

// Settings is what the API needs to serve one business.
type Settings struct {
	Location  *time.Location
	Relief    time.Duration
	StartHour int
	EndHour   int
}

// Registry merges global config with hot-reloaded per-business overrides.
type Registry struct {
	global *Config
	mu     sync.RWMutex
	biz    *BusinessesConfig
}

func NewRegistry(global *Config) *Registry {
	return &Registry{global: global}
}

// Update swaps in a freshly loaded businesses.yaml.
func (r *Registry) Update(cfg *BusinessesConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.biz = cfg
}

// Resolve returns settings for a business. companyTimezone from the backend wins
// over the per-business file, which wins over booking.default_timezone.
func (r *Registry) Resolve(identifier, companyTimezone string) (Settings, error) {
	r.mu.RLock()
	biz := r.biz.Get(identifier)
	r.mu.RUnlock()

	s := Settings{Relief: r.global.Relief()}
	s.StartHour, s.EndHour = r.global.HourRange()

	fallback := r.global.DefaultTimezone()
	if biz != nil {
		if biz.Timezone != "" {
			fallback = biz.Timezone
		}
		if biz.ReliefMinutes > 0 {
			s.Relief = time.Duration(biz.ReliefMinutes) * time.Minute
		}
		if biz.StartHour != nil {
			s.StartHour, s.EndHour = *biz.StartHour, *biz.EndHour
		}
	}

	loc, err := clock.LoadLocation(companyTimezone, fallback)
	if err != nil {
		// Unknown company zone: use the configured one.
		loc, err = clock.LoadLocation(fallback, "")
		if err != nil {
			return Settings{}, err
		}
	}
	s.Location = loc
	return s, nil
}

// Location returns the default business location.
func (r *Registry) Location() *time.Location {
	loc, err := time.LoadLocation(r.global.DefaultTimezone())
	if err != nil {
		return time.UTC
	}
	return loc
}
