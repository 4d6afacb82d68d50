package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"depotplan/internal/domain"
	"depotplan/internal/priority"
	"depotplan/internal/readiness"
	"depotplan/internal/stabling"
)

const FileName = "depotplan.yml"

// Config models depotplan.yml.
type Config struct {
	Depot struct {
		Name string `yaml:"name"`
	} `yaml:"depot"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Readiness struct {
		AllowUncertified           bool     `yaml:"allow_uncertified"`
		RequiredDomains            []string `yaml:"required_domains"`
		DefaultCleaningPeriodHours int      `yaml:"default_cleaning_period_hours"`
	} `yaml:"readiness"`
	Priority struct {
		AtRiskThreshold float64 `yaml:"at_risk_threshold"`
	} `yaml:"priority"`
	Stabling struct {
		ShuntingTotal string `yaml:"shunting_total"`
		PairTrains    bool   `yaml:"pair_trains"`
	} `yaml:"stabling"`
	Accrual struct {
		SkipAccruedTrips bool   `yaml:"skip_accrued_trips"`
		LoggedBy         string `yaml:"logged_by"`
	} `yaml:"accrual"`
	Certification struct {
		ExpiringWindowDays int `yaml:"expiring_window_days"`
	} `yaml:"certification"`
	Cleaning struct {
		Teams         []string `yaml:"teams"`
		StartHour     int      `yaml:"start_hour"`
		DurationHours int      `yaml:"duration_hours"`
	} `yaml:"cleaning"`
	Planning struct {
		Workers int `yaml:"workers"`
	} `yaml:"planning"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Depot.Name == "" {
		return fmt.Errorf("config.depot.name is required")
	}
	for _, d := range c.Readiness.RequiredDomains {
		if !knownDomain(d) {
			return fmt.Errorf("config.readiness.required_domains: unknown domain %s", d)
		}
	}
	if c.Readiness.DefaultCleaningPeriodHours <= 0 {
		return fmt.Errorf("config.readiness.default_cleaning_period_hours must be positive")
	}
	if t := c.Priority.AtRiskThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("config.priority.at_risk_threshold must be in (0,1]")
	}
	if _, err := stabling.ParseTotalVariant(c.Stabling.ShuntingTotal); err != nil {
		return fmt.Errorf("config.stabling.shunting_total: %w", err)
	}
	if c.Certification.ExpiringWindowDays < 0 {
		return fmt.Errorf("config.certification.expiring_window_days must not be negative")
	}
	if len(c.Cleaning.Teams) == 0 {
		return fmt.Errorf("config.cleaning.teams is required")
	}
	for _, team := range c.Cleaning.Teams {
		if team == "" {
			return fmt.Errorf("config.cleaning.teams contains an empty team")
		}
	}
	if c.Cleaning.StartHour < 0 || c.Cleaning.StartHour > 23 {
		return fmt.Errorf("config.cleaning.start_hour must be 0-23")
	}
	if c.Cleaning.DurationHours <= 0 {
		return fmt.Errorf("config.cleaning.duration_hours must be positive")
	}
	if c.Planning.Workers < 0 {
		return fmt.Errorf("config.planning.workers must not be negative")
	}
	return nil
}

func knownDomain(d string) bool {
	for _, known := range domain.CertDomains {
		if string(known) == d {
			return true
		}
	}
	return false
}

// ReadinessPolicy converts the readiness section.
func (c *Config) ReadinessPolicy() readiness.Policy {
	p := readiness.Policy{
		AllowUncertified:      c.Readiness.AllowUncertified,
		DefaultCleaningPeriod: time.Duration(c.Readiness.DefaultCleaningPeriodHours) * time.Hour,
	}
	for _, d := range c.Readiness.RequiredDomains {
		p.RequiredDomains = append(p.RequiredDomains, domain.CertDomain(d))
	}
	return p
}

func (c *Config) PriorityPolicy() priority.Policy {
	return priority.Policy{AtRiskThreshold: c.Priority.AtRiskThreshold}
}

func (c *Config) StablingOptions() stabling.Options {
	v, err := stabling.ParseTotalVariant(c.Stabling.ShuntingTotal)
	if err != nil {
		v = stabling.TotalRanked
	}
	return stabling.Options{Total: v, Pair: c.Stabling.PairTrains}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(depotName string) string {
	return fmt.Sprintf(defaultTemplate, depotName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with depot config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config for a depot.
func Default(depotName string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(depotName))).Decode(&cfg)
	return &cfg
}

// FromYAML parses config over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("depot")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ToYAML renders the config.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

const defaultTemplate = `depot:
  name: %s

log:
  level: info

readiness:
  # Trains with no certificate records at all are treated as certified.
  allow_uncertified: true
  required_domains: [ROLLING_STOCK, SIGNALLING, TELECOM]
  default_cleaning_period_hours: 24

priority:
  at_risk_threshold: 0.8

stabling:
  # ranked: sum depth over every available bay; assigned: only bays matched to eligible trains.
  shunting_total: ranked
  pair_trains: true

accrual:
  skip_accrued_trips: true
  logged_by: system

certification:
  expiring_window_days: 7

cleaning:
  teams: [TEAM-1, TEAM-2, TEAM-3, TEAM-4]
  start_hour: 22
  duration_hours: 4

planning:
  workers: 8
`
