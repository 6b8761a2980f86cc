// Package config provides YAML-based configuration loading for Renderloop.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Renderloop configuration, loaded from renderloop.yaml.
type Config struct {
	Owner     string          `yaml:"owner"`
	DB        DBConfig        `yaml:"db"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
	QA        QAConfig        `yaml:"qa"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DashboardConfig holds settings for the review API server.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig points at the signed-URL service fronting the image buckets.
type StorageConfig struct {
	BaseURL string `yaml:"base_url"`
	Bucket  string `yaml:"bucket"`
}

// NotifyConfig holds chat notification settings. A platform is enabled when
// its token fields are set.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack API credentials and the target channel.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord bot credentials and the target channel.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// QAConfig tunes the retry state machine.
type QAConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	ManualQA    bool   `yaml:"manual_qa"`
	SweepSpec   string `yaml:"sweep_spec"` // cron spec for the retry sweeper
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" && c.Owner != "" {
		c.DB.Database = "renderloop_" + c.Owner
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.QA.MaxAttempts == 0 {
		c.QA.MaxAttempts = 5
	}
	if c.QA.SweepSpec == "" {
		c.QA.SweepSpec = "@every 30s"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "renders"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	if c.QA.MaxAttempts < 1 {
		errs = append(errs, "qa.max_attempts must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
