// Package config provides YAML-based configuration loading for Drover.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Drover configuration, loaded from drover.yaml.
type Config struct {
	Listen    string          `yaml:"listen"`
	Database  DatabaseConfig  `yaml:"database"`
	Bus       BusConfig       `yaml:"bus"`
	Mail      MailConfig      `yaml:"mail"`
	Notify    NotifyConfig    `yaml:"notify"`
	Agent     AgentConfig     `yaml:"agent"`
	Retention RetentionConfig `yaml:"retention"`
}

// DatabaseConfig selects and parameterizes the backing database.
// Driver is "sqlite" or "mysql".
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// BusConfig holds message-bus connection and reload settings.
type BusConfig struct {
	URL        string `yaml:"url"`
	ConfPath   string `yaml:"conf_path"`   // server config file rewritten on principal reconcile
	ServerBin  string `yaml:"server_bin"`  // bus server binary, signalled to reload
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	ServerUser string `yaml:"server_user"` // credential the API server itself connects with
	ServerPass string `yaml:"server_pass"`
}

// MailConfig configures the SMTP adapter used for script output routed
// to email.
type MailConfig struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	From       string   `yaml:"from"`
	User       string   `yaml:"user"`
	Password   string   `yaml:"password"`
	Recipients []string `yaml:"recipients"` // default recipient list
}

// NotifyConfig configures optional chat adapters for operational notices.
type NotifyConfig struct {
	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// AgentConfig controls agent update behavior.
type AgentConfig struct {
	LatestVersion string `yaml:"latest_version"` // pinned version; empty means discover from releases
	ReleaseRepo   string `yaml:"release_repo"`   // owner/repo carrying agent release binaries
	GitHubToken   string `yaml:"github_token"`
	AutoUpdate    bool   `yaml:"auto_update"`
	UpdateCron    string `yaml:"update_cron"`
}

// RetentionConfig controls the history pruning sweep.
type RetentionConfig struct {
	HistoryDays int    `yaml:"history_days"`
	PruneCron   string `yaml:"prune_cron"`
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
	if c.Listen == "" {
		c.Listen = ":8000"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "drover.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "drover"
	}
	if c.Bus.URL == "" {
		c.Bus.URL = "nats://127.0.0.1:4222"
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 25
	}
	if c.Agent.ReleaseRepo == "" {
		c.Agent.ReleaseRepo = "droverdev/drover-agent"
	}
	if c.Agent.UpdateCron == "" {
		c.Agent.UpdateCron = "30 3 * * *"
	}
	if c.Retention.HistoryDays == 0 {
		c.Retention.HistoryDays = 60
	}
	if c.Retention.PruneCron == "" {
		c.Retention.PruneCron = "0 4 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.User == "" {
		errs = append(errs, "database.user is required for mysql")
	}
	if c.Agent.LatestVersion == "" && c.Agent.ReleaseRepo == "" {
		errs = append(errs, "agent.latest_version or agent.release_repo is required")
	}
	if c.Retention.HistoryDays < 0 {
		errs = append(errs, "retention.history_days must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
