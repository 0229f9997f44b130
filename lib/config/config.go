// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/warden/lib/ticket"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for running against a test guild.
	Development Environment = "development"
	// Staging is for a pre-production guild.
	Staging Environment = "staging"
	// Production is for the live guild.
	Production Environment = "production"
)

// Config is the configuration of the warden agent.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	Log       LogConfig       `yaml:"log"`
	Guild     GuildConfig     `yaml:"guild"`
	Commands  CommandsConfig  `yaml:"commands"`
	Tickets   TicketsConfig   `yaml:"tickets"`
	Abuse     AbuseConfig     `yaml:"abuse"`
	Notify    NotifyConfig    `yaml:"notify"`
	KeepAlive KeepAliveConfig `yaml:"keepalive"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the sections that can be overridden per
// environment. Only non-zero fields replace base values.
type Overrides struct {
	Log       *LogConfig       `yaml:"log,omitempty"`
	Guild     *GuildConfig     `yaml:"guild,omitempty"`
	Tickets   *TicketsConfig   `yaml:"tickets,omitempty"`
	Abuse     *AbuseConfig     `yaml:"abuse,omitempty"`
	Notify    *NotifyConfig    `yaml:"notify,omitempty"`
	KeepAlive *KeepAliveConfig `yaml:"keepalive,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. The --log-level flag takes
	// precedence.
	Level string `yaml:"level"`
}

// GuildConfig configures guild-wide moderation.
type GuildConfig struct {
	// LogChannelID receives moderation records. Empty disables them.
	LogChannelID string `yaml:"log_channel_id"`

	// AutoRoleID is given to every member that joins.
	AutoRoleID string `yaml:"auto_role_id"`

	// AuthorizedBotIDs may join without being kicked.
	AuthorizedBotIDs []string `yaml:"authorized_bot_ids"`
}

// CommandsConfig configures the text commands.
type CommandsConfig struct {
	// Prefix starts every command. Default: "!"
	Prefix string `yaml:"prefix"`

	// AuthorizedRoleIDs may use commands at all.
	AuthorizedRoleIDs []string `yaml:"authorized_role_ids"`

	// AdminRoleID is the role addadmin grants.
	AdminRoleID string `yaml:"admin_role_id"`

	// AdminGrantRoleID is required to run addadmin.
	AdminGrantRoleID string `yaml:"admin_grant_role_id"`

	// ReplyLifetime is how long replies stay. Default: 15s
	ReplyLifetime time.Duration `yaml:"reply_lifetime"`
}

// TicketsConfig configures the support ticket workflow.
type TicketsConfig struct {
	// MenuChannelID shows the ticket menu. Empty disables the menu.
	MenuChannelID string `yaml:"menu_channel_id"`

	// SupportRoleID sees every ticket and may close them.
	SupportRoleID string `yaml:"support_role_id"`

	// Containers maps a category (sales, support, report) to the
	// channel category its tickets are created under.
	Containers map[string]string `yaml:"containers"`

	// CloseDelay is the grace period before a closed ticket is deleted.
	// Default: 5s
	CloseDelay time.Duration `yaml:"close_delay"`

	// MenuFooter is the footer text of the ticket menu.
	MenuFooter string `yaml:"menu_footer"`
}

// AbuseConfig configures deletion burst detection.
type AbuseConfig struct {
	// Window is how long a burst is tracked. Default: 60s
	Window time.Duration `yaml:"window"`

	// Threshold is the highest deletion count that is tolerated.
	// Default: 4
	Threshold int `yaml:"threshold"`

	// AuditFreshness is the maximum age of an audit entry used to
	// attribute a deletion. Default: 15s
	AuditFreshness time.Duration `yaml:"audit_freshness"`
}

// NotifyConfig configures delivery of moderation records.
type NotifyConfig struct {
	// QueueSize bounds records waiting for delivery. Default: 256
	QueueSize int `yaml:"queue_size"`

	// Rate is the sustained sends per second. Default: 2
	Rate float64 `yaml:"rate"`

	// Burst is the token bucket size. Default: 5
	Burst int `yaml:"burst"`

	// DrainTimeout bounds delivery of queued records at shutdown.
	// Default: 5s
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// KeepAliveConfig configures the keep-alive HTTP server.
type KeepAliveConfig struct {
	// Enabled turns the server on. Default: true
	Enabled bool `yaml:"enabled"`

	// Address is the listen address. Empty listens on the PORT secret.
	Address string `yaml:"address"`
}

// Default returns the default configuration, the base the config file
// is merged into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Log: LogConfig{
			Level: "debug",
		},
		Commands: CommandsConfig{
			Prefix:        "!",
			ReplyLifetime: 15 * time.Second,
		},
		Tickets: TicketsConfig{
			Containers: map[string]string{},
			CloseDelay: 5 * time.Second,
			MenuFooter: "warden support",
		},
		Abuse: AbuseConfig{
			Window:         60 * time.Second,
			Threshold:      4,
			AuditFreshness: 15 * time.Second,
		},
		Notify: NotifyConfig{
			QueueSize:    256,
			Rate:         2,
			Burst:        5,
			DrainTimeout: 5 * time.Second,
		},
		KeepAlive: KeepAliveConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from the file named by WARDEN_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("WARDEN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("WARDEN_CONFIG environment variable not set; " +
			"set it to the path of your warden.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the section for the
// configured environment, and expands ${VAR} references in IDs.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: quieter logs.
		if overrides == nil {
			overrides = &Overrides{Log: &LogConfig{Level: "info"}}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Log != nil && overrides.Log.Level != "" {
		c.Log.Level = overrides.Log.Level
	}

	if overrides.Guild != nil {
		if overrides.Guild.LogChannelID != "" {
			c.Guild.LogChannelID = overrides.Guild.LogChannelID
		}
		if overrides.Guild.AutoRoleID != "" {
			c.Guild.AutoRoleID = overrides.Guild.AutoRoleID
		}
		if overrides.Guild.AuthorizedBotIDs != nil {
			c.Guild.AuthorizedBotIDs = overrides.Guild.AuthorizedBotIDs
		}
	}

	if overrides.Tickets != nil {
		if overrides.Tickets.MenuChannelID != "" {
			c.Tickets.MenuChannelID = overrides.Tickets.MenuChannelID
		}
		if overrides.Tickets.SupportRoleID != "" {
			c.Tickets.SupportRoleID = overrides.Tickets.SupportRoleID
		}
		for category, containerID := range overrides.Tickets.Containers {
			if c.Tickets.Containers == nil {
				c.Tickets.Containers = make(map[string]string)
			}
			c.Tickets.Containers[category] = containerID
		}
		if overrides.Tickets.CloseDelay != 0 {
			c.Tickets.CloseDelay = overrides.Tickets.CloseDelay
		}
		if overrides.Tickets.MenuFooter != "" {
			c.Tickets.MenuFooter = overrides.Tickets.MenuFooter
		}
	}

	if overrides.Abuse != nil {
		if overrides.Abuse.Window != 0 {
			c.Abuse.Window = overrides.Abuse.Window
		}
		if overrides.Abuse.Threshold != 0 {
			c.Abuse.Threshold = overrides.Abuse.Threshold
		}
		if overrides.Abuse.AuditFreshness != 0 {
			c.Abuse.AuditFreshness = overrides.Abuse.AuditFreshness
		}
	}

	if overrides.Notify != nil {
		if overrides.Notify.QueueSize != 0 {
			c.Notify.QueueSize = overrides.Notify.QueueSize
		}
		if overrides.Notify.Rate != 0 {
			c.Notify.Rate = overrides.Notify.Rate
		}
		if overrides.Notify.Burst != 0 {
			c.Notify.Burst = overrides.Notify.Burst
		}
		if overrides.Notify.DrainTimeout != 0 {
			c.Notify.DrainTimeout = overrides.Notify.DrainTimeout
		}
	}

	if overrides.KeepAlive != nil {
		// Enabled is a bool, so it is always applied from overrides.
		c.KeepAlive.Enabled = overrides.KeepAlive.Enabled
		if overrides.KeepAlive.Address != "" {
			c.KeepAlive.Address = overrides.KeepAlive.Address
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in every ID.
func (c *Config) expandVariables() {
	expand := func(s string) string { return expandVars(s, nil) }
	expandAll := func(values []string) {
		for i := range values {
			values[i] = expand(values[i])
		}
	}

	c.Guild.LogChannelID = expand(c.Guild.LogChannelID)
	c.Guild.AutoRoleID = expand(c.Guild.AutoRoleID)
	expandAll(c.Guild.AuthorizedBotIDs)
	expandAll(c.Commands.AuthorizedRoleIDs)
	c.Commands.AdminRoleID = expand(c.Commands.AdminRoleID)
	c.Commands.AdminGrantRoleID = expand(c.Commands.AdminGrantRoleID)
	c.Tickets.MenuChannelID = expand(c.Tickets.MenuChannelID)
	c.Tickets.SupportRoleID = expand(c.Tickets.SupportRoleID)
	for category, containerID := range c.Tickets.Containers {
		c.Tickets.Containers[category] = expand(containerID)
	}
	c.KeepAlive.Address = expand(c.KeepAlive.Address)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, consulting
// vars before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if c.Commands.Prefix == "" {
		errs = append(errs, errors.New("commands.prefix is required"))
	}
	if c.Commands.ReplyLifetime <= 0 {
		errs = append(errs, errors.New("commands.reply_lifetime must be positive"))
	}

	if c.Tickets.MenuChannelID != "" && c.Tickets.SupportRoleID == "" {
		errs = append(errs, errors.New("tickets.support_role_id is required when tickets.menu_channel_id is set"))
	}
	for category := range c.Tickets.Containers {
		if _, err := ticket.ParseCategory(category); err != nil {
			errs = append(errs, fmt.Errorf("tickets.containers: %w", err))
		}
	}
	if c.Tickets.CloseDelay < 0 {
		errs = append(errs, errors.New("tickets.close_delay must not be negative"))
	}

	if c.Abuse.Window <= 0 {
		errs = append(errs, errors.New("abuse.window must be positive"))
	}
	if c.Abuse.Threshold < 1 {
		errs = append(errs, errors.New("abuse.threshold must be at least 1"))
	}
	if c.Abuse.AuditFreshness <= 0 {
		errs = append(errs, errors.New("abuse.audit_freshness must be positive"))
	}

	if c.Notify.QueueSize < 1 {
		errs = append(errs, errors.New("notify.queue_size must be at least 1"))
	}
	if c.Notify.Rate <= 0 {
		errs = append(errs, errors.New("notify.rate must be positive"))
	}
	if c.Notify.Burst < 1 {
		errs = append(errs, errors.New("notify.burst must be at least 1"))
	}

	if c.KeepAlive.Address != "" {
		if _, _, err := net.SplitHostPort(c.KeepAlive.Address); err != nil {
			errs = append(errs, fmt.Errorf("keepalive.address: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// KeepAliveAddress returns the listen address, falling back to all
// interfaces on port.
func (c *Config) KeepAliveAddress(port int) string {
	if c.KeepAlive.Address != "" {
		return c.KeepAlive.Address
	}
	return ":" + strconv.Itoa(port)
}

// TicketContainers returns the container table keyed by category. Call
// after Validate; unknown categories are skipped.
func (c *Config) TicketContainers() map[ticket.Category]string {
	containers := make(map[ticket.Category]string, len(c.Tickets.Containers))
	for name, containerID := range c.Tickets.Containers {
		category, err := ticket.ParseCategory(name)
		if err != nil {
			continue
		}
		containers[category] = containerID
	}
	return containers
}
