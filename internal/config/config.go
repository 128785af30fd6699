package config

import "time"

// Config is the root configuration for nbnotify.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Notify    NotifyConfig    `yaml:"notify"`
	Chat      ChatConfig      `yaml:"chat"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Database  DatabaseConfig  `yaml:"database"`
	Events    EventsConfig    `yaml:"events"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	BasePath       string   `yaml:"base_path"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`
	LogFile        string   `yaml:"log_file"`
	LogMaxSizeMB   int      `yaml:"log_max_size_mb"`
	LogMaxBackups  int      `yaml:"log_max_backups"`
}

// NotifyConfig controls the dispatch engine.
type NotifyConfig struct {
	// Email is both sender and recipient of mail notifications.
	// Empty disables the mail channel.
	Email           string        `yaml:"email"`
	GlobalTimeout   time.Duration `yaml:"global_timeout"`
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	MaxThreshold    time.Duration `yaml:"max_threshold"`
}

// ChatConfig selects and configures the chat provider.
type ChatConfig struct {
	Provider    string `yaml:"provider"` // "slack" or "telegram"
	Token       string `yaml:"token"`
	UserID      string `yaml:"user_id"`
	ChannelName string `yaml:"channel_name"`
}

// Configured reports whether the chat channel has a token and a destination.
func (c ChatConfig) Configured() bool {
	return c.Token != "" && (c.UserID != "" || c.ChannelName != "")
}

type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Encryption string `yaml:"encryption"` // "none", "starttls", "ssl_tls"
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// EventsConfig controls the execution event source.
type EventsConfig struct {
	// Enabled reports to clients that completion events are delivered
	// server-side, so they need not trigger notifications themselves.
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"`
	Buffer  int  `yaml:"buffer"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          8421,
			BasePath:      "/api/jupyter-notify",
			LogLevel:      "info",
			LogMaxSizeMB:  20,
			LogMaxBackups: 3,
		},
		Notify: NotifyConfig{
			GlobalTimeout:   10 * time.Minute,
			DeliveryTimeout: 30 * time.Second,
			MaxThreshold:    24 * time.Hour,
		},
		Chat: ChatConfig{
			Provider: "slack",
		},
		SMTP: SMTPConfig{
			Host:       "localhost",
			Port:       25,
			Encryption: "none",
		},
		Database: DatabaseConfig{
			Path:          "~/.config/nbnotify/nbnotify.db",
			RetentionDays: 30,
		},
		Events: EventsConfig{
			Enabled: true,
			Workers: 2,
			Buffer:  256,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
			Burst:             100,
		},
		MCP: MCPConfig{
			Enabled: false,
		},
	}
}
