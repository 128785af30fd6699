package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const legacyFileName = "jupyterlab_notify_config.json"

// searchPaths returns the ordered list of config file locations to try.
func searchPaths() []string {
	paths := []string{
		"/etc/nbnotify/nbnotify.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "nbnotify", "nbnotify.yaml"))
	}

	paths = append(paths, "nbnotify.yaml")

	if envPath := os.Getenv("NBNOTIFY_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	return paths
}

// legacyPath returns the location of the notebook extension's JSON config:
// $JUPYTER_CONFIG_DIR, else ~/.jupyter.
func legacyPath() string {
	if dir := os.Getenv("JUPYTER_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, legacyFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jupyter", legacyFileName)
}

// Load reads configuration from the legacy JSON file, YAML files and
// environment variables. Sources are applied in order (each overrides the previous):
// legacy JSON < /etc/nbnotify/nbnotify.yaml < ~/.config/nbnotify/nbnotify.yaml
// < ./nbnotify.yaml < $NBNOTIFY_CONFIG < environment.
func Load() (*Config, error) {
	return load(searchPaths()...)
}

// LoadFromFile reads configuration from a specific file path, still
// honouring the legacy JSON file and environment overrides.
func LoadFromFile(path string) (*Config, error) {
	return load(path)
}

func load(paths ...string) (*Config, error) {
	cfg := Defaults()

	if p := legacyPath(); p != "" {
		if err := loadLegacyFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading legacy config %s: %w", p, err)
		}
	}

	for _, path := range paths {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// envOverrides lists the environment variables understood on top of the
// YAML configuration. The JUPYTER_* names are the ones the notebook
// extension has always read.
type envOverrides struct {
	Email            string `envconfig:"JUPYTER_NOTIFY_EMAIL"`
	SlackToken       string `envconfig:"JUPYTER_SLACK_TOKEN"`
	SlackUserID      string `envconfig:"JUPYTER_SLACK_USER_ID"`
	SlackChannelName string `envconfig:"JUPYTER_SLACK_CHANNEL_NAME"`
	TelegramToken    string `envconfig:"NBNOTIFY_TELEGRAM_TOKEN"`
	SMTPPassword     string `envconfig:"NBNOTIFY_SMTP_PASSWORD"`
	LogLevel         string `envconfig:"NBNOTIFY_LOG_LEVEL"`
	Port             int    `envconfig:"NBNOTIFY_PORT"`
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables have higher priority than YAML config values.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	if env.Email != "" {
		cfg.Notify.Email = env.Email
	}
	if env.TelegramToken != "" {
		cfg.Chat.Provider = "telegram"
		cfg.Chat.Token = env.TelegramToken
	}
	if cfg.Chat.Provider == "slack" {
		if env.SlackToken != "" {
			cfg.Chat.Token = env.SlackToken
		}
		if env.SlackUserID != "" {
			cfg.Chat.UserID = env.SlackUserID
		}
		if env.SlackChannelName != "" {
			cfg.Chat.ChannelName = env.SlackChannelName
		}
	}
	if env.SMTPPassword != "" {
		cfg.SMTP.Password = env.SMTPPassword
	}
	if env.LogLevel != "" {
		cfg.Server.LogLevel = env.LogLevel
	}
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	return nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config search paths
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	slog.Debug("loading config file", "path", path)

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	return nil
}

// legacyFile mirrors the keys of the notebook extension's JSON config.
type legacyFile struct {
	Email            string `json:"email"`
	SlackToken       string `json:"slack_token"`
	SlackUserID      string `json:"slack_user_id"`
	SlackChannelName string `json:"slack_channel_name"`
}

// loadLegacyFile fills email and Slack settings from the JSON file. A
// missing or unparsable file is ignored, as the extension always did.
func loadLegacyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // fixed location under the user's Jupyter config dir
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	var lf legacyFile
	if err := json.Unmarshal(data, &lf); err != nil {
		slog.Warn("ignoring unparsable legacy config", "path", path, "error", err)
		return nil
	}

	slog.Debug("loading legacy config file", "path", path)

	if lf.Email != "" {
		cfg.Notify.Email = lf.Email
	}
	if lf.SlackToken != "" {
		cfg.Chat.Provider = "slack"
		cfg.Chat.Token = lf.SlackToken
	}
	if lf.SlackUserID != "" {
		cfg.Chat.UserID = lf.SlackUserID
	}
	if lf.SlackChannelName != "" {
		cfg.Chat.ChannelName = lf.SlackChannelName
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if !strings.HasPrefix(cfg.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /, got %q", cfg.Server.BasePath)
	}
	cfg.Server.BasePath = strings.TrimRight(cfg.Server.BasePath, "/")

	switch cfg.Chat.Provider {
	case "slack", "telegram":
	default:
		return fmt.Errorf("chat.provider must be slack or telegram, got %q", cfg.Chat.Provider)
	}

	switch cfg.SMTP.Encryption {
	case "", "none", "starttls", "ssl_tls":
	default:
		return fmt.Errorf("smtp.encryption must be none, starttls or ssl_tls, got %q", cfg.SMTP.Encryption)
	}

	if cfg.Notify.GlobalTimeout < 0 || cfg.Notify.DeliveryTimeout < 0 || cfg.Notify.MaxThreshold < 0 {
		return fmt.Errorf("notify timeouts must not be negative")
	}

	if cfg.Events.Workers < 1 {
		return fmt.Errorf("events.workers must be at least 1")
	}

	if cfg.Database.RetentionDays < 1 {
		return fmt.Errorf("database.retention_days must be at least 1")
	}

	cfg.Database.Path = ExpandHome(cfg.Database.Path)
	cfg.Server.LogFile = ExpandHome(cfg.Server.LogFile)

	return nil
}
