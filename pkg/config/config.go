package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
	envNotionToken       = "NOTION_TOKEN"
	envNotionDatabaseID  = "NOTION_DATABASE_ID"
)

const (
	// DefaultDownloadsDir receives attachment downloads when config is silent.
	DefaultDownloadsDir = "./downloads"

	// DefaultGeocodeTimeoutSeconds bounds one reverse-geocoding request.
	DefaultGeocodeTimeoutSeconds = 5
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Notion    NotionConfig    `json:"notion"`
	OpenAI    OpenAIConfig    `json:"openai,omitempty"`
	OCR       OCRConfig       `json:"ocr,omitempty"`
	Geocode   GeocodeConfig   `json:"geocode,omitempty"`
	Downloads DownloadsConfig `json:"downloads,omitempty"`
	Status    StatusConfig    `json:"status,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from,omitempty"`
}

// NotionConfig configures the Notion record store.
type NotionConfig struct {
	Token      string `json:"token"`
	DatabaseID string `json:"database_id"`
}

// OpenAIConfig configures the transcription client.
//
// The API key itself is never stored in the file; APIKeyEnv names the
// environment variable to read, defaulting to OPENAI_API_KEY.
type OpenAIConfig struct {
	APIKeyEnv             string `json:"api_key_env,omitempty"`
	BaseURL               string `json:"base_url,omitempty"`
	Model                 string `json:"model,omitempty"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds,omitempty"`
}

// OCRConfig configures the Tesseract text-recognition engine.
type OCRConfig struct {
	Languages []string `json:"languages,omitempty"`
}

// GeocodeConfig configures the reverse-geocoding client.
type GeocodeConfig struct {
	Endpoint       string `json:"endpoint,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// DownloadsConfig controls where attachment payloads are written.
type DownloadsConfig struct {
	Dir string `json:"dir,omitempty"`
}

// StatusConfig configures the health/metrics HTTP listener.
type StatusConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
//
// A missing config file is not an error; env-only deployments start from the
// zero config and rely on Validate to report what is still absent.
func LoadConfig() (*Config, error) {
	var cfg Config

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Validate reports the startup-fatal configuration gaps.
//
// Everything listed here must be present before the bot may begin serving
// events; per-event concerns are validated where they are used.
func (c *Config) Validate() error {
	missing := make([]string, 0, 3)

	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "telegram.token ("+envTelegramBotToken+")")
	}
	if strings.TrimSpace(c.Notion.Token) == "" {
		missing = append(missing, "notion.token ("+envNotionToken+")")
	}
	if strings.TrimSpace(c.Notion.DatabaseID) == "" {
		missing = append(missing, "notion.database_id ("+envNotionDatabaseID+")")
	}

	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}

	return nil
}

// DownloadsDir returns the configured downloads directory or the default.
func (c *Config) DownloadsDir() string {
	if dir := strings.TrimSpace(c.Downloads.Dir); dir != "" {
		return dir
	}

	return DefaultDownloadsDir
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if token := strings.TrimSpace(os.Getenv(envNotionToken)); token != "" {
		cfg.Notion.Token = token
	}

	if databaseID := strings.TrimSpace(os.Getenv(envNotionDatabaseID)); databaseID != "" {
		cfg.Notion.DatabaseID = databaseID
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is LIFELOGGER_CONFIG first, then cwd-local fallback paths.
// An empty return with nil error means no config file exists.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("LIFELOGGER_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("LIFELOGGER_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
