package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigFromEnvPath(t *testing.T) {
	unsetConfigEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	  "telegram": {"token": "123:abc", "allow_from": ["42"]},
	  "notion": {"token": "secret_x", "database_id": "db-1"},
	  "openai": {"model": "whisper-1", "request_timeout_seconds": 60},
	  "geocode": {"timeout_seconds": 5},
	  "downloads": {"dir": "./downloads"},
	  "status": {"host": "0.0.0.0", "port": 8799},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("LIFELOGGER_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("telegram.token = %q, want %q", cfg.Telegram.Token, "123:abc")
	}
	if cfg.Notion.DatabaseID != "db-1" {
		t.Fatalf("notion.database_id = %q, want %q", cfg.Notion.DatabaseID, "db-1")
	}
	if cfg.OpenAI.Model != "whisper-1" {
		t.Fatalf("openai.model = %q, want %q", cfg.OpenAI.Model, "whisper-1")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	t.Setenv("LIFELOGGER_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	  "telegram": {"token": "file-token"},
	  "notion": {"token": "file-notion", "database_id": "file-db"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("LIFELOGGER_CONFIG", path)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_ALLOW_FROM", " 1 ,, 2 ")
	t.Setenv("NOTION_TOKEN", "env-notion")
	t.Setenv("NOTION_DATABASE_ID", "env-db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("telegram.token = %q, want env override", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AllowFrom) != 2 || cfg.Telegram.AllowFrom[0] != "1" || cfg.Telegram.AllowFrom[1] != "2" {
		t.Fatalf("telegram.allow_from = %v, want [1 2]", cfg.Telegram.AllowFrom)
	}
	if cfg.Notion.Token != "env-notion" {
		t.Fatalf("notion.token = %q, want env override", cfg.Notion.Token)
	}
	if cfg.Notion.DatabaseID != "env-db" {
		t.Fatalf("notion.database_id = %q, want env override", cfg.Notion.DatabaseID)
	}
}

func TestValidateReportsEveryMissingField(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for empty config")
	}

	for _, want := range []string{"telegram.token", "notion.token", "notion.database_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("validation error %q missing %q", err.Error(), want)
		}
	}
}

func TestValidatePartialConfig(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Notion:   NotionConfig{Token: "secret_x"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error without database id")
	}
	if strings.Contains(err.Error(), "telegram.token") {
		t.Fatalf("validation error %q should not mention telegram.token", err.Error())
	}
}

func TestDownloadsDirDefault(t *testing.T) {
	cfg := &Config{}
	if got := cfg.DownloadsDir(); got != DefaultDownloadsDir {
		t.Fatalf("DownloadsDir = %q, want %q", got, DefaultDownloadsDir)
	}

	cfg.Downloads.Dir = " /tmp/media "
	if got := cfg.DownloadsDir(); got != "/tmp/media" {
		t.Fatalf("DownloadsDir = %q, want %q", got, "/tmp/media")
	}
}

func unsetConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LIFELOGGER_CONFIG", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ALLOW_FROM", "NOTION_TOKEN", "NOTION_DATABASE_ID"} {
		_ = os.Unsetenv(key)
	}
}
