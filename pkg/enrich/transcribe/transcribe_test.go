package transcribe

import (
	"os"
	"testing"

	"github.com/asimzulfiqar/LifeLogger/pkg/config"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_ = os.Unsetenv("OPENAI_API_KEY")

	if _, err := New(config.OpenAIConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewResolvesCustomKeyEnv(t *testing.T) {
	_ = os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("LIFELOGGER_OPENAI_KEY", "sk-test")

	engine, err := New(config.OpenAIConfig{APIKeyEnv: "LIFELOGGER_OPENAI_KEY"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if engine.model != defaultModel {
		t.Fatalf("model = %q, want default %q", engine.model, defaultModel)
	}
}

func TestNewKeepsConfiguredModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	engine, err := New(config.OpenAIConfig{Model: " whisper-1 "})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if engine.model != "whisper-1" {
		t.Fatalf("model = %q, want %q", engine.model, "whisper-1")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	engine, err := New(config.OpenAIConfig{})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, err := engine.Transcribe(t.Context(), "/nonexistent/voice.ogg"); err == nil {
		t.Fatal("expected error for missing audio file")
	}
}
