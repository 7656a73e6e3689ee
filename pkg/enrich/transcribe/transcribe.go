// Package transcribe converts voice recordings to text through the OpenAI audio API.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/asimzulfiqar/LifeLogger/pkg/config"
)

const defaultModel = string(osdk.AudioModelWhisper1)

// Engine transcribes local audio files. Safe for concurrent use.
type Engine struct {
	client         osdk.Client
	model          string
	requestTimeout time.Duration
}

// New constructs a transcription engine from config.
//
// A missing API key is returned as an error; the caller decides whether to
// run degraded with a nil engine.
func New(cfg config.OpenAIConfig) (*Engine, error) {
	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
		return nil, errors.New("openai.api_key_env is required or OPENAI_API_KEY must be set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(requestTimeout))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	return &Engine{
		client:         osdk.NewClient(opts...),
		model:          model,
		requestTimeout: requestTimeout,
	}, nil
}

// Transcribe sends one downloaded audio file to the speech model and returns
// the trimmed transcription, which may be empty.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	log := engineLogger().With("operation", "transcribe")
	startedAt := time.Now()

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	log.Debug("transcription request started", "file", filepath.Base(audioPath), "model", e.model)

	result, err := e.client.Audio.Transcriptions.New(ctx, osdk.AudioTranscriptionNewParams{
		Model: osdk.AudioModel(e.model),
		File:  file,
	})
	if err != nil {
		log.Debug("transcription request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	log.Debug("transcription request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "text_length", len(text))

	return text, nil
}

func engineLogger() *slog.Logger {
	return slog.Default().With("component", "enrich.transcribe")
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, e.requestTimeout)
}

func resolveAPIKey(cfg config.OpenAIConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}
