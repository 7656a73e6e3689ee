// Package recognize extracts text from images through Tesseract OCR.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/asimzulfiqar/LifeLogger/pkg/config"
)

// Engine runs OCR over local image files. Safe for concurrent use; the
// underlying gosseract client is not, so each call gets its own.
type Engine struct {
	languages []string
	log       *slog.Logger
}

// New probes the local Tesseract installation and constructs an engine.
//
// A failed probe is returned as an error; the caller decides whether to run
// degraded with a nil engine.
func New(cfg config.OCRConfig, log *slog.Logger) (*Engine, error) {
	available, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("probe tesseract installation: %w", err)
	}
	if len(available) == 0 {
		return nil, errors.New("tesseract has no language data installed")
	}

	languages := make([]string, 0, len(cfg.Languages))
	for _, language := range cfg.Languages {
		language = strings.TrimSpace(language)
		if language == "" {
			continue
		}
		if !slices.Contains(available, language) {
			return nil, fmt.Errorf("tesseract language %q is not installed", language)
		}
		languages = append(languages, language)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		languages: languages,
		log:       log.With("component", "enrich.recognize"),
	}, nil
}

// Recognize runs OCR on one downloaded image and returns the trimmed text,
// which may be empty. The call runs to completion once started; ctx is only
// consulted before work begins.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	startedAt := time.Now()
	e.log.Debug("ocr started", "file", filepath.Base(imagePath))

	client := gosseract.NewClient()
	defer client.Close()

	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set ocr languages: %w", err)
		}
	}

	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set ocr image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		e.log.Debug("ocr failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return "", fmt.Errorf("recognize text: %w", err)
	}

	text = strings.TrimSpace(text)
	e.log.Debug("ocr completed", "duration_ms", time.Since(startedAt).Milliseconds(), "text_length", len(text))

	return text, nil
}
