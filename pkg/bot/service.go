// Package bot wires the pipeline together and runs it as a long-lived service.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asimzulfiqar/LifeLogger/pkg/bus"
	"github.com/asimzulfiqar/LifeLogger/pkg/channel"
	"github.com/asimzulfiqar/LifeLogger/pkg/config"
	"github.com/asimzulfiqar/LifeLogger/pkg/enrich/geocode"
	"github.com/asimzulfiqar/LifeLogger/pkg/enrich/recognize"
	"github.com/asimzulfiqar/LifeLogger/pkg/enrich/transcribe"
	"github.com/asimzulfiqar/LifeLogger/pkg/logbook"
	"github.com/asimzulfiqar/LifeLogger/pkg/store/notion"
)

const (
	defaultStatusHost = "0.0.0.0"
	defaultStatusPort = 8799

	storeCheckInterval = 5 * time.Minute
)

// Service owns the process-wide handles: the record store, the enrichment
// engines, and the channel adapters. Everything is constructed once at
// startup and read-only afterwards; per-event state lives in the handlers.
type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	store      *notion.Store
	classifier *logbook.Classifier
	channels   []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	storeLastOKAt time.Time
	storeLastErr  string
	channelStates map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	StoreLastOKAt string                  `json:"store_last_ok_at,omitempty"`
	StoreLastErr  string                  `json:"store_last_error,omitempty"`
	Channels      map[string]channelState `json:"channels"`
}

// NewService builds the store, the enrichment engines, and the classifier.
//
// Store construction failures are fatal. Transcription and recognition are
// optional: when either engine cannot be built the service starts degraded
// with a nil handle and the classifier reports the gap per event.
func NewService(cfg *config.Config, adapters []channel.Adapter, downloader logbook.Downloader, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if downloader == nil {
		return nil, errors.New("downloader is required")
	}
	if log == nil {
		log = slog.Default()
	}

	store, err := notion.New(cfg.Notion, log)
	if err != nil {
		return nil, fmt.Errorf("initialize record store: %w", err)
	}

	var transcriber logbook.Transcriber
	if engine, err := transcribe.New(cfg.OpenAI); err != nil {
		log.Warn("Transcription disabled", "error", err)
	} else {
		transcriber = engine
	}

	var recognizer logbook.Recognizer
	if engine, err := recognize.New(cfg.OCR, log); err != nil {
		log.Warn("Text recognition disabled", "error", err)
	} else {
		recognizer = engine
	}

	geocodeTimeout := time.Duration(cfg.Geocode.TimeoutSeconds) * time.Second
	if geocodeTimeout <= 0 {
		geocodeTimeout = config.DefaultGeocodeTimeoutSeconds * time.Second
	}

	classifier, err := logbook.NewClassifier(logbook.Options{
		Store:          store,
		Downloader:     downloader,
		Transcriber:    transcriber,
		Recognizer:     recognizer,
		Geocoder:       geocode.New(cfg.Geocode, log),
		DownloadsDir:   cfg.DownloadsDir(),
		GeocodeTimeout: geocodeTimeout,
		Log:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize classifier: %w", err)
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "bot.service"),
		store:         store,
		classifier:    classifier,
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

// Run validates the store, starts the status server, and serves events
// until the context is cancelled or a channel fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	// Startup-fatal: an unreachable database must fail before serving events.
	if err := s.checkStore(ctx); err != nil {
		return err
	}
	s.log.Info("Record store connection verified")

	serverErrors := make(chan error, 1)
	go s.runStatusServer(ctx, serverErrors)

	ticker := time.NewTicker(storeCheckInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.checkStore(ctx)
			}
		}
	}()

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		adapter := adapter
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.handleInbound)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

func (s *Service) handleInbound(ctx context.Context, event bus.Event) (bus.Reply, error) {
	return s.classifier.Process(ctx, event)
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Status.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Status.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	storeLastOK := ""
	if !s.storeLastOKAt.IsZero() {
		storeLastOK = s.storeLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		StoreLastOKAt: storeLastOK,
		StoreLastErr:  s.storeLastErr,
		Channels:      channels,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.channelStates) == 0 {
		return false
	}

	anyRunning := false
	for _, state := range s.channelStates {
		if state.Running {
			anyRunning = true
			break
		}
	}

	if !anyRunning {
		return false
	}

	if s.storeLastOKAt.IsZero() {
		return false
	}

	if s.storeLastErr != "" {
		return false
	}

	return true
}

func (s *Service) checkStore(ctx context.Context) error {
	if err := s.store.Check(ctx); err != nil {
		s.mu.Lock()
		s.storeLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("record store check failed: %w", err)
	}

	s.mu.Lock()
	s.storeLastErr = ""
	s.storeLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
