// Package telemetry provides Prometheus counters for the event pipeline.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	EventsReceived     *prometheus.CounterVec
	EntriesWritten     prometheus.Counter
	StoreWriteFailures prometheus.Counter
	EnrichmentFailures *prometheus.CounterVec
	RepliesSent        prometheus.Counter
)

// Init registers metrics (idempotent). Counting helpers are nil-safe so
// library code and tests never require registration.
func Init() {
	once.Do(func() {
		EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelogger_events_received_total",
			Help: "Inbound chat events by payload kind",
		}, []string{"kind"})
		EntriesWritten = promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifelogger_entries_written_total",
			Help: "Log entries persisted to the record store",
		})
		StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifelogger_store_write_failures_total",
			Help: "Failed record store writes",
		})
		EnrichmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelogger_enrichment_failures_total",
			Help: "Failed enrichment calls by service",
		}, []string{"service"})
		RepliesSent = promauto.NewCounter(prometheus.CounterOpts{
			Name: "lifelogger_replies_sent_total",
			Help: "Acknowledgment replies sent back through the transport",
		})
	})
}

// CountEvent records one inbound event of the given kind.
func CountEvent(kind string) {
	if EventsReceived != nil {
		EventsReceived.WithLabelValues(kind).Inc()
	}
}

// CountEntryWritten records one successful store write.
func CountEntryWritten() {
	if EntriesWritten != nil {
		EntriesWritten.Inc()
	}
}

// CountStoreWriteFailure records one failed store write.
func CountStoreWriteFailure() {
	if StoreWriteFailures != nil {
		StoreWriteFailures.Inc()
	}
}

// CountEnrichmentFailure records one failed transcribe/recognize/geocode call.
func CountEnrichmentFailure(service string) {
	if EnrichmentFailures != nil {
		EnrichmentFailures.WithLabelValues(service).Inc()
	}
}

// CountReply records one reply delivered to the sender.
func CountReply() {
	if RepliesSent != nil {
		RepliesSent.Inc()
	}
}
