// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics collects Prometheus counters for an ingestion batch and
// writes them to a node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "advice"
	subsystem = "ingest"
)

// Ingest holds the collectors for one ingestion run, registered on a private
// registry so repeated runs in one process (and tests) do not collide.
type Ingest struct {
	registry *prometheus.Registry

	Chunks         *prometheus.CounterVec
	Transcripts    prometheus.Counter
	Records        prometheus.Counter
	TokensUsed     *prometheus.CounterVec
	OracleDuration prometheus.Histogram
}

// NewIngest creates and registers the ingestion collectors.
func NewIngest() *Ingest {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Ingest{
		registry: reg,
		Chunks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "chunks_total",
				Help:      "Chunks sent to the extraction oracle, by outcome",
			},
			[]string{"outcome"}, // advice, no_advice, unparseable, failed, dropped
		),
		Transcripts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transcripts_total",
			Help:      "Transcripts fully processed and checkpointed",
		}),
		Records: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_total",
			Help:      "Advice records added to the index",
		}),
		TokensUsed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tokens_used_total",
				Help:      "Oracle tokens consumed",
			},
			[]string{"model", "type"}, // type: input/output
		),
		OracleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "oracle_duration_seconds",
			Help:      "Wall time of one chunk extraction, retries included",
			Buckets:   []float64{.25, .5, 1, 2, 5, 10, 30, 60},
		}),
	}
}

// ObserveChunk records one chunk outcome and its oracle latency.
func (m *Ingest) ObserveChunk(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Chunks.WithLabelValues(outcome).Inc()
	m.OracleDuration.Observe(elapsed.Seconds())
}

// ObserveTokens adds token usage for model.
func (m *Ingest) ObserveTokens(model string, input, output int) {
	if m == nil {
		return
	}
	if input > 0 {
		m.TokensUsed.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		m.TokensUsed.WithLabelValues(model, "output").Add(float64(output))
	}
}

// ObserveTranscript records a checkpointed transcript and the records it added.
func (m *Ingest) ObserveTranscript(records int) {
	if m == nil {
		return
	}
	m.Transcripts.Inc()
	m.Records.Add(float64(records))
}

// Registry exposes the underlying registry.
func (m *Ingest) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every collected metric to path in the text exposition
// format. The write goes through a temp file and rename.
func (m *Ingest) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
