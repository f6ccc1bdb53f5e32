// Package metrics provides Prometheus metrics for archive access
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by archives and converters. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ComponentLoadsTotal  *prometheus.CounterVec
	LoadDuration         *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	PreloadFailuresTotal prometheus.Counter
	ConversionsTotal     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Collectors already
// registered on reg by an earlier call are reused, so every archive opened
// with the same registerer reports into the same series. A nil reg returns
// nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		ComponentLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisa_component_loads_total",
				Help: "Total number of archive components read from storage",
			},
			[]string{"quantity", "role"},
		),
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lisa_component_load_duration_seconds",
				Help:    "Time spent reading and correcting one component",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"quantity"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lisa_cache_hits_total",
				Help: "Total number of component requests served from the archive cache",
			},
		),
		PreloadFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "lisa_preload_failures_total",
				Help: "Total number of preload requests that failed",
			},
		),
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisa_conversions_total",
				Help: "Total number of unit conversions",
			},
			[]string{"unit"},
		),
	}

	var err error
	if m.ComponentLoadsTotal, err = register(reg, m.ComponentLoadsTotal); err != nil {
		return nil, err
	}
	if m.LoadDuration, err = register(reg, m.LoadDuration); err != nil {
		return nil, err
	}
	if m.CacheHitsTotal, err = register(reg, m.CacheHitsTotal); err != nil {
		return nil, err
	}
	if m.PreloadFailuresTotal, err = register(reg, m.PreloadFailuresTotal); err != nil {
		return nil, err
	}
	if m.ConversionsTotal, err = register(reg, m.ConversionsTotal); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordLoad records one component read from storage.
func (m *Metrics) RecordLoad(quantity, role string, d time.Duration) {
	if m == nil {
		return
	}
	m.ComponentLoadsTotal.WithLabelValues(quantity, role).Inc()
	m.LoadDuration.WithLabelValues(quantity).Observe(d.Seconds())
}

// RecordCacheHit records a component served from the cache.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// RecordPreloadFailure records a failed preload.
func (m *Metrics) RecordPreloadFailure() {
	if m == nil {
		return
	}
	m.PreloadFailuresTotal.Inc()
}

// RecordConversion records one conversion to unit.
func (m *Metrics) RecordConversion(unit string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(unit).Inc()
}
