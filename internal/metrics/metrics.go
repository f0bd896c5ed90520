// Package metrics exposes prometheus collectors for the party registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the registry reports to. Construct one
// per registry with New; the collectors register themselves on the given
// registerer.
type Metrics struct {
	ActiveParties  prometheus.Gauge
	GroupedPlayers prometheus.Gauge
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	Saves          *prometheus.CounterVec
	SweepRuns      *prometheus.CounterVec
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveParties: factory.NewGauge(prometheus.GaugeOpts{
			Name: "partyhub_active_parties",
			Help: "Number of live parties in the registry.",
		}),
		GroupedPlayers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "partyhub_grouped_players",
			Help: "Number of players currently in a party.",
		}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "partyhub_cache_hits_total",
			Help: "Cache lookup hits by cache name.",
		}, []string{"cache"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "partyhub_cache_misses_total",
			Help: "Cache lookup misses by cache name.",
		}, []string{"cache"}),
		Saves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "partyhub_saves_total",
			Help: "Persistence attempts by outcome.",
		}, []string{"outcome"}),
		SweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "partyhub_sweep_runs_total",
			Help: "Background maintenance runs by sweep name.",
		}, []string{"sweep"}),
	}
}

// NewNop returns metrics backed by a throwaway registry, for tests and
// callers that do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
