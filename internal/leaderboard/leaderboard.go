// Package leaderboard derives sorted top-N views over parties by a chosen
// metric. Results are cached in the registry's leaderboard cache, which
// the registry clears wholesale on any relevant mutation; queries are rare
// next to mutations so bulk invalidation is the cheap side of the trade.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/sylvanite/partyhub/internal/party"
	"github.com/sylvanite/partyhub/internal/registry"
)

// Metric selects the ranking dimension.
type Metric string

const (
	MetricKills        Metric = "kills"
	MetricPlayTime     Metric = "playtime"
	MetricMembers      Metric = "members"
	MetricKD           Metric = "kd"
	MetricAchievements Metric = "achievements"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricKills, MetricPlayTime, MetricMembers, MetricKD, MetricAchievements:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown leaderboard metric %q", s)
}

// Provider computes ranked views over the registry's parties. It is
// stateless; all caching lives in the registry.
type Provider struct {
	reg *registry.Registry
}

// New creates a provider over reg.
func New(reg *registry.Registry) *Provider {
	return &Provider{reg: reg}
}

// Top returns up to limit parties sorted descending by metric. Ties keep
// the snapshot order, which is stable only for a given unsorted snapshot.
func (pr *Provider) Top(metric Metric, limit int) []*party.Party {
	if limit <= 0 {
		return nil
	}
	key := fmt.Sprintf("%s_%d", metric, limit)
	if cached, ok := pr.reg.BoardCache().Get(key); ok {
		return cached
	}

	parties := pr.reg.AllParties()
	sort.SliceStable(parties, func(i, j int) bool {
		return score(parties[i], metric) > score(parties[j], metric)
	})
	if len(parties) > limit {
		parties = parties[:limit]
	}

	pr.reg.BoardCache().Put(key, parties)
	return parties
}

// Rank returns the 1-based position of a party under metric, or 0 when the
// party is not live.
func (pr *Provider) Rank(metric Metric, partyID uuid.UUID) int {
	parties := pr.reg.AllParties()
	sort.SliceStable(parties, func(i, j int) bool {
		return score(parties[i], metric) > score(parties[j], metric)
	})
	for i, p := range parties {
		if p.ID() == partyID {
			return i + 1
		}
	}
	return 0
}

// Score returns the party's sortable value for metric, as used by Top.
func Score(p *party.Party, metric Metric) float64 {
	return score(p, metric)
}

// score maps a party to its sortable value for metric. Kill/death ratio
// ranks zero-death parties by kill count alone.
func score(p *party.Party, metric Metric) float64 {
	switch metric {
	case MetricKills:
		return float64(p.Kills())
	case MetricPlayTime:
		return float64(p.PlayTime())
	case MetricMembers:
		return float64(p.MemberCount())
	case MetricKD:
		if deaths := p.Deaths(); deaths > 0 {
			return float64(p.Kills()) / float64(deaths)
		}
		return float64(p.Kills())
	case MetricAchievements:
		return float64(p.AchievementCount())
	}
	return 0
}
