package party

import (
	"time"

	"github.com/google/uuid"
)

// HomeToken is the persisted, unresolved form of a party home. The world is
// stored by name; turning it back into a live WorldRef needs the embedding
// application's world registry, so restore leaves homes unset and hands
// tokens back to the caller.
type HomeToken struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// Snapshot is the full serializable state of a party. It is what the
// durable store persists and what export/import exchanges.
type Snapshot struct {
	ID              uuid.UUID          `json:"id"`
	Leader          uuid.UUID          `json:"leader"`
	Members         []uuid.UUID        `json:"members"`
	Home            *HomeToken         `json:"home,omitempty"`
	Name            string             `json:"name,omitempty"`
	Color           string             `json:"color,omitempty"`
	Icon            string             `json:"icon,omitempty"`
	Roles           map[uuid.UUID]Role `json:"roles,omitempty"`
	Banned          []uuid.UUID        `json:"banned,omitempty"`
	Allies          []uuid.UUID        `json:"allies,omitempty"`
	PlayTimeMillis  int64              `json:"play_time_ms"`
	Kills           int                `json:"kills"`
	Deaths          int                `json:"deaths"`
	Achievements    []string           `json:"achievements,omitempty"`
	LastRewardClaim int64              `json:"last_reward_claim,omitempty"`
	ConsecutiveDays int                `json:"consecutive_days,omitempty"`
	CreatedAt       int64              `json:"created_at"`
}

// Snapshot exports the party's full state. The home, if resolved, is
// flattened back into a token.
func (p *Party) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		ID:              p.id,
		Leader:          p.leader,
		Members:         make([]uuid.UUID, 0, len(p.members)),
		Name:            p.name,
		Color:           p.color,
		Icon:            p.icon,
		Roles:           make(map[uuid.UUID]Role, len(p.members)),
		Banned:          make([]uuid.UUID, 0, len(p.banned)),
		Allies:          make([]uuid.UUID, 0, len(p.allies)),
		PlayTimeMillis:  p.playTime.Milliseconds(),
		Kills:           p.kills,
		Deaths:          p.deaths,
		Achievements:    make([]string, 0, len(p.achievements)),
		ConsecutiveDays: p.consecutiveDays,
		CreatedAt:       p.createdAt.UnixMilli(),
	}
	for id := range p.members {
		s.Members = append(s.Members, id)
		if r, ok := p.roles[id]; ok {
			s.Roles[id] = r
		} else {
			s.Roles[id] = RoleMember
		}
	}
	for id := range p.banned {
		s.Banned = append(s.Banned, id)
	}
	for id := range p.allies {
		s.Allies = append(s.Allies, id)
	}
	for id := range p.achievements {
		s.Achievements = append(s.Achievements, id)
	}
	if !p.lastRewardDate.IsZero() {
		s.LastRewardClaim = p.lastRewardDate.UnixMilli()
	}
	if p.home != nil {
		s.Home = &HomeToken{
			World: p.home.World.Name(),
			X:     p.home.X,
			Y:     p.home.Y,
			Z:     p.home.Z,
			Yaw:   p.home.Yaw,
			Pitch: p.home.Pitch,
		}
	}
	return s
}

// Restore rebuilds a party from a snapshot through the normal construction
// path. The home token is not resolved here; callers resolve s.Home against
// their world registry and call SetHome afterwards.
func Restore(s Snapshot) *Party {
	createdAt := time.Now()
	if s.CreatedAt > 0 {
		createdAt = time.UnixMilli(s.CreatedAt)
	}
	p := newEmpty(s.ID, s.Leader, createdAt)

	p.members[s.Leader] = struct{}{}
	p.roles[s.Leader] = RoleLeader
	for _, id := range s.Members {
		p.members[id] = struct{}{}
		if _, ok := p.roles[id]; !ok {
			p.roles[id] = RoleMember
		}
	}
	for id, role := range s.Roles {
		if _, ok := p.members[id]; !ok || id == s.Leader {
			continue
		}
		p.roles[id] = role
	}
	for _, id := range s.Banned {
		p.banned[id] = struct{}{}
		delete(p.members, id)
		delete(p.roles, id)
	}
	for _, id := range s.Allies {
		p.allies[id] = struct{}{}
	}
	for _, id := range s.Achievements {
		p.achievements[id] = struct{}{}
	}

	p.name = s.Name
	if s.Color != "" {
		p.color = s.Color
	}
	if s.Icon != "" {
		p.icon = s.Icon
	}
	p.playTime = time.Duration(s.PlayTimeMillis) * time.Millisecond
	p.kills = s.Kills
	p.deaths = s.Deaths
	p.consecutiveDays = s.ConsecutiveDays
	if s.LastRewardClaim > 0 {
		p.lastRewardDate = time.UnixMilli(s.LastRewardClaim)
	}
	return p
}
