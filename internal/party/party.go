// Package party defines the Party aggregate: membership, roles, invites,
// join requests, bans, allies, statistics, daily rewards and achievements.
//
// A Party owns no I/O and knows nothing about connectivity or storage; it
// only preserves its own invariants. All cross-party bookkeeping (player
// indices, invite indices, caches) lives in the registry.
package party

import (
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxNameLength bounds the display name in runes.
	MaxNameLength = 32
	// MaxIconLength bounds the icon in runes.
	MaxIconLength = 3

	defaultColor = "gold"
	defaultIcon  = "★"
)

var (
	ErrNotMember   = errors.New("player is not a party member")
	ErrNameTooLong = errors.New("party name exceeds maximum length")
	ErrIconTooLong = errors.New("party icon exceeds maximum length")
)

// WorldRef is a resolved reference to a world, supplied by the embedding
// application. The party core never resolves world names itself.
type WorldRef interface {
	Name() string
}

// NamedWorld is a WorldRef carrying only a name, for embedders without
// live world handles.
type NamedWorld string

func (w NamedWorld) Name() string { return string(w) }

// Home is a resolved home location within a world.
type Home struct {
	World WorldRef
	X     float64
	Y     float64
	Z     float64
	Yaw   float32
	Pitch float32
}

// Party is the aggregate root. All methods are safe for concurrent use;
// operations on one party never block operations on another.
type Party struct {
	mu sync.RWMutex

	id        uuid.UUID
	leader    uuid.UUID
	name      string
	members   map[uuid.UUID]struct{}
	invites   map[uuid.UUID]time.Time
	requests  map[uuid.UUID]time.Time
	roles     map[uuid.UUID]Role
	banned    map[uuid.UUID]struct{}
	allies    map[uuid.UUID]struct{}
	home      *Home
	public    bool
	color     string
	icon      string
	createdAt time.Time

	playTime time.Duration
	kills    int
	deaths   int

	lastDailyReward map[uuid.UUID]time.Time
	consecutiveDays int
	lastRewardDate  time.Time

	achievements map[string]struct{}
}

// New creates a party with the given leader as its only member.
func New(leader uuid.UUID) *Party {
	p := newEmpty(uuid.New(), leader, time.Now())
	p.members[leader] = struct{}{}
	p.roles[leader] = RoleLeader
	return p
}

func newEmpty(id, leader uuid.UUID, createdAt time.Time) *Party {
	return &Party{
		id:              id,
		leader:          leader,
		members:         make(map[uuid.UUID]struct{}),
		invites:         make(map[uuid.UUID]time.Time),
		requests:        make(map[uuid.UUID]time.Time),
		roles:           make(map[uuid.UUID]Role),
		banned:          make(map[uuid.UUID]struct{}),
		allies:          make(map[uuid.UUID]struct{}),
		public:          true,
		color:           defaultColor,
		icon:            defaultIcon,
		createdAt:       createdAt,
		lastDailyReward: make(map[uuid.UUID]time.Time),
		achievements:    make(map[string]struct{}),
	}
}

func (p *Party) ID() uuid.UUID { return p.id }

func (p *Party) Leader() uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leader
}

// Members returns a copy of the membership set.
func (p *Party) Members() []uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(p.members))
	for id := range p.members {
		out = append(out, id)
	}
	return out
}

func (p *Party) MemberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

func (p *Party) IsMember(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.members[id]
	return ok
}

func (p *Party) IsLeader(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leader == id
}

// AddMember adds id to the party, clearing any pending invite or join
// request for it. The role defaults to Member unless one is already
// assigned.
func (p *Party) AddMember(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[id] = struct{}{}
	delete(p.invites, id)
	delete(p.requests, id)
	if _, ok := p.roles[id]; !ok {
		p.roles[id] = RoleMember
	}
}

// TryAddMember adds id like AddMember, but only when the party is below
// maxMembers. The capacity check and the insert happen under one lock so
// concurrent joins cannot overshoot the bound. A maxMembers of 0 means
// unbounded.
func (p *Party) TryAddMember(id uuid.UUID, maxMembers int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.members[id]; !ok && maxMembers > 0 && len(p.members) >= maxMembers {
		return false
	}
	p.members[id] = struct{}{}
	delete(p.invites, id)
	delete(p.requests, id)
	if _, ok := p.roles[id]; !ok {
		p.roles[id] = RoleMember
	}
	return true
}

// RemoveMember removes id from the party. The leader's role entry survives
// removal; leadership is only reassigned through TransferLeadership, which
// requires a connectivity-aware choice the registry makes.
func (p *Party) RemoveMember(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members, id)
	if p.leader != id {
		delete(p.roles, id)
	}
}

// TransferLeadership promotes newLeader and demotes the previous leader to
// Officer. Fails with ErrNotMember if newLeader is not a current member.
func (p *Party) TransferLeadership(newLeader uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.members[newLeader]; !ok {
		return ErrNotMember
	}
	p.roles[p.leader] = RoleOfficer
	p.leader = newLeader
	p.roles[newLeader] = RoleLeader
	return nil
}

// Role reports the role of id, defaulting to Member for unknown ids.
func (p *Party) Role(id uuid.UUID) Role {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if r, ok := p.roles[id]; ok {
		return r
	}
	return RoleMember
}

// SetRole assigns a role to a member. The leader's role cannot be changed
// this way; use TransferLeadership.
func (p *Party) SetRole(id uuid.UUID, role Role) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.members[id]; !ok || p.leader == id {
		return
	}
	p.roles[id] = role
}

func (p *Party) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Party) HasName() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name != ""
}

func (p *Party) SetName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	return nil
}

func (p *Party) Color() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.color
}

func (p *Party) SetColor(color string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.color = color
}

func (p *Party) Icon() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.icon
}

func (p *Party) SetIcon(icon string) error {
	if utf8.RuneCountInString(icon) > MaxIconLength {
		return ErrIconTooLong
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.icon = icon
	return nil
}

func (p *Party) Public() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.public
}

func (p *Party) SetPublic(public bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.public = public
}

// Invite records a pending invite for id, issued now.
func (p *Party) Invite(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invites[id] = time.Now()
}

func (p *Party) HasInvite(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.invites[id]
	return ok
}

// IsInviteExpired reports whether the invite for id is older than window.
// A missing invite counts as expired. The window is supplied by the caller
// so policy changes never require migrating stored state.
func (p *Party) IsInviteExpired(id uuid.UUID, window time.Duration) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	issued, ok := p.invites[id]
	if !ok {
		return true
	}
	return time.Since(issued) > window
}

// CleanExpiredInvites removes invites older than window and returns the
// purged candidate ids so the caller can keep its own indices consistent.
func (p *Party) CleanExpiredInvites(window time.Duration) []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var purged []uuid.UUID
	for id, issued := range p.invites {
		if time.Since(issued) > window {
			delete(p.invites, id)
			purged = append(purged, id)
		}
	}
	return purged
}

func (p *Party) RemoveInvite(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.invites, id)
}

// Invites returns a copy of the pending invite map.
func (p *Party) Invites() map[uuid.UUID]time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[uuid.UUID]time.Time, len(p.invites))
	for id, t := range p.invites {
		out[id] = t
	}
	return out
}

func (p *Party) InviteCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.invites)
}

// AddJoinRequest records a pending join request from id, issued now.
func (p *Party) AddJoinRequest(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests[id] = time.Now()
}

func (p *Party) HasJoinRequest(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.requests[id]
	return ok
}

func (p *Party) RemoveJoinRequest(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.requests, id)
}

// JoinRequests returns a copy of the pending join request map.
func (p *Party) JoinRequests() map[uuid.UUID]time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[uuid.UUID]time.Time, len(p.requests))
	for id, t := range p.requests {
		out[id] = t
	}
	return out
}

// CleanExpiredJoinRequests removes join requests older than window.
func (p *Party) CleanExpiredJoinRequests(window time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, issued := range p.requests {
		if time.Since(issued) > window {
			delete(p.requests, id)
		}
	}
}

// Ban excludes id from the party: membership, role, invite and join
// request state are all cleared in the same call.
func (p *Party) Ban(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banned[id] = struct{}{}
	delete(p.members, id)
	delete(p.invites, id)
	delete(p.requests, id)
	delete(p.roles, id)
}

func (p *Party) Unban(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.banned, id)
}

func (p *Party) IsBanned(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.banned[id]
	return ok
}

// Banned returns a copy of the banned set.
func (p *Party) Banned() []uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(p.banned))
	for id := range p.banned {
		out = append(out, id)
	}
	return out
}

func (p *Party) Home() *Home {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.home
}

func (p *Party) SetHome(home *Home) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.home = home
}

func (p *Party) HasHome() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.home != nil
}

func (p *Party) CreatedAt() time.Time { return p.createdAt }

// AddAlly links another party id. Symmetry is the caller's responsibility;
// each side records the other.
func (p *Party) AddAlly(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allies[id] = struct{}{}
}

func (p *Party) RemoveAlly(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.allies, id)
}

func (p *Party) IsAlly(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.allies[id]
	return ok
}

// Allies returns a copy of the ally set.
func (p *Party) Allies() []uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(p.allies))
	for id := range p.allies {
		out = append(out, id)
	}
	return out
}

// AddPlayTime accrues active time.
func (p *Party) AddPlayTime(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playTime += d
}

func (p *Party) IncrementKills() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kills++
}

func (p *Party) IncrementDeaths() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deaths++
}

func (p *Party) PlayTime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.playTime
}

func (p *Party) Kills() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kills
}

func (p *Party) Deaths() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.deaths
}

// CanClaimDailyReward reports per-member eligibility: at least one day-unit
// since that member's last claim.
func (p *Party) CanClaimDailyReward(id uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	last, ok := p.lastDailyReward[id]
	if !ok {
		return true
	}
	return daysBetween(last, time.Now()) >= 1
}

// ClaimDailyReward records a claim by id and advances the party-wide
// streak: exactly one day since the last aggregate claim increments it, a
// larger gap resets it to 1.
//
// The streak is shared across members on purpose: any member's claim moves
// the aggregate counter regardless of who claimed last. Per-member state
// only gates eligibility.
func (p *Party) ClaimDailyReward(id uuid.UUID) {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastDailyReward[id] = now

	var gap int
	if !p.lastRewardDate.IsZero() {
		gap = daysBetween(p.lastRewardDate, now)
	}
	switch {
	case gap == 1:
		p.consecutiveDays++
	case gap > 1 || p.lastRewardDate.IsZero():
		p.consecutiveDays = 1
	}
	p.lastRewardDate = now
}

func (p *Party) ConsecutiveDays() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.consecutiveDays
}

func (p *Party) LastRewardDate() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRewardDate
}

// UnlockAchievement adds an achievement id to the set. It reports whether
// the achievement was newly unlocked; re-unlocking is a no-op.
func (p *Party) UnlockAchievement(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.achievements[id]; ok {
		return false
	}
	p.achievements[id] = struct{}{}
	return true
}

func (p *Party) HasAchievement(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.achievements[id]
	return ok
}

// Achievements returns a copy of the unlocked achievement set.
func (p *Party) Achievements() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.achievements))
	for id := range p.achievements {
		out = append(out, id)
	}
	return out
}

func (p *Party) AchievementCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.achievements)
}

func daysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier) / (24 * time.Hour))
}
