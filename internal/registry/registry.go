// Package registry owns every live party and the indices around them: the
// player membership index, the pending-invite index, cooldown trackers and
// the lookup/leaderboard caches.
//
// All mutation of party collections goes through registry operations;
// only the registry keeps the cross-index consistency and cache
// invalidation discipline. Operations on unrelated parties do not block
// each other: parties serialize their own mutation internally and the
// registry lock only covers the shared index maps.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sylvanite/partyhub/internal/cache"
	"github.com/sylvanite/partyhub/internal/config"
	"github.com/sylvanite/partyhub/internal/metrics"
	"github.com/sylvanite/partyhub/internal/party"
	"github.com/sylvanite/partyhub/internal/storage"
)

const (
	partyCacheTTL = 30 * time.Second
	boardCacheTTL = 5 * time.Second

	// Cooldown entries untouched for this long are dropped by the
	// periodic cleanup sweep.
	cooldownHorizon = time.Hour
)

// WorldResolver resolves persisted world names into live world references.
// It is supplied by the embedding application; the registry never resolves
// worlds itself.
type WorldResolver interface {
	WorldByName(name string) (party.WorldRef, bool)
}

// Registry manages the full party set. All exported methods are safe for
// concurrent use.
type Registry struct {
	mu            sync.RWMutex
	parties       map[uuid.UUID]*party.Party
	playerToParty map[uuid.UUID]uuid.UUID
	playerInvites map[uuid.UUID]uuid.UUID
	lastCommand   map[uuid.UUID]time.Time
	lastTeleport  map[uuid.UUID]time.Time
	lastPositions map[uuid.UUID]Position

	cfgMu sync.RWMutex
	cfg   config.Tunables

	store    storage.Store
	presence Presence
	metrics  *metrics.Metrics

	partyCache *cache.Cache[uuid.UUID, *party.Party]
	boardCache *cache.Cache[string, []*party.Party]

	saveMu sync.Mutex     // serializes store writes
	saveWG sync.WaitGroup // tracks in-flight async saves

	stopOnce sync.Once
	stopCh   chan struct{}
	tickerWG sync.WaitGroup
}

// New creates a registry over the given store and presence source.
func New(store storage.Store, presence Presence, cfg config.Tunables, m *metrics.Metrics) *Registry {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Registry{
		parties:       make(map[uuid.UUID]*party.Party),
		playerToParty: make(map[uuid.UUID]uuid.UUID),
		playerInvites: make(map[uuid.UUID]uuid.UUID),
		lastCommand:   make(map[uuid.UUID]time.Time),
		lastTeleport:  make(map[uuid.UUID]time.Time),
		lastPositions: make(map[uuid.UUID]Position),
		cfg:           cfg,
		store:         store,
		presence:      presence,
		metrics:       m,
		partyCache:    cache.New[uuid.UUID, *party.Party](partyCacheTTL),
		boardCache:    cache.New[string, []*party.Party](boardCacheTTL),
		stopCh:        make(chan struct{}),
	}
}

// ApplyConfig swaps in new tunables without restart.
func (r *Registry) ApplyConfig(cfg config.Tunables) {
	r.cfgMu.Lock()
	r.cfg = cfg
	r.cfgMu.Unlock()
	slog.Info("Registry configuration applied",
		"invite_expiration", cfg.InviteExpiration,
		"max_members", cfg.MaxMembers,
	)
}

func (r *Registry) config() config.Tunables {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.cfg
}

// Create makes a new party led by creator. Fails with ErrAlreadyInParty if
// the creator is already grouped.
func (r *Registry) Create(creator uuid.UUID) (*party.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.playerToParty[creator]; ok {
		return nil, ErrAlreadyInParty
	}

	p := party.New(creator)
	r.parties[p.ID()] = p
	r.playerToParty[creator] = p.ID()
	r.boardCache.Clear()
	r.updateGaugesLocked()

	slog.Info("Party created", "party_id", p.ID(), "leader", creator)
	return p, nil
}

// Disband removes the party and scrubs every member from the player index
// and per-player caches.
func (r *Registry) Disband(partyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disbandLocked(partyID)
}

func (r *Registry) disbandLocked(partyID uuid.UUID) error {
	p, ok := r.parties[partyID]
	if !ok {
		return ErrPartyNotFound
	}

	for _, memberID := range p.Members() {
		delete(r.playerToParty, memberID)
		delete(r.lastPositions, memberID)
		r.partyCache.Invalidate(memberID)
	}
	for candidate, id := range r.playerInvites {
		if id == partyID {
			delete(r.playerInvites, candidate)
		}
	}

	delete(r.parties, partyID)
	r.boardCache.Clear()
	r.updateGaugesLocked()

	slog.Info("Party disbanded", "party_id", partyID)
	return nil
}

// Invite records a pending invite for candidate. Already-invited candidates
// and parties at their pending-invite bound are a no-op. Banned candidates
// and grouped candidates are rejected.
func (r *Registry) Invite(partyID, actor, candidate uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.Role(actor).CanInvite() || !p.IsMember(actor) {
		return ErrInsufficientRole
	}
	if p.IsBanned(candidate) {
		return ErrBanned
	}
	if r.IsInParty(candidate) {
		return ErrAlreadyInParty
	}

	cfg := r.config()

	// Expired invites do not count against the pending bound.
	r.syncPurgedInvites(partyID, p.CleanExpiredInvites(cfg.InviteExpiration))

	if p.HasInvite(candidate) {
		return nil
	}
	if p.InviteCount() >= cfg.MaxPendingInvites {
		return nil
	}

	p.Invite(candidate)
	r.mu.Lock()
	r.playerInvites[candidate] = partyID
	r.mu.Unlock()
	return nil
}

// AcceptInvite adds candidate to the party its invite came from. Expired
// invites are purged and reported distinctly from missing ones.
func (r *Registry) AcceptInvite(candidate, partyID uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.HasInvite(candidate) {
		return ErrNoInvite
	}

	cfg := r.config()
	if p.IsInviteExpired(candidate, cfg.InviteExpiration) {
		p.RemoveInvite(candidate)
		r.mu.Lock()
		delete(r.playerInvites, candidate)
		r.mu.Unlock()
		return ErrInviteExpired
	}

	// Admission is atomic with the player index: the grouped check, the
	// membership commit and the index write happen under one lock so two
	// concurrent accepts cannot admit the same player into two parties.
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playerToParty[candidate]; ok {
		return ErrAlreadyInParty
	}
	if !p.TryAddMember(candidate, cfg.MaxMembers) {
		return ErrPartyFull
	}
	r.playerToParty[candidate] = partyID
	delete(r.playerInvites, candidate)
	r.partyCache.Invalidate(candidate)
	r.boardCache.Clear()
	r.updateGaugesLocked()

	slog.Info("Invite accepted", "party_id", partyID, "player", candidate)
	return nil
}

// Leave removes the player from its party. An emptied party disbands; a
// departing leader hands off to the first online member, else an arbitrary
// one.
func (r *Registry) Leave(playerID uuid.UUID) error {
	r.mu.Lock()
	partyID, ok := r.playerToParty[playerID]
	if !ok {
		r.mu.Unlock()
		return ErrNotInParty
	}
	p, ok := r.parties[partyID]
	if !ok {
		// Index entry with no party: repair and report ungrouped.
		delete(r.playerToParty, playerID)
		r.partyCache.Invalidate(playerID)
		r.mu.Unlock()
		return ErrNotInParty
	}

	p.RemoveMember(playerID)
	delete(r.playerToParty, playerID)
	r.partyCache.Invalidate(playerID)
	r.boardCache.Clear()
	r.updateGaugesLocked()

	if p.MemberCount() == 0 {
		err := r.disbandLocked(partyID)
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	if p.IsLeader(playerID) {
		r.promoteSuccessor(p)
	}
	return nil
}

// promoteSuccessor transfers leadership to the first online member, else
// an arbitrary remaining member. A chosen successor can leave between the
// member snapshot and the transfer, so selection repeats from a fresh
// snapshot until a transfer lands or the party has no members left.
func (r *Registry) promoteSuccessor(p *party.Party) {
	for {
		members := p.Members()
		if len(members) == 0 {
			return
		}
		successor := members[0]
		if r.presence != nil {
			for _, id := range members {
				if r.presence.IsOnline(id) {
					successor = id
					break
				}
			}
		}
		if err := p.TransferLeadership(successor); err != nil {
			slog.Warn("Leader succession retry", "party_id", p.ID(), "successor", successor, "error", err)
			continue
		}
		slog.Info("Leadership transferred", "party_id", p.ID(), "new_leader", successor)
		return
	}
}

// Kick removes target from the party. Only Officer and above may kick, and
// the leader cannot be kicked.
func (r *Registry) Kick(partyID, actor, target uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanKick() {
		return ErrInsufficientRole
	}
	if !p.IsMember(target) {
		return ErrNotMember
	}
	if p.IsLeader(target) {
		return ErrInsufficientRole
	}

	p.RemoveMember(target)

	r.mu.Lock()
	delete(r.playerToParty, target)
	r.partyCache.Invalidate(target)
	r.boardCache.Clear()
	r.updateGaugesLocked()
	empty := p.MemberCount() == 0
	var disbandErr error
	if empty {
		disbandErr = r.disbandLocked(partyID)
	}
	r.mu.Unlock()

	slog.Info("Player kicked", "party_id", partyID, "player", target, "by", actor)
	return disbandErr
}

// Ban excludes target from this party and clears its membership, role,
// invite and join-request state in one operation.
func (r *Registry) Ban(partyID, actor, target uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanBan() {
		return ErrInsufficientRole
	}
	if p.IsLeader(target) {
		return ErrInsufficientRole
	}

	wasMember := p.IsMember(target)
	p.Ban(target)

	r.mu.Lock()
	if wasMember {
		delete(r.playerToParty, target)
	}
	if r.playerInvites[target] == partyID {
		delete(r.playerInvites, target)
	}
	r.partyCache.Invalidate(target)
	r.boardCache.Clear()
	r.updateGaugesLocked()
	empty := wasMember && p.MemberCount() == 0
	var disbandErr error
	if empty {
		disbandErr = r.disbandLocked(partyID)
	}
	r.mu.Unlock()

	slog.Info("Player banned", "party_id", partyID, "player", target, "by", actor)
	return disbandErr
}

// Unban lifts a ban.
func (r *Registry) Unban(partyID, actor, target uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanBan() {
		return ErrInsufficientRole
	}
	p.Unban(target)
	return nil
}

// RequestJoin records a join request on a public party.
func (r *Registry) RequestJoin(playerID, partyID uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if r.IsInParty(playerID) {
		return ErrAlreadyInParty
	}
	if p.IsBanned(playerID) {
		return ErrBanned
	}
	if !p.Public() {
		return ErrNotPublic
	}
	p.AddJoinRequest(playerID)
	return nil
}

// AcceptJoinRequest admits requester as a member.
func (r *Registry) AcceptJoinRequest(partyID, actor, requester uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanInvite() {
		return ErrInsufficientRole
	}
	if !p.HasJoinRequest(requester) {
		return ErrNoRequest
	}

	// Same single-lock admission as AcceptInvite.
	cfg := r.config()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playerToParty[requester]; ok {
		p.RemoveJoinRequest(requester)
		return ErrAlreadyInParty
	}
	if !p.TryAddMember(requester, cfg.MaxMembers) {
		return ErrPartyFull
	}
	r.playerToParty[requester] = partyID
	delete(r.playerInvites, requester)
	r.partyCache.Invalidate(requester)
	r.boardCache.Clear()
	r.updateGaugesLocked()
	return nil
}

// DenyJoinRequest withdraws a pending join request.
func (r *Registry) DenyJoinRequest(partyID, actor, requester uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanInvite() {
		return ErrInsufficientRole
	}
	if !p.HasJoinRequest(requester) {
		return ErrNoRequest
	}
	p.RemoveJoinRequest(requester)
	return nil
}

// TransferLeadership hands leadership to another member at the current
// leader's request.
func (r *Registry) TransferLeadership(partyID, actor, newLeader uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsLeader(actor) {
		return ErrInsufficientRole
	}
	if err := p.TransferLeadership(newLeader); err != nil {
		return ErrNotMember
	}
	return nil
}

// SetRole assigns a non-leader role to a member.
func (r *Registry) SetRole(partyID, actor, target uuid.UUID, role party.Role) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanPromote() {
		return ErrInsufficientRole
	}
	if role == party.RoleLeader {
		return ErrInsufficientRole
	}
	if !p.IsMember(target) || p.IsLeader(target) {
		return ErrNotMember
	}
	p.SetRole(target, role)
	return nil
}

// SetHome stores the party home.
func (r *Registry) SetHome(partyID, actor uuid.UUID, home *party.Home) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanSetHome() {
		return ErrInsufficientRole
	}
	p.SetHome(home)
	return nil
}

// Ally links two parties symmetrically: each side records the other.
func (r *Registry) Ally(partyID, actor, otherID uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	other, err := r.Party(otherID)
	if err != nil {
		return err
	}
	if !p.IsLeader(actor) {
		return ErrInsufficientRole
	}
	p.AddAlly(otherID)
	other.AddAlly(partyID)
	return nil
}

// Unally removes the alliance from both sides.
func (r *Registry) Unally(partyID, actor, otherID uuid.UUID) error {
	p, err := r.Party(partyID)
	if err != nil {
		return err
	}
	if !p.IsLeader(actor) {
		return ErrInsufficientRole
	}
	p.RemoveAlly(otherID)
	if other, err := r.Party(otherID); err == nil {
		other.RemoveAlly(partyID)
	}
	return nil
}

// ClaimDailyReward claims today's reward for the player and returns the
// party streak after the claim.
func (r *Registry) ClaimDailyReward(playerID uuid.UUID) (int, error) {
	p := r.PartyOf(playerID)
	if p == nil {
		return 0, ErrNotInParty
	}
	if !p.CanClaimDailyReward(playerID) {
		return 0, ErrRewardAlreadyClaimed
	}
	p.ClaimDailyReward(playerID)
	return p.ConsecutiveDays(), nil
}

// RecordKill credits a kill to the player's party.
func (r *Registry) RecordKill(playerID uuid.UUID) error {
	p := r.PartyOf(playerID)
	if p == nil {
		return ErrNotInParty
	}
	p.IncrementKills()
	r.boardCache.Clear()
	return nil
}

// RecordDeath records a death against the player's party.
func (r *Registry) RecordDeath(playerID uuid.UUID) error {
	p := r.PartyOf(playerID)
	if p == nil {
		return ErrNotInParty
	}
	p.IncrementDeaths()
	r.boardCache.Clear()
	return nil
}

// CheckAchievements evaluates and unlocks the party's achievements,
// returning the newly unlocked ids.
func (r *Registry) CheckAchievements(partyID uuid.UUID) ([]string, error) {
	p, err := r.Party(partyID)
	if err != nil {
		return nil, err
	}
	unlocked := party.EvaluateAchievements(p, r.config().MaxMembers)
	if len(unlocked) > 0 {
		r.boardCache.Clear()
		slog.Info("Achievements unlocked", "party_id", partyID, "achievements", unlocked)
	}
	return unlocked, nil
}

// Party returns a live party by id.
func (r *Registry) Party(partyID uuid.UUID) (*party.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[partyID]
	if !ok {
		return nil, ErrPartyNotFound
	}
	return p, nil
}

// PartyOf returns the player's party, or nil when ungrouped. Lookups are
// served from a short-TTL cache in front of the authoritative index.
func (r *Registry) PartyOf(playerID uuid.UUID) *party.Party {
	if p, ok := r.partyCache.Get(playerID); ok {
		r.metrics.CacheHits.WithLabelValues("party").Inc()
		return p
	}
	r.metrics.CacheMisses.WithLabelValues("party").Inc()

	r.mu.RLock()
	partyID, ok := r.playerToParty[playerID]
	var p *party.Party
	if ok {
		p = r.parties[partyID]
	}
	r.mu.RUnlock()

	if p != nil {
		r.partyCache.Put(playerID, p)
	}
	return p
}

// IsInParty reports whether the player is currently grouped.
func (r *Registry) IsInParty(playerID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.playerToParty[playerID]
	return ok
}

// PendingInvite returns the party that has invited the player, if any.
// O(1) via the candidate index; no party scan.
func (r *Registry) PendingInvite(playerID uuid.UUID) *party.Party {
	r.mu.RLock()
	defer r.mu.RUnlock()
	partyID, ok := r.playerInvites[playerID]
	if !ok {
		return nil
	}
	return r.parties[partyID]
}

// AllParties returns a snapshot slice of every live party.
func (r *Registry) AllParties() []*party.Party {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*party.Party, 0, len(r.parties))
	for _, p := range r.parties {
		out = append(out, p)
	}
	return out
}

// PartyCount reports the number of live parties.
func (r *Registry) PartyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parties)
}

// GroupedPlayerCount reports how many players are in a party.
func (r *Registry) GroupedPlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.playerToParty)
}

// BoardCache exposes the leaderboard cache to the ranking provider.
func (r *Registry) BoardCache() *cache.Cache[string, []*party.Party] {
	return r.boardCache
}

// IsOnCooldown reports whether the player used a command within the
// configured cooldown.
func (r *Registry) IsOnCooldown(playerID uuid.UUID) bool {
	return r.RemainingCooldown(playerID) > 0
}

// RemainingCooldown returns the time until the player may issue another
// command.
func (r *Registry) RemainingCooldown(playerID uuid.UUID) time.Duration {
	r.mu.RLock()
	last, ok := r.lastCommand[playerID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return remaining(last, r.config().CommandCooldown)
}

// TouchCooldown records a command use now.
func (r *Registry) TouchCooldown(playerID uuid.UUID) {
	r.mu.Lock()
	r.lastCommand[playerID] = time.Now()
	r.mu.Unlock()
}

// IsOnTeleportCooldown reports whether the player teleported within the
// configured cooldown.
func (r *Registry) IsOnTeleportCooldown(playerID uuid.UUID) bool {
	return r.RemainingTeleportCooldown(playerID) > 0
}

// RemainingTeleportCooldown returns the time until the player may teleport
// again.
func (r *Registry) RemainingTeleportCooldown(playerID uuid.UUID) time.Duration {
	r.mu.RLock()
	last, ok := r.lastTeleport[playerID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return remaining(last, r.config().TeleportCooldown)
}

// TouchTeleportCooldown records a teleport now.
func (r *Registry) TouchTeleportCooldown(playerID uuid.UUID) {
	r.mu.Lock()
	r.lastTeleport[playerID] = time.Now()
	r.mu.Unlock()
}

func remaining(last time.Time, cooldown time.Duration) time.Duration {
	left := cooldown - time.Since(last)
	if left < 0 {
		return 0
	}
	return left
}

// CleanupPlayer drops per-player advisory state on disconnect: cooldowns,
// positions and any pending invite.
func (r *Registry) CleanupPlayer(playerID uuid.UUID) {
	r.mu.Lock()
	delete(r.lastCommand, playerID)
	delete(r.lastTeleport, playerID)
	delete(r.lastPositions, playerID)
	partyID, hadInvite := r.playerInvites[playerID]
	delete(r.playerInvites, playerID)
	p := r.parties[partyID]
	r.mu.Unlock()

	if hadInvite && p != nil {
		p.RemoveInvite(playerID)
	}
}

// syncPurgedInvites drops candidate-index entries for invites a party
// sweep removed.
func (r *Registry) syncPurgedInvites(partyID uuid.UUID, purged []uuid.UUID) {
	if len(purged) == 0 {
		return
	}
	r.mu.Lock()
	for _, candidate := range purged {
		if r.playerInvites[candidate] == partyID {
			delete(r.playerInvites, candidate)
		}
	}
	r.mu.Unlock()
}

// updateGaugesLocked refreshes the prometheus gauges. Caller holds r.mu.
func (r *Registry) updateGaugesLocked() {
	r.metrics.ActiveParties.Set(float64(len(r.parties)))
	r.metrics.GroupedPlayers.Set(float64(len(r.playerToParty)))
}
