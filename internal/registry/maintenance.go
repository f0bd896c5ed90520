package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sylvanite/partyhub/internal/party"
)

// Intervals for the background maintenance loops. Each loop is independent;
// one sweep running long never delays the others.
type Intervals struct {
	Sweep    time.Duration
	Distance time.Duration
	PlayTime time.Duration
	Cleanup  time.Duration
	Autosave time.Duration
}

// Start launches the periodic maintenance loops. They stop when ctx is
// canceled or Shutdown is called.
func (r *Registry) Start(ctx context.Context, iv Intervals) {
	r.spawn(ctx, "invite-sweep", iv.Sweep, func() { r.SweepExpiredInvites() })
	r.spawn(ctx, "distance-check", iv.Distance, func() { r.EnforceDistanceLimits() })
	r.spawn(ctx, "playtime", iv.PlayTime, func() { r.AccruePlayTime(iv.PlayTime) })
	r.spawn(ctx, "cleanup", iv.Cleanup, func() { r.CleanupStaleEntries() })
	r.spawn(ctx, "autosave", iv.Autosave, func() {
		if r.PartyCount() == 0 {
			return
		}
		if err := r.Persist(context.Background(), false); err != nil {
			slog.Error("Periodic save failed", "error", err)
		}
	})
}

func (r *Registry) spawn(ctx context.Context, name string, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	r.tickerWG.Add(1)
	go func() {
		defer r.tickerWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.metrics.SweepRuns.WithLabelValues(name).Inc()
				fn()
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Shutdown stops the maintenance loops, waits for in-flight async saves
// and performs one final synchronous save.
func (r *Registry) Shutdown(ctx context.Context) error {
	slog.Info("Registry shutting down")
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.tickerWG.Wait()
	r.saveWG.Wait()

	err := r.Persist(ctx, true)

	r.partyCache.Clear()
	r.boardCache.Clear()

	if err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	slog.Info("Registry shutdown complete")
	return nil
}

// SweepExpiredInvites purges expired invites and join requests across all
// parties, keeping the candidate index consistent.
func (r *Registry) SweepExpiredInvites() {
	window := r.config().InviteExpiration
	for _, p := range r.AllParties() {
		r.syncPurgedInvites(p.ID(), p.CleanExpiredInvites(window))
		p.CleanExpiredJoinRequests(window)
	}
}

// EnforceDistanceLimits removes members who strayed too far from an online
// leader, or changed world when that is configured to evict. Empty parties
// disband.
func (r *Registry) EnforceDistanceLimits() {
	cfg := r.config()
	if !cfg.DistanceCheck || r.presence == nil {
		return
	}

	for _, p := range r.AllParties() {
		leaderID := p.Leader()
		if !r.presence.IsOnline(leaderID) {
			continue
		}
		leaderPos, ok := r.presence.Position(leaderID)
		if !ok {
			continue
		}

		var evict []uuid.UUID
		for _, memberID := range p.Members() {
			if memberID == leaderID || !r.presence.IsOnline(memberID) {
				continue
			}
			pos, ok := r.presence.Position(memberID)
			if !ok {
				continue
			}
			if pos.World != leaderPos.World {
				if cfg.KickOnWorldChange {
					evict = append(evict, memberID)
				}
				continue
			}
			if pos.DistanceTo(leaderPos) > cfg.MaxDistance {
				evict = append(evict, memberID)
			}
		}

		if len(evict) == 0 {
			continue
		}
		r.mu.Lock()
		for _, memberID := range evict {
			p.RemoveMember(memberID)
			delete(r.playerToParty, memberID)
			r.partyCache.Invalidate(memberID)
			slog.Info("Member evicted by distance limit", "party_id", p.ID(), "player", memberID)
		}
		r.boardCache.Clear()
		r.updateGaugesLocked()
		if p.MemberCount() == 0 {
			if err := r.disbandLocked(p.ID()); err != nil {
				slog.Warn("Disband after distance eviction failed", "party_id", p.ID(), "error", err)
			}
		}
		r.mu.Unlock()
	}
}

// AccruePlayTime adds elapsed to every party with at least one online
// member.
func (r *Registry) AccruePlayTime(elapsed time.Duration) {
	cfg := r.config()
	if !cfg.TrackPlayTime || r.presence == nil {
		return
	}
	accrued := false
	for _, p := range r.AllParties() {
		for _, memberID := range p.Members() {
			if r.presence.IsOnline(memberID) {
				p.AddPlayTime(elapsed)
				accrued = true
				break
			}
		}
	}
	if accrued {
		r.boardCache.Clear()
	}
}

// CleanupStaleEntries evicts expired cache entries, cooldowns past the
// horizon and positions of offline players.
func (r *Registry) CleanupStaleEntries() {
	r.partyCache.CleanExpired()
	r.boardCache.CleanExpired()

	cutoff := time.Now().Add(-cooldownHorizon)
	var online map[uuid.UUID]struct{}
	if r.presence != nil {
		online = make(map[uuid.UUID]struct{})
		for _, id := range r.presence.OnlinePlayers() {
			online[id] = struct{}{}
		}
	}

	r.mu.Lock()
	for id, t := range r.lastCommand {
		if t.Before(cutoff) {
			delete(r.lastCommand, id)
		}
	}
	for id, t := range r.lastTeleport {
		if t.Before(cutoff) {
			delete(r.lastTeleport, id)
		}
	}
	if online != nil {
		for id := range r.lastPositions {
			if _, ok := online[id]; !ok {
				delete(r.lastPositions, id)
			}
		}
	}
	r.mu.Unlock()

	slog.Debug("Stale entry cleanup complete", "party_cache", r.partyCache.Len())
}

// MarkPosition records an advisory last-known position used only for
// marker-update throttling. Returns false when the player has not moved
// far enough to matter and throttling is enabled.
func (r *Registry) MarkPosition(playerID uuid.UUID, pos Position) bool {
	if !r.config().OptimizeMarkers {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.lastPositions[playerID]
	if ok && last.World == pos.World && last.DistanceTo(pos) < 1.0 {
		return false
	}
	r.lastPositions[playerID] = pos
	return true
}

// Export produces the full serializable party set.
func (r *Registry) Export() []party.Snapshot {
	parties := r.AllParties()
	snapshots := make([]party.Snapshot, 0, len(parties))
	for _, p := range parties {
		snapshots = append(snapshots, p.Snapshot())
	}
	return snapshots
}

// Import installs previously exported parties, resolving home tokens
// through resolver. Parties referencing unknown worlds keep no home.
// Existing parties with the same id are replaced.
func (r *Registry) Import(snapshots []party.Snapshot, resolver WorldResolver) int {
	imported := 0
	for _, snap := range snapshots {
		p := party.Restore(snap)
		if p.MemberCount() == 0 {
			slog.Warn("Skipping imported party with no members", "party_id", snap.ID)
			continue
		}
		if snap.Home != nil && resolver != nil {
			if world, ok := resolver.WorldByName(snap.Home.World); ok {
				p.SetHome(&party.Home{
					World: world,
					X:     snap.Home.X,
					Y:     snap.Home.Y,
					Z:     snap.Home.Z,
					Yaw:   snap.Home.Yaw,
					Pitch: snap.Home.Pitch,
				})
			} else {
				slog.Warn("Party home references unknown world", "party_id", snap.ID, "world", snap.Home.World)
			}
		}

		r.mu.Lock()
		r.parties[p.ID()] = p
		for _, memberID := range p.Members() {
			r.playerToParty[memberID] = p.ID()
		}
		r.updateGaugesLocked()
		r.mu.Unlock()
		imported++
	}
	r.partyCache.Clear()
	r.boardCache.Clear()
	return imported
}

// Load reads the persisted party set from the store and installs it.
func (r *Registry) Load(ctx context.Context, resolver WorldResolver) error {
	snapshots, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load parties: %w", err)
	}
	n := r.Import(snapshots, resolver)
	slog.Info("Parties loaded from storage", "count", n)
	return nil
}

// Persist snapshots every party and hands the copy to the store. The
// synchronous path is for shutdown; periodic saves go through a goroutine
// unless async saving is disabled.
func (r *Registry) Persist(ctx context.Context, synchronous bool) error {
	snapshots := r.Export()
	slog.Info("Saving parties", "count", len(snapshots), "synchronous", synchronous)

	if synchronous || !r.config().AsyncSave {
		return r.save(ctx, snapshots)
	}

	r.saveWG.Add(1)
	go func() {
		defer r.saveWG.Done()
		if err := r.save(context.Background(), snapshots); err != nil {
			slog.Warn("Async save failed", "error", err)
		}
	}()
	return nil
}

func (r *Registry) save(ctx context.Context, snapshots []party.Snapshot) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	if err := r.store.Save(ctx, snapshots); err != nil {
		r.metrics.Saves.WithLabelValues("error").Inc()
		return err
	}
	r.metrics.Saves.WithLabelValues("ok").Inc()
	return nil
}
