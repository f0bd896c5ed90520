package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sylvanite/partyhub/internal/party"
)

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "parties.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	leader := uuid.New()
	officer := uuid.New()
	banned := uuid.New()
	ally := uuid.New()
	snap := party.Snapshot{
		ID:      uuid.New(),
		Leader:  leader,
		Members: []uuid.UUID{leader, officer},
		Roles: map[uuid.UUID]party.Role{
			leader:  party.RoleLeader,
			officer: party.RoleOfficer,
		},
		Home:            &party.HomeToken{World: "overworld", X: 12, Y: 70, Z: -8, Yaw: 45, Pitch: -10},
		Name:            "Raiders",
		Color:           "red",
		Icon:            "★",
		Banned:          []uuid.UUID{banned},
		Allies:          []uuid.UUID{ally},
		PlayTimeMillis:  3600000,
		Kills:           12,
		Deaths:          4,
		Achievements:    []string{"party_started", "first_blood"},
		LastRewardClaim: time.Now().UnixMilli(),
		ConsecutiveDays: 5,
		CreatedAt:       time.Now().UnixMilli(),
	}

	t.Run("Save and Load round trip", func(t *testing.T) {
		if err := store.Save(ctx, []party.Snapshot{snap}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 snapshot, got %d", len(got))
		}

		loaded := got[0]
		if loaded.ID != snap.ID || loaded.Leader != leader {
			t.Error("identity fields did not survive")
		}
		if len(loaded.Members) != 2 {
			t.Errorf("expected 2 members, got %d", len(loaded.Members))
		}
		if loaded.Roles[officer] != party.RoleOfficer {
			t.Errorf("expected officer role, got %v", loaded.Roles[officer])
		}
		if len(loaded.Banned) != 1 || loaded.Banned[0] != banned {
			t.Error("ban list did not survive")
		}
		if len(loaded.Allies) != 1 || loaded.Allies[0] != ally {
			t.Error("ally list did not survive")
		}
		if loaded.Home == nil || loaded.Home.World != "overworld" || loaded.Home.Yaw != 45 {
			t.Errorf("home token did not survive: %+v", loaded.Home)
		}
		if loaded.PlayTimeMillis != 3600000 || loaded.Kills != 12 || loaded.Deaths != 4 {
			t.Error("stats did not survive")
		}
		if len(loaded.Achievements) != 2 {
			t.Errorf("expected 2 achievements, got %d", len(loaded.Achievements))
		}
		if loaded.ConsecutiveDays != 5 {
			t.Errorf("expected streak 5, got %d", loaded.ConsecutiveDays)
		}
	})

	t.Run("Save is a full replace", func(t *testing.T) {
		other := party.Snapshot{
			ID:        uuid.New(),
			Leader:    uuid.New(),
			CreatedAt: time.Now().UnixMilli(),
		}
		other.Members = []uuid.UUID{other.Leader}
		other.Roles = map[uuid.UUID]party.Role{other.Leader: party.RoleLeader}

		if err := store.Save(ctx, []party.Snapshot{other}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != other.ID {
			t.Errorf("expected only the new party, got %d", len(got))
		}
	})

	t.Run("party without optional fields loads cleanly", func(t *testing.T) {
		bare := party.Snapshot{
			ID:        uuid.New(),
			Leader:    uuid.New(),
			CreatedAt: time.Now().UnixMilli(),
		}
		bare.Members = []uuid.UUID{bare.Leader}

		if err := store.Save(ctx, []party.Snapshot{bare}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got[0].Home != nil {
			t.Error("expected no home token")
		}
		if got[0].Roles[bare.Leader] != party.RoleMember {
			// No explicit role stored; storage defaults to member and
			// restore re-asserts the leader role from the leader field.
			t.Errorf("unexpected stored role %v", got[0].Roles[bare.Leader])
		}
	})
}
