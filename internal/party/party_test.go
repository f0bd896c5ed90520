package party

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewParty(t *testing.T) {
	leader := uuid.New()
	p := New(leader)

	if !p.IsMember(leader) {
		t.Error("expected leader to be a member")
	}
	if !p.IsLeader(leader) {
		t.Error("expected leader to be leader")
	}
	if p.Role(leader) != RoleLeader {
		t.Errorf("expected leader role, got %v", p.Role(leader))
	}
	if p.MemberCount() != 1 {
		t.Errorf("expected 1 member, got %d", p.MemberCount())
	}
	if !p.Public() {
		t.Error("expected new parties to be public")
	}
}

func TestMembership(t *testing.T) {
	leader := uuid.New()
	member := uuid.New()

	t.Run("AddMember clears invite and request, assigns Member role", func(t *testing.T) {
		p := New(leader)
		p.Invite(member)
		p.AddJoinRequest(member)

		p.AddMember(member)

		if p.HasInvite(member) {
			t.Error("expected invite cleared on join")
		}
		if p.HasJoinRequest(member) {
			t.Error("expected join request cleared on join")
		}
		if p.Role(member) != RoleMember {
			t.Errorf("expected default Member role, got %v", p.Role(member))
		}
	})

	t.Run("RemoveMember drops role except for leader", func(t *testing.T) {
		p := New(leader)
		p.AddMember(member)
		p.SetRole(member, RoleOfficer)

		p.RemoveMember(member)
		p.AddMember(member)

		if p.Role(member) != RoleMember {
			t.Errorf("expected role reset to Member after rejoin, got %v", p.Role(member))
		}
	})

	t.Run("SetRole never touches the leader", func(t *testing.T) {
		p := New(leader)
		p.SetRole(leader, RoleRecruit)
		if p.Role(leader) != RoleLeader {
			t.Errorf("expected leader role unchanged, got %v", p.Role(leader))
		}
	})
}

func TestTransferLeadership(t *testing.T) {
	leader := uuid.New()
	member := uuid.New()
	outsider := uuid.New()

	t.Run("to a member demotes the old leader to Officer", func(t *testing.T) {
		p := New(leader)
		p.AddMember(member)

		if err := p.TransferLeadership(member); err != nil {
			t.Fatalf("TransferLeadership failed: %v", err)
		}
		if p.Leader() != member {
			t.Error("expected new leader")
		}
		if p.Role(member) != RoleLeader {
			t.Errorf("expected Leader role, got %v", p.Role(member))
		}
		if p.Role(leader) != RoleOfficer {
			t.Errorf("expected old leader demoted to Officer, got %v", p.Role(leader))
		}
	})

	t.Run("to a non-member fails and leaves leadership unchanged", func(t *testing.T) {
		p := New(leader)

		if err := p.TransferLeadership(outsider); err != ErrNotMember {
			t.Fatalf("expected ErrNotMember, got %v", err)
		}
		if p.Leader() != leader {
			t.Error("expected leadership unchanged")
		}
	})
}

func TestInviteExpiry(t *testing.T) {
	p := New(uuid.New())
	candidate := uuid.New()
	p.Invite(candidate)

	if p.IsInviteExpired(candidate, time.Hour) {
		t.Error("fresh invite reported expired")
	}
	if !p.IsInviteExpired(candidate, 0) {
		t.Error("invite not expired with zero window")
	}
	if !p.IsInviteExpired(uuid.New(), time.Hour) {
		t.Error("missing invite should count as expired")
	}

	purged := p.CleanExpiredInvites(0)
	if len(purged) != 1 || purged[0] != candidate {
		t.Errorf("expected [%s] purged, got %v", candidate, purged)
	}
	if p.HasInvite(candidate) {
		t.Error("expected invite removed by sweep")
	}
}

func TestBanCascade(t *testing.T) {
	leader := uuid.New()
	target := uuid.New()
	p := New(leader)
	p.AddMember(target)
	p.SetRole(target, RoleOfficer)
	p.Invite(target)
	p.AddJoinRequest(target)

	p.Ban(target)

	if p.IsMember(target) {
		t.Error("expected banned player removed from members")
	}
	if p.HasInvite(target) || p.HasJoinRequest(target) {
		t.Error("expected pending invite and request cleared by ban")
	}
	if !p.IsBanned(target) {
		t.Error("expected player on ban list")
	}

	p.Unban(target)
	if p.IsBanned(target) {
		t.Error("expected unban to clear the ban")
	}
}

func TestDailyReward(t *testing.T) {
	leader := uuid.New()

	t.Run("first claim starts the streak", func(t *testing.T) {
		p := New(leader)
		if !p.CanClaimDailyReward(leader) {
			t.Fatal("expected first claim to be allowed")
		}
		p.ClaimDailyReward(leader)
		if p.ConsecutiveDays() != 1 {
			t.Errorf("expected streak 1, got %d", p.ConsecutiveDays())
		}
		if p.CanClaimDailyReward(leader) {
			t.Error("expected same-day re-claim to be rejected")
		}
	})

	t.Run("exactly one day gap increments the streak", func(t *testing.T) {
		p := restoreWithReward(leader, time.Now().Add(-25*time.Hour), 3)
		p.ClaimDailyReward(leader)
		if p.ConsecutiveDays() != 4 {
			t.Errorf("expected streak 4, got %d", p.ConsecutiveDays())
		}
	})

	t.Run("gap greater than one day resets the streak", func(t *testing.T) {
		p := restoreWithReward(leader, time.Now().Add(-72*time.Hour), 9)
		p.ClaimDailyReward(leader)
		if p.ConsecutiveDays() != 1 {
			t.Errorf("expected streak reset to 1, got %d", p.ConsecutiveDays())
		}
	})

	t.Run("another member's claim advances the shared streak", func(t *testing.T) {
		other := uuid.New()
		p := restoreWithReward(leader, time.Now().Add(-25*time.Hour), 1)
		p.AddMember(other)
		p.ClaimDailyReward(other)
		if p.ConsecutiveDays() != 2 {
			t.Errorf("expected shared streak 2, got %d", p.ConsecutiveDays())
		}
	})
}

func restoreWithReward(leader uuid.UUID, lastClaim time.Time, streak int) *Party {
	return Restore(Snapshot{
		ID:              uuid.New(),
		Leader:          leader,
		Members:         []uuid.UUID{leader},
		LastRewardClaim: lastClaim.UnixMilli(),
		ConsecutiveDays: streak,
		CreatedAt:       time.Now().UnixMilli(),
	})
}

func TestDisplayAttributes(t *testing.T) {
	p := New(uuid.New())

	if err := p.SetName("The Night Watch"); err != nil {
		t.Fatalf("SetName failed: %v", err)
	}
	if !p.HasName() {
		t.Error("expected HasName after SetName")
	}

	long := make([]byte, MaxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := p.SetName(string(long)); err != ErrNameTooLong {
		t.Errorf("expected ErrNameTooLong, got %v", err)
	}

	if err := p.SetIcon("★★★★"); err != ErrIconTooLong {
		t.Errorf("expected ErrIconTooLong, got %v", err)
	}
	if err := p.SetIcon("⚔"); err != nil {
		t.Errorf("SetIcon failed: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	leader := uuid.New()
	officer := uuid.New()
	banned := uuid.New()
	ally := uuid.New()

	p := New(leader)
	p.AddMember(officer)
	p.SetRole(officer, RoleOfficer)
	p.Ban(banned)
	p.AddAlly(ally)
	if err := p.SetName("Raiders"); err != nil {
		t.Fatal(err)
	}
	p.SetColor("red")
	p.SetHome(&Home{World: testWorld("overworld"), X: 1, Y: 64, Z: -3, Yaw: 90, Pitch: 5})
	p.AddPlayTime(90 * time.Minute)
	p.IncrementKills()
	p.IncrementDeaths()
	p.UnlockAchievement("party_started")
	p.ClaimDailyReward(leader)

	s := p.Snapshot()
	restored := Restore(s)

	if restored.ID() != p.ID() || restored.Leader() != leader {
		t.Error("identity fields did not survive round trip")
	}
	if restored.MemberCount() != 2 || !restored.IsMember(officer) {
		t.Error("membership did not survive round trip")
	}
	if restored.Role(officer) != RoleOfficer {
		t.Errorf("expected Officer role preserved, got %v", restored.Role(officer))
	}
	if !restored.IsBanned(banned) {
		t.Error("ban list did not survive round trip")
	}
	if !restored.IsAlly(ally) {
		t.Error("ally list did not survive round trip")
	}
	if restored.Name() != "Raiders" || restored.Color() != "red" {
		t.Error("display attributes did not survive round trip")
	}
	if restored.PlayTime() != 90*time.Minute {
		t.Errorf("expected 90m play time, got %v", restored.PlayTime())
	}
	if restored.Kills() != 1 || restored.Deaths() != 1 {
		t.Error("stats did not survive round trip")
	}
	if !restored.HasAchievement("party_started") {
		t.Error("achievements did not survive round trip")
	}
	if restored.ConsecutiveDays() != 1 {
		t.Errorf("expected streak preserved, got %d", restored.ConsecutiveDays())
	}
	if !restored.CreatedAt().Equal(time.UnixMilli(s.CreatedAt)) {
		t.Error("creation time did not survive round trip")
	}

	// Home comes back as an unresolved token for the caller to resolve.
	if restored.HasHome() {
		t.Error("expected restored party to have no resolved home")
	}
	if s.Home == nil || s.Home.World != "overworld" || s.Home.X != 1 {
		t.Errorf("unexpected home token: %+v", s.Home)
	}
}

type testWorld string

func (w testWorld) Name() string { return string(w) }

func TestRolePermissions(t *testing.T) {
	cases := []struct {
		role    Role
		invite  bool
		promote bool
	}{
		{RoleRecruit, false, false},
		{RoleMember, false, false},
		{RoleOfficer, true, false},
		{RoleLeader, true, true},
	}
	for _, tc := range cases {
		if tc.role.CanInvite() != tc.invite {
			t.Errorf("%v: CanInvite = %v, want %v", tc.role, tc.role.CanInvite(), tc.invite)
		}
		if tc.role.CanKick() != tc.invite {
			t.Errorf("%v: CanKick = %v, want %v", tc.role, tc.role.CanKick(), tc.invite)
		}
		if tc.role.CanPromote() != tc.promote {
			t.Errorf("%v: CanPromote = %v, want %v", tc.role, tc.role.CanPromote(), tc.promote)
		}
		if tc.role.CanDisband() != tc.promote {
			t.Errorf("%v: CanDisband = %v, want %v", tc.role, tc.role.CanDisband(), tc.promote)
		}
	}
}

func TestEvaluateAchievements(t *testing.T) {
	leader := uuid.New()
	p := New(leader)

	unlocked := EvaluateAchievements(p, 8)
	if len(unlocked) != 1 || unlocked[0] != "party_started" {
		t.Fatalf("expected only party_started, got %v", unlocked)
	}

	// Already unlocked achievements are not reported again.
	if got := EvaluateAchievements(p, 8); len(got) != 0 {
		t.Errorf("expected no new unlocks, got %v", got)
	}

	for i := 0; i < 20; i++ {
		p.IncrementKills()
	}
	for i := 0; i < 5; i++ {
		p.IncrementDeaths()
	}
	p.AddPlayTime(11 * time.Hour)

	unlocked = EvaluateAchievements(p, 8)
	want := map[string]bool{"first_blood": true, "survivor": true, "dedicated": true}
	if len(unlocked) != len(want) {
		t.Fatalf("expected %d unlocks, got %v", len(want), unlocked)
	}
	for _, id := range unlocked {
		if !want[id] {
			t.Errorf("unexpected unlock %q", id)
		}
	}
}
