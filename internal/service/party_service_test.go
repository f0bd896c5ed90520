package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/sylvanite/partyhub/internal/config"
	"github.com/sylvanite/partyhub/internal/leaderboard"
	"github.com/sylvanite/partyhub/internal/registry"
	"github.com/sylvanite/partyhub/internal/storage/jsonfile"
	"github.com/sylvanite/partyhub/pkg/rpc"
)

// testServer wires a full service over a temp jsonfile store and returns
// the base URL for clients.
func setupTestServer(t *testing.T) string {
	t.Helper()

	store, err := jsonfile.New(filepath.Join(t.TempDir(), "parties.json"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	tracker := registry.NewTracker()
	reg := registry.New(store, tracker, config.Tunables{
		InviteExpiration:  5 * time.Minute,
		MaxMembers:        8,
		MaxPendingInvites: 10,
		OptimizeMarkers:   true,
	}, nil)
	svc := New(reg, leaderboard.New(reg), tracker, "jsonfile")

	mux := http.NewServeMux()
	svc.Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func client[Req, Res any](url, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](http.DefaultClient, url+procedure, connect.WithCodec(rpc.Codec{}))
}

func TestCreateInviteAcceptFlow(t *testing.T) {
	url := setupTestServer(t)
	ctx := context.Background()

	createClient := client[rpc.CreatePartyRequest, rpc.CreatePartyResponse](url, rpc.ProcedureCreateParty)
	inviteClient := client[rpc.InviteRequest, rpc.InviteResponse](url, rpc.ProcedureInvite)
	acceptClient := client[rpc.AcceptInviteRequest, rpc.AcceptInviteResponse](url, rpc.ProcedureAcceptInvite)
	getClient := client[rpc.GetPartyRequest, rpc.GetPartyResponse](url, rpc.ProcedureGetParty)

	leader := uuid.New()
	candidate := uuid.New()

	created, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: leader}))
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}
	partyID := created.Msg.Party.ID
	if created.Msg.Party.Leader != leader {
		t.Errorf("expected creator as leader, got %v", created.Msg.Party.Leader)
	}
	if len(created.Msg.Party.Members) != 1 || created.Msg.Party.Members[0].Role != "leader" {
		t.Errorf("unexpected initial members: %+v", created.Msg.Party.Members)
	}

	if _, err := inviteClient.CallUnary(ctx, connect.NewRequest(&rpc.InviteRequest{
		PartyID: partyID, ActorID: leader, PlayerID: candidate,
	})); err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	fetched, err := getClient.CallUnary(ctx, connect.NewRequest(&rpc.GetPartyRequest{PartyID: partyID}))
	if err != nil {
		t.Fatalf("GetParty failed: %v", err)
	}
	if len(fetched.Msg.Party.PendingInvites) != 1 || fetched.Msg.Party.PendingInvites[0] != candidate {
		t.Errorf("expected pending invite for candidate in party view, got %v", fetched.Msg.Party.PendingInvites)
	}

	accepted, err := acceptClient.CallUnary(ctx, connect.NewRequest(&rpc.AcceptInviteRequest{
		PlayerID: candidate, PartyID: partyID,
	}))
	if err != nil {
		t.Fatalf("AcceptInvite failed: %v", err)
	}
	if len(accepted.Msg.Party.Members) != 2 {
		t.Errorf("expected 2 members after accept, got %d", len(accepted.Msg.Party.Members))
	}
	for _, m := range accepted.Msg.Party.Members {
		if m.PlayerID == candidate && m.Role != "member" {
			t.Errorf("expected member role for joiner, got %q", m.Role)
		}
	}
	if len(accepted.Msg.Party.PendingInvites) != 0 {
		t.Errorf("expected invite consumed on accept, got %v", accepted.Msg.Party.PendingInvites)
	}
}

func TestPartyViewRewardAndRequests(t *testing.T) {
	url := setupTestServer(t)
	ctx := context.Background()

	createClient := client[rpc.CreatePartyRequest, rpc.CreatePartyResponse](url, rpc.ProcedureCreateParty)
	requestClient := client[rpc.RequestJoinRequest, rpc.RequestJoinResponse](url, rpc.ProcedureRequestJoin)
	claimClient := client[rpc.ClaimDailyRewardRequest, rpc.ClaimDailyRewardResponse](url, rpc.ProcedureClaimDailyReward)
	getClient := client[rpc.GetPartyRequest, rpc.GetPartyResponse](url, rpc.ProcedureGetParty)

	leader := uuid.New()
	requester := uuid.New()
	created, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: leader}))
	if err != nil {
		t.Fatal(err)
	}
	partyID := created.Msg.Party.ID
	if created.Msg.Party.LastClaimMillis != 0 {
		t.Errorf("expected no claim timestamp before first claim, got %d", created.Msg.Party.LastClaimMillis)
	}

	if _, err := requestClient.CallUnary(ctx, connect.NewRequest(&rpc.RequestJoinRequest{
		PlayerID: requester, PartyID: partyID,
	})); err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if _, err := claimClient.CallUnary(ctx, connect.NewRequest(&rpc.ClaimDailyRewardRequest{PlayerID: leader})); err != nil {
		t.Fatalf("ClaimDailyReward failed: %v", err)
	}

	fetched, err := getClient.CallUnary(ctx, connect.NewRequest(&rpc.GetPartyRequest{PartyID: partyID}))
	if err != nil {
		t.Fatal(err)
	}
	if len(fetched.Msg.Party.JoinRequests) != 1 || fetched.Msg.Party.JoinRequests[0] != requester {
		t.Errorf("expected pending join request in party view, got %v", fetched.Msg.Party.JoinRequests)
	}
	if fetched.Msg.Party.LastClaimMillis == 0 {
		t.Error("expected claim timestamp in party view after claim")
	}
	if fetched.Msg.Party.ConsecutiveDays != 1 {
		t.Errorf("expected streak 1 in party view, got %d", fetched.Msg.Party.ConsecutiveDays)
	}
}

func TestErrorCodes(t *testing.T) {
	url := setupTestServer(t)
	ctx := context.Background()

	getClient := client[rpc.GetPartyRequest, rpc.GetPartyResponse](url, rpc.ProcedureGetParty)
	createClient := client[rpc.CreatePartyRequest, rpc.CreatePartyResponse](url, rpc.ProcedureCreateParty)
	acceptClient := client[rpc.AcceptInviteRequest, rpc.AcceptInviteResponse](url, rpc.ProcedureAcceptInvite)
	boardClient := client[rpc.LeaderboardRequest, rpc.LeaderboardResponse](url, rpc.ProcedureLeaderboard)

	t.Run("unknown party is NotFound", func(t *testing.T) {
		_, err := getClient.CallUnary(ctx, connect.NewRequest(&rpc.GetPartyRequest{PartyID: uuid.New()}))
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("expected NotFound, got %v", connect.CodeOf(err))
		}
	})

	t.Run("double create is AlreadyExists", func(t *testing.T) {
		leader := uuid.New()
		if _, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: leader})); err != nil {
			t.Fatal(err)
		}
		_, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: leader}))
		if connect.CodeOf(err) != connect.CodeAlreadyExists {
			t.Errorf("expected AlreadyExists, got %v", connect.CodeOf(err))
		}
	})

	t.Run("missing invite is NotFound", func(t *testing.T) {
		leader := uuid.New()
		created, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: leader}))
		if err != nil {
			t.Fatal(err)
		}
		_, err = acceptClient.CallUnary(ctx, connect.NewRequest(&rpc.AcceptInviteRequest{
			PlayerID: uuid.New(), PartyID: created.Msg.Party.ID,
		}))
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("expected NotFound, got %v", connect.CodeOf(err))
		}
	})

	t.Run("bad metric is InvalidArgument", func(t *testing.T) {
		_, err := boardClient.CallUnary(ctx, connect.NewRequest(&rpc.LeaderboardRequest{Metric: "bogus"}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("expected InvalidArgument, got %v", connect.CodeOf(err))
		}
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	url := setupTestServer(t)
	ctx := context.Background()

	createClient := client[rpc.CreatePartyRequest, rpc.CreatePartyResponse](url, rpc.ProcedureCreateParty)
	killClient := client[rpc.RecordKillRequest, rpc.RecordKillResponse](url, rpc.ProcedureRecordKill)
	boardClient := client[rpc.LeaderboardRequest, rpc.LeaderboardResponse](url, rpc.ProcedureLeaderboard)

	leaderA := uuid.New()
	leaderB := uuid.New()
	a, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: leaderA}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: leaderB})); err != nil {
		t.Fatal(err)
	}

	var kill *connect.Response[rpc.RecordKillResponse]
	for i := 0; i < 10; i++ {
		var err error
		kill, err = killClient.CallUnary(ctx, connect.NewRequest(&rpc.RecordKillRequest{PlayerID: leaderA}))
		if err != nil {
			t.Fatalf("RecordKill failed: %v", err)
		}
	}
	found := false
	for _, id := range kill.Msg.UnlockedAchievements {
		if id == "first_blood" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected first_blood unlock at 10 kills, got %v", kill.Msg.UnlockedAchievements)
	}

	board, err := boardClient.CallUnary(ctx, connect.NewRequest(&rpc.LeaderboardRequest{Metric: "kills", Limit: 10}))
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(board.Msg.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board.Msg.Entries))
	}
	if board.Msg.Entries[0].PartyID != a.Msg.Party.ID || board.Msg.Entries[0].Rank != 1 {
		t.Errorf("unexpected top entry: %+v", board.Msg.Entries[0])
	}
	if board.Msg.Entries[0].Score != 10 {
		t.Errorf("expected score 10, got %v", board.Msg.Entries[0].Score)
	}
}

func TestPresenceEndpoints(t *testing.T) {
	url := setupTestServer(t)
	ctx := context.Background()

	connectClient := client[rpc.PlayerConnectedRequest, rpc.PlayerConnectedResponse](url, rpc.ProcedurePlayerConnected)
	moveClient := client[rpc.PlayerMovedRequest, rpc.PlayerMovedResponse](url, rpc.ProcedurePlayerMoved)
	disconnectClient := client[rpc.PlayerDisconnectedRequest, rpc.PlayerDisconnectedResponse](url, rpc.ProcedurePlayerDisconnected)

	player := uuid.New()
	if _, err := connectClient.CallUnary(ctx, connect.NewRequest(&rpc.PlayerConnectedRequest{PlayerID: player})); err != nil {
		t.Fatalf("PlayerConnected failed: %v", err)
	}

	moved, err := moveClient.CallUnary(ctx, connect.NewRequest(&rpc.PlayerMovedRequest{
		PlayerID: player,
		Position: rpc.Position{World: "overworld", X: 10, Y: 64, Z: 10},
	}))
	if err != nil {
		t.Fatalf("PlayerMoved failed: %v", err)
	}
	if !moved.Msg.MarkerUpdate {
		t.Error("expected first move to request a marker update")
	}

	moved, err = moveClient.CallUnary(ctx, connect.NewRequest(&rpc.PlayerMovedRequest{
		PlayerID: player,
		Position: rpc.Position{World: "overworld", X: 10.1, Y: 64, Z: 10},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if moved.Msg.MarkerUpdate {
		t.Error("expected tiny move to be throttled")
	}

	if _, err := disconnectClient.CallUnary(ctx, connect.NewRequest(&rpc.PlayerDisconnectedRequest{PlayerID: player})); err != nil {
		t.Fatalf("PlayerDisconnected failed: %v", err)
	}
}

func TestHealth(t *testing.T) {
	url := setupTestServer(t)
	ctx := context.Background()

	createClient := client[rpc.CreatePartyRequest, rpc.CreatePartyResponse](url, rpc.ProcedureCreateParty)
	healthClient := client[rpc.HealthRequest, rpc.HealthResponse](url, rpc.ProcedureHealth)

	if _, err := createClient.CallUnary(ctx, connect.NewRequest(&rpc.CreatePartyRequest{PlayerID: uuid.New()})); err != nil {
		t.Fatal(err)
	}

	resp, err := healthClient.CallUnary(ctx, connect.NewRequest(&rpc.HealthRequest{}))
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if resp.Msg.Status != "ok" || resp.Msg.Parties != 1 || resp.Msg.GroupedPlayers != 1 {
		t.Errorf("unexpected health response: %+v", resp.Msg)
	}
	if resp.Msg.Backend != "jsonfile" {
		t.Errorf("expected jsonfile backend, got %q", resp.Msg.Backend)
	}
}
