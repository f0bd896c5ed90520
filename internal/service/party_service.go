// Package service exposes the party registry over Connect RPC. Handlers
// are a thin layer: decode, touch the command cooldown, call the
// registry, map sentinel errors to Connect codes.
package service

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/sylvanite/partyhub/internal/leaderboard"
	"github.com/sylvanite/partyhub/internal/party"
	"github.com/sylvanite/partyhub/internal/registry"
	"github.com/sylvanite/partyhub/pkg/rpc"
)

const defaultBoardLimit = 10

// PartyService implements every party procedure over a registry.
type PartyService struct {
	reg     *registry.Registry
	boards  *leaderboard.Provider
	tracker *registry.Tracker
	backend string
}

// New creates the service. The tracker is the same presence source the
// registry was built with; backend is reported by Health.
func New(reg *registry.Registry, boards *leaderboard.Provider, tracker *registry.Tracker, backend string) *PartyService {
	return &PartyService{reg: reg, boards: boards, tracker: tracker, backend: backend}
}

// Register mounts one unary handler per procedure on mux. The JSON codec
// is always installed; callers add interceptors through opts.
func (s *PartyService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(rpc.Codec{})}, opts...)

	handle(mux, rpc.ProcedureCreateParty, s.CreateParty, opts)
	handle(mux, rpc.ProcedureDisband, s.Disband, opts)
	handle(mux, rpc.ProcedureInvite, s.Invite, opts)
	handle(mux, rpc.ProcedureAcceptInvite, s.AcceptInvite, opts)
	handle(mux, rpc.ProcedureLeave, s.Leave, opts)
	handle(mux, rpc.ProcedureKick, s.Kick, opts)
	handle(mux, rpc.ProcedureTransferLeadership, s.TransferLeadership, opts)
	handle(mux, rpc.ProcedureSetRole, s.SetRole, opts)
	handle(mux, rpc.ProcedureRequestJoin, s.RequestJoin, opts)
	handle(mux, rpc.ProcedureAcceptJoinRequest, s.AcceptJoinRequest, opts)
	handle(mux, rpc.ProcedureDenyJoinRequest, s.DenyJoinRequest, opts)
	handle(mux, rpc.ProcedureSetPublic, s.SetPublic, opts)
	handle(mux, rpc.ProcedureSetName, s.SetName, opts)
	handle(mux, rpc.ProcedureSetColor, s.SetColor, opts)
	handle(mux, rpc.ProcedureSetIcon, s.SetIcon, opts)
	handle(mux, rpc.ProcedureSetHome, s.SetHome, opts)
	handle(mux, rpc.ProcedureBan, s.Ban, opts)
	handle(mux, rpc.ProcedureUnban, s.Unban, opts)
	handle(mux, rpc.ProcedureAddAlly, s.AddAlly, opts)
	handle(mux, rpc.ProcedureRemoveAlly, s.RemoveAlly, opts)
	handle(mux, rpc.ProcedureClaimDailyReward, s.ClaimDailyReward, opts)
	handle(mux, rpc.ProcedureRecordKill, s.RecordKill, opts)
	handle(mux, rpc.ProcedureRecordDeath, s.RecordDeath, opts)
	handle(mux, rpc.ProcedureGetParty, s.GetParty, opts)
	handle(mux, rpc.ProcedureGetPlayerParty, s.GetPlayerParty, opts)
	handle(mux, rpc.ProcedureListParties, s.ListParties, opts)
	handle(mux, rpc.ProcedureLeaderboard, s.Leaderboard, opts)
	handle(mux, rpc.ProcedurePlayerConnected, s.PlayerConnected, opts)
	handle(mux, rpc.ProcedurePlayerDisconnected, s.PlayerDisconnected, opts)
	handle(mux, rpc.ProcedurePlayerMoved, s.PlayerMoved, opts)
	handle(mux, rpc.ProcedureHealth, s.Health, opts)
}

func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// touchCooldown enforces the per-player command cooldown for mutating
// operations and records the use.
func (s *PartyService) touchCooldown(playerID uuid.UUID) error {
	if s.reg.IsOnCooldown(playerID) {
		return registry.ErrOnCooldown
	}
	s.reg.TouchCooldown(playerID)
	return nil
}

func (s *PartyService) CreateParty(ctx context.Context, req *connect.Request[rpc.CreatePartyRequest]) (*connect.Response[rpc.CreatePartyResponse], error) {
	if err := s.touchCooldown(req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	p, err := s.reg.Create(req.Msg.PlayerID)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.CreatePartyResponse{Party: toView(p)}), nil
}

func (s *PartyService) Disband(ctx context.Context, req *connect.Request[rpc.DisbandRequest]) (*connect.Response[rpc.DisbandResponse], error) {
	p, err := s.reg.Party(req.Msg.PartyID)
	if err != nil {
		return nil, asConnectError(err)
	}
	if !p.IsMember(req.Msg.ActorID) || !p.Role(req.Msg.ActorID).CanDisband() {
		return nil, asConnectError(registry.ErrInsufficientRole)
	}
	if err := s.reg.Disband(req.Msg.PartyID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.DisbandResponse{}), nil
}

func (s *PartyService) Invite(ctx context.Context, req *connect.Request[rpc.InviteRequest]) (*connect.Response[rpc.InviteResponse], error) {
	if err := s.touchCooldown(req.Msg.ActorID); err != nil {
		return nil, asConnectError(err)
	}
	if err := s.reg.Invite(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.InviteResponse{}), nil
}

func (s *PartyService) AcceptInvite(ctx context.Context, req *connect.Request[rpc.AcceptInviteRequest]) (*connect.Response[rpc.AcceptInviteResponse], error) {
	if err := s.reg.AcceptInvite(req.Msg.PlayerID, req.Msg.PartyID); err != nil {
		return nil, asConnectError(err)
	}
	p, err := s.reg.Party(req.Msg.PartyID)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.AcceptInviteResponse{Party: toView(p)}), nil
}

func (s *PartyService) Leave(ctx context.Context, req *connect.Request[rpc.LeaveRequest]) (*connect.Response[rpc.LeaveResponse], error) {
	if err := s.reg.Leave(req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.LeaveResponse{}), nil
}

func (s *PartyService) Kick(ctx context.Context, req *connect.Request[rpc.KickRequest]) (*connect.Response[rpc.KickResponse], error) {
	if err := s.touchCooldown(req.Msg.ActorID); err != nil {
		return nil, asConnectError(err)
	}
	if err := s.reg.Kick(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.KickResponse{}), nil
}

func (s *PartyService) TransferLeadership(ctx context.Context, req *connect.Request[rpc.TransferLeadershipRequest]) (*connect.Response[rpc.TransferLeadershipResponse], error) {
	if err := s.reg.TransferLeadership(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.TransferLeadershipResponse{}), nil
}

func (s *PartyService) SetRole(ctx context.Context, req *connect.Request[rpc.SetRoleRequest]) (*connect.Response[rpc.SetRoleResponse], error) {
	role, err := party.ParseRole(req.Msg.Role)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.reg.SetRole(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID, role); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.SetRoleResponse{}), nil
}

func (s *PartyService) RequestJoin(ctx context.Context, req *connect.Request[rpc.RequestJoinRequest]) (*connect.Response[rpc.RequestJoinResponse], error) {
	if err := s.touchCooldown(req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	if err := s.reg.RequestJoin(req.Msg.PlayerID, req.Msg.PartyID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.RequestJoinResponse{}), nil
}

func (s *PartyService) AcceptJoinRequest(ctx context.Context, req *connect.Request[rpc.AcceptJoinRequestRequest]) (*connect.Response[rpc.AcceptJoinRequestResponse], error) {
	if err := s.reg.AcceptJoinRequest(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.AcceptJoinRequestResponse{}), nil
}

func (s *PartyService) DenyJoinRequest(ctx context.Context, req *connect.Request[rpc.DenyJoinRequestRequest]) (*connect.Response[rpc.DenyJoinRequestResponse], error) {
	if err := s.reg.DenyJoinRequest(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.DenyJoinRequestResponse{}), nil
}

// displayParty fetches the party and verifies the actor may change its
// display attributes.
func (s *PartyService) displayParty(partyID, actor uuid.UUID) (*party.Party, error) {
	p, err := s.reg.Party(partyID)
	if err != nil {
		return nil, err
	}
	if !p.IsMember(actor) || !p.Role(actor).CanRename() {
		return nil, registry.ErrInsufficientRole
	}
	return p, nil
}

func (s *PartyService) SetPublic(ctx context.Context, req *connect.Request[rpc.SetPublicRequest]) (*connect.Response[rpc.SetPublicResponse], error) {
	p, err := s.displayParty(req.Msg.PartyID, req.Msg.ActorID)
	if err != nil {
		return nil, asConnectError(err)
	}
	p.SetPublic(req.Msg.Public)
	return connect.NewResponse(&rpc.SetPublicResponse{}), nil
}

func (s *PartyService) SetName(ctx context.Context, req *connect.Request[rpc.SetNameRequest]) (*connect.Response[rpc.SetNameResponse], error) {
	p, err := s.displayParty(req.Msg.PartyID, req.Msg.ActorID)
	if err != nil {
		return nil, asConnectError(err)
	}
	if err := p.SetName(req.Msg.Name); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.SetNameResponse{}), nil
}

func (s *PartyService) SetColor(ctx context.Context, req *connect.Request[rpc.SetColorRequest]) (*connect.Response[rpc.SetColorResponse], error) {
	p, err := s.displayParty(req.Msg.PartyID, req.Msg.ActorID)
	if err != nil {
		return nil, asConnectError(err)
	}
	p.SetColor(req.Msg.Color)
	return connect.NewResponse(&rpc.SetColorResponse{}), nil
}

func (s *PartyService) SetIcon(ctx context.Context, req *connect.Request[rpc.SetIconRequest]) (*connect.Response[rpc.SetIconResponse], error) {
	p, err := s.displayParty(req.Msg.PartyID, req.Msg.ActorID)
	if err != nil {
		return nil, asConnectError(err)
	}
	if err := p.SetIcon(req.Msg.Icon); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.SetIconResponse{}), nil
}

func (s *PartyService) SetHome(ctx context.Context, req *connect.Request[rpc.SetHomeRequest]) (*connect.Response[rpc.SetHomeResponse], error) {
	home := &party.Home{
		World: party.NamedWorld(req.Msg.Home.World),
		X:     req.Msg.Home.X,
		Y:     req.Msg.Home.Y,
		Z:     req.Msg.Home.Z,
		Yaw:   float32(req.Msg.Home.Yaw),
		Pitch: float32(req.Msg.Home.Pitch),
	}
	if err := s.reg.SetHome(req.Msg.PartyID, req.Msg.ActorID, home); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.SetHomeResponse{}), nil
}

func (s *PartyService) Ban(ctx context.Context, req *connect.Request[rpc.BanRequest]) (*connect.Response[rpc.BanResponse], error) {
	if err := s.reg.Ban(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.BanResponse{}), nil
}

func (s *PartyService) Unban(ctx context.Context, req *connect.Request[rpc.UnbanRequest]) (*connect.Response[rpc.UnbanResponse], error) {
	if err := s.reg.Unban(req.Msg.PartyID, req.Msg.ActorID, req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.UnbanResponse{}), nil
}

func (s *PartyService) AddAlly(ctx context.Context, req *connect.Request[rpc.AddAllyRequest]) (*connect.Response[rpc.AddAllyResponse], error) {
	if err := s.reg.Ally(req.Msg.PartyID, req.Msg.ActorID, req.Msg.OtherPartyID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.AddAllyResponse{}), nil
}

func (s *PartyService) RemoveAlly(ctx context.Context, req *connect.Request[rpc.RemoveAllyRequest]) (*connect.Response[rpc.RemoveAllyResponse], error) {
	if err := s.reg.Unally(req.Msg.PartyID, req.Msg.ActorID, req.Msg.OtherPartyID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.RemoveAllyResponse{}), nil
}

func (s *PartyService) ClaimDailyReward(ctx context.Context, req *connect.Request[rpc.ClaimDailyRewardRequest]) (*connect.Response[rpc.ClaimDailyRewardResponse], error) {
	streak, err := s.reg.ClaimDailyReward(req.Msg.PlayerID)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.ClaimDailyRewardResponse{Streak: streak}), nil
}

func (s *PartyService) RecordKill(ctx context.Context, req *connect.Request[rpc.RecordKillRequest]) (*connect.Response[rpc.RecordKillResponse], error) {
	p := s.reg.PartyOf(req.Msg.PlayerID)
	if p == nil {
		return nil, asConnectError(registry.ErrNotInParty)
	}
	if err := s.reg.RecordKill(req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	unlocked, err := s.reg.CheckAchievements(p.ID())
	if err != nil {
		slog.Warn("Achievement check failed", "party_id", p.ID(), "error", err)
	}
	return connect.NewResponse(&rpc.RecordKillResponse{UnlockedAchievements: unlocked}), nil
}

func (s *PartyService) RecordDeath(ctx context.Context, req *connect.Request[rpc.RecordDeathRequest]) (*connect.Response[rpc.RecordDeathResponse], error) {
	if err := s.reg.RecordDeath(req.Msg.PlayerID); err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.RecordDeathResponse{}), nil
}

func (s *PartyService) GetParty(ctx context.Context, req *connect.Request[rpc.GetPartyRequest]) (*connect.Response[rpc.GetPartyResponse], error) {
	p, err := s.reg.Party(req.Msg.PartyID)
	if err != nil {
		return nil, asConnectError(err)
	}
	return connect.NewResponse(&rpc.GetPartyResponse{Party: toView(p)}), nil
}

func (s *PartyService) GetPlayerParty(ctx context.Context, req *connect.Request[rpc.GetPlayerPartyRequest]) (*connect.Response[rpc.GetPlayerPartyResponse], error) {
	p := s.reg.PartyOf(req.Msg.PlayerID)
	if p == nil {
		return connect.NewResponse(&rpc.GetPlayerPartyResponse{}), nil
	}
	view := toView(p)
	return connect.NewResponse(&rpc.GetPlayerPartyResponse{Party: &view}), nil
}

func (s *PartyService) ListParties(ctx context.Context, req *connect.Request[rpc.ListPartiesRequest]) (*connect.Response[rpc.ListPartiesResponse], error) {
	parties := s.reg.AllParties()
	views := make([]rpc.Party, 0, len(parties))
	for _, p := range parties {
		views = append(views, toView(p))
	}
	return connect.NewResponse(&rpc.ListPartiesResponse{Parties: views}), nil
}

func (s *PartyService) Leaderboard(ctx context.Context, req *connect.Request[rpc.LeaderboardRequest]) (*connect.Response[rpc.LeaderboardResponse], error) {
	metric, err := leaderboard.ParseMetric(req.Msg.Metric)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	limit := req.Msg.Limit
	if limit <= 0 {
		limit = defaultBoardLimit
	}

	top := s.boards.Top(metric, limit)
	entries := make([]rpc.LeaderboardEntry, 0, len(top))
	for i, p := range top {
		entries = append(entries, rpc.LeaderboardEntry{
			Rank:    i + 1,
			PartyID: p.ID(),
			Name:    p.Name(),
			Score:   leaderboard.Score(p, metric),
		})
	}
	return connect.NewResponse(&rpc.LeaderboardResponse{Metric: string(metric), Entries: entries}), nil
}

func (s *PartyService) PlayerConnected(ctx context.Context, req *connect.Request[rpc.PlayerConnectedRequest]) (*connect.Response[rpc.PlayerConnectedResponse], error) {
	s.tracker.Connect(req.Msg.PlayerID)
	return connect.NewResponse(&rpc.PlayerConnectedResponse{}), nil
}

func (s *PartyService) PlayerDisconnected(ctx context.Context, req *connect.Request[rpc.PlayerDisconnectedRequest]) (*connect.Response[rpc.PlayerDisconnectedResponse], error) {
	s.tracker.Disconnect(req.Msg.PlayerID)
	s.reg.CleanupPlayer(req.Msg.PlayerID)
	return connect.NewResponse(&rpc.PlayerDisconnectedResponse{}), nil
}

func (s *PartyService) PlayerMoved(ctx context.Context, req *connect.Request[rpc.PlayerMovedRequest]) (*connect.Response[rpc.PlayerMovedResponse], error) {
	pos := registry.Position{
		World: req.Msg.Position.World,
		X:     req.Msg.Position.X,
		Y:     req.Msg.Position.Y,
		Z:     req.Msg.Position.Z,
	}
	s.tracker.Move(req.Msg.PlayerID, pos)
	moved := s.reg.MarkPosition(req.Msg.PlayerID, pos)
	return connect.NewResponse(&rpc.PlayerMovedResponse{MarkerUpdate: moved}), nil
}

func (s *PartyService) Health(ctx context.Context, req *connect.Request[rpc.HealthRequest]) (*connect.Response[rpc.HealthResponse], error) {
	return connect.NewResponse(&rpc.HealthResponse{
		Status:         "ok",
		Parties:        s.reg.PartyCount(),
		GroupedPlayers: s.reg.GroupedPlayerCount(),
		Backend:        s.backend,
	}), nil
}

// toView flattens a live party into its response form.
func toView(p *party.Party) rpc.Party {
	members := make([]rpc.Member, 0, p.MemberCount())
	for _, id := range p.Members() {
		members = append(members, rpc.Member{PlayerID: id, Role: p.Role(id).String()})
	}
	invites := p.Invites()
	pending := make([]uuid.UUID, 0, len(invites))
	for id := range invites {
		pending = append(pending, id)
	}
	requests := p.JoinRequests()
	requesters := make([]uuid.UUID, 0, len(requests))
	for id := range requests {
		requesters = append(requesters, id)
	}

	view := rpc.Party{
		ID:              p.ID(),
		Leader:          p.Leader(),
		Members:         members,
		Name:            p.Name(),
		Color:           p.Color(),
		Icon:            p.Icon(),
		Public:          p.Public(),
		Allies:          p.Allies(),
		Banned:          p.Banned(),
		PendingInvites:  pending,
		JoinRequests:    requesters,
		Kills:           p.Kills(),
		Deaths:          p.Deaths(),
		PlayTimeMillis:  p.PlayTime().Milliseconds(),
		Achievements:    p.Achievements(),
		ConsecutiveDays: p.ConsecutiveDays(),
		CreatedAtMillis: p.CreatedAt().UnixMilli(),
	}
	if last := p.LastRewardDate(); !last.IsZero() {
		view.LastClaimMillis = last.UnixMilli()
	}
	if h := p.Home(); h != nil {
		view.Home = &rpc.Home{
			X:     h.X,
			Y:     h.Y,
			Z:     h.Z,
			Yaw:   float64(h.Yaw),
			Pitch: float64(h.Pitch),
		}
		if h.World != nil {
			view.Home.World = h.World.Name()
		}
	}
	return view
}
