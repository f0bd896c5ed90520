// Package rpc defines the wire types and procedure names of the party
// service. Messages are plain structs carried by the JSON codec; ids are
// UUID strings on the wire.
package rpc

import "github.com/google/uuid"

// Procedure paths, one per operation.
const (
	ProcedureCreateParty        = "/party.v1.PartyService/CreateParty"
	ProcedureDisband            = "/party.v1.PartyService/Disband"
	ProcedureInvite             = "/party.v1.PartyService/Invite"
	ProcedureAcceptInvite       = "/party.v1.PartyService/AcceptInvite"
	ProcedureLeave              = "/party.v1.PartyService/Leave"
	ProcedureKick               = "/party.v1.PartyService/Kick"
	ProcedureTransferLeadership = "/party.v1.PartyService/TransferLeadership"
	ProcedureSetRole            = "/party.v1.PartyService/SetRole"
	ProcedureRequestJoin        = "/party.v1.PartyService/RequestJoin"
	ProcedureAcceptJoinRequest  = "/party.v1.PartyService/AcceptJoinRequest"
	ProcedureDenyJoinRequest    = "/party.v1.PartyService/DenyJoinRequest"
	ProcedureSetPublic          = "/party.v1.PartyService/SetPublic"
	ProcedureSetName            = "/party.v1.PartyService/SetName"
	ProcedureSetColor           = "/party.v1.PartyService/SetColor"
	ProcedureSetIcon            = "/party.v1.PartyService/SetIcon"
	ProcedureSetHome            = "/party.v1.PartyService/SetHome"
	ProcedureBan                = "/party.v1.PartyService/Ban"
	ProcedureUnban              = "/party.v1.PartyService/Unban"
	ProcedureAddAlly            = "/party.v1.PartyService/AddAlly"
	ProcedureRemoveAlly         = "/party.v1.PartyService/RemoveAlly"
	ProcedureClaimDailyReward   = "/party.v1.PartyService/ClaimDailyReward"
	ProcedureRecordKill         = "/party.v1.PartyService/RecordKill"
	ProcedureRecordDeath        = "/party.v1.PartyService/RecordDeath"
	ProcedureGetParty           = "/party.v1.PartyService/GetParty"
	ProcedureGetPlayerParty     = "/party.v1.PartyService/GetPlayerParty"
	ProcedureListParties        = "/party.v1.PartyService/ListParties"
	ProcedureLeaderboard        = "/party.v1.PartyService/Leaderboard"
	ProcedurePlayerConnected    = "/party.v1.PartyService/PlayerConnected"
	ProcedurePlayerDisconnected = "/party.v1.PartyService/PlayerDisconnected"
	ProcedurePlayerMoved        = "/party.v1.PartyService/PlayerMoved"
	ProcedureHealth             = "/party.v1.PartyService/Health"
)

// Member is one party member with its role name.
type Member struct {
	PlayerID uuid.UUID `json:"player_id"`
	Role     string    `json:"role"`
}

// Home is a stored party home location.
type Home struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"yaw,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`
}

// Position is a live player location.
type Position struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Party is the response view of a party.
type Party struct {
	ID              uuid.UUID   `json:"id"`
	Leader          uuid.UUID   `json:"leader"`
	Members         []Member    `json:"members"`
	Name            string      `json:"name,omitempty"`
	Color           string      `json:"color"`
	Icon            string      `json:"icon"`
	Public          bool        `json:"public"`
	Home            *Home       `json:"home,omitempty"`
	Allies          []uuid.UUID `json:"allies,omitempty"`
	Banned          []uuid.UUID `json:"banned,omitempty"`
	PendingInvites  []uuid.UUID `json:"pending_invites,omitempty"`
	JoinRequests    []uuid.UUID `json:"join_requests,omitempty"`
	Kills           int         `json:"kills"`
	Deaths          int         `json:"deaths"`
	PlayTimeMillis  int64       `json:"play_time_ms"`
	Achievements    []string    `json:"achievements,omitempty"`
	ConsecutiveDays int         `json:"consecutive_days"`
	LastClaimMillis int64       `json:"last_reward_claim,omitempty"`
	CreatedAtMillis int64       `json:"created_at"`
}

type CreatePartyRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type CreatePartyResponse struct {
	Party Party `json:"party"`
}

type DisbandRequest struct {
	PartyID uuid.UUID `json:"party_id"`
	ActorID uuid.UUID `json:"actor_id"`
}

type DisbandResponse struct{}

type InviteRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type InviteResponse struct{}

type AcceptInviteRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	PartyID  uuid.UUID `json:"party_id"`
}

type AcceptInviteResponse struct {
	Party Party `json:"party"`
}

type LeaveRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type LeaveResponse struct{}

type KickRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type KickResponse struct{}

type TransferLeadershipRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type TransferLeadershipResponse struct{}

type SetRoleRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
	Role     string    `json:"role"`
}

type SetRoleResponse struct{}

type RequestJoinRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	PartyID  uuid.UUID `json:"party_id"`
}

type RequestJoinResponse struct{}

type AcceptJoinRequestRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type AcceptJoinRequestResponse struct{}

type DenyJoinRequestRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type DenyJoinRequestResponse struct{}

type SetPublicRequest struct {
	PartyID uuid.UUID `json:"party_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Public  bool      `json:"public"`
}

type SetPublicResponse struct{}

type SetNameRequest struct {
	PartyID uuid.UUID `json:"party_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Name    string    `json:"name"`
}

type SetNameResponse struct{}

type SetColorRequest struct {
	PartyID uuid.UUID `json:"party_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Color   string    `json:"color"`
}

type SetColorResponse struct{}

type SetIconRequest struct {
	PartyID uuid.UUID `json:"party_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Icon    string    `json:"icon"`
}

type SetIconResponse struct{}

type SetHomeRequest struct {
	PartyID uuid.UUID `json:"party_id"`
	ActorID uuid.UUID `json:"actor_id"`
	Home    Home      `json:"home"`
}

type SetHomeResponse struct{}

type BanRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type BanResponse struct{}

type UnbanRequest struct {
	PartyID  uuid.UUID `json:"party_id"`
	ActorID  uuid.UUID `json:"actor_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

type UnbanResponse struct{}

type AddAllyRequest struct {
	PartyID      uuid.UUID `json:"party_id"`
	ActorID      uuid.UUID `json:"actor_id"`
	OtherPartyID uuid.UUID `json:"other_party_id"`
}

type AddAllyResponse struct{}

type RemoveAllyRequest struct {
	PartyID      uuid.UUID `json:"party_id"`
	ActorID      uuid.UUID `json:"actor_id"`
	OtherPartyID uuid.UUID `json:"other_party_id"`
}

type RemoveAllyResponse struct{}

type ClaimDailyRewardRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type ClaimDailyRewardResponse struct {
	Streak int `json:"streak"`
}

type RecordKillRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type RecordKillResponse struct {
	UnlockedAchievements []string `json:"unlocked_achievements,omitempty"`
}

type RecordDeathRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type RecordDeathResponse struct{}

type GetPartyRequest struct {
	PartyID uuid.UUID `json:"party_id"`
}

type GetPartyResponse struct {
	Party Party `json:"party"`
}

type GetPlayerPartyRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

// GetPlayerPartyResponse carries a nil Party for ungrouped players.
type GetPlayerPartyResponse struct {
	Party *Party `json:"party,omitempty"`
}

type ListPartiesRequest struct{}

type ListPartiesResponse struct {
	Parties []Party `json:"parties"`
}

type LeaderboardRequest struct {
	Metric string `json:"metric"`
	Limit  int    `json:"limit"`
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank    int       `json:"rank"`
	PartyID uuid.UUID `json:"party_id"`
	Name    string    `json:"name,omitempty"`
	Score   float64   `json:"score"`
}

type LeaderboardResponse struct {
	Metric  string             `json:"metric"`
	Entries []LeaderboardEntry `json:"entries"`
}

type PlayerConnectedRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type PlayerConnectedResponse struct{}

type PlayerDisconnectedRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type PlayerDisconnectedResponse struct{}

type PlayerMovedRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Position Position  `json:"position"`
}

// PlayerMovedResponse reports whether the move is significant enough for
// marker consumers to redraw.
type PlayerMovedResponse struct {
	MarkerUpdate bool `json:"marker_update"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status         string `json:"status"`
	Parties        int    `json:"parties"`
	GroupedPlayers int    `json:"grouped_players"`
	Backend        string `json:"backend"`
}
