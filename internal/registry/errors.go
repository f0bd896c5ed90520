package registry

import "errors"

// Validation and expiry failures reported to callers. Expiry is distinct
// from "not found" so callers can give a more precise response.
var (
	ErrAlreadyInParty       = errors.New("player is already in a party")
	ErrNotInParty           = errors.New("player is not in a party")
	ErrPartyNotFound        = errors.New("party not found")
	ErrNoInvite             = errors.New("no pending invite")
	ErrInviteExpired        = errors.New("invite has expired")
	ErrPartyFull            = errors.New("party is at member capacity")
	ErrNotMember            = errors.New("player is not a member of this party")
	ErrBanned               = errors.New("player is banned from this party")
	ErrNotPublic            = errors.New("party does not accept join requests")
	ErrNoRequest            = errors.New("no pending join request")
	ErrInsufficientRole     = errors.New("insufficient role for this action")
	ErrRewardAlreadyClaimed = errors.New("daily reward already claimed today")
	ErrOnCooldown           = errors.New("command is on cooldown")
)
