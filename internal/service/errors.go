package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/sylvanite/partyhub/internal/party"
	"github.com/sylvanite/partyhub/internal/registry"
)

// asConnectError maps registry and party sentinel errors onto Connect
// codes. Anything unrecognized is an internal error.
func asConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, registry.ErrPartyNotFound),
		errors.Is(err, registry.ErrNoInvite),
		errors.Is(err, registry.ErrNoRequest):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, registry.ErrAlreadyInParty):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, registry.ErrPartyFull),
		errors.Is(err, registry.ErrOnCooldown):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, registry.ErrInviteExpired),
		errors.Is(err, registry.ErrNotInParty),
		errors.Is(err, registry.ErrNotMember),
		errors.Is(err, registry.ErrRewardAlreadyClaimed),
		errors.Is(err, party.ErrNotMember):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, registry.ErrInsufficientRole),
		errors.Is(err, registry.ErrBanned),
		errors.Is(err, registry.ErrNotPublic):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, party.ErrNameTooLong),
		errors.Is(err, party.ErrIconTooLong):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
