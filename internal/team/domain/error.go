package domain

import "errors"

var (
	ErrInvalidName     = errors.New("team name is required")
	ErrTeamExists      = errors.New("team name already taken")
	ErrAlreadyOwner    = errors.New("account already owns a team")
	ErrTeamNotFound    = errors.New("team not found")
	ErrAlreadyMember   = errors.New("account is already a member")
	ErrMemberNotFound  = errors.New("member not found")
	ErrCannotDropOwner = errors.New("owner cannot be removed from their team")
)
