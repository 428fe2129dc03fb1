// Package actor resolves the caller identity behind every request, from
// either an API key or a bearer credential.
package actor

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/authorization"
)

const (
	KindUser  = "user"
	KindGuest = "guest"
)

var (
	ErrCredentialRequired = errors.New("credential required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAPIKey      = errors.New("invalid api key")
	ErrAccountDisabled    = errors.New("account disabled")
)

// Actor is the authenticated caller of a request.
type Actor struct {
	Kind string
	ID   string
	Role authorization.Role

	// User is set for registered accounts, nil for guests.
	User *authdomain.User
	// APIKeyID is non-zero when the actor authenticated with an API key.
	APIKeyID snowflake.ID
}

// IsGuest reports whether the actor is an anonymous visitor.
func (a *Actor) IsGuest() bool { return a.Kind == KindGuest }

// UserID returns the account id, or zero for guests.
func (a *Actor) UserID() snowflake.ID {
	if a.User == nil {
		return 0
	}
	return a.User.ID
}
