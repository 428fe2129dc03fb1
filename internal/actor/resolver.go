package actor

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/auth/token"
	"github.com/veritext/veritext/internal/authorization"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Resolver struct {
	log   *zap.Logger
	keys  apikeydomain.Service
	codec *token.Codec
	users authdomain.Repository
}

type Params struct {
	fx.In

	Log   *zap.Logger
	Keys  apikeydomain.Service
	Codec *token.Codec
	Users authdomain.Repository
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		log:   p.Log.Named("actor.resolver"),
		keys:  p.Keys,
		codec: p.Codec,
		users: p.Users,
	}
}

// Resolve authenticates a request from its credential headers. An API key,
// when present, is authoritative: a bad key fails the request outright
// rather than falling through to the bearer credential.
func (r *Resolver) Resolve(ctx context.Context, apiKeyHeader, authorizationHeader string) (*Actor, error) {
	if apiKey := strings.TrimSpace(apiKeyHeader); apiKey != "" {
		return r.resolveAPIKey(ctx, apiKey)
	}

	bearer, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, ErrCredentialRequired
	}
	return r.resolveBearer(ctx, bearer)
}

func (r *Resolver) resolveAPIKey(ctx context.Context, rawKey string) (*Actor, error) {
	key, err := r.keys.Resolve(ctx, rawKey)
	if errors.Is(err, apikeydomain.ErrInvalidKey) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}

	actor, err := r.userActor(ctx, key.UserID)
	if err != nil {
		return nil, err
	}
	actor.APIKeyID = key.ID

	r.keys.TouchLastUsed(ctx, key.ID)
	return actor, nil
}

func (r *Resolver) resolveBearer(ctx context.Context, raw string) (*Actor, error) {
	claims, err := r.codec.Verify(raw)
	if err != nil {
		return nil, err
	}

	if claims.SubjectType == token.SubjectTypeGuest {
		return &Actor{
			Kind: KindGuest,
			ID:   claims.GuestID,
			Role: authorization.RoleVisitor,
		}, nil
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return nil, ErrInvalidCredentials
	}
	return r.userActor(ctx, userID)
}

func (r *Resolver) userActor(ctx context.Context, userID snowflake.ID) (*Actor, error) {
	user, err := r.users.FindByID(ctx, userID)
	if errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	role, err := authorization.Parse(user.Role)
	if err != nil {
		// A corrupt stored role denies access instead of granting a
		// default tier.
		r.log.Warn("rejecting user with unknown role",
			zap.String("user_id", user.ID.String()),
			zap.String("role", user.Role),
		)
		return nil, ErrInvalidCredentials
	}

	return &Actor{
		Kind: KindUser,
		ID:   user.ID.String(),
		Role: role,
		User: user,
	}, nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tokenValue := strings.TrimSpace(parts[1])
	if tokenValue == "" {
		return "", false
	}
	return tokenValue, true
}

var Module = fx.Module("actor",
	fx.Provide(NewResolver),
)
