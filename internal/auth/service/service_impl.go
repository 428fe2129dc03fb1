package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/auth/password"
	"github.com/veritext/veritext/internal/auth/token"
	"github.com/veritext/veritext/internal/authorization"
	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	maxListLimit      = 200
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  domain.Repository
	Codec *token.Codec
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	codec *token.Codec
	genID *snowflake.Node
	clk   clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("auth.service"),
		repo:  p.Repo,
		codec: p.Codec,
		genID: p.GenID,
		clk:   p.Clock,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, domain.ErrNameExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		Role:         string(authorization.RoleIndividual),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Two registrations can pass the pre-checks concurrently; the
		// unique indexes arbitrate.
		if db.IsDuplicateKeyErr(err) {
			if _, findErr := s.repo.FindByEmail(ctx, email); findErr == nil {
				return nil, domain.ErrEmailExists
			}
			return nil, domain.ErrNameExists
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.authResponse(user)
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	return s.authResponse(user)
}

func (s *Service) GuestToken(ctx context.Context) (*domain.TokenResponse, error) {
	_ = ctx
	guestID := uuid.NewString()
	raw, ttl, err := s.codec.IssueGuest(guestID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenResponse{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context, id snowflake.ID) (*domain.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id snowflake.ID, req domain.UpdateProfileRequest) (*domain.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := domain.Profile{UserID: user.ID, UpdatedAt: s.clk.Now().UTC()}
	if user.Profile != nil {
		profile.FirstName = user.Profile.FirstName
		profile.Surname = user.Profile.Surname
		profile.Organization = user.Profile.Organization
		profile.Industry = user.Profile.Industry
		profile.JobRole = user.Profile.JobRole
	}
	if req.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.Surname != nil {
		profile.Surname = strings.TrimSpace(*req.Surname)
	}
	if req.Organization != nil {
		profile.Organization = strings.TrimSpace(*req.Organization)
	}
	if req.Industry != nil {
		profile.Industry = strings.TrimSpace(*req.Industry)
	}
	if req.JobRole != nil {
		profile.JobRole = strings.TrimSpace(*req.JobRole)
	}

	if err := s.repo.UpsertProfile(ctx, &profile); err != nil {
		return nil, err
	}

	user.Profile = &profile
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) ListUsers(ctx context.Context, req domain.ListUsersRequest) ([]domain.UserResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	users, err := s.repo.List(ctx, limit, req.AfterID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	return resp, nil
}

func (s *Service) SetUserRole(ctx context.Context, id snowflake.ID, role string) error {
	parsed, err := authorization.Parse(role)
	if err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, id, map[string]any{
		"role":       string(parsed),
		"updated_at": s.clk.Now().UTC(),
	})
}

func (s *Service) SetUserActive(ctx context.Context, id snowflake.ID, active bool) error {
	return s.repo.UpdateFields(ctx, id, map[string]any{
		"is_active":  active,
		"updated_at": s.clk.Now().UTC(),
	})
}

func (s *Service) authResponse(user *domain.User) (*domain.AuthResponse, error) {
	raw, ttl, err := s.codec.IssueUser(user.ID.String())
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{
		Token: domain.TokenResponse{
			AccessToken: raw,
			TokenType:   "Bearer",
			ExpiresIn:   int64(ttl.Seconds()),
		},
		User: toUserResponse(user),
	}, nil
}

func toUserResponse(user *domain.User) domain.UserResponse {
	resp := domain.UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
	if user.Profile != nil {
		resp.FirstName = user.Profile.FirstName
		resp.Surname = user.Profile.Surname
		resp.Organization = user.Profile.Organization
		resp.Industry = user.Profile.Industry
		resp.JobRole = user.Profile.JobRole
	}
	return resp
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address), nil
}
