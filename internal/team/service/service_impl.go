package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/clock"
	teamdomain "github.com/veritext/veritext/internal/team/domain"
	"github.com/veritext/veritext/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     teamdomain.Repository
	AuthRepo authdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clk      clock.Clock
	repo     teamdomain.Repository
	authRepo authdomain.Repository
}

func New(p Params) teamdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("team.service"),
		genID:    p.GenID,
		clk:      p.Clock,
		repo:     p.Repo,
		authRepo: p.AuthRepo,
	}
}

func (s *Service) Create(ctx context.Context, ownerID snowflake.ID, req teamdomain.CreateTeamRequest) (*teamdomain.TeamResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, teamdomain.ErrInvalidName
	}

	if _, err := s.repo.FindByOwner(ctx, s.db, ownerID); err == nil {
		return nil, teamdomain.ErrAlreadyOwner
	} else if !errors.Is(err, teamdomain.ErrTeamNotFound) {
		return nil, err
	}

	now := s.clk.Now().UTC()
	team := &teamdomain.Team{
		ID:        s.genID.Generate(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, team); err != nil {
			return err
		}
		return s.repo.InsertMember(ctx, tx, &teamdomain.TeamMember{
			TeamID:    team.ID,
			UserID:    ownerID,
			Role:      teamdomain.MemberRoleOwner,
			CreatedAt: now,
		})
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, teamdomain.ErrTeamExists
		}
		return nil, err
	}

	s.log.Info("team created",
		zap.String("team_id", team.ID.String()),
		zap.String("owner_id", ownerID.String()))
	return s.toResponse(ctx, team)
}

func (s *Service) GetOwn(ctx context.Context, userID snowflake.ID) (*teamdomain.TeamResponse, error) {
	team, err := s.repo.FindByMember(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, team)
}

func (s *Service) AddMember(ctx context.Context, actingUserID snowflake.ID, req teamdomain.AddMemberRequest) (*teamdomain.MemberResponse, error) {
	team, err := s.repo.FindByOwner(ctx, s.db, actingUserID)
	if err != nil {
		return nil, err
	}

	user, err := s.authRepo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return nil, teamdomain.ErrMemberNotFound
		}
		return nil, err
	}

	member := &teamdomain.TeamMember{
		TeamID:    team.ID,
		UserID:    user.ID,
		Role:      teamdomain.MemberRoleMember,
		CreatedAt: s.clk.Now().UTC(),
	}
	if err := s.repo.InsertMember(ctx, s.db, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, teamdomain.ErrAlreadyMember
		}
		return nil, err
	}

	resp := toMemberResponse(member, user)
	return &resp, nil
}

func (s *Service) RemoveMember(ctx context.Context, actingUserID snowflake.ID, memberID snowflake.ID) error {
	team, err := s.repo.FindByOwner(ctx, s.db, actingUserID)
	if err != nil {
		return err
	}
	if memberID == team.OwnerID {
		return teamdomain.ErrCannotDropOwner
	}

	affected, err := s.repo.DeleteMember(ctx, s.db, team.ID, memberID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return teamdomain.ErrMemberNotFound
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, actingUserID snowflake.ID) ([]teamdomain.MemberResponse, error) {
	team, err := s.repo.FindByMember(ctx, s.db, actingUserID)
	if err != nil {
		return nil, err
	}
	return s.memberResponses(ctx, team.ID)
}

func (s *Service) toResponse(ctx context.Context, team *teamdomain.Team) (*teamdomain.TeamResponse, error) {
	members, err := s.memberResponses(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	return &teamdomain.TeamResponse{
		ID:        team.ID.String(),
		Name:      team.Name,
		OwnerID:   team.OwnerID.String(),
		Members:   members,
		CreatedAt: team.CreatedAt,
	}, nil
}

func (s *Service) memberResponses(ctx context.Context, teamID snowflake.ID) ([]teamdomain.MemberResponse, error) {
	members, err := s.repo.ListMembers(ctx, s.db, teamID)
	if err != nil {
		return nil, err
	}

	responses := make([]teamdomain.MemberResponse, 0, len(members))
	for i := range members {
		user, err := s.authRepo.FindByID(ctx, members[i].UserID)
		if err != nil {
			// A membership row without an account is stale; skip it
			// rather than failing the whole listing.
			s.log.Warn("team member without account",
				zap.String("user_id", members[i].UserID.String()))
			continue
		}
		responses = append(responses, toMemberResponse(&members[i], user))
	}
	return responses, nil
}

func toMemberResponse(member *teamdomain.TeamMember, user *authdomain.User) teamdomain.MemberResponse {
	return teamdomain.MemberResponse{
		UserID:   user.ID.String(),
		Email:    user.Email,
		Name:     user.Name,
		Role:     member.Role,
		JoinedAt: member.CreatedAt,
	}
}
