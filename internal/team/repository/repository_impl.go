package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/veritext/veritext/internal/team/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() teamdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, team *teamdomain.Team) error {
	return db.WithContext(ctx).Create(team).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*teamdomain.Team, error) {
	var team teamdomain.Team
	err := db.WithContext(ctx).Where("id = ?", id).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, teamdomain.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *repo) FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*teamdomain.Team, error) {
	var team teamdomain.Team
	err := db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, teamdomain.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *repo) FindByMember(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*teamdomain.Team, error) {
	var team teamdomain.Team
	err := db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, teamdomain.ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, member *teamdomain.TeamMember) error {
	return db.WithContext(ctx).Create(member).Error
}

func (r *repo) DeleteMember(ctx context.Context, db *gorm.DB, teamID, userID snowflake.ID) (int64, error) {
	tx := db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&teamdomain.TeamMember{})
	return tx.RowsAffected, tx.Error
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, teamID snowflake.ID) ([]teamdomain.TeamMember, error) {
	var members []teamdomain.TeamMember
	err := db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
