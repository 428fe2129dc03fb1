package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	MemberRoleOwner  = "owner"
	MemberRoleMember = "member"
)

type Team struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id,string"`
	Name      string       `gorm:"not null;uniqueIndex:ux_teams_name" json:"name"`
	OwnerID   snowflake.ID `gorm:"not null;index" json:"owner_id,string"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Team) TableName() string { return "teams" }

type TeamMember struct {
	TeamID    snowflake.ID `gorm:"primaryKey" json:"team_id,string"`
	UserID    snowflake.ID `gorm:"primaryKey" json:"user_id,string"`
	Role      string       `gorm:"not null;default:member" json:"role"`
	CreatedAt time.Time    `json:"created_at"`
}

func (TeamMember) TableName() string { return "team_members" }
