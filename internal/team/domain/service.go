package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, ownerID snowflake.ID, req CreateTeamRequest) (*TeamResponse, error)
	GetOwn(ctx context.Context, userID snowflake.ID) (*TeamResponse, error)
	AddMember(ctx context.Context, actingUserID snowflake.ID, req AddMemberRequest) (*MemberResponse, error)
	RemoveMember(ctx context.Context, actingUserID snowflake.ID, memberID snowflake.ID) error
	ListMembers(ctx context.Context, actingUserID snowflake.ID) ([]MemberResponse, error)
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type TeamResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	OwnerID   string           `json:"owner_id"`
	Members   []MemberResponse `json:"members"`
	CreatedAt time.Time        `json:"created_at"`
}

type MemberResponse struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
