package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GuestToken(ctx context.Context) (*TokenResponse, error)
	CurrentUser(ctx context.Context, id snowflake.ID) (*UserResponse, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, req UpdateProfileRequest) (*UserResponse, error)
	ListUsers(ctx context.Context, req ListUsersRequest) ([]UserResponse, error)
	SetUserRole(ctx context.Context, id snowflake.ID, role string) error
	SetUserActive(ctx context.Context, id snowflake.ID, active bool) error
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	// Identifier accepts either the account email or the account name.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName    *string `json:"first_name"`
	Surname      *string `json:"surname"`
	Organization *string `json:"organization"`
	Industry     *string `json:"industry"`
	JobRole      *string `json:"job_role"`
}

type ListUsersRequest struct {
	Limit   int          `form:"limit,default=50"`
	AfterID snowflake.ID `form:"after_id"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	FirstName    string    `json:"first_name,omitempty"`
	Surname      string    `json:"surname,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Industry     string    `json:"industry,omitempty"`
	JobRole      string    `json:"job_role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  UserResponse  `json:"user"`
}
