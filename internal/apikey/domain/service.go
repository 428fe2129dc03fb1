package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, userID snowflake.ID) ([]Response, error)
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*SecretResponse, error)
	Deactivate(ctx context.Context, userID snowflake.ID, keyID snowflake.ID) error
	// Resolve authenticates a raw API key. It returns the matching key
	// only when both the key and its owner are active.
	Resolve(ctx context.Context, rawKey string) (*APIKey, error)
	// TouchLastUsed records key usage. Failures are logged, never
	// surfaced: a stale timestamp must not fail the request.
	TouchLastUsed(ctx context.Context, keyID snowflake.ID)
}

type CreateRequest struct {
	Name string `json:"name" binding:"required"`
}

type Response struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SecretResponse carries the plaintext key. It is returned once from
// Create and never again.
type SecretResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrNotFound    = errors.New("not_found")
	ErrInvalidKey  = errors.New("invalid_api_key")
)
