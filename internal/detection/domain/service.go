package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/veritext/veritext/internal/actor"
	"github.com/veritext/veritext/pkg/db/pagination"
)

type Service interface {
	Detect(ctx context.Context, act *actor.Actor, req DetectRequest) (*DetectResponse, error)
	ListHistory(ctx context.Context, userID snowflake.ID, page pagination.Pagination) (*HistoryPage, error)
	GetHistory(ctx context.Context, userID snowflake.ID, id snowflake.ID) (*HistoryItem, error)
	RenameHistory(ctx context.Context, userID snowflake.ID, id snowflake.ID, title string) (*HistoryItem, error)
	DeleteHistory(ctx context.Context, userID snowflake.ID, id snowflake.ID) error
	BatchDeleteHistory(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) (int64, error)
	ClearHistory(ctx context.Context, userID snowflake.ID) (int64, error)
}

type DetectRequest struct {
	Text      string         `json:"text"`
	Functions []string       `json:"functions"`
	Options   map[string]any `json:"options"`
}

type DetectResponse struct {
	DetectionID    string  `json:"detection_id,omitempty"`
	Label          string  `json:"label"`
	Score          float64 `json:"score"`
	RawScore       float64 `json:"raw_score"`
	Threshold      float64 `json:"threshold"`
	ModelName      string  `json:"model_name"`
	RemainingQuota int64   `json:"remaining_quota"`
}

type HistoryItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CharCount int64     `json:"char_count"`
	Label     string    `json:"label"`
	Score     float64   `json:"score"`
	RawScore  float64   `json:"raw_score"`
	Threshold float64   `json:"threshold"`
	ModelName string    `json:"model_name"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryPage struct {
	Items    []HistoryItem        `json:"items"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

var (
	ErrEmptyText  = errors.New("empty text")
	ErrEmptyTitle = errors.New("empty title")
	ErrNotFound   = errors.New("detection not found")
)

// QuotaExceededError rejects a request that would overrun the actor's
// daily budget, carrying the numbers the caller needs to back off.
type QuotaExceededError struct {
	Limit     int64 `json:"limit"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: used %d of %d", e.Used, e.Limit)
}
