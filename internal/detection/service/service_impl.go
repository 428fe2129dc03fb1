package service

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/veritext/veritext/internal/actor"
	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/internal/detection/client"
	detectiondomain "github.com/veritext/veritext/internal/detection/domain"
	"github.com/veritext/veritext/internal/quota"
	usagedomain "github.com/veritext/veritext/internal/usage/domain"
	"github.com/veritext/veritext/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// Each user keeps at most this many history rows; the oldest are
	// evicted on insert.
	historyLimit = 100

	titleRuneLimit  = 50
	defaultPageSize = 20
	maxPageSize     = 100
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      detectiondomain.Repository
	UsageRepo usagedomain.Repository
	Quota     *quota.Service
	Client    client.Client
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clk       clock.Clock
	repo      detectiondomain.Repository
	usageRepo usagedomain.Repository
	quota     *quota.Service
	client    client.Client
}

func New(p Params) detectiondomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("detection.service"),
		genID:     p.GenID,
		clk:       p.Clock,
		repo:      p.Repo,
		usageRepo: p.UsageRepo,
		quota:     p.Quota,
		client:    p.Client,
	}
}

func (s *Service) Detect(ctx context.Context, act *actor.Actor, req detectiondomain.DetectRequest) (*detectiondomain.DetectResponse, error) {
	text := req.Text
	if strings.TrimSpace(text) == "" {
		return nil, detectiondomain.ErrEmptyText
	}
	charCount := int64(utf8.RuneCountInString(text))

	// The admission lock stays held until the usage record commits, so
	// a concurrent request for the same actor cannot read the ledger
	// between this check and the insert below.
	release := s.quota.Acquire(ctx, act.Kind, act.ID)
	defer release()

	decision, err := s.quota.Admit(ctx, act.Kind, act.ID, charCount)
	if err != nil {
		return nil, err
	}
	if !decision.Admitted {
		return nil, &detectiondomain.QuotaExceededError{
			Limit:     decision.Limit,
			Used:      decision.Used,
			Remaining: decision.Remaining,
		}
	}

	result, err := s.client.Detect(ctx, text)
	if err != nil {
		return nil, err
	}

	score := normalizeScore(result.Score, result.Threshold)
	label := strings.ToLower(strings.TrimSpace(result.Label))
	now := s.clk.Now().UTC()

	var detectionID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var detID *snowflake.ID
		if !act.IsGuest() {
			detection := &detectiondomain.Detection{
				ID:        s.genID.Generate(),
				UserID:    act.UserID(),
				Title:     deriveTitle(text),
				Content:   text,
				CharCount: charCount,
				Score:     score,
				RawScore:  result.Score,
				Threshold: result.Threshold,
				Label:     label,
				ModelName: result.ModelName,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Insert(ctx, tx, detection); err != nil {
				return err
			}
			if _, err := s.repo.TrimToLimit(ctx, tx, act.UserID(), historyLimit); err != nil {
				return err
			}
			detectionID = detection.ID.String()
			detID = &detection.ID
		}

		record := &usagedomain.UsageRecord{
			ID:          s.genID.Generate(),
			ActorType:   act.Kind,
			ActorID:     act.ID,
			CharCount:   charCount,
			DetectionID: detID,
			CreatedAt:   now,
		}
		if len(req.Functions) > 0 {
			record.Meta = datatypes.JSONMap{"functions": req.Functions}
		}
		return s.usageRepo.Insert(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}

	return &detectiondomain.DetectResponse{
		DetectionID:    detectionID,
		Label:          label,
		Score:          score,
		RawScore:       result.Score,
		Threshold:      result.Threshold,
		ModelName:      result.ModelName,
		RemainingQuota: decision.RemainingAfter,
	}, nil
}

func (s *Service) ListHistory(ctx context.Context, userID snowflake.ID, page pagination.Pagination) (*detectiondomain.HistoryPage, error) {
	limit := page.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var beforeID snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, detectiondomain.ErrNotFound
		}
		parsed, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, detectiondomain.ErrNotFound
		}
		beforeID = parsed
	}

	detections, err := s.repo.List(ctx, s.db, userID, limit+1, beforeID)
	if err != nil {
		return nil, err
	}

	rows := make([]*detectiondomain.Detection, 0, len(detections))
	for i := range detections {
		rows = append(rows, &detections[i])
	}
	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(d *detectiondomain.Detection) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: d.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	items := make([]detectiondomain.HistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toHistoryItem(row))
	}
	return &detectiondomain.HistoryPage{Items: items, PageInfo: pageInfo}, nil
}

func (s *Service) GetHistory(ctx context.Context, userID snowflake.ID, id snowflake.ID) (*detectiondomain.HistoryItem, error) {
	detection, err := s.repo.FindByID(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	item := toHistoryItem(detection)
	return &item, nil
}

func (s *Service) RenameHistory(ctx context.Context, userID snowflake.ID, id snowflake.ID, title string) (*detectiondomain.HistoryItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, detectiondomain.ErrEmptyTitle
	}

	affected, err := s.repo.UpdateTitle(ctx, s.db, userID, id, title)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, detectiondomain.ErrNotFound
	}
	return s.GetHistory(ctx, userID, id)
}

func (s *Service) DeleteHistory(ctx context.Context, userID snowflake.ID, id snowflake.ID) error {
	affected, err := s.repo.Delete(ctx, s.db, userID, []snowflake.ID{id})
	if err != nil {
		return err
	}
	if affected == 0 {
		return detectiondomain.ErrNotFound
	}
	return nil
}

func (s *Service) BatchDeleteHistory(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) (int64, error) {
	return s.repo.Delete(ctx, s.db, userID, ids)
}

func (s *Service) ClearHistory(ctx context.Context, userID snowflake.ID) (int64, error) {
	return s.repo.DeleteAll(ctx, s.db, userID)
}

// normalizeScore maps the backend's raw score onto (0, 1) centered at
// the decision threshold.
func normalizeScore(raw, threshold float64) float64 {
	return 1 / (1 + math.Exp(-2*(raw-threshold)))
}

func deriveTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	runes := []rune(title)
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit])
	}
	return title
}

func toHistoryItem(d *detectiondomain.Detection) detectiondomain.HistoryItem {
	return detectiondomain.HistoryItem{
		ID:        d.ID.String(),
		Title:     d.Title,
		Content:   d.Content,
		CharCount: d.CharCount,
		Label:     d.Label,
		Score:     d.Score,
		RawScore:  d.RawScore,
		Threshold: d.Threshold,
		ModelName: d.ModelName,
		CreatedAt: d.CreatedAt,
	}
}
