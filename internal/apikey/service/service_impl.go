package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix      = "vt_live_"
	apiKeySecretBytes = 32
	prefixDisplayLen  = len(apiKeyPrefix) + 6

	// Hash collisions are effectively impossible, but the unique index
	// arbitrates and a retry costs nothing.
	maxCreateAttempts = 3
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     apikeydomain.Repository
	AuthRepo authdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     apikeydomain.Repository
	authRepo authdomain.Repository
	genID    *snowflake.Node
	clk      clock.Clock
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("apikey.service"),
		repo:     p.Repo,
		authRepo: p.AuthRepo,
		genID:    p.GenID,
		clk:      p.Clock,
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]apikeydomain.Response, error) {
	items, err := s.repo.List(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}

	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		plain, err := generateAPIKey()
		if err != nil {
			return nil, err
		}

		now := s.clk.Now().UTC()
		key := &apikeydomain.APIKey{
			ID:        s.genID.Generate(),
			UserID:    userID,
			Name:      name,
			KeyPrefix: plain[:prefixDisplayLen],
			KeyHash:   apikeydomain.HashAPIKey(plain),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := s.repo.Insert(ctx, s.db, key); err != nil {
			if db.IsDuplicateKeyErr(err) {
				lastErr = err
				continue
			}
			return nil, err
		}

		return &apikeydomain.SecretResponse{
			ID:        key.ID.String(),
			Name:      key.Name,
			APIKey:    plain,
			KeyPrefix: key.KeyPrefix,
			CreatedAt: key.CreatedAt,
		}, nil
	}
	return nil, lastErr
}

func (s *Service) Deactivate(ctx context.Context, userID snowflake.ID, keyID snowflake.ID) error {
	key, err := s.repo.FindByID(ctx, s.db, userID, keyID)
	if err != nil {
		return err
	}
	if !key.IsActive {
		return nil
	}
	return s.repo.SetActive(ctx, s.db, key.ID, false, s.clk.Now().UTC())
}

func (s *Service) Resolve(ctx context.Context, rawKey string) (*apikeydomain.APIKey, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" || !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return nil, apikeydomain.ErrInvalidKey
	}

	key, err := s.repo.FindByHash(ctx, s.db, apikeydomain.HashAPIKey(rawKey))
	if errors.Is(err, apikeydomain.ErrNotFound) {
		return nil, apikeydomain.ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	if !key.IsActive {
		return nil, apikeydomain.ErrInvalidKey
	}

	owner, err := s.authRepo.FindByID(ctx, key.UserID)
	if errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, apikeydomain.ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	if !owner.IsActive {
		return nil, apikeydomain.ErrInvalidKey
	}

	return key, nil
}

func (s *Service) TouchLastUsed(ctx context.Context, keyID snowflake.ID) {
	if err := s.repo.TouchLastUsed(ctx, s.db, keyID, s.clk.Now().UTC()); err != nil {
		s.log.Warn("failed to touch api key", zap.String("key_id", keyID.String()), zap.Error(err))
	}
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		ID:         key.ID.String(),
		Name:       key.Name,
		KeyPrefix:  key.KeyPrefix,
		IsActive:   key.IsActive,
		LastUsedAt: key.LastUsedAt,
		CreatedAt:  key.CreatedAt,
	}
}

func generateAPIKey() (string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(secret), nil
}
