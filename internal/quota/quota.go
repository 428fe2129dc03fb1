// Package quota enforces the daily character budget per actor. The ledger
// in usage_records is the source of truth; budgets reset at UTC midnight.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/internal/config"
	usagedomain "github.com/veritext/veritext/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockAttempts = 3

// Decision is the outcome of an admission check.
type Decision struct {
	Admitted  bool
	Limit     int64
	Used      int64
	Remaining int64
	// RemainingAfter is the budget left once the admitted request is
	// recorded. Zero when rejected.
	RemainingAfter int64
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	usage  usagedomain.Repository
	clk    clock.Clock
	cfg    config.QuotaConfig
	locker *Locker
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Usage  usagedomain.Repository
	Clock  clock.Clock
	Config config.Config
	Locker *Locker `optional:"true"`
}

func NewService(p Params) *Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("quota.service"),
		usage:  p.Usage,
		clk:    p.Clock,
		cfg:    p.Config.Quota,
		locker: p.Locker,
	}
}

// LimitFor returns the daily character budget for an actor kind.
func (s *Service) LimitFor(actorType string) int64 {
	if actorType == usagedomain.ActorTypeGuest {
		return s.cfg.GuestDailyLimit
	}
	return s.cfg.UserDailyLimit
}

// DayBounds returns the UTC day window [midnight, midnight+24h)
// containing now.
func DayBounds(now time.Time) (time.Time, time.Time) {
	utc := now.UTC()
	from := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}

// UsedToday returns the characters consumed by the actor in the current
// UTC day alongside their budget.
func (s *Service) UsedToday(ctx context.Context, actorType, actorID string) (used int64, limit int64, err error) {
	from, to := DayBounds(s.clk.Now())
	used, err = s.usage.SumRange(ctx, s.db, actorType, actorID, from, to)
	if err != nil {
		return 0, 0, err
	}
	return used, s.LimitFor(actorType), nil
}

// Acquire takes the per-actor admission lock and returns its release.
// Callers hold it from the admission check until the usage record is
// committed, so a concurrent request cannot read the ledger inside that
// window. Without a configured locker, or when the lock cannot be
// obtained, the returned release is a no-op and admission proceeds
// unlocked.
func (s *Service) Acquire(ctx context.Context, actorType, actorID string) func() {
	if s.locker == nil {
		return func() {}
	}
	release, err := s.tryAcquire(ctx, actorType, actorID)
	if err != nil {
		s.log.Warn("admission lock unavailable, proceeding unlocked", zap.Error(err))
		return func() {}
	}
	return release
}

// Admit decides whether a request consuming charCount characters fits in
// the actor's remaining daily budget. It does not record consumption and
// does not lock; callers wrap Admit and the usage insert in one Acquire
// span and persist the record together with the work it paid for.
func (s *Service) Admit(ctx context.Context, actorType, actorID string, charCount int64) (*Decision, error) {
	used, limit, err := s.UsedToday(ctx, actorType, actorID)
	if err != nil {
		return nil, err
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	decision := &Decision{
		Limit:     limit,
		Used:      used,
		Remaining: remaining,
	}
	if charCount > remaining {
		return decision, nil
	}

	decision.Admitted = true
	decision.RemainingAfter = remaining - charCount
	return decision, nil
}

func (s *Service) tryAcquire(ctx context.Context, actorType, actorID string) (func(), error) {
	key := fmt.Sprintf("quota:lock:%s:%s", actorType, actorID)

	var lastErr error
	for attempt := 0; attempt < lockAttempts; attempt++ {
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
					s.log.Warn("failed to release admission lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		lastErr = fmt.Errorf("admission lock %s held", key)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil, lastErr
}

var Module = fx.Module("quota",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
	fx.Provide(NewService),
)
