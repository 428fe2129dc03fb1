package authorization

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service interface {
	// Require returns ErrInsufficientRole when actual ranks below required,
	// and ErrInvalidRole when either side is not a known tier.
	Require(actual Role, required Role) error
}

type Params struct {
	fx.In

	Log *zap.Logger
}

type ServiceImpl struct {
	log *zap.Logger
}

func NewService(p Params) Service {
	return &ServiceImpl{log: p.Log.Named("authorization.service")}
}

func (s *ServiceImpl) Require(actual Role, required Role) error {
	if !required.Valid() {
		return ErrInvalidRole
	}
	if !actual.Valid() {
		return ErrInvalidRole
	}
	if !actual.HasAtLeast(required) {
		s.log.Debug("authorization denied",
			zap.String("actual_role", string(actual)),
			zap.String("required_role", string(required)),
		)
		return ErrInsufficientRole
	}
	return nil
}

var Module = fx.Module("authorization.service",
	fx.Provide(NewService),
)
