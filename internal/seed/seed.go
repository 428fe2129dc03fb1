package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/auth/password"
	"github.com/veritext/veritext/internal/authorization"
	"github.com/veritext/veritext/internal/config"
	"gorm.io/gorm"
)

// EnsureBootstrapAdmin creates the configured administrator account when
// no users exist yet. Without bootstrap credentials this is a no-op.
func EnsureBootstrapAdmin(db *gorm.DB, cfg config.BootstrapConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.TrimSpace(cfg.AdminEmail)
	pass := strings.TrimSpace(cfg.AdminPassword)
	if email == "" || pass == "" {
		return nil
	}
	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = "admin"
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&authdomain.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := password.Hash(pass)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		return tx.Create(&authdomain.User{
			ID:           node.Generate(),
			Email:        strings.ToLower(email),
			Name:         name,
			PasswordHash: hashed,
			Role:         string(authorization.RoleSysAdmin),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error
	})
}
