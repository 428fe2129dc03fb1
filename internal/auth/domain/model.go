// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a registered account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"type:text;not null;uniqueIndex"`
	Name         string       `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null"`
	Role         string       `gorm:"type:text;not null;default:individual"`
	IsActive     bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Profile *Profile `gorm:"foreignKey:UserID"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Profile carries the mutable self-description fields of an account.
type Profile struct {
	UserID       snowflake.ID `gorm:"primaryKey;column:user_id"`
	FirstName    string       `gorm:"column:first_name;type:text;not null;default:''"`
	Surname      string       `gorm:"type:text;not null;default:''"`
	Organization string       `gorm:"type:text;not null;default:''"`
	Industry     string       `gorm:"type:text;not null;default:''"`
	JobRole      string       `gorm:"column:job_role;type:text;not null;default:''"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "user_profiles" }
