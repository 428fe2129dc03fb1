package db

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTest opens an isolated in-memory sqlite database for tests.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
}
