package services

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ssnlakshya/mela/internal/models"
)

// IShortLinkService keeps the external redirect table in sync with listing
// slugs. This service is the sole writer of stall short codes.
type IShortLinkService interface {
	Upsert(ctx context.Context, code, longURL string) (created bool, err error)
}

type shortLinkService struct {
	db *gorm.DB
}

// ConnectShortLinkDB opens the shortener's Postgres database.
func ConnectShortLinkDB(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to short-link database: %w", err)
	}
	return gdb, nil
}

// NewShortLinkService creates a new ShortLinkService over an open connection.
func NewShortLinkService(db *gorm.DB) IShortLinkService {
	return &shortLinkService{db: db}
}

// Upsert tries an update-by-code first and falls back to insert when zero
// rows were affected. Update-first means the caller never needs to know
// whether the code exists yet, and no uniqueness constraint is required for
// the upsert to be correct (the table has one anyway).
func (s *shortLinkService) Upsert(ctx context.Context, code, longURL string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ShortURL{}).
		Where("short_code = ?", code).
		Update("long_url", longURL)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update short link %s: %w", code, res.Error)
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	link := models.ShortURL{
		ShortCode:   code,
		LongURL:     longURL,
		CustomAlias: nil,
	}
	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		return false, fmt.Errorf("failed to insert short link %s: %w", code, err)
	}
	return true, nil
}
