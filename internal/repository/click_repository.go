// Package repository contains the data access layer for the click archive.
// The archive is the only GORM-backed store in the application: link records
// live in the in-memory registry, while accepted visits are additionally
// persisted here for the stats views.
package repository

import (
	"fmt"

	"github.com/axellelanca/shortlink/internal/models"
	"gorm.io/gorm"
)

// ClickRepository defines the data access methods for archived clicks.
type ClickRepository interface {
	CreateClick(click *models.Click) error
	CountClicksByShortCode(shortCode string) (int, error)
	RecentClicksByShortCode(shortCode string, limit int) ([]models.Click, error)
}

// GormClickRepository is the GORM implementation of ClickRepository.
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates and returns a new GormClickRepository instance.
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// CreateClick inserts a new click record into the archive.
func (r *GormClickRepository) CreateClick(click *models.Click) error {
	if err := r.db.Create(click).Error; err != nil {
		return fmt.Errorf("failed to create click: %w", err)
	}
	return nil
}

// CountClicksByShortCode counts the archived clicks for a given short code.
func (r *GormClickRepository) CountClicksByShortCode(shortCode string) (int, error) {
	var count int64
	if err := r.db.Model(&models.Click{}).Where("short_code = ?", shortCode).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clicks for short code %s: %w", shortCode, err)
	}
	return int(count), nil
}

// RecentClicksByShortCode returns the most recent archived clicks for a short
// code, newest first, capped at limit.
func (r *GormClickRepository) RecentClicksByShortCode(shortCode string, limit int) ([]models.Click, error) {
	var clicks []models.Click
	if err := r.db.Where("short_code = ?", shortCode).
		Order("timestamp DESC").
		Limit(limit).
		Find(&clicks).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve clicks for short code %s: %w", shortCode, err)
	}
	return clicks, nil
}
