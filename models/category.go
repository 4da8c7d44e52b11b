package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// TransactionCategory is pre-seeded reference data. The posting engine
// never creates categories; it only resolves them.
type TransactionCategory struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"index;size:100;not null" json:"name"`
	Code        *string   `gorm:"index;size:50" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const wellKnownCategoriesCacheKey = "WellKnownCategories"

// GetWellKnownCategories returns code -> category id for every coded
// category, read through the Redis cache when one is configured.
func GetWellKnownCategories(tx *gorm.DB) (map[CategoryCode]int, error) {
	var cached map[CategoryCode]int
	exists, err := config.GetRedisObject(wellKnownCategoriesCacheKey, &cached)
	if err != nil {
		return nil, err
	}
	if exists {
		return cached, nil
	}

	var categories []*TransactionCategory
	if err := tx.Select("id", "code").Where("code IS NOT NULL").Find(&categories).Error; err != nil {
		return nil, err
	}
	codes := make(map[CategoryCode]int)
	for _, c := range categories {
		if c.Code == nil {
			continue
		}
		codes[CategoryCode(*c.Code)] = c.ID
	}
	if err := config.SetRedisObject(wellKnownCategoriesCacheKey, &codes, 0); err != nil {
		return nil, err
	}
	return codes, nil
}

// InvalidateWellKnownCategories drops the cached code map. Call after
// seeding or editing coded categories.
func InvalidateWellKnownCategories() error {
	return config.RemoveRedisKey(wellKnownCategoriesCacheKey)
}

func GetTransactionCategory(tx *gorm.DB, id int) (*TransactionCategory, error) {
	var category TransactionCategory
	if err := tx.Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &category, nil
}
