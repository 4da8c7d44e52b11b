package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

type Contact struct {
	ID          int               `gorm:"primary_key" json:"id"`
	Name        string            `gorm:"index;size:100;not null" json:"name"`
	ContactType ContactType       `gorm:"size:1;not null;default:'C'" json:"contact_type"`
	Email       *string           `gorm:"size:255" json:"email"`
	IsActive    *bool             `gorm:"not null;default:true" json:"is_active"`
	Mappings    []ContactCategory `gorm:"foreignKey:ContactId" json:"mappings"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// ContactCategory maps a contact to its default posting category for one
// purpose (AR/AP). More than one row may match a purpose; the first in
// primary-key order wins.
type ContactCategory struct {
	ID         int                   `gorm:"primary_key" json:"id"`
	ContactId  int                   `gorm:"index;not null" json:"contact_id"`
	Purpose    ContactMappingPurpose `gorm:"size:2;not null" json:"purpose"`
	CategoryId int                   `gorm:"not null" json:"category_id"`
	CreatedAt  time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

func GetContact(tx *gorm.DB, id int) (*Contact, error) {
	var contact Contact
	if err := tx.Where("id = ?", id).First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &contact, nil
}

func GetContactDefaultCategory(tx *gorm.DB, contactId int, purpose ContactMappingPurpose) (int, error) {
	var mapping ContactCategory
	err := tx.Where("contact_id = ? AND purpose = ?", contactId, purpose).
		Order("id").
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrorRecordNotFound
		}
		return 0, err
	}
	return mapping.CategoryId, nil
}
