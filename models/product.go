package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID                 int              `gorm:"primary_key" json:"id"`
	Name               string           `gorm:"index;size:100;not null" json:"name"`
	Sku                string           `gorm:"index;size:100" json:"sku"`
	TrackInventory     *bool            `gorm:"not null;default:false" json:"track_inventory"`
	IsExciseInclusive  *bool            `gorm:"not null;default:false" json:"is_excise_inclusive"`
	SalesCategoryId    int              `gorm:"index" json:"sales_category_id"`
	PurchaseCategoryId int              `gorm:"index" json:"purchase_category_id"`
	// AvgPurchasePrice is the stock-weighted average unit cost across all
	// inventory rows of the product, maintained by the valuation engine
	// after every purchase-side posting. Nil until the first purchase.
	AvgPurchasePrice *decimal.Decimal `gorm:"type:decimal(20,4)" json:"avg_purchase_price"`
	IsActive         *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) TracksInventory() bool {
	return p.TrackInventory != nil && *p.TrackInventory
}

func (p *Product) ExciseInclusive() bool {
	return p.IsExciseInclusive != nil && *p.IsExciseInclusive
}

func GetProduct(tx *gorm.DB, id int) (*Product, error) {
	var product Product
	if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &product, nil
}

func UpdateProductAverageCost(tx *gorm.DB, productId int, avg decimal.Decimal) error {
	return tx.Model(&Product{}).Where("id = ?", productId).
		Update("avg_purchase_price", avg).Error
}
