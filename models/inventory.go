package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Inventory is one valuation lot: the stock purchased from one supplier
// for one product, carried at its own weighted-average unit cost.
type Inventory struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ProductId    int             `gorm:"index:idx_inventory_product_supplier,unique;not null" json:"product_id"`
	SupplierId   int             `gorm:"index:idx_inventory_product_supplier,unique;not null" json:"supplier_id"`
	StockOnHand  int             `gorm:"not null;default:0" json:"stock_on_hand"`
	PurchaseQty  int             `gorm:"not null;default:0" json:"purchase_qty"`
	QtySold      int             `gorm:"not null;default:0" json:"qty_sold"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	ReorderLevel int             `gorm:"not null;default:0" json:"reorder_level"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// InventoryHistory is the append-only movement ledger. Rows are never
// updated or deleted; a reversal appends a mirror row pointing at the
// row it undoes. Qty is negative for outgoing stock.
type InventoryHistory struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	InventoryId         int             `gorm:"index;not null" json:"inventory_id"`
	ProductId           int             `gorm:"index;not null" json:"product_id"`
	InvoiceId           int             `gorm:"index;not null" json:"invoice_id"`
	InvoiceLineItemId   int             `gorm:"index;not null" json:"invoice_line_item_id"`
	Qty                 decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitCost            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	UnitSellingPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_selling_price"`
	TransactionDate     time.Time       `gorm:"not null" json:"transaction_date"`
	IsReversal          *bool           `gorm:"not null;default:false" json:"is_reversal"`
	ReversesHistoryId   *int            `gorm:"index" json:"reverses_history_id"`
	ReversedByHistoryId *int            `gorm:"index" json:"reversed_by_history_id"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// GetInventoriesByProduct returns every lot of a product in primary key
// order, which is the order depletion consumes them in.
func GetInventoriesByProduct(tx *gorm.DB, productId int) ([]Inventory, error) {
	var lots []Inventory
	err := tx.Where("product_id = ?", productId).Order("id").Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func GetInventoryByProductAndSupplier(tx *gorm.DB, productId int, supplierId int) (*Inventory, error) {
	var lot Inventory
	err := tx.Where("product_id = ? AND supplier_id = ?", productId, supplierId).First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// GetInventoryHistoryByLineItem returns the non-reversed movement rows a
// line item produced, oldest first.
func GetInventoryHistoryByLineItem(tx *gorm.DB, lineItemId int) ([]InventoryHistory, error) {
	var rows []InventoryHistory
	err := tx.Where("invoice_line_item_id = ? AND is_reversal = ?", lineItemId, false).
		Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
