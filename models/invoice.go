package models

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the posting engine's input document. For posting purposes the
// header is immutable: totals are the sum of derived line values, and the
// direction is fixed once the status moves past Draft.
type Invoice struct {
	ID                  int               `gorm:"primary_key" json:"id"`
	InvoiceNumber       string            `gorm:"size:255;not null" json:"invoice_number"`
	ContactId           int               `gorm:"index;not null" json:"contact_id"`
	Direction           InvoiceDirection  `gorm:"size:1;not null" json:"direction"`
	InvoiceDate         time.Time         `gorm:"not null" json:"invoice_date"`
	CurrencyId          int               `gorm:"not null" json:"currency_id"`
	ExchangeRate        decimal.Decimal   `gorm:"type:decimal(20,4);default:1" json:"exchange_rate"`
	TotalAmount         decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	TotalVatAmount      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_vat_amount"`
	TotalExciseAmount   decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_excise_amount"`
	DiscountAmount      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	DiscountType        *DiscountType     `gorm:"size:1" json:"discount_type"`
	IsTaxInclusive      *bool             `gorm:"not null;default:false" json:"is_tax_inclusive"`
	IsReverseCharge     *bool             `gorm:"not null;default:false" json:"is_reverse_charge"`
	InvoiceStatus       InvoiceStatus     `gorm:"size:10;not null;default:'Draft';index" json:"invoice_status"`
	ReversedByJournalId *int              `gorm:"index" json:"reversed_by_journal_id"`
	LineItems           []InvoiceLineItem `gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE" json:"line_items"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// InvoiceLineItem belongs to exactly one invoice; the collection is
// replaced as a unit when an invoice is re-saved.
type InvoiceLineItem struct {
	ID             int              `gorm:"primary_key" json:"id"`
	InvoiceId      int              `gorm:"index;not null" json:"invoice_id"`
	ProductId      int              `gorm:"index;not null" json:"product_id"`
	Qty            int              `gorm:"not null" json:"qty"`
	UnitPrice      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	SubTotal       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"sub_total"`
	DiscountAmount *decimal.Decimal `gorm:"type:decimal(20,4)" json:"discount_amount"`
	DiscountType   *DiscountType    `gorm:"size:1" json:"discount_type"`
	VatTaxId       *int             `json:"vat_tax_id"`
	VatAmount      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"vat_amount"`
	ExciseTaxId    *int             `json:"excise_tax_id"`
	ExciseAmount   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"excise_amount"`
	// CategoryId overrides the product's default purchase category when set.
	CategoryId *int `json:"category_id"`
}

func (inv *Invoice) TaxInclusive() bool {
	return inv.IsTaxInclusive != nil && *inv.IsTaxInclusive
}

func (inv *Invoice) ReverseCharge() bool {
	return inv.IsReverseCharge != nil && *inv.IsReverseCharge
}

type NewInvoice struct {
	InvoiceNumber     string               `json:"invoice_number"`
	ContactId         int                  `json:"contact_id"`
	Direction         InvoiceDirection     `json:"direction"`
	InvoiceDate       time.Time            `json:"invoice_date"`
	CurrencyId        int                  `json:"currency_id"`
	ExchangeRate      decimal.Decimal      `json:"exchange_rate"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	TotalVatAmount    decimal.Decimal      `json:"total_vat_amount"`
	TotalExciseAmount decimal.Decimal      `json:"total_excise_amount"`
	DiscountAmount    decimal.Decimal      `json:"discount_amount"`
	DiscountType      *DiscountType        `json:"discount_type"`
	IsTaxInclusive    *bool                `json:"is_tax_inclusive"`
	IsReverseCharge   *bool                `json:"is_reverse_charge"`
	LineItems         []NewInvoiceLineItem `json:"line_items"`
}

type NewInvoiceLineItem struct {
	ProductId      int              `json:"product_id"`
	Qty            int              `json:"qty"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
	DiscountType   *DiscountType    `json:"discount_type"`
	VatTaxId       *int             `json:"vat_tax_id"`
	VatAmount      decimal.Decimal  `json:"vat_amount"`
	ExciseTaxId    *int             `json:"excise_tax_id"`
	ExciseAmount   decimal.Decimal  `json:"excise_amount"`
	CategoryId     *int             `json:"category_id"`
}

// validate input for both create & update.

func (input *NewInvoice) validate(tx *gorm.DB) error {
	// Omitted flags mean false; the columns are NOT NULL.
	if input.IsTaxInclusive == nil {
		input.IsTaxInclusive = utils.NewFalse()
	}
	if input.IsReverseCharge == nil {
		input.IsReverseCharge = utils.NewFalse()
	}
	if input.Direction != InvoiceDirectionCustomer && input.Direction != InvoiceDirectionSupplier {
		return errors.New("direction must be customer or supplier")
	}
	if input.ContactId <= 0 {
		return errors.New("contact is required")
	}
	if _, err := GetContact(tx, input.ContactId); err != nil {
		return errors.New("contact not found")
	}
	if input.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		return errors.New("exchange rate must be positive")
	}
	if len(input.LineItems) == 0 {
		return errors.New("invoice requires at least one line item")
	}
	for _, line := range input.LineItems {
		if line.Qty <= 0 {
			return errors.New("line quantity must be greater than zero")
		}
		if line.UnitPrice.IsNegative() {
			return errors.New("line unit price cannot be negative")
		}
		if _, err := GetProduct(tx, line.ProductId); err != nil {
			return errors.New("line product not found")
		}
		if line.CategoryId != nil {
			if _, err := GetTransactionCategory(tx, *line.CategoryId); err != nil {
				return errors.New("line category not found")
			}
		}
	}
	return nil
}

func CreateInvoice(tx *gorm.DB, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(tx); err != nil {
		return nil, err
	}

	lineItems := make([]InvoiceLineItem, 0, len(input.LineItems))
	for _, line := range input.LineItems {
		lineItems = append(lineItems, InvoiceLineItem{
			ProductId:      line.ProductId,
			Qty:            line.Qty,
			UnitPrice:      line.UnitPrice,
			SubTotal:       line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))),
			DiscountAmount: line.DiscountAmount,
			DiscountType:   line.DiscountType,
			VatTaxId:       line.VatTaxId,
			VatAmount:      line.VatAmount,
			ExciseTaxId:    line.ExciseTaxId,
			ExciseAmount:   line.ExciseAmount,
			CategoryId:     line.CategoryId,
		})
	}

	invoice := Invoice{
		InvoiceNumber:     input.InvoiceNumber,
		ContactId:         input.ContactId,
		Direction:         input.Direction,
		InvoiceDate:       input.InvoiceDate,
		CurrencyId:        input.CurrencyId,
		ExchangeRate:      input.ExchangeRate,
		TotalAmount:       input.TotalAmount,
		TotalVatAmount:    input.TotalVatAmount,
		TotalExciseAmount: input.TotalExciseAmount,
		DiscountAmount:    input.DiscountAmount,
		DiscountType:      input.DiscountType,
		IsTaxInclusive:    input.IsTaxInclusive,
		IsReverseCharge:   input.IsReverseCharge,
		InvoiceStatus:     InvoiceStatusDraft,
		LineItems:         lineItems,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateInvoice replaces a Draft invoice's header and line items as a
// unit. Posted and Reversed invoices are immutable posting inputs.
func UpdateInvoice(tx *gorm.DB, id int, input *NewInvoice) (*Invoice, error) {
	existing, err := GetInvoiceWithLineItems(tx, id)
	if err != nil {
		return nil, err
	}
	if existing.InvoiceStatus != InvoiceStatusDraft {
		return nil, utils.NewDataIntegrityError(nil,
			"invoice %d is %s and can no longer be edited", id, existing.InvoiceStatus)
	}
	if err := input.validate(tx); err != nil {
		return nil, err
	}

	if err := tx.Where("invoice_id = ?", id).Delete(&InvoiceLineItem{}).Error; err != nil {
		return nil, err
	}
	lineItems := make([]InvoiceLineItem, 0, len(input.LineItems))
	for _, line := range input.LineItems {
		lineItems = append(lineItems, InvoiceLineItem{
			InvoiceId:      id,
			ProductId:      line.ProductId,
			Qty:            line.Qty,
			UnitPrice:      line.UnitPrice,
			SubTotal:       line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))),
			DiscountAmount: line.DiscountAmount,
			DiscountType:   line.DiscountType,
			VatTaxId:       line.VatTaxId,
			VatAmount:      line.VatAmount,
			ExciseTaxId:    line.ExciseTaxId,
			ExciseAmount:   line.ExciseAmount,
			CategoryId:     line.CategoryId,
		})
	}

	existing.InvoiceNumber = input.InvoiceNumber
	existing.ContactId = input.ContactId
	existing.Direction = input.Direction
	existing.InvoiceDate = input.InvoiceDate
	existing.CurrencyId = input.CurrencyId
	existing.ExchangeRate = input.ExchangeRate
	existing.TotalAmount = input.TotalAmount
	existing.TotalVatAmount = input.TotalVatAmount
	existing.TotalExciseAmount = input.TotalExciseAmount
	existing.DiscountAmount = input.DiscountAmount
	existing.DiscountType = input.DiscountType
	existing.IsTaxInclusive = input.IsTaxInclusive
	existing.IsReverseCharge = input.IsReverseCharge
	existing.LineItems = lineItems
	if err := tx.Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func GetInvoiceWithLineItems(tx *gorm.DB, id int) (*Invoice, error) {
	var invoice Invoice
	err := tx.Preload("LineItems").Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func MarkInvoicePosted(tx *gorm.DB, id int) error {
	return tx.Model(&Invoice{}).Where("id = ?", id).
		Update("invoice_status", InvoiceStatusPosted).Error
}

func MarkInvoiceReversed(tx *gorm.DB, id int, reversalJournalId int) error {
	return tx.Model(&Invoice{}).Where("id = ?", id).Updates(map[string]interface{}{
		"invoice_status":         InvoiceStatusReversed,
		"reversed_by_journal_id": reversalJournalId,
	}).Error
}
