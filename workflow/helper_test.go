package workflow

import (
	"io"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.ConnectTestDatabase()
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func seedWellKnownCategories(t *testing.T, db *gorm.DB) map[models.CategoryCode]int {
	t.Helper()
	codes := make(map[models.CategoryCode]int)
	for _, code := range models.WellKnownCategoryCodes {
		codeStr := string(code)
		category := models.TransactionCategory{
			Name:     codeStr,
			Code:     &codeStr,
			IsActive: utils.NewTrue(),
		}
		if err := db.Create(&category).Error; err != nil {
			t.Fatalf("seed category %s: %v", code, err)
		}
		codes[code] = category.ID
	}
	return codes
}

func seedCategory(t *testing.T, db *gorm.DB, name string) int {
	t.Helper()
	category := models.TransactionCategory{Name: name, IsActive: utils.NewTrue()}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return category.ID
}

func seedContact(t *testing.T, db *gorm.DB, contactType models.ContactType, receivableId int, payableId int) int {
	t.Helper()
	contact := models.Contact{Name: "contact", ContactType: contactType, IsActive: utils.NewTrue()}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	if receivableId != 0 {
		mapping := models.ContactCategory{ContactId: contact.ID, Purpose: models.ContactMappingPurposeReceivable, CategoryId: receivableId}
		if err := db.Create(&mapping).Error; err != nil {
			t.Fatalf("seed AR mapping: %v", err)
		}
	}
	if payableId != 0 {
		mapping := models.ContactCategory{ContactId: contact.ID, Purpose: models.ContactMappingPurposePayable, CategoryId: payableId}
		if err := db.Create(&mapping).Error; err != nil {
			t.Fatalf("seed AP mapping: %v", err)
		}
	}
	return contact.ID
}

func seedProduct(t *testing.T, db *gorm.DB, trackInventory bool, salesCategoryId int, purchaseCategoryId int) int {
	t.Helper()
	product := models.Product{
		Name:               "product",
		TrackInventory:     &trackInventory,
		IsExciseInclusive:  utils.NewFalse(),
		SalesCategoryId:    salesCategoryId,
		PurchaseCategoryId: purchaseCategoryId,
		IsActive:           utils.NewTrue(),
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

// invoiceBuilder keeps posting scenarios readable.
type invoiceBuilder struct {
	invoice models.Invoice
}

func newInvoice(direction models.InvoiceDirection, contactId int) *invoiceBuilder {
	return &invoiceBuilder{invoice: models.Invoice{
		InvoiceNumber:   "INV-001",
		ContactId:       contactId,
		Direction:       direction,
		InvoiceDate:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		CurrencyId:      1,
		ExchangeRate:    decimal.NewFromInt(1),
		IsTaxInclusive:  utils.NewFalse(),
		IsReverseCharge: utils.NewFalse(),
		InvoiceStatus:   models.InvoiceStatusDraft,
	}}
}

func (b *invoiceBuilder) rate(r decimal.Decimal) *invoiceBuilder {
	b.invoice.ExchangeRate = r
	return b
}

func (b *invoiceBuilder) totals(total, vat, excise decimal.Decimal) *invoiceBuilder {
	b.invoice.TotalAmount = total
	b.invoice.TotalVatAmount = vat
	b.invoice.TotalExciseAmount = excise
	return b
}

func (b *invoiceBuilder) headerDiscount(amount decimal.Decimal, kind models.DiscountType) *invoiceBuilder {
	b.invoice.DiscountAmount = amount
	b.invoice.DiscountType = &kind
	return b
}

func (b *invoiceBuilder) taxInclusive() *invoiceBuilder {
	b.invoice.IsTaxInclusive = utils.NewTrue()
	return b
}

func (b *invoiceBuilder) reverseCharge() *invoiceBuilder {
	b.invoice.IsReverseCharge = utils.NewTrue()
	return b
}

func (b *invoiceBuilder) line(productId int, qty int, unitPrice decimal.Decimal, vat decimal.Decimal) *invoiceBuilder {
	b.invoice.LineItems = append(b.invoice.LineItems, models.InvoiceLineItem{
		ProductId: productId,
		Qty:       qty,
		UnitPrice: unitPrice,
		SubTotal:  unitPrice.Mul(decimal.NewFromInt(int64(qty))),
		VatAmount: vat,
	})
	return b
}

func (b *invoiceBuilder) create(t *testing.T, db *gorm.DB) int {
	t.Helper()
	if err := db.Create(&b.invoice).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return b.invoice.ID
}

func mustEqual(t *testing.T, got, want decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: got %s, want %s", label, got, want)
	}
}

func lineForCategory(t *testing.T, journal *models.Journal, categoryId int) *models.JournalLineItem {
	t.Helper()
	for i := range journal.LineItems {
		if journal.LineItems[i].CategoryId == categoryId {
			return &journal.LineItems[i]
		}
	}
	t.Fatalf("journal %d has no line for category %d", journal.ID, categoryId)
	return nil
}
