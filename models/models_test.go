package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.ConnectTestDatabase()
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTestCategory(t *testing.T, db *gorm.DB, name string, code *string) int {
	t.Helper()
	category := TransactionCategory{Name: name, Code: code, IsActive: utils.NewTrue()}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return category.ID
}

func strPtr(s string) *string { return &s }

func TestWellKnownCategoriesSkipUncoded(t *testing.T) {
	db := openTestDB(t)
	assetId := seedTestCategory(t, db, "Inventory Asset", strPtr(string(CategoryCodeInventoryAsset)))
	cogsId := seedTestCategory(t, db, "Cost of Goods Sold", strPtr(string(CategoryCodeCostOfGoodsSold)))
	seedTestCategory(t, db, "Office Supplies", nil)

	codes, err := GetWellKnownCategories(db)
	if err != nil {
		t.Fatalf("fetch codes: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 coded categories, got %d", len(codes))
	}
	if codes[CategoryCodeInventoryAsset] != assetId || codes[CategoryCodeCostOfGoodsSold] != cogsId {
		t.Fatalf("unexpected code map: %v", codes)
	}
}

func TestContactDefaultCategoryFirstMappingWins(t *testing.T) {
	db := openTestDB(t)
	firstId := seedTestCategory(t, db, "Receivable A", nil)
	secondId := seedTestCategory(t, db, "Receivable B", nil)

	contact := Contact{Name: "acme", ContactType: ContactTypeCustomer, IsActive: utils.NewTrue()}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatalf("create contact: %v", err)
	}
	for _, categoryId := range []int{firstId, secondId} {
		mapping := ContactCategory{ContactId: contact.ID, Purpose: ContactMappingPurposeReceivable, CategoryId: categoryId}
		if err := db.Create(&mapping).Error; err != nil {
			t.Fatalf("create mapping: %v", err)
		}
	}

	got, err := GetContactDefaultCategory(db, contact.ID, ContactMappingPurposeReceivable)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != firstId {
		t.Fatalf("default category: got %d, want %d", got, firstId)
	}

	if _, err := GetContactDefaultCategory(db, contact.ID, ContactMappingPurposePayable); err != utils.ErrorRecordNotFound {
		t.Fatalf("missing purpose: got %v, want ErrorRecordNotFound", err)
	}
}

func TestJournalLineRejectsBothSides(t *testing.T) {
	db := openTestDB(t)
	journal := Journal{
		JournalDate:   time.Now(),
		Description:   "bad line",
		ReferenceType: JournalReferenceTypeInvoice,
		ReferenceId:   1,
		IsReversal:    utils.NewFalse(),
		CreatedBy:     1,
		LineItems: []JournalLineItem{{
			CategoryId:    1,
			Debit:         decimal.NewFromInt(10),
			Credit:        decimal.NewFromInt(10),
			ReferenceType: JournalReferenceTypeInvoice,
			ReferenceId:   1,
			ExchangeRate:  decimal.NewFromInt(1),
			CreatedBy:     1,
		}},
	}
	err := CreateJournal(db, &journal)
	if !utils.IsDataIntegrityError(err) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
}

func createInvoiceFixture(t *testing.T, db *gorm.DB) (contactId int, productId int) {
	t.Helper()
	categoryId := seedTestCategory(t, db, "Sales", nil)
	contact := Contact{Name: "acme", ContactType: ContactTypeCustomer, IsActive: utils.NewTrue()}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatalf("create contact: %v", err)
	}
	product := Product{
		Name:            "widget",
		TrackInventory:  utils.NewFalse(),
		SalesCategoryId: categoryId,
		IsActive:        utils.NewTrue(),
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return contact.ID, product.ID
}

func TestCreateInvoiceValidation(t *testing.T) {
	db := openTestDB(t)
	contactId, productId := createInvoiceFixture(t, db)

	base := func() NewInvoice {
		return NewInvoice{
			InvoiceNumber: "INV-100",
			ContactId:     contactId,
			Direction:     InvoiceDirectionCustomer,
			InvoiceDate:   time.Now(),
			CurrencyId:    1,
			ExchangeRate:  decimal.NewFromInt(1),
			TotalAmount:   decimal.NewFromInt(100),
			LineItems: []NewInvoiceLineItem{{
				ProductId: productId,
				Qty:       10,
				UnitPrice: decimal.NewFromInt(10),
			}},
		}
	}

	valid := base()
	invoice, err := CreateInvoice(db, &valid)
	if err != nil {
		t.Fatalf("create valid invoice: %v", err)
	}
	if invoice.InvoiceStatus != InvoiceStatusDraft {
		t.Fatalf("new invoice status: got %s, want Draft", invoice.InvoiceStatus)
	}
	if len(invoice.LineItems) != 1 || invoice.LineItems[0].InvoiceId != invoice.ID {
		t.Fatal("line items not attached to invoice")
	}

	cases := []struct {
		name   string
		mutate func(*NewInvoice)
	}{
		{"zero quantity", func(in *NewInvoice) { in.LineItems[0].Qty = 0 }},
		{"negative unit price", func(in *NewInvoice) { in.LineItems[0].UnitPrice = decimal.NewFromInt(-1) }},
		{"missing product", func(in *NewInvoice) { in.LineItems[0].ProductId = 9999 }},
		{"missing contact", func(in *NewInvoice) { in.ContactId = 9999 }},
		{"bad direction", func(in *NewInvoice) { in.Direction = "X" }},
		{"zero exchange rate", func(in *NewInvoice) { in.ExchangeRate = decimal.Zero }},
		{"no lines", func(in *NewInvoice) { in.LineItems = nil }},
	}
	for _, tc := range cases {
		input := base()
		tc.mutate(&input)
		if _, err := CreateInvoice(db, &input); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestUpdateInvoiceOnlyWhileDraft(t *testing.T) {
	db := openTestDB(t)
	contactId, productId := createInvoiceFixture(t, db)

	input := NewInvoice{
		InvoiceNumber: "INV-200",
		ContactId:     contactId,
		Direction:     InvoiceDirectionCustomer,
		InvoiceDate:   time.Now(),
		CurrencyId:    1,
		ExchangeRate:  decimal.NewFromInt(1),
		TotalAmount:   decimal.NewFromInt(100),
		LineItems: []NewInvoiceLineItem{{
			ProductId: productId,
			Qty:       10,
			UnitPrice: decimal.NewFromInt(10),
		}},
	}
	invoice, err := CreateInvoice(db, &input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	input.LineItems[0].Qty = 5
	updated, err := UpdateInvoice(db, invoice.ID, &input)
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if len(updated.LineItems) != 1 || updated.LineItems[0].Qty != 5 {
		t.Fatal("line items not replaced as a unit")
	}
	// Flags were omitted from the input; the update must persist them
	// as false, not NULL.
	reloaded, err := GetInvoiceWithLineItems(db, invoice.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.IsTaxInclusive == nil || *reloaded.IsTaxInclusive {
		t.Fatal("omitted tax-inclusive flag must persist as false")
	}
	if reloaded.IsReverseCharge == nil || *reloaded.IsReverseCharge {
		t.Fatal("omitted reverse-charge flag must persist as false")
	}
	var lineCount int64
	db.Model(&InvoiceLineItem{}).Where("invoice_id = ?", invoice.ID).Count(&lineCount)
	if lineCount != 1 {
		t.Fatalf("stale line items left behind: %d", lineCount)
	}

	if err := MarkInvoicePosted(db, invoice.ID); err != nil {
		t.Fatalf("mark posted: %v", err)
	}
	if _, err := UpdateInvoice(db, invoice.ID, &input); !utils.IsDataIntegrityError(err) {
		t.Fatalf("editing a posted invoice: got %v", err)
	}
}

func TestGetInvoiceWithLineItemsMissing(t *testing.T) {
	db := openTestDB(t)
	if _, err := GetInvoiceWithLineItems(db, 42); err != utils.ErrorRecordNotFound {
		t.Fatalf("got %v, want ErrorRecordNotFound", err)
	}
}
