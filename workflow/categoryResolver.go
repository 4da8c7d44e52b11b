package workflow

import (
	"errors"

	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// ResolveWellKnownCategory maps a category code to its seeded id. A
// missing code means reference data was never seeded, which is a
// deployment problem rather than an invoice problem.
func ResolveWellKnownCategory(codes map[models.CategoryCode]int, code models.CategoryCode) (int, error) {
	id, ok := codes[code]
	if !ok {
		return 0, utils.NewConfigurationError(nil, "well-known category %s is not seeded", code)
	}
	return id, nil
}

// ResolveLineCategory picks the posting category for one invoice line.
//
// Customer invoices post revenue to the product's sales category.
// Supplier invoices post inventory-enabled products to INVENTORY_ASSET;
// other products use the line's category override when it differs from
// the product default, otherwise the product's purchase category.
func ResolveLineCategory(invoice *models.Invoice, line *models.InvoiceLineItem, product *models.Product, codes map[models.CategoryCode]int) (int, error) {
	if invoice.Direction == models.InvoiceDirectionCustomer {
		if product.SalesCategoryId == 0 {
			return 0, utils.NewConfigurationError(nil,
				"product %d has no sales category", product.ID)
		}
		return product.SalesCategoryId, nil
	}

	if product.TracksInventory() {
		return ResolveWellKnownCategory(codes, models.CategoryCodeInventoryAsset)
	}
	if line.CategoryId != nil && *line.CategoryId != product.PurchaseCategoryId {
		return *line.CategoryId, nil
	}
	if product.PurchaseCategoryId == 0 {
		return 0, utils.NewConfigurationError(nil,
			"product %d has no purchase category", product.ID)
	}
	return product.PurchaseCategoryId, nil
}

// ResolveContactDefaultCategory finds the receivable (customer) or
// payable (supplier) control category configured for the contact.
func ResolveContactDefaultCategory(tx *gorm.DB, invoice *models.Invoice) (int, error) {
	purpose := models.ContactMappingPurposeReceivable
	if invoice.Direction == models.InvoiceDirectionSupplier {
		purpose = models.ContactMappingPurposePayable
	}
	categoryId, err := models.GetContactDefaultCategory(tx, invoice.ContactId, purpose)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return 0, utils.NewConfigurationError(err,
				"contact %d has no %s default category", invoice.ContactId, purpose)
		}
		return 0, err
	}
	return categoryId, nil
}
