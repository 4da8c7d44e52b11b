package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const moduleName = "workflow"

// PostInvoice builds and persists the balanced journal for a Draft
// invoice, runs inventory valuation for its inventory-enabled lines,
// and marks the invoice Posted. The caller wraps it in a transaction
// together with the posting lock; any error leaves nothing persisted.
func PostInvoice(tx *gorm.DB, logger *logrus.Logger, invoiceId int, userId int) (*models.Journal, error) {
	ctx, span := otel.Tracer("ledger/workflow").Start(context.Background(), "PostInvoice")
	defer span.End()
	span.SetAttributes(attribute.Int("invoice_id", invoiceId), attribute.Int("user_id", userId))
	tx = tx.WithContext(ctx)

	invoice, err := models.GetInvoiceWithLineItems(tx, invoiceId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewDataIntegrityError(err, "invoice %d not found", invoiceId)
		}
		config.LogError(logger, moduleName, "PostInvoice", "fetch invoice", invoiceId, err)
		return nil, err
	}
	if invoice.InvoiceStatus != models.InvoiceStatusDraft {
		return nil, utils.NewDataIntegrityError(nil,
			"invoice %d is %s, only Draft invoices can be posted", invoiceId, invoice.InvoiceStatus)
	}

	journal, err := buildInvoiceJournal(tx, logger, invoice, userId, false, nil)
	if err != nil {
		return nil, err
	}
	if err := models.CreateJournal(tx, journal); err != nil {
		config.LogError(logger, moduleName, "PostInvoice", "create journal", invoiceId, err)
		return nil, err
	}
	if err := models.MarkInvoicePosted(tx, invoiceId); err != nil {
		config.LogError(logger, moduleName, "PostInvoice", "mark posted", invoiceId, err)
		return nil, err
	}
	return journal, nil
}

// ReverseInvoice appends the mirror journal for a Posted invoice,
// restores its inventory movements, links the two journals, and marks
// the invoice Reversed. The original journal is never edited.
func ReverseInvoice(tx *gorm.DB, logger *logrus.Logger, invoiceId int, userId int) (*models.Journal, error) {
	ctx, span := otel.Tracer("ledger/workflow").Start(context.Background(), "ReverseInvoice")
	defer span.End()
	span.SetAttributes(attribute.Int("invoice_id", invoiceId), attribute.Int("user_id", userId))
	tx = tx.WithContext(ctx)

	invoice, err := models.GetInvoiceWithLineItems(tx, invoiceId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewDataIntegrityError(err, "invoice %d not found", invoiceId)
		}
		config.LogError(logger, moduleName, "ReverseInvoice", "fetch invoice", invoiceId, err)
		return nil, err
	}
	if invoice.InvoiceStatus != models.InvoiceStatusPosted {
		return nil, utils.NewDataIntegrityError(nil,
			"invoice %d is %s, only Posted invoices can be reversed", invoiceId, invoice.InvoiceStatus)
	}

	original, err := models.GetActiveJournalByReference(tx, models.JournalReferenceTypeInvoice, invoiceId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewDataIntegrityError(err, "invoice %d has no journal to reverse", invoiceId)
		}
		config.LogError(logger, moduleName, "ReverseInvoice", "fetch original journal", invoiceId, err)
		return nil, err
	}

	journal, err := buildInvoiceJournal(tx, logger, invoice, userId, true, original)
	if err != nil {
		return nil, err
	}
	journal.IsReversal = utils.NewTrue()
	journal.ReversesJournalId = &original.ID
	if err := models.CreateJournal(tx, journal); err != nil {
		config.LogError(logger, moduleName, "ReverseInvoice", "create journal", invoiceId, err)
		return nil, err
	}
	if err := models.MarkJournalReversed(tx, original.ID, journal.ID, "invoice reversal"); err != nil {
		config.LogError(logger, moduleName, "ReverseInvoice", "link journals", original.ID, err)
		return nil, err
	}
	if err := models.MarkInvoiceReversed(tx, invoiceId, journal.ID); err != nil {
		config.LogError(logger, moduleName, "ReverseInvoice", "mark reversed", invoiceId, err)
		return nil, err
	}
	return journal, nil
}

// newJournalLine finalizes an amount onto one side of a line. A
// reversal swaps the side; the amount and category stay the same.
func newJournalLine(categoryId int, amount decimal.Decimal, debitSide bool, reversal bool, referenceType models.JournalReferenceType, referenceId int, rate decimal.Decimal, userId int) models.JournalLineItem {
	if reversal {
		debitSide = !debitSide
	}
	line := models.JournalLineItem{
		CategoryId:    categoryId,
		ReferenceType: referenceType,
		ReferenceId:   referenceId,
		ExchangeRate:  rate,
		CreatedBy:     userId,
	}
	rounded := utils.RoundMoney(amount)
	if debitSide {
		line.Debit = rounded
	} else {
		line.Credit = rounded
	}
	return line
}

// buildInvoiceJournal derives the full journal for one invoice. The
// reversal pass rebuilds lines from the invoice rather than copying the
// stored journal, because the VAT trigger differs between passes: a
// negative VAT total posts forward but is skipped on reversal. The
// original journal is consulted only for the cost-of-goods-sold pair,
// whose forward amount cannot be rederived once stock has moved on.
func buildInvoiceJournal(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, userId int, reversal bool, original *models.Journal) (*models.Journal, error) {
	codes, err := models.GetWellKnownCategories(tx)
	if err != nil {
		config.LogError(logger, moduleName, "buildInvoiceJournal", "fetch well-known categories", invoice.ID, err)
		return nil, err
	}

	referenceType := models.JournalReferenceTypeInvoice
	if reversal {
		referenceType = models.JournalReferenceTypeReverseInvoice
	}
	rate := invoice.ExchangeRate
	isCustomer := invoice.Direction == models.InvoiceDirectionCustomer
	var lines []models.JournalLineItem

	// Contact control line: receivable debit for customers, payable
	// credit for suppliers. Reverse-charge keeps the self-assessed VAT
	// out of the supplier balance.
	contactCategoryId, err := ResolveContactDefaultCategory(tx, invoice)
	if err != nil {
		return nil, err
	}
	contactAmount := invoice.TotalAmount
	if !isCustomer && invoice.ReverseCharge() {
		contactAmount = invoice.TotalAmount.Sub(invoice.TotalVatAmount)
	}
	lines = append(lines, newJournalLine(contactCategoryId, contactAmount.Mul(rate),
		isCustomer, reversal, referenceType, invoice.ID, rate, userId))

	// Inventory valuation per inventory-enabled line, then one subtotal
	// per resolved category across all lines.
	consumedValue := decimal.Zero
	inventorySale := false
	aggLines := make([]AggregationLine, 0, len(invoice.LineItems))
	for i := range invoice.LineItems {
		line := &invoice.LineItems[i]
		product, err := models.GetProduct(tx, line.ProductId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return nil, utils.NewDataIntegrityError(err,
					"invoice %d line %d references missing product %d", invoice.ID, line.ID, line.ProductId)
			}
			config.LogError(logger, moduleName, "buildInvoiceJournal", "fetch product", line.ProductId, err)
			return nil, err
		}

		if product.TracksInventory() {
			if isCustomer {
				var value decimal.Decimal
				if reversal {
					value, err = ReverseSaleDepletion(tx, logger, invoice, line)
				} else {
					value, err = DepleteForSale(tx, logger, invoice, line, product)
				}
				if err != nil {
					return nil, err
				}
				consumedValue = consumedValue.Add(value)
				inventorySale = true
			} else {
				if reversal {
					err = ReversePurchaseAccumulation(tx, logger, invoice, line)
				} else {
					err = AccumulateForPurchase(tx, logger, invoice, line, product)
				}
				if err != nil {
					return nil, err
				}
			}
		}

		categoryId, err := ResolveLineCategory(invoice, line, product, codes)
		if err != nil {
			return nil, err
		}
		aggLines = append(aggLines, AggregationLine{Line: line, Product: product, CategoryId: categoryId})
	}

	for _, total := range AggregateByCategory(aggLines, invoice.TaxInclusive()) {
		lines = append(lines, newJournalLine(total.CategoryId, total.Net.Mul(rate),
			!isCustomer, reversal, referenceType, invoice.ID, rate, userId))
	}

	// One cost-of-goods-sold pair for the whole invoice. The consumed
	// value is already in base currency, no rate applied. A reversal
	// takes the amount the forward journal booked: the forward value
	// came from the cached average at sale time, which later purchases
	// may have moved.
	if inventorySale {
		inventoryAssetId, err := ResolveWellKnownCategory(codes, models.CategoryCodeInventoryAsset)
		if err != nil {
			return nil, err
		}
		cogsId, err := ResolveWellKnownCategory(codes, models.CategoryCodeCostOfGoodsSold)
		if err != nil {
			return nil, err
		}
		pairValue := consumedValue
		if reversal && original != nil {
			for _, l := range original.LineItems {
				if l.CategoryId == inventoryAssetId {
					pairValue = l.Credit
					break
				}
			}
		}
		lines = append(lines, newJournalLine(inventoryAssetId, pairValue,
			false, reversal, referenceType, invoice.ID, rate, userId))
		lines = append(lines, newJournalLine(cogsId, pairValue,
			true, reversal, referenceType, invoice.ID, rate, userId))
	}

	// Forward posting books any non-zero VAT total, reversal only a
	// positive one.
	postVat := !invoice.TotalVatAmount.IsZero()
	if reversal {
		postVat = invoice.TotalVatAmount.IsPositive()
	}
	if postVat {
		vatAmount := invoice.TotalVatAmount.Mul(rate)
		vatCode := models.CategoryCodeOutputVat
		if !isCustomer {
			vatCode = models.CategoryCodeInputVat
		}
		vatCategoryId, err := ResolveWellKnownCategory(codes, vatCode)
		if err != nil {
			return nil, err
		}
		lines = append(lines, newJournalLine(vatCategoryId, vatAmount,
			!isCustomer, reversal, referenceType, invoice.ID, rate, userId))

		if invoice.ReverseCharge() {
			outputVatId, err := ResolveWellKnownCategory(codes, models.CategoryCodeOutputVat)
			if err != nil {
				return nil, err
			}
			lines = append(lines, newJournalLine(outputVatId, vatAmount,
				false, reversal, referenceType, invoice.ID, rate, userId))
		}
	}

	if invoice.TotalExciseAmount.IsPositive() {
		exciseCode := models.CategoryCodeOutputExciseTax
		if !isCustomer {
			exciseCode = models.CategoryCodeInputExciseTax
		}
		exciseCategoryId, err := ResolveWellKnownCategory(codes, exciseCode)
		if err != nil {
			return nil, err
		}
		lines = append(lines, newJournalLine(exciseCategoryId, invoice.TotalExciseAmount.Mul(rate),
			!isCustomer, reversal, referenceType, invoice.ID, rate, userId))
	}

	// Header discount posts the stored amount as-is, whatever the
	// discount kind.
	if invoice.DiscountAmount.IsPositive() {
		discountCode := models.CategoryCodeSalesDiscount
		if !isCustomer {
			discountCode = models.CategoryCodePurchaseDiscount
		}
		discountCategoryId, err := ResolveWellKnownCategory(codes, discountCode)
		if err != nil {
			return nil, err
		}
		lines = append(lines, newJournalLine(discountCategoryId, invoice.DiscountAmount.Mul(rate),
			isCustomer, reversal, referenceType, invoice.ID, rate, userId))
	}

	directionLabel := "Customer"
	if !isCustomer {
		directionLabel = "Supplier"
	}
	description := fmt.Sprintf("%s invoice %s", directionLabel, invoice.InvoiceNumber)
	if reversal {
		description = fmt.Sprintf("Reversal of %s invoice %s", directionLabel, invoice.InvoiceNumber)
	}

	return &models.Journal{
		JournalDate:   invoice.InvoiceDate,
		Description:   description,
		ReferenceType: referenceType,
		ReferenceId:   invoice.ID,
		IsReversal:    utils.NewFalse(),
		CreatedBy:     userId,
		LineItems:     lines,
	}, nil
}
