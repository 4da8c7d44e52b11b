package workflow

import (
	"errors"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DepleteForSale consumes stock for one customer invoice line, walking
// the product's lots in primary key order until the requested quantity
// is exhausted or lots run out. A fully consumed lot stays at zero
// stock. Each touched lot gets an InventoryHistory row carrying the
// lot's unit cost and the line's selling price in base currency.
//
// The returned asset value feeds the cost-of-goods-sold pair: when the
// product carries a cached average cost it is average × requested
// quantity, otherwise the sum of lot cost × quantity consumed.
func DepleteForSale(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, line *models.InvoiceLineItem, product *models.Product) (decimal.Decimal, error) {
	lots, err := models.GetInventoriesByProduct(tx, product.ID)
	if err != nil {
		config.LogError(logger, "workflow", "DepleteForSale", "fetch lots", product.ID, err)
		return decimal.Zero, err
	}

	remaining := line.Qty
	consumedValue := decimal.Zero
	sellingPrice := line.UnitPrice.Mul(invoice.ExchangeRate)

	for i := range lots {
		if remaining <= 0 {
			break
		}
		lot := &lots[i]
		if lot.StockOnHand <= 0 {
			continue
		}
		consumed := lot.StockOnHand
		if consumed > remaining {
			consumed = remaining
		}
		lot.StockOnHand -= consumed
		lot.QtySold += consumed
		if err := tx.Save(lot).Error; err != nil {
			config.LogError(logger, "workflow", "DepleteForSale", "update lot", lot.ID, err)
			return decimal.Zero, err
		}

		history := models.InventoryHistory{
			InventoryId:       lot.ID,
			ProductId:         product.ID,
			InvoiceId:         invoice.ID,
			InvoiceLineItemId: line.ID,
			Qty:               utils.DecimalFromInt(consumed).Neg(),
			UnitCost:          lot.UnitCost,
			UnitSellingPrice:  sellingPrice,
			TransactionDate:   invoice.InvoiceDate,
			IsReversal:        utils.NewFalse(),
		}
		if err := tx.Create(&history).Error; err != nil {
			config.LogError(logger, "workflow", "DepleteForSale", "append history", lot.ID, err)
			return decimal.Zero, err
		}

		consumedValue = consumedValue.Add(lot.UnitCost.Mul(utils.DecimalFromInt(consumed)))
		remaining -= consumed
	}

	if product.AvgPurchasePrice != nil {
		return product.AvgPurchasePrice.Mul(utils.DecimalFromInt(line.Qty)), nil
	}
	return consumedValue, nil
}

// AccumulateForPurchase books incoming stock for one supplier invoice
// line into the (product, supplier) lot, creating the lot on first
// purchase, then refreshes the product's cached average cost across all
// lots.
func AccumulateForPurchase(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, line *models.InvoiceLineItem, product *models.Product) error {
	historyUnitCost := line.UnitPrice.Mul(invoice.ExchangeRate)

	lot, err := models.GetInventoryByProductAndSupplier(tx, product.ID, invoice.ContactId)
	if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
		config.LogError(logger, "workflow", "AccumulateForPurchase", "fetch lot", product.ID, err)
		return err
	}

	if lot != nil {
		oldStock := utils.DecimalFromInt(lot.StockOnHand)
		qty := utils.DecimalFromInt(line.Qty)
		newCost := oldStock.Mul(lot.UnitCost).Add(qty.Mul(line.UnitPrice)).Div(oldStock.Add(qty))
		lot.UnitCost = newCost
		lot.StockOnHand += line.Qty
		lot.PurchaseQty += line.Qty
		if err := tx.Save(lot).Error; err != nil {
			config.LogError(logger, "workflow", "AccumulateForPurchase", "update lot", lot.ID, err)
			return err
		}
	} else {
		lot = &models.Inventory{
			ProductId:    product.ID,
			SupplierId:   invoice.ContactId,
			StockOnHand:  line.Qty,
			PurchaseQty:  line.Qty,
			QtySold:      0,
			UnitCost:     line.UnitPrice.Mul(invoice.ExchangeRate),
			ReorderLevel: line.Qty / 10,
		}
		if err := tx.Create(lot).Error; err != nil {
			config.LogError(logger, "workflow", "AccumulateForPurchase", "create lot", product.ID, err)
			return err
		}
	}

	history := models.InventoryHistory{
		InventoryId:       lot.ID,
		ProductId:         product.ID,
		InvoiceId:         invoice.ID,
		InvoiceLineItemId: line.ID,
		Qty:               utils.DecimalFromInt(line.Qty),
		UnitCost:          historyUnitCost,
		TransactionDate:   invoice.InvoiceDate,
		IsReversal:        utils.NewFalse(),
	}
	if err := tx.Create(&history).Error; err != nil {
		config.LogError(logger, "workflow", "AccumulateForPurchase", "append history", lot.ID, err)
		return err
	}

	return RefreshProductAverageCost(tx, logger, product.ID)
}

// RefreshProductAverageCost recomputes the product's cached average
// purchase cost as the stock-weighted mean across every lot, all
// suppliers combined. Zero total stock yields a zero average, never a
// division error.
func RefreshProductAverageCost(tx *gorm.DB, logger *logrus.Logger, productId int) error {
	lots, err := models.GetInventoriesByProduct(tx, productId)
	if err != nil {
		config.LogError(logger, "workflow", "RefreshProductAverageCost", "fetch lots", productId, err)
		return err
	}

	totalStock := decimal.Zero
	totalValue := decimal.Zero
	for _, lot := range lots {
		stock := utils.DecimalFromInt(lot.StockOnHand)
		totalStock = totalStock.Add(stock)
		totalValue = totalValue.Add(lot.UnitCost.Mul(stock))
	}

	avg := decimal.Zero
	if !totalStock.IsZero() {
		avg = totalValue.Div(totalStock)
	}
	if err := models.UpdateProductAverageCost(tx, productId, avg); err != nil {
		config.LogError(logger, "workflow", "RefreshProductAverageCost", "update product", productId, err)
		return err
	}
	return nil
}

// ReverseSaleDepletion puts back the stock a posted customer invoice
// line consumed, by appending mirror rows to the movement ledger. The
// original rows are never touched beyond linking; quantities return to
// their lots at the unit cost recorded at sale time, and the cached
// average is left alone (an undo is not a new purchase).
//
// Returns the asset value of the recorded movements. This is always the
// unit cost captured at sale time, never the current cached average: a
// purchase between posting and reversal moves the average, and pricing
// the undo at the new average would unwind a different amount than the
// forward journal booked.
func ReverseSaleDepletion(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, line *models.InvoiceLineItem) (decimal.Decimal, error) {
	rows, err := models.GetInventoryHistoryByLineItem(tx, line.ID)
	if err != nil {
		config.LogError(logger, "workflow", "ReverseSaleDepletion", "fetch history", line.ID, err)
		return decimal.Zero, err
	}

	consumedValue := decimal.Zero
	for i := range rows {
		row := &rows[i]
		if row.ReversedByHistoryId != nil {
			continue
		}
		restored := row.Qty.Neg()
		restoredInt := int(restored.IntPart())

		var lot models.Inventory
		if err := tx.Where("id = ?", row.InventoryId).First(&lot).Error; err != nil {
			config.LogError(logger, "workflow", "ReverseSaleDepletion", "fetch lot", row.InventoryId, err)
			return decimal.Zero, err
		}
		lot.StockOnHand += restoredInt
		lot.QtySold -= restoredInt
		if err := tx.Save(&lot).Error; err != nil {
			config.LogError(logger, "workflow", "ReverseSaleDepletion", "update lot", lot.ID, err)
			return decimal.Zero, err
		}

		mirror := models.InventoryHistory{
			InventoryId:       row.InventoryId,
			ProductId:         row.ProductId,
			InvoiceId:         invoice.ID,
			InvoiceLineItemId: line.ID,
			Qty:               restored,
			UnitCost:          row.UnitCost,
			UnitSellingPrice:  row.UnitSellingPrice,
			TransactionDate:   invoice.InvoiceDate,
			IsReversal:        utils.NewTrue(),
			ReversesHistoryId: &row.ID,
		}
		if err := tx.Create(&mirror).Error; err != nil {
			config.LogError(logger, "workflow", "ReverseSaleDepletion", "append mirror", row.ID, err)
			return decimal.Zero, err
		}
		if err := tx.Model(&models.InventoryHistory{}).Where("id = ?", row.ID).
			Update("reversed_by_history_id", mirror.ID).Error; err != nil {
			config.LogError(logger, "workflow", "ReverseSaleDepletion", "link mirror", row.ID, err)
			return decimal.Zero, err
		}

		consumedValue = consumedValue.Add(row.UnitCost.Mul(restored))
	}

	return consumedValue, nil
}

// ReversePurchaseAccumulation takes back the stock a posted supplier
// invoice line booked in. Stock that was already sold on cannot be
// taken back; the reversal fails rather than driving a lot negative.
// The lot keeps its weighted-average unit cost.
func ReversePurchaseAccumulation(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, line *models.InvoiceLineItem) error {
	rows, err := models.GetInventoryHistoryByLineItem(tx, line.ID)
	if err != nil {
		config.LogError(logger, "workflow", "ReversePurchaseAccumulation", "fetch history", line.ID, err)
		return err
	}

	for i := range rows {
		row := &rows[i]
		if row.ReversedByHistoryId != nil {
			continue
		}
		removed := int(row.Qty.IntPart())

		var lot models.Inventory
		if err := tx.Where("id = ?", row.InventoryId).First(&lot).Error; err != nil {
			config.LogError(logger, "workflow", "ReversePurchaseAccumulation", "fetch lot", row.InventoryId, err)
			return err
		}
		if lot.StockOnHand < removed {
			return utils.NewDataIntegrityError(nil,
				"lot %d holds %d units, cannot take back %d", lot.ID, lot.StockOnHand, removed)
		}
		lot.StockOnHand -= removed
		lot.PurchaseQty -= removed
		if err := tx.Save(&lot).Error; err != nil {
			config.LogError(logger, "workflow", "ReversePurchaseAccumulation", "update lot", lot.ID, err)
			return err
		}

		mirror := models.InventoryHistory{
			InventoryId:       row.InventoryId,
			ProductId:         row.ProductId,
			InvoiceId:         invoice.ID,
			InvoiceLineItemId: line.ID,
			Qty:               row.Qty.Neg(),
			UnitCost:          row.UnitCost,
			TransactionDate:   invoice.InvoiceDate,
			IsReversal:        utils.NewTrue(),
			ReversesHistoryId: &row.ID,
		}
		if err := tx.Create(&mirror).Error; err != nil {
			config.LogError(logger, "workflow", "ReversePurchaseAccumulation", "append mirror", row.ID, err)
			return err
		}
		if err := tx.Model(&models.InventoryHistory{}).Where("id = ?", row.ID).
			Update("reversed_by_history_id", mirror.ID).Error; err != nil {
			config.LogError(logger, "workflow", "ReversePurchaseAccumulation", "link mirror", row.ID, err)
			return err
		}
	}

	return nil
}
