package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

func aggLine(categoryId int, qty int, unitPrice string, opts func(*models.InvoiceLineItem, *models.Product)) AggregationLine {
	line := &models.InvoiceLineItem{
		Qty:       qty,
		UnitPrice: decimal.RequireFromString(unitPrice),
	}
	product := &models.Product{
		TrackInventory:    utils.NewFalse(),
		IsExciseInclusive: utils.NewFalse(),
	}
	if opts != nil {
		opts(line, product)
	}
	return AggregationLine{Line: line, Product: product, CategoryId: categoryId}
}

func TestAggregateGroupsByCategoryInFirstSeenOrder(t *testing.T) {
	totals := AggregateByCategory([]AggregationLine{
		aggLine(7, 2, "10.00", nil),
		aggLine(3, 1, "5.00", nil),
		aggLine(7, 1, "4.00", nil),
	}, false)

	if len(totals) != 2 {
		t.Fatalf("expected 2 category totals, got %d", len(totals))
	}
	if totals[0].CategoryId != 7 || totals[1].CategoryId != 3 {
		t.Fatalf("unexpected category order: %d, %d", totals[0].CategoryId, totals[1].CategoryId)
	}
	mustEqual(t, totals[0].Net, decimal.RequireFromString("24.00"), "category 7 net")
	mustEqual(t, totals[1].Net, decimal.RequireFromString("5.00"), "category 3 net")
}

func TestAggregateLineDiscountsCancelOut(t *testing.T) {
	fixed := models.DiscountTypeFixed
	pct := models.DiscountTypePercentage
	fixedAmount := decimal.RequireFromString("3.00")
	pctAmount := decimal.RequireFromString("10")

	totals := AggregateByCategory([]AggregationLine{
		aggLine(1, 2, "10.00", func(line *models.InvoiceLineItem, _ *models.Product) {
			line.DiscountAmount = &fixedAmount
			line.DiscountType = &fixed
		}),
		aggLine(1, 1, "50.00", func(line *models.InvoiceLineItem, _ *models.Product) {
			line.DiscountAmount = &pctAmount
			line.DiscountType = &pct
		}),
	}, false)

	if len(totals) != 1 {
		t.Fatalf("expected 1 category total, got %d", len(totals))
	}
	// 20 + 50: the per-line discounts are tracked but re-added on finalize.
	mustEqual(t, totals[0].Net, decimal.RequireFromString("70.00"), "net after discount cancel")
	mustEqual(t, totals[0].DiscountTotal, decimal.RequireFromString("8.00"), "discount accumulator")
}

func TestAggregateTaxInclusiveNetsOutVat(t *testing.T) {
	totals := AggregateByCategory([]AggregationLine{
		aggLine(1, 1, "115.00", func(line *models.InvoiceLineItem, _ *models.Product) {
			line.VatAmount = decimal.RequireFromString("15.00")
		}),
	}, true)

	mustEqual(t, totals[0].Net, decimal.RequireFromString("100.00"), "tax-inclusive net")
}

func TestAggregateExclusiveInvoiceKeepsVatInTotal(t *testing.T) {
	totals := AggregateByCategory([]AggregationLine{
		aggLine(1, 1, "100.00", func(line *models.InvoiceLineItem, _ *models.Product) {
			line.VatAmount = decimal.RequireFromString("15.00")
		}),
	}, false)

	mustEqual(t, totals[0].Net, decimal.RequireFromString("100.00"), "tax-exclusive net")
}

func TestAggregateExciseNettedOnlyWhenProductAndInvoiceInclusive(t *testing.T) {
	excise := func(line *models.InvoiceLineItem, product *models.Product) {
		line.ExciseAmount = decimal.RequireFromString("5.00")
		product.IsExciseInclusive = utils.NewTrue()
	}

	inclusive := AggregateByCategory([]AggregationLine{aggLine(1, 1, "105.00", excise)}, true)
	mustEqual(t, inclusive[0].Net, decimal.RequireFromString("100.00"), "excise-inclusive net")

	// Excise-inclusive product on a tax-exclusive invoice keeps the full gross.
	exclusive := AggregateByCategory([]AggregationLine{aggLine(1, 1, "105.00", excise)}, false)
	mustEqual(t, exclusive[0].Net, decimal.RequireFromString("105.00"), "tax-exclusive gross")

	// Tax-inclusive invoice with a non-inclusive product nets only VAT.
	plain := AggregateByCategory([]AggregationLine{
		aggLine(1, 1, "105.00", func(line *models.InvoiceLineItem, _ *models.Product) {
			line.ExciseAmount = decimal.RequireFromString("5.00")
		}),
	}, true)
	mustEqual(t, plain[0].Net, decimal.RequireFromString("105.00"), "non-inclusive product gross")
}
