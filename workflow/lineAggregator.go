package workflow

import (
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// AggregationLine carries one invoice line with its product and the
// category the resolver picked for it.
type AggregationLine struct {
	Line       *models.InvoiceLineItem
	Product    *models.Product
	CategoryId int
}

// CategoryTotal is one per-category subtotal, in invoice currency.
type CategoryTotal struct {
	CategoryId    int
	Net           decimal.Decimal
	DiscountTotal decimal.Decimal
}

// AggregateByCategory groups invoice lines by resolved category and
// produces one subtotal per category, in first-seen category order.
//
// Per-line discounts are subtracted into the category total and tracked
// in the category's discount accumulator, then the accumulator is added
// back when the category is finalized, so they cancel out of the posted
// subtotal. Only the header-level discount produces its own journal
// line. Inclusive excise is netted out only for excise-inclusive
// products on tax-inclusive invoices; inclusive VAT is netted out for
// every line of a tax-inclusive invoice.
func AggregateByCategory(lines []AggregationLine, taxInclusive bool) []CategoryTotal {
	order := make([]int, 0, len(lines))
	byCategory := make(map[int]*CategoryTotal)

	for _, al := range lines {
		total, ok := byCategory[al.CategoryId]
		if !ok {
			total = &CategoryTotal{CategoryId: al.CategoryId}
			byCategory[al.CategoryId] = total
			order = append(order, al.CategoryId)
		}

		gross := al.Line.UnitPrice.Mul(utils.DecimalFromInt(al.Line.Qty))
		lineDiscount := decimal.Zero
		if al.Line.DiscountAmount != nil && al.Line.DiscountType != nil {
			switch *al.Line.DiscountType {
			case models.DiscountTypeFixed:
				lineDiscount = *al.Line.DiscountAmount
			case models.DiscountTypePercentage:
				lineDiscount = gross.Mul(*al.Line.DiscountAmount).Div(decimal.NewFromInt(100))
			}
		}

		total.Net = total.Net.Add(gross.Sub(lineDiscount))
		total.DiscountTotal = total.DiscountTotal.Add(lineDiscount)

		if taxInclusive && al.Product.ExciseInclusive() {
			total.Net = total.Net.Sub(al.Line.ExciseAmount)
		}
		if taxInclusive {
			total.Net = total.Net.Sub(al.Line.VatAmount)
		}
	}

	totals := make([]CategoryTotal, 0, len(order))
	for _, categoryId := range order {
		total := byCategory[categoryId]
		total.Net = total.Net.Add(total.DiscountTotal)
		totals = append(totals, *total)
	}
	return totals
}
