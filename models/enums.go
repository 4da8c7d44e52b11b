package models

type InvoiceDirection string

const (
	InvoiceDirectionCustomer InvoiceDirection = "C"
	InvoiceDirectionSupplier InvoiceDirection = "S"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "Draft"
	InvoiceStatusPosted   InvoiceStatus = "Posted"
	InvoiceStatusReversed InvoiceStatus = "Reversed"
)

type DiscountType string

const (
	DiscountTypeFixed      DiscountType = "F"
	DiscountTypePercentage DiscountType = "P"
)

type JournalReferenceType string

const (
	JournalReferenceTypeInvoice        JournalReferenceType = "IV"
	JournalReferenceTypeReverseInvoice JournalReferenceType = "RIV"
)

type ContactType string

const (
	ContactTypeCustomer ContactType = "C"
	ContactTypeSupplier ContactType = "S"
)

// ContactMappingPurpose selects a contact's default posting category:
// AR for customer invoices (receivable), AP for supplier invoices (payable).
type ContactMappingPurpose string

const (
	ContactMappingPurposeReceivable ContactMappingPurpose = "AR"
	ContactMappingPurposePayable    ContactMappingPurpose = "AP"
)

// CategoryCode identifies a pre-seeded well-known transaction category.
// The set is closed; resolution goes through a single lookup map rather
// than database ids, so reference data can be rebuilt without rewiring.
type CategoryCode string

const (
	CategoryCodeInventoryAsset   CategoryCode = "INVENTORY_ASSET"
	CategoryCodeCostOfGoodsSold  CategoryCode = "COST_OF_GOODS_SOLD"
	CategoryCodeInputVat         CategoryCode = "INPUT_VAT"
	CategoryCodeOutputVat        CategoryCode = "OUTPUT_VAT"
	CategoryCodeInputExciseTax   CategoryCode = "INPUT_EXCISE_TAX"
	CategoryCodeOutputExciseTax  CategoryCode = "OUTPUT_EXCISE_TAX"
	CategoryCodeSalesDiscount    CategoryCode = "SALES_DISCOUNT"
	CategoryCodePurchaseDiscount CategoryCode = "PURCHASE_DISCOUNT"
)

// WellKnownCategoryCodes is the full closed set, in seed order.
var WellKnownCategoryCodes = []CategoryCode{
	CategoryCodeInventoryAsset,
	CategoryCodeCostOfGoodsSold,
	CategoryCodeInputVat,
	CategoryCodeOutputVat,
	CategoryCodeInputExciseTax,
	CategoryCodeOutputExciseTax,
	CategoryCodeSalesDiscount,
	CategoryCodePurchaseDiscount,
}
