package models

import "gorm.io/gorm"

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&TransactionCategory{},
		&Contact{},
		&ContactCategory{},
		&Product{},
		&Invoice{},
		&InvoiceLineItem{},
		&Inventory{},
		&InventoryHistory{},
		&Journal{},
		&JournalLineItem{},
	)
}
