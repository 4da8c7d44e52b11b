// seed-admin migrates the schema, seeds the well-known transaction
// categories the posting engine resolves by code, and creates or
// updates the admin user.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
	"bitbucket.org/mmdatafocus/ledger_backend/models"
	"bitbucket.org/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "ledgerAdmin"
	adminPassword = "L3dgerAdmin!"
)

var wellKnownCategoryNames = map[models.CategoryCode]string{
	models.CategoryCodeInventoryAsset:   "Inventory Asset",
	models.CategoryCodeCostOfGoodsSold:  "Cost of Goods Sold",
	models.CategoryCodeInputVat:         "Input VAT",
	models.CategoryCodeOutputVat:        "Output VAT",
	models.CategoryCodeInputExciseTax:   "Input Excise Tax",
	models.CategoryCodeOutputExciseTax:  "Output Excise Tax",
	models.CategoryCodeSalesDiscount:    "Sales Discount",
	models.CategoryCodePurchaseDiscount: "Purchase Discount",
}

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate schema: %v\n", err)
		os.Exit(1)
	}

	if err := seedWellKnownCategories(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed categories: %v\n", err)
		os.Exit(1)
	}
	if err := models.InvalidateWellKnownCategories(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to invalidate category cache: %v\n", err)
		os.Exit(1)
	}

	if err := seedAdminUser(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin user: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("seed-admin: done")
}

func seedWellKnownCategories(db *gorm.DB) error {
	for _, code := range models.WellKnownCategoryCodes {
		codeStr := string(code)
		var existing models.TransactionCategory
		err := db.Where("code = ?", codeStr).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		category := models.TransactionCategory{
			Name:     wellKnownCategoryNames[code],
			Code:     &codeStr,
			IsActive: utils.NewTrue(),
		}
		if err := db.Create(&category).Error; err != nil {
			return err
		}
		fmt.Printf("seeded category %s (id=%d)\n", codeStr, category.ID)
	}
	return nil
}

func seedAdminUser(db *gorm.DB) error {
	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		return err
	}

	var existing models.User
	err = db.Where("user_name = ?", adminUsername).First(&existing).Error
	if err == nil {
		return db.Model(&existing).Updates(map[string]interface{}{
			"password": string(hashed),
			"is_admin": true,
		}).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	user := models.User{
		UserName: adminUsername,
		Password: string(hashed),
		IsAdmin:  utils.NewTrue(),
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	fmt.Printf("created admin user %s (id=%d)\n", adminUsername, user.ID)
	return nil
}
