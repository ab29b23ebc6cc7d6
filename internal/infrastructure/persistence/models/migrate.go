package models

// AllModels returns every persistence model in dependency order, for use
// with AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&BillingRunModel{},
		&BillingAccountModel{},
		&RatedItemModel{},
		&InvoiceModel{},
		&InvoiceCategoryModel{},
		&InvoiceSubCategoryModel{},
		&InvoiceTaxModel{},
		&InvoiceDiscountModel{},
		&RejectedAccountModel{},
		&AccountingEntryModel{},
		&TaxModel{},
		&DiscountPlanItemModel{},
		&DiscountPlanAssignmentModel{},
		&LanguageModel{},
	}
}
