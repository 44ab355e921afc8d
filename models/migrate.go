package models

// All returns every persisted entity, parents before children, for schema migration
func All() []any {
	return []any{
		&User{},
		&FundBucket{},
		&DistributionTemplate{},
		&DistributionAllocation{},
		&Course{},
		&Discount{},
		&SellerProfile{},
		&SellerLevelRule{},
		&SellerLevelHistory{},
		&Sale{},
		&SaleDistribution{},
		&Expense{},
		&SalaryRecipient{},
		&SalaryPayment{},
		&MonthlyKpiSnapshot{},
		&AuditLog{},
	}
}
