package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyKpiSnapshot is the month rollup of sales; one row per month key.
// Ratio columns hold any quotient of two decimal(18,2) amounts down to one cent.
type MonthlyKpiSnapshot struct {
	ID                       uint                `gorm:"primaryKey" json:"id"`
	MonthKey                 string              `gorm:"size:7;not null;uniqueIndex:uk_monthly_kpi_snapshots_month_key" json:"month_key"`
	TotalPriceBefore         decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"total_price_before"`
	TotalRevenue             decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"total_revenue"`
	TotalProfitAfterPlatform decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"total_profit_after_platform"`
	TotalNetProfit           decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"total_net_profit"`
	TotalDiscount            decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"total_discount"`
	TotalCommission          decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"total_commission"`
	SalesCount               int64               `gorm:"not null" json:"sales_count"`
	AverageSaleValue         decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"average_sale_value"`
	DiscountRate             decimal.Decimal     `gorm:"type:decimal(30,6);not null" json:"discount_rate"`
	GrossMargin              decimal.Decimal     `gorm:"type:decimal(30,6);not null" json:"gross_margin"`
	RevenueGrowth            decimal.NullDecimal `gorm:"type:decimal(30,6)" json:"revenue_growth"`
	ProfitGrowth             decimal.NullDecimal `gorm:"type:decimal(30,6)" json:"profit_growth"`
	NetProfitGrowth          decimal.NullDecimal `gorm:"type:decimal(30,6)" json:"net_profit_growth"`
	SalesGrowth              decimal.NullDecimal `gorm:"type:decimal(30,6)" json:"sales_growth"`
	ComputedAt               time.Time           `gorm:"not null" json:"computed_at"`
	CreatedAt                time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MonthlyKpiSnapshot) TableName() string {
	return "monthly_kpi_snapshots"
}

// MonthlyKpiSnapshotFilter represents filter criteria for snapshot queries
type MonthlyKpiSnapshotFilter struct {
	MonthKey      *string
	MonthKeyFrom  *string
	MonthKeyUntil *string
}
