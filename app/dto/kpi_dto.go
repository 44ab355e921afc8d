package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputeKpiRequest asks for a month to be recomputed
type ComputeKpiRequest struct {
	MonthKey string `json:"month_key" validate:"required,len=7" example:"2025-03"`
}

// KpiSeriesRequest selects how many recent months to return
type KpiSeriesRequest struct {
	Limit int `json:"limit" query:"limit" validate:"omitempty,min=1,max=120"`
}

// MonthlyKpiItem is one month of the KPI series. Growth fields are null without a comparable previous month.
type MonthlyKpiItem struct {
	MonthKey                 string              `json:"month_key"`
	TotalPriceBefore         decimal.Decimal     `json:"total_price_before"`
	TotalRevenue             decimal.Decimal     `json:"total_revenue"`
	TotalProfitAfterPlatform decimal.Decimal     `json:"total_profit_after_platform"`
	TotalNetProfit           decimal.Decimal     `json:"total_net_profit"`
	TotalDiscount            decimal.Decimal     `json:"total_discount"`
	TotalCommission          decimal.Decimal     `json:"total_commission"`
	SalesCount               int64               `json:"sales_count"`
	AverageSaleValue         decimal.Decimal     `json:"average_sale_value"`
	DiscountRate             decimal.Decimal     `json:"discount_rate"`
	GrossMargin              decimal.Decimal     `json:"gross_margin"`
	RevenueGrowth            decimal.NullDecimal `json:"revenue_growth"`
	ProfitGrowth             decimal.NullDecimal `json:"profit_growth"`
	NetProfitGrowth          decimal.NullDecimal `json:"net_profit_growth"`
	SalesGrowth              decimal.NullDecimal `json:"sales_growth"`
	ComputedAt               time.Time           `json:"computed_at"`
}

// ComputeKpiResponse returns the stored snapshot
type ComputeKpiResponse struct {
	Message string         `json:"message"`
	Kpi     MonthlyKpiItem `json:"kpi"`
}

// KpiSeriesResponse lists snapshots in ascending month order
type KpiSeriesResponse struct {
	Message string           `json:"message"`
	Items   []MonthlyKpiItem `json:"items"`
}
