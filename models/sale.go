package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is an immutable record of one course sale and its derived money facts
type Sale struct {
	ID                  uint               `gorm:"primaryKey" json:"id"`
	UUID                uuid.UUID          `gorm:"type:uuid;uniqueIndex:uk_sales_uuid;not null" json:"uuid"`
	CourseID            uint               `gorm:"not null;index:idx_sales_course_id" json:"course_id"`
	Course              *Course            `gorm:"foreignKey:CourseID;references:ID" json:"course,omitempty"`
	SellerID            *uint              `gorm:"index:idx_sales_seller_month,priority:1" json:"seller_id,omitempty"`
	Seller              *SellerProfile     `gorm:"foreignKey:SellerID;references:ID;constraint:OnDelete:SET NULL" json:"seller,omitempty"`
	DiscountID          *uint              `gorm:"index:idx_sales_discount_id" json:"discount_id,omitempty"`
	Discount            *Discount          `gorm:"foreignKey:DiscountID;references:ID" json:"discount,omitempty"`
	TemplateID          *uint              `json:"template_id,omitempty"`
	SaleDate            time.Time          `gorm:"not null" json:"sale_date"`
	MonthKey            string             `gorm:"size:7;not null;index:idx_sales_month_key;index:idx_sales_seller_month,priority:2" json:"month_key"`
	PriceBefore         decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"price_before"`
	DiscountAmount      decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"discount_amount"`
	PriceAfterDiscount  decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"price_after_discount"`
	PlatformFeeRate     decimal.Decimal    `gorm:"type:decimal(6,4);not null" json:"platform_fee_rate"`
	PlatformFee         decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"platform_fee"`
	ProfitAfterPlatform decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"profit_after_platform"`
	CommissionRate      decimal.Decimal    `gorm:"type:decimal(6,4);not null" json:"commission_rate"`
	SellerCommission    decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"seller_commission"`
	NetProfit           decimal.Decimal    `gorm:"type:decimal(18,2);not null" json:"net_profit"`
	Note                *string            `gorm:"type:text" json:"note,omitempty"`
	RecordedByUserID    *uint              `json:"recorded_by_user_id,omitempty"`
	Distributions       []SaleDistribution `gorm:"foreignKey:SaleID;references:ID;constraint:OnDelete:CASCADE" json:"distributions,omitempty"`
	CreatedAt           time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Sale) TableName() string {
	return "sales"
}

// SaleDistribution snapshots one allocation of a sale's net profit into a bucket
type SaleDistribution struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SaleID     uint            `gorm:"not null;index:idx_sale_distributions_sale_id" json:"sale_id"`
	BucketID   uint            `gorm:"not null;index:idx_sale_distributions_bucket_id" json:"bucket_id"`
	Bucket     *FundBucket     `gorm:"foreignKey:BucketID;references:ID" json:"bucket,omitempty"`
	Percentage decimal.Decimal `gorm:"type:decimal(7,6);not null" json:"percentage"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SaleDistribution) TableName() string {
	return "sale_distributions"
}

// SaleFilter represents filter criteria for sale queries
type SaleFilter struct {
	ID         *uint
	CourseID   *uint
	SellerID   *uint
	DiscountID *uint
	MonthKey   *string
	SaleAfter  *time.Time
	SaleBefore *time.Time
}

// SaleDistributionFilter represents filter criteria for distribution queries
type SaleDistributionFilter struct {
	SaleID   *uint
	BucketID *uint
}

// SaleAggregate is the month rollup the KPI aggregator consumes
type SaleAggregate struct {
	TotalPriceBefore         decimal.Decimal `gorm:"column:total_price_before"`
	TotalRevenue             decimal.Decimal `gorm:"column:total_revenue"`
	TotalProfitAfterPlatform decimal.Decimal `gorm:"column:total_profit_after_platform"`
	TotalNetProfit           decimal.Decimal `gorm:"column:total_net_profit"`
	TotalDiscount            decimal.Decimal `gorm:"column:total_discount"`
	TotalCommission          decimal.Decimal `gorm:"column:total_commission"`
	SalesCount               int64           `gorm:"column:sales_count"`
}

// SellerMonthStats is a per-seller group-by row over one month of sales
type SellerMonthStats struct {
	SellerID        uint            `gorm:"column:seller_id"`
	SalesCount      int64           `gorm:"column:sales_count"`
	TotalRevenue    decimal.Decimal `gorm:"column:total_revenue"`
	TotalNetProfit  decimal.Decimal `gorm:"column:total_net_profit"`
	TotalCommission decimal.Decimal `gorm:"column:total_commission"`
}
