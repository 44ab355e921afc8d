package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordSaleRequest records one course sale
type RecordSaleRequest struct {
	CourseID   uint    `json:"course_id" validate:"required"`
	SellerID   *uint   `json:"seller_id,omitempty" validate:"omitempty,min=1"`
	DiscountID *uint   `json:"discount_id,omitempty" validate:"omitempty,min=1"`
	SaleDate   string  `json:"sale_date" validate:"required" example:"2025-03-15T10:00:00Z"`
	Note       *string `json:"note,omitempty" validate:"omitempty,max=2000"`

	RecordedByUserID *uint `json:"-"`
}

// SaleDistributionItem is one bucket share of a sale
type SaleDistributionItem struct {
	BucketID    uint            `json:"bucket_id"`
	BucketKey   string          `json:"bucket_key,omitempty"`
	BucketLabel string          `json:"bucket_label,omitempty"`
	Percentage  decimal.Decimal `json:"percentage"`
	Amount      decimal.Decimal `json:"amount"`
}

// SaleItem is a sale with its derived amounts
type SaleItem struct {
	ID                  uint                   `json:"id"`
	UUID                string                 `json:"uuid"`
	CourseID            uint                   `json:"course_id"`
	CourseName          string                 `json:"course_name,omitempty"`
	SellerID            *uint                  `json:"seller_id,omitempty"`
	SellerName          string                 `json:"seller_name,omitempty"`
	DiscountID          *uint                  `json:"discount_id,omitempty"`
	DiscountName        string                 `json:"discount_name,omitempty"`
	TemplateID          *uint                  `json:"template_id,omitempty"`
	SaleDate            time.Time              `json:"sale_date"`
	MonthKey            string                 `json:"month_key"`
	PriceBefore         decimal.Decimal        `json:"price_before"`
	DiscountAmount      decimal.Decimal        `json:"discount_amount"`
	PriceAfterDiscount  decimal.Decimal        `json:"price_after_discount"`
	PlatformFeeRate     decimal.Decimal        `json:"platform_fee_rate"`
	PlatformFee         decimal.Decimal        `json:"platform_fee"`
	ProfitAfterPlatform decimal.Decimal        `json:"profit_after_platform"`
	CommissionRate      decimal.Decimal        `json:"commission_rate"`
	SellerCommission    decimal.Decimal        `json:"seller_commission"`
	NetProfit           decimal.Decimal        `json:"net_profit"`
	Note                *string                `json:"note,omitempty"`
	Distributions       []SaleDistributionItem `json:"distributions,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

// SellerLevelChange reports the seller state after a sale
type SellerLevelChange struct {
	SellerID       uint            `json:"seller_id"`
	PreviousLevel  int             `json:"previous_level"`
	NewLevel       int             `json:"new_level"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	SalesThisMonth int             `json:"sales_this_month"`
	LevelChanged   bool            `json:"level_changed"`
}

// RecordSaleResponse is returned after a sale is stored
type RecordSaleResponse struct {
	Message string             `json:"message"`
	Sale    SaleItem           `json:"sale"`
	Seller  *SellerLevelChange `json:"seller,omitempty"`
}

// ListSalesRequest filters the sales register
type ListSalesRequest struct {
	PageRequest
	MonthKey   *string `json:"month_key,omitempty" query:"month_key" validate:"omitempty,len=7"`
	CourseID   *uint   `json:"course_id,omitempty" query:"course_id" validate:"omitempty,min=1"`
	SellerID   *uint   `json:"seller_id,omitempty" query:"seller_id" validate:"omitempty,min=1"`
	DiscountID *uint   `json:"discount_id,omitempty" query:"discount_id" validate:"omitempty,min=1"`
}

// ListSalesResponse is one page of the register
type ListSalesResponse struct {
	Message  string     `json:"message"`
	Items    []SaleItem `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// DeleteSaleResponse confirms a sale removal
type DeleteSaleResponse struct {
	Message  string `json:"message"`
	SaleID   uint   `json:"sale_id"`
	MonthKey string `json:"month_key"`
}

// GetSaleResponse returns one sale with its distributions
type GetSaleResponse struct {
	Message string   `json:"message"`
	Sale    SaleItem `json:"sale"`
}
