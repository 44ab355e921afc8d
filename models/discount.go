package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType tells how Amount is interpreted
type DiscountType string

const (
	// DiscountTypeFlat subtracts Amount as a currency value
	DiscountTypeFlat DiscountType = "FLAT"
	// DiscountTypePercentage subtracts Amount percentage points of the base price
	DiscountTypePercentage DiscountType = "PERCENTAGE"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountTypeFlat || t == DiscountTypePercentage
}

// Discount is a named price reduction. Sales keep their own computed discount amount.
type Discount struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:255;uniqueIndex:uk_discounts_name;not null" json:"name"`
	Type      DiscountType    `gorm:"size:20;not null" json:"type"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	IsActive  *bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Discount) TableName() string {
	return "discounts"
}

// DiscountFilter represents filter criteria for discount queries
type DiscountFilter struct {
	ID       *uint
	Name     *string
	Type     *DiscountType
	IsActive *bool
}
