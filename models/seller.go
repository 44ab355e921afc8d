package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SellerProfile holds a seller's monthly counters and current tier
type SellerProfile struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              uint            `gorm:"not null;uniqueIndex:uk_seller_profiles_user_id" json:"user_id"`
	User                *User           `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Level               int             `gorm:"not null;default:1" json:"level"`
	SalesThisMonth      int             `gorm:"not null;default:0" json:"sales_this_month"`
	CurrentCommission   decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"current_commission"`
	MonthKey            string          `gorm:"size:7;not null" json:"month_key"`
	TotalCommissionPaid decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_commission_paid"`
	CreatedAt           time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SellerProfile) TableName() string {
	return "seller_profiles"
}

// SellerProfileFilter represents filter criteria for seller profile queries
type SellerProfileFilter struct {
	ID       *uint
	UserID   *uint
	Level    *int
	MonthKey *string
}

// SellerLevelRule is one commission tier; a nil MaxSales covers "and above"
type SellerLevelRule struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Level          int             `gorm:"not null;uniqueIndex:uk_seller_level_rules_level" json:"level"`
	MinSales       int             `gorm:"not null" json:"min_sales"`
	MaxSales       *int            `json:"max_sales,omitempty"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"commission_rate"`
	CreatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SellerLevelRule) TableName() string {
	return "seller_level_rules"
}

// Matches reports whether salesCount falls inside the rule's range
func (r SellerLevelRule) Matches(salesCount int) bool {
	if salesCount < r.MinSales {
		return false
	}
	return r.MaxSales == nil || salesCount <= *r.MaxSales
}

// SellerLevelRuleFilter represents filter criteria for level rule queries
type SellerLevelRuleFilter struct {
	Level *int
}

// SellerLevelHistory is an append-only record of a tier change caused by a sale
type SellerLevelHistory struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SellerID       uint            `gorm:"not null;index:idx_seller_level_histories_seller_id" json:"seller_id"`
	Seller         *SellerProfile  `gorm:"foreignKey:SellerID;references:ID;constraint:OnDelete:CASCADE" json:"seller,omitempty"`
	SaleID         *uint           `json:"sale_id,omitempty"`
	PreviousLevel  int             `gorm:"not null" json:"previous_level"`
	NewLevel       int             `gorm:"not null" json:"new_level"`
	PreviousRate   decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"previous_rate"`
	NewRate        decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"new_rate"`
	EffectiveMonth string          `gorm:"size:7;not null" json:"effective_month"`
	ChangedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_seller_level_histories_changed_at" json:"changed_at"`
}

func (SellerLevelHistory) TableName() string {
	return "seller_level_histories"
}

// SellerLevelHistoryFilter represents filter criteria for level history queries
type SellerLevelHistoryFilter struct {
	SellerID       *uint
	EffectiveMonth *string
}
