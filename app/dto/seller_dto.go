package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSellerRequest creates a seller account and its profile
type CreateSellerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// SellerItem is a seller with the current month's figures
type SellerItem struct {
	ID                   uint            `json:"id"`
	UserID               uint            `json:"user_id"`
	Name                 string          `json:"name"`
	Email                string          `json:"email"`
	Level                int             `json:"level"`
	SalesThisMonth       int             `json:"sales_this_month"`
	CurrentCommission    decimal.Decimal `json:"current_commission"`
	MonthKey             string          `json:"month_key"`
	TotalCommissionPaid  decimal.Decimal `json:"total_commission_paid"`
	MonthRevenue         decimal.Decimal `json:"month_revenue"`
	MonthNetProfit       decimal.Decimal `json:"month_net_profit"`
	MonthCommission      decimal.Decimal `json:"month_commission"`
	NextLevelTarget      *int            `json:"next_level_target,omitempty"`
	RemainingToNextLevel int             `json:"remaining_to_next_level"`
}

// SellerResponse returns one seller
type SellerResponse struct {
	Message string     `json:"message"`
	Seller  SellerItem `json:"seller"`
}

// ListSellersResponse lists sellers for the current month
type ListSellersResponse struct {
	Message  string       `json:"message"`
	MonthKey string       `json:"month_key"`
	Items    []SellerItem `json:"items"`
}

// LevelHistoryItem is one tier change
type LevelHistoryItem struct {
	ID             uint            `json:"id"`
	SaleID         *uint           `json:"sale_id,omitempty"`
	PreviousLevel  int             `json:"previous_level"`
	NewLevel       int             `json:"new_level"`
	PreviousRate   decimal.Decimal `json:"previous_rate"`
	NewRate        decimal.Decimal `json:"new_rate"`
	EffectiveMonth string          `json:"effective_month"`
	ChangedAt      time.Time       `json:"changed_at"`
}

// LevelHistoryResponse lists a seller's tier changes, newest first
type LevelHistoryResponse struct {
	Message string             `json:"message"`
	Items   []LevelHistoryItem `json:"items"`
}

// LevelRuleInput is one requested tier
type LevelRuleInput struct {
	Level          int    `json:"level" validate:"required,min=1"`
	MinSales       int    `json:"min_sales" validate:"min=0"`
	MaxSales       *int   `json:"max_sales,omitempty" validate:"omitempty,min=0"`
	CommissionRate string `json:"commission_rate" validate:"required,numeric"`
}

// UpdateLevelRulesRequest replaces the whole tier table
type UpdateLevelRulesRequest struct {
	Rules []LevelRuleInput `json:"rules" validate:"required,min=1,dive"`
}

// LevelRuleItem is a stored tier
type LevelRuleItem struct {
	Level          int             `json:"level"`
	MinSales       int             `json:"min_sales"`
	MaxSales       *int            `json:"max_sales,omitempty"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// LevelRulesResponse lists tiers by level
type LevelRulesResponse struct {
	Message string          `json:"message"`
	Items   []LevelRuleItem `json:"items"`
}
