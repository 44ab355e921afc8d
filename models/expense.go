package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is an outflow charged to a bucket
type Expense struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BucketID        uint            `gorm:"not null;index:idx_expenses_bucket_id" json:"bucket_id"`
	Bucket          *FundBucket     `gorm:"foreignKey:BucketID;references:ID" json:"bucket,omitempty"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	ExpenseDate     time.Time       `gorm:"not null" json:"expense_date"`
	MonthKey        string          `gorm:"size:7;not null;index:idx_expenses_month_key" json:"month_key"`
	CreatedByUserID *uint           `json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

// ExpenseFilter represents filter criteria for expense queries
type ExpenseFilter struct {
	ID       *uint
	BucketID *uint
	MonthKey *string
}
