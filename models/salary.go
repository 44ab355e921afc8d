package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalaryMode describes how a recipient is paid
type SalaryMode string

const (
	SalaryModePercentage SalaryMode = "PERCENTAGE"
	SalaryModeFixed      SalaryMode = "FIXED"
	SalaryModeUnit       SalaryMode = "UNIT"
)

func (m SalaryMode) IsValid() bool {
	switch m {
	case SalaryModePercentage, SalaryModeFixed, SalaryModeUnit:
		return true
	}
	return false
}

// SalaryRecipient is a payee of salary payments
type SalaryRecipient struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	Name        string              `gorm:"size:255;not null" json:"name"`
	Title       *string             `gorm:"size:255" json:"title,omitempty"`
	Mode        SalaryMode          `gorm:"size:20;not null" json:"mode"`
	Rate        decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"rate"`
	FixedAmount decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"fixed_amount"`
	BucketID    *uint               `gorm:"index:idx_salary_recipients_bucket_id" json:"bucket_id,omitempty"`
	Bucket      *FundBucket         `gorm:"foreignKey:BucketID;references:ID" json:"bucket,omitempty"`
	IsActive    *bool               `gorm:"default:true" json:"is_active"`
	Notes       *string             `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SalaryRecipient) TableName() string {
	return "salary_recipients"
}

// SalaryRecipientFilter represents filter criteria for recipient queries
type SalaryRecipientFilter struct {
	ID       *uint
	Mode     *SalaryMode
	BucketID *uint
	IsActive *bool
}

// SalaryPayment is an outflow paid to a recipient from a bucket
type SalaryPayment struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	RecipientID  uint             `gorm:"not null;index:idx_salary_payments_recipient_id" json:"recipient_id"`
	Recipient    *SalaryRecipient `gorm:"foreignKey:RecipientID;references:ID" json:"recipient,omitempty"`
	BucketID     uint             `gorm:"not null;index:idx_salary_payments_bucket_id" json:"bucket_id"`
	Bucket       *FundBucket      `gorm:"foreignKey:BucketID;references:ID" json:"bucket,omitempty"`
	Amount       decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	PeriodKey    string           `gorm:"size:7;not null;index:idx_salary_payments_period_key" json:"period_key"`
	UnitsCovered *int             `json:"units_covered,omitempty"`
	Notes        *string          `gorm:"type:text" json:"notes,omitempty"`
	PaidAt       time.Time        `gorm:"not null" json:"paid_at"`
	PaidByUserID *uint            `json:"paid_by_user_id,omitempty"`
	CreatedAt    time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SalaryPayment) TableName() string {
	return "salary_payments"
}

// SalaryPaymentFilter represents filter criteria for payment queries
type SalaryPaymentFilter struct {
	ID          *uint
	RecipientID *uint
	BucketID    *uint
	PeriodKey   *string
}
