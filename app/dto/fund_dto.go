package dto

import (
	"time"

	"github.com/amirphl/academy-ledger/finance"
	"github.com/shopspring/decimal"
)

// CreateBucketRequest adds a node to the fund tree
type CreateBucketRequest struct {
	Key          string  `json:"key" validate:"required,min=2,max=100"`
	Label        string  `json:"label" validate:"required,max=255"`
	ParentID     *uint   `json:"parent_id,omitempty" validate:"omitempty,min=1"`
	DefaultShare *string `json:"default_share,omitempty" validate:"omitempty,numeric"`
}

// BucketItem is a flat bucket
type BucketItem struct {
	ID           uint                `json:"id"`
	Key          string              `json:"key"`
	Label        string              `json:"label"`
	ParentID     *uint               `json:"parent_id,omitempty"`
	DefaultShare decimal.NullDecimal `json:"default_share"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CreateBucketResponse returns the stored bucket
type CreateBucketResponse struct {
	Message string     `json:"message"`
	Bucket  BucketItem `json:"bucket"`
}

// BucketTreeRequest optionally limits sale inflow and expenses to some months
type BucketTreeRequest struct {
	MonthKeys []string `json:"month_keys,omitempty" query:"month_keys" validate:"omitempty,dive,len=7"`
}

// BucketTreeResponse is the aggregated fund forest plus its flattened form
type BucketTreeResponse struct {
	Message   string                  `json:"message"`
	MonthKeys []string                `json:"month_keys,omitempty"`
	Roots     []*finance.BucketNode   `json:"roots"`
	Summary   []finance.BucketSummary `json:"summary"`
}

// CreateExpenseRequest records an outflow from a bucket
type CreateExpenseRequest struct {
	BucketID    uint   `json:"bucket_id" validate:"required"`
	Description string `json:"description" validate:"required,max=2000"`
	Amount      string `json:"amount" validate:"required,numeric"`
	ExpenseDate string `json:"expense_date" validate:"required" example:"2025-03-15"`

	CreatedByUserID *uint `json:"-"`
}

// ExpenseItem is a stored expense
type ExpenseItem struct {
	ID          uint            `json:"id"`
	BucketID    uint            `json:"bucket_id"`
	BucketLabel string          `json:"bucket_label,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
	MonthKey    string          `json:"month_key"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateExpenseResponse returns the stored expense
type CreateExpenseResponse struct {
	Message string      `json:"message"`
	Expense ExpenseItem `json:"expense"`
}

// ListExpensesRequest filters expenses
type ListExpensesRequest struct {
	PageRequest
	MonthKey *string `json:"month_key,omitempty" query:"month_key" validate:"omitempty,len=7"`
	BucketID *uint   `json:"bucket_id,omitempty" query:"bucket_id" validate:"omitempty,min=1"`
}

// ListExpensesResponse is one page of expenses with the page total amount
type ListExpensesResponse struct {
	Message string          `json:"message"`
	Items   []ExpenseItem   `json:"items"`
	Total   int64           `json:"total"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreateSalaryRecipientRequest registers a payee
type CreateSalaryRecipientRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Mode        string  `json:"mode" validate:"required,oneof=PERCENTAGE FIXED UNIT"`
	Rate        *string `json:"rate,omitempty" validate:"omitempty,numeric"`
	FixedAmount *string `json:"fixed_amount,omitempty" validate:"omitempty,numeric"`
	BucketID    *uint   `json:"bucket_id,omitempty" validate:"omitempty,min=1"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// SalaryRecipientItem is a stored payee
type SalaryRecipientItem struct {
	ID          uint                `json:"id"`
	Name        string              `json:"name"`
	Title       *string             `json:"title,omitempty"`
	Mode        string              `json:"mode"`
	Rate        decimal.NullDecimal `json:"rate"`
	FixedAmount decimal.NullDecimal `json:"fixed_amount"`
	BucketID    *uint               `json:"bucket_id,omitempty"`
	IsActive    bool                `json:"is_active"`
	Notes       *string             `json:"notes,omitempty"`
}

// CreateSalaryRecipientResponse returns the stored payee
type CreateSalaryRecipientResponse struct {
	Message   string              `json:"message"`
	Recipient SalaryRecipientItem `json:"recipient"`
}

// ListSalaryRecipientsResponse lists payees
type ListSalaryRecipientsResponse struct {
	Message string                `json:"message"`
	Items   []SalaryRecipientItem `json:"items"`
}

// RecordSalaryPaymentRequest pays a recipient from a bucket; the recipient's bucket is used when omitted
type RecordSalaryPaymentRequest struct {
	RecipientID  uint    `json:"recipient_id" validate:"required"`
	BucketID     *uint   `json:"bucket_id,omitempty" validate:"omitempty,min=1"`
	Amount       string  `json:"amount" validate:"required,numeric"`
	PeriodKey    string  `json:"period_key" validate:"required,len=7" example:"2025-03"`
	UnitsCovered *int    `json:"units_covered,omitempty" validate:"omitempty,min=0"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PaidAt       *string `json:"paid_at,omitempty" validate:"omitempty"`

	PaidByUserID *uint `json:"-"`
}

// SalaryPaymentItem is a stored payment
type SalaryPaymentItem struct {
	ID            uint            `json:"id"`
	RecipientID   uint            `json:"recipient_id"`
	RecipientName string          `json:"recipient_name,omitempty"`
	BucketID      uint            `json:"bucket_id"`
	BucketLabel   string          `json:"bucket_label,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PeriodKey     string          `json:"period_key"`
	UnitsCovered  *int            `json:"units_covered,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
}

// RecordSalaryPaymentResponse returns the stored payment
type RecordSalaryPaymentResponse struct {
	Message string            `json:"message"`
	Payment SalaryPaymentItem `json:"payment"`
}

// ListSalaryPaymentsRequest filters payments
type ListSalaryPaymentsRequest struct {
	PageRequest
	RecipientID *uint   `json:"recipient_id,omitempty" query:"recipient_id" validate:"omitempty,min=1"`
	PeriodKey   *string `json:"period_key,omitempty" query:"period_key" validate:"omitempty,len=7"`
}

// ListSalaryPaymentsResponse lists payments
type ListSalaryPaymentsResponse struct {
	Message string              `json:"message"`
	Items   []SalaryPaymentItem `json:"items"`
	Total   int64               `json:"total"`
}
