package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateCourseRequest adds a sellable course
type CreateCourseRequest struct {
	Name                   string  `json:"name" validate:"required,max=255"`
	Type                   string  `json:"type" validate:"required,oneof=MINISTERIAL SUMMER"`
	Stage                  *int    `json:"stage,omitempty" validate:"omitempty,min=0"`
	BasePrice              string  `json:"base_price" validate:"required,numeric"`
	PlatformFeeRate        *string `json:"platform_fee_rate,omitempty" validate:"omitempty,numeric"`
	DistributionTemplateID *uint   `json:"distribution_template_id,omitempty" validate:"omitempty,min=1"`
}

// UpdateCourseRequest changes course fields; nil fields are left as they are
type UpdateCourseRequest struct {
	ID                     uint    `json:"-"`
	Name                   *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Stage                  *int    `json:"stage,omitempty" validate:"omitempty,min=0"`
	BasePrice              *string `json:"base_price,omitempty" validate:"omitempty,numeric"`
	PlatformFeeRate        *string `json:"platform_fee_rate,omitempty" validate:"omitempty,numeric"`
	DistributionTemplateID *uint   `json:"distribution_template_id,omitempty" validate:"omitempty,min=1"`
	ClearTemplate          bool    `json:"clear_template,omitempty"`
}

// CourseItem is a stored course
type CourseItem struct {
	ID                     uint            `json:"id"`
	Name                   string          `json:"name"`
	Type                   string          `json:"type"`
	Stage                  *int            `json:"stage,omitempty"`
	BasePrice              decimal.Decimal `json:"base_price"`
	PlatformFeeRate        decimal.Decimal `json:"platform_fee_rate"`
	DistributionTemplateID *uint           `json:"distribution_template_id,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

// CourseResponse returns one course
type CourseResponse struct {
	Message string     `json:"message"`
	Course  CourseItem `json:"course"`
}

// ListCoursesResponse lists courses
type ListCoursesResponse struct {
	Message string       `json:"message"`
	Items   []CourseItem `json:"items"`
}

// CreateDiscountRequest adds a named discount
type CreateDiscountRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Type   string `json:"type" validate:"required,oneof=FLAT PERCENTAGE"`
	Amount string `json:"amount" validate:"required,numeric"`
}

// SetDiscountActiveRequest toggles a discount
type SetDiscountActiveRequest struct {
	ID       uint  `json:"-"`
	IsActive *bool `json:"is_active" validate:"required"`
}

// DiscountItem is a stored discount
type DiscountItem struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// DiscountResponse returns one discount
type DiscountResponse struct {
	Message  string       `json:"message"`
	Discount DiscountItem `json:"discount"`
}

// ListDiscountsResponse lists discounts
type ListDiscountsResponse struct {
	Message string         `json:"message"`
	Items   []DiscountItem `json:"items"`
}

// DeleteDiscountResponse tells whether the discount was removed or only deactivated
type DeleteDiscountResponse struct {
	Message     string `json:"message"`
	Deactivated bool   `json:"deactivated"`
}

// TemplateAllocationInput is one requested allocation; percentage is a fraction of 1
type TemplateAllocationInput struct {
	BucketID   uint   `json:"bucket_id" validate:"required"`
	Percentage string `json:"percentage" validate:"required,numeric" example:"0.25"`
}

// SaveTemplateRequest creates or replaces a template
type SaveTemplateRequest struct {
	ID           uint                      `json:"-"`
	Name         string                    `json:"name" validate:"required,max=255"`
	ApplicableTo *string                   `json:"applicable_to,omitempty" validate:"omitempty,oneof=MINISTERIAL SUMMER"`
	Allocations  []TemplateAllocationInput `json:"allocations" validate:"required,min=1,dive"`
}

// TemplateAllocationItem is one stored allocation
type TemplateAllocationItem struct {
	BucketID    uint            `json:"bucket_id"`
	BucketKey   string          `json:"bucket_key,omitempty"`
	BucketLabel string          `json:"bucket_label,omitempty"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// TemplateItem is a stored template
type TemplateItem struct {
	ID           uint                     `json:"id"`
	Name         string                   `json:"name"`
	ApplicableTo *string                  `json:"applicable_to,omitempty"`
	Allocations  []TemplateAllocationItem `json:"allocations"`
	Total        decimal.Decimal          `json:"total"`
}

// TemplateResponse returns one template
type TemplateResponse struct {
	Message  string       `json:"message"`
	Template TemplateItem `json:"template"`
}

// ListTemplatesResponse lists templates
type ListTemplatesResponse struct {
	Message string         `json:"message"`
	Items   []TemplateItem `json:"items"`
}
