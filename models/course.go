package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CourseType is a category tag; templates may target a type through ApplicableTo
type CourseType string

const (
	CourseTypeMinisterial CourseType = "MINISTERIAL"
	CourseTypeSummer      CourseType = "SUMMER"
)

func (t CourseType) IsValid() bool {
	return t == CourseTypeMinisterial || t == CourseTypeSummer
}

// HasDefaultTemplate reports whether new courses of this type get the type's template linked automatically
func (t CourseType) HasDefaultTemplate() bool {
	return t == CourseTypeMinisterial || t == CourseTypeSummer
}

// Course is a sellable product
type Course struct {
	ID                     uint                  `gorm:"primaryKey" json:"id"`
	Name                   string                `gorm:"size:255;uniqueIndex:uk_courses_name;not null" json:"name"`
	Type                   CourseType            `gorm:"size:50;not null;index:idx_courses_type" json:"type"`
	Stage                  *int                  `json:"stage,omitempty"`
	BasePrice              decimal.Decimal       `gorm:"type:decimal(18,2);not null" json:"base_price"`
	PlatformFeeRate        decimal.Decimal       `gorm:"type:decimal(6,4);not null" json:"platform_fee_rate"`
	DistributionTemplateID *uint                 `gorm:"index:idx_courses_template_id" json:"distribution_template_id,omitempty"`
	DistributionTemplate   *DistributionTemplate `gorm:"foreignKey:DistributionTemplateID;references:ID" json:"distribution_template,omitempty"`
	CreatedAt              time.Time             `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt              time.Time             `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseFilter represents filter criteria for course queries
type CourseFilter struct {
	ID                     *uint
	Name                   *string
	Type                   *CourseType
	DistributionTemplateID *uint
}
