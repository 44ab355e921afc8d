package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DistributionTemplate maps buckets to shares of a sale's net profit
type DistributionTemplate struct {
	ID           uint                     `gorm:"primaryKey" json:"id"`
	Name         string                   `gorm:"size:255;uniqueIndex:uk_distribution_templates_name;not null" json:"name"`
	ApplicableTo *CourseType              `gorm:"size:50;index:idx_distribution_templates_applicable_to" json:"applicable_to,omitempty"`
	Allocations  []DistributionAllocation `gorm:"foreignKey:TemplateID;references:ID" json:"allocations,omitempty"`
	CreatedAt    time.Time                `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time                `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DistributionTemplate) TableName() string {
	return "distribution_templates"
}

// DistributionAllocation is one template line: a bucket and its fraction of net profit
type DistributionAllocation struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	TemplateID uint            `gorm:"not null;index:idx_distribution_allocations_template_id" json:"template_id"`
	BucketID   uint            `gorm:"not null;index:idx_distribution_allocations_bucket_id" json:"bucket_id"`
	Bucket     *FundBucket     `gorm:"foreignKey:BucketID;references:ID" json:"bucket,omitempty"`
	Percentage decimal.Decimal `gorm:"type:decimal(7,6);not null" json:"percentage"`
	Position   int             `gorm:"not null;default:0" json:"position"`
}

func (DistributionAllocation) TableName() string {
	return "distribution_allocations"
}

// DistributionTemplateFilter represents filter criteria for template queries
type DistributionTemplateFilter struct {
	ID           *uint
	Name         *string
	ApplicableTo *CourseType
}

// AllocationSum returns the sum of the template's allocation percentages
func (t *DistributionTemplate) AllocationSum() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range t.Allocations {
		sum = sum.Add(a.Percentage)
	}
	return sum
}
