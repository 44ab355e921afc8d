package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundBucket is a node of the fund allocation tree
type FundBucket struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	Key          string              `gorm:"size:100;uniqueIndex:uk_fund_buckets_key;not null" json:"key"`
	Label        string              `gorm:"size:255;not null" json:"label"`
	ParentID     *uint               `gorm:"index:idx_fund_buckets_parent_id" json:"parent_id,omitempty"`
	DefaultShare decimal.NullDecimal `gorm:"type:decimal(7,4)" json:"default_share"`
	CreatedAt    time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FundBucket) TableName() string {
	return "fund_buckets"
}

// FundBucketFilter represents filter criteria for bucket queries
type FundBucketFilter struct {
	ID       *uint
	Key      *string
	ParentID *uint
	RootOnly *bool
}
