// Package finance holds the pure money rules of the ledger: sale financials, commission tiers,
// bucket rollups and monthly KPIs. Nothing in this package performs I/O.
package finance

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount           = errors.New("amount must not be negative")
	ErrInvalidRate             = errors.New("rate must be between 0 and 1 with at most 4 decimal places")
	ErrInvalidMonthKey         = errors.New("invalid month key")
	ErrUnknownDiscountType     = errors.New("unknown discount type")
	ErrInvalidPercentageAmount = errors.New("percentage discount must be between 0 and 100")
	ErrEmptyAllocations        = errors.New("template needs at least one allocation")
	ErrAllocationPercentage    = errors.New("allocation percentage must be in (0, 1]")
	ErrDuplicateAllocation     = errors.New("bucket allocated more than once")
	ErrAllocationSum           = errors.New("allocations must sum to 100%")
	ErrInvalidLevelRules       = errors.New("invalid seller level rules")
)

// RatePlaces is the scale of every stored rate column
const RatePlaces = 4

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Round2 rounds half away from zero to cents
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsRate reports whether d lies in [0, 1] and fits RatePlaces without rounding
func IsRate(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(one) && d.Equal(d.Truncate(RatePlaces))
}
