package finance

import (
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
)

// AllocationSumTolerance is the allowed absolute deviation of a template's total from 1
var AllocationSumTolerance = decimal.RequireFromString("0.01")

// AllocationShare is one bucket's cut of a sale's net profit
type AllocationShare struct {
	BucketID   uint
	Percentage decimal.Decimal
	Amount     decimal.Decimal
}

// ValidateAllocations checks a template's allocation set at save time
func ValidateAllocations(allocations []models.DistributionAllocation) error {
	if len(allocations) == 0 {
		return ErrEmptyAllocations
	}

	seen := make(map[uint]struct{}, len(allocations))
	sum := decimal.Zero
	for _, a := range allocations {
		if !a.Percentage.IsPositive() || a.Percentage.GreaterThan(one) {
			return fmt.Errorf("%w: bucket %d has %s", ErrAllocationPercentage, a.BucketID, a.Percentage)
		}
		if _, ok := seen[a.BucketID]; ok {
			return fmt.Errorf("%w: bucket %d", ErrDuplicateAllocation, a.BucketID)
		}
		seen[a.BucketID] = struct{}{}
		sum = sum.Add(a.Percentage)
	}

	if sum.Sub(one).Abs().GreaterThan(AllocationSumTolerance) {
		return fmt.Errorf("%w: got %s", ErrAllocationSum, sum)
	}
	return nil
}

// AllocateNetProfit splits net profit over the allocations in template order
func AllocateNetProfit(netProfit decimal.Decimal, allocations []models.DistributionAllocation) []AllocationShare {
	shares := make([]AllocationShare, 0, len(allocations))
	for _, a := range allocations {
		shares = append(shares, AllocationShare{
			BucketID:   a.BucketID,
			Percentage: a.Percentage,
			Amount:     Round2(netProfit.Mul(a.Percentage)),
		})
	}
	return shares
}
