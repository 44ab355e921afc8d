package finance

import (
	"fmt"
	"sort"

	"github.com/amirphl/academy-ledger/models"
)

// LevelMatch is the tier selected for a sales count.
// Fallback is set when no rule covered the count and the lowest tier was used instead.
type LevelMatch struct {
	Rule     models.SellerLevelRule
	Fallback bool
}

// Progress describes the distance to the next tier. Target is nil on the top, unbounded tier.
type Progress struct {
	Target    *int
	Remaining int
}

// SortRules returns a copy of rules ordered by level
func SortRules(rules []models.SellerLevelRule) []models.SellerLevelRule {
	sorted := make([]models.SellerLevelRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Level < sorted[j].Level
	})
	return sorted
}

// DetermineSellerLevel picks the first tier, by level, whose range covers salesCount.
// When none does it falls back to the lowest tier; with no rules at all it returns a zero rule.
func DetermineSellerLevel(salesCount int, rules []models.SellerLevelRule) LevelMatch {
	sorted := SortRules(rules)
	for _, rule := range sorted {
		if rule.Matches(salesCount) {
			return LevelMatch{Rule: rule}
		}
	}
	if len(sorted) == 0 {
		return LevelMatch{Fallback: true}
	}
	return LevelMatch{Rule: sorted[0], Fallback: true}
}

// NextLevelProgress reports how many more sales are needed to leave rule's range
func NextLevelProgress(salesCount int, rule models.SellerLevelRule) Progress {
	if rule.MaxSales == nil {
		return Progress{}
	}
	target := *rule.MaxSales + 1
	remaining := target - salesCount
	if remaining < 0 {
		remaining = 0
	}
	return Progress{Target: &target, Remaining: remaining}
}

// ValidateLevelRules checks that rules form contiguous, non-overlapping ranges starting at zero,
// ordered by level, with at most one unbounded rule on the top level.
func ValidateLevelRules(rules []models.SellerLevelRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: at least one rule is required", ErrInvalidLevelRules)
	}

	sorted := SortRules(rules)
	for i, rule := range sorted {
		if i > 0 && rule.Level == sorted[i-1].Level {
			return fmt.Errorf("%w: level %d appears twice", ErrInvalidLevelRules, rule.Level)
		}
		if !IsRate(rule.CommissionRate) {
			return fmt.Errorf("%w: level %d commission rate %s", ErrInvalidLevelRules, rule.Level, rule.CommissionRate)
		}
		if rule.MaxSales != nil && *rule.MaxSales < rule.MinSales {
			return fmt.Errorf("%w: level %d max sales below min sales", ErrInvalidLevelRules, rule.Level)
		}

		if i == 0 {
			if rule.MinSales != 0 {
				return fmt.Errorf("%w: lowest level must start at 0 sales", ErrInvalidLevelRules)
			}
			continue
		}

		prev := sorted[i-1]
		if prev.MaxSales == nil {
			return fmt.Errorf("%w: level %d is unbounded but not the top level", ErrInvalidLevelRules, prev.Level)
		}
		if rule.MinSales != *prev.MaxSales+1 {
			return fmt.Errorf("%w: level %d must start at %d sales", ErrInvalidLevelRules, rule.Level, *prev.MaxSales+1)
		}
	}
	return nil
}
