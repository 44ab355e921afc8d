package finance

import (
	"testing"

	"github.com/amirphl/academy-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func defaultRules() []models.SellerLevelRule {
	// deliberately unordered
	return []models.SellerLevelRule{
		{Level: 3, MinSales: 20, MaxSales: intPtr(39), CommissionRate: dec("0.25")},
		{Level: 1, MinSales: 0, MaxSales: intPtr(9), CommissionRate: dec("0.15")},
		{Level: 4, MinSales: 40, MaxSales: nil, CommissionRate: dec("0.33")},
		{Level: 2, MinSales: 10, MaxSales: intPtr(19), CommissionRate: dec("0.2")},
	}
}

func TestDetermineSellerLevel(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		level    int
		rate     string
		fallback bool
	}{
		{"no sales", 0, 1, "0.15", false},
		{"top of level one", 9, 1, "0.15", false},
		{"tenth sale promotes", 10, 2, "0.2", false},
		{"level three", 25, 3, "0.25", false},
		{"lower bound of unbounded tier", 40, 4, "0.33", false},
		{"far above", 1000, 4, "0.33", false},
		{"negative count falls back", -1, 1, "0.15", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := DetermineSellerLevel(tt.count, defaultRules())
			assert.Equal(t, tt.level, match.Rule.Level)
			assertDecimal(t, tt.rate, match.Rule.CommissionRate)
			assert.Equal(t, tt.fallback, match.Fallback)
		})
	}
}

func TestDetermineSellerLevelExactlyOneRuleMatches(t *testing.T) {
	rules := defaultRules()
	for count := 0; count <= 100; count++ {
		matches := 0
		for _, r := range rules {
			if r.Matches(count) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "count %d", count)
		assert.False(t, DetermineSellerLevel(count, rules).Fallback, "count %d", count)
	}
}

func TestDetermineSellerLevelFallback(t *testing.T) {
	t.Run("gap in ranges uses lowest level", func(t *testing.T) {
		rules := []models.SellerLevelRule{
			{Level: 2, MinSales: 10, MaxSales: nil, CommissionRate: dec("0.2")},
			{Level: 1, MinSales: 0, MaxSales: intPtr(4), CommissionRate: dec("0.15")},
		}
		match := DetermineSellerLevel(7, rules)
		assert.True(t, match.Fallback)
		assert.Equal(t, 1, match.Rule.Level)
	})

	t.Run("empty rule set", func(t *testing.T) {
		match := DetermineSellerLevel(3, nil)
		assert.True(t, match.Fallback)
		assert.Equal(t, 0, match.Rule.Level)
		assert.True(t, match.Rule.CommissionRate.IsZero())
	})

	t.Run("does not reorder caller slice", func(t *testing.T) {
		rules := defaultRules()
		DetermineSellerLevel(5, rules)
		assert.Equal(t, 3, rules[0].Level)
	})
}

func TestNextLevelProgress(t *testing.T) {
	rules := SortRules(defaultRules())

	progress := NextLevelProgress(9, rules[0])
	require.NotNil(t, progress.Target)
	assert.Equal(t, 10, *progress.Target)
	assert.Equal(t, 1, progress.Remaining)

	progress = NextLevelProgress(12, rules[1])
	require.NotNil(t, progress.Target)
	assert.Equal(t, 20, *progress.Target)
	assert.Equal(t, 8, progress.Remaining)

	progress = NextLevelProgress(25, rules[0])
	require.NotNil(t, progress.Target)
	assert.Equal(t, 0, progress.Remaining)

	progress = NextLevelProgress(55, rules[3])
	assert.Nil(t, progress.Target)
	assert.Equal(t, 0, progress.Remaining)
}

func TestValidateLevelRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []models.SellerLevelRule
		wantErr bool
	}{
		{"default set", defaultRules(), false},
		{"single unbounded", []models.SellerLevelRule{{Level: 1, MinSales: 0, CommissionRate: dec("0.1")}}, false},
		{"empty", nil, true},
		{"not starting at zero", []models.SellerLevelRule{{Level: 1, MinSales: 1, CommissionRate: dec("0.1")}}, true},
		{"gap", []models.SellerLevelRule{
			{Level: 1, MinSales: 0, MaxSales: intPtr(4), CommissionRate: dec("0.1")},
			{Level: 2, MinSales: 6, CommissionRate: dec("0.2")},
		}, true},
		{"overlap", []models.SellerLevelRule{
			{Level: 1, MinSales: 0, MaxSales: intPtr(10), CommissionRate: dec("0.1")},
			{Level: 2, MinSales: 10, CommissionRate: dec("0.2")},
		}, true},
		{"unbounded below top", []models.SellerLevelRule{
			{Level: 1, MinSales: 0, CommissionRate: dec("0.1")},
			{Level: 2, MinSales: 10, CommissionRate: dec("0.2")},
		}, true},
		{"duplicate level", []models.SellerLevelRule{
			{Level: 1, MinSales: 0, MaxSales: intPtr(4), CommissionRate: dec("0.1")},
			{Level: 1, MinSales: 5, CommissionRate: dec("0.2")},
		}, true},
		{"rate above one", []models.SellerLevelRule{{Level: 1, MinSales: 0, CommissionRate: dec("1.5")}}, true},
		{"max below min", []models.SellerLevelRule{{Level: 1, MinSales: 0, MaxSales: intPtr(-1), CommissionRate: dec("0.1")}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLevelRules(tt.rules)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLevelRules)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
