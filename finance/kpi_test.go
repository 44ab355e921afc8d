package finance

import (
	"testing"
	"time"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeKpi(t *testing.T) {
	computedAt := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	agg := models.SaleAggregate{
		TotalPriceBefore:         dec("120000"),
		TotalRevenue:             dec("100000"),
		TotalProfitAfterPlatform: dec("86500"),
		TotalNetProfit:           dec("70000"),
		TotalDiscount:            dec("20000"),
		TotalCommission:          dec("16500"),
		SalesCount:               3,
	}

	t.Run("without previous month", func(t *testing.T) {
		snap := ComputeKpi("2025-03", agg, nil, computedAt)

		assert.Equal(t, "2025-03", snap.MonthKey)
		assert.Equal(t, int64(3), snap.SalesCount)
		assertDecimal(t, "33333.33", snap.AverageSaleValue)
		assertDecimal(t, "0.166667", snap.DiscountRate)
		assertDecimal(t, "0.7", snap.GrossMargin)
		assert.Equal(t, computedAt, snap.ComputedAt)
		assert.False(t, snap.RevenueGrowth.Valid)
		assert.False(t, snap.ProfitGrowth.Valid)
		assert.False(t, snap.NetProfitGrowth.Valid)
		assert.False(t, snap.SalesGrowth.Valid)
	})

	t.Run("with previous month", func(t *testing.T) {
		previous := &models.MonthlyKpiSnapshot{
			MonthKey:                 "2025-02",
			TotalRevenue:             dec("80000"),
			TotalProfitAfterPlatform: dec("0"),
			TotalNetProfit:           dec("50000"),
			SalesCount:               4,
		}
		snap := ComputeKpi("2025-03", agg, previous, computedAt)

		require.True(t, snap.RevenueGrowth.Valid)
		assertDecimal(t, "0.25", snap.RevenueGrowth.Decimal)
		assert.False(t, snap.ProfitGrowth.Valid, "zero previous value has no growth")
		require.True(t, snap.NetProfitGrowth.Valid)
		assertDecimal(t, "0.4", snap.NetProfitGrowth.Decimal)
		require.True(t, snap.SalesGrowth.Valid)
		assertDecimal(t, "-0.25", snap.SalesGrowth.Decimal)
	})

	t.Run("recomputing is idempotent", func(t *testing.T) {
		a := ComputeKpi("2025-03", agg, nil, computedAt)
		b := ComputeKpi("2025-03", agg, nil, computedAt)
		assert.Equal(t, a, b)
	})
}

func TestComputeKpiEmptyMonth(t *testing.T) {
	snap := ComputeKpi("2025-04", models.SaleAggregate{}, nil, time.Now())

	assert.Equal(t, int64(0), snap.SalesCount)
	assert.True(t, snap.AverageSaleValue.IsZero())
	assert.True(t, snap.DiscountRate.IsZero())
	assert.True(t, snap.GrossMargin.IsZero())
}

func TestGrowth(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		previous string
		valid    bool
		expected string
	}{
		{"doubled", "200", "100", true, "1"},
		{"flat", "100", "100", true, "0"},
		{"dropped to zero", "0", "100", true, "-1"},
		{"previous zero", "100", "0", false, ""},
		{"repeating fraction", "100", "300", true, "-0.666667"},
		{"recovery from a cent", "50000", "0.01", true, "4999999"},
		{"beyond the column", "1e30", "0.000001", true, MaxRatio.String()},
		{"negative beyond the column", "-1e30", "0.000001", true, MaxRatio.Neg().String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Growth(dec(tt.current), dec(tt.previous))
			assert.Equal(t, tt.valid, g.Valid)
			if tt.valid {
				assertDecimal(t, tt.expected, g.Decimal)
			}
		})
	}
}

func TestComputeKpiAfterNearFreeMonth(t *testing.T) {
	february := ComputeKpi("2025-02", models.SaleAggregate{
		TotalPriceBefore:         dec("50000"),
		TotalDiscount:            dec("49999.99"),
		TotalRevenue:             dec("0.01"),
		TotalProfitAfterPlatform: dec("0.01"),
		TotalNetProfit:           dec("0.01"),
		SalesCount:               1,
	}, nil, time.Now())

	march := ComputeKpi("2025-03", models.SaleAggregate{
		TotalPriceBefore:         dec("50000"),
		TotalRevenue:             dec("50000"),
		TotalProfitAfterPlatform: dec("43250"),
		TotalNetProfit:           dec("36762.5"),
		SalesCount:               1,
	}, &february, time.Now())

	require.True(t, march.RevenueGrowth.Valid)
	assertDecimal(t, "4999999", march.RevenueGrowth.Decimal)
	assertDecimal(t, "4324999", march.ProfitGrowth.Decimal)
	assertDecimal(t, "3676249", march.NetProfitGrowth.Decimal)
	for _, g := range []decimal.NullDecimal{march.RevenueGrowth, march.ProfitGrowth, march.NetProfitGrowth, march.SalesGrowth} {
		assert.True(t, g.Decimal.LessThanOrEqual(MaxRatio))
	}

	// a discount larger than the list price pushes the rate past one
	overDiscounted := ComputeKpi("2025-04", models.SaleAggregate{
		TotalPriceBefore: dec("0.01"),
		TotalDiscount:    dec("90000"),
	}, nil, time.Now())
	assertDecimal(t, "9000000", overDiscounted.DiscountRate)
}

func TestApplyGrowthClearsStaleValues(t *testing.T) {
	snap := models.MonthlyKpiSnapshot{
		TotalRevenue:  dec("10"),
		RevenueGrowth: decimal.NewNullDecimal(dec("5")),
	}
	ApplyGrowth(&snap, nil)
	assert.False(t, snap.RevenueGrowth.Valid)
}
