package finance

import (
	"time"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
)

const ratioPlaces = 6

// MaxRatio bounds every stored ratio so it fits the decimal(30,6) snapshot columns
var MaxRatio = decimal.RequireFromString("999999999999999999999999")

// ComputeKpi builds the snapshot for monthKey from the month's sale rollup.
// previous is the snapshot of the immediately preceding calendar month, or nil.
func ComputeKpi(monthKey string, agg models.SaleAggregate, previous *models.MonthlyKpiSnapshot, computedAt time.Time) models.MonthlyKpiSnapshot {
	snap := models.MonthlyKpiSnapshot{
		MonthKey:                 monthKey,
		TotalPriceBefore:         agg.TotalPriceBefore,
		TotalRevenue:             agg.TotalRevenue,
		TotalProfitAfterPlatform: agg.TotalProfitAfterPlatform,
		TotalNetProfit:           agg.TotalNetProfit,
		TotalDiscount:            agg.TotalDiscount,
		TotalCommission:          agg.TotalCommission,
		SalesCount:               agg.SalesCount,
		AverageSaleValue:         decimal.Zero,
		DiscountRate:             ratio(agg.TotalDiscount, agg.TotalPriceBefore),
		GrossMargin:              ratio(agg.TotalNetProfit, agg.TotalRevenue),
		ComputedAt:               computedAt,
	}
	if agg.SalesCount > 0 {
		snap.AverageSaleValue = agg.TotalRevenue.DivRound(decimal.NewFromInt(agg.SalesCount), 2)
	}

	ApplyGrowth(&snap, previous)
	return snap
}

// ApplyGrowth sets the growth fields of snap against the previous month's snapshot.
// Growth stays null when there is no previous snapshot or the previous value is zero.
func ApplyGrowth(snap *models.MonthlyKpiSnapshot, previous *models.MonthlyKpiSnapshot) {
	if previous == nil {
		snap.RevenueGrowth = decimal.NullDecimal{}
		snap.ProfitGrowth = decimal.NullDecimal{}
		snap.NetProfitGrowth = decimal.NullDecimal{}
		snap.SalesGrowth = decimal.NullDecimal{}
		return
	}
	snap.RevenueGrowth = Growth(snap.TotalRevenue, previous.TotalRevenue)
	snap.ProfitGrowth = Growth(snap.TotalProfitAfterPlatform, previous.TotalProfitAfterPlatform)
	snap.NetProfitGrowth = Growth(snap.TotalNetProfit, previous.TotalNetProfit)
	snap.SalesGrowth = Growth(decimal.NewFromInt(snap.SalesCount), decimal.NewFromInt(previous.SalesCount))
}

// Growth is (current - previous) / previous, null when previous is zero
func Growth(current, previous decimal.Decimal) decimal.NullDecimal {
	if previous.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{
		Decimal: clampRatio(current.Sub(previous).DivRound(previous, ratioPlaces)),
		Valid:   true,
	}
}

func ratio(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return clampRatio(numerator.DivRound(denominator, ratioPlaces))
}

func clampRatio(d decimal.Decimal) decimal.Decimal {
	if d.GreaterThan(MaxRatio) {
		return MaxRatio
	}
	if d.LessThan(MaxRatio.Neg()) {
		return MaxRatio.Neg()
	}
	return d
}
