package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordOn(t *testing.T, s *saleSetup, dates ...string) {
	t.Helper()
	for _, date := range dates {
		_, err := s.saleFlow.RecordSale(context.Background(), &dto.RecordSaleRequest{
			CourseID: s.course.ID,
			SaleDate: date,
		}, ownerMetadata())
		require.NoError(t, err)
	}
}

func TestRecomputeMonthComputesGrowthAgainstPreviousMonth(t *testing.T) {
	s := newSaleSetup(t)
	recordOn(t, s, "2025-02-10", "2025-03-01", "2025-03-02")

	feb := s.db.kpis["2025-02"]
	assert.False(t, feb.RevenueGrowth.Valid)
	assert.False(t, feb.SalesGrowth.Valid)

	mar := s.db.kpis["2025-03"]
	assert.Equal(t, int64(2), mar.SalesCount)
	assert.Equal(t, "100000", mar.TotalRevenue.String())
	assert.Equal(t, "50000", mar.AverageSaleValue.String())
	require.True(t, mar.RevenueGrowth.Valid)
	assert.Equal(t, "1", mar.RevenueGrowth.Decimal.String())
	require.True(t, mar.SalesGrowth.Valid)
	assert.Equal(t, "1", mar.SalesGrowth.Decimal.String())
	assert.True(t, mar.DiscountRate.IsZero())
}

func TestRecomputeMonthRefreshesFollowingMonth(t *testing.T) {
	s := newSaleSetup(t)
	recordOn(t, s, "2025-03-01", "2025-03-02")

	mar := s.db.kpis["2025-03"]
	require.False(t, mar.RevenueGrowth.Valid)

	// a back-dated sale creates February and must give March a comparable month
	recordOn(t, s, "2025-02-20")

	mar = s.db.kpis["2025-03"]
	require.True(t, mar.RevenueGrowth.Valid)
	assert.Equal(t, "1", mar.RevenueGrowth.Decimal.String())
	assert.Equal(t, int64(2), mar.SalesCount)
}

func TestRecomputeMonthSkipsGrowthAfterEmptyMonth(t *testing.T) {
	s := newSaleSetup(t)
	s.db.kpis["2025-02"] = models.MonthlyKpiSnapshot{ID: 900, MonthKey: "2025-02"}
	recordOn(t, s, "2025-03-05")

	mar := s.db.kpis["2025-03"]
	assert.False(t, mar.RevenueGrowth.Valid)
	assert.False(t, mar.SalesGrowth.Valid)
}

func TestRecomputeMonthLocksMonthAndSuccessorInOrder(t *testing.T) {
	s := newSaleSetup(t)
	recordOn(t, s, "2025-12-05")
	assert.Equal(t, []string{"2025-12", "2026-01"}, s.kpis.locked)
}

func TestRecomputeMonthRequiresTransaction(t *testing.T) {
	s := newSaleSetup(t)
	_, err := s.kpiFlow.RecomputeMonth(context.Background(), "2025-03")
	require.ErrorIs(t, err, repository.ErrMonthLockOutsideTransaction)
	assert.Empty(t, s.db.kpis)
}

func TestComputeMonthlyMetrics(t *testing.T) {
	s := newSaleSetup(t)
	recordOn(t, s, "2025-04-11")
	delete(s.db.kpis, "2025-04")

	resp, err := s.kpiFlow.ComputeMonthlyMetrics(context.Background(), &dto.ComputeKpiRequest{MonthKey: "2025-04"}, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, "2025-04", resp.Kpi.MonthKey)
	assert.Equal(t, int64(1), resp.Kpi.SalesCount)
	assert.Equal(t, "36762.5", resp.Kpi.TotalNetProfit.String())
	assert.Contains(t, s.db.auditActions(), models.AuditActionKpiRecomputed)

	_, ok := s.db.kpis["2025-04"]
	assert.True(t, ok)
}

func TestComputeMonthlyMetricsRejectsBadMonth(t *testing.T) {
	f := newFixture(t)

	for _, key := range []string{"", "2025-3", "2025-13", "March"} {
		t.Run(key, func(t *testing.T) {
			_, err := f.kpiFlow.ComputeMonthlyMetrics(context.Background(), &dto.ComputeKpiRequest{MonthKey: key}, ownerMetadata())
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestGetMonthlyKpiSeries(t *testing.T) {
	f := newFixture(t)
	for _, key := range []string{"2024-11", "2025-01", "2024-12", "2025-02"} {
		f.db.kpis[key] = models.MonthlyKpiSnapshot{ID: f.db.id(), MonthKey: key}
	}
	ctx := context.Background()

	resp, err := f.kpiFlow.GetMonthlyKpiSeries(ctx, &dto.KpiSeriesRequest{Limit: 3})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "2024-12", resp.Items[0].MonthKey)
	assert.Equal(t, "2025-01", resp.Items[1].MonthKey)
	assert.Equal(t, "2025-02", resp.Items[2].MonthKey)

	all, err := f.kpiFlow.GetMonthlyKpiSeries(ctx, &dto.KpiSeriesRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 4)
}

func TestGetMonthlyKpiSeriesLimitBounds(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		limit int
		ok    bool
	}{
		{"default", 0, true},
		{"lowest", 1, true},
		{"highest", 120, true},
		{"negative", -1, false},
		{"too large", 121, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.kpiFlow.GetMonthlyKpiSeries(context.Background(), &dto.KpiSeriesRequest{Limit: tt.limit})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestExportMonthlyKpiSeries(t *testing.T) {
	s := newSaleSetup(t)
	recordOn(t, s, "2025-01-05", "2025-02-05")

	name, content, err := s.kpiFlow.ExportMonthlyKpiSeries(context.Background(), &dto.KpiSeriesRequest{})
	require.NoError(t, err)
	assert.Equal(t, "monthly_kpi.xlsx", name)
	assert.NotEmpty(t, content)
}
