package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/sirupsen/logrus"
)

// KpiFlow maintains and reads the monthly KPI snapshots
type KpiFlow interface {
	ComputeMonthlyMetrics(ctx context.Context, req *dto.ComputeKpiRequest, metadata *ClientMetadata) (*dto.ComputeKpiResponse, error)
	GetMonthlyKpiSeries(ctx context.Context, req *dto.KpiSeriesRequest) (*dto.KpiSeriesResponse, error)
	ExportMonthlyKpiSeries(ctx context.Context, req *dto.KpiSeriesRequest) (string, []byte, error)

	// RecomputeMonth rebuilds one month's snapshot and joins a transaction carried by ctx
	RecomputeMonth(ctx context.Context, monthKey string) (*models.MonthlyKpiSnapshot, error)
}

// KpiFlowImpl implements the KPI business flow
type KpiFlowImpl struct {
	saleRepo   repository.SaleRepository
	kpiRepo    repository.MonthlyKpiSnapshotRepository
	auditRepo  repository.AuditLogRepository
	transactor repository.Transactor
	logger     *logrus.Logger
}

// NewKpiFlow creates a new KPI flow instance
func NewKpiFlow(
	saleRepo repository.SaleRepository,
	kpiRepo repository.MonthlyKpiSnapshotRepository,
	auditRepo repository.AuditLogRepository,
	transactor repository.Transactor,
	logger *logrus.Logger,
) KpiFlow {
	return &KpiFlowImpl{
		saleRepo:   saleRepo,
		kpiRepo:    kpiRepo,
		auditRepo:  auditRepo,
		transactor: transactor,
		logger:     logger,
	}
}

// ComputeMonthlyMetrics recomputes and stores the snapshot of one month on demand
func (f *KpiFlowImpl) ComputeMonthlyMetrics(ctx context.Context, req *dto.ComputeKpiRequest, metadata *ClientMetadata) (*dto.ComputeKpiResponse, error) {
	if _, err := finance.ParseMonthKey(req.MonthKey); err != nil {
		return nil, NewBusinessError("COMPUTE_KPI_FAILED", "Invalid month key", err)
	}

	var snapshot *models.MonthlyKpiSnapshot
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		snapshot, err = f.RecomputeMonth(txCtx, req.MonthKey)
		return err
	})
	if err != nil {
		errMsg := fmt.Sprintf("KPI recompute failed for %s: %s", req.MonthKey, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionKpiRecomputed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("COMPUTE_KPI_FAILED", "Failed to compute monthly metrics", err)
	}

	msg := fmt.Sprintf("KPI snapshot for %s recomputed from %d sales", snapshot.MonthKey, snapshot.SalesCount)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionKpiRecomputed, msg, true, nil, metadata)

	return &dto.ComputeKpiResponse{
		Message: "Monthly metrics computed successfully",
		Kpi:     ToMonthlyKpiItem(*snapshot),
	}, nil
}

// RecomputeMonth aggregates the month's sales, stores the snapshot and refreshes the growth
// of the following month's snapshot when one exists, since that growth references this month.
// ctx must carry a transaction; the month locks are held until it ends.
func (f *KpiFlowImpl) RecomputeMonth(ctx context.Context, monthKey string) (*models.MonthlyKpiSnapshot, error) {
	start := time.Now()
	defer func() { kpiRecomputeDuration.Observe(time.Since(start).Seconds()) }()

	prevKey, err := finance.PreviousMonthKey(monthKey)
	if err != nil {
		return nil, err
	}
	nextKey, err := finance.NextMonthKey(monthKey)
	if err != nil {
		return nil, err
	}

	// Lock before summing so a concurrent writer cannot overwrite this month with older totals.
	// Months are always locked in ascending order.
	if err := f.kpiRepo.LockMonth(ctx, monthKey); err != nil {
		return nil, err
	}
	if err := f.kpiRepo.LockMonth(ctx, nextKey); err != nil {
		return nil, err
	}

	agg, err := f.saleRepo.AggregateByMonth(ctx, monthKey)
	if err != nil {
		return nil, err
	}

	previous, err := f.kpiRepo.ByMonthKey(ctx, prevKey)
	if err != nil {
		return nil, err
	}

	snapshot := finance.ComputeKpi(monthKey, agg, previous, utils.UTCNow())
	if err := f.kpiRepo.Upsert(ctx, &snapshot); err != nil {
		return nil, err
	}

	following, err := f.kpiRepo.ByMonthKey(ctx, nextKey)
	if err != nil {
		return nil, err
	}
	if following != nil {
		finance.ApplyGrowth(following, &snapshot)
		if err := f.kpiRepo.Upsert(ctx, following); err != nil {
			return nil, err
		}
	}

	f.logger.WithFields(logrus.Fields{
		"month_key":   monthKey,
		"sales_count": snapshot.SalesCount,
	}).Debug("KPI snapshot recomputed")

	return &snapshot, nil
}

// GetMonthlyKpiSeries returns the latest snapshots in ascending month order
func (f *KpiFlowImpl) GetMonthlyKpiSeries(ctx context.Context, req *dto.KpiSeriesRequest) (*dto.KpiSeriesResponse, error) {
	snapshots, err := f.latestSnapshots(ctx, req)
	if err != nil {
		return nil, err
	}

	items := make([]dto.MonthlyKpiItem, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, ToMonthlyKpiItem(*s))
	}

	return &dto.KpiSeriesResponse{
		Message: "Monthly KPI series retrieved successfully",
		Items:   items,
	}, nil
}

// ExportMonthlyKpiSeries renders the series as a workbook, one row per month
func (f *KpiFlowImpl) ExportMonthlyKpiSeries(ctx context.Context, req *dto.KpiSeriesRequest) (string, []byte, error) {
	snapshots, err := f.latestSnapshots(ctx, req)
	if err != nil {
		return "", nil, err
	}

	header := []string{
		"month_key", "sales_count", "total_price_before", "total_discount", "total_revenue",
		"total_profit_after_platform", "total_commission", "total_net_profit", "average_sale_value",
		"discount_rate", "gross_margin", "revenue_growth", "profit_growth", "net_profit_growth",
		"sales_growth", "computed_at",
	}
	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []string{
			s.MonthKey,
			strconv.FormatInt(s.SalesCount, 10),
			s.TotalPriceBefore.StringFixed(2),
			s.TotalDiscount.StringFixed(2),
			s.TotalRevenue.StringFixed(2),
			s.TotalProfitAfterPlatform.StringFixed(2),
			s.TotalCommission.StringFixed(2),
			s.TotalNetProfit.StringFixed(2),
			s.AverageSaleValue.StringFixed(2),
			s.DiscountRate.String(),
			s.GrossMargin.String(),
			nullDecimalString(s.RevenueGrowth),
			nullDecimalString(s.ProfitGrowth),
			nullDecimalString(s.NetProfitGrowth),
			nullDecimalString(s.SalesGrowth),
			s.ComputedAt.UTC().Format(time.RFC3339),
		})
	}

	content, err := writeWorkbook("monthly_kpi", header, rows)
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return "monthly_kpi.xlsx", content, nil
}

func (f *KpiFlowImpl) latestSnapshots(ctx context.Context, req *dto.KpiSeriesRequest) ([]*models.MonthlyKpiSnapshot, error) {
	limit := utils.DefaultKpiSeriesLimit
	if req != nil && req.Limit != 0 {
		limit = req.Limit
	}
	if limit < 1 || limit > utils.MaxKpiSeriesLimit {
		return nil, NewBusinessError("GET_KPI_SERIES_FAILED", "Invalid limit", ErrKpiLimitOutOfRange)
	}

	snapshots, err := f.kpiRepo.ListLatest(ctx, limit)
	if err != nil {
		return nil, NewBusinessError("GET_KPI_SERIES_FAILED", "Failed to retrieve monthly KPI series", err)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].MonthKey < snapshots[j].MonthKey
	})
	return snapshots, nil
}
