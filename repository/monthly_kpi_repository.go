package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMonthLockOutsideTransaction is returned when LockMonth runs without a transaction in ctx
var ErrMonthLockOutsideTransaction = errors.New("month lock requires a transaction")

// MonthlyKpiSnapshotRepositoryImpl implements MonthlyKpiSnapshotRepository interface
type MonthlyKpiSnapshotRepositoryImpl struct {
	*BaseRepository[models.MonthlyKpiSnapshot, models.MonthlyKpiSnapshotFilter]
}

// NewMonthlyKpiSnapshotRepository creates a new KPI snapshot repository
func NewMonthlyKpiSnapshotRepository(db *gorm.DB) MonthlyKpiSnapshotRepository {
	return &MonthlyKpiSnapshotRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MonthlyKpiSnapshot, models.MonthlyKpiSnapshotFilter](db),
	}
}

// ByMonthKey retrieves the snapshot of one month
func (r *MonthlyKpiSnapshotRepositoryImpl) ByMonthKey(ctx context.Context, monthKey string) (*models.MonthlyKpiSnapshot, error) {
	db := r.getDB(ctx)

	var snap models.MonthlyKpiSnapshot
	if err := db.Where("month_key = ?", monthKey).Last(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find KPI snapshot of %s: %w", monthKey, err)
	}
	return &snap, nil
}

// LockMonth takes a transaction scoped advisory lock on the month key.
// The lock is released on commit or rollback, so ctx must carry a transaction.
func (r *MonthlyKpiSnapshotRepositoryImpl) LockMonth(ctx context.Context, monthKey string) error {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	if !ok || tx == nil {
		return ErrMonthLockOutsideTransaction
	}
	if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "kpi:"+monthKey).Error; err != nil {
		return fmt.Errorf("failed to lock KPI month %s: %w", monthKey, err)
	}
	return nil
}

var kpiUpsertColumns = []string{
	"total_price_before",
	"total_revenue",
	"total_profit_after_platform",
	"total_net_profit",
	"total_discount",
	"total_commission",
	"sales_count",
	"average_sale_value",
	"discount_rate",
	"gross_margin",
	"revenue_growth",
	"profit_growth",
	"net_profit_growth",
	"sales_growth",
	"computed_at",
	"updated_at",
}

// Upsert inserts the month's snapshot or overwrites the existing one
func (r *MonthlyKpiSnapshotRepositoryImpl) Upsert(ctx context.Context, snapshot *models.MonthlyKpiSnapshot) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finishWrite(db, shouldCommit, &err)

	snapshot.UpdatedAt = utils.UTCNow()
	if snapshot.ID != 0 {
		// a loaded row is rewritten in place; a new one may still collide on month_key
		err = db.Model(snapshot).Select(kpiUpsertColumns).Updates(snapshot).Error
		if err != nil {
			return fmt.Errorf("failed to update KPI snapshot of %s: %w", snapshot.MonthKey, err)
		}
		return nil
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month_key"}},
		DoUpdates: clause.AssignmentColumns(kpiUpsertColumns),
	}).Create(snapshot).Error
	if err != nil {
		return fmt.Errorf("failed to upsert KPI snapshot of %s: %w", snapshot.MonthKey, err)
	}
	return nil
}

// ListLatest returns up to limit snapshots, newest month first
func (r *MonthlyKpiSnapshotRepositoryImpl) ListLatest(ctx context.Context, limit int) ([]*models.MonthlyKpiSnapshot, error) {
	return r.ByFilter(ctx, models.MonthlyKpiSnapshotFilter{}, "month_key DESC", limit, 0)
}

func applyMonthlyKpiSnapshotFilter(query *gorm.DB, filter models.MonthlyKpiSnapshotFilter) *gorm.DB {
	if filter.MonthKey != nil {
		query = query.Where("month_key = ?", *filter.MonthKey)
	}
	if filter.MonthKeyFrom != nil {
		query = query.Where("month_key >= ?", *filter.MonthKeyFrom)
	}
	if filter.MonthKeyUntil != nil {
		query = query.Where("month_key <= ?", *filter.MonthKeyUntil)
	}
	return query
}

// ByFilter retrieves snapshots based on filter criteria
func (r *MonthlyKpiSnapshotRepositoryImpl) ByFilter(ctx context.Context, filter models.MonthlyKpiSnapshotFilter, orderBy string, limit, offset int) ([]*models.MonthlyKpiSnapshot, error) {
	db := r.getDB(ctx)
	query := applyMonthlyKpiSnapshotFilter(db.Model(&models.MonthlyKpiSnapshot{}), filter)
	query = paginate(query, orderBy, "month_key ASC", limit, offset)

	var snaps []*models.MonthlyKpiSnapshot
	if err := query.Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to find KPI snapshots by filter: %w", err)
	}
	return snaps, nil
}

// Count returns the number of snapshots matching the filter
func (r *MonthlyKpiSnapshotRepositoryImpl) Count(ctx context.Context, filter models.MonthlyKpiSnapshotFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applyMonthlyKpiSnapshotFilter(db.Model(&models.MonthlyKpiSnapshot{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count KPI snapshots: %w", err)
	}
	return count, nil
}

// Exists checks if a snapshot matching the filter exists
func (r *MonthlyKpiSnapshotRepositoryImpl) Exists(ctx context.Context, filter models.MonthlyKpiSnapshotFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
