package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseRepositoryImpl implements ExpenseRepository interface
type ExpenseRepositoryImpl struct {
	*BaseRepository[models.Expense, models.ExpenseFilter]
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &ExpenseRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Expense, models.ExpenseFilter](db),
	}
}

// SumByBucket totals expenses per bucket, limited to monthKeys when given
func (r *ExpenseRepositoryImpl) SumByBucket(ctx context.Context, monthKeys []string) (map[uint]decimal.Decimal, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.Expense{}).
		Select("bucket_id, COALESCE(SUM(amount), 0) AS total")
	if len(monthKeys) > 0 {
		query = query.Where("month_key IN ?", monthKeys)
	}

	var rows []bucketSum
	if err := query.Group("bucket_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to sum expenses by bucket: %w", err)
	}
	return bucketSumsToMap(rows), nil
}

func applyExpenseFilter(query *gorm.DB, filter models.ExpenseFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.BucketID != nil {
		query = query.Where("bucket_id = ?", *filter.BucketID)
	}
	if filter.MonthKey != nil {
		query = query.Where("month_key = ?", *filter.MonthKey)
	}
	return query
}

// ByFilter retrieves expenses with their bucket based on filter criteria
func (r *ExpenseRepositoryImpl) ByFilter(ctx context.Context, filter models.ExpenseFilter, orderBy string, limit, offset int) ([]*models.Expense, error) {
	db := r.getDB(ctx)
	query := applyExpenseFilter(db.Model(&models.Expense{}), filter).Preload("Bucket")
	query = paginate(query, orderBy, "expense_date DESC, id DESC", limit, offset)

	var expenses []*models.Expense
	if err := query.Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("failed to find expenses by filter: %w", err)
	}
	return expenses, nil
}

// Count returns the number of expenses matching the filter
func (r *ExpenseRepositoryImpl) Count(ctx context.Context, filter models.ExpenseFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applyExpenseFilter(db.Model(&models.Expense{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return count, nil
}

// Exists checks if an expense matching the filter exists
func (r *ExpenseRepositoryImpl) Exists(ctx context.Context, filter models.ExpenseFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
