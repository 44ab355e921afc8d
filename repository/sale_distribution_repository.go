package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleDistributionRepositoryImpl implements SaleDistributionRepository interface
type SaleDistributionRepositoryImpl struct {
	*BaseRepository[models.SaleDistribution, models.SaleDistributionFilter]
}

// NewSaleDistributionRepository creates a new sale distribution repository
func NewSaleDistributionRepository(db *gorm.DB) SaleDistributionRepository {
	return &SaleDistributionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SaleDistribution, models.SaleDistributionFilter](db),
	}
}

// bucketSum is a per-bucket SUM projection row
type bucketSum struct {
	BucketID uint            `gorm:"column:bucket_id"`
	Total    decimal.Decimal `gorm:"column:total"`
}

func bucketSumsToMap(rows []bucketSum) map[uint]decimal.Decimal {
	out := make(map[uint]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.BucketID] = row.Total
	}
	return out
}

// SumByBucket totals distributed amounts per bucket, limited to sales in monthKeys when given
func (r *SaleDistributionRepositoryImpl) SumByBucket(ctx context.Context, monthKeys []string) (map[uint]decimal.Decimal, error) {
	db := r.getDB(ctx)

	query := db.Table("sale_distributions AS sd").
		Select("sd.bucket_id AS bucket_id, COALESCE(SUM(sd.amount), 0) AS total")
	if len(monthKeys) > 0 {
		query = query.Joins("JOIN sales s ON s.id = sd.sale_id").
			Where("s.month_key IN ?", monthKeys)
	}

	var rows []bucketSum
	if err := query.Group("sd.bucket_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to sum distributions by bucket: %w", err)
	}
	return bucketSumsToMap(rows), nil
}

// DeleteBySale removes a sale's distribution rows
func (r *SaleDistributionRepositoryImpl) DeleteBySale(ctx context.Context, saleID uint) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finishWrite(db, shouldCommit, &err)

	if err = db.Where("sale_id = ?", saleID).Delete(&models.SaleDistribution{}).Error; err != nil {
		return fmt.Errorf("failed to delete distributions of sale %d: %w", saleID, err)
	}
	return nil
}

func applySaleDistributionFilter(query *gorm.DB, filter models.SaleDistributionFilter) *gorm.DB {
	if filter.SaleID != nil {
		query = query.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.BucketID != nil {
		query = query.Where("bucket_id = ?", *filter.BucketID)
	}
	return query
}

// ByFilter retrieves distributions based on filter criteria
func (r *SaleDistributionRepositoryImpl) ByFilter(ctx context.Context, filter models.SaleDistributionFilter, orderBy string, limit, offset int) ([]*models.SaleDistribution, error) {
	db := r.getDB(ctx)
	query := applySaleDistributionFilter(db.Model(&models.SaleDistribution{}), filter)
	query = paginate(query, orderBy, "id ASC", limit, offset)

	var rows []*models.SaleDistribution
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find distributions by filter: %w", err)
	}
	return rows, nil
}

// Count returns the number of distributions matching the filter
func (r *SaleDistributionRepositoryImpl) Count(ctx context.Context, filter models.SaleDistributionFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applySaleDistributionFilter(db.Model(&models.SaleDistribution{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count distributions: %w", err)
	}
	return count, nil
}

// Exists checks if a distribution matching the filter exists
func (r *SaleDistributionRepositoryImpl) Exists(ctx context.Context, filter models.SaleDistributionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
