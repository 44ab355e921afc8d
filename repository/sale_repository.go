package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepositoryImpl implements SaleRepository interface
type SaleRepositoryImpl struct {
	*BaseRepository[models.Sale, models.SaleFilter]
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &SaleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Sale, models.SaleFilter](db),
	}
}

// Save inserts the sale row only; distributions are written separately
func (r *SaleRepositoryImpl) Save(ctx context.Context, sale *models.Sale) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finishWrite(db, shouldCommit, &err)

	if err = db.Omit("Course", "Seller", "Discount", "Distributions").Create(sale).Error; err != nil {
		return fmt.Errorf("failed to save sale: %w", err)
	}
	return nil
}

// ByIDWithDetails loads a sale with course, discount, seller user and distributions
func (r *SaleRepositoryImpl) ByIDWithDetails(ctx context.Context, id uint) (*models.Sale, error) {
	db := r.getDB(ctx)

	var sale models.Sale
	err := db.Preload("Course").
		Preload("Discount").
		Preload("Seller.User").
		Preload("Distributions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Distributions.Bucket").
		Last(&sale, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sale %d: %w", id, err)
	}
	return &sale, nil
}

// ByUUID retrieves a sale by its public id
func (r *SaleRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.Sale, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid sale uuid: %w", err)
	}

	db := r.getDB(ctx)
	var sale models.Sale
	if err := db.Where("uuid = ?", parsed).Last(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sale by uuid: %w", err)
	}
	return &sale, nil
}

// AggregateByMonth sums the month's sales; a month without sales yields zeros
func (r *SaleRepositoryImpl) AggregateByMonth(ctx context.Context, monthKey string) (models.SaleAggregate, error) {
	db := r.getDB(ctx)

	var agg models.SaleAggregate
	err := db.Model(&models.Sale{}).
		Select(`COALESCE(SUM(price_before), 0) AS total_price_before,
			COALESCE(SUM(price_after_discount), 0) AS total_revenue,
			COALESCE(SUM(profit_after_platform), 0) AS total_profit_after_platform,
			COALESCE(SUM(net_profit), 0) AS total_net_profit,
			COALESCE(SUM(discount_amount), 0) AS total_discount,
			COALESCE(SUM(seller_commission), 0) AS total_commission,
			COUNT(*) AS sales_count`).
		Where("month_key = ?", monthKey).
		Scan(&agg).Error
	if err != nil {
		return models.SaleAggregate{}, fmt.Errorf("failed to aggregate sales of %s: %w", monthKey, err)
	}
	return agg, nil
}

// CountBySellerAndMonth counts a seller's sales in a month
func (r *SaleRepositoryImpl) CountBySellerAndMonth(ctx context.Context, sellerID uint, monthKey string) (int64, error) {
	return r.Count(ctx, models.SaleFilter{SellerID: &sellerID, MonthKey: &monthKey})
}

// StatsBySellerForMonth groups the month's attributed sales by seller
func (r *SaleRepositoryImpl) StatsBySellerForMonth(ctx context.Context, monthKey string) ([]*models.SellerMonthStats, error) {
	db := r.getDB(ctx)

	var rows []*models.SellerMonthStats
	err := db.Model(&models.Sale{}).
		Select(`seller_id,
			COUNT(*) AS sales_count,
			COALESCE(SUM(price_after_discount), 0) AS total_revenue,
			COALESCE(SUM(net_profit), 0) AS total_net_profit,
			COALESCE(SUM(seller_commission), 0) AS total_commission`).
		Where("month_key = ? AND seller_id IS NOT NULL", monthKey).
		Group("seller_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group sales of %s by seller: %w", monthKey, err)
	}
	return rows, nil
}

func applySaleFilter(query *gorm.DB, filter models.SaleFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.DiscountID != nil {
		query = query.Where("discount_id = ?", *filter.DiscountID)
	}
	if filter.MonthKey != nil {
		query = query.Where("month_key = ?", *filter.MonthKey)
	}
	if filter.SaleAfter != nil {
		query = query.Where("sale_date >= ?", *filter.SaleAfter)
	}
	if filter.SaleBefore != nil {
		query = query.Where("sale_date < ?", *filter.SaleBefore)
	}
	return query
}

// ByFilter retrieves sales with course and discount based on filter criteria
func (r *SaleRepositoryImpl) ByFilter(ctx context.Context, filter models.SaleFilter, orderBy string, limit, offset int) ([]*models.Sale, error) {
	db := r.getDB(ctx)
	query := applySaleFilter(db.Model(&models.Sale{}), filter).
		Preload("Course").
		Preload("Discount").
		Preload("Seller.User")
	query = paginate(query, orderBy, "sale_date DESC, id DESC", limit, offset)

	var sales []*models.Sale
	if err := query.Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to find sales by filter: %w", err)
	}
	return sales, nil
}

// Count returns the number of sales matching the filter
func (r *SaleRepositoryImpl) Count(ctx context.Context, filter models.SaleFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applySaleFilter(db.Model(&models.Sale{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return count, nil
}

// Exists checks if a sale matching the filter exists
func (r *SaleRepositoryImpl) Exists(ctx context.Context, filter models.SaleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
