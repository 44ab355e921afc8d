package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"gorm.io/gorm"
)

// DiscountRepositoryImpl implements DiscountRepository interface
type DiscountRepositoryImpl struct {
	*BaseRepository[models.Discount, models.DiscountFilter]
}

// NewDiscountRepository creates a new discount repository
func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &DiscountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Discount, models.DiscountFilter](db),
	}
}

// ByName retrieves a discount by its unique name
func (r *DiscountRepositoryImpl) ByName(ctx context.Context, name string) (*models.Discount, error) {
	db := r.getDB(ctx)

	var discount models.Discount
	if err := db.Where("name = ?", name).Last(&discount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find discount by name: %w", err)
	}
	return &discount, nil
}

func applyDiscountFilter(query *gorm.DB, filter models.DiscountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves discounts based on filter criteria
func (r *DiscountRepositoryImpl) ByFilter(ctx context.Context, filter models.DiscountFilter, orderBy string, limit, offset int) ([]*models.Discount, error) {
	db := r.getDB(ctx)
	query := applyDiscountFilter(db.Model(&models.Discount{}), filter)
	query = paginate(query, orderBy, "name ASC", limit, offset)

	var discounts []*models.Discount
	if err := query.Find(&discounts).Error; err != nil {
		return nil, fmt.Errorf("failed to find discounts by filter: %w", err)
	}
	return discounts, nil
}

// Count returns the number of discounts matching the filter
func (r *DiscountRepositoryImpl) Count(ctx context.Context, filter models.DiscountFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applyDiscountFilter(db.Model(&models.Discount{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count discounts: %w", err)
	}
	return count, nil
}

// Exists checks if a discount matching the filter exists
func (r *DiscountRepositoryImpl) Exists(ctx context.Context, filter models.DiscountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
