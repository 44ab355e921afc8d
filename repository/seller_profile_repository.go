package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SellerProfileRepositoryImpl implements SellerProfileRepository interface
type SellerProfileRepositoryImpl struct {
	*BaseRepository[models.SellerProfile, models.SellerProfileFilter]
}

// NewSellerProfileRepository creates a new seller profile repository
func NewSellerProfileRepository(db *gorm.DB) SellerProfileRepository {
	return &SellerProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SellerProfile, models.SellerProfileFilter](db),
	}
}

// ByUserID retrieves the profile owned by a user
func (r *SellerProfileRepositoryImpl) ByUserID(ctx context.Context, userID uint) (*models.SellerProfile, error) {
	db := r.getDB(ctx)

	var profile models.SellerProfile
	if err := db.Where("user_id = ?", userID).Last(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find seller profile by user: %w", err)
	}
	return &profile, nil
}

// ByIDForUpdate reads a profile with a row lock held until the surrounding transaction ends.
// Outside a transaction the lock is released immediately.
func (r *SellerProfileRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.SellerProfile, error) {
	db := r.getDB(ctx)

	var profile models.SellerProfile
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock seller profile %d: %w", id, err)
	}
	return &profile, nil
}

// ListWithUser returns profiles with their user accounts, by level then name
func (r *SellerProfileRepositoryImpl) ListWithUser(ctx context.Context, limit, offset int) ([]*models.SellerProfile, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.SellerProfile{}).
		Joins("User").
		Order("seller_profiles.level DESC").
		Order(`"User"."name" ASC`)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var profiles []*models.SellerProfile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list seller profiles: %w", err)
	}
	return profiles, nil
}

func applySellerProfileFilter(query *gorm.DB, filter models.SellerProfileFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Level != nil {
		query = query.Where("level = ?", *filter.Level)
	}
	if filter.MonthKey != nil {
		query = query.Where("month_key = ?", *filter.MonthKey)
	}
	return query
}

// ByFilter retrieves profiles based on filter criteria
func (r *SellerProfileRepositoryImpl) ByFilter(ctx context.Context, filter models.SellerProfileFilter, orderBy string, limit, offset int) ([]*models.SellerProfile, error) {
	db := r.getDB(ctx)
	query := applySellerProfileFilter(db.Model(&models.SellerProfile{}), filter)
	query = paginate(query, orderBy, "id ASC", limit, offset)

	var profiles []*models.SellerProfile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to find seller profiles by filter: %w", err)
	}
	return profiles, nil
}

// Count returns the number of profiles matching the filter
func (r *SellerProfileRepositoryImpl) Count(ctx context.Context, filter models.SellerProfileFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applySellerProfileFilter(db.Model(&models.SellerProfile{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count seller profiles: %w", err)
	}
	return count, nil
}

// Exists checks if a profile matching the filter exists
func (r *SellerProfileRepositoryImpl) Exists(ctx context.Context, filter models.SellerProfileFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
