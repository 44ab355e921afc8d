package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"gorm.io/gorm"
)

// FundBucketRepositoryImpl implements FundBucketRepository interface
type FundBucketRepositoryImpl struct {
	*BaseRepository[models.FundBucket, models.FundBucketFilter]
}

// NewFundBucketRepository creates a new fund bucket repository
func NewFundBucketRepository(db *gorm.DB) FundBucketRepository {
	return &FundBucketRepositoryImpl{
		BaseRepository: NewBaseRepository[models.FundBucket, models.FundBucketFilter](db),
	}
}

// ByKey retrieves a bucket by its unique key
func (r *FundBucketRepositoryImpl) ByKey(ctx context.Context, key string) (*models.FundBucket, error) {
	db := r.getDB(ctx)

	var bucket models.FundBucket
	if err := db.Where("key = ?", key).Last(&bucket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find bucket by key: %w", err)
	}
	return &bucket, nil
}

// ByIDs loads the buckets whose ids are listed; missing ids are simply absent
func (r *FundBucketRepositoryImpl) ByIDs(ctx context.Context, ids []uint) ([]*models.FundBucket, error) {
	if len(ids) == 0 {
		return []*models.FundBucket{}, nil
	}
	db := r.getDB(ctx)

	var buckets []*models.FundBucket
	if err := db.Where("id IN ?", ids).Find(&buckets).Error; err != nil {
		return nil, fmt.Errorf("failed to load buckets: %w", err)
	}
	return buckets, nil
}

// ListAll returns every bucket
func (r *FundBucketRepositoryImpl) ListAll(ctx context.Context) ([]*models.FundBucket, error) {
	return r.ByFilter(ctx, models.FundBucketFilter{}, "label ASC, id ASC", 0, 0)
}

// HasChildren reports, for each id, whether any bucket names it as parent
func (r *FundBucketRepositoryImpl) HasChildren(ctx context.Context, ids []uint) (map[uint]bool, error) {
	result := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	db := r.getDB(ctx)

	var parents []uint
	err := db.Model(&models.FundBucket{}).
		Distinct("parent_id").
		Where("parent_id IN ?", ids).
		Pluck("parent_id", &parents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket children: %w", err)
	}
	for _, id := range parents {
		result[id] = true
	}
	return result, nil
}

func applyFundBucketFilter(query *gorm.DB, filter models.FundBucketFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Key != nil {
		query = query.Where("key = ?", *filter.Key)
	}
	if filter.ParentID != nil {
		query = query.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.RootOnly != nil && *filter.RootOnly {
		query = query.Where("parent_id IS NULL")
	}
	return query
}

// ByFilter retrieves buckets based on filter criteria
func (r *FundBucketRepositoryImpl) ByFilter(ctx context.Context, filter models.FundBucketFilter, orderBy string, limit, offset int) ([]*models.FundBucket, error) {
	db := r.getDB(ctx)
	query := applyFundBucketFilter(db.Model(&models.FundBucket{}), filter)
	query = paginate(query, orderBy, "id ASC", limit, offset)

	var buckets []*models.FundBucket
	if err := query.Find(&buckets).Error; err != nil {
		return nil, fmt.Errorf("failed to find buckets by filter: %w", err)
	}
	return buckets, nil
}

// Count returns the number of buckets matching the filter
func (r *FundBucketRepositoryImpl) Count(ctx context.Context, filter models.FundBucketFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applyFundBucketFilter(db.Model(&models.FundBucket{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count buckets: %w", err)
	}
	return count, nil
}

// Exists checks if a bucket matching the filter exists
func (r *FundBucketRepositoryImpl) Exists(ctx context.Context, filter models.FundBucketFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
