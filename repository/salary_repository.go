package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalaryRecipientRepositoryImpl implements SalaryRecipientRepository interface
type SalaryRecipientRepositoryImpl struct {
	*BaseRepository[models.SalaryRecipient, models.SalaryRecipientFilter]
}

// NewSalaryRecipientRepository creates a new salary recipient repository
func NewSalaryRecipientRepository(db *gorm.DB) SalaryRecipientRepository {
	return &SalaryRecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SalaryRecipient, models.SalaryRecipientFilter](db),
	}
}

func applySalaryRecipientFilter(query *gorm.DB, filter models.SalaryRecipientFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Mode != nil {
		query = query.Where("mode = ?", *filter.Mode)
	}
	if filter.BucketID != nil {
		query = query.Where("bucket_id = ?", *filter.BucketID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves recipients based on filter criteria
func (r *SalaryRecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.SalaryRecipientFilter, orderBy string, limit, offset int) ([]*models.SalaryRecipient, error) {
	db := r.getDB(ctx)
	query := applySalaryRecipientFilter(db.Model(&models.SalaryRecipient{}), filter).Preload("Bucket")
	query = paginate(query, orderBy, "name ASC", limit, offset)

	var recipients []*models.SalaryRecipient
	if err := query.Find(&recipients).Error; err != nil {
		return nil, fmt.Errorf("failed to find salary recipients by filter: %w", err)
	}
	return recipients, nil
}

// Count returns the number of recipients matching the filter
func (r *SalaryRecipientRepositoryImpl) Count(ctx context.Context, filter models.SalaryRecipientFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applySalaryRecipientFilter(db.Model(&models.SalaryRecipient{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count salary recipients: %w", err)
	}
	return count, nil
}

// Exists checks if a recipient matching the filter exists
func (r *SalaryRecipientRepositoryImpl) Exists(ctx context.Context, filter models.SalaryRecipientFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SalaryPaymentRepositoryImpl implements SalaryPaymentRepository interface
type SalaryPaymentRepositoryImpl struct {
	*BaseRepository[models.SalaryPayment, models.SalaryPaymentFilter]
}

// NewSalaryPaymentRepository creates a new salary payment repository
func NewSalaryPaymentRepository(db *gorm.DB) SalaryPaymentRepository {
	return &SalaryPaymentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SalaryPayment, models.SalaryPaymentFilter](db),
	}
}

// SumByBucket totals all salary payments per bucket
func (r *SalaryPaymentRepositoryImpl) SumByBucket(ctx context.Context) (map[uint]decimal.Decimal, error) {
	db := r.getDB(ctx)

	var rows []bucketSum
	err := db.Model(&models.SalaryPayment{}).
		Select("bucket_id, COALESCE(SUM(amount), 0) AS total").
		Group("bucket_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum salary payments by bucket: %w", err)
	}
	return bucketSumsToMap(rows), nil
}

func applySalaryPaymentFilter(query *gorm.DB, filter models.SalaryPaymentFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.RecipientID != nil {
		query = query.Where("recipient_id = ?", *filter.RecipientID)
	}
	if filter.BucketID != nil {
		query = query.Where("bucket_id = ?", *filter.BucketID)
	}
	if filter.PeriodKey != nil {
		query = query.Where("period_key = ?", *filter.PeriodKey)
	}
	return query
}

// ByFilter retrieves payments with recipient and bucket based on filter criteria
func (r *SalaryPaymentRepositoryImpl) ByFilter(ctx context.Context, filter models.SalaryPaymentFilter, orderBy string, limit, offset int) ([]*models.SalaryPayment, error) {
	db := r.getDB(ctx)
	query := applySalaryPaymentFilter(db.Model(&models.SalaryPayment{}), filter).
		Preload("Recipient").
		Preload("Bucket")
	query = paginate(query, orderBy, "paid_at DESC, id DESC", limit, offset)

	var payments []*models.SalaryPayment
	if err := query.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to find salary payments by filter: %w", err)
	}
	return payments, nil
}

// Count returns the number of payments matching the filter
func (r *SalaryPaymentRepositoryImpl) Count(ctx context.Context, filter models.SalaryPaymentFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applySalaryPaymentFilter(db.Model(&models.SalaryPayment{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count salary payments: %w", err)
	}
	return count, nil
}

// Exists checks if a payment matching the filter exists
func (r *SalaryPaymentRepositoryImpl) Exists(ctx context.Context, filter models.SalaryPaymentFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
