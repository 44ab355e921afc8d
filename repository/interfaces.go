// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/academy-ledger/models"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
}

// CourseRepository defines operations for courses
type CourseRepository interface {
	Repository[models.Course, models.CourseFilter]
	ByName(ctx context.Context, name string) (*models.Course, error)
	ByIDWithTemplate(ctx context.Context, id uint) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id uint) error
}

// DiscountRepository defines operations for discounts
type DiscountRepository interface {
	Repository[models.Discount, models.DiscountFilter]
	ByName(ctx context.Context, name string) (*models.Discount, error)
	Update(ctx context.Context, discount *models.Discount) error
	Delete(ctx context.Context, id uint) error
}

// DistributionTemplateRepository defines operations for distribution templates and their allocations
type DistributionTemplateRepository interface {
	Repository[models.DistributionTemplate, models.DistributionTemplateFilter]
	ByIDWithAllocations(ctx context.Context, id uint) (*models.DistributionTemplate, error)
	ByName(ctx context.Context, name string) (*models.DistributionTemplate, error)
	ByApplicableTo(ctx context.Context, courseType models.CourseType) (*models.DistributionTemplate, error)
	ListWithAllocations(ctx context.Context) ([]*models.DistributionTemplate, error)
	ReplaceAllocations(ctx context.Context, templateID uint, allocations []*models.DistributionAllocation) error
	Update(ctx context.Context, template *models.DistributionTemplate) error
}

// FundBucketRepository defines operations for fund buckets
type FundBucketRepository interface {
	Repository[models.FundBucket, models.FundBucketFilter]
	ByKey(ctx context.Context, key string) (*models.FundBucket, error)
	ByIDs(ctx context.Context, ids []uint) ([]*models.FundBucket, error)
	ListAll(ctx context.Context) ([]*models.FundBucket, error)
	HasChildren(ctx context.Context, ids []uint) (map[uint]bool, error)
}

// SaleRepository defines operations for sales
type SaleRepository interface {
	Repository[models.Sale, models.SaleFilter]
	ByIDWithDetails(ctx context.Context, id uint) (*models.Sale, error)
	ByUUID(ctx context.Context, uuid string) (*models.Sale, error)
	AggregateByMonth(ctx context.Context, monthKey string) (models.SaleAggregate, error)
	CountBySellerAndMonth(ctx context.Context, sellerID uint, monthKey string) (int64, error)
	StatsBySellerForMonth(ctx context.Context, monthKey string) ([]*models.SellerMonthStats, error)
	Delete(ctx context.Context, id uint) error
}

// SaleDistributionRepository defines operations for sale distribution snapshots
type SaleDistributionRepository interface {
	Repository[models.SaleDistribution, models.SaleDistributionFilter]
	SumByBucket(ctx context.Context, monthKeys []string) (map[uint]decimal.Decimal, error)
	DeleteBySale(ctx context.Context, saleID uint) error
}

// SellerProfileRepository defines operations for seller profiles
type SellerProfileRepository interface {
	Repository[models.SellerProfile, models.SellerProfileFilter]
	ByUserID(ctx context.Context, userID uint) (*models.SellerProfile, error)
	ByIDForUpdate(ctx context.Context, id uint) (*models.SellerProfile, error)
	ListWithUser(ctx context.Context, limit, offset int) ([]*models.SellerProfile, error)
	Update(ctx context.Context, profile *models.SellerProfile) error
	Delete(ctx context.Context, id uint) error
}

// SellerLevelRuleRepository defines operations for commission tiers
type SellerLevelRuleRepository interface {
	Repository[models.SellerLevelRule, models.SellerLevelRuleFilter]
	ListOrdered(ctx context.Context) ([]models.SellerLevelRule, error)
	ReplaceAll(ctx context.Context, rules []*models.SellerLevelRule) error
}

// SellerLevelHistoryRepository defines operations for tier change history
type SellerLevelHistoryRepository interface {
	Repository[models.SellerLevelHistory, models.SellerLevelHistoryFilter]
}

// ExpenseRepository defines operations for expenses
type ExpenseRepository interface {
	Repository[models.Expense, models.ExpenseFilter]
	SumByBucket(ctx context.Context, monthKeys []string) (map[uint]decimal.Decimal, error)
	Delete(ctx context.Context, id uint) error
}

// SalaryRecipientRepository defines operations for salary recipients
type SalaryRecipientRepository interface {
	Repository[models.SalaryRecipient, models.SalaryRecipientFilter]
	Update(ctx context.Context, recipient *models.SalaryRecipient) error
}

// SalaryPaymentRepository defines operations for salary payments
type SalaryPaymentRepository interface {
	Repository[models.SalaryPayment, models.SalaryPaymentFilter]
	SumByBucket(ctx context.Context) (map[uint]decimal.Decimal, error)
}

// MonthlyKpiSnapshotRepository defines operations for monthly KPI snapshots
type MonthlyKpiSnapshotRepository interface {
	Repository[models.MonthlyKpiSnapshot, models.MonthlyKpiSnapshotFilter]
	ByMonthKey(ctx context.Context, monthKey string) (*models.MonthlyKpiSnapshot, error)
	Upsert(ctx context.Context, snapshot *models.MonthlyKpiSnapshot) error
	ListLatest(ctx context.Context, limit int) ([]*models.MonthlyKpiSnapshot, error)
	// LockMonth serializes writers of one month's snapshot until the surrounding transaction ends
	LockMonth(ctx context.Context, monthKey string) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
