package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user with password "password123"
func (tf *TestFixtures) CreateTestUser(email string, role models.UserRole) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := utils.UTCNow()
	user := &models.User{
		UUID:         uuid.New(),
		Email:        email,
		Name:         "Test " + string(role),
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestSeller creates a seller user and its profile at the base tier for monthKey
func (tf *TestFixtures) CreateTestSeller(email, monthKey string) (*models.SellerProfile, error) {
	user, err := tf.CreateTestUser(email, models.UserRoleSeller)
	if err != nil {
		return nil, err
	}

	profile := &models.SellerProfile{
		UserID:            user.ID,
		Level:             1,
		CurrentCommission: decimal.RequireFromString("0.15"),
		MonthKey:          monthKey,
	}
	if err := tf.DB.DB.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create test seller profile: %w", err)
	}
	return profile, nil
}

// CreateTestBucket creates a bucket under parentID, or a root when parentID is nil
func (tf *TestFixtures) CreateTestBucket(key string, parentID *uint) (*models.FundBucket, error) {
	bucket := &models.FundBucket{
		Key:      key,
		Label:    key,
		ParentID: parentID,
	}
	if err := tf.DB.DB.Create(bucket).Error; err != nil {
		return nil, fmt.Errorf("failed to create test bucket: %w", err)
	}
	return bucket, nil
}

// CreateTestTemplate creates a template whose allocations map bucket ids to fractions
func (tf *TestFixtures) CreateTestTemplate(name string, allocations map[uint]string) (*models.DistributionTemplate, error) {
	template := &models.DistributionTemplate{Name: name}
	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}

	position := 0
	for bucketID, percentage := range allocations {
		alloc := &models.DistributionAllocation{
			TemplateID: template.ID,
			BucketID:   bucketID,
			Percentage: decimal.RequireFromString(percentage),
			Position:   position,
		}
		if err := tf.DB.DB.Create(alloc).Error; err != nil {
			return nil, fmt.Errorf("failed to create test allocation: %w", err)
		}
		template.Allocations = append(template.Allocations, *alloc)
		position++
	}
	return template, nil
}

// CreateTestCourse creates a ministerial course with the given base price and a 10% platform fee
func (tf *TestFixtures) CreateTestCourse(name, basePrice string, templateID *uint) (*models.Course, error) {
	course := &models.Course{
		Name:                   name,
		Type:                   models.CourseTypeMinisterial,
		BasePrice:              decimal.RequireFromString(basePrice),
		PlatformFeeRate:        decimal.RequireFromString("0.1"),
		DistributionTemplateID: templateID,
	}
	if err := tf.DB.DB.Create(course).Error; err != nil {
		return nil, fmt.Errorf("failed to create test course: %w", err)
	}
	return course, nil
}

// CreateTestSale stores a sale with figures derived from the course price and commissionRate.
// Distributions are not created; callers add them when a test needs bucket totals.
func (tf *TestFixtures) CreateTestSale(course *models.Course, sellerID *uint, saleDate time.Time, commissionRate string) (*models.Sale, error) {
	rate := decimal.Zero
	if sellerID != nil {
		rate = decimal.RequireFromString(commissionRate)
	}
	fin := finance.CalculateSaleFinancials(finance.SaleInput{
		BasePrice:       course.BasePrice,
		PlatformFeeRate: course.PlatformFeeRate,
		CommissionRate:  rate,
	})

	sale := &models.Sale{
		UUID:                uuid.New(),
		CourseID:            course.ID,
		SellerID:            sellerID,
		SaleDate:            saleDate.UTC(),
		MonthKey:            finance.MonthKey(saleDate),
		PriceBefore:         course.BasePrice,
		DiscountAmount:      decimal.Zero,
		PriceAfterDiscount:  fin.PriceAfterDiscount,
		PlatformFeeRate:     course.PlatformFeeRate,
		PlatformFee:         fin.PlatformFee,
		ProfitAfterPlatform: fin.ProfitAfterPlatform,
		CommissionRate:      rate,
		SellerCommission:    fin.SellerCommission,
		NetProfit:           fin.NetProfit,
	}
	if err := tf.DB.DB.Create(sale).Error; err != nil {
		return nil, fmt.Errorf("failed to create test sale: %w", err)
	}
	return sale, nil
}

// CreateTestDistribution attaches one distribution row to a sale
func (tf *TestFixtures) CreateTestDistribution(saleID, bucketID uint, percentage, amount string) (*models.SaleDistribution, error) {
	dist := &models.SaleDistribution{
		SaleID:     saleID,
		BucketID:   bucketID,
		Percentage: decimal.RequireFromString(percentage),
		Amount:     decimal.RequireFromString(amount),
	}
	if err := tf.DB.DB.Create(dist).Error; err != nil {
		return nil, fmt.Errorf("failed to create test distribution: %w", err)
	}
	return dist, nil
}
