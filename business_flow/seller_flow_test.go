package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func currentMonth() string {
	return finance.MonthKey(utils.UTCNow())
}

func TestCreateSeller(t *testing.T) {
	f := newFixture(t)
	f.seedRules()
	ctx := context.Background()

	resp, err := f.sellerFlow.CreateSeller(ctx, &dto.CreateSellerRequest{
		Email:    "  Sara@Example.COM ",
		Name:     "Sara",
		Password: "s3cret-pass",
	}, ownerMetadata())
	require.NoError(t, err)

	seller := resp.Seller
	assert.Equal(t, "sara@example.com", seller.Email)
	assert.Equal(t, 1, seller.Level)
	assert.Equal(t, 0, seller.SalesThisMonth)
	assert.Equal(t, "0.15", seller.CurrentCommission.String())
	assert.Equal(t, currentMonth(), seller.MonthKey)
	require.NotNil(t, seller.NextLevelTarget)
	assert.Equal(t, 10, *seller.NextLevelTarget)
	assert.Equal(t, 10, seller.RemainingToNextLevel)

	user := f.db.users[seller.UserID]
	assert.Equal(t, models.UserRoleSeller, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
	assert.Contains(t, f.db.auditActions(), models.AuditActionSellerCreated)

	_, err = f.sellerFlow.CreateSeller(ctx, &dto.CreateSellerRequest{
		Email:    "sara@example.com",
		Name:     "Other Sara",
		Password: "another-pass",
	}, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Contains(t, f.db.auditActions(), models.AuditActionSellerChangeFailed)
}

func TestCreateSellerWithoutRulesStartsAtLevelOne(t *testing.T) {
	f := newFixture(t)

	resp, err := f.sellerFlow.CreateSeller(context.Background(), &dto.CreateSellerRequest{
		Email: "new@example.com", Name: "New", Password: "password1",
	}, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Seller.Level)
	assert.True(t, resp.Seller.CurrentCommission.IsZero())
	assert.Nil(t, resp.Seller.NextLevelTarget)
}

func TestListSellersTreatsStaleMonthAsFresh(t *testing.T) {
	f := newFixture(t)
	f.seedRules()
	current := f.seedSeller(500, currentMonth(), 12, 2, "0.2")
	stale := f.seedSeller(501, "2001-01", 30, 3, "0.25")

	resp, err := f.sellerFlow.ListSellers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, currentMonth(), resp.MonthKey)
	require.Len(t, resp.Items, 2)

	byID := map[uint]dto.SellerItem{}
	for _, item := range resp.Items {
		byID[item.ID] = item
	}

	cur := byID[current.ID]
	assert.Equal(t, 2, cur.Level)
	assert.Equal(t, 12, cur.SalesThisMonth)
	require.NotNil(t, cur.NextLevelTarget)
	assert.Equal(t, 20, *cur.NextLevelTarget)
	assert.Equal(t, 8, cur.RemainingToNextLevel)

	old := byID[stale.ID]
	assert.Equal(t, 1, old.Level)
	assert.Equal(t, 0, old.SalesThisMonth)
	assert.Equal(t, "0.15", old.CurrentCommission.String())
}

func TestGetSellerVisibility(t *testing.T) {
	f := newFixture(t)
	f.seedRules()
	ctx := context.Background()
	mine := f.seedSeller(500, currentMonth(), 0, 1, "0.15")
	theirs := f.seedSeller(501, currentMonth(), 0, 1, "0.15")

	resp, err := f.sellerFlow.GetSeller(ctx, theirs.ID, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, theirs.ID, resp.Seller.ID)

	_, err = f.sellerFlow.GetSeller(ctx, theirs.ID, sellerMetadata(mine.UserID))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	own, err := f.sellerFlow.GetOwnSeller(ctx, sellerMetadata(mine.UserID))
	require.NoError(t, err)
	assert.Equal(t, mine.ID, own.Seller.ID)

	_, err = f.sellerFlow.GetOwnSeller(ctx, sellerMetadata(999))
	require.Error(t, err)
	assert.True(t, IsForbidden(err))

	_, err = f.sellerFlow.GetSeller(ctx, 4242, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetSellerIncludesMonthFigures(t *testing.T) {
	s := newSaleSetup(t)
	seller := s.seedSeller(500, currentMonth(), 0, 1, "0.15")

	_, err := s.saleFlow.RecordSale(context.Background(), &dto.RecordSaleRequest{
		CourseID: s.course.ID,
		SellerID: &seller.ID,
		SaleDate: utils.UTCNow().Format("2006-01-02"),
	}, ownerMetadata())
	require.NoError(t, err)

	resp, err := s.sellerFlow.GetSeller(context.Background(), seller.ID, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Seller.SalesThisMonth)
	assert.Equal(t, "50000", resp.Seller.MonthRevenue.String())
	assert.Equal(t, "6487.5", resp.Seller.MonthCommission.String())
	assert.Equal(t, "6487.5", resp.Seller.TotalCommissionPaid.String())
}

func TestGetLevelHistory(t *testing.T) {
	s := newSaleSetup(t)
	seller := s.seedSeller(500, "2025-03", 9, 1, "0.15")
	other := s.seedSeller(501, "2025-03", 0, 1, "0.15")
	recordFor := func(id uint) {
		_, err := s.saleFlow.RecordSale(context.Background(), &dto.RecordSaleRequest{
			CourseID: s.course.ID, SellerID: &id, SaleDate: "2025-03-30",
		}, ownerMetadata())
		require.NoError(t, err)
	}
	recordFor(seller.ID)
	recordFor(other.ID)

	resp, err := s.sellerFlow.GetLevelHistory(context.Background(), seller.ID, sellerMetadata(seller.UserID))
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Items[0].PreviousLevel)
	assert.Equal(t, 2, resp.Items[0].NewLevel)
	assert.Equal(t, "0.2", resp.Items[0].NewRate.String())

	_, err = s.sellerFlow.GetLevelHistory(context.Background(), seller.ID, sellerMetadata(other.UserID))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDeleteSellerKeepsSales(t *testing.T) {
	s := newSaleSetup(t)
	seller := s.seedSeller(500, "2025-03", 0, 1, "0.15")
	ctx := context.Background()

	recorded, err := s.saleFlow.RecordSale(ctx, &dto.RecordSaleRequest{
		CourseID: s.course.ID, SellerID: &seller.ID, SaleDate: "2025-03-04",
	}, ownerMetadata())
	require.NoError(t, err)

	_, err = s.sellerFlow.DeleteSeller(ctx, seller.ID, ownerMetadata())
	require.NoError(t, err)

	_, ok := s.db.sellers[seller.ID]
	assert.False(t, ok)
	_, ok = s.db.users[seller.UserID]
	assert.False(t, ok)

	sale := s.db.sales[recorded.Sale.ID]
	assert.Nil(t, sale.SellerID)
	assert.Equal(t, "6487.5", sale.SellerCommission.String())
	assert.Contains(t, s.db.auditActions(), models.AuditActionSellerDeleted)

	_, err = s.sellerFlow.DeleteSeller(ctx, seller.ID, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestUpdateLevelRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []dto.LevelRuleInput
		kind  Kind
	}{
		{
			name: "two tiers",
			rules: []dto.LevelRuleInput{
				{Level: 2, MinSales: 5, CommissionRate: "0.3"},
				{Level: 1, MinSales: 0, MaxSales: intPtr(4), CommissionRate: "0.1"},
			},
		},
		{
			name: "gap between tiers",
			rules: []dto.LevelRuleInput{
				{Level: 1, MinSales: 0, MaxSales: intPtr(4), CommissionRate: "0.1"},
				{Level: 2, MinSales: 6, CommissionRate: "0.3"},
			},
			kind: KindConsistencyViolation,
		},
		{
			name: "not starting at zero",
			rules: []dto.LevelRuleInput{
				{Level: 1, MinSales: 1, CommissionRate: "0.1"},
			},
			kind: KindConsistencyViolation,
		},
		{
			name: "rate above one",
			rules: []dto.LevelRuleInput{
				{Level: 1, MinSales: 0, CommissionRate: "1.1"},
			},
			kind: KindValidation,
		},
		{
			name: "unbounded middle tier",
			rules: []dto.LevelRuleInput{
				{Level: 1, MinSales: 0, CommissionRate: "0.1"},
				{Level: 2, MinSales: 5, CommissionRate: "0.2"},
			},
			kind: KindConsistencyViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedRules()

			resp, err := f.sellerFlow.UpdateLevelRules(context.Background(), &dto.UpdateLevelRulesRequest{Rules: tt.rules}, ownerMetadata())
			if tt.kind == "" {
				require.NoError(t, err)
				require.Len(t, resp.Items, 2)
				assert.Equal(t, 1, resp.Items[0].Level)
				assert.Equal(t, 2, resp.Items[1].Level)
				assert.Len(t, f.db.rules, 2)
				assert.Contains(t, f.db.auditActions(), models.AuditActionLevelRulesUpdated)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.Len(t, f.db.rules, 4)
		})
	}
}

func TestUpdatedRulesApplyOnNextSale(t *testing.T) {
	s := newSaleSetup(t)
	seller := s.seedSeller(500, "2025-03", 3, 1, "0.15")
	ctx := context.Background()

	_, err := s.sellerFlow.UpdateLevelRules(ctx, &dto.UpdateLevelRulesRequest{Rules: []dto.LevelRuleInput{
		{Level: 1, MinSales: 0, MaxSales: intPtr(2), CommissionRate: "0.1"},
		{Level: 2, MinSales: 3, CommissionRate: "0.3"},
	}}, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, 1, s.db.sellers[seller.ID].Level)

	resp, err := s.saleFlow.RecordSale(ctx, &dto.RecordSaleRequest{
		CourseID: s.course.ID, SellerID: &seller.ID, SaleDate: "2025-03-20",
	}, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, "0.3", resp.Sale.CommissionRate.String())
	assert.Equal(t, 2, resp.Seller.NewLevel)

	rules, err := s.sellerFlow.GetLevelRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules.Items, 2)
}
