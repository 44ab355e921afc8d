package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBucket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.seedBucket("operations", "Operations", nil)

	resp, err := f.fundFlow.CreateBucket(ctx, &dto.CreateBucketRequest{
		Key:          " marketing ",
		Label:        "Marketing",
		ParentID:     &root.ID,
		DefaultShare: strPtr("0.25"),
	}, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, "marketing", resp.Bucket.Key)
	require.NotNil(t, resp.Bucket.ParentID)
	assert.Equal(t, root.ID, *resp.Bucket.ParentID)
	require.True(t, resp.Bucket.DefaultShare.Valid)
	assert.Equal(t, "0.25", resp.Bucket.DefaultShare.Decimal.String())
	assert.Contains(t, f.db.auditActions(), models.AuditActionBucketCreated)
}

func TestCreateBucketFailures(t *testing.T) {
	tests := []struct {
		name string
		req  *dto.CreateBucketRequest
		kind Kind
	}{
		{
			name: "duplicate key",
			req:  &dto.CreateBucketRequest{Key: "operations", Label: "Ops again"},
			kind: KindConflict,
		},
		{
			name: "missing parent",
			req:  &dto.CreateBucketRequest{Key: "orphan", Label: "Orphan", ParentID: uintPtr(999)},
			kind: KindValidation,
		},
		{
			name: "share above one",
			req:  &dto.CreateBucketRequest{Key: "greedy", Label: "Greedy", DefaultShare: strPtr("1.5")},
			kind: KindValidation,
		},
		{
			name: "share not a number",
			req:  &dto.CreateBucketRequest{Key: "typo", Label: "Typo", DefaultShare: strPtr("abc")},
			kind: KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedBucket("operations", "Operations", nil)

			_, err := f.fundFlow.CreateBucket(context.Background(), tt.req, ownerMetadata())
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.Len(t, f.db.buckets, 1)
			assert.Contains(t, f.db.auditActions(), models.AuditActionFundChangeFailed)
		})
	}
}

// fundSetup records one March sale into a two-level tree and charges both leaves
func fundSetup(t *testing.T) (*saleSetup, models.FundBucket) {
	t.Helper()
	f := newFixture(t)
	f.seedRules()
	ops := f.seedBucket("operations", "Operations", nil)
	marketing := f.seedBucket("marketing", "Marketing", &ops.ID)
	reserve := f.seedBucket("reserve", "Reserve", &ops.ID)
	tmpl := f.seedTemplate("Standard", nil, marketing.ID, "0.6", reserve.ID, "0.4")
	course := f.seedCourse("Physics 12", models.CourseTypeMinisterial, "50000", "0.135", &tmpl.ID)
	s := &saleSetup{fixture: f, marketing: marketing, reserve: reserve, course: course}

	recordOn(t, s, "2025-03-10")
	return s, ops
}

func TestGetBucketTreeRollsUpInflowAndOutflow(t *testing.T) {
	s, ops := fundSetup(t)
	ctx := context.Background()

	_, err := s.fundFlow.RecordExpense(ctx, &dto.CreateExpenseRequest{
		BucketID:    s.marketing.ID,
		Description: "Flyers",
		Amount:      "1000",
		ExpenseDate: "2025-03-12",
	}, ownerMetadata())
	require.NoError(t, err)

	recipient, err := s.fundFlow.CreateSalaryRecipient(ctx, &dto.CreateSalaryRecipientRequest{
		Name:     "Tutor",
		Mode:     string(models.SalaryModeFixed),
		BucketID: &s.reserve.ID,
	}, ownerMetadata())
	require.NoError(t, err)
	_, err = s.fundFlow.RecordSalaryPayment(ctx, &dto.RecordSalaryPaymentRequest{
		RecipientID: recipient.Recipient.ID,
		Amount:      "500",
		PeriodKey:   "2025-03",
	}, ownerMetadata())
	require.NoError(t, err)

	tree, err := s.fundFlow.GetBucketTree(ctx, &dto.BucketTreeRequest{})
	require.NoError(t, err)
	require.Len(t, tree.Roots, 1)

	root := tree.Roots[0]
	assert.Equal(t, ops.ID, root.ID)
	assert.True(t, root.OwnInflow.IsZero())
	assert.Equal(t, "36762.5", root.Inflow.String())
	assert.Equal(t, "1500", root.Used.String())
	assert.Equal(t, "35262.5", root.Remaining.String())

	require.Len(t, root.Children, 2)
	assert.Equal(t, "Marketing", root.Children[0].Label)
	assert.Equal(t, "21057.5", root.Children[0].Remaining.String())
	assert.Equal(t, "Reserve", root.Children[1].Label)
	assert.Equal(t, "14205", root.Children[1].Remaining.String())

	require.Len(t, tree.Summary, 3)
	assert.Equal(t, 0, tree.Summary[0].Depth)
	assert.Equal(t, 1, tree.Summary[1].Depth)
	assert.Equal(t, 1, tree.Summary[2].Depth)
}

func TestGetBucketTreeMonthFilter(t *testing.T) {
	s, _ := fundSetup(t)
	ctx := context.Background()

	_, err := s.fundFlow.RecordExpense(ctx, &dto.CreateExpenseRequest{
		BucketID:    s.marketing.ID,
		Description: "April ads",
		Amount:      "200",
		ExpenseDate: "2025-04-01",
	}, ownerMetadata())
	require.NoError(t, err)

	march, err := s.fundFlow.GetBucketTree(ctx, &dto.BucketTreeRequest{MonthKeys: []string{"2025-03"}})
	require.NoError(t, err)
	assert.Equal(t, "36762.5", march.Roots[0].Inflow.String())
	assert.True(t, march.Roots[0].Used.IsZero())

	april, err := s.fundFlow.GetBucketTree(ctx, &dto.BucketTreeRequest{MonthKeys: []string{"2025-04"}})
	require.NoError(t, err)
	assert.True(t, april.Roots[0].Inflow.IsZero())
	assert.Equal(t, "-200", april.Roots[0].Remaining.String())

	_, err = s.fundFlow.GetBucketTree(ctx, &dto.BucketTreeRequest{MonthKeys: []string{"2025-4"}})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestRecordExpenseFailures(t *testing.T) {
	tests := []struct {
		name string
		req  func(bucketID uint) *dto.CreateExpenseRequest
		kind Kind
	}{
		{
			name: "unknown bucket",
			req: func(uint) *dto.CreateExpenseRequest {
				return &dto.CreateExpenseRequest{BucketID: 999, Description: "x", Amount: "10", ExpenseDate: "2025-03-01"}
			},
			kind: KindNotFound,
		},
		{
			name: "zero amount",
			req: func(id uint) *dto.CreateExpenseRequest {
				return &dto.CreateExpenseRequest{BucketID: id, Description: "x", Amount: "0", ExpenseDate: "2025-03-01"}
			},
			kind: KindValidation,
		},
		{
			name: "negative amount",
			req: func(id uint) *dto.CreateExpenseRequest {
				return &dto.CreateExpenseRequest{BucketID: id, Description: "x", Amount: "-5", ExpenseDate: "2025-03-01"}
			},
			kind: KindValidation,
		},
		{
			name: "bad date",
			req: func(id uint) *dto.CreateExpenseRequest {
				return &dto.CreateExpenseRequest{BucketID: id, Description: "x", Amount: "5", ExpenseDate: "yesterday"}
			},
			kind: KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.seedBucket("ops", "Ops", nil)

			_, err := f.fundFlow.RecordExpense(context.Background(), tt.req(b.ID), ownerMetadata())
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.Empty(t, f.db.expenses)
		})
	}
}

func TestExpenseLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBucket("ops", "Ops", nil)

	for _, amount := range []string{"100.555", "50"} {
		_, err := f.fundFlow.RecordExpense(ctx, &dto.CreateExpenseRequest{
			BucketID: b.ID, Description: "Supplies", Amount: amount, ExpenseDate: "2025-05-02",
		}, ownerMetadata())
		require.NoError(t, err)
	}

	list, err := f.fundFlow.ListExpenses(ctx, &dto.ListExpensesRequest{MonthKey: strPtr("2025-05")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, "150.56", list.Amount.String())

	_, err = f.fundFlow.DeleteExpense(ctx, list.Items[0].ID, ownerMetadata())
	require.NoError(t, err)
	assert.Len(t, f.db.expenses, 1)
	assert.Contains(t, f.db.auditActions(), models.AuditActionExpenseDeleted)

	_, err = f.fundFlow.DeleteExpense(ctx, 9999, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestCreateSalaryRecipientFailures(t *testing.T) {
	tests := []struct {
		name string
		req  *dto.CreateSalaryRecipientRequest
		kind Kind
	}{
		{"unknown mode", &dto.CreateSalaryRecipientRequest{Name: "A", Mode: "HOURLY"}, KindValidation},
		{"negative rate", &dto.CreateSalaryRecipientRequest{Name: "A", Mode: "PERCENTAGE", Rate: strPtr("-0.1")}, KindValidation},
		{"unknown bucket", &dto.CreateSalaryRecipientRequest{Name: "A", Mode: "FIXED", BucketID: uintPtr(42)}, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.fundFlow.CreateSalaryRecipient(context.Background(), tt.req, ownerMetadata())
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.Empty(t, f.db.recipients)
		})
	}
}

func TestRecordSalaryPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	home := f.seedBucket("salaries", "Salaries", nil)
	other := f.seedBucket("bonus", "Bonus", nil)

	withBucket, err := f.fundFlow.CreateSalaryRecipient(ctx, &dto.CreateSalaryRecipientRequest{
		Name: "Tutor", Mode: "UNIT", FixedAmount: strPtr("120"), BucketID: &home.ID,
	}, ownerMetadata())
	require.NoError(t, err)
	assert.True(t, withBucket.Recipient.IsActive)

	withoutBucket, err := f.fundFlow.CreateSalaryRecipient(ctx, &dto.CreateSalaryRecipientRequest{
		Name: "Admin", Mode: "FIXED",
	}, ownerMetadata())
	require.NoError(t, err)

	t.Run("defaults to recipient bucket", func(t *testing.T) {
		resp, err := f.fundFlow.RecordSalaryPayment(ctx, &dto.RecordSalaryPaymentRequest{
			RecipientID:  withBucket.Recipient.ID,
			Amount:       "1200",
			PeriodKey:    "2025-03",
			UnitsCovered: intPtr(10),
			PaidAt:       strPtr("2025-04-01"),
		}, ownerMetadata())
		require.NoError(t, err)
		assert.Equal(t, home.ID, resp.Payment.BucketID)
		assert.Equal(t, "Tutor", resp.Payment.RecipientName)
		assert.Equal(t, "2025-04-01", resp.Payment.PaidAt.Format("2006-01-02"))
	})

	t.Run("explicit bucket wins", func(t *testing.T) {
		resp, err := f.fundFlow.RecordSalaryPayment(ctx, &dto.RecordSalaryPaymentRequest{
			RecipientID: withBucket.Recipient.ID,
			BucketID:    &other.ID,
			Amount:      "50",
			PeriodKey:   "2025-03",
		}, ownerMetadata())
		require.NoError(t, err)
		assert.Equal(t, other.ID, resp.Payment.BucketID)
	})

	t.Run("no bucket anywhere", func(t *testing.T) {
		_, err := f.fundFlow.RecordSalaryPayment(ctx, &dto.RecordSalaryPaymentRequest{
			RecipientID: withoutBucket.Recipient.ID,
			Amount:      "50",
			PeriodKey:   "2025-03",
		}, ownerMetadata())
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("bad period", func(t *testing.T) {
		_, err := f.fundFlow.RecordSalaryPayment(ctx, &dto.RecordSalaryPaymentRequest{
			RecipientID: withBucket.Recipient.ID,
			Amount:      "50",
			PeriodKey:   "03-2025",
		}, ownerMetadata())
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("unknown recipient", func(t *testing.T) {
		_, err := f.fundFlow.RecordSalaryPayment(ctx, &dto.RecordSalaryPaymentRequest{
			RecipientID: 4242,
			Amount:      "50",
			PeriodKey:   "2025-03",
		}, ownerMetadata())
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	payments, err := f.fundFlow.ListSalaryPayments(ctx, &dto.ListSalaryPaymentsRequest{RecipientID: &withBucket.Recipient.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), payments.Total)

	recipients, err := f.fundFlow.ListSalaryRecipients(ctx)
	require.NoError(t, err)
	assert.Len(t, recipients.Items, 2)
}
