package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBucket("reserve", "Reserve", nil)
	ministerial := models.CourseTypeMinisterial
	typed := f.seedTemplate("Ministerial", &ministerial, b.ID, "1")
	own := f.seedTemplate("Custom", nil, b.ID, "1")

	t.Run("links the type template and default fee", func(t *testing.T) {
		resp, err := f.catalog.CreateCourse(ctx, &dto.CreateCourseRequest{
			Name:      "  Chemistry 11 ",
			Type:      "MINISTERIAL",
			BasePrice: "42000.555",
		}, ownerMetadata())
		require.NoError(t, err)
		assert.Equal(t, "Chemistry 11", resp.Course.Name)
		assert.Equal(t, "42000.56", resp.Course.BasePrice.String())
		assert.Equal(t, "0.135", resp.Course.PlatformFeeRate.String())
		require.NotNil(t, resp.Course.DistributionTemplateID)
		assert.Equal(t, typed.ID, *resp.Course.DistributionTemplateID)
	})

	t.Run("explicit template and fee", func(t *testing.T) {
		resp, err := f.catalog.CreateCourse(ctx, &dto.CreateCourseRequest{
			Name:                   "Summer Math",
			Type:                   "SUMMER",
			BasePrice:              "9000",
			PlatformFeeRate:        strPtr("0"),
			DistributionTemplateID: &own.ID,
		}, ownerMetadata())
		require.NoError(t, err)
		assert.True(t, resp.Course.PlatformFeeRate.IsZero())
		require.NotNil(t, resp.Course.DistributionTemplateID)
		assert.Equal(t, own.ID, *resp.Course.DistributionTemplateID)
	})

	t.Run("no template for the type", func(t *testing.T) {
		resp, err := f.catalog.CreateCourse(ctx, &dto.CreateCourseRequest{
			Name:      "Summer Art",
			Type:      "SUMMER",
			BasePrice: "9000",
		}, ownerMetadata())
		require.NoError(t, err)
		assert.Nil(t, resp.Course.DistributionTemplateID)
	})

	assert.Contains(t, f.db.auditActions(), models.AuditActionCourseCreated)
}

func TestCreateCourseFailures(t *testing.T) {
	tests := []struct {
		name string
		req  *dto.CreateCourseRequest
		kind Kind
	}{
		{"unknown type", &dto.CreateCourseRequest{Name: "A", Type: "WINTER", BasePrice: "1"}, KindValidation},
		{"duplicate name", &dto.CreateCourseRequest{Name: "Existing", Type: "SUMMER", BasePrice: "1"}, KindConflict},
		{"negative price", &dto.CreateCourseRequest{Name: "A", Type: "SUMMER", BasePrice: "-1"}, KindValidation},
		{"fee above one", &dto.CreateCourseRequest{Name: "A", Type: "SUMMER", BasePrice: "1", PlatformFeeRate: strPtr("1.2")}, KindValidation},
		{"fee finer than the rate column", &dto.CreateCourseRequest{Name: "A", Type: "SUMMER", BasePrice: "1", PlatformFeeRate: strPtr("0.13575")}, KindValidation},
		{"missing template", &dto.CreateCourseRequest{Name: "A", Type: "SUMMER", BasePrice: "1", DistributionTemplateID: uintPtr(77)}, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedCourse("Existing", models.CourseTypeSummer, "10", "0.1", nil)

			_, err := f.catalog.CreateCourse(context.Background(), tt.req, ownerMetadata())
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
			assert.Len(t, f.db.courses, 1)
			assert.Contains(t, f.db.auditActions(), models.AuditActionCatalogFailed)
		})
	}
}

func TestUpdateCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.seedBucket("reserve", "Reserve", nil)
	tmpl := f.seedTemplate("Custom", nil, b.ID, "1")
	course := f.seedCourse("Biology", models.CourseTypeMinisterial, "1000", "0.1", &tmpl.ID)
	f.seedCourse("Physics", models.CourseTypeMinisterial, "1000", "0.1", nil)

	resp, err := f.catalog.UpdateCourse(ctx, &dto.UpdateCourseRequest{
		ID:              course.ID,
		BasePrice:       strPtr("1500"),
		PlatformFeeRate: strPtr("0.2"),
		ClearTemplate:   true,
	}, ownerMetadata())
	require.NoError(t, err)
	assert.Equal(t, "Biology", resp.Course.Name)
	assert.Equal(t, "1500", resp.Course.BasePrice.String())
	assert.Equal(t, "0.2", resp.Course.PlatformFeeRate.String())
	assert.Nil(t, resp.Course.DistributionTemplateID)

	_, err = f.catalog.UpdateCourse(ctx, &dto.UpdateCourseRequest{ID: course.ID, Name: strPtr("Physics")}, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	_, err = f.catalog.UpdateCourse(ctx, &dto.UpdateCourseRequest{ID: 999}, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDeleteCourse(t *testing.T) {
	s := newSaleSetup(t)
	ctx := context.Background()
	unsold := s.seedCourse("Unsold", models.CourseTypeSummer, "10", "0.1", nil)
	recordOn(t, s, "2025-03-03")

	_, err := s.catalog.DeleteCourse(ctx, s.course.ID, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.ErrorIs(t, err, ErrCourseHasSales)

	_, err = s.catalog.DeleteCourse(ctx, unsold.ID, ownerMetadata())
	require.NoError(t, err)
	_, ok := s.db.courses[unsold.ID]
	assert.False(t, ok)
	assert.Contains(t, s.db.auditActions(), models.AuditActionCourseDeleted)
}

func TestCreateDiscount(t *testing.T) {
	tests := []struct {
		name string
		req  *dto.CreateDiscountRequest
		kind Kind
	}{
		{"flat", &dto.CreateDiscountRequest{Name: "Loyal", Type: "FLAT", Amount: "2500"}, ""},
		{"percentage", &dto.CreateDiscountRequest{Name: "Spring", Type: "PERCENTAGE", Amount: "15"}, ""},
		{"percentage above 100", &dto.CreateDiscountRequest{Name: "Free+", Type: "PERCENTAGE", Amount: "101"}, KindValidation},
		{"negative flat", &dto.CreateDiscountRequest{Name: "Bad", Type: "FLAT", Amount: "-1"}, KindValidation},
		{"unknown type", &dto.CreateDiscountRequest{Name: "Bad", Type: "BOGO", Amount: "1"}, KindValidation},
		{"duplicate name", &dto.CreateDiscountRequest{Name: "Existing", Type: "FLAT", Amount: "1"}, KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedDiscount("Existing", models.DiscountTypeFlat, "10", true)

			resp, err := f.catalog.CreateDiscount(context.Background(), tt.req, ownerMetadata())
			if tt.kind == "" {
				require.NoError(t, err)
				assert.True(t, resp.Discount.IsActive)
				assert.Equal(t, tt.req.Type, resp.Discount.Type)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
		})
	}
}

func TestDiscountActivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.seedDiscount("Spring", models.DiscountTypePercentage, "10", true)
	f.seedDiscount("Winter", models.DiscountTypeFlat, "100", false)

	resp, err := f.catalog.SetDiscountActive(ctx, &dto.SetDiscountActiveRequest{ID: d.ID, IsActive: boolPtr(false)}, ownerMetadata())
	require.NoError(t, err)
	assert.False(t, resp.Discount.IsActive)

	active, err := f.catalog.ListDiscounts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active.Items)

	all, err := f.catalog.ListDiscounts(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}

func TestDeleteDiscount(t *testing.T) {
	s := newSaleSetup(t)
	ctx := context.Background()
	used := s.seedDiscount("Used", models.DiscountTypeFlat, "100", true)
	unused := s.seedDiscount("Unused", models.DiscountTypeFlat, "100", true)

	_, err := s.saleFlow.RecordSale(ctx, &dto.RecordSaleRequest{
		CourseID: s.course.ID, DiscountID: &used.ID, SaleDate: "2025-03-03",
	}, ownerMetadata())
	require.NoError(t, err)

	resp, err := s.catalog.DeleteDiscount(ctx, used.ID, ownerMetadata())
	require.NoError(t, err)
	assert.True(t, resp.Deactivated)
	kept, ok := s.db.discounts[used.ID]
	require.True(t, ok)
	assert.False(t, *kept.IsActive)

	resp, err = s.catalog.DeleteDiscount(ctx, unused.ID, ownerMetadata())
	require.NoError(t, err)
	assert.False(t, resp.Deactivated)
	_, ok = s.db.discounts[unused.ID]
	assert.False(t, ok)

	_, err = s.catalog.DeleteDiscount(ctx, 999, ownerMetadata())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSaveTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parent := f.seedBucket("ops", "Operations", nil)
	a := f.seedBucket("ads", "Ads", &parent.ID)
	b := f.seedBucket("events", "Events", &parent.ID)

	created, err := f.catalog.SaveTemplate(ctx, &dto.SaveTemplateRequest{
		Name:         "Summer split",
		ApplicableTo: strPtr("SUMMER"),
		Allocations: []dto.TemplateAllocationInput{
			{BucketID: a.ID, Percentage: "0.7"},
			{BucketID: b.ID, Percentage: "0.3"},
		},
	}, ownerMetadata())
	require.NoError(t, err)
	tmpl := created.Template
	assert.Equal(t, "1", tmpl.Total.String())
	require.NotNil(t, tmpl.ApplicableTo)
	assert.Equal(t, "SUMMER", *tmpl.ApplicableTo)
	require.Len(t, tmpl.Allocations, 2)
	assert.Equal(t, "ads", tmpl.Allocations[0].BucketKey)
	assert.Contains(t, f.db.auditActions(), models.AuditActionTemplateCreated)

	updated, err := f.catalog.SaveTemplate(ctx, &dto.SaveTemplateRequest{
		ID:           tmpl.ID,
		Name:         "Summer split",
		ApplicableTo: strPtr("SUMMER"),
		Allocations: []dto.TemplateAllocationInput{
			{BucketID: b.ID, Percentage: "1"},
		},
	}, ownerMetadata())
	require.NoError(t, err)
	require.Len(t, updated.Template.Allocations, 1)
	assert.Equal(t, b.ID, updated.Template.Allocations[0].BucketID)
	assert.Contains(t, f.db.auditActions(), models.AuditActionTemplateUpdated)

	list, err := f.catalog.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestSaveTemplateFailures(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *fixture, leaf, parent, other uint) *dto.SaveTemplateRequest
		kind  Kind
	}{
		{
			name: "sum below one",
			build: func(_ *fixture, leaf, _, other uint) *dto.SaveTemplateRequest {
				return &dto.SaveTemplateRequest{Name: "T", Allocations: []dto.TemplateAllocationInput{
					{BucketID: leaf, Percentage: "0.5"}, {BucketID: other, Percentage: "0.4"},
				}}
			},
			kind: KindConsistencyViolation,
		},
		{
			name: "sum inside tolerance",
			build: func(_ *fixture, leaf, _, other uint) *dto.SaveTemplateRequest {
				return &dto.SaveTemplateRequest{Name: "T", Allocations: []dto.TemplateAllocationInput{
					{BucketID: leaf, Percentage: "0.333"}, {BucketID: other, Percentage: "0.666"},
				}}
			},
		},
		{
			name: "duplicate bucket",
			build: func(_ *fixture, leaf, _, _ uint) *dto.SaveTemplateRequest {
				return &dto.SaveTemplateRequest{Name: "T", Allocations: []dto.TemplateAllocationInput{
					{BucketID: leaf, Percentage: "0.5"}, {BucketID: leaf, Percentage: "0.5"},
				}}
			},
			kind: KindConsistencyViolation,
		},
		{
			name: "non-leaf bucket",
			build: func(_ *fixture, _, parent, _ uint) *dto.SaveTemplateRequest {
				return &dto.SaveTemplateRequest{Name: "T", Allocations: []dto.TemplateAllocationInput{
					{BucketID: parent, Percentage: "1"},
				}}
			},
			kind: KindConsistencyViolation,
		},
		{
			name: "unknown bucket",
			build: func(_ *fixture, _, _, _ uint) *dto.SaveTemplateRequest {
				return &dto.SaveTemplateRequest{Name: "T", Allocations: []dto.TemplateAllocationInput{
					{BucketID: 4040, Percentage: "1"},
				}}
			},
			kind: KindNotFound,
		},
		{
			name: "type already taken",
			build: func(f *fixture, leaf, _, _ uint) *dto.SaveTemplateRequest {
				summer := models.CourseTypeSummer
				f.seedTemplate("Existing summer", &summer, leaf, "1")
				return &dto.SaveTemplateRequest{Name: "T", ApplicableTo: strPtr("SUMMER"), Allocations: []dto.TemplateAllocationInput{
					{BucketID: leaf, Percentage: "1"},
				}}
			},
			kind: KindConsistencyViolation,
		},
		{
			name: "name already taken",
			build: func(f *fixture, leaf, _, _ uint) *dto.SaveTemplateRequest {
				f.seedTemplate("T", nil, leaf, "1")
				return &dto.SaveTemplateRequest{Name: "T", Allocations: []dto.TemplateAllocationInput{
					{BucketID: leaf, Percentage: "1"},
				}}
			},
			kind: KindConflict,
		},
		{
			name: "unknown template id",
			build: func(_ *fixture, leaf, _, _ uint) *dto.SaveTemplateRequest {
				return &dto.SaveTemplateRequest{ID: 5050, Name: "T", Allocations: []dto.TemplateAllocationInput{
					{BucketID: leaf, Percentage: "1"},
				}}
			},
			kind: KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			parent := f.seedBucket("ops", "Operations", nil)
			leaf := f.seedBucket("ads", "Ads", &parent.ID)
			other := f.seedBucket("events", "Events", &parent.ID)

			_, err := f.catalog.SaveTemplate(context.Background(), tt.build(f, leaf.ID, parent.ID, other.ID), ownerMetadata())
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
		})
	}
}

func boolPtr(v bool) *bool {
	return &v
}
