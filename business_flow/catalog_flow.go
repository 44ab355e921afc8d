package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/shopspring/decimal"
)

// CatalogFlow manages courses, discounts and distribution templates
type CatalogFlow interface {
	CreateCourse(ctx context.Context, req *dto.CreateCourseRequest, metadata *ClientMetadata) (*dto.CourseResponse, error)
	UpdateCourse(ctx context.Context, req *dto.UpdateCourseRequest, metadata *ClientMetadata) (*dto.CourseResponse, error)
	ListCourses(ctx context.Context) (*dto.ListCoursesResponse, error)
	DeleteCourse(ctx context.Context, courseID uint, metadata *ClientMetadata) (*dto.MessageResponse, error)

	CreateDiscount(ctx context.Context, req *dto.CreateDiscountRequest, metadata *ClientMetadata) (*dto.DiscountResponse, error)
	ListDiscounts(ctx context.Context, activeOnly bool) (*dto.ListDiscountsResponse, error)
	SetDiscountActive(ctx context.Context, req *dto.SetDiscountActiveRequest, metadata *ClientMetadata) (*dto.DiscountResponse, error)
	DeleteDiscount(ctx context.Context, discountID uint, metadata *ClientMetadata) (*dto.DeleteDiscountResponse, error)

	SaveTemplate(ctx context.Context, req *dto.SaveTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error)
	ListTemplates(ctx context.Context) (*dto.ListTemplatesResponse, error)
}

// CatalogFlowImpl implements the catalog business flow
type CatalogFlowImpl struct {
	courseRepo     repository.CourseRepository
	discountRepo   repository.DiscountRepository
	templateRepo   repository.DistributionTemplateRepository
	bucketRepo     repository.FundBucketRepository
	saleRepo       repository.SaleRepository
	auditRepo      repository.AuditLogRepository
	transactor     repository.Transactor
	defaultFeeRate decimal.Decimal
}

// NewCatalogFlow creates a new catalog flow instance. defaultFeeRate applies to courses created without a fee rate.
func NewCatalogFlow(
	courseRepo repository.CourseRepository,
	discountRepo repository.DiscountRepository,
	templateRepo repository.DistributionTemplateRepository,
	bucketRepo repository.FundBucketRepository,
	saleRepo repository.SaleRepository,
	auditRepo repository.AuditLogRepository,
	transactor repository.Transactor,
	defaultFeeRate decimal.Decimal,
) CatalogFlow {
	return &CatalogFlowImpl{
		courseRepo:     courseRepo,
		discountRepo:   discountRepo,
		templateRepo:   templateRepo,
		bucketRepo:     bucketRepo,
		saleRepo:       saleRepo,
		auditRepo:      auditRepo,
		transactor:     transactor,
		defaultFeeRate: defaultFeeRate,
	}
}

// CreateCourse stores a course. Without an explicit template, MINISTERIAL and SUMMER courses are
// linked to the template that targets their type, if any.
func (f *CatalogFlowImpl) CreateCourse(ctx context.Context, req *dto.CreateCourseRequest, metadata *ClientMetadata) (*dto.CourseResponse, error) {
	var course *models.Course
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		courseType := models.CourseType(req.Type)
		if !courseType.IsValid() {
			return ErrInvalidCourseType
		}

		name := strings.TrimSpace(req.Name)
		existing, err := f.courseRepo.ByName(txCtx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrNameAlreadyExists
		}

		basePrice, err := parseDecimal(req.BasePrice)
		if err != nil {
			return err
		}
		if basePrice.IsNegative() {
			return finance.ErrInvalidAmount
		}

		feeRate := f.defaultFeeRate
		if req.PlatformFeeRate != nil {
			if feeRate, err = parseDecimal(*req.PlatformFeeRate); err != nil {
				return err
			}
		}
		if !finance.IsRate(feeRate) {
			return finance.ErrInvalidRate
		}

		templateID := req.DistributionTemplateID
		if templateID != nil {
			if err := f.ensureTemplateExists(txCtx, *templateID); err != nil {
				return err
			}
		} else if courseType.HasDefaultTemplate() {
			template, err := f.templateRepo.ByApplicableTo(txCtx, courseType)
			if err != nil {
				return err
			}
			if template != nil {
				templateID = &template.ID
			}
		}

		now := utils.UTCNow()
		course = &models.Course{
			Name:                   name,
			Type:                   courseType,
			Stage:                  req.Stage,
			BasePrice:              finance.Round2(basePrice),
			PlatformFeeRate:        feeRate,
			DistributionTemplateID: templateID,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		return f.courseRepo.Save(txCtx, course)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Create course %q failed: %s", req.Name, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCatalogFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CREATE_COURSE_FAILED", "Failed to create course", err)
	}

	msg := fmt.Sprintf("Course %d (%s) created", course.ID, course.Name)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCourseCreated, msg, true, nil, metadata)

	return &dto.CourseResponse{
		Message: "Course created successfully",
		Course:  toCourseItem(*course),
	}, nil
}

// UpdateCourse changes the provided fields. Stored sales keep their own figures.
func (f *CatalogFlowImpl) UpdateCourse(ctx context.Context, req *dto.UpdateCourseRequest, metadata *ClientMetadata) (*dto.CourseResponse, error) {
	var course *models.Course
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		course, err = f.courseRepo.ByID(txCtx, req.ID)
		if err != nil {
			return err
		}
		if course == nil {
			return ErrCourseNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name != course.Name {
				existing, err := f.courseRepo.ByName(txCtx, name)
				if err != nil {
					return err
				}
				if existing != nil {
					return ErrNameAlreadyExists
				}
				course.Name = name
			}
		}
		if req.Stage != nil {
			course.Stage = req.Stage
		}
		if req.BasePrice != nil {
			basePrice, err := parseDecimal(*req.BasePrice)
			if err != nil {
				return err
			}
			if basePrice.IsNegative() {
				return finance.ErrInvalidAmount
			}
			course.BasePrice = finance.Round2(basePrice)
		}
		if req.PlatformFeeRate != nil {
			feeRate, err := parseDecimal(*req.PlatformFeeRate)
			if err != nil {
				return err
			}
			if !finance.IsRate(feeRate) {
				return finance.ErrInvalidRate
			}
			course.PlatformFeeRate = feeRate
		}
		switch {
		case req.ClearTemplate:
			course.DistributionTemplateID = nil
		case req.DistributionTemplateID != nil:
			if err := f.ensureTemplateExists(txCtx, *req.DistributionTemplateID); err != nil {
				return err
			}
			course.DistributionTemplateID = req.DistributionTemplateID
		}

		course.DistributionTemplate = nil
		course.UpdatedAt = utils.UTCNow()
		return f.courseRepo.Update(txCtx, course)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Update course %d failed: %s", req.ID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCatalogFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("UPDATE_COURSE_FAILED", "Failed to update course", err)
	}

	msg := fmt.Sprintf("Course %d updated", course.ID)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCourseUpdated, msg, true, nil, metadata)

	return &dto.CourseResponse{
		Message: "Course updated successfully",
		Course:  toCourseItem(*course),
	}, nil
}

// ListCourses lists courses by name
func (f *CatalogFlowImpl) ListCourses(ctx context.Context) (*dto.ListCoursesResponse, error) {
	courses, err := f.courseRepo.ByFilter(ctx, models.CourseFilter{}, "", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_COURSES_FAILED", "Failed to list courses", err)
	}

	items := make([]dto.CourseItem, 0, len(courses))
	for _, c := range courses {
		items = append(items, toCourseItem(*c))
	}
	return &dto.ListCoursesResponse{
		Message: "Courses retrieved successfully",
		Items:   items,
	}, nil
}

// DeleteCourse removes a course that has never been sold
func (f *CatalogFlowImpl) DeleteCourse(ctx context.Context, courseID uint, metadata *ClientMetadata) (*dto.MessageResponse, error) {
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		course, err := f.courseRepo.ByID(txCtx, courseID)
		if err != nil {
			return err
		}
		if course == nil {
			return ErrCourseNotFound
		}

		sold, err := f.saleRepo.Exists(txCtx, models.SaleFilter{CourseID: &course.ID})
		if err != nil {
			return err
		}
		if sold {
			return ErrCourseHasSales
		}
		return f.courseRepo.Delete(txCtx, course.ID)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Delete course %d failed: %s", courseID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCatalogFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("DELETE_COURSE_FAILED", "Failed to delete course", err)
	}

	msg := fmt.Sprintf("Course %d deleted", courseID)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCourseDeleted, msg, true, nil, metadata)

	return &dto.MessageResponse{Message: "Course deleted successfully"}, nil
}

// CreateDiscount stores a named discount; percentage discounts are capped at 100
func (f *CatalogFlowImpl) CreateDiscount(ctx context.Context, req *dto.CreateDiscountRequest, metadata *ClientMetadata) (*dto.DiscountResponse, error) {
	var discount *models.Discount
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		kind := models.DiscountType(req.Type)
		if !kind.IsValid() {
			return finance.ErrUnknownDiscountType
		}

		amount, err := parseDecimal(req.Amount)
		if err != nil {
			return err
		}
		// resolving against a zero base checks sign and percentage bounds
		if _, err := finance.DiscountAmount(kind, amount, decimal.Zero); err != nil {
			return err
		}

		name := strings.TrimSpace(req.Name)
		existing, err := f.discountRepo.ByName(txCtx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrNameAlreadyExists
		}

		now := utils.UTCNow()
		discount = &models.Discount{
			Name:      name,
			Type:      kind,
			Amount:    finance.Round2(amount),
			IsActive:  utils.ToPtr(true),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return f.discountRepo.Save(txCtx, discount)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Create discount %q failed: %s", req.Name, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCatalogFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CREATE_DISCOUNT_FAILED", "Failed to create discount", err)
	}

	msg := fmt.Sprintf("Discount %d (%s) created", discount.ID, discount.Name)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionDiscountCreated, msg, true, nil, metadata)

	return &dto.DiscountResponse{
		Message:  "Discount created successfully",
		Discount: toDiscountItem(*discount),
	}, nil
}

// ListDiscounts lists discounts by name
func (f *CatalogFlowImpl) ListDiscounts(ctx context.Context, activeOnly bool) (*dto.ListDiscountsResponse, error) {
	filter := models.DiscountFilter{}
	if activeOnly {
		filter.IsActive = utils.ToPtr(true)
	}

	discounts, err := f.discountRepo.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_DISCOUNTS_FAILED", "Failed to list discounts", err)
	}

	items := make([]dto.DiscountItem, 0, len(discounts))
	for _, d := range discounts {
		items = append(items, toDiscountItem(*d))
	}
	return &dto.ListDiscountsResponse{
		Message: "Discounts retrieved successfully",
		Items:   items,
	}, nil
}

// SetDiscountActive enables or disables a discount for new sales
func (f *CatalogFlowImpl) SetDiscountActive(ctx context.Context, req *dto.SetDiscountActiveRequest, metadata *ClientMetadata) (*dto.DiscountResponse, error) {
	var discount *models.Discount
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		discount, err = f.discountRepo.ByID(txCtx, req.ID)
		if err != nil {
			return err
		}
		if discount == nil {
			return ErrDiscountNotFound
		}
		discount.IsActive = utils.ToPtr(utils.IsTrue(req.IsActive))
		discount.UpdatedAt = utils.UTCNow()
		return f.discountRepo.Update(txCtx, discount)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Update discount %d failed: %s", req.ID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCatalogFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("UPDATE_DISCOUNT_FAILED", "Failed to update discount", err)
	}

	msg := fmt.Sprintf("Discount %d active=%t", discount.ID, utils.IsTrue(discount.IsActive))
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionDiscountUpdated, msg, true, nil, metadata)

	return &dto.DiscountResponse{
		Message:  "Discount updated successfully",
		Discount: toDiscountItem(*discount),
	}, nil
}

// DeleteDiscount removes an unused discount. A discount referenced by sales is only deactivated.
func (f *CatalogFlowImpl) DeleteDiscount(ctx context.Context, discountID uint, metadata *ClientMetadata) (*dto.DeleteDiscountResponse, error) {
	deactivated := false
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		discount, err := f.discountRepo.ByID(txCtx, discountID)
		if err != nil {
			return err
		}
		if discount == nil {
			return ErrDiscountNotFound
		}

		used, err := f.saleRepo.Exists(txCtx, models.SaleFilter{DiscountID: &discount.ID})
		if err != nil {
			return err
		}
		if !used {
			return f.discountRepo.Delete(txCtx, discount.ID)
		}

		deactivated = true
		discount.IsActive = utils.ToPtr(false)
		discount.UpdatedAt = utils.UTCNow()
		return f.discountRepo.Update(txCtx, discount)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Delete discount %d failed: %s", discountID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCatalogFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("DELETE_DISCOUNT_FAILED", "Failed to delete discount", err)
	}

	if deactivated {
		msg := fmt.Sprintf("Discount %d is referenced by sales and was deactivated", discountID)
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionDiscountUpdated, msg, true, nil, metadata)
		return &dto.DeleteDiscountResponse{Message: "Discount is in use and was deactivated", Deactivated: true}, nil
	}

	msg := fmt.Sprintf("Discount %d deleted", discountID)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionDiscountDeleted, msg, true, nil, metadata)
	return &dto.DeleteDiscountResponse{Message: "Discount deleted successfully"}, nil
}

// SaveTemplate creates a template, or replaces an existing one's name, type and allocations.
// Allocations must target existing leaf buckets and sum to 1 within tolerance.
func (f *CatalogFlowImpl) SaveTemplate(ctx context.Context, req *dto.SaveTemplateRequest, metadata *ClientMetadata) (*dto.TemplateResponse, error) {
	var saved *models.DistributionTemplate
	created := req.ID == 0
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		var template *models.DistributionTemplate
		if !created {
			var err error
			template, err = f.templateRepo.ByID(txCtx, req.ID)
			if err != nil {
				return err
			}
			if template == nil {
				return ErrTemplateNotFound
			}
		}

		name := strings.TrimSpace(req.Name)
		byName, err := f.templateRepo.ByName(txCtx, name)
		if err != nil {
			return err
		}
		if byName != nil && (created || byName.ID != template.ID) {
			return ErrNameAlreadyExists
		}

		var applicableTo *models.CourseType
		if req.ApplicableTo != nil {
			courseType := models.CourseType(*req.ApplicableTo)
			if !courseType.IsValid() {
				return ErrInvalidCourseType
			}
			other, err := f.templateRepo.ByApplicableTo(txCtx, courseType)
			if err != nil {
				return err
			}
			if other != nil && (created || other.ID != template.ID) {
				return ErrTemplateTypeTaken
			}
			applicableTo = &courseType
		}

		allocations, err := f.buildAllocations(txCtx, req.Allocations)
		if err != nil {
			return err
		}

		now := utils.UTCNow()
		if created {
			template = &models.DistributionTemplate{CreatedAt: now}
		}
		template.Name = name
		template.ApplicableTo = applicableTo
		template.Allocations = nil
		template.UpdatedAt = now

		if created {
			err = f.templateRepo.Save(txCtx, template)
		} else {
			err = f.templateRepo.Update(txCtx, template)
		}
		if err != nil {
			return err
		}

		if err := f.templateRepo.ReplaceAllocations(txCtx, template.ID, allocations); err != nil {
			return err
		}

		saved, err = f.templateRepo.ByIDWithAllocations(txCtx, template.ID)
		return err
	})
	if err != nil {
		errMsg := fmt.Sprintf("Save template %q failed: %s", req.Name, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionCatalogFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("SAVE_TEMPLATE_FAILED", "Failed to save distribution template", err)
	}

	action, message := models.AuditActionTemplateUpdated, "Template updated successfully"
	if created {
		action, message = models.AuditActionTemplateCreated, "Template created successfully"
	}
	msg := fmt.Sprintf("Template %d (%s) saved with %d allocations", saved.ID, saved.Name, len(saved.Allocations))
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), action, msg, true, nil, metadata)

	return &dto.TemplateResponse{
		Message:  message,
		Template: toTemplateItem(*saved),
	}, nil
}

// ListTemplates lists templates by name with their allocations
func (f *CatalogFlowImpl) ListTemplates(ctx context.Context) (*dto.ListTemplatesResponse, error) {
	templates, err := f.templateRepo.ListWithAllocations(ctx)
	if err != nil {
		return nil, NewBusinessError("LIST_TEMPLATES_FAILED", "Failed to list distribution templates", err)
	}

	items := make([]dto.TemplateItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, toTemplateItem(*t))
	}
	return &dto.ListTemplatesResponse{
		Message: "Distribution templates retrieved successfully",
		Items:   items,
	}, nil
}

func (f *CatalogFlowImpl) ensureTemplateExists(ctx context.Context, templateID uint) error {
	template, err := f.templateRepo.ByID(ctx, templateID)
	if err != nil {
		return err
	}
	if template == nil {
		return ErrTemplateNotFound
	}
	return nil
}

// buildAllocations parses and checks the requested allocations in request order
func (f *CatalogFlowImpl) buildAllocations(ctx context.Context, inputs []dto.TemplateAllocationInput) ([]*models.DistributionAllocation, error) {
	values := make([]models.DistributionAllocation, 0, len(inputs))
	ids := make([]uint, 0, len(inputs))
	for i, in := range inputs {
		percentage, err := parseDecimal(in.Percentage)
		if err != nil {
			return nil, err
		}
		values = append(values, models.DistributionAllocation{
			BucketID:   in.BucketID,
			Percentage: percentage,
			Position:   i,
		})
		ids = append(ids, in.BucketID)
	}

	if err := finance.ValidateAllocations(values); err != nil {
		return nil, err
	}

	buckets, err := f.bucketRepo.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(buckets) != len(ids) {
		return nil, ErrBucketNotFound
	}

	parents, err := f.bucketRepo.HasChildren(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if parents[id] {
			return nil, fmt.Errorf("bucket %d: %w", id, ErrBucketNotLeaf)
		}
	}

	allocations := make([]*models.DistributionAllocation, 0, len(values))
	for i := range values {
		allocations = append(allocations, &values[i])
	}
	return allocations, nil
}

func toCourseItem(c models.Course) dto.CourseItem {
	return dto.CourseItem{
		ID:                     c.ID,
		Name:                   c.Name,
		Type:                   string(c.Type),
		Stage:                  c.Stage,
		BasePrice:              c.BasePrice,
		PlatformFeeRate:        c.PlatformFeeRate,
		DistributionTemplateID: c.DistributionTemplateID,
		CreatedAt:              c.CreatedAt,
	}
}

func toDiscountItem(d models.Discount) dto.DiscountItem {
	return dto.DiscountItem{
		ID:        d.ID,
		Name:      d.Name,
		Type:      string(d.Type),
		Amount:    d.Amount,
		IsActive:  utils.IsTrue(d.IsActive),
		CreatedAt: d.CreatedAt,
	}
}

func toTemplateItem(t models.DistributionTemplate) dto.TemplateItem {
	item := dto.TemplateItem{
		ID:          t.ID,
		Name:        t.Name,
		Allocations: make([]dto.TemplateAllocationItem, 0, len(t.Allocations)),
		Total:       t.AllocationSum(),
	}
	if t.ApplicableTo != nil {
		applicable := string(*t.ApplicableTo)
		item.ApplicableTo = &applicable
	}
	for _, a := range t.Allocations {
		alloc := dto.TemplateAllocationItem{
			BucketID:   a.BucketID,
			Percentage: a.Percentage,
		}
		if a.Bucket != nil {
			alloc.BucketKey = a.Bucket.Key
			alloc.BucketLabel = a.Bucket.Label
		}
		item.Allocations = append(item.Allocations, alloc)
	}
	return item
}
