package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/academy-ledger/app/dto"
	"github.com/amirphl/academy-ledger/app/services"
	"github.com/amirphl/academy-ledger/config"
	"github.com/amirphl/academy-ledger/finance"
	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/repository"
	"github.com/amirphl/academy-ledger/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SaleFlow handles recording, removing and reading sales
type SaleFlow interface {
	RecordSale(ctx context.Context, req *dto.RecordSaleRequest, metadata *ClientMetadata) (*dto.RecordSaleResponse, error)
	DeleteSale(ctx context.Context, saleID uint, metadata *ClientMetadata) (*dto.DeleteSaleResponse, error)
	GetSale(ctx context.Context, saleID uint, metadata *ClientMetadata) (*dto.GetSaleResponse, error)
	ListSales(ctx context.Context, req *dto.ListSalesRequest, metadata *ClientMetadata) (*dto.ListSalesResponse, error)
	ExportSales(ctx context.Context, req *dto.ListSalesRequest, metadata *ClientMetadata) (string, []byte, error)
}

// SaleFlowImpl implements the sale business flow
type SaleFlowImpl struct {
	courseRepo   repository.CourseRepository
	templateRepo repository.DistributionTemplateRepository
	discountRepo repository.DiscountRepository
	sellerRepo   repository.SellerProfileRepository
	ruleRepo     repository.SellerLevelRuleRepository
	historyRepo  repository.SellerLevelHistoryRepository
	saleRepo     repository.SaleRepository
	distRepo     repository.SaleDistributionRepository
	auditRepo    repository.AuditLogRepository
	kpiFlow      KpiFlow
	transactor   repository.Transactor
	locker       services.SellerLocker
	logger       *logrus.Logger
}

// NewSaleFlow creates a new sale flow instance
func NewSaleFlow(
	courseRepo repository.CourseRepository,
	templateRepo repository.DistributionTemplateRepository,
	discountRepo repository.DiscountRepository,
	sellerRepo repository.SellerProfileRepository,
	ruleRepo repository.SellerLevelRuleRepository,
	historyRepo repository.SellerLevelHistoryRepository,
	saleRepo repository.SaleRepository,
	distRepo repository.SaleDistributionRepository,
	auditRepo repository.AuditLogRepository,
	kpiFlow KpiFlow,
	transactor repository.Transactor,
	locker services.SellerLocker,
	logger *logrus.Logger,
) SaleFlow {
	if locker == nil {
		locker = services.NoopSellerLocker{}
	}
	return &SaleFlowImpl{
		courseRepo:   courseRepo,
		templateRepo: templateRepo,
		discountRepo: discountRepo,
		sellerRepo:   sellerRepo,
		ruleRepo:     ruleRepo,
		historyRepo:  historyRepo,
		saleRepo:     saleRepo,
		distRepo:     distRepo,
		auditRepo:    auditRepo,
		kpiFlow:      kpiFlow,
		transactor:   transactor,
		locker:       locker,
		logger:       logger,
	}
}

// recordedSale carries the outcome of the record transaction
type recordedSale struct {
	sale   *models.Sale
	seller *dto.SellerLevelChange
}

// RecordSale stores a sale, its bucket distributions, the seller's new counters and the month's KPI
// snapshot in one transaction.
func (f *SaleFlowImpl) RecordSale(ctx context.Context, req *dto.RecordSaleRequest, metadata *ClientMetadata) (*dto.RecordSaleResponse, error) {
	result, err := f.recordSale(ctx, req, metadata)
	if err != nil {
		kind := ErrorKind(err)
		saleFailuresTotal.WithLabelValues(string(kind)).Inc()
		if kind == KindUnexpected {
			config.LogError(f.logger, "sale_flow", "RecordSale", "record transaction", req, err)
		}
		errMsg := fmt.Sprintf("Record sale failed for course %d: %s", req.CourseID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSaleRecordFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("RECORD_SALE_FAILED", "Failed to record sale", err)
	}

	salesRecordedTotal.Inc()
	msg := fmt.Sprintf("Sale %d recorded for course %d in %s", result.sale.ID, result.sale.CourseID, result.sale.MonthKey)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSaleRecorded, msg, true, nil, metadata)

	return &dto.RecordSaleResponse{
		Message: "Sale recorded successfully",
		Sale:    ToSaleItem(*result.sale),
		Seller:  result.seller,
	}, nil
}

func (f *SaleFlowImpl) recordSale(ctx context.Context, req *dto.RecordSaleRequest, metadata *ClientMetadata) (*recordedSale, error) {
	saleDate, err := utils.ParseDate(req.SaleDate)
	if err != nil {
		return nil, ErrInvalidSaleDate
	}
	monthKey := finance.MonthKey(saleDate)

	sellerID, err := f.resolveSeller(ctx, req.SellerID, metadata)
	if err != nil {
		return nil, err
	}

	if sellerID != nil {
		release := f.lockSeller(ctx, *sellerID)
		defer release()
	}

	var result recordedSale
	err = f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		// 1. Course
		course, err := f.courseRepo.ByIDWithTemplate(txCtx, req.CourseID)
		if err != nil {
			return err
		}
		if course == nil {
			return ErrCourseNotFound
		}

		// 2. Effective template
		template, err := f.effectiveTemplate(txCtx, course)
		if err != nil {
			return err
		}

		// 3. Seller and commission rate, resetting a stale month first
		var profile *models.SellerProfile
		var rules []models.SellerLevelRule
		commissionRate := decimal.Zero
		if sellerID != nil {
			profile, err = f.sellerRepo.ByIDForUpdate(txCtx, *sellerID)
			if err != nil {
				return err
			}
			if profile == nil {
				return ErrSellerNotFound
			}

			rules, err = f.ruleRepo.ListOrdered(txCtx)
			if err != nil {
				return err
			}

			switch {
			case monthKey > profile.MonthKey:
				base := f.determineLevel(0, rules, profile.ID)
				profile.MonthKey = monthKey
				profile.SalesThisMonth = 0
				profile.Level = base.Level
				profile.CurrentCommission = base.CommissionRate
				commissionRate = base.CommissionRate
			case monthKey < profile.MonthKey:
				// backdated: the tier comes from the seller's sales in that month
				prior, err := f.saleRepo.CountBySellerAndMonth(txCtx, profile.ID, monthKey)
				if err != nil {
					return err
				}
				commissionRate = f.determineLevel(int(prior), rules, profile.ID).CommissionRate
			default:
				commissionRate = f.determineLevel(profile.SalesThisMonth, rules, profile.ID).CommissionRate
			}
		}

		// 4. Discount
		discountAmount := decimal.Zero
		if req.DiscountID != nil {
			discount, err := f.discountRepo.ByID(txCtx, *req.DiscountID)
			if err != nil {
				return err
			}
			if discount == nil {
				return ErrDiscountNotFound
			}
			if !utils.IsTrue(discount.IsActive) {
				return ErrDiscountInactive
			}
			discountAmount, err = finance.DiscountAmount(discount.Type, discount.Amount, course.BasePrice)
			if err != nil {
				return err
			}
		}

		// 5. Financials
		input := finance.SaleInput{
			BasePrice:       course.BasePrice,
			DiscountAmount:  discountAmount,
			PlatformFeeRate: course.PlatformFeeRate,
			CommissionRate:  commissionRate,
		}
		if err := finance.ValidateSaleInput(input); err != nil {
			return err
		}
		fin := finance.CalculateSaleFinancials(input)

		// 6. Sale and distributions
		sale := &models.Sale{
			UUID:                uuid.New(),
			CourseID:            course.ID,
			SellerID:            sellerID,
			DiscountID:          req.DiscountID,
			TemplateID:          &template.ID,
			SaleDate:            saleDate,
			MonthKey:            monthKey,
			PriceBefore:         course.BasePrice,
			DiscountAmount:      discountAmount,
			PriceAfterDiscount:  fin.PriceAfterDiscount,
			PlatformFeeRate:     course.PlatformFeeRate,
			PlatformFee:         fin.PlatformFee,
			ProfitAfterPlatform: fin.ProfitAfterPlatform,
			CommissionRate:      commissionRate,
			SellerCommission:    fin.SellerCommission,
			NetProfit:           fin.NetProfit,
			Note:                req.Note,
			RecordedByUserID:    metadata.actorID(),
			CreatedAt:           utils.UTCNow(),
		}
		if err := f.saleRepo.Save(txCtx, sale); err != nil {
			return err
		}

		shares := finance.AllocateNetProfit(fin.NetProfit, template.Allocations)
		distributions := make([]*models.SaleDistribution, 0, len(shares))
		for _, share := range shares {
			distributions = append(distributions, &models.SaleDistribution{
				SaleID:     sale.ID,
				BucketID:   share.BucketID,
				Percentage: share.Percentage,
				Amount:     share.Amount,
				CreatedAt:  sale.CreatedAt,
			})
		}
		if err := f.distRepo.SaveBatch(txCtx, distributions); err != nil {
			return err
		}
		for _, d := range distributions {
			sale.Distributions = append(sale.Distributions, *d)
		}
		sale.Course = course

		// 7. Seller counters
		if profile != nil {
			change, err := f.advanceSeller(txCtx, profile, rules, sale)
			if err != nil {
				return err
			}
			result.seller = change
		}

		// 8. Month snapshot
		if _, err := f.kpiFlow.RecomputeMonth(txCtx, monthKey); err != nil {
			return err
		}

		result.sale = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// resolveSeller applies the seller role policy: sellers record sales for their own profile only
func (f *SaleFlowImpl) resolveSeller(ctx context.Context, requested *uint, metadata *ClientMetadata) (*uint, error) {
	if !metadata.isSeller() {
		return requested, nil
	}

	own, err := f.ownProfileID(ctx, metadata)
	if err != nil {
		return nil, err
	}
	if requested != nil && *requested != own {
		return nil, ErrSellerMustOwnSale
	}
	return &own, nil
}

func (f *SaleFlowImpl) ownProfileID(ctx context.Context, metadata *ClientMetadata) (uint, error) {
	if metadata.UserID == nil {
		return 0, ErrSellerProfileMissing
	}
	profile, err := f.sellerRepo.ByUserID(ctx, *metadata.UserID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, ErrSellerProfileMissing
	}
	return profile.ID, nil
}

// lockSeller takes the distributed seller lock when available; the row lock stays authoritative
func (f *SaleFlowImpl) lockSeller(ctx context.Context, sellerID uint) func() {
	release, err := f.locker.Lock(ctx, sellerID)
	if err != nil {
		sellerLockMissesTotal.Inc()
		f.logger.WithFields(logrus.Fields{
			"seller_id": sellerID,
			"error":     err.Error(),
		}).Warn("Proceeding without distributed seller lock")
	}
	if release == nil {
		return func() {}
	}
	return release
}

// effectiveTemplate picks the course's own template, else the template for its type
func (f *SaleFlowImpl) effectiveTemplate(ctx context.Context, course *models.Course) (*models.DistributionTemplate, error) {
	template := course.DistributionTemplate
	if template == nil {
		var err error
		template, err = f.templateRepo.ByApplicableTo(ctx, course.Type)
		if err != nil {
			return nil, err
		}
	}
	if template == nil || len(template.Allocations) == 0 {
		return nil, ErrNoTemplate
	}
	return template, nil
}

// determineLevel resolves the tier for a count and reports a fallback
func (f *SaleFlowImpl) determineLevel(salesCount int, rules []models.SellerLevelRule, sellerID uint) models.SellerLevelRule {
	match := finance.DetermineSellerLevel(salesCount, rules)
	if match.Fallback {
		sellerLevelFallbackTotal.Inc()
		f.logger.WithFields(logrus.Fields{
			"seller_id":   sellerID,
			"sales_count": salesCount,
			"rules":       len(rules),
			"level":       match.Rule.Level,
		}).Warn("No seller level rule matched; using lowest level")
	}
	return match.Rule
}

// advanceSeller counts the sale toward the seller's month and records a tier change
func (f *SaleFlowImpl) advanceSeller(ctx context.Context, profile *models.SellerProfile, rules []models.SellerLevelRule, sale *models.Sale) (*dto.SellerLevelChange, error) {
	previousLevel := profile.Level
	previousRate := profile.CurrentCommission

	// A backdated sale adds to the lifetime commission only; the current month's counters stay
	if sale.MonthKey != profile.MonthKey {
		profile.TotalCommissionPaid = profile.TotalCommissionPaid.Add(sale.SellerCommission)
		profile.UpdatedAt = utils.UTCNow()
		if err := f.sellerRepo.Update(ctx, profile); err != nil {
			return nil, err
		}
		return &dto.SellerLevelChange{
			SellerID:       profile.ID,
			PreviousLevel:  previousLevel,
			NewLevel:       profile.Level,
			CommissionRate: profile.CurrentCommission,
			SalesThisMonth: profile.SalesThisMonth,
		}, nil
	}

	profile.SalesThisMonth++
	rule := f.determineLevel(profile.SalesThisMonth, rules, profile.ID)
	profile.Level = rule.Level
	profile.CurrentCommission = rule.CommissionRate
	profile.TotalCommissionPaid = profile.TotalCommissionPaid.Add(sale.SellerCommission)
	profile.UpdatedAt = utils.UTCNow()

	if err := f.sellerRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	changed := previousLevel != profile.Level
	if changed {
		history := &models.SellerLevelHistory{
			SellerID:       profile.ID,
			SaleID:         &sale.ID,
			PreviousLevel:  previousLevel,
			NewLevel:       profile.Level,
			PreviousRate:   previousRate,
			NewRate:        profile.CurrentCommission,
			EffectiveMonth: sale.MonthKey,
			ChangedAt:      utils.UTCNow(),
		}
		if err := f.historyRepo.Save(ctx, history); err != nil {
			return nil, err
		}
	}

	return &dto.SellerLevelChange{
		SellerID:       profile.ID,
		PreviousLevel:  previousLevel,
		NewLevel:       profile.Level,
		CommissionRate: profile.CurrentCommission,
		SalesThisMonth: profile.SalesThisMonth,
		LevelChanged:   changed,
	}, nil
}

// DeleteSale removes a sale and its distributions, then re-derives the seller's month counters
// and the month's KPI snapshot from the remaining sales.
func (f *SaleFlowImpl) DeleteSale(ctx context.Context, saleID uint, metadata *ClientMetadata) (*dto.DeleteSaleResponse, error) {
	var deleted *models.Sale
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		sale, err := f.saleRepo.ByID(txCtx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return ErrSaleNotFound
		}

		var profile *models.SellerProfile
		if sale.SellerID != nil {
			profile, err = f.sellerRepo.ByIDForUpdate(txCtx, *sale.SellerID)
			if err != nil {
				return err
			}
		}

		if err := f.distRepo.DeleteBySale(txCtx, sale.ID); err != nil {
			return err
		}
		if err := f.saleRepo.Delete(txCtx, sale.ID); err != nil {
			return err
		}

		if profile != nil {
			if err := f.rollbackSeller(txCtx, profile, sale); err != nil {
				return err
			}
		}

		if _, err := f.kpiFlow.RecomputeMonth(txCtx, sale.MonthKey); err != nil {
			return err
		}

		deleted = sale
		return nil
	})
	if err != nil {
		errMsg := fmt.Sprintf("Delete sale %d failed: %s", saleID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSaleDeleteFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("DELETE_SALE_FAILED", "Failed to delete sale", err)
	}

	msg := fmt.Sprintf("Sale %d of %s deleted", deleted.ID, deleted.MonthKey)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSaleDeleted, msg, true, nil, metadata)

	return &dto.DeleteSaleResponse{
		Message:  "Sale deleted successfully",
		SaleID:   deleted.ID,
		MonthKey: deleted.MonthKey,
	}, nil
}

// rollbackSeller removes a deleted sale's effect on the seller. Counters are only re-derived
// when the profile still tracks the sale's month; the paid commission total always shrinks.
func (f *SaleFlowImpl) rollbackSeller(ctx context.Context, profile *models.SellerProfile, sale *models.Sale) error {
	if profile.MonthKey == sale.MonthKey {
		remaining, err := f.saleRepo.CountBySellerAndMonth(ctx, profile.ID, sale.MonthKey)
		if err != nil {
			return err
		}
		rules, err := f.ruleRepo.ListOrdered(ctx)
		if err != nil {
			return err
		}
		rule := f.determineLevel(int(remaining), rules, profile.ID)
		profile.SalesThisMonth = int(remaining)
		profile.Level = rule.Level
		profile.CurrentCommission = rule.CommissionRate
	}

	profile.TotalCommissionPaid = profile.TotalCommissionPaid.Sub(sale.SellerCommission)
	if profile.TotalCommissionPaid.IsNegative() {
		profile.TotalCommissionPaid = decimal.Zero
	}
	profile.UpdatedAt = utils.UTCNow()

	return f.sellerRepo.Update(ctx, profile)
}

// GetSale returns one sale with its distributions
func (f *SaleFlowImpl) GetSale(ctx context.Context, saleID uint, metadata *ClientMetadata) (*dto.GetSaleResponse, error) {
	sale, err := f.saleRepo.ByIDWithDetails(ctx, saleID)
	if err != nil {
		return nil, NewBusinessError("GET_SALE_FAILED", "Failed to retrieve sale", err)
	}
	if sale == nil {
		return nil, NewBusinessError("GET_SALE_FAILED", "Sale not found", ErrSaleNotFound)
	}

	if metadata.isSeller() {
		own, err := f.ownProfileID(ctx, metadata)
		if err != nil {
			return nil, NewBusinessError("GET_SALE_FAILED", "Failed to retrieve sale", err)
		}
		// other sellers' sales are reported as missing
		if sale.SellerID == nil || *sale.SellerID != own {
			return nil, NewBusinessError("GET_SALE_FAILED", "Sale not found", ErrSaleNotFound)
		}
	}

	return &dto.GetSaleResponse{
		Message: "Sale retrieved successfully",
		Sale:    ToSaleItem(*sale),
	}, nil
}

// ListSales returns one page of the sales register, newest first
func (f *SaleFlowImpl) ListSales(ctx context.Context, req *dto.ListSalesRequest, metadata *ClientMetadata) (*dto.ListSalesResponse, error) {
	filter, err := f.saleFilter(ctx, req, metadata)
	if err != nil {
		return nil, NewBusinessError("LIST_SALES_FAILED", "Failed to list sales", err)
	}

	page, pageSize, limit, offset := req.Normalize()
	sales, err := f.saleRepo.ByFilter(ctx, filter, "sale_date DESC, id DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_SALES_FAILED", "Failed to list sales", err)
	}
	total, err := f.saleRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_SALES_FAILED", "Failed to count sales", err)
	}

	items := make([]dto.SaleItem, 0, len(sales))
	for _, s := range sales {
		items = append(items, ToSaleItem(*s))
	}

	return &dto.ListSalesResponse{
		Message:  "Sales retrieved successfully",
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// ExportSales renders every sale matching the filter as a workbook
func (f *SaleFlowImpl) ExportSales(ctx context.Context, req *dto.ListSalesRequest, metadata *ClientMetadata) (string, []byte, error) {
	filter, err := f.saleFilter(ctx, req, metadata)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_SALES_FAILED", "Failed to export sales", err)
	}

	sales, err := f.saleRepo.ByFilter(ctx, filter, "sale_date ASC, id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_SALES_FAILED", "Failed to export sales", err)
	}

	header := []string{
		"id", "uuid", "sale_date", "month_key", "course", "seller", "discount", "price_before",
		"discount_amount", "price_after_discount", "platform_fee", "profit_after_platform",
		"commission_rate", "seller_commission", "net_profit", "note",
	}
	rows := make([][]string, 0, len(sales))
	for _, s := range sales {
		item := ToSaleItem(*s)
		note := ""
		if item.Note != nil {
			note = *item.Note
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			item.UUID,
			item.SaleDate.UTC().Format(time.RFC3339),
			item.MonthKey,
			item.CourseName,
			item.SellerName,
			item.DiscountName,
			item.PriceBefore.StringFixed(2),
			item.DiscountAmount.StringFixed(2),
			item.PriceAfterDiscount.StringFixed(2),
			item.PlatformFee.StringFixed(2),
			item.ProfitAfterPlatform.StringFixed(2),
			item.CommissionRate.String(),
			item.SellerCommission.StringFixed(2),
			item.NetProfit.StringFixed(2),
			note,
		})
	}

	content, err := writeWorkbook("sales", header, rows)
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := "sales.xlsx"
	if filter.MonthKey != nil {
		filename = fmt.Sprintf("sales_%s.xlsx", *filter.MonthKey)
	}
	return filename, content, nil
}

// saleFilter builds the register filter; sellers only ever see their own sales
func (f *SaleFlowImpl) saleFilter(ctx context.Context, req *dto.ListSalesRequest, metadata *ClientMetadata) (models.SaleFilter, error) {
	filter := models.SaleFilter{
		MonthKey:   req.MonthKey,
		CourseID:   req.CourseID,
		SellerID:   req.SellerID,
		DiscountID: req.DiscountID,
	}
	if req.MonthKey != nil {
		if _, err := finance.ParseMonthKey(*req.MonthKey); err != nil {
			return filter, errors.Join(ErrValidation, err)
		}
	}

	if metadata.isSeller() {
		own, err := f.ownProfileID(ctx, metadata)
		if err != nil {
			return filter, err
		}
		filter.SellerID = &own
	}
	return filter, nil
}
