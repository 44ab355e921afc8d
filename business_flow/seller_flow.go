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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// SellerFlow manages seller accounts, their tiers and the tier table
type SellerFlow interface {
	CreateSeller(ctx context.Context, req *dto.CreateSellerRequest, metadata *ClientMetadata) (*dto.SellerResponse, error)
	ListSellers(ctx context.Context) (*dto.ListSellersResponse, error)
	GetSeller(ctx context.Context, sellerID uint, metadata *ClientMetadata) (*dto.SellerResponse, error)
	GetOwnSeller(ctx context.Context, metadata *ClientMetadata) (*dto.SellerResponse, error)
	GetLevelHistory(ctx context.Context, sellerID uint, metadata *ClientMetadata) (*dto.LevelHistoryResponse, error)
	DeleteSeller(ctx context.Context, sellerID uint, metadata *ClientMetadata) (*dto.MessageResponse, error)

	GetLevelRules(ctx context.Context) (*dto.LevelRulesResponse, error)
	UpdateLevelRules(ctx context.Context, req *dto.UpdateLevelRulesRequest, metadata *ClientMetadata) (*dto.LevelRulesResponse, error)
}

// SellerFlowImpl implements the seller business flow
type SellerFlowImpl struct {
	userRepo    repository.UserRepository
	sellerRepo  repository.SellerProfileRepository
	ruleRepo    repository.SellerLevelRuleRepository
	historyRepo repository.SellerLevelHistoryRepository
	saleRepo    repository.SaleRepository
	auditRepo   repository.AuditLogRepository
	transactor  repository.Transactor
	bcryptCost  int
}

// NewSellerFlow creates a new seller flow instance
func NewSellerFlow(
	userRepo repository.UserRepository,
	sellerRepo repository.SellerProfileRepository,
	ruleRepo repository.SellerLevelRuleRepository,
	historyRepo repository.SellerLevelHistoryRepository,
	saleRepo repository.SaleRepository,
	auditRepo repository.AuditLogRepository,
	transactor repository.Transactor,
	bcryptCost int,
) SellerFlow {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &SellerFlowImpl{
		userRepo:    userRepo,
		sellerRepo:  sellerRepo,
		ruleRepo:    ruleRepo,
		historyRepo: historyRepo,
		saleRepo:    saleRepo,
		auditRepo:   auditRepo,
		transactor:  transactor,
		bcryptCost:  bcryptCost,
	}
}

// CreateSeller creates a SELLER user and its profile on the tier for zero sales
func (f *SellerFlowImpl) CreateSeller(ctx context.Context, req *dto.CreateSellerRequest, metadata *ClientMetadata) (*dto.SellerResponse, error) {
	var (
		user    *models.User
		profile *models.SellerProfile
		rules   []models.SellerLevelRule
	)
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		email := utils.NormalizeEmail(req.Email)
		existing, err := f.userRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), f.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		now := utils.UTCNow()
		user = &models.User{
			UUID:         uuid.New(),
			Email:        email,
			Name:         strings.TrimSpace(req.Name),
			Role:         models.UserRoleSeller,
			PasswordHash: string(hashedPassword),
			IsActive:     utils.ToPtr(true),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := f.userRepo.Save(txCtx, user); err != nil {
			return err
		}

		rules, err = f.ruleRepo.ListOrdered(txCtx)
		if err != nil {
			return err
		}
		start := finance.DetermineSellerLevel(0, rules).Rule
		level := start.Level
		if level == 0 {
			level = 1
		}

		profile = &models.SellerProfile{
			UserID:              user.ID,
			User:                user,
			Level:               level,
			SalesThisMonth:      0,
			CurrentCommission:   start.CommissionRate,
			MonthKey:            finance.MonthKey(now),
			TotalCommissionPaid: decimal.Zero,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		return f.sellerRepo.Save(txCtx, profile)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Create seller %s failed: %s", req.Email, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSellerChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("CREATE_SELLER_FAILED", "Failed to create seller", err)
	}

	msg := fmt.Sprintf("Seller %d created for user %d", profile.ID, user.ID)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSellerCreated, msg, true, nil, metadata)

	return &dto.SellerResponse{
		Message: "Seller created successfully",
		Seller:  toSellerItem(*profile, nil, rules, profile.MonthKey),
	}, nil
}

// ListSellers lists sellers with the current month's figures and tier progress
func (f *SellerFlowImpl) ListSellers(ctx context.Context) (*dto.ListSellersResponse, error) {
	monthKey := finance.MonthKey(utils.UTCNow())

	profiles, err := f.sellerRepo.ListWithUser(ctx, 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_SELLERS_FAILED", "Failed to list sellers", err)
	}
	stats, err := f.statsByMonth(ctx, monthKey)
	if err != nil {
		return nil, NewBusinessError("LIST_SELLERS_FAILED", "Failed to aggregate seller sales", err)
	}
	rules, err := f.ruleRepo.ListOrdered(ctx)
	if err != nil {
		return nil, NewBusinessError("LIST_SELLERS_FAILED", "Failed to load level rules", err)
	}

	items := make([]dto.SellerItem, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toSellerItem(*p, stats[p.ID], rules, monthKey))
	}

	return &dto.ListSellersResponse{
		Message:  "Sellers retrieved successfully",
		MonthKey: monthKey,
		Items:    items,
	}, nil
}

// GetSeller returns one seller. Sellers may only read their own profile.
func (f *SellerFlowImpl) GetSeller(ctx context.Context, sellerID uint, metadata *ClientMetadata) (*dto.SellerResponse, error) {
	profile, err := f.visibleProfile(ctx, sellerID, metadata)
	if err != nil {
		return nil, NewBusinessError("GET_SELLER_FAILED", "Failed to retrieve seller", err)
	}
	return f.sellerResponse(ctx, profile)
}

// GetOwnSeller returns the caller's seller profile with progress
func (f *SellerFlowImpl) GetOwnSeller(ctx context.Context, metadata *ClientMetadata) (*dto.SellerResponse, error) {
	if metadata == nil || metadata.UserID == nil {
		return nil, NewBusinessError("GET_SELLER_FAILED", "Failed to retrieve seller", ErrSellerProfileMissing)
	}
	profile, err := f.sellerRepo.ByUserID(ctx, *metadata.UserID)
	if err != nil {
		return nil, NewBusinessError("GET_SELLER_FAILED", "Failed to retrieve seller", err)
	}
	if profile == nil {
		return nil, NewBusinessError("GET_SELLER_FAILED", "Failed to retrieve seller", ErrSellerProfileMissing)
	}
	return f.sellerResponse(ctx, profile)
}

func (f *SellerFlowImpl) sellerResponse(ctx context.Context, profile *models.SellerProfile) (*dto.SellerResponse, error) {
	if profile.User == nil {
		user, err := f.userRepo.ByID(ctx, profile.UserID)
		if err != nil {
			return nil, NewBusinessError("GET_SELLER_FAILED", "Failed to load seller user", err)
		}
		profile.User = user
	}

	monthKey := finance.MonthKey(utils.UTCNow())
	stats, err := f.statsByMonth(ctx, monthKey)
	if err != nil {
		return nil, NewBusinessError("GET_SELLER_FAILED", "Failed to aggregate seller sales", err)
	}
	rules, err := f.ruleRepo.ListOrdered(ctx)
	if err != nil {
		return nil, NewBusinessError("GET_SELLER_FAILED", "Failed to load level rules", err)
	}

	return &dto.SellerResponse{
		Message: "Seller retrieved successfully",
		Seller:  toSellerItem(*profile, stats[profile.ID], rules, monthKey),
	}, nil
}

// GetLevelHistory lists a seller's tier changes, newest first
func (f *SellerFlowImpl) GetLevelHistory(ctx context.Context, sellerID uint, metadata *ClientMetadata) (*dto.LevelHistoryResponse, error) {
	profile, err := f.visibleProfile(ctx, sellerID, metadata)
	if err != nil {
		return nil, NewBusinessError("GET_LEVEL_HISTORY_FAILED", "Failed to retrieve level history", err)
	}

	rows, err := f.historyRepo.ByFilter(ctx, models.SellerLevelHistoryFilter{SellerID: &profile.ID}, "", 0, 0)
	if err != nil {
		return nil, NewBusinessError("GET_LEVEL_HISTORY_FAILED", "Failed to retrieve level history", err)
	}

	items := make([]dto.LevelHistoryItem, 0, len(rows))
	for _, h := range rows {
		items = append(items, dto.LevelHistoryItem{
			ID:             h.ID,
			SaleID:         h.SaleID,
			PreviousLevel:  h.PreviousLevel,
			NewLevel:       h.NewLevel,
			PreviousRate:   h.PreviousRate,
			NewRate:        h.NewRate,
			EffectiveMonth: h.EffectiveMonth,
			ChangedAt:      h.ChangedAt,
		})
	}
	return &dto.LevelHistoryResponse{
		Message: "Level history retrieved successfully",
		Items:   items,
	}, nil
}

// DeleteSeller removes the profile and its user. Recorded sales keep their figures without a seller.
func (f *SellerFlowImpl) DeleteSeller(ctx context.Context, sellerID uint, metadata *ClientMetadata) (*dto.MessageResponse, error) {
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		profile, err := f.sellerRepo.ByID(txCtx, sellerID)
		if err != nil {
			return err
		}
		if profile == nil {
			return ErrSellerNotFound
		}
		if err := f.sellerRepo.Delete(txCtx, profile.ID); err != nil {
			return err
		}
		return f.userRepo.Delete(txCtx, profile.UserID)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Delete seller %d failed: %s", sellerID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSellerChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("DELETE_SELLER_FAILED", "Failed to delete seller", err)
	}

	msg := fmt.Sprintf("Seller %d deleted", sellerID)
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSellerDeleted, msg, true, nil, metadata)

	return &dto.MessageResponse{Message: "Seller deleted successfully"}, nil
}

// GetLevelRules lists the tier table by level
func (f *SellerFlowImpl) GetLevelRules(ctx context.Context) (*dto.LevelRulesResponse, error) {
	rules, err := f.ruleRepo.ListOrdered(ctx)
	if err != nil {
		return nil, NewBusinessError("GET_LEVEL_RULES_FAILED", "Failed to load level rules", err)
	}
	return &dto.LevelRulesResponse{
		Message: "Level rules retrieved successfully",
		Items:   toLevelRuleItems(rules),
	}, nil
}

// UpdateLevelRules replaces the tier table. Profiles pick up the new tiers on their next sale.
func (f *SellerFlowImpl) UpdateLevelRules(ctx context.Context, req *dto.UpdateLevelRulesRequest, metadata *ClientMetadata) (*dto.LevelRulesResponse, error) {
	var stored []models.SellerLevelRule
	err := f.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		rules := make([]models.SellerLevelRule, 0, len(req.Rules))
		for _, in := range req.Rules {
			rate, err := parseDecimal(in.CommissionRate)
			if err != nil {
				return err
			}
			if !finance.IsRate(rate) {
				return finance.ErrInvalidRate
			}
			rules = append(rules, models.SellerLevelRule{
				Level:          in.Level,
				MinSales:       in.MinSales,
				MaxSales:       in.MaxSales,
				CommissionRate: rate,
			})
		}

		if err := finance.ValidateLevelRules(rules); err != nil {
			return err
		}

		now := utils.UTCNow()
		rows := make([]*models.SellerLevelRule, 0, len(rules))
		for i := range rules {
			rules[i].CreatedAt = now
			rows = append(rows, &rules[i])
		}
		if err := f.ruleRepo.ReplaceAll(txCtx, rows); err != nil {
			return err
		}

		var err error
		stored, err = f.ruleRepo.ListOrdered(txCtx)
		return err
	})
	if err != nil {
		errMsg := fmt.Sprintf("Update level rules failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionSellerChangeFailed, errMsg, false, &errMsg, metadata)
		return nil, NewBusinessError("UPDATE_LEVEL_RULES_FAILED", "Failed to update level rules", err)
	}

	msg := fmt.Sprintf("Level rules replaced with %d tiers", len(stored))
	_ = createAuditLog(ctx, f.auditRepo, metadata.actorID(), models.AuditActionLevelRulesUpdated, msg, true, nil, metadata)

	return &dto.LevelRulesResponse{
		Message: "Level rules updated successfully",
		Items:   toLevelRuleItems(stored),
	}, nil
}

// visibleProfile loads a profile; another seller's profile reads as missing for SELLER callers
func (f *SellerFlowImpl) visibleProfile(ctx context.Context, sellerID uint, metadata *ClientMetadata) (*models.SellerProfile, error) {
	profile, err := f.sellerRepo.ByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrSellerNotFound
	}
	if metadata.isSeller() && (metadata.UserID == nil || *metadata.UserID != profile.UserID) {
		return nil, ErrSellerNotFound
	}
	return profile, nil
}

func (f *SellerFlowImpl) statsByMonth(ctx context.Context, monthKey string) (map[uint]*models.SellerMonthStats, error) {
	rows, err := f.saleRepo.StatsBySellerForMonth(ctx, monthKey)
	if err != nil {
		return nil, err
	}
	stats := make(map[uint]*models.SellerMonthStats, len(rows))
	for _, row := range rows {
		stats[row.SellerID] = row
	}
	return stats, nil
}

// toSellerItem presents a profile as of monthKey; counters from an earlier month read as a fresh month
func toSellerItem(p models.SellerProfile, stats *models.SellerMonthStats, rules []models.SellerLevelRule, monthKey string) dto.SellerItem {
	salesThisMonth := p.SalesThisMonth
	level := p.Level
	rate := p.CurrentCommission
	if p.MonthKey != monthKey {
		salesThisMonth = 0
		if len(rules) > 0 {
			start := finance.DetermineSellerLevel(0, rules).Rule
			level, rate = start.Level, start.CommissionRate
		}
	}

	item := dto.SellerItem{
		ID:                  p.ID,
		UserID:              p.UserID,
		Level:               level,
		SalesThisMonth:      salesThisMonth,
		CurrentCommission:   rate,
		MonthKey:            monthKey,
		TotalCommissionPaid: p.TotalCommissionPaid,
		MonthRevenue:        decimal.Zero,
		MonthNetProfit:      decimal.Zero,
		MonthCommission:     decimal.Zero,
	}
	if p.User != nil {
		item.Name = p.User.Name
		item.Email = p.User.Email
	}
	if stats != nil {
		item.MonthRevenue = stats.TotalRevenue
		item.MonthNetProfit = stats.TotalNetProfit
		item.MonthCommission = stats.TotalCommission
	}

	for _, rule := range rules {
		if rule.Level == level {
			progress := finance.NextLevelProgress(salesThisMonth, rule)
			item.NextLevelTarget = progress.Target
			item.RemainingToNextLevel = progress.Remaining
			break
		}
	}
	return item
}

func toLevelRuleItems(rules []models.SellerLevelRule) []dto.LevelRuleItem {
	items := make([]dto.LevelRuleItem, 0, len(rules))
	for _, r := range rules {
		items = append(items, dto.LevelRuleItem{
			Level:          r.Level,
			MinSales:       r.MinSales,
			MaxSales:       r.MaxSales,
			CommissionRate: r.CommissionRate,
		})
	}
	return items
}
