package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"github.com/amirphl/academy-ledger/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SellerLevelRuleRepositoryImpl implements SellerLevelRuleRepository interface
type SellerLevelRuleRepositoryImpl struct {
	*BaseRepository[models.SellerLevelRule, models.SellerLevelRuleFilter]
}

// NewSellerLevelRuleRepository creates a new level rule repository
func NewSellerLevelRuleRepository(db *gorm.DB) SellerLevelRuleRepository {
	return &SellerLevelRuleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SellerLevelRule, models.SellerLevelRuleFilter](db),
	}
}

// ListOrdered returns every rule by level ascending
func (r *SellerLevelRuleRepositoryImpl) ListOrdered(ctx context.Context) ([]models.SellerLevelRule, error) {
	db := r.getDB(ctx)

	var rules []models.SellerLevelRule
	if err := db.Order("level ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list level rules: %w", err)
	}
	return rules, nil
}

// ReplaceAll upserts rules by level and removes levels missing from the new set
func (r *SellerLevelRuleRepositoryImpl) ReplaceAll(ctx context.Context, rules []*models.SellerLevelRule) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finishWrite(db, shouldCommit, &err)

	levels := make([]int, 0, len(rules))
	now := utils.UTCNow()
	for _, rule := range rules {
		levels = append(levels, rule.Level)
		rule.UpdatedAt = now
	}

	stale := db.Model(&models.SellerLevelRule{})
	if len(levels) > 0 {
		stale = stale.Where("level NOT IN ?", levels)
	} else {
		stale = stale.Where("1 = 1")
	}
	if err = stale.Delete(&models.SellerLevelRule{}).Error; err != nil {
		return fmt.Errorf("failed to remove stale level rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_sales", "max_sales", "commission_rate", "updated_at"}),
	}).Create(rules).Error
	if err != nil {
		return fmt.Errorf("failed to upsert level rules: %w", err)
	}
	return nil
}

func applySellerLevelRuleFilter(query *gorm.DB, filter models.SellerLevelRuleFilter) *gorm.DB {
	if filter.Level != nil {
		query = query.Where("level = ?", *filter.Level)
	}
	return query
}

// ByFilter retrieves rules based on filter criteria
func (r *SellerLevelRuleRepositoryImpl) ByFilter(ctx context.Context, filter models.SellerLevelRuleFilter, orderBy string, limit, offset int) ([]*models.SellerLevelRule, error) {
	db := r.getDB(ctx)
	query := applySellerLevelRuleFilter(db.Model(&models.SellerLevelRule{}), filter)
	query = paginate(query, orderBy, "level ASC", limit, offset)

	var rules []*models.SellerLevelRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to find level rules by filter: %w", err)
	}
	return rules, nil
}

// Count returns the number of rules matching the filter
func (r *SellerLevelRuleRepositoryImpl) Count(ctx context.Context, filter models.SellerLevelRuleFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applySellerLevelRuleFilter(db.Model(&models.SellerLevelRule{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count level rules: %w", err)
	}
	return count, nil
}

// Exists checks if a rule matching the filter exists
func (r *SellerLevelRuleRepositoryImpl) Exists(ctx context.Context, filter models.SellerLevelRuleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SellerLevelHistoryRepositoryImpl implements SellerLevelHistoryRepository interface
type SellerLevelHistoryRepositoryImpl struct {
	*BaseRepository[models.SellerLevelHistory, models.SellerLevelHistoryFilter]
}

// NewSellerLevelHistoryRepository creates a new level history repository
func NewSellerLevelHistoryRepository(db *gorm.DB) SellerLevelHistoryRepository {
	return &SellerLevelHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SellerLevelHistory, models.SellerLevelHistoryFilter](db),
	}
}

func applySellerLevelHistoryFilter(query *gorm.DB, filter models.SellerLevelHistoryFilter) *gorm.DB {
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.EffectiveMonth != nil {
		query = query.Where("effective_month = ?", *filter.EffectiveMonth)
	}
	return query
}

// ByFilter retrieves history rows, newest first by default
func (r *SellerLevelHistoryRepositoryImpl) ByFilter(ctx context.Context, filter models.SellerLevelHistoryFilter, orderBy string, limit, offset int) ([]*models.SellerLevelHistory, error) {
	db := r.getDB(ctx)
	query := applySellerLevelHistoryFilter(db.Model(&models.SellerLevelHistory{}), filter)
	query = paginate(query, orderBy, "changed_at DESC, id DESC", limit, offset)

	var rows []*models.SellerLevelHistory
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find level history by filter: %w", err)
	}
	return rows, nil
}

// Count returns the number of history rows matching the filter
func (r *SellerLevelHistoryRepositoryImpl) Count(ctx context.Context, filter models.SellerLevelHistoryFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applySellerLevelHistoryFilter(db.Model(&models.SellerLevelHistory{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count level history: %w", err)
	}
	return count, nil
}

// Exists checks if a history row matching the filter exists
func (r *SellerLevelHistoryRepositoryImpl) Exists(ctx context.Context, filter models.SellerLevelHistoryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
