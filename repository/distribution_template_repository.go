package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"gorm.io/gorm"
)

// DistributionTemplateRepositoryImpl implements DistributionTemplateRepository interface
type DistributionTemplateRepositoryImpl struct {
	*BaseRepository[models.DistributionTemplate, models.DistributionTemplateFilter]
}

// NewDistributionTemplateRepository creates a new distribution template repository
func NewDistributionTemplateRepository(db *gorm.DB) DistributionTemplateRepository {
	return &DistributionTemplateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DistributionTemplate, models.DistributionTemplateFilter](db),
	}
}

// ByIDWithAllocations loads a template and its allocations in position order
func (r *DistributionTemplateRepositoryImpl) ByIDWithAllocations(ctx context.Context, id uint) (*models.DistributionTemplate, error) {
	db := r.getDB(ctx)

	var template models.DistributionTemplate
	err := db.Preload("Allocations", orderedAllocations).
		Preload("Allocations.Bucket").
		Last(&template, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find template %d: %w", id, err)
	}
	return &template, nil
}

// ByName retrieves a template by its unique name
func (r *DistributionTemplateRepositoryImpl) ByName(ctx context.Context, name string) (*models.DistributionTemplate, error) {
	db := r.getDB(ctx)

	var template models.DistributionTemplate
	if err := db.Where("name = ?", name).Last(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find template by name: %w", err)
	}
	return &template, nil
}

// ByApplicableTo returns the oldest template targeting a course type, with allocations
func (r *DistributionTemplateRepositoryImpl) ByApplicableTo(ctx context.Context, courseType models.CourseType) (*models.DistributionTemplate, error) {
	db := r.getDB(ctx)

	var template models.DistributionTemplate
	err := db.Preload("Allocations", orderedAllocations).
		Where("applicable_to = ?", courseType).
		Order("id ASC").
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find template for course type %s: %w", courseType, err)
	}
	return &template, nil
}

// ListWithAllocations returns every template with allocations and their buckets
func (r *DistributionTemplateRepositoryImpl) ListWithAllocations(ctx context.Context) ([]*models.DistributionTemplate, error) {
	db := r.getDB(ctx)

	var templates []*models.DistributionTemplate
	err := db.Preload("Allocations", orderedAllocations).
		Preload("Allocations.Bucket").
		Order("name ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// ReplaceAllocations swaps a template's allocation set for a new one
func (r *DistributionTemplateRepositoryImpl) ReplaceAllocations(ctx context.Context, templateID uint, allocations []*models.DistributionAllocation) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finishWrite(db, shouldCommit, &err)

	if err = db.Where("template_id = ?", templateID).Delete(&models.DistributionAllocation{}).Error; err != nil {
		return fmt.Errorf("failed to clear allocations of template %d: %w", templateID, err)
	}
	if len(allocations) == 0 {
		return nil
	}

	for i, a := range allocations {
		a.ID = 0
		a.TemplateID = templateID
		a.Position = i
	}
	if err = db.Omit("Bucket").Create(allocations).Error; err != nil {
		return fmt.Errorf("failed to save allocations of template %d: %w", templateID, err)
	}
	return nil
}

func applyDistributionTemplateFilter(query *gorm.DB, filter models.DistributionTemplateFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.ApplicableTo != nil {
		query = query.Where("applicable_to = ?", *filter.ApplicableTo)
	}
	return query
}

// ByFilter retrieves templates based on filter criteria
func (r *DistributionTemplateRepositoryImpl) ByFilter(ctx context.Context, filter models.DistributionTemplateFilter, orderBy string, limit, offset int) ([]*models.DistributionTemplate, error) {
	db := r.getDB(ctx)
	query := applyDistributionTemplateFilter(db.Model(&models.DistributionTemplate{}), filter)
	query = paginate(query, orderBy, "id ASC", limit, offset)

	var templates []*models.DistributionTemplate
	if err := query.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to find templates by filter: %w", err)
	}
	return templates, nil
}

// Count returns the number of templates matching the filter
func (r *DistributionTemplateRepositoryImpl) Count(ctx context.Context, filter models.DistributionTemplateFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applyDistributionTemplateFilter(db.Model(&models.DistributionTemplate{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}

// Exists checks if a template matching the filter exists
func (r *DistributionTemplateRepositoryImpl) Exists(ctx context.Context, filter models.DistributionTemplateFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
