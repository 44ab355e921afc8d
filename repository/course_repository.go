package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/academy-ledger/models"
	"gorm.io/gorm"
)

// CourseRepositoryImpl implements CourseRepository interface
type CourseRepositoryImpl struct {
	*BaseRepository[models.Course, models.CourseFilter]
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &CourseRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Course, models.CourseFilter](db),
	}
}

func orderedAllocations(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

// ByName retrieves a course by its unique name
func (r *CourseRepositoryImpl) ByName(ctx context.Context, name string) (*models.Course, error) {
	db := r.getDB(ctx)

	var course models.Course
	if err := db.Where("name = ?", name).Last(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find course by name: %w", err)
	}
	return &course, nil
}

// ByIDWithTemplate loads a course with its own template and the template's allocations
func (r *CourseRepositoryImpl) ByIDWithTemplate(ctx context.Context, id uint) (*models.Course, error) {
	db := r.getDB(ctx)

	var course models.Course
	err := db.Preload("DistributionTemplate").
		Preload("DistributionTemplate.Allocations", orderedAllocations).
		Last(&course, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find course %d: %w", id, err)
	}
	return &course, nil
}

func applyCourseFilter(query *gorm.DB, filter models.CourseFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.DistributionTemplateID != nil {
		query = query.Where("distribution_template_id = ?", *filter.DistributionTemplateID)
	}
	return query
}

// ByFilter retrieves courses based on filter criteria
func (r *CourseRepositoryImpl) ByFilter(ctx context.Context, filter models.CourseFilter, orderBy string, limit, offset int) ([]*models.Course, error) {
	db := r.getDB(ctx)
	query := applyCourseFilter(db.Model(&models.Course{}), filter)
	query = paginate(query, orderBy, "name ASC", limit, offset)

	var courses []*models.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to find courses by filter: %w", err)
	}
	return courses, nil
}

// Count returns the number of courses matching the filter
func (r *CourseRepositoryImpl) Count(ctx context.Context, filter models.CourseFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := applyCourseFilter(db.Model(&models.Course{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// Exists checks if a course matching the filter exists
func (r *CourseRepositoryImpl) Exists(ctx context.Context, filter models.CourseFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
