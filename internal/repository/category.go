package repository

import (
	"context"

	"decider/internal/cache"
	"decider/internal/models"
	"decider/internal/observability"

	"gorm.io/gorm"
)

// CategoryRepository reads the category catalogue.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, category *models.Category) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// List returns every category ordered by id, served from Redis when cached.
func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := cache.Aside(ctx, cache.CategoriesKey, &categories, cache.CategoriesTTL, func() error {
		defer observability.TrackQuery("list", "categories")()
		return r.db.WithContext(ctx).Order("id").Find(&categories).Error
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return err
	}
	cache.Invalidate(ctx, cache.CategoriesKey)
	return nil
}
