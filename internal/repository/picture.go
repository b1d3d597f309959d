package repository

import (
	"context"

	"decider/internal/models"

	"gorm.io/gorm"
)

// PictureRepository stores uploaded picture metadata.
type PictureRepository interface {
	Create(ctx context.Context, pic *models.Picture) error
	GetByUID(ctx context.Context, uid string) (*models.Picture, error)
}

type pictureRepository struct {
	db *gorm.DB
}

// NewPictureRepository creates a new picture repository
func NewPictureRepository(db *gorm.DB) PictureRepository {
	return &pictureRepository{db: db}
}

func (r *pictureRepository) Create(ctx context.Context, pic *models.Picture) error {
	return r.db.WithContext(ctx).Create(pic).Error
}

func (r *pictureRepository) GetByUID(ctx context.Context, uid string) (*models.Picture, error) {
	var pic models.Picture
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&pic).Error; err != nil {
		return nil, err
	}
	return &pic, nil
}
