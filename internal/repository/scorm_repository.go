package repository

import (
	"context"
	"scorm_trends_backend/internal/model"

	"gorm.io/gorm"
)

type ScormRepository struct {
	DB *gorm.DB
}

func NewScormRepository(db *gorm.DB) *ScormRepository {
	return &ScormRepository{DB: db}
}

func (r *ScormRepository) FindByID(ctx context.Context, id uint) (*model.Scorm, error) {
	var s model.Scorm
	if err := r.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
