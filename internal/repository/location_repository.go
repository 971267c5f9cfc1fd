package repository

import (
	"context"

	"github.com/bitfantasy/supplychain/internal/entity"
	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Create(ctx context.Context, location *entity.Location) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *LocationRepository) FindByID(ctx context.Context, id string) (*entity.Location, error) {
	var location entity.Location
	err := r.db.WithContext(ctx).First(&location, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *LocationRepository) Update(ctx context.Context, location *entity.Location) error {
	return r.db.WithContext(ctx).Save(location).Error
}

type LocationListParams struct {
	Type    string
	Keyword string
	Page    int
	Size    int
}

func (r *LocationRepository) List(ctx context.Context, params LocationListParams) ([]entity.Location, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Location{})
	if params.Type != "" {
		query = query.Where("type = ?", params.Type)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("name ILIKE ? OR city ILIKE ?", kw, kw)
	}

	var total int64
	query.Count(&total)

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var locations []entity.Location
	err := query.Order("name ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&locations).Error
	return locations, total, err
}
