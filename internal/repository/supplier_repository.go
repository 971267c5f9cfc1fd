package repository

import (
	"context"

	"github.com/bitfantasy/supplychain/internal/entity"
	"gorm.io/gorm"
)

type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) Create(ctx context.Context, supplier *entity.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *SupplierRepository) FindByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var supplier entity.Supplier
	err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *SupplierRepository) Update(ctx context.Context, supplier *entity.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

type SupplierListParams struct {
	Active  *bool
	Keyword string
	Page    int
	Size    int
}

func (r *SupplierRepository) List(ctx context.Context, params SupplierListParams) ([]entity.Supplier, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Supplier{})
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("name ILIKE ? OR contact_name ILIKE ? OR email ILIKE ?", kw, kw, kw)
	}

	var total int64
	query.Count(&total)

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var suppliers []entity.Supplier
	err := query.Order("name ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&suppliers).Error
	return suppliers, total, err
}
