package repository

import (
	"context"

	"github.com/bitfantasy/supplychain/internal/entity"
	"gorm.io/gorm"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(ctx context.Context, delivery *entity.Delivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*entity.Delivery, error) {
	var delivery entity.Delivery
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Driver").
		Preload("FromLocation").
		First(&delivery, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

type DeliveryListParams struct {
	Status     string
	DriverID   string
	OrderID    string
	LocationID string
	Page       int
	Size       int
}

func (r *DeliveryRepository) List(ctx context.Context, params DeliveryListParams) ([]entity.Delivery, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Delivery{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.DriverID != "" {
		query = query.Where("driver_id = ?", params.DriverID)
	}
	if params.OrderID != "" {
		query = query.Where("order_id = ?", params.OrderID)
	}
	if params.LocationID != "" {
		query = query.Where("from_location_id = ?", params.LocationID)
	}

	var total int64
	query.Count(&total)

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var deliveries []entity.Delivery
	err := query.
		Preload("Order").
		Preload("Driver").
		Preload("FromLocation").
		Order("scheduled_date ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&deliveries).Error
	return deliveries, total, err
}

// DB exposes the underlying handle for transaction scoping.
func (r *DeliveryRepository) DB() *gorm.DB {
	return r.db
}
