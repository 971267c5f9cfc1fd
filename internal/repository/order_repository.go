package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/supplychain/internal/entity"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("Location").
		Preload("Customer").
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type OrderListParams struct {
	Status     string
	OrderType  string
	LocationID string
	CustomerID string
	SupplierID string
	Priority   string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Size       int
}

func (r *OrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.OrderType != "" {
		query = query.Where("order_type = ?", params.OrderType)
	}
	if params.LocationID != "" {
		query = query.Where("location_id = ?", params.LocationID)
	}
	if params.CustomerID != "" {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.SupplierID != "" {
		query = query.Where("supplier_id = ?", params.SupplierID)
	}
	if params.Priority != "" {
		query = query.Where("priority = ?", params.Priority)
	}
	if params.StartDate != nil {
		query = query.Where("created_at >= ?", *params.StartDate)
	}
	if params.EndDate != nil {
		query = query.Where("created_at <= ?", *params.EndDate)
	}

	var total int64
	query.Count(&total)

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var orders []entity.Order
	err := query.
		Preload("Location").
		Preload("Customer").
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&orders).Error
	return orders, total, err
}

// DB exposes the underlying handle for transaction scoping.
func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}
