package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierService struct {
	repo *repository.SupplierRepository
	db   *gorm.DB
}

func NewSupplierService(repo *repository.SupplierRepository, db *gorm.DB) *SupplierService {
	return &SupplierService{repo: repo, db: db}
}

type CreateSupplierRequest struct {
	Name        string  `json:"name" binding:"required"`
	ContactName string  `json:"contact_name"`
	Email       string  `json:"email" binding:"omitempty,email"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	ZipCode     string  `json:"zip_code"`
	Rating      float64 `json:"rating" binding:"gte=0,lte=5"`
}

func (s *SupplierService) Create(ctx context.Context, req CreateSupplierRequest) (*entity.Supplier, error) {
	supplier := &entity.Supplier{
		ID:          uuid.New().String(),
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		ZipCode:     req.ZipCode,
		Rating:      req.Rating,
		Active:      true,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return supplier, nil
}

func (s *SupplierService) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return supplier, nil
}

func (s *SupplierService) List(ctx context.Context, params repository.SupplierListParams) ([]entity.Supplier, int64, error) {
	return s.repo.List(ctx, params)
}

type UpdateSupplierRequest struct {
	Name        *string  `json:"name"`
	ContactName *string  `json:"contact_name"`
	Email       *string  `json:"email" binding:"omitempty,email"`
	Phone       *string  `json:"phone"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	ZipCode     *string  `json:"zip_code"`
	Rating      *float64 `json:"rating" binding:"omitempty,gte=0,lte=5"`
	Active      *bool    `json:"active"`
}

func (s *SupplierService) Update(ctx context.Context, id string, req UpdateSupplierRequest) (*entity.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.ContactName != nil {
		supplier.ContactName = *req.ContactName
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.City != nil {
		supplier.City = *req.City
	}
	if req.State != nil {
		supplier.State = *req.State
	}
	if req.ZipCode != nil {
		supplier.ZipCode = *req.ZipCode
	}
	if req.Rating != nil {
		supplier.Rating = *req.Rating
	}
	if req.Active != nil {
		supplier.Active = *req.Active
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// Deactivate soft-disables a supplier. Existing products keep their
// reference; new purchase orders against it are a policy question for the
// frontend, not enforced here.
func (s *SupplierService) Deactivate(ctx context.Context, id string) (*entity.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	supplier.Active = false
	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// SupplierPerformance aggregates purchase order history for one supplier.
type SupplierPerformance struct {
	SupplierID      string  `json:"supplier_id"`
	TotalOrders     int64   `json:"total_orders"`
	FulfilledOrders int64   `json:"fulfilled_orders"`
	OnTimeOrders    int64   `json:"on_time_orders"`
	OnTimeRate      float64 `json:"on_time_rate"`
	TotalSpend      float64 `json:"total_spend"`
}

// Performance computes delivery reliability from fulfilled purchase orders.
// On-time means fulfilled no later than the expected date.
func (s *SupplierService) Performance(ctx context.Context, id string) (*SupplierPerformance, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err)
	}

	perf := &SupplierPerformance{SupplierID: id}
	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_orders,
			COUNT(*) FILTER (WHERE fulfilled_date IS NOT NULL) AS fulfilled_orders,
			COUNT(*) FILTER (WHERE fulfilled_date IS NOT NULL
				AND (expected_date IS NULL OR fulfilled_date <= expected_date)) AS on_time_orders,
			COALESCE(SUM(total_amount), 0) AS total_spend
		FROM orders
		WHERE supplier_id = ? AND order_type = ? AND status <> ?`,
		id, entity.OrderTypePurchase, entity.OrderStatusCancelled).Row()
	if err := row.Scan(&perf.TotalOrders, &perf.FulfilledOrders, &perf.OnTimeOrders, &perf.TotalSpend); err != nil {
		return nil, fmt.Errorf("aggregate supplier performance: %w", err)
	}

	if perf.FulfilledOrders > 0 {
		perf.OnTimeRate = float64(perf.OnTimeOrders) / float64(perf.FulfilledOrders)
	}
	return perf, nil
}
