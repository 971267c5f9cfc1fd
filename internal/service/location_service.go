package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationService struct {
	repo *repository.LocationRepository
	db   *gorm.DB
}

func NewLocationService(repo *repository.LocationRepository, db *gorm.DB) *LocationService {
	return &LocationService{repo: repo, db: db}
}

type CreateLocationRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

func (s *LocationService) Create(ctx context.Context, req CreateLocationRequest) (*entity.Location, error) {
	locType := req.Type
	if locType == "" {
		locType = entity.LocationTypeWarehouse
	}
	if locType != entity.LocationTypeWarehouse && locType != entity.LocationTypeStore {
		return nil, &ValidationError{Field: "type", Reason: "unknown location type " + req.Type}
	}

	location := &entity.Location{
		ID:      uuid.New().String(),
		Name:    req.Name,
		Type:    locType,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
	}
	if err := s.repo.Create(ctx, location); err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return location, nil
}

func (s *LocationService) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return location, nil
}

func (s *LocationService) List(ctx context.Context, params repository.LocationListParams) ([]entity.Location, int64, error) {
	return s.repo.List(ctx, params)
}

type UpdateLocationRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zip_code"`
}

func (s *LocationService) Update(ctx context.Context, id string, req UpdateLocationRequest) (*entity.Location, error) {
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.Address != nil {
		location.Address = *req.Address
	}
	if req.City != nil {
		location.City = *req.City
	}
	if req.State != nil {
		location.State = *req.State
	}
	if req.ZipCode != nil {
		location.ZipCode = *req.ZipCode
	}
	if err := s.repo.Update(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

// LocationInventorySummary is the stock footprint of one location.
type LocationInventorySummary struct {
	LocationID    string  `json:"location_id"`
	ProductCount  int64   `json:"product_count"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalReserved int64   `json:"total_reserved"`
	LowStockCount int64   `json:"low_stock_count"`
	StockValue    float64 `json:"stock_value"`
}

// InventorySummary aggregates the location's stock in one query. Stock value
// uses current product prices, not order-time snapshots.
func (s *LocationService) InventorySummary(ctx context.Context, id string) (*LocationInventorySummary, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err)
	}

	summary := &LocationInventorySummary{LocationID: id}
	row := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS product_count,
			COALESCE(SUM(i.quantity), 0) AS total_quantity,
			COALESCE(SUM(i.reserved_qty), 0) AS total_reserved,
			COUNT(*) FILTER (WHERE i.quantity <= i.reorder_point) AS low_stock_count,
			COALESCE(SUM(i.quantity * p.unit_price), 0) AS stock_value
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		WHERE i.location_id = ?`, id).Row()
	if err := row.Scan(&summary.ProductCount, &summary.TotalQuantity, &summary.TotalReserved,
		&summary.LowStockCount, &summary.StockValue); err != nil {
		return nil, fmt.Errorf("aggregate location inventory: %w", err)
	}
	return summary, nil
}
