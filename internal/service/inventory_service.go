package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/supplychain/internal/config"
	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// InventoryService manages stock records and manual adjustments. Order-driven
// stock movements live in OrderService; everything here is the direct
// warehouse-facing surface.
type InventoryService struct {
	repo         *repository.InventoryRepository
	productRepo  *repository.ProductRepository
	locationRepo *repository.LocationRepository
	db           *gorm.DB
	notifier     Notifier
	cfg          *config.Config
}

func NewInventoryService(repo *repository.InventoryRepository, productRepo *repository.ProductRepository,
	locationRepo *repository.LocationRepository, db *gorm.DB, notifier Notifier, cfg *config.Config) *InventoryService {
	return &InventoryService{
		repo:         repo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		db:           db,
		notifier:     notifier,
		cfg:          cfg,
	}
}

type CreateInventoryRequest struct {
	ProductID    string `json:"product_id" binding:"required"`
	LocationID   string `json:"location_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"gte=0"`
	ReorderPoint int    `json:"reorder_point" binding:"gte=0"`
}

func (s *InventoryService) Create(ctx context.Context, req CreateInventoryRequest) (*entity.Inventory, error) {
	if _, err := s.productRepo.FindByID(ctx, req.ProductID); err != nil {
		return nil, &ValidationError{Field: "product_id", Reason: "product does not exist"}
	}
	if _, err := s.locationRepo.FindByID(ctx, req.LocationID); err != nil {
		return nil, &ValidationError{Field: "location_id", Reason: "location does not exist"}
	}
	if existing, err := s.repo.FindByProductAndLocation(ctx, req.ProductID, req.LocationID); err == nil && existing != nil {
		return nil, &ValidationError{Field: "product_id", Reason: "inventory record already exists for this product and location"}
	}

	reorderPoint := req.ReorderPoint
	if reorderPoint == 0 {
		reorderPoint = s.cfg.Inventory.DefaultReorderPoint
	}

	inv := &entity.Inventory{
		ID:           uuid.New().String(),
		ProductID:    req.ProductID,
		LocationID:   req.LocationID,
		Quantity:     req.Quantity,
		ReorderPoint: reorderPoint,
		LastUpdated:  time.Now(),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create inventory: %w", err)
	}
	return s.GetByID(ctx, inv.ID)
}

func (s *InventoryService) GetByID(ctx context.Context, id string) (*entity.Inventory, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return inv, nil
}

func (s *InventoryService) List(ctx context.Context, params repository.InventoryListParams) ([]entity.Inventory, int64, error) {
	return s.repo.List(ctx, params)
}

type UpdateInventoryRequest struct {
	ReorderPoint *int `json:"reorder_point" binding:"omitempty,gte=0"`
}

func (s *InventoryService) Update(ctx context.Context, id string, req UpdateInventoryRequest) (*entity.Inventory, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if req.ReorderPoint != nil {
		inv.ReorderPoint = *req.ReorderPoint
	}
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

type AdjustInventoryRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// Adjust applies a manual correction under a row lock. The resulting quantity
// may not go negative and may not drop below the reserved portion, which
// still backs open sales orders.
func (s *InventoryService) Adjust(ctx context.Context, id string, req AdjustInventoryRequest) (*entity.Inventory, error) {
	var lowStock bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.LockByID(tx, id)
		if err != nil {
			return notFoundOr(err)
		}

		newQty := inv.Quantity + req.Delta
		if newQty < 0 {
			return &InsufficientStockError{ProductID: inv.ProductID, Requested: -req.Delta, Available: inv.Quantity}
		}
		if newQty < inv.ReservedQty {
			return &InsufficientStockError{ProductID: inv.ProductID, Requested: -req.Delta, Available: inv.Quantity - inv.ReservedQty}
		}

		inv.Quantity = newQty
		inv.LastUpdated = time.Now()
		lowStock = inv.Quantity <= inv.ReorderPoint || inv.Quantity <= s.cfg.Inventory.LowStockThreshold
		return tx.Save(inv).Error
	})
	if err != nil {
		return nil, err
	}

	adjusted, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		topic := sse.LocationTopic(adjusted.LocationID)
		s.notifier.PublishTopic(topic, sse.NewEvent(sse.EventInventoryUpdate, adjusted))
		if lowStock {
			s.notifier.PublishTopic(topic, sse.NewEvent(sse.EventLowStockAlert, adjusted))
		}
	}
	return adjusted, nil
}

// ListLowStock returns rows at or below their reorder point, optionally
// scoped to one location. The configured threshold acts as a floor for rows
// whose reorder point sits below it.
func (s *InventoryService) ListLowStock(ctx context.Context, locationID string) ([]entity.Inventory, error) {
	return s.repo.ListLowStock(ctx, locationID, s.cfg.Inventory.LowStockThreshold)
}

func (s *InventoryService) Delete(ctx context.Context, id string) error {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err)
	}
	if inv.ReservedQty > 0 {
		return &ValidationError{Field: "id", Reason: "inventory still backs open sales reservations"}
	}
	return s.repo.Delete(ctx, id)
}

// ExportXLSX renders the filtered stock list as a spreadsheet for warehouse
// audits.
func (s *InventoryService) ExportXLSX(ctx context.Context, params repository.InventoryListParams) (*excelize.File, error) {
	params.Page = 1
	params.Size = 10000
	items, _, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Inventory"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"SKU", "Product", "Location", "Quantity", "Reserved", "Available", "Reorder Point", "Last Updated"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, inv := range items {
		sku, name, loc := "", "", ""
		if inv.Product != nil {
			sku = inv.Product.SKU
			name = inv.Product.Name
		}
		if inv.Location != nil {
			loc = inv.Location.Name
		}
		values := []interface{}{
			sku, name, loc,
			inv.Quantity, inv.ReservedQty, inv.Available(), inv.ReorderPoint,
			inv.LastUpdated.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}
