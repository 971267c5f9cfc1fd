package repository

import (
	"context"

	"github.com/bitfantasy/supplychain/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Create(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := r.db.WithContext(ctx).Preload("Product").Preload("Location").
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindByProductAndLocation looks up the single inventory row for a
// (product, location) pair.
func (r *InventoryRepository) FindByProductAndLocation(ctx context.Context, productID, locationID string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// LockByID re-reads an inventory row under FOR UPDATE. Must be called with a
// transaction handle; the lock is held until that transaction ends.
func (r *InventoryRepository) LockByID(tx *gorm.DB, id string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// LockByProductAndLocation is LockByID keyed by the (product, location) pair.
func (r *InventoryRepository) LockByProductAndLocation(tx *gorm.DB, productID, locationID string) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND location_id = ?", productID, locationID).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InventoryRepository) Update(ctx context.Context, inv *entity.Inventory) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Inventory{}, "id = ?", id).Error
}

type InventoryListParams struct {
	LocationID string
	ProductID  string
	LowStock   bool
	Keyword    string
	Page       int
	Size       int
}

func (r *InventoryRepository) List(ctx context.Context, params InventoryListParams) ([]entity.Inventory, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Inventory{})
	if params.LocationID != "" {
		query = query.Where("location_id = ?", params.LocationID)
	}
	if params.ProductID != "" {
		query = query.Where("product_id = ?", params.ProductID)
	}
	if params.LowStock {
		query = query.Where("quantity <= reorder_point")
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Joins("JOIN products ON products.id = inventory.product_id").
			Where("products.name ILIKE ? OR products.sku ILIKE ?", kw, kw)
	}

	var total int64
	query.Count(&total)

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}

	var items []entity.Inventory
	err := query.Preload("Product").Preload("Location").
		Order("last_updated DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&items).Error
	return items, total, err
}

// ListLowStock returns every row at or below its reorder point or the global
// threshold floor, most depleted first.
func (r *InventoryRepository) ListLowStock(ctx context.Context, locationID string, threshold int) ([]entity.Inventory, error) {
	query := r.db.WithContext(ctx).
		Where("quantity <= reorder_point OR quantity <= ?", threshold)
	if locationID != "" {
		query = query.Where("location_id = ?", locationID)
	}
	var items []entity.Inventory
	err := query.Preload("Product").Preload("Product.Supplier").Preload("Location").
		Order("quantity ASC").Order("last_updated DESC").
		Find(&items).Error
	return items, err
}

// DB exposes the underlying handle for transaction scoping.
func (r *InventoryRepository) DB() *gorm.DB {
	return r.db
}
