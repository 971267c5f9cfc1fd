package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/google/uuid"
)

type ProductService struct {
	repo         *repository.ProductRepository
	supplierRepo *repository.SupplierRepository
}

func NewProductService(repo *repository.ProductRepository, supplierRepo *repository.SupplierRepository) *ProductService {
	return &ProductService{repo: repo, supplierRepo: supplierRepo}
}

type CreateProductRequest struct {
	SKU         string  `json:"sku" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gt=0"`
	SupplierID  string  `json:"supplier_id"`
}

func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*entity.Product, error) {
	if req.SupplierID != "" {
		if _, err := s.supplierRepo.FindByID(ctx, req.SupplierID); err != nil {
			return nil, &ValidationError{Field: "supplier_id", Reason: "supplier does not exist"}
		}
	}

	product := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		UnitPrice:   req.UnitPrice,
		SupplierID:  req.SupplierID,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.GetByID(ctx, product.ID)
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, params repository.ProductListParams) ([]entity.Product, int64, error) {
	return s.repo.List(ctx, params)
}

type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	UnitPrice   *float64 `json:"unit_price" binding:"omitempty,gt=0"`
	SupplierID  *string  `json:"supplier_id"`
}

func (s *ProductService) Update(ctx context.Context, id string, req UpdateProductRequest) (*entity.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.UnitPrice != nil {
		product.UnitPrice = *req.UnitPrice
	}
	if req.SupplierID != nil {
		if *req.SupplierID != "" {
			if _, err := s.supplierRepo.FindByID(ctx, *req.SupplierID); err != nil {
				return nil, &ValidationError{Field: "supplier_id", Reason: "supplier does not exist"}
			}
		}
		product.SupplierID = *req.SupplierID
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err)
	}
	return s.repo.Delete(ctx, id)
}
