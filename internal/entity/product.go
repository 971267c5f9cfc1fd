package entity

import "time"

// Product is master data consumed read-only by the fulfillment paths.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	SKU         string    `json:"sku" gorm:"size:64;not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Category    string    `json:"category" gorm:"size:64"`
	UnitPrice   float64   `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"`
	SupplierID  string    `json:"supplier_id" gorm:"size:36;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (Product) TableName() string {
	return "products"
}
