package entity

import "time"

// Inventory tracks on-hand stock for one product at one location.
//
// Invariants enforced by the service layer inside row-locked transactions:
// quantity >= 0 and reserved_qty <= quantity at all times. ReservedQty is
// the portion of quantity earmarked for open SALES orders.
type Inventory struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	ProductID    string    `json:"product_id" gorm:"size:36;not null;uniqueIndex:idx_inventory_product_location"`
	LocationID   string    `json:"location_id" gorm:"size:36;not null;uniqueIndex:idx_inventory_product_location"`
	Quantity     int       `json:"quantity" gorm:"not null;default:0"`
	ReservedQty  int       `json:"reserved_qty" gorm:"not null;default:0"`
	ReorderPoint int       `json:"reorder_point" gorm:"not null;default:50"`
	LastUpdated  time.Time `json:"last_updated"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Product  *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Location *Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
}

func (Inventory) TableName() string {
	return "inventory"
}

// Available is the unreserved portion of on-hand stock.
func (i *Inventory) Available() int {
	return i.Quantity - i.ReservedQty
}
