package entity

import "time"

// Location types
const (
	LocationTypeWarehouse = "WAREHOUSE"
	LocationTypeStore     = "STORE"
)

// Location is a warehouse or store that holds inventory and owns orders.
type Location struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Type      string    `json:"type" gorm:"size:20;not null;default:WAREHOUSE"`
	Address   string    `json:"address" gorm:"size:256"`
	City      string    `json:"city" gorm:"size:64"`
	State     string    `json:"state" gorm:"size:64"`
	ZipCode   string    `json:"zip_code" gorm:"size:16"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Location) TableName() string {
	return "locations"
}
