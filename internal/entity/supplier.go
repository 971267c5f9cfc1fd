package entity

import "time"

// Supplier is a vendor that products are purchased from.
type Supplier struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:200;not null"`
	ContactName string    `json:"contact_name" gorm:"size:128"`
	Email       string    `json:"email" gorm:"size:128"`
	Phone       string    `json:"phone" gorm:"size:32"`
	Address     string    `json:"address" gorm:"size:256"`
	City        string    `json:"city" gorm:"size:64"`
	State       string    `json:"state" gorm:"size:64"`
	ZipCode     string    `json:"zip_code" gorm:"size:16"`
	Rating      float64   `json:"rating" gorm:"type:decimal(3,2);default:0"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "suppliers"
}
