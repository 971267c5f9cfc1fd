package entity

import "time"

// Delivery statuses
const (
	DeliveryStatusScheduled = "SCHEDULED"
	DeliveryStatusInTransit = "IN_TRANSIT"
	DeliveryStatusDelivered = "DELIVERED"
	DeliveryStatusFailed    = "FAILED"
)

// ValidDeliveryTransitions lists the legal delivery status edges.
var ValidDeliveryTransitions = map[string][]string{
	DeliveryStatusScheduled: {DeliveryStatusInTransit, DeliveryStatusFailed},
	DeliveryStatusInTransit: {DeliveryStatusDelivered, DeliveryStatusFailed},
	DeliveryStatusDelivered: {},
	DeliveryStatusFailed:    {DeliveryStatusScheduled},
}

// Delivery tracks physical transit of a shipped order. It is created after
// fulfillment and is not part of the reservation invariant; completing a
// delivery is what moves the owning order to DELIVERED.
type Delivery struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	OrderID         string     `json:"order_id" gorm:"size:36;not null;index"`
	DriverID        *string    `json:"driver_id" gorm:"size:36;index"`
	FromLocationID  string     `json:"from_location_id" gorm:"size:36;not null;index"`
	DeliveryAddress string     `json:"delivery_address" gorm:"size:256;not null"`
	Status          string     `json:"status" gorm:"size:20;not null;default:SCHEDULED"`
	ScheduledDate   *time.Time `json:"scheduled_date"`
	DeliveredDate   *time.Time `json:"delivered_date"`
	Cost            float64    `json:"cost" gorm:"type:decimal(12,2);default:0"`
	ActualDuration  int        `json:"actual_duration" gorm:"default:0"` // minutes
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Order        *Order    `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	Driver       *User     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	FromLocation *Location `json:"from_location,omitempty" gorm:"foreignKey:FromLocationID"`
}

func (Delivery) TableName() string {
	return "deliveries"
}
