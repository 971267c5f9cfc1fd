package entity

import "time"

// Order types
const (
	OrderTypePurchase = "PURCHASE"
	OrderTypeSales    = "SALES"
	OrderTypeTransfer = "TRANSFER"
	OrderTypeReturn   = "RETURN"
)

// Order statuses
const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusReturned   = "RETURNED"
)

// Order priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// ValidOrderTransitions lists the forward edges of the order state machine.
// SHIPPED is only reachable through fulfillment and CANCELLED only through
// cancellation, so neither appears as a target here; DELIVERED is driven by
// delivery completion, not by a direct status update.
var ValidOrderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusConfirmed},
	OrderStatusConfirmed:  {OrderStatusProcessing},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {OrderStatusReturned},
	OrderStatusCancelled:  {},
	OrderStatusReturned:   {},
}

// OrderStatusTerminal reports whether no further transition is permitted.
func OrderStatusTerminal(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// ValidOrderTypes guards the order_type value at the boundary.
var ValidOrderTypes = map[string]bool{
	OrderTypePurchase: true,
	OrderTypeSales:    true,
	OrderTypeTransfer: true,
	OrderTypeReturn:   true,
}

// ValidPriorities guards the priority value at the boundary.
var ValidPriorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// Order is a purchase, sales, transfer or return order against one location.
// TotalAmount is snapshotted at creation and never recomputed.
type Order struct {
	ID            string     `json:"id" gorm:"primaryKey;size:36"`
	OrderNumber   string     `json:"order_number" gorm:"size:32;not null;uniqueIndex"`
	OrderType     string     `json:"order_type" gorm:"size:20;not null"`
	Status        string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	Priority      string     `json:"priority" gorm:"size:20;not null;default:MEDIUM"`
	TotalAmount   float64    `json:"total_amount" gorm:"type:decimal(14,2);not null;default:0"`
	LocationID    string     `json:"location_id" gorm:"size:36;not null;index"`
	CustomerID    *string    `json:"customer_id" gorm:"size:36;index"`
	SupplierID    *string    `json:"supplier_id" gorm:"size:36;index"`
	ExpectedDate  *time.Time `json:"expected_date"`
	FulfilledDate *time.Time `json:"fulfilled_date"`
	Notes         string     `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Location *Location   `json:"location,omitempty" gorm:"foreignKey:LocationID"`
	Customer *User       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Supplier *Supplier   `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line of an order. UnitPrice is a snapshot taken at order
// time, not the live product price. Items are created atomically with their
// order and never mutated independently.
type OrderItem struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	OrderID   string    `json:"order_id" gorm:"size:36;not null;index"`
	ProductID string    `json:"product_id" gorm:"size:36;not null;index"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	UnitPrice float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Total     float64   `json:"total" gorm:"type:decimal(14,2);not null"`
	CreatedAt time.Time `json:"created_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
