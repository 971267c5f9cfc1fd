package sse

// Event names pushed to connected clients. Order and delivery events go to
// every client; inventory events additionally target the location topic.
const (
	EventOrderCreated    = "order-created"
	EventOrderUpdated    = "order-updated"
	EventOrderFulfilled  = "order-fulfilled"
	EventOrderCancelled  = "order-cancelled"
	EventInventoryUpdate = "inventory-update"
	EventLowStockAlert   = "low-stock-alert"
	EventDeliveryUpdate  = "delivery-update"
)
