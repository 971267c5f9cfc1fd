package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bitfantasy/supplychain/internal/config"
	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService owns the order lifecycle and the inventory reservation
// invariant: for every open SALES order, each line's quantity is held in
// reserved_qty on the matching inventory row. All stock movements happen
// inside transactions with the inventory rows locked FOR UPDATE, so
// concurrent orders against the same stock serialize instead of
// double-reserving.
type OrderService struct {
	repo         *repository.OrderRepository
	invRepo      *repository.InventoryRepository
	locationRepo *repository.LocationRepository
	db           *gorm.DB
	notifier     Notifier
	cfg          *config.Config
}

func NewOrderService(repo *repository.OrderRepository, invRepo *repository.InventoryRepository,
	locationRepo *repository.LocationRepository,
	db *gorm.DB, notifier Notifier, cfg *config.Config) *OrderService {
	return &OrderService{
		repo:         repo,
		invRepo:      invRepo,
		locationRepo: locationRepo,
		db:           db,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// generateOrderNumber keeps the human-facing ORD-XXXXXX-XXX shape. Collisions
// are possible in theory; the unique index on order_number is the backstop.
func generateOrderNumber() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return fmt.Sprintf("ORD-%s-%03d", ts[len(ts)-6:], time.Now().UnixNano()%1000)
}

// CreateOrderItemRequest is one order line. A nil UnitPrice snapshots the
// product master price; an explicit zero stays zero (free line item).
type CreateOrderItemRequest struct {
	ProductID string   `json:"product_id" binding:"required"`
	Quantity  int      `json:"quantity" binding:"required,gt=0"`
	UnitPrice *float64 `json:"unit_price" binding:"omitempty,gte=0"`
}

type CreateOrderRequest struct {
	OrderType    string                   `json:"order_type" binding:"required"`
	Priority     string                   `json:"priority"`
	LocationID   string                   `json:"location_id" binding:"required"`
	CustomerID   *string                  `json:"customer_id"`
	SupplierID   *string                  `json:"supplier_id"`
	ExpectedDate *time.Time               `json:"expected_date"`
	Notes        string                   `json:"notes"`
	Items        []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Create opens a new order. SALES orders reserve stock for every line inside
// the creating transaction: each inventory row is locked, available quantity
// (on hand minus already reserved) is checked, and reserved_qty is bumped.
// Any shortfall rolls the whole order back.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest, userID string) (*entity.Order, error) {
	if !entity.ValidOrderTypes[req.OrderType] {
		return nil, &ValidationError{Field: "order_type", Reason: "unknown order type " + req.OrderType}
	}
	priority := req.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}
	if !entity.ValidPriorities[priority] {
		return nil, &ValidationError{Field: "priority", Reason: "unknown priority " + req.Priority}
	}

	switch req.OrderType {
	case entity.OrderTypeSales:
		if req.CustomerID == nil || *req.CustomerID == "" {
			return nil, &ValidationError{Field: "customer_id", Reason: "SALES orders require a customer"}
		}
	case entity.OrderTypePurchase:
		if req.SupplierID == nil || *req.SupplierID == "" {
			return nil, &ValidationError{Field: "supplier_id", Reason: "PURCHASE orders require a supplier"}
		}
	}

	if _, err := s.locationRepo.FindByID(ctx, req.LocationID); err != nil {
		return nil, &ValidationError{Field: "location_id", Reason: "location does not exist"}
	}

	order := &entity.Order{
		ID:           uuid.New().String(),
		OrderNumber:  generateOrderNumber(),
		OrderType:    req.OrderType,
		Status:       entity.OrderStatusPending,
		Priority:     priority,
		LocationID:   req.LocationID,
		CustomerID:   req.CustomerID,
		SupplierID:   req.SupplierID,
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total float64
		var items []entity.OrderItem
		for _, line := range req.Items {
			var product entity.Product
			if err := tx.First(&product, "id = ?", line.ProductID).Error; err != nil {
				return &ValidationError{Field: "items", Reason: "product " + line.ProductID + " does not exist"}
			}

			unitPrice := product.UnitPrice
			if line.UnitPrice != nil {
				unitPrice = *line.UnitPrice
			}

			if req.OrderType == entity.OrderTypeSales {
				inv, err := s.invRepo.LockByProductAndLocation(tx, line.ProductID, req.LocationID)
				if err != nil {
					if err == gorm.ErrRecordNotFound {
						return &InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity, Available: 0}
					}
					return err
				}
				if inv.Available() < line.Quantity {
					return &InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity, Available: inv.Available()}
				}
				inv.ReservedQty += line.Quantity
				inv.LastUpdated = time.Now()
				if err := tx.Save(inv).Error; err != nil {
					return fmt.Errorf("reserve stock: %w", err)
				}
			}

			lineTotal := float64(line.Quantity) * unitPrice
			total += lineTotal
			items = append(items, entity.OrderItem{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
				Total:     lineTotal,
			})
		}

		order.TotalAmount = total
		order.Items = items
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		event := sse.NewEvent(sse.EventOrderCreated, created)
		s.notifier.Publish(event)
		s.notifier.PublishTopic(sse.LocationTopic(created.LocationID), event)
	}
	return created, nil
}

func (s *OrderService) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, params repository.OrderListParams) ([]entity.Order, int64, error) {
	return s.repo.List(ctx, params)
}

// UpdateStatus walks the order along the plain status edges. SHIPPED,
// CANCELLED and DELIVERED are unreachable here; those are owned by Fulfill,
// Cancel and delivery completion respectively.
func (s *OrderService) UpdateStatus(ctx context.Context, id, newStatus string) (*entity.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order entity.Order
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			return notFoundOr(err)
		}

		allowed := false
		for _, next := range entity.ValidOrderTransitions[order.Status] {
			if next == newStatus {
				allowed = true
				break
			}
		}
		if !allowed {
			return &InvalidStateError{Current: order.Status, Attempted: newStatus}
		}

		order.Status = newStatus
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		event := sse.NewEvent(sse.EventOrderUpdated, updated)
		s.notifier.Publish(event)
		s.notifier.PublishTopic(sse.LocationTopic(updated.LocationID), event)
	}
	return updated, nil
}

// stockEvent is a deferred notification built inside a transaction and
// published only after commit.
type stockEvent struct {
	topic string
	event sse.Event
}

// Fulfill ships a CONFIRMED or PROCESSING order and applies its stock
// movements atomically. PURCHASE lines add to on-hand quantity (creating the
// inventory row if missing); SALES lines subtract from quantity and release
// the reservation taken at creation, clamped at zero. TRANSFER and RETURN
// orders change status only.
func (s *OrderService) Fulfill(ctx context.Context, id string) (*entity.Order, error) {
	var pending []stockEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order entity.Order
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			return notFoundOr(err)
		}

		if order.Status != entity.OrderStatusConfirmed && order.Status != entity.OrderStatusProcessing {
			return &InvalidStateError{Current: order.Status, Attempted: entity.OrderStatusShipped}
		}

		now := time.Now()
		for _, item := range order.Items {
			switch order.OrderType {
			case entity.OrderTypePurchase:
				inv, err := s.invRepo.LockByProductAndLocation(tx, item.ProductID, order.LocationID)
				if err == gorm.ErrRecordNotFound {
					inv = &entity.Inventory{
						ID:           uuid.New().String(),
						ProductID:    item.ProductID,
						LocationID:   order.LocationID,
						ReorderPoint: s.cfg.Inventory.DefaultReorderPoint,
					}
					if err := tx.Create(inv).Error; err != nil {
						return fmt.Errorf("create inventory row: %w", err)
					}
				} else if err != nil {
					return err
				}
				inv.Quantity += item.Quantity
				inv.LastUpdated = now
				if err := tx.Save(inv).Error; err != nil {
					return fmt.Errorf("receive stock: %w", err)
				}
				pending = append(pending, s.buildStockEvents(inv)...)

			case entity.OrderTypeSales:
				inv, err := s.invRepo.LockByProductAndLocation(tx, item.ProductID, order.LocationID)
				if err != nil {
					if err == gorm.ErrRecordNotFound {
						return &InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity, Available: 0}
					}
					return err
				}
				if inv.Quantity < item.Quantity {
					return &InsufficientStockError{ProductID: item.ProductID, Requested: item.Quantity, Available: inv.Quantity}
				}
				inv.Quantity -= item.Quantity
				inv.ReservedQty -= item.Quantity
				if inv.ReservedQty < 0 {
					inv.ReservedQty = 0
				}
				inv.LastUpdated = now
				if err := tx.Save(inv).Error; err != nil {
					return fmt.Errorf("deduct stock: %w", err)
				}
				pending = append(pending, s.buildStockEvents(inv)...)
			}
		}

		order.Status = entity.OrderStatusShipped
		order.FulfilledDate = &now
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	fulfilled, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		event := sse.NewEvent(sse.EventOrderFulfilled, fulfilled)
		s.notifier.Publish(event)
		s.notifier.PublishTopic(sse.LocationTopic(fulfilled.LocationID), event)
		for _, pe := range pending {
			s.notifier.PublishTopic(pe.topic, pe.event)
		}
	}
	return fulfilled, nil
}

// buildStockEvents prepares the inventory-update event for a touched row,
// plus a low-stock alert when the row sits at or below its reorder point or
// the configured global threshold.
func (s *OrderService) buildStockEvents(inv *entity.Inventory) []stockEvent {
	topic := sse.LocationTopic(inv.LocationID)
	events := []stockEvent{
		{topic: topic, event: sse.NewEvent(sse.EventInventoryUpdate, inv)},
	}
	if inv.Quantity <= inv.ReorderPoint || inv.Quantity <= s.cfg.Inventory.LowStockThreshold {
		events = append(events, stockEvent{topic: topic, event: sse.NewEvent(sse.EventLowStockAlert, inv)})
	}
	return events
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Cancel aborts any order that has not reached a terminal state. SALES
// reservations still held by the order are released, clamped at zero; on-hand
// quantity is never touched. The reason is appended to the order notes.
func (s *OrderService) Cancel(ctx context.Context, id, reason string) (*entity.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order entity.Order
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			return notFoundOr(err)
		}

		if entity.OrderStatusTerminal(order.Status) {
			return &InvalidStateError{Current: order.Status, Attempted: entity.OrderStatusCancelled}
		}

		// Reservations are held from creation until fulfillment; a SHIPPED
		// order released its share already and must not take anyone else's.
		holdsReservation := order.Status == entity.OrderStatusPending ||
			order.Status == entity.OrderStatusConfirmed ||
			order.Status == entity.OrderStatusProcessing

		if order.OrderType == entity.OrderTypeSales && holdsReservation {
			now := time.Now()
			for _, item := range order.Items {
				inv, err := s.invRepo.LockByProductAndLocation(tx, item.ProductID, order.LocationID)
				if err != nil {
					if err == gorm.ErrRecordNotFound {
						continue
					}
					return err
				}
				inv.ReservedQty -= item.Quantity
				if inv.ReservedQty < 0 {
					inv.ReservedQty = 0
				}
				inv.LastUpdated = now
				if err := tx.Save(inv).Error; err != nil {
					return fmt.Errorf("release reservation: %w", err)
				}
			}
		}

		order.Status = entity.OrderStatusCancelled
		if order.Notes != "" {
			order.Notes += "\n"
		}
		order.Notes += "Cancelled: " + reason
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	cancelled, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		event := sse.NewEvent(sse.EventOrderCancelled, cancelled)
		s.notifier.Publish(event)
		s.notifier.PublishTopic(sse.LocationTopic(cancelled.LocationID), event)
	}
	return cancelled, nil
}

// markDelivered is invoked by delivery completion inside the delivery's own
// transaction. The order must have shipped.
func markDelivered(tx *gorm.DB, orderID string) (*entity.Order, error) {
	var order entity.Order
	if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	if order.Status != entity.OrderStatusShipped {
		return nil, &InvalidStateError{Current: order.Status, Attempted: entity.OrderStatusDelivered}
	}
	order.Status = entity.OrderStatusDelivered
	if err := tx.Save(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
