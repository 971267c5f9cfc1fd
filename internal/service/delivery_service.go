package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryService tracks the last mile of shipped orders. Completing a
// delivery is the only path that moves an order to DELIVERED, and the two
// updates share one transaction.
type DeliveryService struct {
	repo      *repository.DeliveryRepository
	orderRepo *repository.OrderRepository
	db        *gorm.DB
	notifier  Notifier
}

func NewDeliveryService(repo *repository.DeliveryRepository, orderRepo *repository.OrderRepository,
	db *gorm.DB, notifier Notifier) *DeliveryService {
	return &DeliveryService{
		repo:      repo,
		orderRepo: orderRepo,
		db:        db,
		notifier:  notifier,
	}
}

type CreateDeliveryRequest struct {
	OrderID         string     `json:"order_id" binding:"required"`
	DriverID        *string    `json:"driver_id"`
	DeliveryAddress string     `json:"delivery_address" binding:"required"`
	ScheduledDate   *time.Time `json:"scheduled_date"`
	Cost            float64    `json:"cost" binding:"gte=0"`
}

// Create schedules a delivery for a shipped order. The origin location is
// taken from the order.
func (s *DeliveryService) Create(ctx context.Context, req CreateDeliveryRequest) (*entity.Delivery, error) {
	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if order.Status != entity.OrderStatusShipped {
		return nil, &InvalidStateError{Current: order.Status, Attempted: entity.DeliveryStatusScheduled}
	}

	delivery := &entity.Delivery{
		ID:              uuid.New().String(),
		OrderID:         order.ID,
		DriverID:        req.DriverID,
		FromLocationID:  order.LocationID,
		DeliveryAddress: req.DeliveryAddress,
		Status:          entity.DeliveryStatusScheduled,
		ScheduledDate:   req.ScheduledDate,
		Cost:            req.Cost,
	}
	if err := s.repo.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("create delivery: %w", err)
	}

	created, err := s.repo.FindByID(ctx, delivery.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		event := sse.NewEvent(sse.EventDeliveryUpdate, created)
		s.notifier.Publish(event)
		s.notifier.PublishTopic(sse.LocationTopic(created.FromLocationID), event)
	}
	return created, nil
}

func (s *DeliveryService) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	delivery, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return delivery, nil
}

func (s *DeliveryService) List(ctx context.Context, params repository.DeliveryListParams) ([]entity.Delivery, int64, error) {
	return s.repo.List(ctx, params)
}

type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus advances a delivery along its state machine. Reaching
// DELIVERED stamps the delivered date, records the actual duration and moves
// the owning order to DELIVERED in the same transaction.
func (s *DeliveryService) UpdateStatus(ctx context.Context, id, newStatus string) (*entity.Delivery, error) {
	var orderTouched bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var delivery entity.Delivery
		if err := tx.First(&delivery, "id = ?", id).Error; err != nil {
			return notFoundOr(err)
		}

		allowed := false
		for _, next := range entity.ValidDeliveryTransitions[delivery.Status] {
			if next == newStatus {
				allowed = true
				break
			}
		}
		if !allowed {
			return &InvalidStateError{Current: delivery.Status, Attempted: newStatus}
		}

		delivery.Status = newStatus
		if newStatus == entity.DeliveryStatusDelivered {
			now := time.Now()
			delivery.DeliveredDate = &now
			start := delivery.CreatedAt
			if delivery.ScheduledDate != nil && delivery.ScheduledDate.Before(now) {
				start = *delivery.ScheduledDate
			}
			delivery.ActualDuration = int(now.Sub(start).Minutes())

			if _, err := markDelivered(tx, delivery.OrderID); err != nil {
				return err
			}
			orderTouched = true
		}
		return tx.Save(&delivery).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		event := sse.NewEvent(sse.EventDeliveryUpdate, updated)
		s.notifier.Publish(event)
		s.notifier.PublishTopic(sse.LocationTopic(updated.FromLocationID), event)
		if orderTouched {
			if order, err := s.orderRepo.FindByID(ctx, updated.OrderID); err == nil {
				orderEvent := sse.NewEvent(sse.EventOrderUpdated, order)
				s.notifier.Publish(orderEvent)
				s.notifier.PublishTopic(sse.LocationTopic(order.LocationID), orderEvent)
			}
		}
	}
	return updated, nil
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

func (s *DeliveryService) AssignDriver(ctx context.Context, id, driverID string) (*entity.Delivery, error) {
	delivery, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if delivery.Status == entity.DeliveryStatusDelivered {
		return nil, &InvalidStateError{Current: delivery.Status, Attempted: "driver assignment"}
	}

	var driver entity.User
	if err := s.db.WithContext(ctx).First(&driver, "id = ?", driverID).Error; err != nil {
		return nil, &ValidationError{Field: "driver_id", Reason: "driver does not exist"}
	}
	if driver.Role != entity.RoleDriver {
		return nil, &ValidationError{Field: "driver_id", Reason: "user is not a driver"}
	}

	delivery.DriverID = &driverID
	if err := s.db.WithContext(ctx).Save(delivery).Error; err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}
