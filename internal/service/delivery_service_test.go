package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/testutil"
	"gorm.io/gorm"
)

func setupDeliveryTest(t *testing.T) (*gorm.DB, *OrderService, *DeliveryService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	notifier := newRecordingNotifier()
	orderSvc := NewOrderService(repos.Order, repos.Inventory, repos.Location,
		db, notifier, testutil.TestConfig())
	deliverySvc := NewDeliveryService(repos.Delivery, repos.Order, db, notifier)
	return db, orderSvc, deliverySvc
}

func shippedOrder(t *testing.T, db *gorm.DB, orderSvc *OrderService) *entity.Order {
	t.Helper()
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, err := orderSvc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 10}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := orderSvc.UpdateStatus(ctx, order.ID, entity.OrderStatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	shipped, err := orderSvc.Fulfill(ctx, order.ID)
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	return shipped
}

func TestCreateDeliveryRequiresShippedOrder(t *testing.T) {
	db, orderSvc, deliverySvc := setupDeliveryTest(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, err := orderSvc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 5}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = deliverySvc.Create(ctx, CreateDeliveryRequest{
		OrderID:         order.ID,
		DeliveryAddress: "1 Test St",
	})
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want InvalidStateError for unshipped order", err)
	}
}

func TestDeliveryCompletionMarksOrderDelivered(t *testing.T) {
	db, orderSvc, deliverySvc := setupDeliveryTest(t)
	order := shippedOrder(t, db, orderSvc)
	ctx := context.Background()

	delivery, err := deliverySvc.Create(ctx, CreateDeliveryRequest{
		OrderID:         order.ID,
		DeliveryAddress: "1 Test St",
	})
	if err != nil {
		t.Fatalf("Create delivery: %v", err)
	}
	if delivery.FromLocationID != "loc-1" {
		t.Errorf("from location = %s, want loc-1", delivery.FromLocationID)
	}

	if _, err := deliverySvc.UpdateStatus(ctx, delivery.ID, entity.DeliveryStatusInTransit); err != nil {
		t.Fatalf("to IN_TRANSIT: %v", err)
	}
	done, err := deliverySvc.UpdateStatus(ctx, delivery.ID, entity.DeliveryStatusDelivered)
	if err != nil {
		t.Fatalf("to DELIVERED: %v", err)
	}
	if done.DeliveredDate == nil {
		t.Error("delivered date not set")
	}

	reloaded, err := orderSvc.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != entity.OrderStatusDelivered {
		t.Errorf("order status = %s, want DELIVERED", reloaded.Status)
	}
}

func TestDeliveryCannotSkipTransit(t *testing.T) {
	db, orderSvc, deliverySvc := setupDeliveryTest(t)
	order := shippedOrder(t, db, orderSvc)
	ctx := context.Background()

	delivery, err := deliverySvc.Create(ctx, CreateDeliveryRequest{
		OrderID:         order.ID,
		DeliveryAddress: "1 Test St",
	})
	if err != nil {
		t.Fatalf("Create delivery: %v", err)
	}

	_, err = deliverySvc.UpdateStatus(ctx, delivery.ID, entity.DeliveryStatusDelivered)
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want InvalidStateError (SCHEDULED cannot jump to DELIVERED)", err)
	}
}

func TestFailedDeliveryCanBeRescheduled(t *testing.T) {
	db, orderSvc, deliverySvc := setupDeliveryTest(t)
	order := shippedOrder(t, db, orderSvc)
	ctx := context.Background()

	delivery, err := deliverySvc.Create(ctx, CreateDeliveryRequest{
		OrderID:         order.ID,
		DeliveryAddress: "1 Test St",
	})
	if err != nil {
		t.Fatalf("Create delivery: %v", err)
	}

	if _, err := deliverySvc.UpdateStatus(ctx, delivery.ID, entity.DeliveryStatusInTransit); err != nil {
		t.Fatalf("to IN_TRANSIT: %v", err)
	}
	if _, err := deliverySvc.UpdateStatus(ctx, delivery.ID, entity.DeliveryStatusFailed); err != nil {
		t.Fatalf("to FAILED: %v", err)
	}
	rescheduled, err := deliverySvc.UpdateStatus(ctx, delivery.ID, entity.DeliveryStatusScheduled)
	if err != nil {
		t.Fatalf("back to SCHEDULED: %v", err)
	}
	if rescheduled.Status != entity.DeliveryStatusScheduled {
		t.Errorf("status = %s, want SCHEDULED", rescheduled.Status)
	}

	// Order stays SHIPPED through the failure.
	reloaded, _ := orderSvc.GetByID(ctx, order.ID)
	if reloaded.Status != entity.OrderStatusShipped {
		t.Errorf("order status = %s, want SHIPPED", reloaded.Status)
	}
}

func TestAssignDriverValidatesRole(t *testing.T) {
	db, orderSvc, deliverySvc := setupDeliveryTest(t)
	order := shippedOrder(t, db, orderSvc)
	ctx := context.Background()

	testutil.SeedUser(t, db, "driver-1", "Dan Driver", "dan@test.com", entity.RoleDriver)
	testutil.SeedUser(t, db, "clerk-1", "Carol Clerk", "carol@test.com", entity.RoleEmployee)

	delivery, err := deliverySvc.Create(ctx, CreateDeliveryRequest{
		OrderID:         order.ID,
		DeliveryAddress: "1 Test St",
	})
	if err != nil {
		t.Fatalf("Create delivery: %v", err)
	}

	if _, err := deliverySvc.AssignDriver(ctx, delivery.ID, "clerk-1"); err == nil {
		t.Error("assigning a non-driver should fail")
	}

	assigned, err := deliverySvc.AssignDriver(ctx, delivery.ID, "driver-1")
	if err != nil {
		t.Fatalf("AssignDriver: %v", err)
	}
	if assigned.DriverID == nil || *assigned.DriverID != "driver-1" {
		t.Errorf("driver = %v, want driver-1", assigned.DriverID)
	}
}
