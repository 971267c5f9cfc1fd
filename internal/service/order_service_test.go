package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/bitfantasy/supplychain/internal/testutil"
	"gorm.io/gorm"
)

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	global []sse.Event
	topics map[string][]sse.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{topics: make(map[string][]sse.Event)}
}

func (n *recordingNotifier) Publish(event sse.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.global = append(n.global, event)
}

func (n *recordingNotifier) PublishTopic(topic string, event sse.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics[topic] = append(n.topics[topic], event)
}

func (n *recordingNotifier) topicEventTypes(topic string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var types []string
	for _, ev := range n.topics[topic] {
		types = append(types, ev.EventType)
	}
	return types
}

func setupOrderService(t *testing.T) (*gorm.DB, *OrderService, *recordingNotifier) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	notifier := newRecordingNotifier()
	svc := NewOrderService(repos.Order, repos.Inventory, repos.Location,
		db, notifier, testutil.TestConfig())
	return db, svc, notifier
}

func seedSalesFixtures(t *testing.T, db *gorm.DB) {
	t.Helper()
	testutil.SeedLocation(t, db, "loc-1", "Main Warehouse")
	testutil.SeedProduct(t, db, "prod-1", "SKU-001", 25.50)
	testutil.SeedInventory(t, db, "inv-1", "prod-1", "loc-1", 100, 0, 20)
	testutil.SeedUser(t, db, "cust-1", "Casey Customer", "casey@test.com", entity.RoleEmployee)
}

func strPtr(s string) *string {
	return &s
}

func TestCreateSalesOrderReservesStock(t *testing.T) {
	db, svc, notifier := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items: []CreateOrderItemRequest{
			{ProductID: "prod-1", Quantity: 30},
		},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if order.Status != entity.OrderStatusPending {
		t.Errorf("status = %s, want PENDING", order.Status)
	}
	if order.TotalAmount != 30*25.50 {
		t.Errorf("total = %v, want %v", order.TotalAmount, 30*25.50)
	}
	if order.OrderNumber == "" {
		t.Error("order number not generated")
	}

	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-1")
	if inv.ReservedQty != 30 {
		t.Errorf("reserved = %d, want 30", inv.ReservedQty)
	}
	if inv.Quantity != 100 {
		t.Errorf("quantity = %d, want 100 (reservation must not deduct stock)", inv.Quantity)
	}

	types := notifier.topicEventTypes(sse.LocationTopic("loc-1"))
	if len(types) == 0 || types[0] != sse.EventOrderCreated {
		t.Errorf("topic events = %v, want order-created", types)
	}
}

func TestCreateSalesOrderInsufficientStockRollsBack(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	testutil.SeedProduct(t, db, "prod-2", "SKU-002", 10)
	testutil.SeedInventory(t, db, "inv-2", "prod-2", "loc-1", 5, 0, 20)
	ctx := context.Background()

	// Second line exceeds availability; the first line's reservation must
	// roll back with it.
	_, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items: []CreateOrderItemRequest{
			{ProductID: "prod-1", Quantity: 10},
			{ProductID: "prod-2", Quantity: 6},
		},
	}, "test-user")

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.ProductID != "prod-2" || stockErr.Available != 5 {
		t.Errorf("stockErr = %+v", stockErr)
	}

	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-1")
	if inv.ReservedQty != 0 {
		t.Errorf("reserved = %d after rollback, want 0", inv.ReservedQty)
	}

	var count int64
	db.Model(&entity.Order{}).Count(&count)
	if count != 0 {
		t.Errorf("order count = %d after rollback, want 0", count)
	}
}

func TestReservationCountsAgainstAvailability(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	testutil.SeedLocation(t, db, "loc-1", "Main Warehouse")
	testutil.SeedProduct(t, db, "prod-1", "SKU-001", 10)
	testutil.SeedInventory(t, db, "inv-1", "prod-1", "loc-1", 100, 80, 20)
	testutil.SeedUser(t, db, "cust-1", "Casey Customer", "casey@test.com", entity.RoleEmployee)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 30}},
	}, "test-user")

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError (available is 20, not 100)", err)
	}
	if stockErr.Available != 20 {
		t.Errorf("available = %d, want 20", stockErr.Available)
	}
}

func TestConcurrentOrdersNeverOverReserve(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	testutil.SeedLocation(t, db, "loc-1", "Main Warehouse")
	testutil.SeedProduct(t, db, "prod-1", "SKU-001", 10)
	testutil.SeedInventory(t, db, "inv-1", "prod-1", "loc-1", 100, 0, 20)
	testutil.SeedUser(t, db, "cust-1", "Casey Customer", "casey@test.com", entity.RoleEmployee)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, CreateOrderRequest{
				OrderType:  entity.OrderTypeSales,
				LocationID: "loc-1",
				CustomerID: strPtr("cust-1"),
				Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 15}},
			}, "test-user")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 100 units, 15 per order: at most 6 can reserve. At least one must get
	// through, otherwise the race is not being exercised at all.
	if succeeded < 1 {
		t.Fatal("no order succeeded; the reservation path was never reached")
	}
	if succeeded > 6 {
		t.Errorf("%d orders succeeded, max is 6", succeeded)
	}

	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-1")
	if inv.ReservedQty != succeeded*15 {
		t.Errorf("reserved = %d, want %d", inv.ReservedQty, succeeded*15)
	}
	if inv.ReservedQty > inv.Quantity {
		t.Errorf("reserved %d exceeds quantity %d", inv.ReservedQty, inv.Quantity)
	}
}

func TestFulfillSalesOrderDeductsAndReleases(t *testing.T) {
	db, svc, notifier := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 30}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, order.ID, entity.OrderStatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	fulfilled, err := svc.Fulfill(ctx, order.ID)
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if fulfilled.Status != entity.OrderStatusShipped {
		t.Errorf("status = %s, want SHIPPED", fulfilled.Status)
	}
	if fulfilled.FulfilledDate == nil {
		t.Error("fulfilled date not set")
	}

	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-1")
	if inv.Quantity != 70 {
		t.Errorf("quantity = %d, want 70", inv.Quantity)
	}
	if inv.ReservedQty != 0 {
		t.Errorf("reserved = %d, want 0", inv.ReservedQty)
	}

	types := notifier.topicEventTypes(sse.LocationTopic("loc-1"))
	hasInventoryUpdate := false
	for _, et := range types {
		if et == sse.EventInventoryUpdate {
			hasInventoryUpdate = true
		}
	}
	if !hasInventoryUpdate {
		t.Errorf("topic events = %v, want inventory-update", types)
	}
}

func TestFulfillPurchaseOrderAddsStock(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	supplierID := testutil.SeedSupplier(t, db, "sup-1", "Acme").ID
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypePurchase,
		LocationID: "loc-1",
		SupplierID: &supplierID,
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 50}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, order.ID, entity.OrderStatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := svc.Fulfill(ctx, order.ID); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-1")
	if inv.Quantity != 150 {
		t.Errorf("quantity = %d, want 150", inv.Quantity)
	}
}

func TestFulfillPurchaseCreatesMissingInventoryRow(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	testutil.SeedLocation(t, db, "loc-1", "Main Warehouse")
	testutil.SeedProduct(t, db, "prod-new", "SKU-NEW", 5)
	supplierID := testutil.SeedSupplier(t, db, "sup-1", "Acme").ID
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypePurchase,
		LocationID: "loc-1",
		SupplierID: &supplierID,
		Items:      []CreateOrderItemRequest{{ProductID: "prod-new", Quantity: 40}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, order.ID, entity.OrderStatusConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := svc.Fulfill(ctx, order.ID); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	var inv entity.Inventory
	if err := db.First(&inv, "product_id = ? AND location_id = ?", "prod-new", "loc-1").Error; err != nil {
		t.Fatalf("inventory row not created: %v", err)
	}
	if inv.Quantity != 40 {
		t.Errorf("quantity = %d, want 40", inv.Quantity)
	}
	if inv.ReorderPoint != 50 {
		t.Errorf("reorder point = %d, want default 50", inv.ReorderPoint)
	}
}

func TestFulfillRejectsPendingOrder(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 5}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Fulfill(ctx, order.ID)
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}
	if stateErr.Current != entity.OrderStatusPending {
		t.Errorf("current = %s, want PENDING", stateErr.Current)
	}
}

func TestCancelReleasesReservationAndRecordsReason(t *testing.T) {
	db, svc, notifier := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Notes:      "rush order",
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 25}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, order.ID, "customer withdrew")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != entity.OrderStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.Notes != "rush order\nCancelled: customer withdrew" {
		t.Errorf("notes = %q", cancelled.Notes)
	}

	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-1")
	if inv.ReservedQty != 0 {
		t.Errorf("reserved = %d, want 0 after cancel", inv.ReservedQty)
	}
	if inv.Quantity != 100 {
		t.Errorf("quantity = %d, want 100 (cancel must not touch on-hand)", inv.Quantity)
	}

	types := notifier.topicEventTypes(sse.LocationTopic("loc-1"))
	hasCancelled := false
	for _, et := range types {
		if et == sse.EventOrderCancelled {
			hasCancelled = true
		}
	}
	if !hasCancelled {
		t.Errorf("topic events = %v, want order-cancelled", types)
	}
}

func TestCancelShippedOrderLeavesStockAlone(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, _ := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 5}},
	}, "test-user")
	svc.UpdateStatus(ctx, order.ID, entity.OrderStatusConfirmed)
	if _, err := svc.Fulfill(ctx, order.ID); err != nil {
		t.Fatalf("Fulfill: %v", err)
	}

	other, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 30}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create second order: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, order.ID, "lost in transit")
	if err != nil {
		t.Fatalf("Cancel shipped order: %v", err)
	}
	if cancelled.Status != entity.OrderStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}

	// The shipped order released its reservation at fulfillment; cancelling it
	// must not touch on-hand stock or the other order's reservation.
	var inv entity.Inventory
	db.First(&inv, "id = ?", "inv-1")
	if inv.Quantity != 95 {
		t.Errorf("quantity = %d, want 95", inv.Quantity)
	}
	if inv.ReservedQty != 30 {
		t.Errorf("reserved = %d, want 30 (order %s still holds it)", inv.ReservedQty, other.ID)
	}
}

func TestCancelRejectedWhenTerminal(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, _ := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 5}},
	}, "test-user")
	db.Model(&entity.Order{}).Where("id = ?", order.ID).Update("status", entity.OrderStatusDelivered)

	_, err := svc.Cancel(ctx, order.ID, "too late")
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}

	if _, err := svc.Cancel(ctx, order.ID, "still too late"); err == nil {
		t.Error("cancelling a cancelled/delivered order must keep failing")
	}
}

func TestCreateSalesOrderRequiresCustomer(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 1}},
	}, "test-user")

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if validationErr.Field != "customer_id" {
		t.Errorf("field = %s, want customer_id", validationErr.Field)
	}
}

func TestUpdateStatusRejectsSkippedStates(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	order, _ := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 5}},
	}, "test-user")

	// PENDING cannot jump straight to PROCESSING.
	_, err := svc.UpdateStatus(ctx, order.ID, entity.OrderStatusProcessing)
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}

	// SHIPPED is not reachable via plain status update.
	_, err = svc.UpdateStatus(ctx, order.ID, entity.OrderStatusShipped)
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want InvalidStateError for SHIPPED", err)
	}
}

func TestCreateOrderUnknownTypeRejected(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderType:  "EXCHANGE",
		LocationID: "loc-1",
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 1}},
	}, "test-user")

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCreateOrderSnapshotsProductPrice(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	ctx := context.Background()

	// No unit price in the request: product master price is snapshotted.
	order, err := svc.Create(ctx, CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 2}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPrice != 25.50 {
		t.Fatalf("items = %+v, want unit price 25.50", order.Items)
	}

	// Raising the master price must not change the existing order.
	db.Model(&entity.Product{}).Where("id = ?", "prod-1").Update("unit_price", 99)
	reloaded, _ := svc.GetByID(ctx, order.ID)
	if reloaded.Items[0].UnitPrice != 25.50 {
		t.Errorf("unit price changed to %v after master update", reloaded.Items[0].UnitPrice)
	}
}

func TestCreateOrderHonorsExplicitZeroPrice(t *testing.T) {
	db, svc, _ := setupOrderService(t)
	seedSalesFixtures(t, db)
	zero := 0.0

	// A free line item (promo, replacement) is billed at zero, not at the
	// product master price.
	order, err := svc.Create(context.Background(), CreateOrderRequest{
		OrderType:  entity.OrderTypeSales,
		LocationID: "loc-1",
		CustomerID: strPtr("cust-1"),
		Items:      []CreateOrderItemRequest{{ProductID: "prod-1", Quantity: 2, UnitPrice: &zero}},
	}, "test-user")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPrice != 0 {
		t.Fatalf("items = %+v, want unit price 0", order.Items)
	}
	if order.TotalAmount != 0 {
		t.Errorf("total = %v, want 0", order.TotalAmount)
	}
}
