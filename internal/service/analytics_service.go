package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/supplychain/internal/config"
	"github.com/bitfantasy/supplychain/internal/entity"
	"gorm.io/gorm"
)

// AnalyticsService serves the dashboard with read-only aggregates. Queries go
// straight to SQL; nothing here mutates state.
type AnalyticsService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAnalyticsService(db *gorm.DB, cfg *config.Config) *AnalyticsService {
	return &AnalyticsService{db: db, cfg: cfg}
}

// DashboardStats is the headline card set on the dashboard.
type DashboardStats struct {
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	TotalOrders       int64            `json:"total_orders"`
	PendingDeliveries int64            `json:"pending_deliveries"`
	LowStockCount     int64            `json:"low_stock_count"`
	InventoryValue    float64          `json:"inventory_value"`
	ActiveSuppliers   int64            `json:"active_suppliers"`
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{OrdersByStatus: make(map[string]int64)}

	rows, err := s.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) FROM orders GROUP BY status`).Rows()
	if err != nil {
		return nil, fmt.Errorf("aggregate orders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.OrdersByStatus[status] = count
		stats.TotalOrders += count
	}

	row := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM deliveries WHERE status IN (?, ?)`,
		entity.DeliveryStatusScheduled, entity.DeliveryStatusInTransit).Row()
	if err := row.Scan(&stats.PendingDeliveries); err != nil {
		return nil, fmt.Errorf("count deliveries: %w", err)
	}

	row = s.db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) FILTER (WHERE i.quantity <= i.reorder_point OR i.quantity <= ?),
			COALESCE(SUM(i.quantity * p.unit_price), 0)
		FROM inventory i JOIN products p ON p.id = i.product_id`,
		s.cfg.Inventory.LowStockThreshold).Row()
	if err := row.Scan(&stats.LowStockCount, &stats.InventoryValue); err != nil {
		return nil, fmt.Errorf("aggregate inventory: %w", err)
	}

	row = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM suppliers WHERE active`).Row()
	if err := row.Scan(&stats.ActiveSuppliers); err != nil {
		return nil, fmt.Errorf("count suppliers: %w", err)
	}

	return stats, nil
}

// OrderTrendPoint is one day of order volume.
type OrderTrendPoint struct {
	Day        time.Time `json:"day"`
	OrderCount int64     `json:"order_count"`
	Amount     float64   `json:"amount"`
}

// OrderTrends buckets non-cancelled orders per day over the trailing window.
func (s *AnalyticsService) OrderTrends(ctx context.Context, days int) ([]OrderTrendPoint, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT date_trunc('day', created_at) AS day,
			COUNT(*) AS order_count,
			COALESCE(SUM(total_amount), 0) AS amount
		FROM orders
		WHERE created_at >= ? AND status <> ?
		GROUP BY day ORDER BY day`, since, entity.OrderStatusCancelled).Rows()
	if err != nil {
		return nil, fmt.Errorf("aggregate order trends: %w", err)
	}
	defer rows.Close()

	var points []OrderTrendPoint
	for rows.Next() {
		var p OrderTrendPoint
		if err := rows.Scan(&p.Day, &p.OrderCount, &p.Amount); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// InventoryByLocation is one location's aggregate stock position.
type InventoryByLocation struct {
	LocationID   string  `json:"location_id"`
	LocationName string  `json:"location_name"`
	Quantity     int64   `json:"quantity"`
	Reserved     int64   `json:"reserved"`
	StockValue   float64 `json:"stock_value"`
}

func (s *AnalyticsService) InventoryByLocations(ctx context.Context) ([]InventoryByLocation, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT l.id, l.name,
			COALESCE(SUM(i.quantity), 0),
			COALESCE(SUM(i.reserved_qty), 0),
			COALESCE(SUM(i.quantity * p.unit_price), 0)
		FROM locations l
		LEFT JOIN inventory i ON i.location_id = l.id
		LEFT JOIN products p ON p.id = i.product_id
		GROUP BY l.id, l.name
		ORDER BY l.name`).Rows()
	if err != nil {
		return nil, fmt.Errorf("aggregate inventory by location: %w", err)
	}
	defer rows.Close()

	var result []InventoryByLocation
	for rows.Next() {
		var item InventoryByLocation
		if err := rows.Scan(&item.LocationID, &item.LocationName, &item.Quantity,
			&item.Reserved, &item.StockValue); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}

// TopProduct is one row of the sales leaderboard.
type TopProduct struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	UnitsSold int64   `json:"units_sold"`
	Revenue   float64 `json:"revenue"`
}

// TopProducts ranks products by units sold on fulfilled sales orders.
func (s *AnalyticsService) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT p.id, p.name, p.sku,
			COALESCE(SUM(oi.quantity), 0) AS units_sold,
			COALESCE(SUM(oi.total), 0) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.order_type = ? AND o.status IN (?, ?)
		GROUP BY p.id, p.name, p.sku
		ORDER BY units_sold DESC
		LIMIT ?`,
		entity.OrderTypeSales, entity.OrderStatusShipped, entity.OrderStatusDelivered, limit).Rows()
	if err != nil {
		return nil, fmt.Errorf("aggregate top products: %w", err)
	}
	defer rows.Close()

	var result []TopProduct
	for rows.Next() {
		var item TopProduct
		if err := rows.Scan(&item.ProductID, &item.Name, &item.SKU, &item.UnitsSold, &item.Revenue); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}
