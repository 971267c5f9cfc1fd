package repository

import "gorm.io/gorm"

// Repositories bundles all data access objects for wiring.
type Repositories struct {
	User      *UserRepository
	Supplier  *SupplierRepository
	Location  *LocationRepository
	Product   *ProductRepository
	Inventory *InventoryRepository
	Order     *OrderRepository
	Delivery  *DeliveryRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Supplier:  NewSupplierRepository(db),
		Location:  NewLocationRepository(db),
		Product:   NewProductRepository(db),
		Inventory: NewInventoryRepository(db),
		Order:     NewOrderRepository(db),
		Delivery:  NewDeliveryRepository(db),
	}
}
