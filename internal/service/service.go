package service

import (
	"context"

	"github.com/bitfantasy/supplychain/internal/config"
	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Notifier pushes domain events to connected clients. *sse.Hub satisfies it;
// tests pass a recording fake. A nil Notifier disables notifications.
type Notifier interface {
	Publish(event sse.Event)
	PublishTopic(topic string, event sse.Event)
}

// Services is the application service bundle.
type Services struct {
	Auth      *AuthService
	User      *UserService
	Supplier  *SupplierService
	Location  *LocationService
	Product   *ProductService
	Inventory *InventoryService
	Order     *OrderService
	Delivery  *DeliveryService
	Analytics *AnalyticsService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, notifier Notifier, cfg *config.Config) *Services {
	return &Services{
		Auth:      NewAuthService(repos.User, rdb, cfg),
		User:      NewUserService(repos.User),
		Supplier:  NewSupplierService(repos.Supplier, db),
		Location:  NewLocationService(repos.Location, db),
		Product:   NewProductService(repos.Product, repos.Supplier),
		Inventory: NewInventoryService(repos.Inventory, repos.Product, repos.Location, db, notifier, cfg),
		Order:     NewOrderService(repos.Order, repos.Inventory, repos.Location, db, notifier, cfg),
		Delivery:  NewDeliveryService(repos.Delivery, repos.Order, db, notifier),
		Analytics: NewAnalyticsService(db, cfg),
	}
}

// UserService serves user lookups for customer and driver pickers.
type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, params repository.UserListParams) ([]entity.User, int64, error) {
	return s.repo.List(ctx, params)
}
