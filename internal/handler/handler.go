package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/supplychain/internal/service"
	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/gin-gonic/gin"
)

// Handlers is the HTTP handler bundle.
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Supplier  *SupplierHandler
	Location  *LocationHandler
	Product   *ProductHandler
	Inventory *InventoryHandler
	Order     *OrderHandler
	Delivery  *DeliveryHandler
	Analytics *AnalyticsHandler
	SSE       *SSEHandler
}

func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Auth:      NewAuthHandler(svc.Auth),
		User:      NewUserHandler(svc.User),
		Supplier:  NewSupplierHandler(svc.Supplier),
		Location:  NewLocationHandler(svc.Location),
		Product:   NewProductHandler(svc.Product),
		Inventory: NewInventoryHandler(svc.Inventory),
		Order:     NewOrderHandler(svc.Order),
		Delivery:  NewDeliveryHandler(svc.Delivery),
		Analytics: NewAnalyticsHandler(svc.Analytics),
		SSE:       NewSSEHandler(hub),
	}
}

// respondError maps service errors onto the response envelope. Codes:
// 10001 validation, 10002 not found, 10003 insufficient stock, 10004 invalid
// state transition, 50001 everything else.
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var stockErr *service.InsufficientStockError
	var stateErr *service.InvalidStateError

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"code":    10003,
			"message": err.Error(),
			"data": gin.H{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			},
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"code": 10004, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

// getPagination reads the page/size query params with bounds applied.
func getPagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

// GetUserID reads the authenticated user ID stashed by the JWT middleware.
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
