package handler

import (
	"net/http"

	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/service"
	"github.com/gin-gonic/gin"
)

type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

func (h *DeliveryHandler) List(c *gin.Context) {
	page, size := getPagination(c)
	params := repository.DeliveryListParams{
		Status:     c.Query("status"),
		DriverID:   c.Query("driver_id"),
		OrderID:    c.Query("order_id"),
		LocationID: c.Query("location_id"),
		Page:       page,
		Size:       size,
	}
	deliveries, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"items": deliveries, "total": total, "page": page, "size": size}})
}

func (h *DeliveryHandler) Create(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	delivery, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": 0, "message": "success", "data": delivery})
}

func (h *DeliveryHandler) Get(c *gin.Context) {
	delivery, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": delivery})
}

func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	delivery, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": delivery})
}

func (h *DeliveryHandler) AssignDriver(c *gin.Context) {
	var req service.AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	delivery, err := h.svc.AssignDriver(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": delivery})
}
