package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"laundry_ledger/internal/middleware"
	"laundry_ledger/internal/pricing"
	"laundry_ledger/internal/repository"
	"laundry_ledger/internal/services"
	"laundry_ledger/pkg/apperrors"
)

type OrderHandler struct {
	ledger  services.OrderLedger
	catalog repository.CatalogRepository
	logger  *zap.Logger
}

func NewOrderHandler(ledger services.OrderLedger, catalog repository.CatalogRepository, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{ledger: ledger, catalog: catalog, logger: logger}
}

// RegisterRoutes mounts the order API on api.
func (h *OrderHandler) RegisterRoutes(api *gin.RouterGroup) {
	orders := api.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/breakdown", h.GetBreakdown)
		orders.PUT("/:id", h.UpdateOrder)
		orders.DELETE("/:id", h.DeleteOrder)
		orders.PUT("/:id/adjustments/:side", h.SetAdjustment)
		orders.POST("/:id/recalculate", h.RecalcTotal)
		orders.POST("/:id/sync-payment-status", h.SyncPaymentStatus)

		orders.POST("/:id/items", h.AddItem)
		orders.POST("/:id/payments", h.AddPayment)
		orders.DELETE("/:id/payments/:payment_id", h.RemovePayment)
	}

	api.PUT("/items/:item_id", h.UpdateItem)
	api.DELETE("/items/:item_id", h.RemoveItem)
	api.GET("/services", h.ListServices)
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.OrderInput
	if !bind(c, &req) {
		return
	}

	view, err := h.ledger.CreateOrder(c.Request.Context(), req)
	if h.failed(c, "create_order", err) {
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	views, err := h.ledger.ListOrders(c.Request.Context(), services.ListQuery{
		Query:     c.Query("q"),
		Pay:       c.DefaultQuery("pay", "all"),
		DateField: c.DefaultQuery("date_field", "created"),
		Start:     c.Query("start"),
		End:       c.Query("end"),
		Limit:     limit,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": views, "count": len(views)})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.ledger.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) GetBreakdown(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.ledger.GetBreakdown(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.HeaderInput
	if !bind(c, &req) {
		return
	}

	view, err := h.ledger.UpdateHeader(c.Request.Context(), id, req)
	if h.failed(c, "update_header", err) {
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.ledger.DeleteOrder(c.Request.Context(), id)
	if h.failed(c, "delete_order", err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}

func (h *OrderHandler) SetAdjustment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	side, err := services.ParseSide(c.Param("side"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	var req struct {
		Value pricing.Input `json:"value"`
	}
	if !bind(c, &req) {
		return
	}

	b, err := h.ledger.SetAdjustment(c.Request.Context(), id, side, req.Value.String())
	if h.failed(c, "set_adjustment", err) {
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *OrderHandler) RecalcTotal(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.ledger.RecalcTotal(c.Request.Context(), id)
	if h.failed(c, "recalc_total", err) {
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *OrderHandler) SyncPaymentStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.ledger.SyncPaymentStatus(c.Request.Context(), id)
	if h.failed(c, "sync_payment_status", err) {
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *OrderHandler) AddItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ItemInput
	if !bind(c, &req) {
		return
	}

	item, err := h.ledger.AddItem(c.Request.Context(), id, req)
	if h.failed(c, "add_item", err) {
		return
	}
	h.withBreakdown(c, http.StatusCreated, id, "item", item)
}

func (h *OrderHandler) UpdateItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	var req services.ItemInput
	if !bind(c, &req) {
		return
	}

	item, err := h.ledger.UpdateItem(c.Request.Context(), itemID, req)
	if h.failed(c, "update_item", err) {
		return
	}
	h.withBreakdown(c, http.StatusOK, item.OrderID, "item", item)
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	err := h.ledger.RemoveItem(c.Request.Context(), itemID)
	if h.failed(c, "remove_item", err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": itemID, "status": "deleted"})
}

func (h *OrderHandler) AddPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.PaymentInput
	if !bind(c, &req) {
		return
	}

	payment, err := h.ledger.AddPayment(c.Request.Context(), id, req)
	if h.failed(c, "add_payment", err) {
		return
	}
	h.withBreakdown(c, http.StatusCreated, id, "payment", payment)
}

func (h *OrderHandler) RemovePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(c, "payment_id")
	if !ok {
		return
	}

	err := h.ledger.RemovePayment(c.Request.Context(), id, paymentID)
	if h.failed(c, "remove_payment", err) {
		return
	}
	h.withBreakdown(c, http.StatusOK, id, "payment_id", paymentID)
}

// ListServices returns the catalog used to pick item services.
func (h *OrderHandler) ListServices(c *gin.Context) {
	list, err := h.catalog.ListServices(c.Request.Context())
	if err != nil {
		h.renderError(c, apperrors.NewPersistenceError("failed to load services", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": list})
}

// withBreakdown renders a mutation result together with the order's fresh breakdown.
func (h *OrderHandler) withBreakdown(c *gin.Context, status int, orderID uint, key string, value interface{}) {
	body := gin.H{key: value}
	if b, err := h.ledger.GetBreakdown(c.Request.Context(), orderID); err == nil {
		body["breakdown"] = b
	} else {
		h.logger.Warn("Breakdown unavailable after mutation", zap.Uint("order_id", orderID), zap.Error(err))
	}
	c.JSON(status, body)
}

// failed records the ledger operation metric and renders err when it is non-nil.
func (h *OrderHandler) failed(c *gin.Context, op string, err error) bool {
	middleware.RecordLedgerOperation(op, err)
	if err == nil {
		return false
	}
	h.renderError(c, err)
	return true
}

func (h *OrderHandler) renderError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": appErr.Error()}
	if len(appErr.Context) > 0 {
		body["details"] = appErr.Context
	}
	c.JSON(apperrors.StatusCode(err), body)
}

func bind(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": gin.H{"reason": err.Error()}})
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
