package handlers

import (
	"net/http"
	"time"

	"quickbite-api/apperr"
	"quickbite-api/middleware"
	"quickbite-api/models"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// PlaceOrder creates a new order (customer only)
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderInput
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.Orders.Place(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": order})
}

// GetOrders lists the orders the caller may see, with a per-status summary
func (h *Handler) GetOrders(c *gin.Context) {
	filter := services.OrderFilter{RestaurantID: c.Query("restaurant_id")}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			h.respondError(c, apperr.Validation("unknown order status %q", raw))
			return
		}
		filter.Status = status
	}

	caller := middleware.CallerFrom(c)
	orders, err := h.Orders.List(c.Request.Context(), caller, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary := map[string]int{}
	revenue := decimal.Zero
	for _, o := range orders {
		summary[string(o.Status)]++
		if o.Status == models.StatusDelivered {
			revenue = revenue.Add(o.TotalAmount)
		}
	}
	body := gin.H{
		"count":         len(orders),
		"order_summary": summary,
		"orders":        orders,
	}
	if caller.Role != models.RoleCustomer {
		body["total_revenue"] = revenue.StringFixed(2)
	}
	c.JSON(http.StatusOK, body)
}

// TrackOrder returns a single order's full detail with history
func (h *Handler) TrackOrder(c *gin.Context) {
	order, err := h.Orders.Track(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":           order,
		"minutes_elapsed": int(time.Since(order.CreatedAt).Minutes()),
	})
}

// UpdateOrderStatus moves an order along the lifecycle (owner or admin)
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	status, _ := models.ParseOrderStatus(req.Status)
	order, err := h.Orders.SetStatus(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), status, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order": order})
}

// CancelOrder cancels a pending order (customer only)
func (h *Handler) CancelOrder(c *gin.Context) {
	order, err := h.Orders.Cancel(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	if err := h.Orders.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}
