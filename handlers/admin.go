package handlers

import (
	"net/http"

	"quickbite-api/middleware"
	"quickbite-api/models"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
)

// AdminForceOrderStatus lets admin override the lifecycle (emergency use)
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	status, _ := models.ParseOrderStatus(req.Status)

	order, err := h.Orders.ForceStatus(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), status, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var previous models.OrderStatus
	if n := len(order.StatusHistory); n > 0 {
		previous = order.StatusHistory[n-1].FromStatus
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status force-updated by admin",
		"order_id":        order.ID,
		"previous_status": previous,
		"new_status":      order.Status,
	})
}

// AdminGetAllUsers returns all users, optionally filtered by role
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.Users.ListUsers(c.Request.Context(), middleware.CallerFrom(c), c.Query("role"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

func (h *Handler) AdminUpdateUser(c *gin.Context) {
	var req services.UserPatch
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.Users.UpdateUser(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user})
}

func (h *Handler) AdminDeleteUser(c *gin.Context) {
	if err := h.Users.DeleteUser(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
