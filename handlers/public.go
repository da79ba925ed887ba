package handlers

import (
	"net/http"

	"quickbite-api/models"
	"quickbite-api/statemachine"

	"github.com/gin-gonic/gin"
)

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": []models.OrderStatus{models.StatusDelivered, models.StatusCancelled},
		"admin_override":  "any non-terminal order may be forced to any status except PENDING",
		"description":     "QuickBite Order Lifecycle State Machine",
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "QuickBite API",
		"version": "1.0.0",
	})
}

func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the QuickBite API",
		"docs":    "/api/state-machine",
		"health":  "/health",
		"roles":   []models.Role{models.RoleCustomer, models.RoleRestaurantOwner, models.RoleAdmin},
	})
}
