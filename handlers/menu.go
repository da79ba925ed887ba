package handlers

import (
	"net/http"

	"quickbite-api/middleware"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddMenuItem(c *gin.Context) {
	var req services.MenuItemInput
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.Menu.Add(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	var req services.MenuItemPatch
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.Menu.Update(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	if err := h.Menu.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}
