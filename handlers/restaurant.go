package handlers

import (
	"net/http"
	"strconv"

	"quickbite-api/apperr"
	"quickbite-api/middleware"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
)

// ListRestaurants searches, filters, sorts and pages restaurants (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	res, err := h.Restaurants.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRestaurant returns a single restaurant with its menu
func (h *Handler) GetRestaurant(c *gin.Context) {
	restaurant, err := h.Restaurants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the menu for a specific restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	filter := services.MenuFilter{Category: c.Query("category")}
	if raw := c.Query("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, apperr.Validation("available must be true or false"))
			return
		}
		filter.Available = &available
	}

	items, err := h.Menu.ListByRestaurant(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "menu": items})
}

// GetMyRestaurants returns the restaurants owned by the caller
func (h *Handler) GetMyRestaurants(c *gin.Context) {
	restaurants, err := h.Restaurants.ListMine(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if !h.bindJSON(c, &req) {
		return
	}
	restaurant, err := h.Restaurants.Create(c.Request.Context(), middleware.CallerFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	var req services.RestaurantPatch
	if !h.bindJSON(c, &req) {
		return
	}
	restaurant, err := h.Restaurants.Update(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

func (h *Handler) DeleteRestaurant(c *gin.Context) {
	if err := h.Restaurants.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted"})
}
