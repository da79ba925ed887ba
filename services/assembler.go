package services

import (
	"context"

	"quickbite-api/apperr"
	"quickbite-api/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineRequest is one requested order line
type LineRequest struct {
	MenuItemID string `json:"menuItemId" binding:"required"`
	Quantity   int    `json:"quantity"`
}

// AssembleOrder resolves every line against the menu and builds an unsaved
// PENDING order with its item snapshot and total. Nothing is written.
func AssembleOrder(ctx context.Context, tx *gorm.DB, restaurantID string, lines []LineRequest) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.Validation("quantity for menu item %s must be a positive integer", l.MenuItemID)
		}
	}

	var restaurant models.Restaurant
	if err := tx.WithContext(ctx).First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		return nil, notFoundOr(err, "restaurant %s not found", restaurantID)
	}
	if !restaurant.IsOpen {
		return nil, apperr.Validation("restaurant %s is currently closed", restaurant.Name)
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		var menuItem models.MenuItem
		if err := tx.WithContext(ctx).First(&menuItem, "id = ?", l.MenuItemID).Error; err != nil {
			return nil, notFoundOr(err, "menu item %s not found", l.MenuItemID)
		}
		if menuItem.RestaurantID != restaurantID {
			return nil, apperr.Validation("menu item %s does not belong to this restaurant", l.MenuItemID)
		}
		if !menuItem.IsAvailable {
			return nil, apperr.Validation("menu item '%s' is not available", menuItem.Name)
		}

		line := models.OrderItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   l.Quantity,
			Price:      menuItem.Price,
		}
		total = total.Add(line.LineTotal())
		items = append(items, line)
	}

	return &models.Order{
		RestaurantID: restaurantID,
		Status:       models.StatusPending,
		TotalAmount:  total,
		Items:        items,
		Version:      1,
	}, nil
}
