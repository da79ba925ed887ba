package services

import (
	"context"

	"quickbite-api/apperr"
	"quickbite-api/authz"
	"quickbite-api/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MenuService struct {
	Deps
}

func NewMenuService(d Deps) *MenuService {
	return &MenuService{Deps: d.withDefaults()}
}

type MenuItemInput struct {
	RestaurantID string          `json:"restaurantId" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"imageUrl"`
	IsAvailable  *bool           `json:"isAvailable"`
}

type MenuItemPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"imageUrl"`
	IsAvailable *bool            `json:"isAvailable"`
}

type MenuFilter struct {
	Category  string
	Available *bool
}

// ListByRestaurant returns the menu of an existing restaurant.
func (s *MenuService) ListByRestaurant(ctx context.Context, restaurantID string, f MenuFilter) ([]models.MenuItem, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Restaurant{}).Where("id = ?", restaurantID).Count(&count).Error; err != nil {
		return nil, apperr.Internal(err, "failed to load restaurant")
	}
	if count == 0 {
		return nil, apperr.NotFound("restaurant %s not found", restaurantID)
	}

	q := s.DB.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Available != nil {
		q = q.Where("is_available = ?", *f.Available)
	}

	items := []models.MenuItem{}
	if err := q.Order("category ASC, name ASC").Find(&items).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list menu items")
	}
	return items, nil
}

func (s *MenuService) Add(ctx context.Context, caller *authz.Caller, in MenuItemInput) (*models.MenuItem, error) {
	if err := s.authorizeOwner(ctx, caller, authz.ResourceRestaurant, in.RestaurantID); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	item := &models.MenuItem{
		RestaurantID: in.RestaurantID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
		ImageURL:     in.ImageURL,
		IsAvailable:  true,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		if in.IsAvailable != nil && !*in.IsAvailable {
			item.IsAvailable = false
			return tx.Model(item).Update("is_available", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to add menu item")
	}

	s.record(ctx, caller, "menu_item.created", "menu_item", item.ID, map[string]any{
		"restaurant_id": item.RestaurantID,
		"price":         item.Price.StringFixed(2),
	})
	return item, nil
}

func (s *MenuService) Update(ctx context.Context, caller *authz.Caller, id string, p MenuItemPatch) (*models.MenuItem, error) {
	if err := s.authorizeOwner(ctx, caller, authz.ResourceMenuItem, id); err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if p.Name != nil {
		if *p.Name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		changes["name"] = *p.Name
	}
	if p.Description != nil {
		changes["description"] = *p.Description
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return nil, apperr.Validation("price must not be negative")
		}
		changes["price"] = *p.Price
	}
	if p.Category != nil {
		changes["category"] = *p.Category
	}
	if p.ImageURL != nil {
		changes["image_url"] = *p.ImageURL
	}
	if p.IsAvailable != nil {
		changes["is_available"] = *p.IsAvailable
	}

	if len(changes) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.MenuItem{ID: id}).Updates(changes).Error; err != nil {
			return nil, apperr.Internal(err, "failed to update menu item")
		}
		s.record(ctx, caller, "menu_item.updated", "menu_item", id, changes)
	}

	var item models.MenuItem
	if err := s.DB.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "menu item %s not found", id)
	}
	return &item, nil
}

// Delete removes a menu item. Orders that reference it keep their snapshot.
func (s *MenuService) Delete(ctx context.Context, caller *authz.Caller, id string) error {
	if err := s.authorizeOwner(ctx, caller, authz.ResourceMenuItem, id); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&models.MenuItem{}, "id = ?", id).Error; err != nil {
		return apperr.Internal(err, "failed to delete menu item")
	}
	s.record(ctx, caller, "menu_item.deleted", "menu_item", id, nil)
	return nil
}

func (s *MenuService) authorizeOwner(ctx context.Context, caller *authz.Caller, res authz.Resource, id string) error {
	if err := authz.Authorize(caller, staffRoles, ""); err != nil {
		return err
	}
	owner, err := authz.OwnerOf(ctx, s.DB, res, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(caller, staffRoles, owner); err != nil {
		return apperr.Forbidden("not authorized to manage this menu")
	}
	return nil
}
