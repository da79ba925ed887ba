// Package authz holds the single identity and role check used by every
// mutating operation, plus ownership lookups per resource kind.
package authz

import (
	"context"
	"errors"
	"slices"

	"quickbite-api/apperr"
	"quickbite-api/models"

	"gorm.io/gorm"
)

// Caller is the verified identity behind a request
type Caller struct {
	ID   string
	Role models.Role
}

func (c *Caller) IsAdmin() bool { return c != nil && c.Role == models.RoleAdmin }

// Authorize allows caller when its role is in roles (or roles is empty) and,
// if ownerID is non-empty, when caller owns the resource or is an admin.
func Authorize(caller *Caller, roles []models.Role, ownerID string) error {
	if caller == nil || caller.ID == "" {
		return apperr.ErrUnauthenticated
	}
	if len(roles) > 0 && !slices.Contains(roles, caller.Role) {
		return apperr.Forbidden("role %s is not allowed to perform this action", caller.Role)
	}
	if ownerID != "" && caller.ID != ownerID && caller.Role != models.RoleAdmin {
		return apperr.Forbidden("not authorized to access this resource")
	}
	return nil
}

// Resource identifies what an ownership lookup is keyed by
type Resource int

const (
	ResourceRestaurant      Resource = iota // owner of the restaurant
	ResourceMenuItem                        // owner of the item's restaurant
	ResourceOrder                           // purchaser of the order
	ResourceOrderRestaurant                 // owner of the order's restaurant
)

func (r Resource) String() string {
	switch r {
	case ResourceRestaurant:
		return "restaurant"
	case ResourceMenuItem:
		return "menu item"
	case ResourceOrder, ResourceOrderRestaurant:
		return "order"
	}
	return "resource"
}

// OwnerOf returns the user id that owns the resource with the given id.
func OwnerOf(ctx context.Context, db *gorm.DB, res Resource, id string) (string, error) {
	var owner string
	q := db.WithContext(ctx)

	switch res {
	case ResourceRestaurant:
		q = q.Model(&models.Restaurant{}).Select("owner_id").Where("id = ?", id)
	case ResourceMenuItem:
		q = q.Table("menu_items").
			Select("restaurants.owner_id").
			Joins("JOIN restaurants ON restaurants.id = menu_items.restaurant_id").
			Where("menu_items.id = ?", id)
	case ResourceOrder:
		q = q.Model(&models.Order{}).Select("user_id").Where("id = ?", id)
	case ResourceOrderRestaurant:
		var order models.Order
		if err := q.Select("id", "restaurant_id").First(&order, "id = ?", id).Error; err != nil {
			return "", lookupError(res, id, err)
		}
		return OwnerOf(ctx, db, ResourceRestaurant, order.RestaurantID)
	default:
		return "", apperr.Internal(nil, "unknown resource kind")
	}

	if err := q.Limit(1).Scan(&owner).Error; err != nil {
		return "", apperr.Internal(err, "failed to resolve "+res.String()+" owner")
	}
	if owner == "" {
		return "", apperr.NotFound("%s %s not found", res, id)
	}
	return owner, nil
}

func lookupError(res Resource, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %s not found", res, id)
	}
	return apperr.Internal(err, "failed to load "+res.String())
}
