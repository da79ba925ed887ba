package services

import (
	"context"
	"net/url"

	"quickbite-api/apperr"
	"quickbite-api/authz"
	"quickbite-api/listing"
	"quickbite-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RestaurantService struct {
	Deps
}

func NewRestaurantService(d Deps) *RestaurantService {
	return &RestaurantService{Deps: d.withDefaults()}
}

type RestaurantInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Cuisine     string   `json:"cuisine"`
	Address     string   `json:"address"`
	Rating      *float64 `json:"rating"`
	ImageURL    string   `json:"imageUrl"`
	IsOpen      *bool    `json:"isOpen"`
}

// RestaurantPatch carries only the fields the caller sent.
type RestaurantPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Cuisine     *string  `json:"cuisine"`
	Address     *string  `json:"address"`
	Rating      *float64 `json:"rating"`
	ImageURL    *string  `json:"imageUrl"`
	IsOpen      *bool    `json:"isOpen"`
}

func (p RestaurantPatch) updates() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Cuisine != nil {
		m["cuisine"] = *p.Cuisine
	}
	if p.Address != nil {
		m["address"] = *p.Address
	}
	if p.Rating != nil {
		m["rating"] = *p.Rating
	}
	if p.ImageURL != nil {
		m["image_url"] = *p.ImageURL
	}
	if p.IsOpen != nil {
		m["is_open"] = *p.IsOpen
	}
	return m
}

func validRating(r *float64) error {
	if r != nil && (*r < 0 || *r > 5) {
		return apperr.Validation("rating must be between 0 and 5")
	}
	return nil
}

// List runs the public restaurant listing, through the cache when one is set.
func (s *RestaurantService) List(ctx context.Context, values url.Values) (*listing.Result, error) {
	q, err := listing.ParseQuery(values, s.MaxListLimit)
	if err != nil {
		return nil, err
	}
	return s.Cache.Fetch(ctx, q, func(ctx context.Context) (*listing.Result, error) {
		return listing.Run(ctx, s.DB, q)
	})
}

func (s *RestaurantService) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	err := s.DB.WithContext(ctx).
		Preload("MenuItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("category ASC, name ASC")
		}).
		Preload("Owner", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		First(&r, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "restaurant %s not found", id)
	}
	return &r, nil
}

// ListMine returns the restaurants owned by the caller.
func (s *RestaurantService) ListMine(ctx context.Context, caller *authz.Caller) ([]models.Restaurant, error) {
	if err := authz.Authorize(caller, staffRoles, ""); err != nil {
		return nil, err
	}
	restaurants := []models.Restaurant{}
	err := s.DB.WithContext(ctx).
		Preload("MenuItems").
		Where("owner_id = ?", caller.ID).
		Order("created_at DESC").
		Find(&restaurants).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to list restaurants")
	}
	return restaurants, nil
}

func (s *RestaurantService) Create(ctx context.Context, caller *authz.Caller, in RestaurantInput) (*models.Restaurant, error) {
	if err := authz.Authorize(caller, staffRoles, ""); err != nil {
		return nil, err
	}
	if err := validRating(in.Rating); err != nil {
		return nil, err
	}

	r := &models.Restaurant{
		OwnerID:     caller.ID,
		Name:        in.Name,
		Description: in.Description,
		Cuisine:     in.Cuisine,
		Address:     in.Address,
		ImageURL:    in.ImageURL,
		IsOpen:      true,
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		// gorm skips zero values for columns with a default, so false has to be written explicitly
		if in.IsOpen != nil && !*in.IsOpen {
			r.IsOpen = false
			return tx.Model(r).Update("is_open", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to create restaurant")
	}

	s.Cache.Invalidate(ctx)
	s.Log.Info("restaurant created", zap.String("restaurant_id", r.ID), zap.String("owner_id", r.OwnerID))
	s.record(ctx, caller, "restaurant.created", "restaurant", r.ID, map[string]any{"name": r.Name})
	return r, nil
}

func (s *RestaurantService) Update(ctx context.Context, caller *authz.Caller, id string, p RestaurantPatch) (*models.Restaurant, error) {
	if err := s.authorizeOwner(ctx, caller, id); err != nil {
		return nil, err
	}
	if err := validRating(p.Rating); err != nil {
		return nil, err
	}
	if p.Name != nil && *p.Name == "" {
		return nil, apperr.Validation("name cannot be empty")
	}

	if changes := p.updates(); len(changes) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Restaurant{ID: id}).Updates(changes).Error; err != nil {
			return nil, apperr.Internal(err, "failed to update restaurant")
		}
		s.Cache.Invalidate(ctx)
		s.record(ctx, caller, "restaurant.updated", "restaurant", id, changes)
	}
	return s.Get(ctx, id)
}

// Delete removes a restaurant and its menu. Orders keep their snapshots.
func (s *RestaurantService) Delete(ctx context.Context, caller *authz.Caller, id string) error {
	if err := s.authorizeOwner(ctx, caller, id); err != nil {
		return err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("restaurant_id = ?", id).Delete(&models.MenuItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Restaurant{}, "id = ?", id).Error
	})
	if err != nil {
		return apperr.Internal(err, "failed to delete restaurant")
	}

	s.Cache.Invalidate(ctx)
	s.Log.Info("restaurant deleted", zap.String("restaurant_id", id))
	s.record(ctx, caller, "restaurant.deleted", "restaurant", id, nil)
	return nil
}

func (s *RestaurantService) authorizeOwner(ctx context.Context, caller *authz.Caller, id string) error {
	if err := authz.Authorize(caller, staffRoles, ""); err != nil {
		return err
	}
	owner, err := authz.OwnerOf(ctx, s.DB, authz.ResourceRestaurant, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(caller, staffRoles, owner); err != nil {
		return apperr.Forbidden("not authorized to manage this restaurant")
	}
	return nil
}
