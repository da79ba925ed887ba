package services

import (
	"context"

	"quickbite-api/apperr"
	"quickbite-api/authz"
	"quickbite-api/events"
	"quickbite-api/models"
	"quickbite-api/statemachine"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	customerOnly = []models.Role{models.RoleCustomer}
	staffRoles   = []models.Role{models.RoleRestaurantOwner, models.RoleAdmin}
	adminOnly    = []models.Role{models.RoleAdmin}
)

type OrderService struct {
	Deps
}

func NewOrderService(d Deps) *OrderService {
	return &OrderService{Deps: d.withDefaults()}
}

type PlaceOrderInput struct {
	RestaurantID    string        `json:"restaurantId" binding:"required"`
	Items           []LineRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress string        `json:"deliveryAddress"`
	Notes           string        `json:"notes"`
}

type OrderFilter struct {
	Status       models.OrderStatus
	RestaurantID string
}

// Place assembles and stores a new PENDING order for a customer. The order,
// its item snapshot and its first history row are written in one transaction.
func (s *OrderService) Place(ctx context.Context, caller *authz.Caller, in PlaceOrderInput) (*models.Order, error) {
	if err := authz.Authorize(caller, customerOnly, ""); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Tokens outlive account deletion.
		var accounts int64
		if err := tx.Model(&models.User{}).Where("id = ?", caller.ID).Count(&accounts).Error; err != nil {
			return apperr.Internal(err, "failed to load account")
		}
		if accounts == 0 {
			return apperr.New(apperr.KindUnauthenticated, "account no longer exists")
		}

		var err error
		order, err = AssembleOrder(ctx, tx, in.RestaurantID, in.Items)
		if err != nil {
			return err
		}
		order.UserID = caller.ID
		order.DeliveryAddress = in.DeliveryAddress
		order.Notes = in.Notes

		if err := tx.Create(order).Error; err != nil {
			return apperr.Internal(err, "failed to place order")
		}
		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: caller.ID,
			Note:      "Order placed by customer",
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Internal(err, "failed to record order history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("restaurant_id", order.RestaurantID),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	s.publish(ctx, caller, events.Event{
		Type:         events.TypeOrderCreated,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		UserID:       order.UserID,
		Status:       string(order.Status),
		TotalAmount:  order.TotalAmount.StringFixed(2),
	})
	s.record(ctx, caller, "order.created", "order", order.ID, map[string]any{
		"restaurant_id": order.RestaurantID,
		"total_amount":  order.TotalAmount.StringFixed(2),
		"items":         len(order.Items),
	})
	return order, nil
}

// List returns orders visible to the caller, newest first: customers see
// their own, restaurant owners those of restaurants they own, admins all.
func (s *OrderService) List(ctx context.Context, caller *authz.Caller, f OrderFilter) ([]models.Order, error) {
	if err := authz.Authorize(caller, nil, ""); err != nil {
		return nil, err
	}

	q := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "address", "phone")
		}).
		Preload("Restaurant", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		})

	switch caller.Role {
	case models.RoleCustomer:
		q = q.Where("user_id = ?", caller.ID)
	case models.RoleRestaurantOwner:
		owned := s.DB.Model(&models.Restaurant{}).Select("id").Where("owner_id = ?", caller.ID)
		q = q.Where("restaurant_id IN (?)", owned)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RestaurantID != "" {
		q = q.Where("restaurant_id = ?", f.RestaurantID)
	}

	orders := []models.Order{}
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, apperr.Internal(err, "failed to list orders")
	}
	return orders, nil
}

// Track returns one order with restaurant and customer projections and its
// status history. Only the purchaser or an admin may track it.
func (s *OrderService) Track(ctx context.Context, caller *authz.Caller, id string) (*models.Order, error) {
	if err := authz.Authorize(caller, nil, ""); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Restaurant", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "address", "cuisine")
		}).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "address", "phone")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", id)
	}

	if err := authz.Authorize(caller, nil, order.UserID); err != nil {
		return nil, apperr.Forbidden("not authorized to view this order")
	}
	return &order, nil
}

// Cancel moves the caller's own PENDING order to CANCELLED.
func (s *OrderService) Cancel(ctx context.Context, caller *authz.Caller, id string) (*models.Order, error) {
	if err := authz.Authorize(caller, customerOnly, ""); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(caller, customerOnly, order.UserID); err != nil {
		return nil, apperr.Forbidden("not authorized to cancel this order")
	}
	if err := statemachine.CanTransition(order.Status, models.StatusCancelled, statemachine.ActorCustomer); err != nil {
		return nil, err
	}
	return s.transition(ctx, caller, order, models.StatusCancelled, "Order cancelled by customer")
}

// SetStatus lets the owner of the order's restaurant, or an admin, advance
// the order along the state machine.
func (s *OrderService) SetStatus(ctx context.Context, caller *authz.Caller, id string, status models.OrderStatus, note string) (*models.Order, error) {
	if err := authz.Authorize(caller, staffRoles, ""); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown order status %q", status)
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	actor := statemachine.ActorAdmin
	if !caller.IsAdmin() {
		owner, err := authz.OwnerOf(ctx, s.DB, authz.ResourceRestaurant, order.RestaurantID)
		if err != nil {
			return nil, err
		}
		if err := authz.Authorize(caller, staffRoles, owner); err != nil {
			return nil, apperr.Forbidden("not authorized to update this order")
		}
		actor = statemachine.ActorRestaurant
	}

	if err := statemachine.CanTransition(order.Status, status, actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, caller, order, status, note)
}

// ForceStatus is the admin override: any non-terminal order may be moved to
// any status other than PENDING.
func (s *OrderService) ForceStatus(ctx context.Context, caller *authz.Caller, id string, status models.OrderStatus, reason string) (*models.Order, error) {
	if err := authz.Authorize(caller, adminOnly, ""); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown order status %q", status)
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := statemachine.CanOverride(order.Status, status); err != nil {
		return nil, err
	}
	return s.transition(ctx, caller, order, status, "[ADMIN OVERRIDE] "+reason)
}

// Delete purges an order with its items and history. Admin only.
func (s *OrderService) Delete(ctx context.Context, caller *authz.Caller, id string) error {
	if err := authz.Authorize(caller, adminOnly, ""); err != nil {
		return err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", id).Error
	})
	if err != nil {
		return apperr.Internal(err, "failed to delete order")
	}

	s.publish(ctx, caller, events.Event{
		Type:         events.TypeOrderDeleted,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		UserID:       order.UserID,
		Status:       string(order.Status),
	})
	s.record(ctx, caller, "order.deleted", "order", id, map[string]any{"status": order.Status})
	return nil
}

func (s *OrderService) load(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "order %s not found", id)
	}
	return &order, nil
}

// transition applies a status change as a compare-and-swap on the version
// the caller read. If another transition won the race nothing is written.
func (s *OrderService) transition(ctx context.Context, caller *authz.Caller, order *models.Order, to models.OrderStatus, note string) (*models.Order, error) {
	from := order.Status
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]any{
				"status":  to,
				"version": gorm.Expr("version + ?", 1),
			})
		if res.Error != nil {
			return apperr.Internal(res.Error, "failed to update order status")
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.KindConflict, "order %s was modified by another request, reload and retry", order.ID)
		}
		history := models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  caller.ID,
			Note:       note,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Internal(err, "failed to record order history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var updated models.Order
	err = s.DB.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&updated, "id = ?", order.ID).Error
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", order.ID)
	}

	s.Log.Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", caller.ID))
	s.publish(ctx, caller, events.Event{
		Type:           events.TypeOrderStatusChanged,
		OrderID:        order.ID,
		RestaurantID:   order.RestaurantID,
		UserID:         order.UserID,
		Status:         string(to),
		PreviousStatus: string(from),
	})
	s.record(ctx, caller, "order.status_changed", "order", order.ID, map[string]any{
		"from": from, "to": to, "note": note,
	})
	return &updated, nil
}

func (s *OrderService) publish(ctx context.Context, caller *authz.Caller, e events.Event) {
	if caller != nil {
		e.ActorID = caller.ID
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		s.Log.Warn("failed to publish order event",
			zap.String("type", e.Type),
			zap.String("order_id", e.OrderID),
			zap.Error(err))
	}
}
