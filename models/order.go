package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

type Order struct {
	ID              string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string               `json:"user_id" gorm:"type:varchar(36);not null;index"`
	User            *User                `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RestaurantID    string               `json:"restaurant_id" gorm:"type:varchar(36);not null;index"`
	Restaurant      *Restaurant          `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	Items           []OrderItem          `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount     decimal.Decimal      `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Status          OrderStatus          `json:"status" gorm:"type:varchar(32);not null;index"`
	DeliveryAddress string               `json:"delivery_address"`
	Notes           string               `json:"notes"`
	Version         int                  `json:"version" gorm:"not null;default:1"` // bumped on every status change
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem is the snapshot of a menu item taken when the order was placed.
// It is never updated from the source menu item.
type OrderItem struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID    string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	MenuItemID string          `json:"menu_item_id" gorm:"type:varchar(36);not null"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID    string      `json:"order_id" gorm:"type:varchar(36);not null;index"`
	FromStatus OrderStatus `json:"from_status,omitempty" gorm:"type:varchar(32)"`
	ToStatus   OrderStatus `json:"to_status" gorm:"type:varchar(32);not null"`
	ChangedBy  string      `json:"changed_by" gorm:"type:varchar(36)"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	assignID(&h.ID)
	return nil
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&Restaurant{},
		&MenuItem{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
	}
}
