package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Restaurant struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID     string     `json:"owner_id" gorm:"type:varchar(36);not null;index"`
	Owner       *User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string     `json:"name" gorm:"not null"`
	Description string     `json:"description"`
	Cuisine     string     `json:"cuisine"`
	Address     string     `json:"address"`
	Rating      float64    `json:"rating" gorm:"default:0"`
	ImageURL    string     `json:"image_url"`
	IsOpen      bool       `json:"is_open" gorm:"default:true"`
	MenuItems   []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

type MenuItem struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RestaurantID string          `json:"restaurant_id" gorm:"type:varchar(36);not null;index"`
	Name         string          `json:"name" gorm:"not null"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url"`
	IsAvailable  bool            `json:"is_available" gorm:"default:true"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}
