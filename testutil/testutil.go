// Package testutil provides a throwaway sqlite database and fixtures for tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"quickbite-api/config"
	"quickbite-api/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const Password = "secret123"

var seq atomic.Int64

func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quickbite_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser stores a user whose password is Password.
func SeedUser(t testing.TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	n := seq.Add(1)
	u := &models.User{
		Name:         fmt.Sprintf("user %d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: string(hash),
		Role:         role,
	}
	mustCreate(t, db, u)
	return u
}

func SeedRestaurant(t testing.TB, db *gorm.DB, ownerID string) *models.Restaurant {
	t.Helper()
	n := seq.Add(1)
	r := &models.Restaurant{
		OwnerID: ownerID,
		Name:    fmt.Sprintf("Restaurant %d", n),
		Cuisine: "Italian",
		Address: "1 Main St",
		IsOpen:  true,
	}
	mustCreate(t, db, r)
	return r
}

func SeedMenuItem(t testing.TB, db *gorm.DB, restaurantID, price string) *models.MenuItem {
	t.Helper()
	n := seq.Add(1)
	m := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         fmt.Sprintf("Dish %d", n),
		Price:        decimal.RequireFromString(price),
		IsAvailable:  true,
	}
	mustCreate(t, db, m)
	return m
}

// SeedOrder stores an order with a single one-unit line at 10.00.
func SeedOrder(t testing.TB, db *gorm.DB, userID, restaurantID string, status models.OrderStatus) *models.Order {
	t.Helper()
	price := decimal.NewFromInt(10)
	o := &models.Order{
		UserID:       userID,
		RestaurantID: restaurantID,
		Status:       status,
		TotalAmount:  price,
		Version:      1,
		Items: []models.OrderItem{
			{MenuItemID: "seeded", Name: "Seeded dish", Quantity: 1, Price: price},
		},
	}
	mustCreate(t, db, o)
	return o
}

func mustCreate(t testing.TB, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
