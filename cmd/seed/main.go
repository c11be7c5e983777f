package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/opas/opas-backend/config"
	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/db"
	"github.com/opas/opas-backend/pkg/util"
	"gorm.io/gorm"
)

// Seeds the database with an admin account, demo users, and the initial
// ceiling prices. Safe to run repeatedly; existing records are left alone.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	conn := db.GetDB()

	users := []struct {
		email    string
		password string
		name     string
		role     model.UserRole
	}{
		{"admin@opas.local", "admin12345", "OPAS Admin", model.RoleAdmin},
		{"buyer@opas.local", "buyer12345", "Demo Buyer", model.RoleBuyer},
		{"seller@opas.local", "seller12345", "Demo Seller", model.RoleSeller},
	}

	for _, u := range users {
		created, err := ensureUser(conn, u.email, u.password, u.name, u.role)
		if err != nil {
			log.Fatal("Failed to seed user:", err)
		}
		if created {
			fmt.Printf("Created %s account: %s\n", u.role, u.email)
		} else {
			fmt.Printf("Account already exists: %s\n", u.email)
		}
	}

	var admin model.User
	if err := conn.Where("email = ?", "admin@opas.local").First(&admin).Error; err != nil {
		log.Fatal("Failed to load admin account:", err)
	}

	ceilings := map[string]float64{
		"vegetables": 180.0,
		"fruits":     250.0,
		"grains":     120.0,
		"herbs":      300.0,
	}

	for category, maxPrice := range ceilings {
		created, err := ensureCeiling(conn, category, maxPrice, admin.ID)
		if err != nil {
			log.Fatal("Failed to seed ceiling:", err)
		}
		if created {
			fmt.Printf("Set ceiling for %s: %.2f\n", category, maxPrice)
		}
	}

	fmt.Println("Seed completed successfully!")
}

func ensureUser(conn *gorm.DB, email, password, name string, role model.UserRole) (bool, error) {
	var existing model.User
	err := conn.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return false, err
	}

	user := model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := conn.Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}

func ensureCeiling(conn *gorm.DB, category string, maxPrice float64, adminID uint) (bool, error) {
	var existing model.PriceCeiling
	err := conn.Where("category = ?", category).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	ceiling := model.PriceCeiling{
		Category: category,
		MaxPrice: maxPrice,
		SetByID:  adminID,
	}
	if err := conn.Create(&ceiling).Error; err != nil {
		return false, err
	}
	return true, nil
}
