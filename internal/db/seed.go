package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-partners/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// HashPassword returns the bcrypt hash stored for partners and admins.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// SeedAdmin creates the platform admin if no admin with that email exists.
// An empty password skips the seed.
func SeedAdmin(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	var existing models.AdminUser
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return db.Create(&models.AdminUser{Email: email, Name: "Platform admin", Password: hash}).Error
}

const demoPartnerEmail = "demo@partner.test"

// SeedDemo creates a demo partner with a few clients, services and proposals
// for local development. It does nothing when the demo partner exists.
func SeedDemo(db *gorm.DB, now time.Time) error {
	var count int64
	if err := db.Model(&models.Partner{}).Where("email = ?", demoPartnerEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := HashPassword("demo1234")
	if err != nil {
		return err
	}
	monthsAgo := func(n int) time.Time { return now.AddDate(0, -n, 0) }
	cancelled := monthsAgo(1)

	partner := models.Partner{
		CompanyName:    "Demo Agency",
		Email:          demoPartnerEmail,
		Password:       hash,
		CommissionRate: decimal.NewFromInt(15),
		Status:         models.PartnerStatusActive,
		Clients: []models.Client{
			{
				Name: "Bakery Dupont", Email: "contact@bakery.test", Status: models.ClientStatusActive, StartDate: monthsAgo(8),
				Services: []models.Service{
					{Description: "Website hosting", MonthlyFee: decimal.NewFromInt(49), CreatedAt: monthsAgo(8)},
					{Description: "SEO", MonthlyFee: decimal.NewFromInt(250), CreatedAt: monthsAgo(5)},
				},
			},
			{
				Name: "Garage Martin", Email: "hello@garage.test", Status: models.ClientStatusActive, StartDate: monthsAgo(4),
				Services: []models.Service{
					{Description: "Social media", MonthlyFee: decimal.NewFromInt(300), CreatedAt: monthsAgo(4), CancelledAt: &cancelled},
					{Description: "Website hosting", MonthlyFee: decimal.NewFromInt(49), CreatedAt: monthsAgo(4)},
				},
			},
		},
		Proposals: []models.Proposal{
			{
				Title: "E-commerce launch", ClientName: "Florist Leroy", ClientEmail: "leroy@florist.test",
				Scope: "Online shop with payment", Status: models.ProposalStatusSent,
				ValidUntil: now.AddDate(0, 1, 0), PublicToken: "demo0000000000000000000000000001",
				TotalValue: decimal.NewFromInt(3200),
				Items: []models.ProposalItem{
					{Description: "Shop setup", Value: decimal.NewFromInt(2400), Position: 0},
					{Description: "Training", Value: decimal.NewFromInt(800), Position: 1},
				},
			},
		},
	}
	return db.Create(&partner).Error
}
