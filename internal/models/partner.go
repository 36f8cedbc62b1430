package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartnerStatus is the lifecycle status of a reseller account.
// Partners are never hard-deleted while they own data; they are switched
// to INACTIVE or SUSPENDED instead.
type PartnerStatus string

const (
	PartnerStatusActive    PartnerStatus = "ACTIVE"
	PartnerStatusInactive  PartnerStatus = "INACTIVE"
	PartnerStatusPending   PartnerStatus = "PENDING"
	PartnerStatusSuspended PartnerStatus = "SUSPENDED"
)

// PartnerStatuses lists every accepted status value.
var PartnerStatuses = []string{
	string(PartnerStatusActive),
	string(PartnerStatusInactive),
	string(PartnerStatusPending),
	string(PartnerStatusSuspended),
}

// Partner is a tenant of the platform. Every client, service and proposal
// belongs to exactly one partner.
type Partner struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyName string `gorm:"size:255;not null" json:"company_name"`
	Email       string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Phone       string `gorm:"size:50" json:"phone,omitempty"`

	// CommissionRate is a percentage between 0 and 100.
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"commission_rate"`
	Status         PartnerStatus   `gorm:"size:20;not null;default:'PENDING';index" json:"status"`

	Clients   []Client   `gorm:"foreignKey:PartnerID;constraint:OnDelete:CASCADE" json:"-"`
	Proposals []Proposal `gorm:"foreignKey:PartnerID;constraint:OnDelete:CASCADE" json:"-"`
}

// GetPartnerID lets a partner be checked by the ownership policy like any tenant resource.
func (p *Partner) GetPartnerID() uint {
	return p.ID
}

// IsActive reports whether the partner may sign in and is counted on the platform.
func (p *Partner) IsActive() bool {
	return p.Status == PartnerStatusActive
}

// AdminUser is a platform operator account.
type AdminUser struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name,omitempty"`
	Password  string    `gorm:"size:255;not null" json:"-"`
}
