package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "ACTIVE"
	ClientStatusInactive ClientStatus = "INACTIVE"
)

// Client is an end customer managed by a partner.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PartnerID uint `gorm:"index;not null" json:"partner_id"`

	Name      string       `gorm:"size:255;not null" json:"name"`
	Email     string       `gorm:"size:255" json:"email,omitempty"`
	Phone     string       `gorm:"size:50" json:"phone,omitempty"`
	Status    ClientStatus `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
	StartDate time.Time    `json:"start_date"`

	Services []Service `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"services,omitempty"`
}

// GetPartnerID implements the Ownable interface for authorization.
func (c *Client) GetPartnerID() uint {
	return c.PartnerID
}

func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

// Service is a recurring monthly service sold to a client.
// CreatedAt opens its validity window and CancelledAt, once set, closes it.
// Cancelled services are kept so past months can still be replayed.
type Service struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientID uint `gorm:"index;not null" json:"client_id"`

	Description string          `gorm:"size:255;not null" json:"description"`
	MonthlyFee  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"monthly_fee"`
	CancelledAt *time.Time      `gorm:"index" json:"cancelled_at,omitempty"`

	// PartnerID is filled from the owning client when a service is loaded
	// for an ownership check. It is not a column.
	PartnerID uint `gorm:"-" json:"-"`
}

// GetPartnerID implements the Ownable interface for authorization.
func (s *Service) GetPartnerID() uint {
	return s.PartnerID
}

// IsCancelled reports whether the service has been cancelled at or before t.
func (s *Service) IsCancelled(t time.Time) bool {
	return s.CancelledAt != nil && !s.CancelledAt.After(t)
}
