package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProposalStatus represents the status of a commercial proposal.
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "DRAFT"
	ProposalStatusSent     ProposalStatus = "SENT"
	ProposalStatusApproved ProposalStatus = "APPROVED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

// IsTerminal returns true for APPROVED and REJECTED.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusApproved || s == ProposalStatusRejected
}

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusSent, ProposalStatusApproved, ProposalStatusRejected:
		return true
	}
	return false
}

// Proposal is a priced offer a partner sends to a prospect.
// Implements the Ownable interface for ownership-based authorization.
type Proposal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PartnerID is the owner of this proposal (for multi-tenant isolation)
	PartnerID uint `gorm:"index;not null" json:"partner_id"`

	Title       string `gorm:"size:255;not null" json:"title"`
	ClientName  string `gorm:"size:255;not null" json:"client_name"`
	ClientEmail string `gorm:"size:255" json:"client_email,omitempty"`
	Scope       string `gorm:"type:text" json:"scope"`

	// TotalValue is always the sum of the items. It is never taken from input.
	TotalValue decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_value"`
	Status     ProposalStatus  `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	ValidUntil time.Time       `json:"valid_until"`

	// PublicToken lets the prospect view and answer the proposal without an account.
	// Set once at creation.
	PublicToken string `gorm:"size:64;uniqueIndex;not null" json:"public_token"`

	Items []ProposalItem `gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE" json:"items"`
}

// GetPartnerID implements the Ownable interface for authorization.
func (p *Proposal) GetPartnerID() uint {
	return p.PartnerID
}

// IsTerminal returns true once the prospect has answered.
func (p *Proposal) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// CanEdit returns true while the owner may still change the proposal.
func (p *Proposal) CanEdit() bool {
	return !p.Status.IsTerminal()
}

// ComputeTotal sums the item values.
func (p *Proposal) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Value)
	}
	return total
}

// ProposalItem is a priced line of a proposal.
type ProposalItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProposalID  uint            `gorm:"index;not null" json:"proposal_id"`
	Description string          `gorm:"size:500;not null" json:"description"`
	Value       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"value"`

	// Position for ordering
	Position int `gorm:"default:0" json:"position"`
}

// PublicProposal is what an anonymous token holder gets to see.
type PublicProposal struct {
	Title       string               `json:"title"`
	ClientName  string               `json:"client_name"`
	Scope       string               `json:"scope"`
	TotalValue  decimal.Decimal      `json:"total_value"`
	Status      ProposalStatus       `json:"status"`
	ValidUntil  time.Time            `json:"valid_until"`
	PublicToken string               `json:"public_token"`
	Items       []PublicProposalItem `json:"items"`
}

type PublicProposalItem struct {
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
}

// Public strips owner-side fields from the proposal.
func (p *Proposal) Public() PublicProposal {
	items := make([]PublicProposalItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, PublicProposalItem{Description: it.Description, Value: it.Value})
	}
	return PublicProposal{
		Title:       p.Title,
		ClientName:  p.ClientName,
		Scope:       p.Scope,
		TotalValue:  p.TotalValue,
		Status:      p.Status,
		ValidUntil:  p.ValidUntil,
		PublicToken: p.PublicToken,
		Items:       items,
	}
}
