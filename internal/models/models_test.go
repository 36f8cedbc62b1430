package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestProposal_GetPartnerID(t *testing.T) {
	p := &Proposal{PartnerID: 42}
	if got := p.GetPartnerID(); got != 42 {
		t.Errorf("GetPartnerID() = %d, want 42", got)
	}
}

func TestClient_GetPartnerID(t *testing.T) {
	c := &Client{PartnerID: 123}
	if got := c.GetPartnerID(); got != 123 {
		t.Errorf("GetPartnerID() = %d, want 123", got)
	}
}

func TestProposalStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status ProposalStatus
		want   bool
	}{
		{ProposalStatusDraft, false},
		{ProposalStatusSent, false},
		{ProposalStatusApproved, true},
		{ProposalStatusRejected, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
			p := &Proposal{Status: tt.status}
			if p.CanEdit() == tt.want {
				t.Errorf("CanEdit() = %v, want %v", p.CanEdit(), !tt.want)
			}
		})
	}
	if ProposalStatus("ARCHIVED").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestProposal_ComputeTotal(t *testing.T) {
	p := &Proposal{Items: []ProposalItem{
		{Description: "Setup", Value: decimal.RequireFromString("500")},
		{Description: "Retainer", Value: decimal.RequireFromString("1500.10")},
	}}
	if got := p.ComputeTotal(); !got.Equal(decimal.RequireFromString("2000.10")) {
		t.Errorf("ComputeTotal() = %s, want 2000.10", got)
	}
	if got := (&Proposal{}).ComputeTotal(); !got.IsZero() {
		t.Errorf("empty ComputeTotal() = %s, want 0", got)
	}
}

func TestProposal_PublicHidesOwner(t *testing.T) {
	p := &Proposal{
		PartnerID:   7,
		ClientEmail: "secret@example.com",
		Title:       "Website",
		PublicToken: "abc",
		Items:       []ProposalItem{{Description: "Design", Value: decimal.NewFromInt(10), ProposalID: 3}},
	}
	pub := p.Public()
	if pub.Title != "Website" || pub.PublicToken != "abc" || len(pub.Items) != 1 {
		t.Fatalf("unexpected public projection: %#v", pub)
	}
}

func TestService_IsCancelled(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	s := &Service{}
	if s.IsCancelled(now) {
		t.Error("service without CancelledAt is not cancelled")
	}
	later := now.Add(time.Hour)
	s.CancelledAt = &later
	if s.IsCancelled(now) {
		t.Error("service cancelled in the future is still running")
	}
	if !s.IsCancelled(later) {
		t.Error("service is cancelled at its cancellation instant")
	}
}

func TestPartner_IsActive(t *testing.T) {
	if (&Partner{Status: PartnerStatusPending}).IsActive() {
		t.Error("pending partner is not active")
	}
	if !(&Partner{Status: PartnerStatusActive}).IsActive() {
		t.Error("ACTIVE partner should be active")
	}
}
