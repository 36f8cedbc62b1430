package store

import (
	"context"
	"time"

	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/money"
	"github.com/diewo77/go-partners/internal/platform"
	"github.com/diewo77/go-partners/internal/revenue"
	"github.com/shopspring/decimal"
)

// ServiceRecords returns every service of the partner, cancelled ones
// included, joined with its client's status.
func (s *Store) ServiceRecords(ctx context.Context, partnerID uint) ([]revenue.ServiceRecord, error) {
	var rows []revenue.ServiceRecord
	err := s.conn(ctx).Table("services").
		Select("services.id AS service_id, services.client_id, clients.status AS client_status, " +
			"services.description, services.monthly_fee, services.created_at, services.cancelled_at").
		Joins("JOIN clients ON clients.id = services.client_id").
		Where("clients.partner_id = ?", partnerID).
		Order("services.id").
		Scan(&rows).Error
	return rows, wrap(err, "service records of partner %d", partnerID)
}

// PartnerActivity counts clients and proposals of a partner.
func (s *Store) PartnerActivity(ctx context.Context, partnerID uint) (platform.Activity, error) {
	var clients, proposals, approved int64
	if err := s.conn(ctx).Model(&models.Client{}).Where("partner_id = ?", partnerID).Count(&clients).Error; err != nil {
		return platform.Activity{}, wrap(err, "count clients of partner %d", partnerID)
	}
	if err := s.conn(ctx).Model(&models.Proposal{}).Where("partner_id = ?", partnerID).Count(&proposals).Error; err != nil {
		return platform.Activity{}, wrap(err, "count proposals of partner %d", partnerID)
	}
	err := s.conn(ctx).Model(&models.Proposal{}).
		Where("partner_id = ? AND status = ?", partnerID, models.ProposalStatusApproved).
		Count(&approved).Error
	if err != nil {
		return platform.Activity{}, wrap(err, "count approved proposals of partner %d", partnerID)
	}
	return platform.Activity{Clients: int(clients), Proposals: int(proposals), Approved: int(approved)}, nil
}

// Totals counts all clients and proposals on the platform.
func (s *Store) Totals(ctx context.Context) (platform.Totals, error) {
	var t platform.Totals
	if err := s.conn(ctx).Model(&models.Client{}).Count(&t.Clients).Error; err != nil {
		return t, wrap(err, "count clients")
	}
	if err := s.conn(ctx).Model(&models.Proposal{}).Count(&t.Proposals).Error; err != nil {
		return t, wrap(err, "count proposals")
	}
	return t, nil
}

// PartnerCreationTimes returns the creation instants of active partners.
func (s *Store) PartnerCreationTimes(ctx context.Context) ([]time.Time, error) {
	var out []time.Time
	err := s.conn(ctx).Model(&models.Partner{}).
		Where("status = ?", models.PartnerStatusActive).
		Pluck("created_at", &out).Error
	return out, wrap(err, "partner creation times")
}

func (s *Store) ClientCreationTimes(ctx context.Context) ([]time.Time, error) {
	var out []time.Time
	err := s.conn(ctx).Model(&models.Client{}).Pluck("created_at", &out).Error
	return out, wrap(err, "client creation times")
}

// TopServices groups services running at instant at by description, most
// sold first.
func (s *Store) TopServices(ctx context.Context, at time.Time, limit int) ([]platform.TopService, error) {
	var rows []struct {
		Name       string
		AverageFee decimal.Decimal
		N          int
	}
	err := s.conn(ctx).Model(&models.Service{}).
		Select("description AS name, AVG(monthly_fee) AS average_fee, COUNT(*) AS n").
		Where("created_at <= ? AND (cancelled_at IS NULL OR cancelled_at > ?)", at, at).
		Group("description").
		Order("n DESC, name").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "top services")
	}
	out := make([]platform.TopService, 0, len(rows))
	for _, r := range rows {
		out = append(out, platform.TopService{
			Name:       r.Name,
			AverageFee: money.Round2(r.AverageFee),
			Count:      r.N,
		})
	}
	return out, nil
}
