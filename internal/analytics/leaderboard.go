// Package analytics ranks partners and derives period-over-period growth.
package analytics

import (
	"sort"

	"github.com/diewo77/go-partners/internal/money"
	"github.com/shopspring/decimal"
)

// LeaderboardSize is the length of the platform leaderboard.
const LeaderboardSize = 10

// PartnerPerformance is the per-partner input of the ranking.
type PartnerPerformance struct {
	PartnerID             uint
	PartnerName           string
	ClientCount           int
	TotalRevenue          decimal.Decimal
	ProposalCount         int
	ApprovedProposalCount int
}

type LeaderboardEntry struct {
	Rank           int             `json:"rank"`
	PartnerID      uint            `json:"partner_id"`
	PartnerName    string          `json:"partner_name"`
	ClientCount    int             `json:"client_count"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	ProposalCount  int             `json:"proposal_count"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

// ConversionRate is approved / proposals * 100, or 0 without proposals.
func ConversionRate(approved, proposals int) decimal.Decimal {
	return money.Ratio(decimal.NewFromInt(int64(approved)), decimal.NewFromInt(int64(proposals)))
}

// Leaderboard orders partners by total revenue, highest first, and keeps the
// first n. Equal revenues keep their input order, so callers feed partners
// sorted by ID to get a reproducible ranking. The input slice is not modified.
func Leaderboard(in []PartnerPerformance, n int) []LeaderboardEntry {
	rows := make([]PartnerPerformance, len(in))
	copy(rows, in)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalRevenue.GreaterThan(rows[j].TotalRevenue)
	})
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}

	out := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		out = append(out, LeaderboardEntry{
			Rank:           i + 1,
			PartnerID:      r.PartnerID,
			PartnerName:    r.PartnerName,
			ClientCount:    r.ClientCount,
			TotalRevenue:   money.Round2(r.TotalRevenue),
			ProposalCount:  r.ProposalCount,
			ConversionRate: ConversionRate(r.ApprovedProposalCount, r.ProposalCount),
		})
	}
	return out
}
