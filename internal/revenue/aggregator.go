// Package revenue computes partner MRR, commission and the trailing monthly
// history from service validity windows.
//
// Nothing is cached: every figure is replayed from service creation and
// cancellation timestamps, so adding a service today never changes what an
// earlier month reports.
package revenue

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/money"
	"github.com/shopspring/decimal"
)

// HistoryMonths is the length of the trailing series, current month included.
const HistoryMonths = 12

// ServiceRecord is a service joined with the status of its client.
type ServiceRecord struct {
	ServiceID    uint
	ClientID     uint
	ClientStatus models.ClientStatus
	Description  string
	MonthlyFee   decimal.Decimal
	CreatedAt    time.Time
	CancelledAt  *time.Time
}

// RunningAt reports whether the service was running at instant t.
func (r ServiceRecord) RunningAt(t time.Time) bool {
	if r.CreatedAt.After(t) {
		return false
	}
	return r.CancelledAt == nil || r.CancelledAt.After(t)
}

// Overlaps reports whether the validity window touches p: created before the
// period ends and not cancelled before it starts.
func (r ServiceRecord) Overlaps(p Period) bool {
	if !r.CreatedAt.Before(p.End) {
		return false
	}
	return r.CancelledAt == nil || !r.CancelledAt.Before(p.Start)
}

// Source provides the partner row and its joined service records.
type Source interface {
	PartnerByID(ctx context.Context, id uint) (*models.Partner, error)
	ServiceRecords(ctx context.Context, partnerID uint) ([]ServiceRecord, error)
}

// Revenue is the instantaneous position of a partner.
type Revenue struct {
	PartnerID      uint            `json:"partner_id"`
	MRR            decimal.Decimal `json:"mrr"`
	Commission     decimal.Decimal `json:"commission"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	ActiveServices int             `json:"active_services"`
}

// HistoryPoint is one month of the trailing series.
type HistoryPoint struct {
	Month              string          `json:"month"`
	Revenue            decimal.Decimal `json:"revenue"`
	Commission         decimal.Decimal `json:"commission"`
	ActiveServiceCount int             `json:"active_service_count"`
}

// Snapshot bundles the current revenue and the history computed at one instant.
type Snapshot struct {
	Partner *models.Partner
	Revenue Revenue
	History []HistoryPoint
}

type Option func(*Aggregator)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the time zone month boundaries are computed in.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

type Aggregator struct {
	src Source
	now func() time.Time
	loc *time.Location
}

func NewAggregator(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, now: time.Now, loc: time.UTC}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Now returns the aggregator's clock reading.
func (a *Aggregator) Now() time.Time { return a.now() }

func (a *Aggregator) Location() *time.Location { return a.loc }

// PartnerRevenue returns MRR and commission for a partner: the sum of monthly
// fees of services running now whose client is active, and that sum times the
// partner's commission rate.
func (a *Aggregator) PartnerRevenue(ctx context.Context, partnerID uint) (Revenue, error) {
	snap, err := a.Snapshot(ctx, partnerID)
	if err != nil {
		return Revenue{}, err
	}
	return snap.Revenue, nil
}

// PartnerHistory returns the trailing twelve months, oldest first.
func (a *Aggregator) PartnerHistory(ctx context.Context, partnerID uint) ([]HistoryPoint, error) {
	snap, err := a.Snapshot(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return snap.History, nil
}

// Snapshot loads the partner and evaluates it at the current clock reading.
func (a *Aggregator) Snapshot(ctx context.Context, partnerID uint) (*Snapshot, error) {
	p, err := a.src.PartnerByID(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("load partner %d: %w", partnerID, err)
	}
	return a.SnapshotAt(ctx, p, a.now())
}

// SnapshotAt evaluates an already loaded partner at instant at. Callers that
// aggregate several partners pass the same instant so all series line up.
func (a *Aggregator) SnapshotAt(ctx context.Context, p *models.Partner, at time.Time) (*Snapshot, error) {
	records, err := a.src.ServiceRecords(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load services for partner %d: %w", p.ID, err)
	}
	snap := Compute(p, records, at, a.loc)
	return &snap, nil
}

// Compute is the pure part of the aggregation.
func Compute(p *models.Partner, records []ServiceRecord, at time.Time, loc *time.Location) Snapshot {
	rate := p.CommissionRate

	mrr := decimal.Zero
	running := 0
	for _, r := range records {
		if r.ClientStatus != models.ClientStatusActive || !r.RunningAt(at) {
			continue
		}
		mrr = mrr.Add(r.MonthlyFee)
		running++
	}

	months := TrailingMonths(at, HistoryMonths, loc)
	history := make([]HistoryPoint, 0, len(months))
	for _, m := range months {
		total := decimal.Zero
		count := 0
		for _, r := range records {
			if !r.Overlaps(m) {
				continue
			}
			total = total.Add(r.MonthlyFee)
			count++
		}
		history = append(history, HistoryPoint{
			Month:              m.Label(),
			Revenue:            money.Round2(total),
			Commission:         money.Percent(total, rate),
			ActiveServiceCount: count,
		})
	}

	return Snapshot{
		Partner: p,
		Revenue: Revenue{
			PartnerID:      p.ID,
			MRR:            money.Round2(mrr),
			Commission:     money.Percent(mrr, rate),
			CommissionRate: rate,
			ActiveServices: running,
		},
		History: history,
	}
}
